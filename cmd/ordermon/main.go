package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/floriandheer/ordermon/cmd/ordermon/commands"
	"github.com/floriandheer/ordermon/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ordermon",
	Short: "WooCommerce order monitor",
	Long: `ordermon — watch a WooCommerce store and file new orders.

Polls the store's REST API on a schedule, and for every new order creates a
folder with the PDF invoice, the shipping label and a plain-text order
summary. Orders that were already handled are remembered across restarts.

Examples:
  ordermon run                 # Start the monitor in the foreground
  ordermon check               # Verify store connectivity and credentials
  ordermon run --once          # Run a single cycle and exit
  ordermon state stats         # Show processed order statistics
  ordermon config show         # Show the effective configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: search for ordermon.toml)")
	rootCmd.PersistentFlags().Bool("json", false, "Log in JSON instead of console format")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.StateCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
