package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ConfigCmd groups configuration operations.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ordermon configuration",
	Long: `Manage ordermon configuration.

Examples:
  ordermon config show            # Show the effective configuration
  ordermon config validate        # Check the configuration without running`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Println("[store]")
	fmt.Printf("  url              = %s\n", cfg.Store.URL)
	fmt.Printf("  consumer_key     = %s\n", maskSecret(cfg.Store.ConsumerKey))
	fmt.Printf("  consumer_secret  = %s\n", maskSecret(cfg.Store.ConsumerSecret))
	fmt.Printf("  label_secret     = %s\n", maskSecret(cfg.Store.LabelSecret))

	fmt.Println("[monitor]")
	fmt.Printf("  poll_interval    = %s\n", cfg.Monitor.PollInterval())
	fmt.Printf("  lookback         = %s\n", cfg.Monitor.Lookback())
	fmt.Printf("  page_size        = %d\n", cfg.Monitor.PageSize)
	fmt.Printf("  state_backend    = %s\n", cfg.Monitor.StateBackend)
	fmt.Printf("  state_path       = %s\n", cfg.Monitor.StatePath)

	fmt.Println("[folder]")
	fmt.Printf("  base_dir         = %s\n", cfg.Folder.BaseDir)
	fmt.Printf("  template         = %s\n", cfg.Folder.Template)
	fmt.Printf("  date_prefix      = %t\n", cfg.Folder.DatePrefix)

	fmt.Println("[documents]")
	fmt.Printf("  invoice          = %t\n", cfg.Documents.Invoice)
	fmt.Printf("  label            = %t\n", cfg.Documents.Label)
	fmt.Printf("  details          = %t\n", cfg.Documents.Details)

	fmt.Println("[filters]")
	fmt.Printf("  statuses         = %s\n", strings.Join(cfg.Filters.Statuses, ", "))
	if len(cfg.Filters.ShippingMethods) > 0 {
		fmt.Printf("  shipping_methods = %s\n", strings.Join(cfg.Filters.ShippingMethods, ", "))
	}
	if len(cfg.Filters.PaymentMethods) > 0 {
		fmt.Printf("  payment_methods  = %s\n", strings.Join(cfg.Filters.PaymentMethods, ", "))
	}
	if cfg.Filters.MinTotal != "" {
		fmt.Printf("  min_total        = %s\n", cfg.Filters.MinTotal)
	}

	if cfg.Server.Enabled {
		fmt.Println("[server]")
		fmt.Printf("  port             = %d\n", cfg.Server.ServerPort())
	}

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	fmt.Println("Configuration is valid.")
	return nil
}

// maskSecret keeps the first four characters so key mixups are debuggable
// without printing credentials.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
