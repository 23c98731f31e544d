package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/state"
)

// StateCmd groups processed-order state operations.
var StateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect processed-order state",
	Long: `Inspect the processed-order state store.

Examples:
  ordermon state stats            # Totals per outcome
  ordermon state list             # Every processed order
  ordermon state list --limit 10  # The ten most recent`,
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed orders",
	RunE:  runStateList,
}

var stateStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show processed-order statistics",
	RunE:  runStateStats,
}

var stateListLimitFlag int

func init() {
	StateCmd.AddCommand(stateListCmd)
	StateCmd.AddCommand(stateStatsCmd)
	stateListCmd.Flags().IntVar(&stateListLimitFlag, "limit", 0, "Show only the N most recent records (0 = all)")
}

func openConfiguredStore(cmd *cobra.Command) (state.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return state.OpenStore(cfg.Monitor, logger.Logger)
}

func runStateList(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Snapshot()
	if err != nil {
		return err
	}

	if stateListLimitFlag > 0 && len(records) > stateListLimitFlag {
		records = records[len(records)-stateListLimitFlag:]
	}

	if len(records) == 0 {
		fmt.Println("No processed orders.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  #%-8s %-16s invoice=%s label=%s details=%s\n",
			rec.ProcessedAt.Local().Format("2006-01-02 15:04"),
			rec.OrderNumber,
			rec.Outcome,
			rec.InvoiceOutcome,
			rec.LabelOutcome,
			rec.DetailsOutcome)
	}
	return nil
}

func runStateStats(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Snapshot()
	if err != nil {
		return err
	}

	var success, partial, labelsMissing int
	for _, rec := range records {
		switch rec.Outcome {
		case state.OutcomeSuccess:
			success++
		case state.OutcomePartialFailure:
			partial++
		}
		if rec.LabelOutcome != "generated" {
			labelsMissing++
		}
	}

	fmt.Printf("Processed orders:   %d\n", len(records))
	fmt.Printf("  Success:          %d\n", success)
	fmt.Printf("  Partial failures: %d\n", partial)
	fmt.Printf("  Without label:    %d\n", labelsMissing)
	if len(records) > 0 {
		fmt.Printf("First processed:    %s\n", records[0].ProcessedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Last processed:     %s\n", records[len(records)-1].ProcessedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
