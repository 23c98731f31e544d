package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/woo"
)

// CheckCmd verifies store connectivity without processing anything.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify store connectivity and credentials",
	Long: `Verify that the configured store is reachable and the REST credentials
are accepted, then report how many orders fall in the lookback window.

No folders are created and no state is recorded.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client := woo.NewClient(cfg.Store, cfg.HTTP, cfg.Monitor.PageSize, logger.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := client.TestConnection(ctx); err != nil {
		return err
	}
	fmt.Printf("Store reachable: %s\n", cfg.Store.URL)

	orders, err := client.FetchOrders(ctx, woo.FetchOptions{
		After:    time.Now().Add(-cfg.Monitor.Lookback()),
		Statuses: cfg.Filters.Statuses,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Orders in the last %dh: %d\n", cfg.Monitor.LookbackHours, len(orders))
	for _, o := range orders {
		fmt.Printf("  #%s  %s  %s %s  %s\n",
			o.Number, o.Status, o.Total.StringFixed(2), o.Currency, o.CustomerName())
	}
	return nil
}
