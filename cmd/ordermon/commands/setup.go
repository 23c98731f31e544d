package commands

import (
	"github.com/spf13/cobra"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/document"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/monitor"
	"github.com/floriandheer/ordermon/state"
	"github.com/floriandheer/ordermon/woo"
)

// loadConfig resolves configuration for a command: an explicit --config path
// wins, otherwise the usual search order applies. The result is validated.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stack is everything a running monitor needs, built once per command.
type stack struct {
	cfg       *config.Config
	client    *woo.Client
	store     state.Store
	renderer  document.PDFRenderer
	processor *monitor.Processor
	monitor   *monitor.Monitor
}

// buildStack wires client, state store, generators and monitor from config.
// broadcaster may be nil for headless commands.
func buildStack(cfg *config.Config, broadcaster monitor.Broadcaster) (*stack, error) {
	client := woo.NewClient(cfg.Store, cfg.HTTP, cfg.Monitor.PageSize, logger.Logger)

	store, err := state.OpenStore(cfg.Monitor, logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "opening state store")
	}

	renderer := document.NewChromedpRenderer(cfg.Invoice.RenderTimeout(), logger.Logger)

	processor := monitor.NewProcessor(store,
		document.NewInvoiceGenerator(renderer, cfg.Invoice, logger.Logger),
		document.NewLabelGenerator(client, logger.Logger),
		document.NewDetailsGenerator(logger.Logger),
		cfg.Folder, cfg.Documents, logger.Logger)

	mon := monitor.New(client, processor, store, cfg.Monitor, cfg.Filters, broadcaster, logger.Logger)

	return &stack{
		cfg:       cfg,
		client:    client,
		store:     store,
		renderer:  renderer,
		processor: processor,
		monitor:   mon,
	}, nil
}

// Close releases the stack's resources.
func (s *stack) Close() {
	if s.renderer != nil {
		s.renderer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
