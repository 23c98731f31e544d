package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/monitor"
	"github.com/floriandheer/ordermon/server"
)

// RunCmd starts the monitor in the foreground.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the order monitor",
	Long: `Run the order monitor in the foreground.

Polls the store on the configured interval and processes new orders as they
appear. Stop with Ctrl-C; a cycle in progress finishes its current order
first.

Examples:
  ordermon run                 # Poll until interrupted
  ordermon run --once          # Single cycle, then exit
  ordermon run --serve         # Also expose the local control API`,
	RunE: runMonitor,
}

var (
	onceFlag  bool
	serveFlag bool
)

func init() {
	RunCmd.Flags().BoolVar(&onceFlag, "once", false, "Run a single cycle and exit")
	RunCmd.Flags().BoolVar(&serveFlag, "serve", false, "Expose the local status/control HTTP server")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Monitor.LogFile != "" {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.InitializeWithFile(jsonOutput, cfg.Monitor.LogFile); err != nil {
			return errors.Wrap(err, "opening monitor log file")
		}
	}

	var hub *server.ActivityHub
	var broadcaster monitor.Broadcaster
	serve := serveFlag || cfg.Server.Enabled
	if serve {
		hub = server.NewActivityHub(logger.Logger)
		broadcaster = hub
	}

	st, err := buildStack(cfg, broadcaster)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail fast on unreachable stores and bad credentials.
	if err := st.client.TestConnection(ctx); err != nil {
		return err
	}
	logger.Infow("Store connection verified",
		logger.FieldURL, cfg.Store.URL)

	if onceFlag {
		stats := st.monitor.RunOnce(ctx)
		if stats.Error != "" {
			return errors.Newf("cycle failed: %s", stats.Error)
		}
		return nil
	}

	if err := st.monitor.Start(ctx); err != nil {
		return err
	}
	defer st.monitor.Stop()

	// Reload filter and document settings when the config file changes.
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		watcher, err := config.NewConfigWatcher(path)
		if err != nil {
			logger.Warnw("Config watching disabled",
				logger.FieldError, err)
		} else {
			watcher.OnReload(func(newCfg *config.Config) error {
				st.monitor.UpdateFilters(newCfg.Filters)
				st.processor.UpdateConfig(newCfg.Folder, newCfg.Documents)
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	var srv *server.Server
	var srvErr <-chan error
	if serve {
		srv = server.New(st.monitor, st.store, hub, cfg.Server, logger.Logger)
		srvErr = srv.Start(ctx)
	}

	select {
	case <-ctx.Done():
		logger.Infow("Shutting down")
	case err := <-srvErr:
		if err != nil {
			return errors.Wrap(err, "control server failed")
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("Control server shutdown error",
				logger.FieldError, err)
		}
	}

	return nil
}
