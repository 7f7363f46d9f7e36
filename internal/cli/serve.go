package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/scheduler"
	"github.com/example/industrial-scheduler/internal/sink"
)

// ServeCmd returns the serve command, the long-running scheduler process.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler loop until interrupted",
		Long: `Start the cooperative scheduler loop. Every scan_rate seconds the loop
asks the evaluator for the current effective output and drives the value
sink, applying the configured retry policy. SIGINT or SIGTERM stops the
loop cooperatively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			valueSink := sink.NewLogSink(app.logger)
			if app.cfg.DryRun {
				app.logger.Info("dry run: sink writes are logged only")
			} else {
				app.logger.Info("no wire writer linked in this build; writes go to the logging sink")
			}

			loop := scheduler.NewLoop(app.evaluator, app.storage, app.storage, valueSink, app.logger, nil)
			if err := loop.Start(ctx); err != nil {
				return fmt.Errorf("start scheduler loop: %w", err)
			}

			<-ctx.Done()
			loop.Stop()
			return nil
		},
	}
}
