package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/resolver"
)

// StatusCmd returns the status command, showing the live effective output
// and the next scheduled event.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current effective output and the next event",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			now := time.Now()
			status, err := app.evaluator.CurrentStatus(cmd.Context(), now)
			if err != nil {
				return fmt.Errorf("current status: %w", err)
			}

			if !status.Live {
				color.New(color.Faint).Println("idle: no occurrence or override is live")
			} else {
				header := color.New(color.FgGreen, color.Bold)
				if status.Source == resolver.SourceOverride {
					header = color.New(color.FgRed, color.Bold)
				}
				header.Printf("live [%s]\n", string(status.Source))
				if status.Title != "" {
					fmt.Printf("  task:       %s\n", status.Title)
				}
				fmt.Printf("  value:      %s\n", status.Value)
				if !status.BusyUntil.IsZero() {
					fmt.Printf("  busy until: %s\n", status.BusyUntil.Format("2006-01-02 15:04"))
				} else if status.Source == resolver.SourceOverride {
					fmt.Println("  busy until: permanent override")
				}
				if status.OverrideValue != "" {
					until := "permanent"
					if status.OverrideUntil != nil {
						until = status.OverrideUntil.Format("2006-01-02 15:04")
					}
					fmt.Printf("  override:   %s (until %s)\n", status.OverrideValue, until)
				}
			}

			next, err := app.evaluator.NextEvent(cmd.Context(), now)
			if err != nil {
				return fmt.Errorf("next event: %w", err)
			}
			if next == nil {
				fmt.Println("next: nothing scheduled inside the horizon")
				return nil
			}
			fmt.Printf("next: %s  %s  value=%s\n",
				next.Start.Format("2006-01-02 15:04"), next.Title, next.Value)
			return nil
		},
	}
}
