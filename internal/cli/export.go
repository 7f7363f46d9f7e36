package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/export"
)

// ExportCmd returns the export command, writing the resolved window as an
// iCalendar feed.
func ExportCmd() *cobra.Command {
	var (
		out  string
		days int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the resolved timeline as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if out == "" {
				out = app.cfg.ExportPath
			}
			if days <= 0 {
				days = app.cfg.HorizonDays
			}
			from := time.Now()
			occurrences, err := app.resolver.Resolve(cmd.Context(), from, from.AddDate(0, 0, days))
			if err != nil {
				return fmt.Errorf("resolve window: %w", err)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			if err := export.Write(f, occurrences); err != nil {
				return fmt.Errorf("serialise calendar: %w", err)
			}
			fmt.Printf("wrote %d occurrences to %s\n", len(occurrences), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output path (default export_path from config)")
	cmd.Flags().IntVar(&days, "days", 0, "window length in days (default horizon_days)")
	return cmd
}
