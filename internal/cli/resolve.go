package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/resolver"
)

// ResolveCmd returns the resolve command, printing the merged occurrence
// timeline for a window.
func ResolveCmd() *cobra.Command {
	var (
		fromFlag string
		days     int
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved occurrence timeline for a window",
		Long: `Resolve the configured series over a time window and print every merged
occurrence: base recurrences with holiday, exception and runtime-override
layers applied, in the same order the UI renders them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			from := time.Now()
			if fromFlag != "" {
				from, err = time.ParseInLocation("2006-01-02", fromFlag, time.Local)
				if err != nil {
					return fmt.Errorf("parse --from: %w", err)
				}
			}
			if days <= 0 {
				days = app.cfg.HorizonDays
			}
			to := from.AddDate(0, 0, days)

			occurrences, err := app.resolver.Resolve(cmd.Context(), from, to)
			if err != nil {
				return fmt.Errorf("resolve window: %w", err)
			}

			if len(occurrences) == 0 {
				fmt.Println("no occurrences in window")
				return nil
			}
			for _, occ := range occurrences {
				printOccurrence(occ)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "window start date (YYYY-MM-DD, default now)")
	cmd.Flags().IntVar(&days, "days", 0, "window length in days (default horizon_days)")
	return cmd
}

func printOccurrence(occ resolver.ResolvedOccurrence) {
	marker := color.New(color.FgWhite)
	switch occ.Source {
	case resolver.SourceHoliday:
		marker = color.New(color.FgMagenta)
	case resolver.SourceException:
		marker = color.New(color.FgYellow)
	case resolver.SourceOverride:
		marker = color.New(color.FgRed, color.Bold)
	}
	marker.Printf("%-9s", string(occ.Source))
	fmt.Printf(" %s - %s  %-24s value=%-10s prio=%d key=%s\n",
		occ.Start.Format("2006-01-02 15:04"),
		occ.End.Format("15:04"),
		occ.Title,
		occ.TargetValue,
		occ.Priority,
		occ.OccurrenceKey,
	)
}
