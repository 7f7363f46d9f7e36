package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/application"
)

// OverrideCmd returns the override command group managing the process-wide
// runtime override.
func OverrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage the runtime override",
	}
	cmd.AddCommand(overrideSetCmd())
	cmd.AddCommand(overrideClearCmd())
	cmd.AddCommand(overrideShowCmd())
	return cmd
}

func overrideSetCmd() *cobra.Command {
	var forSeconds int

	cmd := &cobra.Command{
		Use:   "set <value>",
		Short: "Force an output value, optionally for a bounded duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var until *time.Time
			if forSeconds > 0 {
				t := time.Now().Add(time.Duration(forSeconds) * time.Second)
				until = &t
			}

			service := application.NewOverrideService(app.storage, app.logger, nil)
			if err := service.SetOverride(cmd.Context(), args[0], until); err != nil {
				return err
			}
			if until == nil {
				fmt.Printf("override %q applied until cleared\n", args[0])
			} else {
				fmt.Printf("override %q applied until %s\n", args[0], until.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&forSeconds, "for", 0, "override lifetime in seconds (0 = until cleared)")
	return cmd
}

func overrideClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the runtime override",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			service := application.NewOverrideService(app.storage, app.logger, nil)
			if err := service.ClearOverride(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("override cleared")
			return nil
		},
	}
}

func overrideShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the runtime override, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			override, err := app.storage.GetOverride(cmd.Context())
			if err != nil {
				return err
			}
			if override == nil {
				fmt.Println("no override set")
				return nil
			}
			until := "permanent"
			if override.Until != nil {
				until = override.Until.Format("2006-01-02 15:04")
			}
			fmt.Printf("override %q until %s\n", override.Value, until)
			return nil
		},
	}
}
