package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Calendar-driven industrial scheduler",
		Long: `scheduler expands recurrence-rule series into occurrence timelines,
applies holiday, exception and runtime-override layers, and drives the
configured value sink with the effective output.`,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "scheduler.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.ResolveCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ExportCmd())
	rootCmd.AddCommand(cli.CategoriesCmd())
	rootCmd.AddCommand(cli.OverrideCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
