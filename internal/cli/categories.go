package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CategoriesCmd returns the categories command, listing the colour palette.
func CategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List display categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			categories, err := app.storage.ListCategories(cmd.Context())
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			for _, cat := range categories {
				mark := "  "
				if cat.IsSystem {
					mark = color.New(color.FgYellow).Sprint("* ")
				}
				fmt.Printf("%s%2d  %-14s bg=%s fg=%s\n", mark, cat.ID, cat.Name, cat.BgColor, cat.FgColor)
			}
			return nil
		},
	}
}
