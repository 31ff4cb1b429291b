package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
)

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the curriculum catalog",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and report schema or structural errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog OK: %d levels, %d items\n", len(cat.Levels()), cat.Size())
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items by level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			levels := cat.Levels()
			if only, _ := cmd.Flags().GetString("level"); only != "" {
				if !cat.HasLevel(only) {
					return fmt.Errorf("no level named %q", only)
				}
				levels = []string{only}
			}

			out := cmd.OutOrStdout()
			for _, level := range levels {
				fmt.Fprintf(out, "%s\n", curriculum.DisplayName(level))
				fmt.Fprintf(out, "  %-26s  %-34s  %4s  %s\n", "ID", "Title", "Diff", "Prerequisites")
				fmt.Fprintf(out, "  %s\n", strings.Repeat("─", 90))
				for _, it := range cat.LevelItems(level) {
					title := it.Title
					if len(title) > 34 {
						title = title[:31] + "..."
					}
					fmt.Fprintf(out, "  %-26s  %-34s  %4d  %s\n",
						it.ID, title, it.Difficulty, strings.Join(it.Prerequisites, ", "))
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%d items\n", cat.Size())
			return nil
		},
	}
	listCmd.Flags().String("level", "", "Only list this level")

	catalogCmd.AddCommand(validateCmd, listCmd)
	return catalogCmd
}
