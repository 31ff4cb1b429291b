package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/platform/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "learnctl",
		Short:        "Curriculum and adaptive engine tooling",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logger := config.LogConfig{Level: level, Format: "text"}.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)
		},
	}

	root.PersistentFlags().String("path", "", "Curriculum directory (defaults to LEARN_CURRICULUM_PATH, then the embedded catalog)")
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(newCatalogCmd())
	root.AddCommand(newDemoCmd())
	return root
}

// loadCatalog resolves the catalog from --path, then LEARN_CURRICULUM_PATH,
// then the embedded default.
func loadCatalog(cmd *cobra.Command) (*curriculum.Catalog, error) {
	dir, _ := cmd.Flags().GetString("path")
	if dir == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		dir = cfg.Curriculum.Path
	}
	if dir == "" {
		return curriculum.Default()
	}
	return curriculum.LoadDir(dir)
}
