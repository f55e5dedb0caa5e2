package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/draftscan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "draftscan",
	Short: "Find unpolished draft prose in LaTeX sources",
	Long:  "Diffs LaTeX files against their last saved baseline, scores the added text for how much it reads like rough prose, and reports draft regions ready for rewriting.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
