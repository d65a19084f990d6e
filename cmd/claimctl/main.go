package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimflow/internal/config"
)

var cfg *config.AppConfig

var rootCmd = &cobra.Command{
	Use:          "claimctl",
	Short:        "Operate the claim processing pipeline",
	Long:         "Administers business rules, runs eligibility analyses and records manual claim decisions against the claimflow database.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if os.Getenv("DB_APPLICATION_NAME") == "" {
			cfg.Database.AppName = "claimctl"
		}

		// CLI output goes to stdout; keep logs quiet unless asked for.
		if os.Getenv("LOG_LEVEL") == "" {
			cfg.Log.Level = "warn"
		}
		if _, err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
