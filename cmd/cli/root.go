package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "report-cli",
		Short: "Generate and manage photo reports (.docx) from the command line",
		Long: `report-cli runs the same report pipeline as the HTTP server against local files.

Configuration is read from config.yaml in --config (default: current directory)
and REPORT_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env 不存在时忽略
			_ = godotenv.Load()
			if cmd.Name() == "init-config" {
				return nil
			}
			if err := config.LoadConfig(configDir); err != nil {
				return err
			}
			return logger.InitLogger(config.C.Logger)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory containing config.yaml")

	cmd.AddCommand(
		newGenerateCmd(),
		newListCmd(),
		newDeleteCmd(),
		newManifestCmd(),
		newSweepCmd(),
		newInitConfigCmd(),
	)
	return cmd
}
