package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCfg struct {
	verbose bool
	jsonLog bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "smithygen",
		Short:         "Generate Rust crates from Smithy models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := setupLogger()
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&rootCfg.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&rootCfg.jsonLog, "json-log", false, "Log as JSON")

	root.AddCommand(newGenerateCmd(), newSymbolsCmd(), newDecoratorsCmd())
	return root
}

func setupLogger() (*zap.Logger, error) {
	var zapCfg zap.Config
	if rootCfg.verbose {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if rootCfg.jsonLog {
		zapCfg.Encoding = "json"
	}
	return zapCfg.Build()
}
