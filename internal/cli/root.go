// Package cli provides the command-line interface of the documentation tools.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Execute creates and runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "luadoc",
		Short: "Generate documentation bundles from Lua doc comments",
		Long: `Extracts documentation from --[=[ ]=] and --- doc comments in Lua and
Luau sources and emits content-addressed JSON bundles for a static
documentation front end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	logger := func() *zap.Logger { return newLogger(verbose) }

	rootCmd.AddCommand(newExtractCommand(logger))
	rootCmd.AddCommand(newBuildCommand(logger))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newServeCommand(logger))

	return rootCmd
}

// newLogger builds a console logger writing to stderr. Warnings are always
// shown; debug output only with verbose.
func newLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true
	config.DisableCaller = true
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
