package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/luadoc-gen/internal/bundle"
	"github.com/example/luadoc-gen/internal/validator"
)

func newBuildCommand(logger func() *zap.Logger) *cobra.Command {
	config := Config{}
	var watch bool

	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Extract documentation and emit content-addressed bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepareConfig(cmd, &config, args); err != nil {
				return err
			}
			log := logger()
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := runBuild(ctx, &config, log, cmd.OutOrStdout()); err != nil {
				if !watch {
					return err
				}
				log.Error("build failed", zap.Error(err))
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchSources(ctx, config.Code, log, func() {
				if err := runBuild(ctx, &config, log, cmd.OutOrStdout()); err != nil {
					log.Error("rebuild failed", zap.Error(err))
				}
			})
		},
	}

	addSourceFlags(cmd, &config)
	cmd.Flags().StringVarP(&config.Output, "output", "o", defaultOutput, "Directory the bundles are written to")
	cmd.Flags().StringVar(&config.Namespace, "namespace", defaultNamespace, "Loader chunk namespace")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild whenever a source file changes")
	return cmd
}

// runBuild runs one full documentation build: extract, validate, emit.
func runBuild(ctx context.Context, config *Config, logger *zap.Logger, out io.Writer) error {
	modules, diagnostics, err := extractModules(ctx, config, logger)
	if err != nil {
		return err
	}
	if err := validator.ValidateModules(modules); err != nil {
		return fmt.Errorf("documentation records are invalid: %w", err)
	}

	emitter := bundle.NewEmitter(config.Output)
	emitter.SetNamespace(config.Namespace)
	emitter.SetLogger(logger)
	res, err := emitter.Emit(modules)
	if err != nil {
		return fmt.Errorf("failed to emit bundles: %w", err)
	}

	functions := 0
	for _, m := range modules {
		functions += len(m.Functions)
	}
	fmt.Fprintf(out, "Documentation bundles generated successfully: %s\n", config.Output)
	fmt.Fprintf(out, "Summary: %d modules, %d functions, %d warnings, %s (%d written, %d unchanged, %d removed)\n",
		len(modules), functions, len(diagnostics), humanize.Bytes(uint64(res.Bytes)),
		len(res.Written), len(res.Unchanged), len(res.Removed))
	return nil
}
