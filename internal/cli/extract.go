package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/example/luadoc-gen/internal/generator"
)

func newExtractCommand(logger func() *zap.Logger) *cobra.Command {
	config := Config{}

	cmd := &cobra.Command{
		Use:   "extract [paths...]",
		Short: "Print the documentation records of Lua sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepareConfig(cmd, &config, args); err != nil {
				return err
			}
			log := logger()
			defer func() { _ = log.Sync() }()

			modules, _, err := extractModules(cmd.Context(), &config, log)
			if err != nil {
				return err
			}
			return writeRecords(cmd.OutOrStdout(), modules, &config)
		},
	}

	addSourceFlags(cmd, &config)
	cmd.Flags().StringVarP(&config.Output, "output", "o", "-", "Output file path or '-' for stdout")
	cmd.Flags().StringVarP(&config.Format, "format", "f", defaultFormat, "Output format (json or yaml)")
	return cmd
}

// addSourceFlags registers the flags that select and interpret sources.
func addSourceFlags(cmd *cobra.Command, config *Config) {
	cmd.Flags().StringSliceVarP(&config.Code, "code", "c", []string{"."}, "Source directories or files to scan for doc comments")
	cmd.Flags().StringVar(&config.Root, "root", ".", "Repository root that source paths are reported relative to")
	cmd.Flags().StringVar(&config.ConfigPath, "config", "", "Path to a .luadoc.yml or luadoc.toml config file")
	cmd.Flags().BoolVar(&config.Strict, "strict", false, "Fail when any warning is reported")
	cmd.Flags().StringSliceVar(&config.ExternalTypes, "external", nil, "Type names to treat as defined elsewhere")
	cmd.Flags().IntVar(&config.Workers, "workers", defaultWorkers, "Number of files read concurrently")
}

// prepareConfig merges positional arguments and the config file into config.
func prepareConfig(cmd *cobra.Command, config *Config, args []string) error {
	// Only use positional arguments if no code flag was provided
	if len(args) > 0 && !cmd.Flags().Changed("code") {
		config.Code = args
	}
	if config.ConfigPath == "" {
		config.ConfigPath = findConfigFile(".")
	}
	return loadConfigFile(config, changedWithArgs(cmd, args))
}

// changedWithArgs reports "code" as set when sources were given positionally.
func changedWithArgs(cmd *cobra.Command, args []string) func(string) bool {
	return func(flag string) bool {
		if flag == "code" && len(args) > 0 {
			return true
		}
		return cmd.Flags().Changed(flag)
	}
}

// extractModules runs the extractor over the configured sources.
func extractModules(ctx context.Context, config *Config, logger *zap.Logger) ([]generator.ModuleDoc, []generator.Diagnostic, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	gen := generator.New(config.Root)
	gen.SetLogger(logger)
	gen.SetWorkers(config.Workers)
	for _, name := range config.ExternalTypes {
		gen.RegisterExternalType(name)
	}

	var dirs, files []string
	for _, path := range config.Code {
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, &generator.IOError{Path: path, Err: err}
		}
		if info.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
	}
	if err := gen.ParseDirectories(ctx, dirs); err != nil {
		return nil, nil, err
	}
	if len(files) > 0 {
		if err := gen.ParseFiles(ctx, files); err != nil {
			return nil, nil, err
		}
	}

	modules := gen.Generate()
	diagnostics := gen.Diagnostics()
	logger.Debug("extracted documentation",
		zap.Int("modules", len(modules)),
		zap.Int("warnings", len(diagnostics)),
	)
	if config.Strict && len(diagnostics) > 0 {
		return nil, diagnostics, fmt.Errorf("%w: %d warnings", generator.ErrWarningsPresent, len(diagnostics))
	}
	return modules, diagnostics, nil
}

// writeRecords writes the records to the configured output in JSON or YAML.
func writeRecords(stdout io.Writer, modules []generator.ModuleDoc, config *Config) error {
	if modules == nil {
		modules = []generator.ModuleDoc{}
	}

	var buf bytes.Buffer
	switch strings.ToLower(config.Format) {
	case "json":
		encoder := json.NewEncoder(&buf)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(modules); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "yaml", "yml":
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(modules); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s (use json or yaml)", config.Format)
	}

	if config.Output == "-" || config.Output == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(config.Output), 0o755); err != nil {
		return &generator.IOError{Path: config.Output, Err: err}
	}
	if err := os.WriteFile(config.Output, buf.Bytes(), 0o644); err != nil {
		return &generator.IOError{Path: config.Output, Err: err}
	}
	return nil
}
