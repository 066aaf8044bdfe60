package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default flag values.
const (
	defaultOutput    = "build/assets/js"
	defaultFormat    = "json"
	defaultWorkers   = 8
	defaultNamespace = "docs"
)

// Config holds configuration shared by the documentation commands.
type Config struct {
	Code          []string
	Root          string
	Output        string
	Namespace     string
	Format        string
	Strict        bool
	ExternalTypes []string
	Workers       int
	ConfigPath    string
}

// fileConfig is the on-disk layout of .luadoc.yml and luadoc.toml.
type fileConfig struct {
	Luadoc struct {
		Code          []string `yaml:"code" toml:"code"`
		Root          string   `yaml:"root" toml:"root"`
		Output        string   `yaml:"output" toml:"output"`
		Namespace     string   `yaml:"namespace" toml:"namespace"`
		Strict        bool     `yaml:"strict" toml:"strict"`
		ExternalTypes []string `yaml:"externalTypes" toml:"externalTypes"`
	} `yaml:"luadoc" toml:"luadoc"`
}

// loadConfigFile applies values from the config file to every setting whose
// flag was not set explicitly. changed reports whether a flag was set.
func loadConfigFile(config *Config, changed func(flag string) bool) error {
	if config.ConfigPath == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Clean(config.ConfigPath))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	switch strings.ToLower(filepath.Ext(config.ConfigPath)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s (use .yml, .yaml or .toml)", config.ConfigPath)
	}

	file := cfg.Luadoc
	if !changed("code") && len(file.Code) > 0 {
		config.Code = file.Code
	}
	if !changed("root") && file.Root != "" {
		config.Root = file.Root
	}
	if !changed("output") && file.Output != "" {
		config.Output = file.Output
	}
	if !changed("namespace") && file.Namespace != "" {
		config.Namespace = file.Namespace
	}
	if !changed("strict") && file.Strict {
		config.Strict = true
	}
	config.ExternalTypes = append(config.ExternalTypes, file.ExternalTypes...)

	// Relative paths in the file are relative to the file itself.
	base := filepath.Dir(config.ConfigPath)
	if !changed("code") {
		for i, c := range config.Code {
			if !filepath.IsAbs(c) {
				config.Code[i] = filepath.Join(base, c)
			}
		}
	}
	if !changed("root") && file.Root != "" && !filepath.IsAbs(config.Root) {
		config.Root = filepath.Join(base, config.Root)
	}
	if !changed("output") && file.Output != "" && !filepath.IsAbs(config.Output) {
		config.Output = filepath.Join(base, config.Output)
	}
	return nil
}

// findConfigFile looks for a config file in dir.
func findConfigFile(dir string) string {
	for _, name := range []string{".luadoc.yml", ".luadoc.yaml", "luadoc.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
