// Package config provides configuration management for jsplus using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration is read from .jsplus.yml, overridden by JSPLUS_ prefixed
// environment variables (JSPLUS_BUNDLE_ENTRY, JSPLUS_SERVE_PORT, ...) and
// finally by flags bound to the same keys. It covers the bundle record, the
// minifier chain, the watcher, the development server and logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/jsplus/internal/build"
	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/graph"
	"github.com/conneroisu/jsplus/internal/minify"
)

// FileName is the default configuration file name.
const FileName = ".jsplus.yml"

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "JSPLUS"

// DefaultOutputDir receives bundles when neither output nor output_dir is set.
const DefaultOutputDir = "dist"

type Config struct {
	Bundle BundleConfig `yaml:"bundle" mapstructure:"bundle"`
	Minify MinifyConfig `yaml:"minify" mapstructure:"minify"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Serve  ServeConfig  `yaml:"serve" mapstructure:"serve"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

type BundleConfig struct {
	Entry  string `yaml:"entry" mapstructure:"entry"`
	Output string `yaml:"output,omitempty" mapstructure:"output"`
	// OutputDir receives separated bundles, and index.js when Output is
	// empty. Empty means the directory of Output, else DefaultOutputDir.
	OutputDir string `yaml:"output_dir,omitempty" mapstructure:"output_dir"`
	// Host is the origin separated bundles are fetched from; empty means the
	// page location.
	Host            string `yaml:"host,omitempty" mapstructure:"host"`
	Namespace       string `yaml:"namespace" mapstructure:"namespace"`
	Runtime         bool   `yaml:"runtime" mapstructure:"runtime"`
	Manifest        bool   `yaml:"manifest" mapstructure:"manifest"`
	CopyConcurrency int    `yaml:"copy_concurrency" mapstructure:"copy_concurrency"`
}

type MinifyConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Tiers             []string      `yaml:"tiers" mapstructure:"tiers"`
	AutoInstallTerser bool          `yaml:"auto_install_terser" mapstructure:"auto_install_terser"`
	RemoteEndpoint    string        `yaml:"remote_endpoint" mapstructure:"remote_endpoint"`
	RemoteTimeout     time.Duration `yaml:"remote_timeout" mapstructure:"remote_timeout"`
	CacheSize         int64         `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

type WatchConfig struct {
	// Paths are watched recursively. Empty means the entry's directory.
	Paths    []string      `yaml:"paths" mapstructure:"paths"`
	Ignore   []string      `yaml:"ignore" mapstructure:"ignore"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type ServeConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Metrics        bool     `yaml:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SetDefaults registers the default of every key with v, which also makes
// every key visible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bundle.entry", "")
	v.SetDefault("bundle.output", "")
	v.SetDefault("bundle.output_dir", "")
	v.SetDefault("bundle.host", "")
	v.SetDefault("bundle.namespace", build.DefaultNamespace)
	v.SetDefault("bundle.runtime", true)
	v.SetDefault("bundle.manifest", true)
	v.SetDefault("bundle.copy_concurrency", graph.DefaultCopyConcurrency)

	v.SetDefault("minify.enabled", true)
	v.SetDefault("minify.tiers", minify.DefaultTiers)
	v.SetDefault("minify.auto_install_terser", false)
	v.SetDefault("minify.remote_endpoint", minify.DefaultRemoteEndpoint)
	v.SetDefault("minify.remote_timeout", 30*time.Second)
	v.SetDefault("minify.cache_size", 64<<20)
	v.SetDefault("minify.cache_ttl", time.Hour)

	v.SetDefault("watch.paths", []string{})
	v.SetDefault("watch.ignore", []string{"**/node_modules/**", "**/.git/**"})
	v.SetDefault("watch.debounce", 300*time.Millisecond)

	v.SetDefault("serve.host", "localhost")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.allowed_origins", []string{})
	v.SetDefault("serve.metrics", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &cfg, nil
}

// OutputDirectory returns the directory bundles are written into. Separated
// bundles land next to the main bundle unless output_dir says otherwise.
func (b BundleConfig) OutputDirectory() string {
	switch {
	case b.OutputDir != "":
		return b.OutputDir
	case b.Output != "":
		return filepath.Dir(b.Output)
	default:
		return DefaultOutputDir
	}
}

// BuildOptions converts the bundle section into bundler options.
func (c *Config) BuildOptions() build.Options {
	return build.Options{
		Host:            c.Bundle.Host,
		EntryFile:       c.Bundle.Entry,
		OutputFile:      c.Bundle.Output,
		OutputDirectory: c.Bundle.OutputDirectory(),
		Namespace:       c.Bundle.Namespace,
		IncludeRuntime:  c.Bundle.Runtime,
		Manifest:        c.Bundle.Manifest,
	}
}

// MinifyOptions converts the minify section into chain options. A disabled
// minifier yields no tiers.
func (c *Config) MinifyOptions() minify.Options {
	opts := minify.Options{
		AutoInstallTerser: c.Minify.AutoInstallTerser,
		RemoteEndpoint:    c.Minify.RemoteEndpoint,
		RemoteTimeout:     c.Minify.RemoteTimeout,
	}
	if c.Minify.Enabled {
		opts.Tiers = c.Minify.Tiers
	}
	return opts
}

// WriteFile writes c as YAML. Existing files are only replaced when
// overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	humanizeDurations(&doc)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeOutputWrite, "failed to write config", path)
	}
	return nil
}

// durationKeys are written as duration strings instead of nanoseconds.
var durationKeys = map[string]bool{
	"remote_timeout": true,
	"cache_ttl":      true,
	"debounce":       true,
}

func humanizeDurations(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if !durationKeys[key.Value] || value.Kind != yaml.ScalarNode {
				continue
			}
			if ns, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
				value.Value = time.Duration(ns).String()
				value.Tag = "!!str"
			}
		}
	}
	for _, child := range n.Content {
		humanizeDurations(child)
	}
}
