package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/jsplus/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jsplus",
	Short: "A source-to-source JavaScript bundler with network-separated modules",
	Long: `jsplus rewrites ES module syntax into loader calls and bundles a module graph
into a single file with an embedded runtime. Modules imported through the
<HTTP> or <HTTPS> namespace are split into their own bundles and fetched by
the runtime on first use.

Quick Start:
  jsplus init                     Write a default .jsplus.yml
  jsplus build src/index.js       Bundle once
  jsplus watch                    Rebuild on change
  jsplus serve                    Rebuild and serve with live reload

Command Aliases:
  build (b), watch (w), serve (s)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .jsplus.yml, can also use JSPLUS_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig points viper at the configuration file and environment.
//
// The file is chosen by, in order: the --config flag, JSPLUS_CONFIG_FILE, or
// .jsplus.yml in the current directory. Every key can be overridden with a
// JSPLUS_ variable, such as JSPLUS_BUNDLE_ENTRY or JSPLUS_SERVE_PORT.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.FileName, ".yml"))
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// a missing file leaves the defaults in place
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
