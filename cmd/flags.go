package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/jsplus/internal/config"
)

// flagBinding maps a command line flag onto a configuration key. Inverted
// bindings serve --no-x flags of boolean keys.
type flagBinding struct {
	flag   string
	key    string
	invert bool
}

var rootFlagBindings = []flagBinding{
	{flag: "log-level", key: "log.level"},
	{flag: "log-format", key: "log.format"},
}

var bundleFlagBindings = []flagBinding{
	{flag: "entry", key: "bundle.entry"},
	{flag: "output", key: "bundle.output"},
	{flag: "output-dir", key: "bundle.output_dir"},
	{flag: "host", key: "bundle.host"},
	{flag: "namespace", key: "bundle.namespace"},
	{flag: "no-runtime", key: "bundle.runtime", invert: true},
	{flag: "no-manifest", key: "bundle.manifest", invert: true},
	{flag: "no-minify", key: "minify.enabled", invert: true},
	{flag: "tiers", key: "minify.tiers"},
}

var serveFlagBindings = []flagBinding{
	{flag: "port", key: "serve.port"},
	{flag: "bind", key: "serve.host"},
}

func addBundleFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("entry", "e", "", "Entry module")
	cmd.Flags().StringP("output", "o", "", "Output bundle file")
	cmd.Flags().StringP("output-dir", "d", "", "Output directory (default: directory of --output, else dist)")
	cmd.Flags().String("host", "", "Origin separated bundles are fetched from (default: page origin)")
	cmd.Flags().String("namespace", "", "Prefix replacing the source directory in module ids (default &/)")
	cmd.Flags().Bool("no-runtime", false, "Emit a headless bundle for an installed runtime")
	cmd.Flags().Bool("no-manifest", false, "Skip writing jsplus-manifest.json")
	cmd.Flags().Bool("no-minify", false, "Write unminified bundles")
	cmd.Flags().StringSlice("tiers", nil, "Minifier tiers in the order they are tried (terser, esbuild, tdewolff, remote)")
}

// applyFlags copies every flag the user set into viper, overriding the file
// and environment.
func applyFlags(cmd *cobra.Command, bindings ...[]flagBinding) error {
	for _, group := range bindings {
		for _, b := range group {
			f := cmd.Flags().Lookup(b.flag)
			if f == nil || !f.Changed {
				continue
			}

			switch f.Value.Type() {
			case "bool":
				v, err := cmd.Flags().GetBool(b.flag)
				if err != nil {
					return err
				}
				viper.Set(b.key, v != b.invert)
			case "int":
				v, err := cmd.Flags().GetInt(b.flag)
				if err != nil {
					return err
				}
				viper.Set(b.key, v)
			case "stringSlice":
				v, err := cmd.Flags().GetStringSlice(b.flag)
				if err != nil {
					return err
				}
				viper.Set(b.key, v)
			default:
				viper.Set(b.key, f.Value.String())
			}
		}
	}
	return nil
}

// loadConfig applies flags and an optional positional entry, then loads and
// validates the configuration.
func loadConfig(cmd *cobra.Command, args []string, bindings ...[]flagBinding) (*config.Config, error) {
	if err := applyFlags(cmd, append([][]flagBinding{rootFlagBindings}, bindings...)...); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		viper.Set("bundle.entry", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
