package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsplus/internal/build"
)

var buildCmd = &cobra.Command{
	Use:     "build [entry]",
	Aliases: []string{"b"},
	Short:   "Bundle an entry module once",
	Long: `Bundle an entry module and everything it imports. Modules imported through
<HTTP> or <HTTPS> are written as separate headless bundles next to the main
bundle, and a jsplus-manifest.json lists every output with its integrity hash.

Examples:
  jsplus build                          # Bundle bundle.entry from .jsplus.yml
  jsplus build src/index.js             # Bundle src/index.js into dist/index.js
  jsplus build -o public/app.js         # Choose the output file
  jsplus build --host https://cdn.test  # Fetch separated bundles from a CDN
  jsplus build --tiers esbuild          # Minify in-process only
  jsplus build --clean                  # Empty the output directory first`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

var buildClean bool

func init() {
	rootCmd.AddCommand(buildCmd)

	addBundleFlags(buildCmd)
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove the output directory before building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, bundleFlagBindings)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if buildClean {
		if err := cleanOutput(a.outputDir(), cfg.Bundle.Entry); err != nil {
			return err
		}
	}

	result, err := a.build(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	printResult(cmd, a.outputDir(), result)
	return nil
}

// cleanOutput removes dir unless it holds the entry module or is the working
// directory.
func cleanOutput(dir, entry string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	absEntry, err := filepath.Abs(entry)
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if absDir == cwd || absDir == filepath.Dir(absDir) {
		return fmt.Errorf("refusing to clean %s", absDir)
	}
	if rel, err := filepath.Rel(absDir, absEntry); err == nil && filepath.IsLocal(rel) {
		return fmt.Errorf("refusing to clean %s: it contains the entry module", absDir)
	}

	return os.RemoveAll(absDir)
}

func printResult(cmd *cobra.Command, outputDir string, result *build.Result) {
	out := cmd.OutOrStdout()

	for _, info := range result.Bundles {
		name := info.Path
		if rel, err := filepath.Rel(outputDir, info.Path); err == nil {
			name = rel
		}
		kind := "bundle"
		if !info.Runtime {
			kind = "headless"
		}
		fmt.Fprintf(out, "  %-40s %8s  %-8s %s\n", name, formatSize(info.Size), kind, info.Minifier)
	}
	if len(result.Assets) > 0 {
		fmt.Fprintf(out, "  %d asset(s) copied\n", len(result.Assets))
	}
	if len(result.AssetErrors) > 0 {
		fmt.Fprintf(out, "  %d asset(s) failed\n", len(result.AssetErrors))
	}
	fmt.Fprintf(out, "Built %d bundle(s) in %v\n", len(result.Bundles), result.Duration.Round(time.Millisecond))
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
