package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsplus/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .jsplus.yml",
	Long: `Write a .jsplus.yml holding every configuration key with its default value.
With --example, also write a small entry module that imports a local module
and a network-separated one.

Examples:
  jsplus init                         # Config for src/index.js
  jsplus init --entry app/main.js     # Config for another entry
  jsplus init --example               # Config plus example sources
  jsplus init --force                 # Overwrite an existing config`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initEntry   string
	initExample bool
	initForce   bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initEntry, "entry", "e", "src/index.js", "Entry module")
	initCmd.Flags().BoolVar(&initExample, "example", false, "Write example sources")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

// exampleSources are written relative to the entry module's directory.
var exampleSources = map[string]string{
	"index.js": `import { greet } from "./greet.js";
import("./widget.js").then((widget) => widget.mount(document.body));

console.log(greet("jsplus"));
`,
	"greet.js": `export function greet(name) {
  return "Hello, " + name + "!";
}
`,
	"widget.js": `export function mount(parent) {
  const el = document.createElement("p");
  el.textContent = "Loaded on demand";
  parent.appendChild(el);
}
`,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.FileName
	if cfgFile != "" {
		path = cfgFile
	}

	cfg := config.Default()
	cfg.Bundle.Entry = filepath.ToSlash(initEntry)

	if err := cfg.WriteFile(path, initForce); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

	if !initExample {
		return nil
	}

	dir := filepath.Dir(initEntry)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for name, content := range exampleSources {
		file := filepath.Join(dir, name)
		if name == "index.js" {
			file = initEntry
		}
		if _, err := os.Stat(file); err == nil && !initForce {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s (exists)\n", file)
			continue
		}
		if err := os.WriteFile(file, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
	}
	return nil
}
