package cmd

import (
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsplus/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve [entry]",
	Aliases: []string{"s"},
	Short:   "Rebuild on change and serve the output with live reload",
	Long: `Bundle, watch and serve the output directory. Pages served from the output
directory get a small client that reloads them after every successful
rebuild and prints build errors to the browser console. Separated bundles
are served from the same origin unless bundle.host is set.

Examples:
  jsplus serve                    # Serve on localhost:8080
  jsplus serve --port 3000        # Serve on another port
  jsplus serve --bind 0.0.0.0     # Listen on all interfaces`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addBundleFlags(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("bind", "localhost", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, bundleFlagBindings, serveFlagBindings)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outputDir := a.outputDir()
	entryBundle, err := filepath.Rel(outputDir, cfg.BuildOptions().OutputPath())
	if err != nil {
		entryBundle = filepath.Base(cfg.BuildOptions().OutputPath())
	}

	srv := server.New(cfg.Serve, outputDir, a.logger,
		server.WithGatherer(a.registry),
		server.WithEntryBundle(entryBundle),
	)

	fw, err := a.watch(ctx, srv.NotifyBuild)
	if err != nil {
		return err
	}
	defer fw.Stop()

	return srv.Start(ctx)
}
