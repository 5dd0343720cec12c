package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jsplus/internal/build"
	"github.com/conneroisu/jsplus/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [entry]",
	Aliases: []string{"w"},
	Short:   "Rebuild whenever a bundle source changes",
	Long: `Bundle once, then watch the source tree and rebuild after every change.
Changes are debounced so one save touching several files triggers one
rebuild. The output directory and watch.ignore globs are not watched.

Examples:
  jsplus watch                    # Watch the entry module's directory
  jsplus watch src/index.js       # Watch and bundle src/index.js`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addBundleFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, bundleFlagBindings)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fw, err := a.watch(ctx, nil)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	return nil
}

// watchRoots returns the directories to watch: watch.paths, or the entry
// module's directory.
func (a *app) watchRoots() []string {
	if len(a.cfg.Watch.Paths) > 0 {
		return a.cfg.Watch.Paths
	}
	return []string{filepath.Dir(a.cfg.Bundle.Entry)}
}

// watch builds once and rebuilds on every debounced change until ctx is
// done. onBuild, when set, is called after each build with its outcome.
func (a *app) watch(ctx context.Context, onBuild func(*build.Result, error)) (*watcher.FileWatcher, error) {
	rebuild := func(ctx context.Context) error {
		result, err := a.build(ctx)
		if err != nil {
			a.logger.Error(ctx, err, "Build failed")
		}
		if onBuild != nil {
			onBuild(result, err)
		}
		return err
	}

	// a failing first build still starts watching so the fix is picked up
	_ = rebuild(ctx)

	fw, err := watcher.NewFileWatcher(a.logger, a.cfg.Watch.Debounce)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.SourceFilter)
	fw.AddFilter(watcher.OutsideFilter(a.outputDir()))

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, event := range events {
			a.logger.Debug(ctx, "File changed", "path", event.Path, "type", event.Type.String())
		}
		a.logger.Info(ctx, "Rebuilding", "changes", len(events))
		return rebuild(ctx)
	})

	for _, root := range a.watchRoots() {
		ignore := watcher.IgnoreFilter(root, a.cfg.Watch.Ignore)
		fw.AddFilter(ignore)

		skip := func(path string) bool {
			return !ignore(path) || !watcher.OutsideFilter(a.outputDir())(path)
		}
		if err := fw.AddRecursive(root, skip); err != nil {
			fw.Stop()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
		a.logger.Info(ctx, "Watching", "path", root)
	}

	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}
	return fw, nil
}
