package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/conneroisu/jsplus/internal/build"
	"github.com/conneroisu/jsplus/internal/config"
	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/minify"
)

// app holds the services every bundling command shares.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	bundler  *build.Bundler
}

func newApp(cfg *config.Config, logOutput io.Writer) (*app, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: logOutput,
	})

	chain, err := minify.New(logger.WithComponent("minify"), cfg.MinifyOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create minifier chain: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []build.BundlerOption{
		build.WithMetrics(build.NewBuildMetrics(registry)),
	}
	if cfg.Bundle.CopyConcurrency > 0 {
		opts = append(opts, build.WithCopyConcurrency(cfg.Bundle.CopyConcurrency))
	}
	if cfg.Minify.CacheSize > 0 {
		opts = append(opts, build.WithCache(build.NewMinifyCache(cfg.Minify.CacheSize, cfg.Minify.CacheTTL)))
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		bundler:  build.NewBundler(logger, chain, opts...),
	}, nil
}

// build runs one bundling session and logs its outcome.
func (a *app) build(ctx context.Context) (*build.Result, error) {
	result, err := a.bundler.Run(ctx, a.cfg.BuildOptions())
	if err != nil {
		return result, err
	}

	for _, assetErr := range result.AssetErrors {
		a.logger.Warn(ctx, assetErr, "Asset not copied")
	}
	a.logger.Info(ctx, "Build complete",
		"bundles", len(result.Bundles),
		"assets", len(result.Assets),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// outputDir is the directory bundles are written into.
func (a *app) outputDir() string {
	return a.cfg.Bundle.OutputDirectory()
}
