// Package build drives a bundling run: it builds the module graph of an
// entry, assembles and minifies the bundle, writes it, and recursively
// bundles every network-separated module next to it.
package build

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/jsplus/internal/bundle"
	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/graph"
	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/minify"
)

// DefaultNamespace replaces the base directory in emitted bundles.
const DefaultNamespace = "&/"

// Options configures one bundling run.
type Options struct {
	// Host is embedded into the runtime as the origin of separated bundles.
	// Empty means the page location.
	Host       string
	EntryFile  string
	OutputFile string
	// OutputDirectory receives index.js when OutputFile is empty, and
	// separated bundles in any case.
	OutputDirectory string
	Namespace       string
	IncludeRuntime  bool
	// Manifest writes jsplus-manifest.json into the output directory, with
	// paths relative to it.
	Manifest bool
}

// DefaultOptions returns options with the runtime included and a manifest
// written.
func DefaultOptions() Options {
	return Options{
		Namespace:      DefaultNamespace,
		IncludeRuntime: true,
		Manifest:       true,
	}
}

// OutputPath returns the path the main bundle is written to.
func (o Options) OutputPath() string {
	out := o.OutputFile
	if out == "" {
		out = filepath.Join(o.OutputDirectory, "index.js")
	}
	return bundle.EnsureJSExtension(out)
}

func (o Options) validate() error {
	if strings.TrimSpace(o.EntryFile) == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "entry file is required")
	}
	if o.OutputFile == "" && o.OutputDirectory == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "output file or output directory is required")
	}
	if o.Namespace == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "namespace must not be empty")
	}
	return nil
}

// Session carries the state shared by a run and the runs it spawns for
// separated modules.
type Session struct {
	// baseDir is fixed by the first bundle of the session.
	baseDir string
	// outputRoot is where separated bundles are placed.
	outputRoot string
	visited    map[string]bool

	bundles     []BundleInfo
	assets      []graph.CopiedAsset
	assetErrors []error
	cacheHits   int
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{visited: make(map[string]bool)}
}

// BaseDir returns the directory replaced by the namespace, with a trailing
// slash. It is empty until the first bundle is built.
func (s *Session) BaseDir() string {
	return s.baseDir
}

// Result is the outcome of Run.
type Result struct {
	Bundles     []BundleInfo
	Assets      []graph.CopiedAsset
	AssetErrors []error
	// ManifestPath is empty when no manifest was written.
	ManifestPath string
	Duration     time.Duration
}

// Bundler runs bundling sessions.
type Bundler struct {
	logger          logging.Logger
	chain           *minify.Chain
	cache           *MinifyCache
	metrics         *BuildMetrics
	copyConcurrency int
}

// BundlerOption configures a Bundler.
type BundlerOption func(*Bundler)

// WithCache reuses minified output across runs.
func WithCache(cache *MinifyCache) BundlerOption {
	return func(b *Bundler) { b.cache = cache }
}

// WithMetrics records every run in metrics.
func WithMetrics(metrics *BuildMetrics) BundlerOption {
	return func(b *Bundler) { b.metrics = metrics }
}

// WithCopyConcurrency bounds simultaneous asset copies.
func WithCopyConcurrency(n int) BundlerOption {
	return func(b *Bundler) { b.copyConcurrency = n }
}

// NewBundler creates a bundler minifying with chain. A nil chain leaves
// bundles unminified.
func NewBundler(logger logging.Logger, chain *minify.Chain, opts ...BundlerOption) *Bundler {
	b := &Bundler{
		logger:          logger.WithComponent("bundler"),
		chain:           chain,
		copyConcurrency: graph.DefaultCopyConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = NewBuildMetrics(nil)
	}
	return b
}

// Metrics returns the metrics the bundler records into.
func (b *Bundler) Metrics() *BuildMetrics {
	return b.metrics
}

// Run bundles opts.EntryFile in a fresh session.
func (b *Bundler) Run(ctx context.Context, opts Options) (*Result, error) {
	return b.RunSession(ctx, NewSession(), opts)
}

// RunSession bundles opts.EntryFile within s. Separated modules are bundled
// recursively into the same session.
func (b *Bundler) RunSession(ctx context.Context, s *Session, opts Options) (*Result, error) {
	start := time.Now()
	perf := logging.StartOperation(b.logger, "bundle")

	err := b.run(ctx, s, opts)
	if err == nil && opts.Manifest {
		err = b.writeManifest(s, opts)
	}

	res := &Result{
		Bundles:     s.bundles,
		Assets:      s.assets,
		AssetErrors: s.assetErrors,
		Duration:    time.Since(start),
	}
	if err == nil && opts.Manifest {
		res.ManifestPath = filepath.Join(s.outputRoot, ManifestFile)
	}

	b.record(s, res, err)

	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	perf.End(ctx, "bundles", len(res.Bundles), "assets", len(res.Assets), "asset_errors", len(res.AssetErrors))

	return res, nil
}

func (b *Bundler) run(ctx context.Context, s *Session, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	outputFile := opts.OutputPath()
	if s.outputRoot == "" {
		s.outputRoot = opts.OutputDirectory
		if s.outputRoot == "" {
			s.outputRoot = filepath.Dir(outputFile)
		}
	}

	copier := graph.NewAssetCopier(b.logger, b.copyConcurrency)
	g, err := graph.NewBuilder(b.logger, copier).Build(ctx, opts.EntryFile, outputFile)
	if err != nil {
		copier.Wait()
		return err
	}

	entry := g.Entry()
	s.visited[entry.ID] = true
	if s.baseDir == "" {
		s.baseDir = path.Dir(entry.ID) + "/"
	}

	asm := &bundle.Assembler{Host: opts.Host}
	out, err := asm.Assemble(g, opts.EntryFile, opts.IncludeRuntime)
	if err != nil {
		copier.Wait()
		return err
	}

	placements := make(map[string]string, len(out.Separated))
	for _, n := range out.Separated {
		rel, err := s.placement(n)
		if err != nil {
			copier.Wait()
			return err
		}
		placements[n.ID] = rel
	}

	minified, hit, err := b.minify(ctx, out.Code)
	if err != nil {
		copier.Wait()
		return err
	}
	if hit {
		s.cacheHits++
	}

	code := strings.ReplaceAll(minified.Code, s.baseDir, opts.Namespace)

	if err := writeOutput(outputFile, code); err != nil {
		copier.Wait()
		return err
	}

	copied := copier.Wait()
	s.assets = append(s.assets, copied.Copied...)
	s.assetErrors = append(s.assetErrors, copied.Errors...)

	s.bundles = append(s.bundles, BundleInfo{
		Path:      outputFile,
		Entry:     entry.ID,
		Size:      int64(len(code)),
		Integrity: integrity([]byte(code)),
		Modules:   len(out.Modules),
		Runtime:   opts.IncludeRuntime,
		Minifier:  minified.Tier,
		Degraded:  minified.Degraded,
	})

	b.logger.Info(ctx, "Bundle written",
		"path", outputFile,
		"modules", len(out.Modules),
		"separated", len(out.Separated),
		"minifier", minified.Tier)

	for _, n := range out.Separated {
		if s.visited[n.ID] {
			continue
		}
		s.visited[n.ID] = true

		child := opts
		child.EntryFile = n.Filename
		child.OutputFile = filepath.Join(s.outputRoot, placements[n.ID])
		child.OutputDirectory = s.outputRoot
		child.IncludeRuntime = false

		if err := b.run(ctx, s, child); err != nil {
			return err
		}
	}

	return nil
}

// placement returns where the bundle of a separated module goes, relative to
// the output root. A module outside the base directory keeps an absolute id
// after namespace substitution, so the runtime could not fetch it.
func (s *Session) placement(n *graph.Node) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(s.baseDir), filepath.FromSlash(n.ID))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewBuildError(errors.ErrCodeAssembleFailed,
			"separated module "+n.ID+" is outside the base directory "+s.baseDir, err).WithPath(n.Filename)
	}
	return rel, nil
}

// minify runs src through the cache and chain. The bool reports a cache hit.
func (b *Bundler) minify(ctx context.Context, src string) (minify.Result, bool, error) {
	if b.chain == nil {
		return minify.Result{Code: src, Tier: minify.Passthrough}, false, nil
	}

	var key string
	if b.cache != nil {
		key = CacheKey(src, b.chain.Tiers())
		if code, tier, ok := b.cache.Get(key); ok {
			return minify.Result{Code: code, Tier: tier}, true, nil
		}
	}

	res, err := b.chain.Minify(ctx, src)
	if err != nil {
		return minify.Result{}, false, err
	}

	// degraded output is retried on the next run
	if b.cache != nil && !res.Degraded {
		b.cache.Set(key, res.Code, res.Tier)
	}

	return res, false, nil
}

func (b *Bundler) record(s *Session, res *Result, err error) {
	rec := BuildRecord{
		Duration:      res.Duration,
		Error:         err,
		Bundles:       len(s.bundles),
		Assets:        len(s.assets),
		AssetFailures: len(s.assetErrors),
		CacheHits:     s.cacheHits,
		Minifiers:     make(map[string]int),
	}
	if len(s.bundles) > 1 {
		rec.Separated = len(s.bundles) - 1
	}
	for _, info := range s.bundles {
		rec.Modules += info.Modules
		rec.Minifiers[info.Minifier]++
		if info.Degraded {
			rec.Degraded++
		}
	}

	b.metrics.RecordBuild(rec)
}

func writeOutput(file, code string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeOutputWrite, "failed to create output directory", file)
	}
	if err := os.WriteFile(file, []byte(code), 0644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeOutputWrite, "failed to write bundle", file)
	}
	return nil
}
