package build

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BuildRecord describes one finished bundling run.
type BuildRecord struct {
	Duration      time.Duration
	Error         error
	Bundles       int
	Modules       int
	Separated     int
	Assets        int
	AssetFailures int
	CacheHits     int
	// Minifiers counts bundles per tier that produced them.
	Minifiers map[string]int
	Degraded  int
}

// MetricsSnapshot is a point-in-time copy of BuildMetrics.
type MetricsSnapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	Bundles          int64
	Modules          int64
	Separated        int64
	AssetsCopied     int64
	AssetFailures    int64
	CacheHits        int64
	Degraded         int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
}

// BuildMetrics tracks bundling runs and mirrors them to Prometheus.
type BuildMetrics struct {
	snapshot MetricsSnapshot
	mutex    sync.RWMutex

	builds        *prometheus.CounterVec
	duration      prometheus.Histogram
	modules       prometheus.Counter
	bundles       prometheus.Counter
	assets        *prometheus.CounterVec
	minifications *prometheus.CounterVec
	cacheHits     prometheus.Counter
}

// NewBuildMetrics creates a metrics tracker. Collectors are registered with
// reg; a nil reg keeps them unregistered.
func NewBuildMetrics(reg prometheus.Registerer) *BuildMetrics {
	factory := promauto.With(reg)

	return &BuildMetrics{
		builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsplus_builds_total",
				Help: "Total number of bundling runs",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jsplus_build_duration_seconds",
				Help:    "Bundling run latency in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		modules: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jsplus_modules_bundled_total",
				Help: "Total number of modules serialized into bundles",
			},
		),
		bundles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jsplus_bundles_written_total",
				Help: "Total number of bundle files written",
			},
		),
		assets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsplus_assets_total",
				Help: "Total number of asset copies",
			},
			[]string{"status"},
		),
		minifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsplus_minifications_total",
				Help: "Total number of minified bundles by producing tier",
			},
			[]string{"tier"},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jsplus_minify_cache_hits_total",
				Help: "Total number of bundles served from the minify cache",
			},
		),
	}
}

// RecordBuild records a run in the metrics.
func (bm *BuildMetrics) RecordBuild(r BuildRecord) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	s := &bm.snapshot
	s.TotalBuilds++
	s.TotalDuration += r.Duration
	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)
	s.Bundles += int64(r.Bundles)
	s.Modules += int64(r.Modules)
	s.Separated += int64(r.Separated)
	s.AssetsCopied += int64(r.Assets)
	s.AssetFailures += int64(r.AssetFailures)
	s.CacheHits += int64(r.CacheHits)
	s.Degraded += int64(r.Degraded)

	status := "success"
	if r.Error != nil {
		s.FailedBuilds++
		status = "failure"
	} else {
		s.SuccessfulBuilds++
	}

	bm.builds.WithLabelValues(status).Inc()
	bm.duration.Observe(r.Duration.Seconds())
	bm.modules.Add(float64(r.Modules))
	bm.bundles.Add(float64(r.Bundles))
	bm.assets.WithLabelValues("copied").Add(float64(r.Assets))
	bm.assets.WithLabelValues("failed").Add(float64(r.AssetFailures))
	bm.cacheHits.Add(float64(r.CacheHits))
	for tier, n := range r.Minifiers {
		bm.minifications.WithLabelValues(tier).Add(float64(n))
	}
}

// GetSnapshot returns a copy of the current metrics.
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return bm.snapshot
}

// Reset resets the in-memory counters. Prometheus collectors are cumulative
// and keep their values.
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	bm.snapshot = MetricsSnapshot{}
}

// GetSuccessRate returns the success rate as a percentage.
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.snapshot.TotalBuilds == 0 {
		return 0.0
	}

	return float64(bm.snapshot.SuccessfulBuilds) / float64(bm.snapshot.TotalBuilds) * 100.0
}
