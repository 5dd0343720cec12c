package build

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMetrics_RecordBuild(t *testing.T) {
	metrics := NewBuildMetrics(nil)

	assert.Equal(t, MetricsSnapshot{}, metrics.GetSnapshot())
	assert.Equal(t, 0.0, metrics.GetSuccessRate())

	metrics.RecordBuild(BuildRecord{
		Duration:  100 * time.Millisecond,
		Bundles:   2,
		Modules:   5,
		Separated: 1,
		Assets:    3,
		CacheHits: 1,
		Minifiers: map[string]int{"esbuild": 2},
	})
	metrics.RecordBuild(BuildRecord{
		Duration:      300 * time.Millisecond,
		Error:         errors.New("entry missing"),
		AssetFailures: 1,
	})

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snap.TotalBuilds)
	assert.Equal(t, int64(1), snap.SuccessfulBuilds)
	assert.Equal(t, int64(1), snap.FailedBuilds)
	assert.Equal(t, int64(2), snap.Bundles)
	assert.Equal(t, int64(5), snap.Modules)
	assert.Equal(t, int64(1), snap.Separated)
	assert.Equal(t, int64(3), snap.AssetsCopied)
	assert.Equal(t, int64(1), snap.AssetFailures)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, 400*time.Millisecond, snap.TotalDuration)
	assert.Equal(t, 200*time.Millisecond, snap.AverageDuration)
	assert.Equal(t, 50.0, metrics.GetSuccessRate())

	metrics.Reset()
	assert.Equal(t, MetricsSnapshot{}, metrics.GetSnapshot())
}

func TestBuildMetrics_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewBuildMetrics(reg)

	metrics.RecordBuild(BuildRecord{
		Duration:      time.Second,
		Bundles:       3,
		Modules:       7,
		Assets:        2,
		AssetFailures: 1,
		CacheHits:     2,
		Minifiers:     map[string]int{"terser": 2, "passthrough": 1},
		Degraded:      1,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.builds.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.builds.WithLabelValues("failure")))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.modules))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.bundles))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.assets.WithLabelValues("copied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.assets.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.minifications.WithLabelValues("terser")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.cacheHits))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "jsplus_builds_total")
	assert.Contains(t, names, "jsplus_build_duration_seconds")

	// a second tracker on its own registry must not collide
	assert.NotPanics(t, func() { NewBuildMetrics(prometheus.NewRegistry()) })
}

func TestBuildMetrics_Concurrent(t *testing.T) {
	metrics := NewBuildMetrics(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordBuild(BuildRecord{Duration: time.Millisecond, Bundles: 1})
			_ = metrics.GetSnapshot()
		}()
	}
	wg.Wait()

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(50), snap.TotalBuilds)
	assert.Equal(t, int64(50), snap.Bundles)
	assert.Equal(t, 100.0, metrics.GetSuccessRate())
}
