package errors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundlerErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *BundlerError
		contains []string
	}{
		{
			name:     "resolution error",
			err:      NewResolutionError("/src/missing.js"),
			contains: []string{ErrCodeModuleNotFound, "/src/missing.js", "module not found"},
		},
		{
			name:     "io error with cause",
			err:      NewIOError(ErrCodeSourceUnreadable, "cannot read source", fmt.Errorf("permission denied")),
			contains: []string{ErrCodeSourceUnreadable, "cannot read source", "permission denied"},
		},
		{
			name:     "path attached",
			err:      NewBuildError(ErrCodeEntryNotFound, "entry file missing", nil).WithPath("/src/index.js"),
			contains: []string{"/src/index.js", "entry file missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestBundlerErrorIsAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewMinifyError(ErrCodeMinifyTierFailed, "terser failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &BundlerError{Type: ErrorTypeMinify, Code: ErrCodeMinifyTierFailed}))
	assert.False(t, errors.Is(err, &BundlerError{Type: ErrorTypeMinify, Code: ErrCodeMinifyDegraded}))
}

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsResolutionError(NewResolutionError("x.js")))
	assert.True(t, IsMinifyError(NewMinifyError(ErrCodeMinifyDegraded, "degraded", nil)))
	assert.True(t, IsBuildError(fmt.Errorf("wrapped: %w", NewBuildError(ErrCodeAssembleFailed, "x", nil))))
	assert.False(t, IsBuildError(errors.New("plain")))

	assert.True(t, IsRecoverable(NewLoadError("http://x/a.js", nil)))
	assert.True(t, IsRecoverable(NewMinifyError(ErrCodeMinifyDegraded, "degraded", nil)))
	assert.False(t, IsRecoverable(NewResolutionError("x.js")))
	assert.False(t, IsRecoverable(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "X", "y"))

	inner := NewIOError(ErrCodeSourceUnreadable, "read", nil).WithPath("/a.js")
	outer := Wrap(inner, ErrorTypeBuild, ErrCodeAssembleFailed, "assemble")
	require.NotNil(t, outer)
	assert.Equal(t, "/a.js", outer.Path)
	assert.ErrorIs(t, outer, inner)

	io := WrapIO(errors.New("disk full"), ErrCodeOutputWrite, "write failed", "/out/index.js")
	assert.Equal(t, ErrorTypeIO, io.Type)
	assert.Equal(t, "/out/index.js", io.Path)
	assert.False(t, io.Recoverable)

	ctx := GetErrorContext(io.WithContext("attempt", 2))
	assert.Equal(t, "io", ctx["type"])
	assert.Equal(t, 2, ctx["attempt"])
	assert.Equal(t, "/out/index.js", ctx["path"])
}

func TestErrorCollectorConcurrent(t *testing.T) {
	collector := NewErrorCollector()
	assert.False(t, collector.HasErrors())
	assert.NoError(t, collector.Join())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			collector.AddError(fmt.Errorf("copy %d failed", i))
		}(i)
	}
	collector.AddError(nil)
	wg.Wait()

	assert.Equal(t, 50, collector.Len())
	assert.Len(t, collector.GetErrors(), 50)
	assert.Error(t, collector.Join())

	collector.Clear()
	assert.False(t, collector.HasErrors())
}

type recordingLogger struct {
	warns  int
	errors int
}

func (r *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.errors++
}

func (r *recordingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.warns++
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	handler := NewErrorHandler(logger)
	ctx := context.Background()

	handler.Handle(ctx, nil)
	handler.Handle(ctx, NewMinifyError(ErrCodeMinifyDegraded, "degraded", nil))
	handler.Handle(ctx, NewResolutionError("x.js"))
	handler.Handle(ctx, errors.New("plain"))

	assert.Equal(t, 1, logger.warns)
	assert.Equal(t, 2, logger.errors)
}
