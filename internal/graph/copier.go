package graph

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/logging"
)

// DefaultCopyConcurrency bounds the number of simultaneous asset copies.
const DefaultCopyConcurrency = 8

// CopiedAsset describes one file copied into the output directory.
type CopiedAsset struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
	Size   int64  `json:"size"`
	// Integrity is a subresource integrity value for the copied file.
	Integrity string `json:"integrity"`
}

// CopyResult is the outcome of every copy scheduled before Wait.
type CopyResult struct {
	Copied []CopiedAsset
	Errors []error
}

// AssetCopier copies assets in the background while the graph is built.
// Copy never blocks; Wait must be called before the build is reported as
// done. Failed copies are logged and collected but never abort a build.
type AssetCopier struct {
	logger logging.Logger
	group  errgroup.Group
	sem    chan struct{}

	mu     sync.Mutex
	copied []CopiedAsset
	errs   *errors.ErrorCollector
}

// NewAssetCopier creates a copier running at most concurrency copies at once.
func NewAssetCopier(logger logging.Logger, concurrency int) *AssetCopier {
	if concurrency <= 0 {
		concurrency = DefaultCopyConcurrency
	}
	return &AssetCopier{
		logger: logger.WithComponent("assets"),
		sem:    make(chan struct{}, concurrency),
		errs:   errors.NewErrorCollector(),
	}
}

// Copy schedules a copy of src to dst.
func (c *AssetCopier) Copy(ctx context.Context, src, dst string) {
	c.group.Go(func() error {
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			c.fail(ctx, src, ctx.Err())
			return nil
		}
		defer func() { <-c.sem }()

		asset, err := copyFile(src, dst)
		if err != nil {
			c.fail(ctx, src, err)
			return nil
		}

		c.mu.Lock()
		c.copied = append(c.copied, asset)
		c.mu.Unlock()

		return nil
	})
}

func (c *AssetCopier) fail(ctx context.Context, src string, err error) {
	wrapped := errors.WrapIO(err, errors.ErrCodeAssetCopy, "failed to copy asset", src)
	wrapped.Recoverable = true
	c.logger.Warn(ctx, wrapped, "Asset copy failed", "src", src)
	c.errs.AddError(wrapped)
}

// Wait blocks until every scheduled copy has finished and returns their
// outcome. The copier can be reused afterwards.
func (c *AssetCopier) Wait() CopyResult {
	_ = c.group.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	result := CopyResult{Copied: c.copied, Errors: c.errs.GetErrors()}
	c.copied = nil
	c.errs.Clear()

	return result
}

// copyFile copies src to dst, creating parent directories, and computes the
// integrity of the copied bytes.
func copyFile(src, dst string) (CopiedAsset, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return CopiedAsset{}, fmt.Errorf("failed to create directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return CopiedAsset{}, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return CopiedAsset{}, fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), in)
	if err != nil {
		return CopiedAsset{}, fmt.Errorf("failed to copy: %w", err)
	}

	return CopiedAsset{
		Source:    src,
		Dest:      dst,
		Size:      size,
		Integrity: "sha256-" + base64.StdEncoding.EncodeToString(hasher.Sum(nil)),
	}, nil
}
