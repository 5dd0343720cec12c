// Package minify runs bundle source through an ordered chain of minifiers.
//
// Each tier is tried to completion before the next one starts; the order
// encodes a quality preference, so tiers never race. When every tier fails
// the source is passed through unchanged and the chain reports a
// recoverable degradation instead of an error.
package minify

import (
	"context"
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/logging"
)

// Tier is one minifier in a Chain.
type Tier interface {
	Name() string
	Minify(ctx context.Context, src string) (string, error)
}

// Passthrough is the tier name reported when no minifier succeeded.
const Passthrough = "passthrough"

// Result is the outcome of running a chain.
type Result struct {
	Code string
	// Tier names the minifier that produced Code.
	Tier string
	// Degraded is set when Code is the unminified input.
	Degraded bool
	// Failures holds the error of every tier that was tried and failed.
	Failures []error
}

// Chain tries its tiers in order until one succeeds.
type Chain struct {
	tiers  []Tier
	logger logging.Logger
}

// NewChain creates a chain over tiers.
func NewChain(logger logging.Logger, tiers ...Tier) *Chain {
	return &Chain{
		tiers:  tiers,
		logger: logger.WithComponent("minify"),
	}
}

// Tiers returns the names of the configured tiers in order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name()
	}
	return names
}

// Minify minifies src. The only error returned is cancellation of ctx;
// minifier failures degrade to passthrough.
func (c *Chain) Minify(ctx context.Context, src string) (Result, error) {
	if len(c.tiers) == 0 || strings.TrimSpace(src) == "" {
		return Result{Code: src, Tier: Passthrough}, nil
	}

	failures := errors.NewErrorCollector()

	for _, tier := range c.tiers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		perf := logging.StartOperation(c.logger, "minify_"+tier.Name())
		out, err := tier.Minify(ctx, src)
		if err == nil {
			err = Validate(out)
		}
		if err != nil {
			perf.EndWithError(ctx, err)
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			failures.AddError(errors.NewMinifyError(errors.ErrCodeMinifyTierFailed,
				"minifier "+tier.Name()+" failed", err))
			continue
		}

		perf.End(ctx, "input_bytes", len(src), "output_bytes", len(out))
		return Result{Code: out, Tier: tier.Name(), Failures: failures.GetErrors()}, nil
	}

	degraded := errors.NewMinifyError(errors.ErrCodeMinifyDegraded,
		fmt.Sprintf("all %d minifiers failed, writing unminified output", len(c.tiers)), failures.Join())
	c.logger.Warn(ctx, degraded, "Minification degraded", "tiers", strings.Join(c.Tiers(), ","))

	return Result{Code: src, Tier: Passthrough, Degraded: true, Failures: failures.GetErrors()}, nil
}

// Validate reports whether src parses as JavaScript. Output that does not
// parse is treated as a failed tier, such as an HTML error page returned by
// a remote endpoint.
func Validate(src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("empty output")
	}
	if _, err := js.Parse(parse.NewInputString(src), js.Options{}); err != nil {
		return fmt.Errorf("invalid output: %w", err)
	}
	return nil
}
