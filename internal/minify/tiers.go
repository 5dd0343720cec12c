package minify

import (
	"fmt"
	"time"

	"github.com/conneroisu/jsplus/internal/logging"
)

// Tier names accepted by New.
const (
	TierTerser   = "terser"
	TierEsbuild  = "esbuild"
	TierTdewolff = "tdewolff"
	TierRemote   = "remote"
)

// DefaultTiers is the preferred tier order.
var DefaultTiers = []string{TierTerser, TierEsbuild, TierTdewolff, TierRemote}

// KnownTier reports whether name is a tier New can create.
func KnownTier(name string) bool {
	switch name {
	case TierTerser, TierEsbuild, TierTdewolff, TierRemote:
		return true
	}
	return false
}

// Options configures the chain built by New.
type Options struct {
	// Tiers in the order they are tried. Empty disables minification.
	Tiers             []string
	AutoInstallTerser bool
	RemoteEndpoint    string
	RemoteTimeout     time.Duration
}

// New builds a chain from named tiers.
func New(logger logging.Logger, opts Options) (*Chain, error) {
	tiers := make([]Tier, 0, len(opts.Tiers))
	for _, name := range opts.Tiers {
		switch name {
		case TierTerser:
			tiers = append(tiers, NewTerserTier(logger, opts.AutoInstallTerser))
		case TierEsbuild:
			tiers = append(tiers, EsbuildTier{})
		case TierTdewolff:
			tiers = append(tiers, NewTdewolffTier())
		case TierRemote:
			remote, err := NewRemoteTier(logger, opts.RemoteEndpoint, opts.RemoteTimeout)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, remote)
		default:
			return nil, fmt.Errorf("unknown minifier tier %q", name)
		}
	}

	return NewChain(logger, tiers...), nil
}
