package build

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/graph"
	"github.com/conneroisu/jsplus/internal/version"
)

// ManifestFile is the name of the manifest written next to the main bundle.
const ManifestFile = "jsplus-manifest.json"

// BundleInfo describes one written bundle.
type BundleInfo struct {
	Path      string `json:"path"`
	Entry     string `json:"entry"`
	Size      int64  `json:"size"`
	Integrity string `json:"integrity"`
	Modules   int    `json:"modules"`
	// Runtime is false for headless bundles of separated modules.
	Runtime  bool   `json:"runtime"`
	Minifier string `json:"minifier"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Manifest lists everything a run wrote, for deployment.
type Manifest struct {
	Version   string              `json:"version"`
	BuildTime time.Time           `json:"build_time"`
	Namespace string              `json:"namespace"`
	Bundles   []BundleInfo        `json:"bundles"`
	Assets    []graph.CopiedAsset `json:"assets"`
	// Integrity maps output-relative paths to subresource integrity values.
	Integrity map[string]string `json:"integrity"`
}

// ReadManifest loads a manifest written by a previous run.
func ReadManifest(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeSourceUnreadable, "failed to read manifest", file)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", file, err)
	}
	return &m, nil
}

func (b *Bundler) writeManifest(s *Session, opts Options) error {
	m := Manifest{
		Version:   version.GetVersion(),
		BuildTime: time.Now().UTC(),
		Namespace: opts.Namespace,
		Bundles:   s.bundles,
		Assets:    s.assets,
		Integrity: make(map[string]string, len(s.bundles)+len(s.assets)),
	}
	if m.Assets == nil {
		m.Assets = []graph.CopiedAsset{}
	}

	for _, info := range s.bundles {
		m.Integrity[relativeTo(s.outputRoot, info.Path)] = info.Integrity
	}
	for _, asset := range s.assets {
		m.Integrity[relativeTo(s.outputRoot, asset.Dest)] = asset.Integrity
	}

	file := filepath.Join(s.outputRoot, ManifestFile)
	if err := writeJSONFile(file, m); err != nil {
		return errors.WrapIO(err, errors.ErrCodeOutputWrite, "failed to write manifest", file)
	}
	return nil
}

// writeJSONFile writes data as JSON to a file.
func writeJSONFile(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func relativeTo(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

func integrity(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256-" + base64.StdEncoding.EncodeToString(sum[:])
}
