// Package graph builds the module dependency graph of a bundle.
//
// Starting at the entry file, every require reference is resolved against
// the directory of the module that makes it. Files with a module extension
// become nodes; anything else is copied next to the output bundle. A
// reference carrying a /<HTTP>/ or /<HTTPS>/ marker flags its target as
// network-separated: the target still gets a node, but it is bundled on its
// own and fetched by the runtime on demand.
package graph

import (
	"context"
	"path"
	"path/filepath"

	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/logging"
)

// Graph holds the nodes of a bundle in discovery order; the entry is first.
type Graph struct {
	Nodes []*Node
	seen  map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{seen: make(map[string]*Node)}
}

// Add appends n to the graph. Nodes are keyed by ID; adding an ID twice
// replaces the lookup entry but keeps both in Nodes.
func (g *Graph) Add(n *Node) {
	g.Nodes = append(g.Nodes, n)
	g.seen[n.ID] = n
}

// Lookup returns the node with the given id.
func (g *Graph) Lookup(id string) (*Node, bool) {
	n, ok := g.seen[id]
	return n, ok
}

// Entry returns the entry node, or nil for an empty graph.
func (g *Graph) Entry() *Node {
	if len(g.Nodes) == 0 {
		return nil
	}
	return g.Nodes[0]
}

// Main returns the nodes bundled into the main output.
func (g *Graph) Main() []*Node {
	return g.filter(false)
}

// Separated returns the nodes that are bundled on their own.
func (g *Graph) Separated() []*Node {
	return g.filter(true)
}

func (g *Graph) filter(separated bool) []*Node {
	var nodes []*Node
	for _, n := range g.Nodes {
		if n.Separated == separated {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Copier receives the non-module files referenced by the graph.
type Copier interface {
	Copy(ctx context.Context, src, dst string)
}

// Builder walks the references of an entry module into a Graph.
type Builder struct {
	logger logging.Logger
	copier Copier
}

// NewBuilder creates a builder. Asset copies are handed to copier.
func NewBuilder(logger logging.Logger, copier Copier) *Builder {
	return &Builder{
		logger: logger.WithComponent("graph"),
		copier: copier,
	}
}

// Build creates the graph reachable from entry. Assets are placed relative
// to the directory of outputFile, mirroring their position relative to the
// entry. A missing or unreadable module aborts the build.
func (b *Builder) Build(ctx context.Context, entry, outputFile string) (*Graph, error) {
	perf := logging.StartOperation(b.logger, "build_graph")

	root, err := CreateNode(entry)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, errors.Wrap(err, errors.ErrorTypeBuild, errors.ErrCodeEntryNotFound, "failed to load entry "+entry)
	}

	g := New()
	g.Add(root)

	entryDir := path.Dir(root.ID)
	outputDir := path.Dir(NormalizeID(outputFile))
	assets := make(map[string]struct{})

	// g.Nodes grows while it is walked
	for i := 0; i < len(g.Nodes); i++ {
		if err := ctx.Err(); err != nil {
			perf.EndWithError(ctx, err)
			return nil, err
		}

		node := g.Nodes[i]
		for _, ref := range node.Dependencies {
			if IsNetworkURL(ref) {
				node.Mapping[ref] = ref
				continue
			}

			addr := Resolve(node.Dir(), ref)
			target, seen := g.Lookup(addr.Path)
			if !seen {
				if !IsModuleExt(path.Ext(addr.Path)) {
					if _, done := assets[addr.Path]; !done {
						assets[addr.Path] = struct{}{}
						b.copyAsset(ctx, addr.Path, entryDir, outputDir)
					}
					continue
				}

				target, err = CreateNode(filepath.FromSlash(addr.Path))
				if err != nil {
					perf.EndWithError(ctx, err)
					return nil, errors.Wrap(err, errors.ErrorTypeBuild, errors.ErrCodeSourceUnreadable,
						"failed to load "+ref+" from "+node.ID)
				}
				g.Add(target)
			}

			if addr.Separated() {
				node.Mapping[ref] = addr.String()
				target.Separated = true
			} else {
				node.Mapping[ref] = target.ID
			}
		}
	}

	perf.End(ctx, "modules", g.Len(), "separated", len(g.Separated()), "assets", len(assets))

	return g, nil
}

func (b *Builder) copyAsset(ctx context.Context, src, entryDir, outputDir string) {
	rel, err := filepath.Rel(filepath.FromSlash(entryDir), filepath.FromSlash(src))
	if err != nil {
		rel = path.Base(src)
	}
	dst := path.Join(outputDir, filepath.ToSlash(rel))

	b.logger.Debug(ctx, "Copying asset", "src", src, "dst", dst)
	b.copier.Copy(ctx, filepath.FromSlash(src), filepath.FromSlash(dst))
}
