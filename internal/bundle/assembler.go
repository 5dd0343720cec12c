// Package bundle serializes a module graph into a loadable bundle.
//
// A bundle is a module map literal
//
//	{"<id>":[function(require, exports, module){<code>},{<ref>:<id>,...}],...}
//
// plus an entry id. It is wrapped either in the embedded runtime, which
// installs itself on the page and executes the entry, or in a short headless
// invocation that hands the map to a runtime installed by another bundle.
package bundle

import (
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/graph"
	"github.com/conneroisu/jsplus/internal/scanner"
)

// Output is an assembled bundle.
type Output struct {
	Code  string
	Entry string
	// Modules lists the ids serialized into Code.
	Modules []string
	// Separated nodes must be bundled on their own.
	Separated []*graph.Node
}

// Assembler turns graphs into bundle source.
type Assembler struct {
	// Host replaces the & placeholder of network-separated ids. Empty means
	// the runtime derives it from the page location.
	Host string
}

// Serialize renders nodes as a module map literal.
func (a *Assembler) Serialize(nodes []*graph.Node) (string, error) {
	var b strings.Builder
	b.WriteByte('{')

	for i, n := range nodes {
		id, err := encode(n.ID)
		if err != nil {
			return "", errors.WrapBuild(err, errors.ErrCodeAssembleFailed, "failed to encode module id")
		}

		mapping := n.Mapping
		if mapping == nil {
			mapping = map[string]string{}
		}
		encoded, err := encode(mapping)
		if err != nil {
			return "", errors.WrapBuild(err, errors.ErrCodeAssembleFailed, "failed to encode mapping of "+n.ID)
		}

		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(id)
		b.WriteString(":[function(require, exports, module){")
		b.WriteString(n.Code)
		b.WriteString("},")
		b.Write(encoded)
		b.WriteByte(']')
	}

	b.WriteByte('}')
	return b.String(), nil
}

// Assemble serializes the main part of g and wraps it for execution. The
// entry node always stays in the main part, even when another module also
// loads it over the network.
func (a *Assembler) Assemble(g *graph.Graph, entry string, includeRuntime bool) (*Output, error) {
	entryID := graph.NormalizeID(entry)
	if root := g.Entry(); root != nil {
		entryID = root.ID
	}

	var main, separated []*graph.Node
	for _, n := range g.Nodes {
		if n.Separated && n.ID != entryID {
			separated = append(separated, n)
			continue
		}
		main = append(main, n)
	}

	modules, err := a.Serialize(main)
	if err != nil {
		return nil, err
	}

	var code string
	if includeRuntime {
		code = RuntimeSource(a.Host, modules, entryID)
	} else {
		code = HeadlessSource(modules, entryID)
	}

	ids := make([]string, len(main))
	for i, n := range main {
		ids[i] = n.ID
	}

	return &Output{
		Code:      scanner.CleanUpCode(code),
		Entry:     entryID,
		Modules:   ids,
		Separated: separated,
	}, nil
}

// encode renders v as a JavaScript literal. Ids keep <, > and & unescaped
// so the base directory can be found and replaced in the emitted bundle.
func encode(v interface{}) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}

// EnsureJSExtension forces the final path element to end in .js, replacing
// any other extension.
func EnsureJSExtension(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	ext := filepath.Ext(path)
	if ext == ".js" {
		return path
	}
	return strings.TrimSuffix(path, ext) + ".js"
}
