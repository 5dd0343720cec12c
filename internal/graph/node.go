package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/conneroisu/jsplus/internal/errors"
	"github.com/conneroisu/jsplus/internal/scanner"
	"github.com/conneroisu/jsplus/internal/transpile"
)

// Node is one module of the dependency graph.
type Node struct {
	ID       string
	Filename string
	// Dependencies are the raw require references found in Code, in order.
	Dependencies []string
	// Mapping resolves each raw reference to the id the runtime looks up.
	Mapping map[string]string
	Code    string
	// Separated nodes are fetched over the network and bundled on their own.
	Separated bool
}

// Dir returns the directory references inside the node resolve against.
func (n *Node) Dir() string {
	return filepath.ToSlash(filepath.Dir(n.Filename))
}

const styleSheetExport = `if(typeof CSSStyleSheet === "undefined"){exports.default = raw;}` +
	`else{var sheet = new CSSStyleSheet();sheet.replaceSync(raw);exports.default = sheet;}`

// CreateNode reads the module at path and produces its loader-ready code.
func CreateNode(path string) (*Node, error) {
	id := NormalizeID(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeSourceUnreadable, "failed to read module", id)
	}
	src, err := scanner.DecodeSource(raw)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeSourceUnreadable, "failed to decode module", id)
	}

	code, deps, err := moduleCode(src, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, errors.WrapBuild(err, errors.ErrCodeSourceUnreadable, "invalid module "+id)
	}

	return &Node{
		ID:           id,
		Filename:     id,
		Dependencies: deps,
		Mapping:      make(map[string]string),
		Code:         code,
	}, nil
}

// moduleCode converts src into the body of a module factory. Only scripts
// can depend on other modules.
func moduleCode(src, ext string) (string, []string, error) {
	switch ext {
	case ".json":
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(src)); err != nil {
			return "", nil, err
		}
		return "exports.default = " + buf.String() + ";", nil, nil

	case ".css":
		style := scanner.Minimize(src, scanner.KindStyle)
		return `var raw = "` + scanner.EscapeForDoubleQuote(style) + `";` + styleSheetExport, nil, nil

	case ".svg", ".xml", ".html":
		markup := scanner.Minimize(src, scanner.KindMarkup)
		return `exports.default = "` + scanner.EscapeForDoubleQuote(markup) + `";`, nil, nil

	default:
		code := TransformScript(src)
		return code, transpile.Dependencies(code), nil
	}
}

// TransformScript runs the script pipeline: comments stripped, source
// flattened, module syntax rewritten to loader calls, whitespace minimized
// and network calls folded into module ids.
func TransformScript(src string) string {
	code := scanner.StripComments(src)
	code = scanner.OneLine(code)
	code = transpile.Transpile(code)
	code = scanner.CleanUpCode(code)

	return transpile.MergeNetworkCalls(code)
}
