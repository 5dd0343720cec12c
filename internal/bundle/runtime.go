package bundle

import (
	_ "embed"
	"strings"

	"github.com/conneroisu/jsplus/internal/scanner"
)

//go:embed runtime.js
var runtimeJS string

// runtimeBootstrap is the runtime function expression with comments removed.
var runtimeBootstrap = strings.TrimSpace(scanner.StripComments(runtimeJS))

// GlobalObject is the expression a bundle evaluates to find the page global.
const GlobalObject = `typeof window !== "undefined" ? window : this`

// RuntimeGlobal is the global property the installed runtime lives under.
const RuntimeGlobal = "__jsplus__"

// RuntimeSource returns the self-executing runtime bootstrap for a module
// map literal and entry id. An empty host makes the runtime derive one from
// the page location.
func RuntimeSource(host, modules, entry string) string {
	hostArg := "null"
	if host != "" {
		hostArg = quote(host)
	}

	return runtimeBootstrap + "(" + GlobalObject + "," + hostArg + "," + modules + "," + quote(entry) + ");"
}

// HeadlessSource returns an invocation that registers a module map with an
// already installed runtime and resolves its entry.
func HeadlessSource(modules, entry string) string {
	return "(function(g,m,e){var r=g." + RuntimeGlobal + ";r.register(m);r.resolve(e);})(" +
		GlobalObject + "," + modules + "," + quote(entry) + ");"
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, err := encode(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
