package transpile

import (
	"regexp"
	"strings"
)

var (
	dynamicAttributeImport = regexp.MustCompile(
		`\bimport\(\s*("[^"\n]+\.(?:json|css)"|'[^'\n]+\.(?:json|css)')\s*,\s*\{\s*with\s*:\s*\{\s*type\s*:\s*["'](?:json|css)["']\s*\}\s*\}\s*\)`)
	staticAttributes     = regexp.MustCompile(`(\bimport\s+[^'"]+\s+from\s*` + quoted + `)\s+with\s*\{[^}]*\}`)
	sideEffectAttributes = regexp.MustCompile(`(\bimport\s*` + quoted + `)\s+with\s*\{[^}]*\}`)
)

// RewriteImportAttributes handles import attribute clauses. A dynamic import
// of a JSON or CSS file with a type attribute becomes a network-separated
// require; the clause is dropped from static and side-effect imports.
func RewriteImportAttributes(src string) string {
	code := replaceAll(src, dynamicAttributeImport, func(g []string) string {
		return "require(" + g[1] + ").http()"
	})
	code = staticAttributes.ReplaceAllString(code, "$1")

	return sideEffectAttributes.ReplaceAllString(code, "$1")
}

var (
	defaultAndNamedImport = regexp.MustCompile(`\bimport\s+(` + ident + `)\s*,\s*\{([^}]*)\}\s*from\s*(` + quoted + `)\s*;?`)
	namespaceImport       = regexp.MustCompile(`\bimport\s*\*\s*as\s+(` + ident + `)\s+from\s*(` + quoted + `)\s*;?`)
	namedImport           = regexp.MustCompile(`\bimport\s*\{([^}]*)\}\s*from\s*(` + quoted + `)\s*;?`)
	defaultImport         = regexp.MustCompile(`\bimport\s+(` + ident + `)\s+from\s*(` + quoted + `)\s*;?`)
	sideEffectImport      = regexp.MustCompile(`\bimport\s*(` + quoted + `)\s*;?`)
)

// RewriteStaticImports turns static import declarations into require calls:
//
//	import foo, { a, b as c } from "m"  ->  const foo = require("m").default; const a = ...
//	import * as ns from "m"             ->  const ns = require("m");
//	import "m"                          ->  require("m");
func RewriteStaticImports(src string) string {
	code := replaceAll(src, defaultAndNamedImport, func(g []string) string {
		lines := []string{requireBinding(g[1], g[3], "default")}
		for _, b := range splitBindings(g[2]) {
			lines = append(lines, requireBinding(b.local, g[3], b.remote))
		}
		return strings.Join(lines, "\n")
	})

	code = replaceAll(code, namespaceImport, func(g []string) string {
		return "const " + g[1] + " = require(" + g[2] + ");"
	})

	code = replaceAll(code, namedImport, func(g []string) string {
		var lines []string
		for _, b := range splitBindings(g[1]) {
			lines = append(lines, requireBinding(b.local, g[2], b.remote))
		}
		return strings.Join(lines, "\n")
	})

	code = replaceAll(code, defaultImport, func(g []string) string {
		return requireBinding(g[1], g[2], "default")
	})

	return replaceAll(code, sideEffectImport, func(g []string) string {
		return "require(" + g[1] + ");"
	})
}

func requireBinding(local, mod, key string) string {
	return "const " + local + " = require(" + mod + ")." + key + ";"
}

var (
	dynamicImport = regexp.MustCompile(`\bimport\s*\(\s*(` + quoted + `)\s*\)((?:\s*\.\s*` + ident + `\s*\([^)]*\))*)`)
	chainedCall   = regexp.MustCompile(`\s*\.\s*(` + ident + `)\s*\(`)
)

// RewriteDynamicImports turns import("m") into a network-separated require.
// A method chain following the import is kept; unless it already starts with
// http, https or namespace an .http() call is injected in front of it.
// .namespace( is an alias of .http(.
func RewriteDynamicImports(src string) string {
	return replaceAll(src, dynamicImport, func(g []string) string {
		mod, calls := g[1], g[2]
		calls = chainedCall.ReplaceAllString(calls, ".$1(")
		calls = strings.ReplaceAll(calls, ".namespace(", ".http(")

		if calls == "" {
			return "require(" + mod + ").http()"
		}

		first := calls[1:strings.IndexByte(calls, '(')]
		switch strings.ToLower(first) {
		case "http", "https":
			return "require(" + mod + ")" + calls
		default:
			return "require(" + mod + ").http()" + calls
		}
	})
}
