// Package transpile rewrites ES module syntax into CommonJS-style loader
// calls understood by the jsplus runtime.
//
// The rewrite is a fixed sequence of text stages rather than a parser. Each
// stage is a pure function over the output of the previous one, so a
// construct consumed by an early stage is never seen by a later one:
//
//	RewriteAnonymousDefaults   export default function() {...} / class {...}
//	RewriteImportAttributes    with { type: "json" } clauses
//	RewriteStaticImports       import x, { a as b } from "m"
//	RewriteDynamicImports      import("m").then(...)
//	RewriteReExports           export { a } from "m"
//	RewriteExports             every remaining export form
//
// The output contains no import or export statements. Every exported binding
// is assigned onto the exports object in a trailing block ordered by where the
// export appeared in the source.
package transpile

import (
	"regexp"
	"strings"
)

// Stage is one text rewrite in the transpile sequence.
type Stage func(src string) string

// Stages returns the rewrite sequence applied by Transpile, in order.
func Stages() []Stage {
	return []Stage{
		RewriteAnonymousDefaults,
		RewriteImportAttributes,
		RewriteStaticImports,
		RewriteDynamicImports,
		RewriteReExports,
		RewriteExports,
	}
}

// Transpile applies every stage to src and normalizes line endings.
func Transpile(src string) string {
	code := src
	for _, stage := range Stages() {
		code = stage(code)
	}

	return strings.ReplaceAll(code, "\r\n", "\n")
}

const (
	// quoted matches a single- or double-quoted module specifier.
	quoted = `(?:"[^"\n]*"|'[^'\n]*')`
	// ident matches a binding name.
	ident = `[A-Za-z_$][\w$]*`
)

// edit replaces src[start:end] with text. Exports produced by the edit are
// positioned at the start of its replacement.
type edit struct {
	start, end int
	text       string
	exports    []Export
}

// matchEdits turns every non-overlapping match of re into an edit whose text
// is computed by fn from the submatches. Unmatched groups are empty.
func matchEdits(src string, re *regexp.Regexp, fn func(groups []string) (string, []Export)) []edit {
	var edits []edit
	for _, loc := range re.FindAllStringSubmatchIndex(src, -1) {
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = src[loc[2*g]:loc[2*g+1]]
			}
		}
		text, exports := fn(groups)
		edits = append(edits, edit{start: loc[0], end: loc[1], text: text, exports: exports})
	}

	return edits
}

// replaceAll rewrites every match of re in src with the result of fn.
func replaceAll(src string, re *regexp.Regexp, fn func(groups []string) string) string {
	edits := matchEdits(src, re, func(groups []string) (string, []Export) {
		return fn(groups), nil
	})

	return applyEdits(src, edits)
}

func applyEdits(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}

	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, e := range edits {
		b.WriteString(src[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(src[last:])

	return b.String()
}

var asKeyword = regexp.MustCompile(`\s+as\s+`)

// binding is one entry of a braced import or export list.
type binding struct {
	local  string
	remote string
}

// splitBindings parses "a, b as c" into bindings. For imports remote is the
// name fetched from the module and local the name bound; for exports remote
// is the local variable and local the exported name.
func splitBindings(list string) []binding {
	var out []binding
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if pair := asKeyword.Split(part, 2); len(pair) == 2 {
			out = append(out, binding{
				remote: strings.TrimSpace(pair[0]),
				local:  strings.TrimSpace(pair[1]),
			})
			continue
		}

		out = append(out, binding{local: part, remote: part})
	}

	return out
}
