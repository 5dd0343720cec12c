package transpile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/jsplus/internal/scanner"
)

// DefaultBinding is the synthetic constant an anonymous default export
// value is bound to.
const DefaultBinding = "__default__"

var anonymousDefault = regexp.MustCompile(
	`\bexport\s+default\s+((?:async\s+)?function\s*\*?\s*\(|class(?:\s+extends\s+[\w$.]+)?\s*\{)`)

// RewriteAnonymousDefaults rewrites anonymous default function and class
// declarations to an exports.default assignment. Bodies are delimited by
// brace matching so nested braces, strings and comments inside them are safe.
func RewriteAnonymousDefaults(src string) string {
	for {
		loc := anonymousDefault.FindStringSubmatchIndex(src)
		if loc == nil {
			return src
		}

		open := bodyOpen(src, loc[1]-1)
		if open < 0 {
			return src
		}
		end := scanner.FindMatchingBrace(src, open)
		if end < 0 {
			return src
		}

		src = src[:loc[0]] + "exports.default = " + src[loc[2]:end+1] + ";" + src[end+1:]
	}
}

// bodyOpen returns the index of the body brace for a declaration whose
// parameter list or body starts at i.
func bodyOpen(src string, i int) int {
	if src[i] == '{' {
		return i
	}

	depth := 0
	for ; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if j := strings.IndexByte(src[i:], '{'); j >= 0 {
					return i + j
				}
				return -1
			}
		}
	}

	return -1
}

var reExport = regexp.MustCompile(`\bexport\s*\{([^}]*)\}\s*from\s*(` + quoted + `)\s*;?`)
var starReExport = regexp.MustCompile(`\bexport\s*\*\s*from\s*(` + quoted + `)\s*;?`)

// RewriteReExports turns export lists that name a source module into
// exports assignments, one per binding in declaration order.
func RewriteReExports(src string) string {
	code := replaceAll(src, reExport, func(g []string) string {
		var lines []string
		for _, b := range splitBindings(g[1]) {
			lines = append(lines, "exports."+b.local+" = require("+g[2]+")."+b.remote+";")
		}
		return strings.Join(lines, "\n")
	})

	return replaceAll(code, starReExport, func(g []string) string {
		return `(function(m){for(var k in m){if(k!=="default"){exports[k]=m[k];}}})(require(` + g[1] + `));`
	})
}

// Export is one binding assigned onto the exports object.
type Export struct {
	// Name is the exported name; "default" exports use Default instead.
	Name string
	// Original is the local variable when it differs from Name.
	Original string
	Default  bool
	// Offset orders exports by where they appeared in the source.
	Offset int
}

// Statement renders the exports assignment for e.
func (e Export) Statement() string {
	switch {
	case e.Default:
		return "exports.default = " + e.Name + ";"
	case e.Original != "":
		return "exports." + e.Name + " = " + e.Original + ";"
	default:
		return "exports." + e.Name + " = " + e.Name + ";"
	}
}

var (
	defaultNamedFunction = regexp.MustCompile(`\bexport\s+default\s+((?:async\s+)?function(?:\s*\*\s*|\s+))(` + ident + `)\s*\(`)
	defaultNamedClass    = regexp.MustCompile(`\bexport\s+default\s+class\s+(` + ident + `)`)
	namedFunction        = regexp.MustCompile(`\bexport\s+((?:async\s+)?function(?:\s*\*\s*|\s+))(` + ident + `)\s*\(`)
	namedClass           = regexp.MustCompile(`\bexport\s+class\s+(` + ident + `)`)
	declaration          = regexp.MustCompile(`\bexport\s+(const|let|var)\s+(` + ident + `)`)
	exportList           = regexp.MustCompile(`\bexport\s*\{([^}]*)\}\s*;?`)
	defaultAssignment    = regexp.MustCompile(`\bexport\s+default\s+(` + ident + `)\s*=`)
	defaultIdentifier    = regexp.MustCompile(`(?m)\bexport\s+default\s+(` + ident + `)\s*(?:;|$)`)
	defaultExpression    = regexp.MustCompile(`\bexport\s+default\s+`)
)

// CollectExports strips every remaining export form from src, returning the
// code and the exports it declared sorted by source position.
//
// export default x = expr declares x. Any other default value that is not a
// plain identifier is bound to DefaultBinding (numbered when repeated) so it
// is evaluated exactly once, in place.
func CollectExports(src string) (string, []Export) {
	c := &collector{}
	code := src

	code = c.rewrite(code, matchEdits(code, defaultNamedFunction, func(g []string) (string, []Export) {
		return g[1] + g[2] + "(", []Export{{Name: g[2], Default: true}}
	}))
	code = c.rewrite(code, matchEdits(code, defaultNamedClass, func(g []string) (string, []Export) {
		return "class " + g[1], []Export{{Name: g[1], Default: true}}
	}))
	code = c.rewrite(code, matchEdits(code, namedFunction, func(g []string) (string, []Export) {
		return g[1] + g[2] + "(", []Export{{Name: g[2]}}
	}))
	code = c.rewrite(code, matchEdits(code, namedClass, func(g []string) (string, []Export) {
		return "class " + g[1], []Export{{Name: g[1]}}
	}))
	code = c.rewrite(code, matchEdits(code, declaration, func(g []string) (string, []Export) {
		return g[1] + " " + g[2], []Export{{Name: g[2]}}
	}))
	code = c.rewrite(code, matchEdits(code, exportList, func(g []string) (string, []Export) {
		var exports []Export
		for _, b := range splitBindings(g[1]) {
			e := Export{Name: b.local}
			if b.remote != b.local {
				e.Original = b.remote
			}
			if b.local == "default" {
				e = Export{Name: b.remote, Default: true}
			}
			exports = append(exports, e)
		}
		return "", exports
	}))
	code = c.rewrite(code, defaultAssignmentEdits(code))
	code = c.rewrite(code, matchEdits(code, defaultIdentifier, func(g []string) (string, []Export) {
		return "", []Export{{Name: g[1], Default: true}}
	}))
	code = c.rewrite(code, defaultExpressionEdits(code))

	sort.SliceStable(c.exports, func(i, j int) bool {
		return c.exports[i].Offset < c.exports[j].Offset
	})

	return code, c.exports
}

// defaultAssignmentEdits turns export default x = expr into a declaration
// of x. Comparisons (==) and arrow functions (x => ...) are left alone.
func defaultAssignmentEdits(src string) []edit {
	var edits []edit
	last := 0
	for _, loc := range defaultAssignment.FindAllStringSubmatchIndex(src, -1) {
		if loc[0] < last {
			continue
		}
		if loc[1] < len(src) && (src[loc[1]] == '=' || src[loc[1]] == '>') {
			continue
		}

		name := src[loc[2]:loc[3]]
		end := scanner.FindStatementEnd(src, loc[1])
		expr := strings.TrimSuffix(strings.TrimSpace(src[loc[1]:end]), ";")

		edits = append(edits, edit{
			start:   loc[0],
			end:     end,
			text:    "const " + name + " = " + strings.TrimSpace(expr) + ";",
			exports: []Export{{Name: name, Default: true}},
		})
		last = end
	}

	return edits
}

// defaultExpressionEdits binds each remaining default export value to a
// synthetic constant.
func defaultExpressionEdits(src string) []edit {
	var edits []edit
	n := 0
	last := 0
	for _, loc := range defaultExpression.FindAllStringIndex(src, -1) {
		if loc[0] < last {
			continue
		}

		end := scanner.FindStatementEnd(src, loc[1])
		expr := strings.TrimSuffix(strings.TrimSpace(src[loc[1]:end]), ";")

		name := DefaultBinding
		if n++; n > 1 {
			name = fmt.Sprintf("%s%d", DefaultBinding, n)
		}

		edits = append(edits, edit{
			start:   loc[0],
			end:     end,
			text:    "const " + name + " = " + strings.TrimSpace(expr) + ";",
			exports: []Export{{Name: name, Default: true}},
		})
		last = end
	}

	return edits
}

// RewriteExports applies CollectExports and appends the ordered exports
// block to the code.
func RewriteExports(src string) string {
	code, exports := CollectExports(src)
	if len(exports) == 0 {
		return code
	}

	lines := make([]string, len(exports))
	for i, e := range exports {
		lines[i] = e.Statement()
	}

	return strings.TrimRight(code, " \t\r\n") + "\n\n" + strings.Join(lines, "\n") + "\n"
}

// collector accumulates exports across rewrite passes, keeping every
// recorded offset in the coordinates of the latest rewritten code.
type collector struct {
	exports []Export
}

func (c *collector) rewrite(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}

	for i := range c.exports {
		c.exports[i].Offset = rebase(c.exports[i].Offset, edits)
	}

	delta := 0
	for _, e := range edits {
		for _, exp := range e.exports {
			exp.Offset = e.start + delta
			c.exports = append(c.exports, exp)
		}
		delta += len(e.text) - (e.end - e.start)
	}

	return applyEdits(src, edits)
}

// rebase maps an offset in the input of edits to the rewritten output. An
// offset inside a replaced span maps to the start of its replacement.
func rebase(offset int, edits []edit) int {
	delta := 0
	for _, e := range edits {
		switch {
		case e.end <= offset && e.start < offset:
			delta += len(e.text) - (e.end - e.start)
		case e.start <= offset && offset < e.end:
			return e.start + delta
		default:
			return offset + delta
		}
	}

	return offset + delta
}
