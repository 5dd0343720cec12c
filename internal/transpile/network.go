package transpile

import (
	"regexp"
	"strings"
)

// Network separation markers embedded in module ids.
const (
	MarkerHTTP  = "/<HTTP>/"
	MarkerHTTPS = "/<HTTPS>/"
)

var networkCall = regexp.MustCompile(`require\s*\(\s*([^)]+?)\s*\)\s*\.\s*(https?)\s*\(\s*([^)]*?)\s*\)`)

// MergeNetworkCalls folds .http(ns) and .https(ns) calls into the module id
// of the require they follow:
//
//	require("./x.js").http()        ->  require("./x.js/<HTTP>/")
//	require("./x.js").http("&/ns")  ->  require("./x.js/<HTTP>/&/ns")
//	require(name).https(ns)         ->  require(name + "/<HTTPS>/" + ns)
//
// Literal ids are merged into a single literal; anything else falls back to
// string concatenation.
func MergeNetworkCalls(src string) string {
	return replaceAll(src, networkCall, func(g []string) string {
		id, proto, arg := g[1], g[2], g[3]
		marker := MarkerHTTP
		if proto == "https" {
			marker = MarkerHTTPS
		}

		if !isStringLiteral(id) {
			if arg == "" {
				return "require(" + id + ` + "` + marker + `")`
			}
			return "require(" + id + ` + "` + marker + `" + ` + arg + ")"
		}

		quote := id[:1]
		merged := id[1:len(id)-1] + marker
		switch {
		case arg == "":
		case isStringLiteral(arg) && mergeable(arg[1:len(arg)-1], quote):
			merged += arg[1 : len(arg)-1]
		default:
			return "require(" + id + ` + "` + marker + `" + ` + arg + ")"
		}

		return "require(" + quote + merged + quote + ")"
	})
}

// mergeable reports whether a literal body can be spliced into an id
// delimited by quote.
func mergeable(body, quote string) bool {
	return !strings.Contains(body, "${") && !strings.Contains(body, quote) && !strings.Contains(body, `\`)
}

func isStringLiteral(s string) bool {
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case '"', '\'', '`':
		return s[len(s)-1] == s[0] && !strings.ContainsRune(s[1:len(s)-1], rune(s[0]))
	default:
		return false
	}
}

var requireCall = regexp.MustCompile(`require\(\s*(?:"([^"]*)"|'([^']*)')\s*\)`)

// Dependencies returns the literal module ids passed to require in code, in
// order of appearance. Duplicates are kept.
func Dependencies(code string) []string {
	var deps []string
	for _, m := range requireCall.FindAllStringSubmatch(code, -1) {
		dep := m[1]
		if dep == "" {
			dep = m[2]
		}
		deps = append(deps, dep)
	}

	return deps
}
