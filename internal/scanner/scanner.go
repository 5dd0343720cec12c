// Package scanner implements the character-level text processors used to
// minimize module sources without a real parser.
//
// Every processor is a single left-to-right scan that tracks which literal,
// if any, the current position is inside: single- or double-quoted strings,
// quasi literals (template strings) and pattern literals (regular
// expressions). Comment markers and whitespace inside literals are never
// touched. All processors are total: unbalanced literals simply run to the
// end of the input.
//
// Pattern literal detection is heuristic. A slash opens a pattern only when
// the preceding non-space token is an operator or opening punctuator, a
// statement keyword (return, case, throw) or nothing at all. Division after
// an identifier, number or closing bracket is therefore handled correctly,
// but adversarial code can still be misclassified.
package scanner

import (
	"path/filepath"
	"strings"
)

// Kind is the declared content kind of a source text.
type Kind int

const (
	KindScript Kind = iota
	KindStyle
	KindMarkup
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStyle:
		return "style"
	case KindMarkup:
		return "markup"
	default:
		return "unknown"
	}
}

// KindFromExt maps a file extension to the content kind used to minimize it.
func KindFromExt(ext string) Kind {
	switch strings.ToLower(ext) {
	case ".css":
		return KindStyle
	case ".html", ".htm", ".svg", ".xml":
		return KindMarkup
	default:
		return KindScript
	}
}

// KindFromPath is KindFromExt applied to the extension of path.
func KindFromPath(path string) Kind {
	return KindFromExt(filepath.Ext(path))
}

// Minimize strips comments and collapses whitespace according to kind.
func Minimize(src string, kind Kind) string {
	switch kind {
	case KindStyle:
		return CleanUpStyle(StripStyleComments(src))
	case KindMarkup:
		stripped, err := StripMarkupComments(src)
		if err != nil {
			stripped = src
		}
		return MinifyMarkup(stripped)
	default:
		return CleanUpCode(StripComments(src))
	}
}

// state is the literal or comment the scan position is currently inside.
type state int

const (
	stateCode state = iota
	stateSingle
	stateDouble
	stateQuasi
	statePattern
	stateBlockComment
	stateLineComment
)

// closer returns the delimiter that ends a literal state.
func (s state) closer() byte {
	switch s {
	case stateSingle:
		return '\''
	case stateDouble:
		return '"'
	case stateQuasi:
		return '`'
	case statePattern:
		return '/'
	default:
		return 0
	}
}

// opener returns the literal state started by c, or stateCode.
func opener(c byte) state {
	switch c {
	case '\'':
		return stateSingle
	case '"':
		return stateDouble
	case '`':
		return stateQuasi
	default:
		return stateCode
	}
}

const patternPrefixes = "([=:,!?{};+-*/"

var patternKeywords = map[string]bool{
	"return": true,
	"case":   true,
	"throw":  true,
}

// opensPattern reports whether a slash following the already emitted text
// starts a pattern literal rather than a division.
func opensPattern(emitted []byte) bool {
	i := len(emitted) - 1
	for i >= 0 && isSpace(emitted[i]) {
		i--
	}
	if i < 0 {
		return true
	}

	if strings.IndexByte(patternPrefixes, emitted[i]) >= 0 {
		return true
	}

	j := i
	for j >= 0 && isIdentByte(emitted[j]) {
		j--
	}
	if j == i {
		return false
	}
	if j >= 0 && emitted[j] == '.' {
		return false
	}

	return patternKeywords[string(emitted[j+1:i+1])]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c >= 0x80
}

func lastByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1]
}
