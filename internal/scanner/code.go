package scanner

import (
	"bytes"
	"strings"
)

// structural bytes never need surrounding whitespace in script code.
const structural = "{}()[];,:"

func isStructural(c byte) bool {
	return c != 0 && strings.IndexByte(structural, c) >= 0
}

// CleanUpCode collapses whitespace in script code that has already had its
// comments removed.
//
// Outside literals, whitespace runs become a single space, and are dropped
// entirely next to structural punctuation or at either end of the input.
// String and pattern literals are copied verbatim. Quasi literals have their
// line breaks and tabs folded into spaces; a quasi literal assigned directly
// to an innerHTML property is additionally minimized as markup.
func CleanUpCode(src string) string {
	out := make([]byte, 0, len(src))
	var quasi []byte
	st := stateCode
	pendingSpace := false
	innerHTML := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch st {
		case stateQuasi:
			switch {
			case c == '\\' && i+1 < len(src):
				quasi = append(quasi, c, src[i+1])
				i++
			case c == '`':
				if innerHTML {
					out = append(out, MinifyMarkup(string(quasi))...)
				} else {
					out = append(out, quasi...)
				}
				out = append(out, c)
				quasi = quasi[:0]
				innerHTML = false
				st = stateCode
			case c == '\n' || c == '\r' || c == '\t':
				if lastByte(quasi) != ' ' {
					quasi = append(quasi, ' ')
				}
			default:
				quasi = append(quasi, c)
			}
			continue

		case stateSingle, stateDouble, statePattern:
			out = append(out, c)
			if c == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
				continue
			}
			if c == st.closer() {
				st = stateCode
			}
			continue
		}

		if isSpace(c) {
			pendingSpace = true
			continue
		}

		if pendingSpace && len(out) > 0 && !isStructural(lastByte(out)) && !isStructural(c) {
			out = append(out, ' ')
		}
		pendingSpace = false

		if next := opener(c); next != stateCode {
			if next == stateQuasi {
				innerHTML = followsInnerHTML(out)
			}
			st = next
		} else if c == '/' && opensPattern(out) {
			st = statePattern
		}
		out = append(out, c)
	}

	// unterminated quasi literal runs to end of input
	if st == stateQuasi {
		out = append(out, quasi...)
	}

	return string(out)
}

var innerHTMLProp = []byte("innerHTML")

// followsInnerHTML reports whether emitted ends with an "innerHTML =" assignment.
func followsInnerHTML(emitted []byte) bool {
	s := bytes.TrimRight(emitted, " ")
	if lastByte(s) != '=' {
		return false
	}
	s = bytes.TrimRight(s[:len(s)-1], " ")
	return bytes.HasSuffix(s, innerHTMLProp)
}

// OneLine flattens script source onto a single line.
//
// Line breaks inside quoted strings are re-encoded as \n escapes and line
// continuations are removed. Line breaks inside quasi literals become
// spaces. Outside literals, whitespace runs collapse to one space, and are
// removed entirely where they split a member-call chain
// ("foo\n  .bar()" becomes "foo.bar()").
func OneLine(src string) string {
	out := make([]byte, 0, len(src))
	st := stateCode

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch st {
		case stateSingle, stateDouble, stateQuasi, statePattern:
			if c == '\\' && i+1 < len(src) {
				i++
				switch src[i] {
				case '\n':
				case '\r':
					if i+1 < len(src) && src[i+1] == '\n' {
						i++
					}
				default:
					out = append(out, c, src[i])
				}
				continue
			}

			if c == '\n' || c == '\r' {
				switch st {
				case stateQuasi:
					if lastByte(out) != ' ' {
						out = append(out, ' ')
					}
				case statePattern:
					st = stateCode
				default:
					if c == '\n' {
						out = append(out, '\\', 'n')
					} else {
						out = append(out, '\\', 'r')
					}
				}
				continue
			}

			out = append(out, c)
			if c == st.closer() {
				st = stateCode
			}
			continue
		}

		if isSpace(c) {
			j := i
			lineBreak := false
			for j < len(src) && isSpace(src[j]) {
				if src[j] == '\n' || src[j] == '\r' {
					lineBreak = true
				}
				j++
			}
			i = j - 1

			switch {
			case len(out) == 0 || j == len(src):
			case lineBreak && lastByte(out) == '.':
			case src[j] == '.' && isMethodCall(src[j+1:]):
			default:
				out = append(out, ' ')
			}
			continue
		}

		if next := opener(c); next != stateCode {
			st = next
		} else if c == '/' && opensPattern(out) {
			st = statePattern
		}
		out = append(out, c)
	}

	return string(out)
}

// isMethodCall reports whether s starts with an identifier immediately
// followed by an opening parenthesis.
func isMethodCall(s string) bool {
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return i > 0 && i < len(s) && s[i] == '('
}
