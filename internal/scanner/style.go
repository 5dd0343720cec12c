package scanner

import "strings"

// Whitespace is dropped after these bytes...
const styleTightAfter = "{};:,>(="

// ...and before these.
const styleTightBefore = "{};:,>)="

// CleanUpStyle collapses whitespace in a stylesheet that has already had its
// comments removed.
//
// All string literals are normalized to double quotes. A semicolon directly
// before a closing brace is removed, and "and(" in media queries regains the
// space that browsers require.
func CleanUpStyle(src string) string {
	out := make([]byte, 0, len(src))
	var quote byte
	pendingSpace := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(src):
				out = append(out, c, src[i+1])
				i++
			case c == quote:
				out = append(out, '"')
				quote = 0
			case c == '"':
				out = append(out, '\\', '"')
			default:
				out = append(out, c)
			}
			continue
		}

		if isSpace(c) {
			pendingSpace = true
			continue
		}

		if c == '}' {
			for lastByte(out) == ';' {
				out = out[:len(out)-1]
			}
		}

		if pendingSpace && len(out) > 0 &&
			strings.IndexByte(styleTightAfter, lastByte(out)) < 0 &&
			strings.IndexByte(styleTightBefore, c) < 0 {
			out = append(out, ' ')
		}
		pendingSpace = false

		if c == '\'' || c == '"' {
			quote = c
			out = append(out, '"')
			continue
		}

		if c == '(' && endsWithWord(out, "and") {
			out = append(out, ' ')
		}
		out = append(out, c)
	}

	return string(out)
}

func endsWithWord(b []byte, word string) bool {
	if len(b) < len(word) || string(b[len(b)-len(word):]) != word {
		return false
	}
	return len(b) == len(word) || !isIdentByte(b[len(b)-len(word)-1]) && b[len(b)-len(word)-1] != '-'
}
