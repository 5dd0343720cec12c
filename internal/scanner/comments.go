package scanner

// StripComments removes line and block comments from script source.
//
// Comment markers inside string, quasi and pattern literals are preserved.
// A line comment's terminating newline is kept so that line structure (and
// automatic semicolon insertion) survives.
func StripComments(src string) string {
	return stripComments(src, true)
}

// StripStyleComments removes block comments from a stylesheet. Stylesheets
// have no line comments, so "//" in url(https://...) is left alone.
func StripStyleComments(src string) string {
	return stripComments(src, false)
}

func stripComments(src string, script bool) string {
	out := make([]byte, 0, len(src))
	st := stateCode

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch st {
		case stateBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				st = stateCode
				i++
			}
			continue

		case stateLineComment:
			if c == '\n' {
				st = stateCode
				out = append(out, c)
			}
			continue

		case stateSingle, stateDouble, stateQuasi, statePattern:
			out = append(out, c)
			if c == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
				continue
			}
			if c == st.closer() || (st == statePattern && c == '\n') {
				st = stateCode
			}
			continue
		}

		if c == '/' && i+1 < len(src) {
			switch {
			case src[i+1] == '*':
				st = stateBlockComment
				i++
				continue
			case src[i+1] == '/' && script:
				st = stateLineComment
				i++
				continue
			}
		}

		switch next := opener(c); {
		case next == stateQuasi && !script:
		case next != stateCode:
			st = next
		case c == '/' && script && opensPattern(out):
			st = statePattern
		}
		out = append(out, c)
	}

	return string(out)
}
