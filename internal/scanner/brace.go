package scanner

// FindMatchingBrace returns the index of the '}' that balances the '{' at
// start, or -1 if the brace is never closed. Braces inside string and quasi
// literals and inside comments are ignored.
func FindMatchingBrace(src string, start int) int {
	if start < 0 || start >= len(src) || src[start] != '{' {
		return -1
	}

	depth := 0
	st := stateCode

	for i := start; i < len(src); i++ {
		c := src[i]

		switch st {
		case stateLineComment:
			if c == '\n' {
				st = stateCode
			}
			continue
		case stateBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				st = stateCode
				i++
			}
			continue
		case stateSingle, stateDouble, stateQuasi:
			if c == '\\' {
				i++
			} else if c == st.closer() {
				st = stateCode
			}
			continue
		}

		if c == '/' && i+1 < len(src) {
			if src[i+1] == '/' {
				st = stateLineComment
				i++
				continue
			}
			if src[i+1] == '*' {
				st = stateBlockComment
				i++
				continue
			}
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		default:
			st = opener(c)
		}
	}

	return -1
}

// FindStatementEnd returns the index just past the expression statement that
// starts at start: the first ';' outside brackets and literals is included,
// and an unbalanced closing bracket or the end of input stops the scan.
func FindStatementEnd(src string, start int) int {
	depth := 0
	st := stateCode

	for i := start; i < len(src); i++ {
		c := src[i]

		switch st {
		case stateSingle, stateDouble, stateQuasi:
			if c == '\\' {
				i++
			} else if c == st.closer() {
				st = stateCode
			}
			continue
		}

		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return i
			}
			depth--
		case ';':
			if depth == 0 {
				return i + 1
			}
		default:
			st = opener(c)
		}
	}

	return len(src)
}
