package scanner

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	interTagSpace = regexp.MustCompile(`>\s+<`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// MinifyMarkup removes whitespace between tags, collapses every other
// whitespace run to a single space and trims the result.
func MinifyMarkup(src string) string {
	s := interTagSpace.ReplaceAllString(src, "><")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripMarkupComments removes <!-- --> comments from HTML, SVG or XML text.
// Processing instructions and CDATA sections are kept. The contents of script
// and style elements are minimized as script and stylesheet text.
func StripMarkupComments(src string) (string, error) {
	var out strings.Builder
	out.Grow(len(src))

	z := html.NewTokenizer(strings.NewReader(src))
	var rawElement string

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out.String(), nil
			}
			return "", z.Err()

		case html.CommentToken:
			raw := z.Raw()
			if !bytes.HasPrefix(raw, []byte("<!--")) {
				out.Write(raw)
			}

		case html.StartTagToken:
			out.Write(z.Raw())
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				rawElement = string(name)
			}

		case html.EndTagToken:
			out.Write(z.Raw())
			rawElement = ""

		case html.TextToken:
			switch rawElement {
			case "script":
				out.WriteString(Minimize(string(z.Raw()), KindScript))
			case "style":
				out.WriteString(Minimize(string(z.Raw()), KindStyle))
			default:
				out.Write(z.Raw())
			}

		default:
			out.Write(z.Raw())
		}
	}
}
