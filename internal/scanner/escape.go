package scanner

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var doubleQuoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// EscapeForDoubleQuote escapes s so it can be embedded between double quotes
// in script code. Backslashes and quotes are escaped, and every line break
// (including U+2028 and U+2029) becomes an escape sequence.
func EscapeForDoubleQuote(s string) string {
	return doubleQuoteEscaper.Replace(s)
}

// DecodeSource converts raw file bytes to UTF-8 text. A leading byte order
// mark selects UTF-8 or UTF-16 decoding and is removed; without one the
// input is treated as UTF-8 and invalid sequences become U+FFFD.
func DecodeSource(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
