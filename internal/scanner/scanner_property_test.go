//go:build property

package scanner

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestScannerProperties validates the literal-preservation and idempotence
// properties of the text processors.
func TestScannerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	codeChars := gen.RuneRange(' ', '~').SuchThat(func(r rune) bool {
		return !strings.ContainsRune("\"'`/\\", r)
	})
	codeText := gen.SliceOf(codeChars).Map(func(rs []rune) string { return string(rs) })

	// Property: text without a slash has nothing to strip
	properties.Property("slash-free text is unchanged", prop.ForAll(
		func(s string) bool {
			return StripComments(s) == s
		},
		codeText,
	))

	// Property: comment markers inside a string literal survive
	properties.Property("string literal contents are preserved", prop.ForAll(
		func(s string) bool {
			src := `x = "` + s + `// /* */";`
			return StripComments(src) == src
		},
		codeText,
	))

	// Property: collapsing whitespace twice changes nothing
	properties.Property("CleanUpCode is idempotent", prop.ForAll(
		func(s string) bool {
			once := CleanUpCode(s)
			return CleanUpCode(once) == once
		},
		codeText,
	))

	properties.Property("MinifyMarkup is idempotent", prop.ForAll(
		func(s string) bool {
			once := MinifyMarkup(s)
			return MinifyMarkup(once) == once
		},
		gen.AnyString(),
	))

	// Property: n nested braces close at index 2n-1
	properties.Property("nested braces match", prop.ForAll(
		func(n int) bool {
			src := strings.Repeat("{", n) + strings.Repeat("}", n)
			return FindMatchingBrace(src, 0) == 2*n-1
		},
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}
