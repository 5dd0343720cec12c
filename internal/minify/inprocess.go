package minify

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	tdminify "github.com/tdewolff/minify/v2"
	tdjs "github.com/tdewolff/minify/v2/js"
)

// EsbuildTier minifies in process with esbuild's transform API. Identifiers
// are left alone so require, exports and module keep their names.
type EsbuildTier struct{}

func (EsbuildTier) Name() string { return "esbuild" }

func (EsbuildTier) Minify(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result := api.Transform(src, api.TransformOptions{
		Loader:           api.LoaderJS,
		Target:           api.ESNext,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LegalComments:    api.LegalCommentsNone,
		Charset:          api.CharsetUTF8,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, message := range result.Errors {
			msgs[i] = message.Text
		}
		return "", fmt.Errorf("esbuild: %s", strings.Join(msgs, "; "))
	}

	return strings.TrimSpace(string(result.Code)), nil
}

const jsMediaType = "application/javascript"

// TdewolffTier minifies in process with tdewolff/minify.
type TdewolffTier struct {
	m *tdminify.M
}

// NewTdewolffTier creates the tier.
func NewTdewolffTier() *TdewolffTier {
	m := tdminify.New()
	m.Add(jsMediaType, &tdjs.Minifier{KeepVarNames: true})
	return &TdewolffTier{m: m}
}

func (t *TdewolffTier) Name() string { return "tdewolff" }

func (t *TdewolffTier) Minify(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.m.String(jsMediaType, src)
}
