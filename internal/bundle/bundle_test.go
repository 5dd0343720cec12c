package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jsplus/internal/graph"
	"github.com/conneroisu/jsplus/internal/logging"
)

// page is a JavaScript VM with a console that records log calls.
type page struct {
	vm   *goja.Runtime
	logs []string
}

func newPage(t *testing.T) *page {
	t.Helper()
	p := &page{vm: goja.New()}

	console := p.vm.NewObject()
	require.NoError(t, console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		p.logs = append(p.logs, strings.Join(parts, " "))
		return goja.Undefined()
	}))
	require.NoError(t, p.vm.Set("console", console))

	return p
}

func (p *page) run(t *testing.T, code string) {
	t.Helper()
	_, err := p.vm.RunString(code)
	require.NoError(t, err)
}

func node(id, code string, mapping map[string]string) *graph.Node {
	return &graph.Node{ID: id, Filename: id, Code: code, Mapping: mapping}
}

func graphOf(nodes ...*graph.Node) *graph.Graph {
	g := graph.New()
	for _, n := range nodes {
		g.Add(n)
	}
	return g
}

func assemble(t *testing.T, a *Assembler, g *graph.Graph, includeRuntime bool) *Output {
	t.Helper()
	out, err := a.Assemble(g, g.Entry().ID, includeRuntime)
	require.NoError(t, err)
	return out
}

func TestSerialize(t *testing.T) {
	a := &Assembler{}
	modules, err := a.Serialize([]*graph.Node{
		node("/src/a.js", "exports.a = 1;", map[string]string{"./b.js": "/src/b.js"}),
		node("/src/b.js", "exports.b = 2;", nil),
	})
	require.NoError(t, err)

	assert.Equal(t,
		`{"/src/a.js":[function(require, exports, module){exports.a = 1;},{"./b.js":"/src/b.js"}],`+
			`"/src/b.js":[function(require, exports, module){exports.b = 2;},{}]}`,
		modules)

	empty, err := a.Serialize(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)
}

func TestSerializeKeepsIDsVerbatim(t *testing.T) {
	a := &Assembler{}
	modules, err := a.Serialize([]*graph.Node{
		node("/src/a&b/<x>.js", "exports.a = 1;", map[string]string{"./b.js/<HTTP>/": "/src/a&b/b.js/<HTTP>/"}),
		node("/src/line\u2028sep.js", "", nil),
	})
	require.NoError(t, err)

	assert.Contains(t, modules, `"/src/a&b/<x>.js":`)
	assert.Contains(t, modules, `{"./b.js/<HTTP>/":"/src/a&b/b.js/<HTTP>/"}`)
	assert.Contains(t, modules, `"/src/line\u2028sep.js":`)
	assert.Contains(t, RuntimeSource("", "{}", "/a&b/<x>.js"), `"/a&b/<x>.js"`)
}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"),
		[]byte("import {a} from \"./b.js\"; console.log(a);\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"),
		[]byte("export const a = 42;\n"), 0644))

	logger := logging.NewNopLogger()
	copier := graph.NewAssetCopier(logger, 1)
	g, err := graph.NewBuilder(logger, copier).Build(context.Background(), filepath.Join(dir, "index.js"), filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	copier.Wait()

	out, err := (&Assembler{}).Assemble(g, filepath.Join(dir, "index.js"), true)
	require.NoError(t, err)
	assert.Len(t, out.Modules, 2)
	assert.Empty(t, out.Separated)

	p := newPage(t)
	p.run(t, out.Code)
	assert.Equal(t, []string{"42"}, p.logs)
}

func TestIdempotentRegistration(t *testing.T) {
	p := newPage(t)
	first := graphOf(node("m.js", `console.log("A");`, nil))
	p.run(t, assemble(t, &Assembler{}, first, true).Code)

	p.run(t, `__jsplus__.register({"m.js":[function(require, exports, module){console.log("B");},{}]});`)
	p.run(t, `__jsplus__.resolve("m.js");`)

	assert.Equal(t, []string{"A"}, p.logs)
}

func TestAtMostOnceExecution(t *testing.T) {
	p := newPage(t)
	g := graphOf(
		node("main.js", `var a = require("./a.js"); var again = require("./a.js"); console.log(a === again, a.ready);`,
			map[string]string{"./a.js": "a.js"}),
		node("a.js", `console.log("a runs"); var b = require("./b.js"); exports.ready = b.seen;`,
			map[string]string{"./b.js": "b.js"}),
		node("b.js", `console.log("b runs"); var a = require("./a.js"); exports.seen = typeof a === "object";`,
			map[string]string{"./a.js": "a.js"}),
	)
	p.run(t, assemble(t, &Assembler{}, g, true).Code)

	assert.Equal(t, []string{"a runs", "b runs", "true true"}, p.logs)
}

func TestResolveEdgeCases(t *testing.T) {
	p := newPage(t)
	p.run(t, assemble(t, &Assembler{}, graphOf(node("main.js", `exports.ok = true;`, nil)), true).Code)

	value, err := p.vm.RunString(`__jsplus__.resolve("logo.png")`)
	require.NoError(t, err)
	assert.True(t, goja.IsUndefined(value))

	value, err = p.vm.RunString(`__jsplus__.resolve("")`)
	require.NoError(t, err)
	assert.True(t, goja.IsUndefined(value))

	_, err = p.vm.RunString(`__jsplus__.resolve("missing.js")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Module not found: missing.js")

	// the failed require leaves the registry usable
	value, err = p.vm.RunString(`__jsplus__.resolve("main.js").ok`)
	require.NoError(t, err)
	assert.Equal(t, true, value.Export())
}

func TestHeadlessBundle(t *testing.T) {
	p := newPage(t)
	p.run(t, assemble(t, &Assembler{}, graphOf(node("main.js", `console.log("main");`, nil)), true).Code)

	headless := assemble(t, &Assembler{}, graphOf(
		node("extra.js", `console.log("extra", require("./util.js").n);`, map[string]string{"./util.js": "util.js"}),
		node("util.js", `exports.n = 7;`, nil),
	), false)
	assert.NotContains(t, headless.Code, "createRuntime")
	assert.Contains(t, headless.Code, RuntimeGlobal)

	p.run(t, headless.Code)
	assert.Equal(t, []string{"main", "extra 7"}, p.logs)
}

func TestSecondRuntimeSharesRegistry(t *testing.T) {
	p := newPage(t)
	p.run(t, assemble(t, &Assembler{}, graphOf(node("one.js", `exports.v = 1;`, nil)), true).Code)
	p.run(t, assemble(t, &Assembler{}, graphOf(
		node("two.js", `console.log(require("./one.js").v);`, map[string]string{"./one.js": "one.js"}),
	), true).Code)

	assert.Equal(t, []string{"1"}, p.logs)
}

// fakeDocument records injected script elements instead of fetching them.
const fakeDocument = `
var scripts = [];
var document = {
  head: { appendChild: function(s) { scripts.push(s); } },
  createElement: function() {
    return { setAttribute: function(k, v) { this[k] = v; } };
  }
};
`

func TestNetworkSeparatedLoad(t *testing.T) {
	p := newPage(t)
	p.run(t, fakeDocument)

	g := graphOf(
		node("&/main.js", `
var first = require("./remote.js/<HTTP>/");
var second = require("./remote.js/<HTTP>/");
console.log(first === second);
first.then(function(m) { console.log("loaded", m.r); });`, map[string]string{
			"./remote.js/<HTTP>/": "&/remote.js/<HTTP>/",
		}),
		node("&/remote.js", `exports.r = 5;`, nil),
	)
	g.Nodes[1].Separated = true

	a := &Assembler{Host: "http://cdn.test"}
	out := assemble(t, a, g, true)
	require.Len(t, out.Separated, 1)
	assert.Equal(t, []string{"&/main.js"}, out.Modules)

	p.run(t, out.Code)
	src, err := p.vm.RunString(`scripts.length + " " + scripts[0].src`)
	require.NoError(t, err)
	assert.Equal(t, "1 http://cdn.test/remote.js", src.String())

	remote := assemble(t, a, graphOf(out.Separated[0]), false)
	p.run(t, remote.Code)
	p.run(t, `scripts[0].onload();`)

	assert.Equal(t, []string{"true", "loaded 5"}, p.logs)
}

func TestNetworkSeparatedNamespaces(t *testing.T) {
	p := newPage(t)
	p.run(t, fakeDocument)

	g := graphOf(node("&/main.js", `
require("./remote.js/<HTTPS>/one");
require("./remote.js/<HTTPS>/two");
require("./remote.js/<HTTPS>/one");
require("https://api.test/rpc.js/<HTTPS>/&/rpc.js").then(function(m) { console.log("rpc", m.ok); });`, map[string]string{
		"./remote.js/<HTTPS>/one":                  "&/remote.js/<HTTPS>/one",
		"./remote.js/<HTTPS>/two":                  "&/remote.js/<HTTPS>/two",
		"https://api.test/rpc.js/<HTTPS>/&/rpc.js": "https://api.test/rpc.js/<HTTPS>/&/rpc.js",
	}))
	p.run(t, assemble(t, &Assembler{Host: "https://cdn.test"}, g, true).Code)

	value, err := p.vm.RunString(`scripts.map(function(s) { return s.src; }).join(",")`)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/remote.js,https://cdn.test/remote.js,https://api.test/rpc.js", value.String())

	// the remote bundle registers under the namespace, not the URL
	p.run(t, `__jsplus__.register({"&/rpc.js":[function(require, exports){exports.ok = "yes";},{}]});`)
	p.run(t, `scripts[2].onload();`)
	assert.Equal(t, []string{"rpc yes"}, p.logs)
}

func TestNetworkLoadFailureRejects(t *testing.T) {
	p := newPage(t)
	p.run(t, fakeDocument)
	p.run(t, assemble(t, &Assembler{Host: "http://cdn.test"}, graphOf(node("&/main.js",
		`require("./gone.js/<HTTP>/").catch(function(err) { console.log("failed", err); });`,
		map[string]string{"./gone.js/<HTTP>/": "&/gone.js/<HTTP>/"})), true).Code)

	p.run(t, `scripts[0].onerror("boom");`)
	assert.Equal(t, []string{"failed boom"}, p.logs)
}

func TestHostFromLocation(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"http://example.test/app/index.html?x=1", "http://example.test/app/remote.js"},
		{"http://example.test/app/", "http://example.test/remote.js"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			p := newPage(t)
			p.run(t, fakeDocument)
			p.run(t, `var location = { href: "`+tt.href+`" };`)
			main := node("&/main.js", `require("./remote.js/<HTTP>/");`,
				map[string]string{"./remote.js/<HTTP>/": "&/remote.js/<HTTP>/"})
			p.run(t, assemble(t, &Assembler{}, graphOf(main), true).Code)

			src, err := p.vm.RunString(`scripts[0].src`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.String())
		})
	}
}

func TestEnsureJSExtension(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"dist/index.js", "dist/index.js"},
		{"dist/index.mjs", "dist/index.js"},
		{"dist/bundle", "dist/bundle.js"},
		{"dist/app.min.css", "dist/app.min.js"},
		{"dist/app.ts?v=1", "dist/app.js"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EnsureJSExtension(tt.in), tt.in)
	}
}

func TestRuntimeSourceHost(t *testing.T) {
	assert.Contains(t, RuntimeSource("", "{}", "a.js"), `,null,{},"a.js");`)
	assert.Contains(t, RuntimeSource("http://h", "{}", "a.js"), `,"http://h",{},"a.js");`)
	assert.NotContains(t, runtimeBootstrap, "// ")
}
