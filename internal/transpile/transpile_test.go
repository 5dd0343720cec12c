package transpile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// normalize collapses all whitespace so tests compare token streams.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestTranspile(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "default and named imports and exports",
			input: `
import foo, { a1, a2 } from "./bar.js";
import { x, y } from "./baz.js";

export function baz() {}
export default function qux() {}
export const val = 123;`,
			want: `
const foo = require("./bar.js").default;
const a1 = require("./bar.js").a1;
const a2 = require("./bar.js").a2;
const x = require("./baz.js").x;
const y = require("./baz.js").y;

function baz() {}
function qux() {}
const val = 123;

exports.baz = baz;
exports.default = qux;
exports.val = val;`,
		},
		{
			name:  "re-export",
			input: `export { lock } from "./lock.js";`,
			want:  `exports.lock = require("./lock.js").lock;`,
		},
		{
			name:  "re-export multiple with alias",
			input: `export { a, b as beta, c } from "./module.js";`,
			want: `exports.a = require("./module.js").a;
exports.beta = require("./module.js").b;
exports.c = require("./module.js").c;`,
		},
		{
			name:  "star re-export",
			input: `export * from "./all.js";`,
			want:  `(function(m){for(var k in m){if(k!=="default"){exports[k]=m[k];}}})(require("./all.js"));`,
		},
		{
			name: "named import with alias",
			input: `import { orig1 as a1, orig2 as a2 } from "./other.js";
console.log(a1, a2);`,
			want: `const a1 = require("./other.js").orig1;
const a2 = require("./other.js").orig2;
console.log(a1, a2);`,
		},
		{
			name:  "namespace import",
			input: `import * as api from './api.js';`,
			want:  `const api = require('./api.js');`,
		},
		{
			name: "list exports with alias",
			input: `function foo() {}
const baz = () => {};
export { foo as f, baz as b, baz as default };`,
			want: `function foo() {}
const baz = () => {};

exports.f = foo;
exports.b = baz;
exports.default = baz;`,
		},
		{
			name: "default function before list",
			input: `function foo() {}
export default function main() {}
export { foo };`,
			want: `function foo() {}
function main() {}

exports.default = main;
exports.foo = foo;`,
		},
		{
			name: "side-effect imports",
			input: `import "./global.js";
import './styles.css';`,
			want: `require("./global.js");
require('./styles.css');`,
		},
		{
			name: "default identifier export",
			input: `function getSecretMessage() {};
export default getSecretMessage;`,
			want: `function getSecretMessage() {};

exports.default = getSecretMessage;`,
		},
		{
			name: "default assignment declares binding",
			input: `export default greetings = {
  message: "Hello World!"
};
export default greetings;`,
			want: `const greetings = { message: "Hello World!" };

exports.default = greetings;
exports.default = greetings;`,
		},
		{
			name: "anonymous default values bound once",
			input: `export default {
  hello() { return "hi"; }
};
export default [1, 2, 3];`,
			want: `const __default__ = { hello() { return "hi"; } };
const __default__2 = [1, 2, 3];

exports.default = __default__;
exports.default = __default__2;`,
		},
		{
			name: "anonymous function and class",
			input: `export default function() {
  return "anon fn";
}
export default class extends Base {
  sayHi() { return "}"; }
}`,
			want: `exports.default = function() {
  return "anon fn";
};
exports.default = class extends Base {
  sayHi() { return "}"; }
};`,
		},
		{
			name:  "async default function",
			input: `export default async function load() { await x(); }`,
			want: `async function load() { await x(); }

exports.default = load;`,
		},
		{
			name:  "arrow default is an expression",
			input: `export default x => x * 2;`,
			want: `const __default__ = x => x * 2;

exports.default = __default__;`,
		},
		{
			name:  "static import attributes",
			input: `import colors from "./colors.json" with { type: "json" };`,
			want:  `const colors = require("./colors.json").default;`,
		},
		{
			name: "dynamic import attributes",
			input: `import("./dynamic/styles.css", {
  with: { type: "css" }
});`,
			want: `require("./dynamic/styles.css").http();`,
		},
		{
			name: "dynamic import awaited",
			input: `async function load() {
  const mod = await import("./remote.js");
  return mod.http();
}`,
			want: `async function load() {
  const mod = await require("./remote.js").http();
  return mod.http();
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, normalize(tt.want), normalize(Transpile(tt.input)))
		})
	}
}

func TestRewriteDynamicImports(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`import("./remote.js")`, `require("./remote.js").http()`},
		{`import("./remote.js").then()`, `require("./remote.js").http().then()`},
		{`import("./remote.js").http()`, `require("./remote.js").http()`},
		{`import("./remote.js").http("&/namespace")`, `require("./remote.js").http("&/namespace")`},
		{`import("./remote.js").https("&/namespace")`, `require("./remote.js").https("&/namespace")`},
		{
			`import("http://localhost:4001/resources/rpc.js").namespace("&/products-service/resources/rpc.js").then()`,
			`require("http://localhost:4001/resources/rpc.js").http("&/products-service/resources/rpc.js").then()`,
		},
		{`import('./a.js') . then (f)`, `require('./a.js').http().then(f)`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteDynamicImports(tt.input))
		})
	}
}

func TestCollectExportsOrdering(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "declarations",
			input: `export const a = 1; export const b = 2;`,
			want:  []string{"a", "b"},
		},
		{
			name:  "list after declaration",
			input: `export const a = 1; const b = 2; export { b };`,
			want:  []string{"a", "b"},
		},
		{
			name:  "list before function",
			input: `const a = 1; export { a }; export function b() {}`,
			want:  []string{"a", "b"},
		},
		{
			name:  "mixed forms",
			input: `export class A {} const b = 1; export { b }; export let c; export function d() {}`,
			want:  []string{"A", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exports := CollectExports(tt.input)
			assert.NotContains(t, code, "export ")

			names := make([]string, len(exports))
			for i, e := range exports {
				names[i] = e.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTranspileRemovesModuleSyntax(t *testing.T) {
	src := `import a from "./a.js";
import { b } from "./b.js";
import "./c.js";
export const d = 1;
export function e() {}
export { a, b };
export default function() {}
const f = import("./f.js");`

	out := Transpile(src)
	assert.NotRegexp(t, `\b(import|export)\b`, out)
	assert.Equal(t, []string{"./a.js", "./b.js", "./c.js", "./f.js"}, Dependencies(out))
}

func TestMergeNetworkCalls(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no argument",
			input: `const x = require("./remote.js").http();`,
			want:  `const x = require("./remote.js/<HTTP>/");`,
		},
		{
			name:  "namespace argument",
			input: `const mod = require("./remote.js").http("&/namespace");`,
			want:  `const mod = require("./remote.js/<HTTP>/&/namespace");`,
		},
		{
			name:  "chained call kept",
			input: `require("http://localhost:4001/resources/rpc.js").http("&/products-service/resources/rpc.js").then()`,
			want:  `require("http://localhost:4001/resources/rpc.js/<HTTP>/&/products-service/resources/rpc.js").then()`,
		},
		{
			name:  "https",
			input: `require("./remote.js").https("extra");`,
			want:  `require("./remote.js/<HTTPS>/extra");`,
		},
		{
			name:  "mixed quotes keep the id quote",
			input: `require('./x.js').http("ns")`,
			want:  `require('./x.js/<HTTP>/ns')`,
		},
		{
			name:  "variable id",
			input: `require(varName).http("arg")`,
			want:  `require(varName + "/<HTTP>/" + "arg")`,
		},
		{
			name:  "variable namespace",
			input: `require("./x.js").http(ns)`,
			want:  `require("./x.js" + "/<HTTP>/" + ns)`,
		},
		{
			name:  "template namespace",
			input: "require(\"./x.js\").http(`&/x.js`)",
			want:  `require("./x.js/<HTTP>/&/x.js")`,
		},
		{
			name:  "namespace containing the id quote",
			input: `require("./x.js").http('a"b')`,
			want:  `require("./x.js" + "/<HTTP>/" + 'a"b')`,
		},
		{
			name:  "interpolated namespace",
			input: "require(\"./x.js\").http(`${ns}`)",
			want:  "require(\"./x.js\" + \"/<HTTP>/\" + `${ns}`)",
		},
		{
			name:  "variable id without argument",
			input: `require(varName).https()`,
			want:  `require(varName + "/<HTTPS>/")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeNetworkCalls(tt.input))
		})
	}
}

func TestDependencies(t *testing.T) {
	code := `const a=require("./a.js");require('./b.css');require("./a.js");require(x);require("./n.js/<HTTP>/&/ns")`
	deps := Dependencies(code)
	require.Len(t, deps, 4)
	assert.Equal(t, []string{"./a.js", "./b.css", "./a.js", "./n.js/<HTTP>/&/ns"}, deps)
	assert.Empty(t, Dependencies("console.log(1)"))
}
