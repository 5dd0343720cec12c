package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jsplus/internal/build"
	"github.com/conneroisu/jsplus/internal/config"
)

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInitCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := executeCommand(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+config.FileName)
	assert.FileExists(t, config.FileName)
	assert.NoFileExists(t, "src/index.js")

	_, err = executeCommand(t, "init")
	assert.ErrorContains(t, err, "already exists")

	out, err = executeCommand(t, "init", "--force", "--example", "--entry", "app/main.js")
	require.NoError(t, err)
	assert.FileExists(t, "app/main.js")
	assert.FileExists(t, "app/greet.js")
	assert.FileExists(t, "app/widget.js")
	assert.NoFileExists(t, "app/index.js")
	assert.Contains(t, out, "Wrote app/main.js")

	v := viper.New()
	v.SetConfigFile(config.FileName)
	require.NoError(t, v.ReadInConfig())
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "app/main.js", cfg.Bundle.Entry)
}

func TestBuildCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := executeCommand(t, "init", "--example")
	require.NoError(t, err)

	out, err := executeCommand(t, "build", "--tiers", "esbuild")
	require.NoError(t, err)
	assert.Contains(t, out, "Built 2 bundle(s)")
	assert.Contains(t, out, "headless")
	assert.FileExists(t, "dist/index.js")
	assert.FileExists(t, "dist/widget.js")

	manifest, err := build.ReadManifest(filepath.Join("dist", build.ManifestFile))
	require.NoError(t, err)
	require.Len(t, manifest.Bundles, 2)
	assert.Equal(t, "esbuild", manifest.Bundles[0].Minifier)
	assert.Contains(t, manifest.Integrity, "widget.js")
}

func TestBuildCommandFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := executeCommand(t, "init", "--example")
	require.NoError(t, err)

	_, err = executeCommand(t, "build", "src/index.js",
		"-o", "public/app.js", "--no-minify", "--no-manifest", "--host", "https://cdn.example.com")
	require.NoError(t, err)

	data, err := os.ReadFile("public/app.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://cdn.example.com")
	assert.Contains(t, string(data), "Hello, ")
	assert.FileExists(t, "public/widget.js")
	assert.NoFileExists(t, filepath.Join("public", build.ManifestFile))
}

func TestBuildCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no entry", []string{"build"}, "bundle.entry"},
		{"missing entry file", []string{"build", "nope.js"}, "nope.js"},
		{"unknown tier", []string{"build", "src/index.js", "--tiers", "uglify"}, "minify.tiers"},
		{"bad host", []string{"build", "src/index.js", "--host", "ftp://cdn"}, "bundle.host"},
		{"bad log level", []string{"build", "src/index.js", "-l", "loud"}, "log.level"},
		{"clean source dir", []string{"build", "src/index.js", "--clean", "-d", "src"}, "refusing to clean"},
		{"too many args", []string{"build", "a.js", "b.js"}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			require.NoError(t, os.MkdirAll("src", 0755))
			require.NoError(t, os.WriteFile("src/index.js", []byte("console.log(1);\n"), 0644))

			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildCommandClean(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := executeCommand(t, "init", "--example")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll("dist", 0755))
	require.NoError(t, os.WriteFile("dist/stale.js", []byte("old"), 0644))

	_, err = executeCommand(t, "build", "--no-minify", "--clean")
	require.NoError(t, err)
	assert.NoFileExists(t, "dist/stale.js")
	assert.FileExists(t, "dist/index.js")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := executeCommand(t, "init", "--example")
	require.NoError(t, err)

	t.Setenv("JSPLUS_BUNDLE_OUTPUT_DIR", "env-out")
	t.Setenv("JSPLUS_MINIFY_ENABLED", "false")

	_, err = executeCommand(t, "build")
	require.NoError(t, err)
	assert.FileExists(t, "env-out/index.js")

	// flags win over the environment
	_, err = executeCommand(t, "build", "-d", "flag-out")
	require.NoError(t, err)
	assert.FileExists(t, "flag-out/index.js")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Version: "))

	out, err = executeCommand(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, err = executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.NotContains(t, out, "Version:")

	_, err = executeCommand(t, "version", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestAppWatchRebuilds(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll("src", 0755))
	require.NoError(t, os.WriteFile("src/index.js", []byte("import {msg} from \"./msg.js\";\nconsole.log(msg);\n"), 0644))
	require.NoError(t, os.WriteFile("src/msg.js", []byte("export const msg = \"first\";\n"), 0644))

	cfg := config.Default()
	cfg.Bundle.Entry = "src/index.js"
	cfg.Minify.Enabled = false
	cfg.Watch.Debounce = 50 * time.Millisecond

	a, err := newApp(cfg, io.Discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan error, 10)
	fw, err := a.watch(ctx, func(_ *build.Result, err error) { builds <- err })
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, <-builds)
	assert.Contains(t, readString(t, "dist/index.js"), "first")

	// output writes do not trigger rebuilds
	assert.NotContains(t, fw.WatchedPaths(), filepath.Join(mustAbs(t, "dist")))

	require.NoError(t, os.WriteFile("src/msg.js", []byte("export const msg = \"second\";\n"), 0644))

	select {
	case err := <-builds:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}
	assert.Contains(t, readString(t, "dist/index.js"), "second")

	snapshot := a.bundler.Metrics().GetSnapshot()
	assert.GreaterOrEqual(t, snapshot.SuccessfulBuilds, int64(2))
}

func TestApplyFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	addBundleFlags(cmd)
	cmd.Flags().IntP("port", "p", 8080, "")
	cmd.Flags().String("bind", "localhost", "")
	require.NoError(t, cmd.ParseFlags([]string{
		"--no-runtime", "--tiers", "esbuild,tdewolff", "--port", "3000", "--namespace", "app/",
	}))

	require.NoError(t, applyFlags(cmd, bundleFlagBindings, serveFlagBindings))

	assert.Equal(t, false, viper.Get("bundle.runtime"))
	assert.Equal(t, []string{"esbuild", "tdewolff"}, viper.Get("minify.tiers"))
	assert.Equal(t, 3000, viper.Get("serve.port"))
	assert.Equal(t, "app/", viper.Get("bundle.namespace"))
	assert.False(t, viper.IsSet("bundle.manifest"))
	assert.False(t, viper.IsSet("serve.host"))
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatSize(tt.size))
		})
	}
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}
