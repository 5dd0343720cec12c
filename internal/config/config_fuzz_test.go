package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// FuzzLoadConfig tests configuration loading with malformed inputs
func FuzzLoadConfig(f *testing.F) {
	f.Add(`bundle:
  entry: src/index.js
  output_dir: dist`)

	f.Add(`serve:
  port: "invalid_port"`)

	f.Add(`serve:
  port: 65536`)

	f.Add(`minify:
  tiers: [terser, "$(rm -rf /)"]`)

	f.Add(`malformed: yaml: content`)
	f.Add(``)

	f.Fuzz(func(t *testing.T, yamlContent string) {
		if len(yamlContent) > 50000 {
			t.Skip("Config content too large")
		}

		path := filepath.Join(t.TempDir(), FileName)
		if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
			t.Skip("Could not write config file")
		}

		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return
		}

		cfg, err := LoadFrom(v)
		if err != nil {
			return
		}

		if cfg.Bundle.Entry == "" || cfg.Bundle.Namespace == "" {
			t.Errorf("accepted config without entry or namespace: %+v", cfg.Bundle)
		}
		if cfg.Serve.Port < 0 || cfg.Serve.Port > 65535 {
			t.Errorf("accepted invalid port %d", cfg.Serve.Port)
		}
	})
}

func FuzzValidateHostname(f *testing.F) {
	for _, seed := range []string{"localhost", "0.0.0.0", "example.com", "a;b", "host`id`"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, host string) {
		if validateHostname(host) == nil && strings.ContainsAny(host, ";|$`<>") {
			t.Errorf("accepted host with shell metacharacters: %q", host)
		}
	})
}
