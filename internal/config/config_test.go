package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
rate_limit:
  limit: 5
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.URL != defaultAPIURL {
		t.Fatalf("unexpected default url %q", cfg.API.URL)
	}
	if cfg.API.Timeout() != 10*time.Second {
		t.Fatalf("unexpected default timeout %v", cfg.API.Timeout())
	}
	if cfg.RateLimit.Backend != "memory" {
		t.Fatalf("unexpected default backend %q", cfg.RateLimit.Backend)
	}
	w, err := cfg.RateLimit.ParseWindow()
	if err != nil {
		t.Fatal(err)
	}
	if w != time.Second {
		t.Fatalf("unexpected default window %v", w)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"zero limit": `
rate_limit:
  limit: 0
`,
		"negative limit": `
rate_limit:
  limit: -3
`,
		"bad window": `
rate_limit:
  limit: 5
  window: soon
`,
		"zero window": `
rate_limit:
  limit: 5
  window: 0s
`,
		"unknown backend": `
rate_limit:
  limit: 5
  backend: etcd
`,
		"redis without addr": `
rate_limit:
  limit: 5
  backend: redis
`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestLoadParsesSubSecondWindow(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
rate_limit:
  limit: 1
  window: 100ms
`))
	if err != nil {
		t.Fatal(err)
	}
	w, err := cfg.RateLimit.ParseWindow()
	if err != nil {
		t.Fatal(err)
	}
	if w != 100*time.Millisecond {
		t.Fatalf("unexpected window %v", w)
	}
}
