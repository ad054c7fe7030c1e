package glimpse

import (
	"os"
	"path/filepath"
	"testing"
)

func writeOptionsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glimpse.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write options file: %v", err)
	}
	return path
}

func TestLoadOptions(t *testing.T) {
	path := writeOptionsFile(t, `
default_policy: [collect-data, persist-results]
endpoint_path: /diag
base_uri: http://localhost:9000
cookie_name: diagId
version: 3.1.4
`)

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}

	cfg := Config{}
	if err := opts.Apply(&cfg); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if cfg.DefaultPolicy != PolicyCollectData|PolicyPersistResults {
		t.Errorf("policy = %v", cfg.DefaultPolicy)
	}
	if cfg.EndpointPath != "/diag" || cfg.BaseURI != "http://localhost:9000" {
		t.Errorf("endpoint = %q, base = %q", cfg.EndpointPath, cfg.BaseURI)
	}
	if cfg.CookieName != "diagId" || cfg.Version != "3.1.4" {
		t.Errorf("cookie = %q, version = %q", cfg.CookieName, cfg.Version)
	}
}

func TestLoadOptionsMissingFile(t *testing.T) {
	if _, err := LoadOptions(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOptionsMalformed(t *testing.T) {
	path := writeOptionsFile(t, "default_policy: [unclosed")
	if _, err := LoadOptions(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestOptionsApplyOff(t *testing.T) {
	opts := Options{DefaultPolicy: []string{"off"}}

	cfg := Config{}
	if err := opts.Apply(&cfg); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !cfg.Disabled {
		t.Error("off policy should disable the runtime")
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !cfg.DefaultPolicy.IsOff() {
		t.Errorf("policy = %v, want off", cfg.DefaultPolicy)
	}
}

func TestOptionsApplyUnknownCapability(t *testing.T) {
	opts := Options{DefaultPolicy: []string{"warp-speed"}}
	if err := opts.Apply(&Config{}); err == nil {
		t.Error("expected error for unknown capability name")
	}
}

func TestOptionsApplyLeavesUnsetAlone(t *testing.T) {
	cfg := Config{EndpointPath: "/custom", Version: "7"}
	opts := Options{}
	if err := opts.Apply(&cfg); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if cfg.EndpointPath != "/custom" || cfg.Version != "7" {
		t.Errorf("unset options clobbered config: %+v", cfg)
	}
}
