package glimpse

import (
	"errors"
	"testing"
)

type stubMetadataProvider struct {
	name  string
	entry string
	err   error
}

func (p stubMetadataProvider) Name() string { return p.name }

func (p stubMetadataProvider) Build(cfg *Config) (string, error) { return p.entry, p.err }

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if cfg.DefaultPolicy != PolicyOn {
		t.Errorf("default policy = %v, want on", cfg.DefaultPolicy)
	}
	if cfg.EndpointPath != "/glimpse" {
		t.Errorf("endpoint path = %q", cfg.EndpointPath)
	}
	if cfg.CookieName != "glimpseId" {
		t.Errorf("cookie name = %q", cfg.CookieName)
	}
	if cfg.Version != "dev" {
		t.Errorf("version = %q", cfg.Version)
	}
	if cfg.Store == nil || cfg.Logger == nil || cfg.Serializer == nil || cfg.HTMLEncoder == nil {
		t.Error("collaborator defaults not applied")
	}
	if len(cfg.Resources) != 2 {
		t.Fatalf("got %d default resources, want 2", len(cfg.Resources))
	}
	if cfg.DefaultResourceName != "metadata" {
		t.Errorf("default resource = %q, want metadata", cfg.DefaultResourceName)
	}
}

func TestConfigValidateDisabled(t *testing.T) {
	cfg := Config{Disabled: true, DefaultPolicy: PolicyOn}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !cfg.DefaultPolicy.IsOff() {
		t.Errorf("disabled config kept policy %v", cfg.DefaultPolicy)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"relative endpoint path", Config{EndpointPath: "glimpse"}},
		{"unknown default resource", Config{DefaultResourceName: "nope"}},
		{"ambiguous default resource", Config{
			Resources:           []Resource{echoResource("dupe"), echoResource("DUPE")},
			DefaultResourceName: "dupe",
		}},
		{"resource without executor", Config{Resources: []Resource{{Name: "empty"}}}},
		{"resource without name", Config{Resources: []Resource{echoResource("")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			if err := cfg.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigIsDefaultResource(t *testing.T) {
	res := MetadataResource()
	res.DependsOn = func(name string) bool { return name == "client-script" }
	cfg := Config{
		Resources:           []Resource{res, echoResource("timeline")},
		DefaultResourceName: "metadata",
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if !cfg.isDefaultResource("metadata") || !cfg.isDefaultResource("METADATA") {
		t.Error("default resource not recognized by name")
	}
	if !cfg.isDefaultResource("client-script") {
		t.Error("declared dependency not recognized")
	}
	if cfg.isDefaultResource("timeline") {
		t.Error("unrelated resource treated as default")
	}
}

func TestConfigMetadataSnapshot(t *testing.T) {
	cfg := Config{
		Version: "2.0",
		Logger:  NewNoopLogger(),
		MetadataProviders: []MetadataProvider{
			stubMetadataProvider{name: "host", entry: "go"},
			stubMetadataProvider{name: "broken", err: errors.New("nope")},
		},
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	md := cfg.metadata()
	if md.Version != "2.0" {
		t.Errorf("version = %q", md.Version)
	}
	if md.Resources["metadata"] == "" || md.Resources["requests"] == "" {
		t.Errorf("resource templates missing: %v", md.Resources)
	}
	if md.Environment["host"] != "go" {
		t.Errorf("environment = %v", md.Environment)
	}
	if _, ok := md.Environment["broken"]; ok {
		t.Error("failed provider entry should be omitted")
	}
}
