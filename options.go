package glimpse

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options are the scalar configuration knobs loadable from a YAML file. The
// pluggable pieces of Config (stores, resources, collectors) are wired in
// code; Options covers what operators tune per deployment.
type Options struct {
	// DefaultPolicy lists capability names, or "on"/"off".
	DefaultPolicy []string `yaml:"default_policy"`

	// EndpointPath is the resource endpoint path prefix.
	EndpointPath string `yaml:"endpoint_path"`

	// BaseURI prefixes generated resource URIs.
	BaseURI string `yaml:"base_uri"`

	// CookieName is the client-identifying cookie name.
	CookieName string `yaml:"cookie_name"`

	// Version stamps the metadata snapshot and script tags.
	Version string `yaml:"version"`
}

// LoadOptions reads and parses an options file.
func LoadOptions(path string) (*Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	var opts Options
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse options file: %w", err)
	}
	return &opts, nil
}

// Apply copies the set options onto the configuration. Unset options leave
// the configuration untouched.
func (o *Options) Apply(cfg *Config) error {
	if len(o.DefaultPolicy) > 0 {
		policy, err := ParsePolicy(o.DefaultPolicy)
		if err != nil {
			return err
		}
		if policy.IsOff() {
			cfg.Disabled = true
		}
		cfg.DefaultPolicy = policy
	}
	if o.EndpointPath != "" {
		cfg.EndpointPath = o.EndpointPath
	}
	if o.BaseURI != "" {
		cfg.BaseURI = o.BaseURI
	}
	if o.CookieName != "" {
		cfg.CookieName = o.CookieName
	}
	if o.Version != "" {
		cfg.Version = o.Version
	}
	return nil
}
