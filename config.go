package glimpse

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Config is the read-only snapshot the runtime is constructed from. Zero
// values get sensible defaults from validate; the snapshot is not mutated
// after New returns.
type Config struct {
	// DefaultPolicy is the policy assigned to every request before the
	// determinators run. The zero value means unset and defaults to
	// PolicyOn; use Disabled to turn instrumentation off entirely.
	DefaultPolicy Policy

	// Disabled forces the default policy to PolicyOff. Every BeginRequest
	// then returns the unavailable handle unless a determinator chain is
	// re-deriving for the default resource.
	Disabled bool

	// Determinators are evaluated in order at every lifecycle event. Each
	// can only narrow the policy it is handed.
	Determinators []PolicyDeterminator

	// Tabs, Displays, Inspectors and MetadataProviders are the pluggable
	// collectors invoked across the request lifecycle.
	Tabs              []Tab
	Displays          []Display
	Inspectors        []Inspector
	MetadataProviders []MetadataProvider

	// Resources are the named diagnostic endpoints. Duplicate names are
	// permitted at registration; the dispatcher reports them as ambiguous
	// when invoked.
	Resources []Resource

	// DefaultResourceName selects the resource whose execution re-derives
	// policy from DefaultPolicy rather than the narrowed value, so the
	// mechanism that turns instrumentation on cannot be disabled by its own
	// narrowing. Must name exactly one registered resource.
	DefaultResourceName string

	// Store persists records and metadata. Defaults to NewMemoryStore(50).
	Store PersistenceStore

	// Logger receives runtime diagnostics. Defaults to NewClueLogger().
	Logger Logger

	// Serializer encodes results and records. Defaults to JSON.
	Serializer Serializer

	// HTMLEncoder escapes generated markup. Defaults to html escaping.
	HTMLEncoder HTMLEncoder

	// EndpointPath is the path prefix of the resource endpoint, e.g.
	// "/glimpse". Defaults to "/glimpse".
	EndpointPath string

	// BaseURI prefixes generated resource URIs, e.g. "http://localhost".
	// May be empty for host-relative URIs.
	BaseURI string

	// CookieName is the client-identifying cookie set at EndRequest when
	// the policy permits response modification. Defaults to "glimpseId".
	CookieName string

	// Version stamps the metadata snapshot and generated script tags.
	Version string

	// IDTracker optionally resolves the current request identifier from
	// the calling execution context.
	IDTracker RequestIDTracker

	defaultResource *Resource
}

// validate applies defaults and checks the snapshot is usable.
func (c *Config) validate() error {
	if c.Disabled {
		c.DefaultPolicy = PolicyOff
	} else if c.DefaultPolicy == PolicyOff {
		c.DefaultPolicy = PolicyOn
	}
	if c.Store == nil {
		c.Store = NewMemoryStore(50)
	}
	if c.Logger == nil {
		c.Logger = NewClueLogger()
	}
	if c.Serializer == nil {
		c.Serializer = NewJSONSerializer()
	}
	if c.HTMLEncoder == nil {
		c.HTMLEncoder = NewHTMLEncoder()
	}
	if c.EndpointPath == "" {
		c.EndpointPath = "/glimpse"
	}
	if !strings.HasPrefix(c.EndpointPath, "/") {
		return fmt.Errorf("endpoint path %q must start with /", c.EndpointPath)
	}
	if c.CookieName == "" {
		c.CookieName = "glimpseId"
	}
	if c.Version == "" {
		c.Version = "dev"
	}

	if len(c.Resources) == 0 {
		c.Resources = []Resource{MetadataResource(), RequestsResource()}
	}
	for i := range c.Resources {
		if err := c.Resources[i].validate(); err != nil {
			return err
		}
	}

	if c.DefaultResourceName == "" {
		c.DefaultResourceName = c.Resources[0].Name
	}
	matches := matchResources(c.Resources, c.DefaultResourceName)
	switch len(matches) {
	case 0:
		return fmt.Errorf("default resource %q is not registered", c.DefaultResourceName)
	case 1:
		c.defaultResource = &matches[0]
	default:
		return fmt.Errorf("default resource %q is registered %d times", c.DefaultResourceName, len(matches))
	}

	return nil
}

// isDefaultResource reports whether name addresses the default resource or
// one of its declared dependencies. Those executions re-derive policy from
// the configured default.
func (c *Config) isDefaultResource(name string) bool {
	if c.defaultResource == nil {
		return false
	}
	if strings.EqualFold(name, c.defaultResource.Name) {
		return true
	}
	return c.defaultResource.DependsOn != nil && c.defaultResource.DependsOn(name)
}

// metadata builds the runtime metadata snapshot. Provider failures are
// logged and the provider's entry is omitted.
func (c *Config) metadata() *Metadata {
	resources := make(map[string]string, len(c.Resources))
	for i := range c.Resources {
		resources[c.Resources[i].Name] = c.Resources[i].uriTemplate(c.BaseURI, c.EndpointPath)
	}

	env := make(map[string]string, len(c.MetadataProviders))
	for _, p := range c.MetadataProviders {
		entry, err := p.Build(c)
		if err != nil {
			c.Logger.Warn(context.Background(), "metadata provider failed", "provider", p.Name(), "error", err.Error())
			continue
		}
		env[p.Name()] = entry
	}

	return &Metadata{
		Version:     c.Version,
		Resources:   resources,
		Environment: env,
	}
}

// ErrNilAdapter is returned by BeginRequest when the host passes no adapter.
var ErrNilAdapter = errors.New("adapter cannot be nil")
