package glimpse

import "context"

// Tab is a collector invoked at the lifecycle event it declares. Its result
// is stored in the request context's tab result store keyed by name. A Tab
// failure at BeginRequest propagates to the host; failures at every other
// event are logged and swallowed.
type Tab interface {
	// Name returns the unique tab name used as the result store key.
	Name() string

	// ExecuteOn returns the lifecycle event at which the tab collects.
	ExecuteOn() RuntimeEvent

	// Collect gathers the tab's diagnostic data for the request.
	Collect(ctx context.Context, rc *RequestContext) (any, error)
}

// Display is a collector invoked at EndRequest that summarizes a request for
// the client display. Failures are logged and swallowed.
type Display interface {
	// Name returns the unique display name used as the result store key.
	Name() string

	// Collect gathers the display's summary data for the request.
	Collect(ctx context.Context, rc *RequestContext) (any, error)
}

// Inspector hooks into the host once at runtime initialization, before any
// request is handled. Inspectors typically wrap host subsystems so the tabs
// have data to collect.
type Inspector interface {
	// Name returns the inspector name used for logging.
	Name() string

	// Setup installs the inspector. A setup error fails initialization.
	Setup(ctx context.Context, cfg *Config) error
}

// MetadataProvider contributes an entry to the runtime metadata snapshot
// written at initialization.
type MetadataProvider interface {
	// Name returns the metadata key the entry is stored under.
	Name() string

	// Build produces the metadata entry.
	Build(cfg *Config) (string, error)
}
