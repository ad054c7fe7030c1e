package glimpse

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestHandlingMode distinguishes page requests from diagnostic resource
// requests. The mode is fixed when the handle is issued and every lifecycle
// call validates it before doing any work.
type RequestHandlingMode int

const (
	// RegularRequest is a host page request instrumented across its lifetime.
	RegularRequest RequestHandlingMode = iota
	// ResourceRequest is a call to the diagnostics resource endpoint.
	ResourceRequest
)

// String returns the mode name used in logs.
func (m RequestHandlingMode) String() string {
	if m == ResourceRequest {
		return "resource"
	}
	return "regular"
}

// Handle is the opaque capability the host receives from BeginRequest and
// presents on every subsequent lifecycle call. A Handle may be unavailable,
// in which case all lifecycle calls made with it are silent no-ops.
type Handle struct {
	id        uuid.UUID
	mode      RequestHandlingMode
	available bool
}

// UnavailableHandle is the sentinel returned when policy disables
// instrumentation before a context is ever registered.
var UnavailableHandle = Handle{}

// ID returns the request identifier carried by the handle.
func (h Handle) ID() uuid.UUID { return h.id }

// Mode returns the handling mode fixed when the handle was issued.
func (h Handle) Mode() RequestHandlingMode { return h.mode }

// Available reports whether the handle references a live context.
func (h Handle) Available() bool { return h.available }

// RequestContext is the per-request mutable diagnostic state. One context
// exists per live request identifier; it is created by BeginRequest and
// destroyed when the request ends or its resource call completes.
type RequestContext struct {
	id   uuid.UUID
	mode RequestHandlingMode

	mu             sync.RWMutex
	adapter        Adapter
	policy         Policy
	started        time.Time
	stopped        time.Time
	tabResults     map[string]any
	displayResults map[string]any
	scriptsWritten bool
	disposed       bool
}

// newRequestContext creates a context with a fresh identifier (private -
// contexts are created by the runtime only).
func newRequestContext(adapter Adapter, policy Policy) *RequestContext {
	return &RequestContext{
		id:             uuid.New(),
		adapter:        adapter,
		policy:         policy,
		tabResults:     make(map[string]any),
		displayResults: make(map[string]any),
	}
}

// ID returns the immutable request identifier.
func (rc *RequestContext) ID() uuid.UUID { return rc.id }

// Mode returns the handling mode assigned at registration.
func (rc *RequestContext) Mode() RequestHandlingMode { return rc.mode }

// Adapter returns the host adapter owned by this context, or nil after
// disposal.
func (rc *RequestContext) Adapter() Adapter {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.adapter
}

// Policy returns the current policy for the request.
func (rc *RequestContext) Policy() Policy {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.policy
}

// narrowPolicy lowers the context policy to p. A policy that has reached
// PolicyOff never leaves it; the intersection enforces that invariant.
func (rc *RequestContext) narrowPolicy(p Policy) Policy {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.policy = rc.policy.Narrow(p)
	return rc.policy
}

// startTiming records the instrumentation start time.
func (rc *RequestContext) startTiming() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.started = time.Now()
}

// stopTiming records the instrumentation stop time.
func (rc *RequestContext) stopTiming() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.stopped = time.Now()
}

// Duration returns the elapsed time between start and stop. It returns zero
// until both timestamps are set.
func (rc *RequestContext) Duration() time.Duration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.started.IsZero() || rc.stopped.IsZero() {
		return 0
	}
	return rc.stopped.Sub(rc.started)
}

// setTabResult stores a tab provider result keyed by provider name.
func (rc *RequestContext) setTabResult(name string, result any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.tabResults[name] = result
}

// setDisplayResult stores a display provider result keyed by provider name.
func (rc *RequestContext) setDisplayResult(name string, result any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.displayResults[name] = result
}

// TabResults returns a copy of the tab result store.
func (rc *RequestContext) TabResults() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return copyResults(rc.tabResults)
}

// DisplayResults returns a copy of the display result store.
func (rc *RequestContext) DisplayResults() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return copyResults(rc.displayResults)
}

// claimScriptInjection flips the once-per-request script flag. It returns
// true for the first caller only.
func (rc *RequestContext) claimScriptInjection() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.scriptsWritten {
		return false
	}
	rc.scriptsWritten = true
	return true
}

// dispose releases the adapter reference. Safe to call more than once.
func (rc *RequestContext) dispose() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.disposed {
		return
	}
	rc.disposed = true
	rc.adapter = nil
}

// copyResults returns a shallow copy to prevent external modification.
func copyResults(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
