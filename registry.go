package glimpse

import (
	"sync"

	"github.com/google/uuid"
)

// contextRegistry tracks the in-flight request contexts keyed by their
// request identifier. Distinct requests never share an identifier, so
// contention is limited to the map structure itself; a single RWMutex
// protects insert, lookup and removal from arbitrary goroutines.
type contextRegistry struct {
	mu       sync.RWMutex
	contexts map[uuid.UUID]*RequestContext

	// isResourceRequest classifies the inbound call from its metadata. The
	// runtime supplies it so the registry stays ignorant of endpoint paths.
	isResourceRequest func(RequestMetadata) bool
}

// newContextRegistry creates an empty registry (private).
func newContextRegistry(isResourceRequest func(RequestMetadata) bool) *contextRegistry {
	return &contextRegistry{
		contexts:          make(map[uuid.UUID]*RequestContext),
		isResourceRequest: isResourceRequest,
	}
}

// Add registers the context and issues its handle. The handle's handling
// mode is ResourceRequest when the inbound call targets the resource
// endpoint, RegularRequest otherwise.
func (r *contextRegistry) Add(rc *RequestContext) Handle {
	mode := RegularRequest
	if r.isResourceRequest != nil && r.isResourceRequest(rc.Adapter().Metadata()) {
		mode = ResourceRequest
	}
	rc.mode = mode

	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[rc.id] = rc

	return Handle{id: rc.id, mode: mode, available: true}
}

// TryGet looks up a live context by identifier.
func (r *contextRegistry) TryGet(id uuid.UUID) (*RequestContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rc, ok := r.contexts[id]
	return rc, ok
}

// Dispose removes the handle's context and releases its adapter reference.
// Disposing an already-removed handle is a no-op.
func (r *contextRegistry) Dispose(h Handle) {
	if !h.available {
		return
	}

	r.mu.Lock()
	rc, ok := r.contexts[h.id]
	if ok {
		delete(r.contexts, h.id)
	}
	r.mu.Unlock()

	if ok {
		rc.dispose()
	}
}

// Count returns the number of live contexts (useful for stats/testing).
func (r *contextRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contexts)
}
