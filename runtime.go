package glimpse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNotInitialized is returned when the package-level runtime is
	// accessed before Initialize.
	ErrNotInitialized = errors.New("glimpse runtime not initialized")

	// ErrContextNotFound indicates a live, correctly-moded handle whose
	// context is missing from the registry. This is an integration defect
	// and is always surfaced to the caller.
	ErrContextNotFound = errors.New("no request context found for handle")
)

// Runtime coordinates the diagnostic lifecycle across concurrent requests.
// A single Runtime instance is shared by all in-flight requests; the only
// state shared across them is the context registry.
type Runtime struct {
	cfg      *Config
	registry *contextRegistry
	metrics  *runtimeMetrics
	tracer   trace.Tracer
}

// New constructs a runtime from the configuration snapshot, runs every
// inspector's setup and publishes the metadata snapshot to the store. An
// inspector setup failure fails construction; a metadata persistence failure
// is logged and construction proceeds.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Runtime{
		cfg:     &cfg,
		metrics: newRuntimeMetrics(),
		tracer:  newTracer(),
	}
	r.registry = newContextRegistry(func(md RequestMetadata) bool {
		// Exact path match: a page like /glimpsepage is not a resource call.
		path := md.RequestURI()
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		return path == cfg.EndpointPath
	})

	for _, ins := range cfg.Inspectors {
		if err := ins.Setup(ctx, r.cfg); err != nil {
			return nil, fmt.Errorf("inspector %q setup failed: %w", ins.Name(), err)
		}
	}

	if err := cfg.Store.SaveMetadata(ctx, cfg.metadata()); err != nil {
		cfg.Logger.Error(ctx, err, "failed to persist runtime metadata")
	}

	return r, nil
}

// Config returns the runtime's configuration snapshot.
func (r *Runtime) Config() *Config { return r.cfg }

// BeginRequest creates and registers the diagnostic context for an inbound
// request. When policy already evaluates to PolicyOff no context is
// registered and the unavailable sentinel handle is returned; every
// subsequent call with that handle is a no-op.
//
// Timing and begin-time tab collection run for regular requests only. If a
// tab fails during this post-registration setup the handle is disposed, the
// registry is left consistent and the error is returned to the host.
func (r *Runtime) BeginRequest(ctx context.Context, adapter Adapter) (Handle, error) {
	if adapter == nil {
		return UnavailableHandle, ErrNilAdapter
	}

	policy := r.derivePolicy(ctx, BeginRequest, r.cfg.DefaultPolicy, adapter)
	if policy.IsOff() {
		return UnavailableHandle, nil
	}

	rc := newRequestContext(adapter, policy)
	h := r.registry.Add(rc)
	r.metrics.addRequestBegun(ctx, h.Mode())

	if h.Mode() == RegularRequest {
		rc.startTiming()
		if policy.Has(PolicyCollectData) {
			if err := r.executeTabs(ctx, rc, BeginRequest); err != nil {
				r.registry.Dispose(h)
				return UnavailableHandle, err
			}
		}
	}

	return h, nil
}

// BeginSessionAccess runs the session-begin collectors. Unavailable or
// wrong-mode handles are silent no-ops; a stale handle is a coordination
// error.
func (r *Runtime) BeginSessionAccess(ctx context.Context, h Handle) error {
	return r.sessionAccess(ctx, h, BeginSessionAccess)
}

// EndSessionAccess runs the session-end collectors. Unavailable or
// wrong-mode handles are silent no-ops; a stale handle is a coordination
// error.
func (r *Runtime) EndSessionAccess(ctx context.Context, h Handle) error {
	return r.sessionAccess(ctx, h, EndSessionAccess)
}

func (r *Runtime) sessionAccess(ctx context.Context, h Handle, event RuntimeEvent) error {
	if !h.Available() || h.Mode() != RegularRequest {
		return nil
	}

	rc, ok := r.registry.TryGet(h.ID())
	if !ok {
		return fmt.Errorf("%s: %w", event, ErrContextNotFound)
	}

	policy := rc.narrowPolicy(r.derivePolicy(ctx, event, rc.Policy(), rc.Adapter()))
	if !policy.Has(PolicyCollectData) {
		// Diagnostics must never fail the host's session pipeline.
		return nil
	}

	// Collector failures outside BeginRequest are logged, never surfaced.
	_ = r.executeTabs(ctx, rc, event)
	return nil
}

// ExecuteDefaultResource executes the configured default resource.
func (r *Runtime) ExecuteDefaultResource(ctx context.Context, h Handle) error {
	return r.ExecuteResource(ctx, h, r.cfg.DefaultResourceName, nil)
}

// ExecuteResource resolves name against the registered resources and writes
// the structured result to the adapter. Policy is re-evaluated for the call;
// executions of the default resource (or its declared dependencies)
// re-derive policy from the configured default so the switch that turns
// instrumentation on cannot be disabled by earlier narrowing.
//
// Resolution failures, policy denials and resource errors become structured
// results; the only error returned to the host is a stale handle.
func (r *Runtime) ExecuteResource(ctx context.Context, h Handle, name string, parameters map[string]string) error {
	if !h.Available() || h.Mode() != ResourceRequest {
		return nil
	}

	rc, ok := r.registry.TryGet(h.ID())
	if !ok {
		return fmt.Errorf("%s: %w", ExecuteResource, ErrContextNotFound)
	}
	// A resource request's context lives for exactly one execution.
	defer r.registry.Dispose(h)

	ctx, span := r.tracer.Start(ctx, "glimpse.resource.execute",
		trace.WithAttributes(attribute.String("resource", name)))
	defer span.End()

	result, outcome := r.dispatchResource(ctx, rc, name, parameters)
	r.metrics.addResourceExecuted(ctx, name, outcome)
	if outcome != "ok" {
		span.SetStatus(codes.Error, outcome)
	}

	r.respond(ctx, rc, name, result)
	return nil
}

// dispatchResource evaluates policy and resolves and runs the resource,
// converting every failure into a structured result.
func (r *Runtime) dispatchResource(ctx context.Context, rc *RequestContext, name string, parameters map[string]string) (Result, string) {
	if strings.TrimSpace(name) == "" {
		r.cfg.Logger.Warn(ctx, "resource execution without a name", "request", rc.ID().String())
		return NewStatusResult(400, "no resource name provided"), "bad-request"
	}

	// The default resource re-derives from the configured default policy.
	// This is the one deliberate exception to monotonic narrowing; the
	// escalated value applies to this execution only and is never written
	// back to the context.
	var policy Policy
	if r.cfg.isDefaultResource(name) {
		policy = r.derivePolicy(ctx, ExecuteResource, r.cfg.DefaultPolicy, rc.Adapter())
	} else {
		policy = rc.narrowPolicy(r.derivePolicy(ctx, ExecuteResource, rc.Policy(), rc.Adapter()))
	}

	if !policy.Has(PolicyExecuteResources) {
		r.cfg.Logger.Info(ctx, "resource execution denied by policy",
			"resource", name, "policy", policy.String())
		return NewStatusResult(403, fmt.Sprintf("policy does not permit executing resource %q", name)), "denied"
	}

	matches := matchResources(r.cfg.Resources, name)
	switch len(matches) {
	case 0:
		r.cfg.Logger.Warn(ctx, "resource not found", "resource", name)
		return NewStatusResult(404, fmt.Sprintf("no resource registered with name %q", name)), "not-found"
	case 1:
		// Execute below.
	default:
		r.cfg.Logger.Warn(ctx, "ambiguous resource registration",
			"resource", name, "matches", len(matches))
		return NewStatusResult(500, fmt.Sprintf("resource %q is registered %d times", name, len(matches))), "ambiguous"
	}

	rctx := &ResourceContext{
		RequestID:  rc.ID(),
		Parameters: parameters,
		Store:      r.cfg.Store,
		Logger:     r.cfg.Logger,
	}

	result, err := r.executeResource(ctx, &matches[0], rctx, rc)
	if err != nil {
		r.cfg.Logger.Error(ctx, err, "resource execution failed", "resource", name)
		return &exceptionResult{resource: name, err: err}, "error"
	}
	return result, "ok"
}

// executeResource runs the matched resource inside a panic boundary. A
// panicking resource never propagates to the host.
func (r *Runtime) executeResource(ctx context.Context, res *Resource, rctx *ResourceContext, rc *RequestContext) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("resource %q panicked: %v", res.Name, rec)
		}
	}()

	if res.Privileged != nil {
		result = res.Privileged(ctx, rctx, r.cfg, rc.Adapter())
	} else {
		result = res.Execute(ctx, rctx)
	}
	if result == nil {
		return nil, fmt.Errorf("resource %q returned no result", res.Name)
	}
	return result, nil
}

// respond runs the result-execution boundary. This stage runs after the
// host's own work; any failure here, panic included, is logged at the
// highest severity and never propagated.
func (r *Runtime) respond(ctx context.Context, rc *RequestContext, name string, result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logCritical(ctx, r.cfg.Logger, fmt.Errorf("panic: %v", rec),
				"result rendering panicked", "resource", name)
		}
	}()

	adapter := rc.Adapter()
	if adapter == nil {
		return
	}
	if err := result.Respond(ctx, adapter, r.cfg.Serializer); err != nil {
		logCritical(ctx, r.cfg.Logger, err, "result rendering failed", "resource", name)
	}
}

// EndRequest finishes instrumentation for a regular request: stops timing,
// runs the end-of-request collectors, persists the record, decorates the
// response and injects the client script, each gated by its own policy
// capability. The handle is always disposed, whichever branch fails.
//
// A stale handle is a coordination error. Collector, persistence and
// injection failures are logged and never propagated.
func (r *Runtime) EndRequest(ctx context.Context, h Handle) error {
	if !h.Available() {
		return nil
	}
	if h.Mode() != RegularRequest {
		// Resource handles are disposed by ExecuteResource; this is a
		// defensive sweep for hosts that end every request uniformly.
		r.registry.Dispose(h)
		return nil
	}

	rc, ok := r.registry.TryGet(h.ID())
	if !ok {
		return fmt.Errorf("%s: %w", EndRequest, ErrContextNotFound)
	}
	defer r.registry.Dispose(h)

	rc.stopTiming()

	policy := rc.narrowPolicy(r.derivePolicy(ctx, EndRequest, rc.Policy(), rc.Adapter()))
	if policy.IsOff() {
		return nil
	}

	if policy.Has(PolicyCollectData) {
		_ = r.executeTabs(ctx, rc, EndRequest)
		r.executeDisplays(ctx, rc)
	}

	if policy.Has(PolicyPersistResults) {
		if err := r.cfg.Store.Save(ctx, buildRecord(rc)); err != nil {
			r.cfg.Logger.Error(ctx, err, "failed to persist request record", "request", rc.ID().String())
		}
	}

	adapter := rc.Adapter()
	if policy.Has(PolicyModifyResponseHeaders) {
		adapter.SetResponseHeader("X-Glimpse-RequestID", rc.ID().String())
		if adapter.Metadata().ClientID() == "" {
			adapter.SetCookie(r.cfg.CookieName, uuid.NewString())
		}
	}

	if policy.Has(PolicyDisplayClient) {
		if tags := r.generateScriptTags(rc); tags != "" {
			if err := adapter.InjectResponseBody(tags); err != nil {
				r.cfg.Logger.Error(ctx, err, "failed to inject client script", "request", rc.ID().String())
			}
		}
	}

	return nil
}

// TryGetRequestContext looks up a live request context by identifier.
func (r *Runtime) TryGetRequestContext(id uuid.UUID) (*RequestContext, bool) {
	return r.registry.TryGet(id)
}

// CurrentRequestContext resolves the context bound to the calling execution
// context via the configured tracker.
func (r *Runtime) CurrentRequestContext(ctx context.Context) (*RequestContext, bool) {
	if r.cfg.IDTracker == nil {
		return nil, false
	}
	id, ok := r.cfg.IDTracker.ID(ctx)
	if !ok {
		return nil, false
	}
	return r.registry.TryGet(id)
}

// derivePolicy evaluates the determinator chain fresh for the event. Each
// determinator's answer is intersected with the policy it was handed, so the
// chain can only narrow from base.
func (r *Runtime) derivePolicy(ctx context.Context, event RuntimeEvent, base Policy, adapter Adapter) Policy {
	policy := base
	for _, determine := range r.cfg.Determinators {
		policy = policy.Narrow(determine(ctx, event, policy, adapter))
		if policy.IsOff() {
			break
		}
	}
	return policy
}

// executeTabs runs every tab declared for the event inside a panic boundary.
// At BeginRequest the first failure is returned so the host learns that
// begin-time setup failed; at every other event failures are logged only.
func (r *Runtime) executeTabs(ctx context.Context, rc *RequestContext, event RuntimeEvent) error {
	for _, tab := range r.cfg.Tabs {
		if tab.ExecuteOn() != event {
			continue
		}
		result, err := collectSafely(ctx, tab.Name(), rc, tab.Collect)
		if err != nil {
			r.metrics.addProviderFailure(ctx, tab.Name(), event)
			if event == BeginRequest {
				return fmt.Errorf("tab %q failed at begin-request: %w", tab.Name(), err)
			}
			r.cfg.Logger.Error(ctx, err, "tab collection failed", "tab", tab.Name(), "event", event.String())
			continue
		}
		rc.setTabResult(tab.Name(), result)
	}
	return nil
}

// executeDisplays runs the display collectors at EndRequest. Failures are
// logged only.
func (r *Runtime) executeDisplays(ctx context.Context, rc *RequestContext) {
	for _, display := range r.cfg.Displays {
		result, err := collectSafely(ctx, display.Name(), rc, display.Collect)
		if err != nil {
			r.metrics.addProviderFailure(ctx, display.Name(), EndRequest)
			r.cfg.Logger.Error(ctx, err, "display collection failed", "display", display.Name())
			continue
		}
		rc.setDisplayResult(display.Name(), result)
	}
}

// collectSafely invokes a collector inside a panic boundary.
func collectSafely(ctx context.Context, name string, rc *RequestContext, collect func(context.Context, *RequestContext) (any, error)) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("collector %q panicked: %v", name, rec)
		}
	}()
	return collect(ctx, rc)
}

// Package-level instance for hosts that prefer a single runtime over
// threading the instance explicitly. Initialization happens exactly once.
var (
	instance   *Runtime
	instanceMu sync.RWMutex
)

// Initialize constructs the package-level runtime. It is idempotent: once a
// runtime exists, later calls are no-ops and the original configuration
// stays in effect.
func Initialize(ctx context.Context, cfg Config) error {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn(ctx, "glimpse runtime already initialized; ignoring configuration")
		}
		return nil
	}

	r, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	instance = r
	return nil
}

// Instance returns the package-level runtime.
func Instance() (*Runtime, error) {
	instanceMu.RLock()
	defer instanceMu.RUnlock()

	if instance == nil {
		return nil, ErrNotInitialized
	}
	return instance, nil
}

// Reset clears the package-level runtime. Test use only.
func Reset() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}
