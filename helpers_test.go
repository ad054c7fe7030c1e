package glimpse

import (
	"context"
	"sync"
	"testing"
)

// fakeMetadata is a configurable RequestMetadata for tests.
type fakeMetadata struct {
	uri      string
	method   string
	headers  map[string]string
	cookies  map[string]string
	clientID string
	local    bool
}

func (m *fakeMetadata) RequestURI() string { return m.uri }

func (m *fakeMetadata) Method() string { return m.method }

func (m *fakeMetadata) Header(name string) string { return m.headers[name] }

func (m *fakeMetadata) Cookie(name string) (string, bool) {
	v, ok := m.cookies[name]
	return v, ok
}

func (m *fakeMetadata) ClientID() string { return m.clientID }

func (m *fakeMetadata) IsLocal() bool { return m.local }

// fakeResponse captures a WriteResponse call.
type fakeResponse struct {
	status      int
	contentType string
	body        []byte
}

// fakeAdapter records every mutation the runtime performs on the response.
type fakeAdapter struct {
	mu        sync.Mutex
	md        *fakeMetadata
	headers   map[string]string
	cookies   map[string]string
	injected  []string
	responses []fakeResponse
	injectErr error
}

func newFakeAdapter(uri string) *fakeAdapter {
	return &fakeAdapter{
		md: &fakeMetadata{
			uri:     uri,
			method:  "GET",
			headers: make(map[string]string),
			cookies: make(map[string]string),
			local:   true,
		},
		headers: make(map[string]string),
		cookies: make(map[string]string),
	}
}

// newResourceAdapter fakes a call targeting the default resource endpoint.
func newResourceAdapter(name string) *fakeAdapter {
	return newFakeAdapter("/glimpse?n=" + name)
}

func (a *fakeAdapter) Metadata() RequestMetadata { return a.md }

func (a *fakeAdapter) SetResponseHeader(name, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.headers[name] = value
}

func (a *fakeAdapter) SetCookie(name, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cookies[name] = value
}

func (a *fakeAdapter) InjectResponseBody(content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectErr != nil {
		return a.injectErr
	}
	a.injected = append(a.injected, content)
	return nil
}

func (a *fakeAdapter) WriteResponse(status int, contentType string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses = append(a.responses, fakeResponse{status: status, contentType: contentType, body: body})
	return nil
}

func (a *fakeAdapter) lastResponse(t *testing.T) fakeResponse {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.responses) == 0 {
		t.Fatal("no response was written to the adapter")
	}
	return a.responses[len(a.responses)-1]
}

// stubTab is a configurable Tab.
type stubTab struct {
	name    string
	on      RuntimeEvent
	collect func(ctx context.Context, rc *RequestContext) (any, error)
}

func (s stubTab) Name() string            { return s.name }
func (s stubTab) ExecuteOn() RuntimeEvent { return s.on }

func (s stubTab) Collect(ctx context.Context, rc *RequestContext) (any, error) {
	if s.collect == nil {
		return s.name + "-data", nil
	}
	return s.collect(ctx, rc)
}

// stubDisplay is a configurable Display.
type stubDisplay struct {
	name    string
	collect func(ctx context.Context, rc *RequestContext) (any, error)
}

func (s stubDisplay) Name() string { return s.name }

func (s stubDisplay) Collect(ctx context.Context, rc *RequestContext) (any, error) {
	if s.collect == nil {
		return s.name + "-data", nil
	}
	return s.collect(ctx, rc)
}

// echoResource returns a resource that reports its own name.
func echoResource(name string) Resource {
	return Resource{
		Name: name,
		Execute: func(ctx context.Context, rctx *ResourceContext) Result {
			return NewDataResult(map[string]string{"resource": name})
		},
	}
}

// newTestRuntime builds a runtime with a silent logger unless the test
// configured one.
func newTestRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = NewNoopLogger()
	}
	rt, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to build runtime: %v", err)
	}
	return rt
}
