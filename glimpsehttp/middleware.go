package glimpsehttp

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/glimpse-go/glimpse"
)

// Middleware drives the glimpse lifecycle around an inner handler. Regular
// requests run BeginRequest before the handler and EndRequest after it;
// calls to the configured resource endpoint are answered directly without
// invoking the inner handler. Responses are buffered so EndRequest can
// decorate them.
func Middleware(rt *glimpse.Runtime) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			resp := newBufferedResponse(w)
			a := newAdapter(resp, req, rt.Config().CookieName)

			h, err := rt.BeginRequest(req.Context(), a)
			if err != nil {
				// Begin-time collector failure; the host is entitled to
				// see it.
				http.Error(w, "diagnostics setup failed", http.StatusInternalServerError)
				return
			}

			if !h.Available() {
				// Policy turned instrumentation off; serve untouched.
				next.ServeHTTP(w, req)
				return
			}

			ctx := WithRequestID(req.Context(), h.ID())
			req = req.WithContext(ctx)

			if h.Mode() == glimpse.ResourceRequest {
				name, params := resourceCall(req)
				if err := rt.ExecuteResource(ctx, h, name, params); err != nil {
					// Coordination errors signal an integration defect.
					rt.Config().Logger.Error(ctx, err, "resource execution failed", "resource", name)
				}
				_ = resp.flush()
				return
			}

			next.ServeHTTP(resp, req)
			if err := rt.EndRequest(ctx, h); err != nil {
				rt.Config().Logger.Error(ctx, err, "failed to finish request instrumentation")
			}
			_ = resp.flush()
		})
	}
}

// resourceCall extracts the resource name and parameters from the query
// string. The resource name travels in the "n" parameter; everything else
// is handed to the resource as-is.
func resourceCall(req *http.Request) (string, map[string]string) {
	query := req.URL.Query()
	name := query.Get("n")

	params := make(map[string]string, len(query))
	for key, values := range query {
		if key == "n" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return name, params
}

// requestIDKey is the context key for the bound request identifier.
type requestIDKey struct{}

// WithRequestID binds a request identifier to the context.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Tracker resolves the request identifier bound by the middleware. Wire it
// into glimpse.Config.IDTracker to enable current-request resolution.
type Tracker struct{}

// ID implements glimpse.RequestIDTracker.
func (Tracker) ID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(uuid.UUID)
	return id, ok
}
