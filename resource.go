package glimpse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Resource is a named diagnostic data endpoint. Capabilities are declared as
// optional fields resolved at configuration time: exactly one of Execute and
// Privileged must be set. Privileged resources additionally receive the
// configuration snapshot and the request adapter.
type Resource struct {
	// Name identifies the resource. Matching is case-insensitive.
	Name string

	// Parameters lists the query parameter names the resource understands.
	// Informational; used in the metadata snapshot's URI templates.
	Parameters []string

	// Execute runs the resource.
	Execute func(ctx context.Context, rctx *ResourceContext) Result

	// Privileged runs the resource with configuration and adapter access.
	Privileged func(ctx context.Context, rctx *ResourceContext, cfg *Config, adapter Adapter) Result

	// DependsOn reports whether this resource depends on the named
	// resource. Dependencies of the default resource share its policy
	// re-derivation.
	DependsOn func(name string) bool
}

// validate checks the descriptor is well formed.
func (r *Resource) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("resource name is required")
	}
	if r.Execute == nil && r.Privileged == nil {
		return fmt.Errorf("resource %q has no executor", r.Name)
	}
	if r.Execute != nil && r.Privileged != nil {
		return fmt.Errorf("resource %q declares both a plain and a privileged executor", r.Name)
	}
	return nil
}

// uriTemplate renders the resource's endpoint URI for the metadata snapshot.
func (r *Resource) uriTemplate(baseURI, endpointPath string) string {
	var b strings.Builder
	b.WriteString(baseURI)
	b.WriteString(endpointPath)
	b.WriteString("?n=")
	b.WriteString(r.Name)
	for _, p := range r.Parameters {
		b.WriteString("&")
		b.WriteString(p)
		b.WriteString("={")
		b.WriteString(p)
		b.WriteString("}")
	}
	return b.String()
}

// ResourceContext carries the inputs a resource execution may use.
type ResourceContext struct {
	// RequestID is the identifier of the resource request itself.
	RequestID uuid.UUID

	// Parameters holds the call parameters, typically query values.
	Parameters map[string]string

	// Store gives read access to persisted records.
	Store PersistenceStore

	// Logger is the configured runtime logger.
	Logger Logger
}

// matchResources returns the registered resources whose name equals name,
// compared case-insensitively. Duplicate registrations are preserved so the
// dispatcher can report them as ambiguous.
func matchResources(resources []Resource, name string) []Resource {
	var matches []Resource
	for _, res := range resources {
		if strings.EqualFold(res.Name, name) {
			matches = append(matches, res)
		}
	}
	return matches
}

// MetadataResource returns the built-in default resource. It serves the
// runtime metadata snapshot so display clients can discover everything else.
func MetadataResource() Resource {
	return Resource{
		Name: "metadata",
		Privileged: func(ctx context.Context, rctx *ResourceContext, cfg *Config, adapter Adapter) Result {
			return NewDataResult(cfg.metadata())
		},
	}
}

// RequestsResource returns a built-in resource serving the most recent
// persisted request records. It accepts an optional "id" parameter selecting
// a single record.
func RequestsResource() Resource {
	return Resource{
		Name:       "requests",
		Parameters: []string{"id"},
		Execute: func(ctx context.Context, rctx *ResourceContext) Result {
			if raw, ok := rctx.Parameters["id"]; ok && raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return NewStatusResult(400, fmt.Sprintf("invalid request id %q", raw))
				}
				rec, err := rctx.Store.Get(ctx, id)
				if err != nil {
					return NewStatusResult(404, fmt.Sprintf("no record for request %s", id))
				}
				return NewDataResult(rec)
			}

			recs, err := rctx.Store.Recent(ctx, 25)
			if err != nil {
				return NewStatusResult(500, fmt.Sprintf("store error: %v", err))
			}
			return NewDataResult(recs)
		},
	}
}
