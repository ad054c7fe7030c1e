package glimpse

import (
	"context"

	"github.com/google/uuid"
)

// RequestMetadata exposes the read-only facts about the inbound request that
// the runtime and policy determinators are allowed to see.
type RequestMetadata interface {
	// RequestURI returns the path and query of the inbound request.
	RequestURI() string

	// Method returns the HTTP method of the inbound request.
	Method() string

	// Header returns the first value of the named request header, or "".
	Header(name string) string

	// Cookie returns the named request cookie value and whether it was set.
	Cookie(name string) (string, bool)

	// ClientID returns the client identifier previously assigned to the
	// caller, or "" when none has been assigned yet.
	ClientID() string

	// IsLocal reports whether the request originates from the local machine.
	IsLocal() bool
}

// Adapter is the narrow surface the runtime needs from the web host. One
// adapter is created per inbound request and is owned exclusively by that
// request's context until disposal.
type Adapter interface {
	// Metadata returns the read-only request metadata.
	Metadata() RequestMetadata

	// SetResponseHeader sets a response header.
	SetResponseHeader(name, value string)

	// SetCookie sets a response cookie.
	SetCookie(name, value string)

	// InjectResponseBody appends markup to the response body. The host
	// decides where in the document the injection lands.
	InjectResponseBody(content string) error

	// WriteResponse replaces the response with the given status, content
	// type and body. Used by resource results only.
	WriteResponse(status int, contentType string, body []byte) error
}

// RequestIDTracker resolves the identifier of the request bound to the
// calling execution context. The host integration supplies it so external
// callers can read the current request's diagnostic context without holding
// a handle.
type RequestIDTracker interface {
	// ID returns the current request identifier, if one is bound.
	ID(ctx context.Context) (uuid.UUID, bool)
}
