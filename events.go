package glimpse

// RuntimeEvent identifies a point in the request lifecycle at which the
// runtime re-evaluates policy and invokes collectors.
type RuntimeEvent int

const (
	// BeginRequest is raised when the host starts handling a request.
	BeginRequest RuntimeEvent = iota
	// BeginSessionAccess is raised when the host acquires session state.
	BeginSessionAccess
	// EndSessionAccess is raised when the host releases session state.
	EndSessionAccess
	// ExecuteResource is raised for each diagnostic resource invocation.
	ExecuteResource
	// EndRequest is raised when the host finishes handling a request.
	EndRequest
)

// String returns the event name used for logging and telemetry labels.
func (e RuntimeEvent) String() string {
	switch e {
	case BeginRequest:
		return "begin-request"
	case BeginSessionAccess:
		return "begin-session-access"
	case EndSessionAccess:
		return "end-session-access"
	case ExecuteResource:
		return "execute-resource"
	case EndRequest:
		return "end-request"
	default:
		return "unknown"
	}
}
