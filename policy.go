package glimpse

import (
	"context"
	"fmt"
	"strings"
)

// Policy is the set of diagnostic capabilities enabled for a request.
// Capabilities are independent bits; the zero value is PolicyOff, which
// disables everything and absorbs any further narrowing.
type Policy uint8

const (
	// PolicyCollectData permits providers to gather diagnostic data.
	PolicyCollectData Policy = 1 << iota
	// PolicyPersistResults permits writing the request record to the store.
	PolicyPersistResults
	// PolicyModifyResponseHeaders permits the correlation header and cookie.
	PolicyModifyResponseHeaders
	// PolicyDisplayClient permits script injection into the response body.
	PolicyDisplayClient
	// PolicyExecuteResources permits diagnostic resource execution.
	PolicyExecuteResources
)

// PolicyOff disables all instrumentation. Once a context's policy reaches
// PolicyOff it stays off for the remainder of that context's lifetime.
const PolicyOff Policy = 0

// PolicyOn enables every capability.
const PolicyOn = PolicyCollectData | PolicyPersistResults | PolicyModifyResponseHeaders |
	PolicyDisplayClient | PolicyExecuteResources

// Has reports whether every capability in caps is enabled.
func (p Policy) Has(caps Policy) bool {
	return caps != 0 && p&caps == caps
}

// Narrow returns the intersection of p and other. Narrowing is the only
// permitted transition between policy values after the initial assignment;
// it can never add a capability.
func (p Policy) Narrow(other Policy) Policy {
	return p & other
}

// IsOff reports whether all capabilities are disabled.
func (p Policy) IsOff() bool {
	return p == PolicyOff
}

// policyCapabilities maps capability bits to their stable names, in the
// order used by String.
var policyCapabilities = []struct {
	cap  Policy
	name string
}{
	{PolicyCollectData, "collect-data"},
	{PolicyPersistResults, "persist-results"},
	{PolicyModifyResponseHeaders, "modify-response-headers"},
	{PolicyDisplayClient, "display-client"},
	{PolicyExecuteResources, "execute-resources"},
}

// String returns a comma-separated list of the enabled capability names.
func (p Policy) String() string {
	if p.IsOff() {
		return "off"
	}
	names := make([]string, 0, len(policyCapabilities))
	for _, c := range policyCapabilities {
		if p.Has(c.cap) {
			names = append(names, c.name)
		}
	}
	return strings.Join(names, ",")
}

// ParsePolicy converts a list of capability names into a Policy value.
// The names "on" and "off" select PolicyOn and PolicyOff respectively.
func ParsePolicy(names []string) (Policy, error) {
	var p Policy
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "on":
			p |= PolicyOn
		case "off":
			return PolicyOff, nil
		default:
			matched := false
			for _, c := range policyCapabilities {
				if c.name == name {
					p |= c.cap
					matched = true
					break
				}
			}
			if !matched {
				return PolicyOff, fmt.Errorf("unknown policy capability %q", name)
			}
		}
	}
	return p, nil
}

// PolicyDeterminator inspects runtime request signals and returns the policy
// it considers appropriate for the given event. Determinators run fresh at
// every lifecycle event; the runtime intersects their output with the current
// policy so a determinator can only narrow, never widen.
type PolicyDeterminator func(ctx context.Context, event RuntimeEvent, current Policy, adapter Adapter) Policy

// ControlCookieDeterminator returns a determinator that reads an opt-out
// cookie from the request. A cookie value of "off" disables all
// instrumentation for the request; any other value leaves the policy alone.
func ControlCookieDeterminator(cookieName string) PolicyDeterminator {
	return func(ctx context.Context, event RuntimeEvent, current Policy, adapter Adapter) Policy {
		value, ok := adapter.Metadata().Cookie(cookieName)
		if !ok {
			return current
		}
		if strings.EqualFold(strings.TrimSpace(value), "off") {
			return PolicyOff
		}
		return current
	}
}

// LocalRequestDeterminator returns a determinator that disables the client
// display capabilities for requests that do not originate from the local
// machine. The adapter decides what counts as local.
func LocalRequestDeterminator() PolicyDeterminator {
	return func(ctx context.Context, event RuntimeEvent, current Policy, adapter Adapter) Policy {
		if adapter.Metadata().IsLocal() {
			return current
		}
		return current.Narrow(PolicyCollectData | PolicyPersistResults)
	}
}
