package glimpse

import (
	"context"
	"testing"
)

func TestPolicyHas(t *testing.T) {
	p := PolicyCollectData | PolicyPersistResults

	if !p.Has(PolicyCollectData) {
		t.Error("expected collect-data to be enabled")
	}
	if !p.Has(PolicyCollectData | PolicyPersistResults) {
		t.Error("expected combined capabilities to be enabled")
	}
	if p.Has(PolicyDisplayClient) {
		t.Error("display-client should not be enabled")
	}
	if PolicyOff.Has(PolicyCollectData) {
		t.Error("off policy should have no capabilities")
	}
	if p.Has(PolicyOff) {
		t.Error("Has with no capabilities should be false")
	}
}

func TestPolicyNarrow(t *testing.T) {
	p := PolicyOn

	p = p.Narrow(PolicyCollectData | PolicyPersistResults)
	if p != PolicyCollectData|PolicyPersistResults {
		t.Errorf("Narrow = %v, want collect-data,persist-results", p)
	}

	// Narrowing can never add a capability.
	p = p.Narrow(PolicyOn)
	if p != PolicyCollectData|PolicyPersistResults {
		t.Errorf("Narrow widened the policy to %v", p)
	}

	// Off absorbs everything.
	p = p.Narrow(PolicyOff)
	if !p.IsOff() {
		t.Errorf("Narrow(Off) = %v, want off", p)
	}
	if p.Narrow(PolicyOn) != PolicyOff {
		t.Error("a policy at Off must stay Off under narrowing")
	}
}

func TestPolicyString(t *testing.T) {
	tests := []struct {
		policy Policy
		want   string
	}{
		{PolicyOff, "off"},
		{PolicyCollectData, "collect-data"},
		{PolicyCollectData | PolicyExecuteResources, "collect-data,execute-resources"},
		{PolicyOn, "collect-data,persist-results,modify-response-headers,display-client,execute-resources"},
	}

	for _, tt := range tests {
		if got := tt.policy.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]string{"collect-data", "Execute-Resources"})
	if err != nil {
		t.Fatalf("ParsePolicy failed: %v", err)
	}
	if p != PolicyCollectData|PolicyExecuteResources {
		t.Errorf("ParsePolicy = %v", p)
	}

	p, err = ParsePolicy([]string{"on"})
	if err != nil {
		t.Fatalf("ParsePolicy(on) failed: %v", err)
	}
	if p != PolicyOn {
		t.Errorf("ParsePolicy(on) = %v, want on", p)
	}

	p, err = ParsePolicy([]string{"collect-data", "off"})
	if err != nil {
		t.Fatalf("ParsePolicy(off) failed: %v", err)
	}
	if !p.IsOff() {
		t.Errorf("ParsePolicy(off) = %v, want off", p)
	}

	if _, err := ParsePolicy([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown capability")
	}
}

func TestControlCookieDeterminator(t *testing.T) {
	determine := ControlCookieDeterminator("glimpse")
	ctx := context.Background()

	adapter := newFakeAdapter("/index")
	if got := determine(ctx, BeginRequest, PolicyOn, adapter); got != PolicyOn {
		t.Errorf("no cookie: policy = %v, want unchanged", got)
	}

	adapter.md.cookies["glimpse"] = "off"
	if got := determine(ctx, BeginRequest, PolicyOn, adapter); !got.IsOff() {
		t.Errorf("cookie off: policy = %v, want off", got)
	}

	adapter.md.cookies["glimpse"] = "on"
	if got := determine(ctx, BeginRequest, PolicyOn, adapter); got != PolicyOn {
		t.Errorf("cookie on: policy = %v, want unchanged", got)
	}
}

func TestLocalRequestDeterminator(t *testing.T) {
	determine := LocalRequestDeterminator()
	ctx := context.Background()

	adapter := newFakeAdapter("/index")
	if got := determine(ctx, BeginRequest, PolicyOn, adapter); got != PolicyOn {
		t.Errorf("local request: policy = %v, want unchanged", got)
	}

	adapter.md.local = false
	got := determine(ctx, BeginRequest, PolicyOn, adapter)
	if got.Has(PolicyDisplayClient) || got.Has(PolicyExecuteResources) {
		t.Errorf("remote request kept client capabilities: %v", got)
	}
	if !got.Has(PolicyCollectData) {
		t.Errorf("remote request lost collect-data: %v", got)
	}
}
