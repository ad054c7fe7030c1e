package glimpse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newRecord(uri string) *RequestRecord {
	return &RequestRecord{
		ID:         uuid.New(),
		RequestURI: uri,
		Method:     "GET",
		RecordedAt: time.Now(),
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	rec := newRecord("/orders")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RequestURI != "/orders" {
		t.Errorf("uri = %q, want /orders", got.RequestURI)
	}

	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("missing record error = %v, want ErrRecordNotFound", err)
	}

	if err := store.Save(ctx, nil); err == nil {
		t.Error("expected error for nil record")
	}
}

func TestMemoryStoreRecentOrder(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	first := newRecord("/first")
	second := newRecord("/second")
	third := newRecord("/third")
	for _, rec := range []*RequestRecord{first, second, third} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].RequestURI != "/third" || recent[1].RequestURI != "/second" {
		t.Errorf("recent order = %q, %q", recent[0].RequestURI, recent[1].RequestURI)
	}

	// n <= 0 returns everything.
	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d records, want 3", len(all))
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	first := newRecord("/first")
	second := newRecord("/second")
	third := newRecord("/third")
	for _, rec := range []*RequestRecord{first, second, third} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if _, err := store.Get(ctx, first.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Error("oldest record should have been evicted")
	}
	if _, err := store.Get(ctx, third.ID); err != nil {
		t.Errorf("newest record missing: %v", err)
	}
}

func TestMemoryStoreMetadata(t *testing.T) {
	store := NewMemoryStore(10).(*memoryStore)
	ctx := context.Background()

	md := &Metadata{Version: "1.0", Resources: map[string]string{"metadata": "/glimpse?n=metadata"}}
	if err := store.SaveMetadata(ctx, md); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	if got := store.Metadata(); got == nil || got.Version != "1.0" {
		t.Errorf("metadata = %+v, want version 1.0", got)
	}
}
