package pending

import (
	"testing"
	"time"

	"subtrack/internal/core"
)

func candidate() core.QuickAddCandidate {
	return core.QuickAddCandidate{
		Name:       "Netflix",
		Price:      core.Money{Cents: 12900, Currency: core.NOK},
		ChargeDate: core.NewDate(2026, time.March, 15),
		Category:   "Streaming",
	}
}

func TestPutGet(t *testing.T) {
	s := NewStore(time.Minute)
	key := s.Put(42, candidate())
	if key == "" {
		t.Fatal("empty key")
	}

	got, ok := s.Get(42, key)
	if !ok {
		t.Fatal("stored candidate missing")
	}
	if got.Name != "Netflix" || got.Price.Cents != 12900 {
		t.Fatalf("got %+v", got)
	}
}

func TestOwnerMismatchIsMiss(t *testing.T) {
	s := NewStore(time.Minute)
	key := s.Put(42, candidate())

	if _, ok := s.Get(99, key); ok {
		t.Fatal("foreign user read a parked candidate")
	}
	// Still readable by the owner afterwards.
	if _, ok := s.Get(42, key); !ok {
		t.Fatal("owner read failed after foreign attempt")
	}
}

func TestUnknownKeyIsMiss(t *testing.T) {
	s := NewStore(time.Minute)
	if _, ok := s.Get(42, "nope"); ok {
		t.Fatal("unknown key read as hit")
	}
}

func TestDeleteConsumes(t *testing.T) {
	s := NewStore(time.Minute)
	key := s.Put(42, candidate())
	s.Delete(key)
	if _, ok := s.Get(42, key); ok {
		t.Fatal("deleted candidate still readable")
	}
}

func TestKeysAreUnique(t *testing.T) {
	s := NewStore(time.Minute)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := s.Put(42, candidate())
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
	if s.Len() != 100 {
		t.Fatalf("Len = %d, want 100", s.Len())
	}
}
