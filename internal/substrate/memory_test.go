package substrate

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestMemorySubstrate_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	sub := NewMemorySubstrate()

	if err := sub.Set(ctx, "healthvault.a", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sub.Get(ctx, "healthvault.a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1" {
		t.Errorf("expected %q, got %q", "1", got)
	}

	if err = sub.Delete(ctx, "healthvault.a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = sub.Get(ctx, "healthvault.a"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestMemorySubstrate_GetMissing(t *testing.T) {
	sub := NewMemorySubstrate()

	if _, err := sub.Get(context.Background(), "nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemorySubstrate_DeleteMissingIsNoop(t *testing.T) {
	sub := NewMemorySubstrate()

	if err := sub.Delete(context.Background(), "nope"); err != nil {
		t.Fatalf("delete of a missing key must succeed, got %v", err)
	}
}

func TestMemorySubstrate_KeysFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	sub := NewMemorySubstrate()

	for _, key := range []string{"healthvault.a", "healthvault.b", "other.c"} {
		if err := sub.Set(ctx, key, "v"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	keys, err := sub.Keys(ctx, "healthvault.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "healthvault.a" || keys[1] != "healthvault.b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestMemorySubstrate_Overwrite(t *testing.T) {
	ctx := context.Background()
	sub := NewMemorySubstrate()

	if err := sub.Set(ctx, "k", "old"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sub.Set(ctx, "k", "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sub.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "new" {
		t.Errorf("expected overwritten value, got %q", got)
	}
}
