// Package kvtest provides the shared contract test every kv.Store
// backend must pass.
package kvtest

import (
	"context"
	"testing"

	"github.com/MayStepanyan/lunchbreakbot/internal/kv"
)

// Run exercises the kv.Store contract against the store returned by
// open. The store is closed when the test finishes.
func Run(t *testing.T, open func(t *testing.T) kv.Store) {
	t.Helper()

	t.Run("ScalarSetGet", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		if _, ok, err := s.Get(ctx, "absent"); err != nil || ok {
			t.Fatalf("get absent: ok=%v err=%v", ok, err)
		}
		if err := s.Set(ctx, "flag", "true"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Set(ctx, "flag", "false"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		v, ok, err := s.Get(ctx, "flag")
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if v != "false" {
			t.Fatalf("expected last write to win, got %q", v)
		}
	})

	t.Run("ListAppendOrder", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		for _, v := range []string{"rice", "soup", "rice"} {
			if err := s.Append(ctx, "orders", v); err != nil {
				t.Fatalf("append %q: %v", v, err)
			}
		}
		got, err := s.List(ctx, "orders")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"rice", "soup", "rice"}
		if len(got) != len(want) {
			t.Fatalf("expected %d items, got %v", len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("position %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("ListAbsentIsEmpty", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		got, err := s.List(ctx, "nothing")
		if err != nil {
			t.Fatalf("list absent: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty list, got %v", got)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		if err := s.Append(ctx, "k", "v"); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete absent: %v", err)
		}
		got, err := s.List(ctx, "k")
		if err != nil || len(got) != 0 {
			t.Fatalf("list after delete: %v err=%v", got, err)
		}
	})

	t.Run("KeysPattern", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		if err := s.Append(ctx, "conversation:c1:user:alice:orders", "rice"); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := s.Append(ctx, "conversation:c1:user:bob:orders", "soup"); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := s.Append(ctx, "conversation:c2:user:alice:orders", "salad"); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := s.Set(ctx, "conversation:c1:is_collecting", "true"); err != nil {
			t.Fatalf("set: %v", err)
		}

		keys, err := s.Keys(ctx, "conversation:c1:user:*:orders")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 2 {
			t.Fatalf("expected 2 keys, got %v", keys)
		}
		found := make(map[string]bool, len(keys))
		for _, k := range keys {
			found[k] = true
		}
		if !found["conversation:c1:user:alice:orders"] || !found["conversation:c1:user:bob:orders"] {
			t.Fatalf("unexpected key set: %v", keys)
		}
	})

	t.Run("KeysSeesScalars", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		if err := s.Set(ctx, "conversation:c9:is_collecting", "true"); err != nil {
			t.Fatalf("set: %v", err)
		}
		keys, err := s.Keys(ctx, "conversation:c9:*")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 1 || keys[0] != "conversation:c9:is_collecting" {
			t.Fatalf("unexpected keys: %v", keys)
		}
	})
}
