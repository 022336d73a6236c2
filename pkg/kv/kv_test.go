package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/haivivi/luasched/pkg/kv"
)

func newMemory(t *testing.T) kv.Store {
	t.Helper()
	s := kv.NewMemory()
	t.Cleanup(func() { s.Close() })
	return s
}

func newBadger(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s kv.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, newMemory(t)) })
	t.Run("badger", func(t *testing.T) { fn(t, newBadger(t)) })
}

func TestGetSetDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()

		if _, err := s.Get(ctx, "a"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := s.Set(ctx, "a", []byte("hello")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "hello" {
			t.Fatalf("Get = %q, want %q", got, "hello")
		}

		if err := s.Set(ctx, "a", []byte("world")); err != nil {
			t.Fatalf("Set overwrite: %v", err)
		}
		got, _ = s.Get(ctx, "a")
		if string(got) != "world" {
			t.Fatalf("Get = %q, want %q", got, "world")
		}

		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "a"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "missing"); err != nil {
			t.Fatalf("Delete missing: %v", err)
		}
	})
}

func TestList(t *testing.T) {
	forEachStore(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, k := range []string{"user:2", "user:1", "session:1", "user:10"} {
			if err := s.Set(ctx, k, []byte(k)); err != nil {
				t.Fatalf("Set %s: %v", k, err)
			}
		}

		var keys []string
		for e, err := range s.List(ctx, "user:") {
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if string(e.Value) != e.Key {
				t.Fatalf("value for %s = %q", e.Key, e.Value)
			}
			keys = append(keys, e.Key)
		}
		want := []string{"user:1", "user:10", "user:2"}
		if len(keys) != len(want) {
			t.Fatalf("List keys = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Fatalf("List keys = %v, want %v", keys, want)
			}
		}
	})
}

func TestListEarlyStop(t *testing.T) {
	forEachStore(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, k := range []string{"k1", "k2", "k3"} {
			s.Set(ctx, k, []byte("v"))
		}
		n := 0
		for _, err := range s.List(ctx, "k") {
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Fatalf("iterated %d entries, want 2", n)
		}
	})
}

func TestValueIsCopied(t *testing.T) {
	forEachStore(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		buf := []byte("abc")
		s.Set(ctx, "k", buf)
		buf[0] = 'x'
		got, _ := s.Get(ctx, "k")
		if string(got) != "abc" {
			t.Fatalf("stored value changed to %q", got)
		}
	})
}

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("Get = %q, want %q", got, "v")
	}
}
