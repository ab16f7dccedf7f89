package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
)

func TestKVRoundtrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("unexpected value: %q", data)
	}
}

func TestGet_Missing(t *testing.T) {
	s := NewStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL_Expires(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after expiry, got %v", err)
	}
	exists, err := s.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expired key must not exist")
	}
}

func TestHashRoundtrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.HSetMulti(ctx, []db.HashSetItem{
		{Key: "h1", Fields: map[string]string{"a": "1"}},
		{Key: "h2", Fields: map[string]string{"b": "2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// merge semantics on repeated HSET
	if err := s.HSet(ctx, "h1", map[string]string{"c": "3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := s.HGetAll(ctx, "h1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["a"] != "1" || m["c"] != "3" {
		t.Errorf("unexpected hash: %v", m)
	}

	multi, err := s.HGetAllMulti(ctx, []string{"h1", "h2", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(multi) != 3 {
		t.Fatalf("expected 3 results, got %d", len(multi))
	}
	if multi[1]["b"] != "2" {
		t.Errorf("unexpected h2: %v", multi[1])
	}
	if len(multi[2]) != 0 {
		t.Errorf("missing key must read as empty map, got %v", multi[2])
	}
}

func TestHGetAll_ReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.HSet(ctx, "h", map[string]string{"a": "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := s.HGetAll(ctx, "h")
	m["a"] = "mutated"

	again, _ := s.HGetAll(ctx, "h")
	if again["a"] != "1" {
		t.Error("HGetAll must return a copy")
	}
}

func TestDelAndDelMulti(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.HSet(ctx, "h1", map[string]string{"a": "1"})
	_ = s.Set(ctx, "k1", []byte("v"))
	_ = s.Set(ctx, "k2", []byte("v"))

	if err := s.Del(ctx, "h1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists, _ := s.Exists(ctx, "h1"); exists {
		t.Error("h1 must be gone")
	}

	if err := s.DelMulti(ctx, []string{"k1", "k2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Error("k1 must be gone")
	}
}

func TestScan_GlobMatch(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.HSet(ctx, "ragdex:doc:alpha", map[string]string{"a": "1"})
	_ = s.HSet(ctx, "ragdex:doc:beta", map[string]string{"a": "1"})
	_ = s.HSet(ctx, "ragdex:chunk:alpha:0", map[string]string{"a": "1"})
	_ = s.Set(ctx, "ragdex:version", []byte("1"))

	keys, err := s.Scan(ctx, "ragdex:doc:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "ragdex:doc:alpha" || keys[1] != "ragdex:doc:beta" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = s.Set(ctx, "shared", []byte{byte(w)})
				_ = s.HSet(ctx, "hash", map[string]string{"f": "v"})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = s.Get(ctx, "shared")
				_, _ = s.Scan(ctx, "*")
			}
		}()
	}
	wg.Wait()

	if exists, _ := s.Exists(ctx, "shared"); !exists {
		t.Error("shared key must exist after writers finish")
	}
}
