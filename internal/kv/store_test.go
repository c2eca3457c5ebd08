package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestGetAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("ok = true for absent key")
	}
}

func TestSetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, ok, err := store.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", val, ok, err)
	}
	if val != "v" {
		t.Errorf("val = %q, want %q", val, "v")
	}
}

func TestSetNXFirstWriterWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	won, err := store.SetNX(ctx, "lock", "a", time.Minute)
	if err != nil || !won {
		t.Fatalf("first SetNX = %v, %v, want true", won, err)
	}
	won, err = store.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil {
		t.Fatalf("second SetNX error = %v", err)
	}
	if won {
		t.Error("second SetNX won, want rejected")
	}
}

func TestSetNXExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, err := store.SetNX(ctx, "lock", "a", time.Second); err != nil {
		t.Fatalf("SetNX error = %v", err)
	}
	mr.FastForward(2 * time.Second)

	won, err := store.SetNX(ctx, "lock", "b", time.Second)
	if err != nil {
		t.Fatalf("SetNX after expiry error = %v", err)
	}
	if !won {
		t.Error("SetNX after expiry lost, want won")
	}
}

func TestExistsDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "k", "v", 0)
	ok, err := store.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v, want true", ok, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	ok, _ = store.Exists(ctx, "k")
	if ok {
		t.Error("Exists() = true after delete")
	}
}

func TestHashOps(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.HSet(ctx, "h", "f1", "v1"); err != nil {
		t.Fatalf("HSet() error = %v", err)
	}
	_ = store.HSet(ctx, "h", "f2", "v2")

	m, err := store.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	if len(m) != 2 || m["f1"] != "v1" {
		t.Errorf("HGetAll() = %v", m)
	}

	if err := store.HDel(ctx, "h", "f1"); err != nil {
		t.Fatalf("HDel() error = %v", err)
	}
	m, _ = store.HGetAll(ctx, "h")
	if _, present := m["f1"]; present {
		t.Error("f1 still present after HDel")
	}
}

func TestPing(t *testing.T) {
	store, mr := newTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() = nil after server close, want error")
	}
}
