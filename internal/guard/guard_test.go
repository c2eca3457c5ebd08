package guard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/airwin/platform/internal/kv"
)

func newGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := kv.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return New(store, "test-pipeline"), mr
}

func TestTryAcquireFirstWins(t *testing.T) {
	g, _ := newGuard(t)
	ctx := context.Background()

	ok, err := g.TryAcquire(ctx, "station-a", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if !ok {
		t.Fatal("first TryAcquire rejected, want admitted")
	}
}

// Repeated triggers within the cooldown start exactly one session.
func TestTryAcquireCooldownRejectsRepeat(t *testing.T) {
	g, _ := newGuard(t)
	ctx := context.Background()

	if ok, _ := g.TryAcquire(ctx, "station-a", time.Minute); !ok {
		t.Fatal("first TryAcquire rejected")
	}
	for i := 0; i < 3; i++ {
		ok, err := g.TryAcquire(ctx, "station-a", time.Minute)
		if err != nil {
			t.Fatalf("TryAcquire() error = %v", err)
		}
		if ok {
			t.Fatal("repeat TryAcquire admitted during cooldown")
		}
	}
}

func TestTryAcquireAfterCooldownExpiry(t *testing.T) {
	g, mr := newGuard(t)
	ctx := context.Background()

	if ok, _ := g.TryAcquire(ctx, "station-a", time.Second); !ok {
		t.Fatal("first TryAcquire rejected")
	}
	mr.FastForward(2 * time.Second)

	ok, err := g.TryAcquire(ctx, "station-a", time.Second)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if !ok {
		t.Error("TryAcquire after expiry rejected, want admitted")
	}
}

func TestSourceKeysIndependent(t *testing.T) {
	g, _ := newGuard(t)
	ctx := context.Background()

	if ok, _ := g.TryAcquire(ctx, "station-a", time.Minute); !ok {
		t.Fatal("station-a rejected")
	}
	ok, err := g.TryAcquire(ctx, "station-b", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if !ok {
		t.Error("station-b rejected by station-a cooldown")
	}
}

func TestInProgressBlocksTrigger(t *testing.T) {
	g, _ := newGuard(t)
	ctx := context.Background()

	if err := g.MarkInProgress(ctx); err != nil {
		t.Fatalf("MarkInProgress() error = %v", err)
	}
	ok, err := g.TryAcquire(ctx, "station-a", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if ok {
		t.Error("TryAcquire admitted while a result is finalizing")
	}

	if err := g.ClearInProgress(ctx); err != nil {
		t.Fatalf("ClearInProgress() error = %v", err)
	}
	ok, _ = g.TryAcquire(ctx, "station-a", time.Minute)
	if !ok {
		t.Error("TryAcquire rejected after marker cleared")
	}
}

func TestWaitReadyImmediate(t *testing.T) {
	g, _ := newGuard(t)

	ready, err := g.WaitReady(context.Background())
	if err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if !ready {
		t.Error("WaitReady() = false with no marker")
	}
}

func TestWaitReadyAfterClear(t *testing.T) {
	g, _ := newGuard(t)
	ctx := context.Background()

	_ = g.MarkInProgress(ctx)
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = g.ClearInProgress(ctx)
	}()

	ready, err := g.WaitReady(ctx)
	if err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if !ready {
		t.Error("WaitReady() = false, want true after marker cleared")
	}
}

func TestTryAcquireStoreDown(t *testing.T) {
	g, mr := newGuard(t)
	mr.Close()

	_, err := g.TryAcquire(context.Background(), "station-a", time.Minute)
	if err == nil {
		t.Error("TryAcquire() = nil error with store down, want error")
	}
}
