package answers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/airwin/platform/internal/kv"
)

func newMemory(t *testing.T, window time.Duration) (*Memory, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := kv.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New(store, "test-pipeline", window).WithClock(func() time.Time { return now })
	return m, &now
}

func TestRememberThenDuplicate(t *testing.T) {
	m, _ := newMemory(t, time.Hour)
	ctx := context.Background()

	if err := m.Remember(ctx, "B, 1969"); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	dup, err := m.IsDuplicate(ctx, "B, 1969")
	if err != nil {
		t.Fatalf("IsDuplicate() error = %v", err)
	}
	if !dup {
		t.Error("IsDuplicate() = false for remembered answer")
	}
}

func TestDuplicateCaseInsensitive(t *testing.T) {
	m, _ := newMemory(t, time.Hour)
	ctx := context.Background()

	_ = m.Remember(ctx, "A, Paris")
	dup, err := m.IsDuplicate(ctx, "a, PARIS")
	if err != nil {
		t.Fatalf("IsDuplicate() error = %v", err)
	}
	if !dup {
		t.Error("IsDuplicate() = false for case variant")
	}
}

func TestDifferentAnswerNotDuplicate(t *testing.T) {
	m, _ := newMemory(t, time.Hour)
	ctx := context.Background()

	_ = m.Remember(ctx, "A, Paris")
	dup, err := m.IsDuplicate(ctx, "B, London")
	if err != nil {
		t.Fatalf("IsDuplicate() error = %v", err)
	}
	if dup {
		t.Error("IsDuplicate() = true for a different answer")
	}
}

func TestWindowExpiry(t *testing.T) {
	m, now := newMemory(t, time.Hour)
	ctx := context.Background()

	_ = m.Remember(ctx, "A, Paris")

	*now = now.Add(2 * time.Hour)
	dup, err := m.IsDuplicate(ctx, "A, Paris")
	if err != nil {
		t.Fatalf("IsDuplicate() error = %v", err)
	}
	if dup {
		t.Error("IsDuplicate() = true past the window")
	}
}

// Remembering a live duplicate must not refresh its timestamp.
func TestRememberDoesNotRefreshDuplicate(t *testing.T) {
	m, now := newMemory(t, time.Hour)
	ctx := context.Background()

	_ = m.Remember(ctx, "A, Paris")

	*now = now.Add(45 * time.Minute)
	_ = m.Remember(ctx, "A, Paris")

	*now = now.Add(30 * time.Minute) // 75min past the original record
	dup, err := m.IsDuplicate(ctx, "A, Paris")
	if err != nil {
		t.Fatalf("IsDuplicate() error = %v", err)
	}
	if dup {
		t.Error("duplicate Remember extended the window")
	}
}
