// Package guard decides whether a new detection session may start for an
// alarm source, and brackets result finalization so concurrent readers never
// act on a half-written result.
package guard

import (
	"context"
	"time"

	"github.com/airwin/platform/internal/kv"
	"github.com/airwin/platform/internal/trace"
)

const (
	cooldownPrefix   = "cooldown:"
	inProgressPrefix = "in_progress:"

	// Marker content is irrelevant; only key existence signals.
	marker = "1"

	// DefaultCooldown applies when a profile does not set its own.
	DefaultCooldown = 300 * time.Second

	// WaitReady polling.
	readyPollInterval = 500 * time.Millisecond
	readyPollMax      = 60 * time.Second

	// in_progress carries a short TTL so a crashed worker cannot wedge
	// readers forever.
	inProgressTTL = 5 * time.Minute
)

// Guard coordinates session admission through the shared store.
type Guard struct {
	store      kv.Store
	pipelineID string
}

// New creates a guard for one pipeline instance.
func New(store kv.Store, pipelineID string) *Guard {
	return &Guard{store: store, pipelineID: pipelineID}
}

// TryAcquire attempts to start a session for sourceKey. It returns false when
// a cooldown record exists or a result is currently being finalized. First
// acquirer wins; later concurrent triggers are rejected outright, not queued.
// Store errors propagate: the caller must abort rather than run unguarded.
func (g *Guard) TryAcquire(ctx context.Context, sourceKey string, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	inProgress, err := g.store.Exists(ctx, inProgressPrefix+g.pipelineID)
	if err != nil {
		return false, err
	}
	if inProgress {
		trace.Logger(ctx).Info("guard rejected trigger: result finalization in progress")
		return false, nil
	}

	// SetNX is the admission decision: existence of the cooldown record is
	// the signal, its value is opaque.
	won, err := g.store.SetNX(ctx, cooldownPrefix+sourceKey, marker, cooldown)
	if err != nil {
		return false, err
	}
	if !won {
		trace.Logger(ctx).Info("guard rejected trigger: cooldown active", "source", sourceKey)
	}
	return won, nil
}

// MarkInProgress flags that a result is being finalized.
func (g *Guard) MarkInProgress(ctx context.Context) error {
	return g.store.Set(ctx, inProgressPrefix+g.pipelineID, marker, inProgressTTL)
}

// ClearInProgress removes the finalization flag.
func (g *Guard) ClearInProgress(ctx context.Context) error {
	return g.store.Delete(ctx, inProgressPrefix+g.pipelineID)
}

// WaitReady polls until no result is being finalized, so a reader never
// consumes a half-written result. Bounded; returns false on timeout.
func (g *Guard) WaitReady(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(readyPollMax)
	for {
		inProgress, err := g.store.Exists(ctx, inProgressPrefix+g.pipelineID)
		if err != nil {
			return false, err
		}
		if !inProgress {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}
