// Package answers keeps a sliding-time-window memory of previously emitted
// answers so recurring content never notifies twice. The memory lives in the
// shared store because workers may run in separate processes.
package answers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/airwin/platform/internal/kv"
	"github.com/airwin/platform/internal/trace"
)

const memoryPrefix = "answer_memory:"

// Memory is the duplicate-answer window for one pipeline.
type Memory struct {
	store  kv.Store
	key    string
	window time.Duration
	now    func() time.Time
}

// New creates an answer memory with the given window.
func New(store kv.Store, pipelineID string, window time.Duration) *Memory {
	return &Memory{
		store:  store,
		key:    memoryPrefix + pipelineID,
		window: window,
		now:    time.Now,
	}
}

// WithClock replaces the clock (tests).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// IsDuplicate prunes expired records, then reports whether text matches a
// live record case-insensitively.
func (m *Memory) IsDuplicate(ctx context.Context, text string) (bool, error) {
	live, err := m.prune(ctx)
	if err != nil {
		return false, err
	}

	needle := strings.ToLower(strings.TrimSpace(text))
	for _, v := range live {
		if strings.ToLower(strings.TrimSpace(v)) == needle {
			return true, nil
		}
	}
	return false, nil
}

// Remember records an answer at the current time. At most one live record
// exists per distinct case-folded text; an existing match is left alone so
// its original observation time keeps the window honest.
func (m *Memory) Remember(ctx context.Context, text string) error {
	dup, err := m.IsDuplicate(ctx, text)
	if err != nil {
		return err
	}
	if dup {
		return nil
	}
	field := strconv.FormatInt(m.now().UnixNano(), 10)
	return m.store.HSet(ctx, m.key, field, text)
}

// prune removes records older than the window and returns the survivors.
// Hash fields are observation timestamps in unix nanos.
func (m *Memory) prune(ctx context.Context) (map[string]string, error) {
	all, err := m.store.HGetAll(ctx, m.key)
	if err != nil {
		return nil, err
	}

	cutoff := m.now().Add(-m.window).UnixNano()
	var expired []string
	live := make(map[string]string, len(all))

	for field, text := range all {
		ts, err := strconv.ParseInt(field, 10, 64)
		if err != nil || ts < cutoff {
			expired = append(expired, field)
			continue
		}
		live[field] = text
	}

	if len(expired) > 0 {
		if err := m.store.HDel(ctx, m.key, expired...); err != nil {
			return nil, err
		}
		trace.Logger(ctx).Debug("pruned expired answers", "count", len(expired))
	}
	return live, nil
}
