// Package session owns the life of one alarm-triggered detection run. It
// sequences the admission guard, chunked capture, transcription, two-stage
// verification, duplicate suppression, and delivery, and guarantees that
// every session ends in exactly one terminal: delivered, suppressed
// duplicate, fallback, or aborted with a logged reason. A session that runs
// its window down without a confirmed outcome always emits the fallback;
// the only ways to stay silent are duplicate suppression and rejection at
// admission.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airwin/platform/internal/answers"
	"github.com/airwin/platform/internal/capture"
	"github.com/airwin/platform/internal/classify"
	"github.com/airwin/platform/internal/competition"
	"github.com/airwin/platform/internal/feed"
	"github.com/airwin/platform/internal/guard"
	"github.com/airwin/platform/internal/kv"
	"github.com/airwin/platform/internal/llm"
	"github.com/airwin/platform/internal/metrics"
	"github.com/airwin/platform/internal/syncx"
	"github.com/airwin/platform/internal/trace"
)

const lastAnswerPrefix = "last_answer:"

// Recorder captures one chunk at a time. Tests substitute a fake; the real
// implementation shells out to ffmpeg.
type Recorder interface {
	Record(ctx context.Context, sessionID string, seq int, duration time.Duration) (capture.Chunk, error)
	Cleanup(ctx context.Context, sessionID string)
	SourceDown() bool
}

// Transcriber converts one recorded chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Deliverer pushes a confirmed message downstream.
type Deliverer interface {
	Deliver(ctx context.Context, compName, message string) error
}

// Manager admits and runs detection sessions. One manager serves all
// competitions; admission is serialized per source key by the guard.
type Manager struct {
	guard    *guard.Guard
	recorder Recorder
	stt      Transcriber
	gen      llm.Generator
	memory   *answers.Memory
	notifier Deliverer
	store    kv.Store
	hub      *feed.Hub

	pipelineID string
	window     time.Duration

	active *syncx.RWGuard[map[string]string]

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager wires a session manager.
func NewManager(g *guard.Guard, rec Recorder, stt Transcriber, gen llm.Generator,
	mem *answers.Memory, notifier Deliverer, store kv.Store, hub *feed.Hub,
	pipelineID string, window time.Duration) *Manager {
	return &Manager{
		guard:      g,
		recorder:   rec,
		stt:        stt,
		gen:        gen,
		memory:     mem,
		notifier:   notifier,
		store:      store,
		hub:        hub,
		pipelineID: pipelineID,
		window:     window,
		active:     syncx.NewGuard(make(map[string]string)),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// WithClock replaces the clock and sleeper (tests).
func (m *Manager) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Manager {
	m.now = now
	m.sleep = sleep
	return m
}

// Active returns the competitions with a running session, keyed by session ID.
func (m *Manager) Active() map[string]string {
	out := make(map[string]string)
	m.active.Read(func(a map[string]string) any {
		for id, comp := range a {
			out[id] = comp
		}
		return nil
	})
	return out
}

// Trigger attempts to admit a session for an accepted alarm. Admission runs
// synchronously so the caller sees rejections; the session itself runs on its
// own goroutine with its own lifetime, detached from the webhook request.
func (m *Manager) Trigger(ctx context.Context, prof *competition.Profile) (string, bool, error) {
	ok, err := m.guard.TryAcquire(ctx, prof.SourceKey, prof.Timing.Cooldown)
	if err != nil {
		return "", false, err
	}
	if !ok {
		metrics.SessionsRejected.WithLabelValues(prof.Name).Inc()
		m.hub.Publish(feed.Event{Kind: feed.KindSessionRejected, CompName: prof.Name, Detail: "cooldown or in progress"})
		return "", false, nil
	}

	id := uuid.NewString()
	metrics.SessionsStarted.WithLabelValues(prof.Name).Inc()
	m.active.Write(func(a *map[string]string) {
		(*a)[id] = prof.Name
	})
	m.hub.Publish(feed.Event{Kind: feed.KindSessionStarted, SessionID: id, CompName: prof.Name})

	go func() {
		// The session outlives the webhook request. Budget is the full
		// schedule plus slack for the final verification pass.
		runCtx, cancel := context.WithTimeout(context.Background(), prof.Timing.MaxTotal+prof.Timing.Extension+10*time.Minute)
		defer cancel()
		runCtx = trace.WithContext(runCtx, trace.New())
		m.run(runCtx, id, prof)
		m.active.Write(func(a *map[string]string) {
			delete(*a, id)
		})
	}()
	return id, true, nil
}

// run drives one session to a terminal state. Errors never escape; every
// path logs its terminal and publishes a done event.
func (m *Manager) run(ctx context.Context, id string, prof *competition.Profile) {
	ctx, span := trace.StartSpan(ctx, "detection_session")
	defer span.End()
	span.SetAttr("session_id", id)
	span.SetAttr("comp", prof.Name)
	log := trace.Logger(ctx).With("session_id", id, "comp", prof.Name)

	start := m.now()
	defer func() {
		metrics.SessionDuration.Observe(m.now().Sub(start).Seconds())
		m.recorder.Cleanup(ctx, id)
	}()

	log.Info("session admitted, waiting for broadcast",
		"initial_delay", prof.Timing.InitialDelay,
		"max_total", prof.Timing.MaxTotal)

	if err := m.sleep(ctx, prof.Timing.InitialDelay); err != nil {
		m.finish(ctx, id, prof, "aborted", "canceled during initial delay")
		return
	}

	machine := classify.NewMachine(m.gen, prof)
	machine.StartRecording()

	transcript, confirmed := m.recordAndAnalyze(ctx, id, prof, machine, start)

	if confirmed != nil {
		confirmed = m.extendAndReconfirm(ctx, id, prof, machine, transcript)
	}

	switch {
	case confirmed != nil && confirmed.Decided():
		msg, dedupe := composeMessage(prof, confirmed)
		metrics.Classifications.WithLabelValues(string(confirmed.Outcome)).Inc()
		m.hub.Publish(feed.Event{Kind: feed.KindOutcome, SessionID: id, CompName: prof.Name, Detail: string(confirmed.Outcome)})
		m.deliver(ctx, id, prof, msg, dedupe)
	default:
		metrics.Classifications.WithLabelValues(string(classify.Unknown)).Inc()
		log.Warn("window elapsed without a clear outcome, sending fallback")
		m.deliver(ctx, id, prof, machine.Timeout(), false)
	}
}

// recordAndAnalyze runs the chunk loop until an outcome is confirmed or the
// recording budget is spent. Capture and transcription failures skip the
// chunk; the loop itself only stops on budget, confirmation, or a dead
// source.
func (m *Manager) recordAndAnalyze(ctx context.Context, id string, prof *competition.Profile,
	machine *classify.Machine, start time.Time) (string, *classify.Result) {
	log := trace.Logger(ctx).With("session_id", id)
	deadline := start.Add(prof.Timing.InitialDelay + prof.Timing.MaxTotal)
	chunkLen := prof.Timing.ChunkLen + prof.Timing.Overlap

	var sb strings.Builder
	var recorded time.Duration

	for seq := 1; seq <= prof.Timing.MaxChunks(); seq++ {
		if !m.now().Before(deadline) || ctx.Err() != nil {
			break
		}
		if m.recorder.SourceDown() {
			log.Error("capture source unavailable, aborting session")
			break
		}

		text, ok := m.captureChunk(ctx, id, seq, chunkLen)
		recorded += prof.Timing.ChunkLen
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "--- Chunk %d ---\n%s\n", seq, text)
		m.hub.Publish(feed.Event{Kind: feed.KindChunkTranscript, SessionID: id, CompName: prof.Name, Detail: text})

		if recorded < prof.Timing.MinAnalysis {
			continue
		}
		result, err := machine.Analyze(ctx, sb.String())
		if err != nil {
			log.Warn("analysis pass failed, continuing", "error", err)
			continue
		}
		if result != nil {
			return sb.String(), result
		}
	}
	return sb.String(), nil
}

// extendAndReconfirm records the bounded post-confirmation context and runs
// the final verification pass over the extended transcript.
func (m *Manager) extendAndReconfirm(ctx context.Context, id string, prof *competition.Profile,
	machine *classify.Machine, transcript string) *classify.Result {
	log := trace.Logger(ctx).With("session_id", id)
	machine.BeginExtension()
	log.Info("outcome confirmed, recording additional context", "extension", prof.Timing.Extension)

	sb := strings.Builder{}
	sb.WriteString(transcript)
	base := prof.Timing.MaxChunks()
	chunkLen := prof.Timing.ChunkLen + prof.Timing.Overlap

	for i := 1; i <= prof.Timing.ExtensionChunks(); i++ {
		if ctx.Err() != nil {
			break
		}
		text, ok := m.captureChunk(ctx, id, base+i, chunkLen)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "--- Chunk %d ---\n%s\n", base+i, text)
		m.hub.Publish(feed.Event{Kind: feed.KindChunkTranscript, SessionID: id, CompName: prof.Name, Detail: text})
	}

	return machine.Reconfirm(ctx, sb.String())
}

// captureChunk records and transcribes one chunk. A false return means the
// chunk contributed no text.
func (m *Manager) captureChunk(ctx context.Context, id string, seq int, dur time.Duration) (string, bool) {
	log := trace.Logger(ctx).With("session_id", id, "chunk", seq)

	chunk, err := m.recorder.Record(ctx, id, seq, dur)
	if err != nil {
		metrics.ChunksFailed.Inc()
		log.Warn("chunk capture failed", "error", err)
		return "", false
	}
	metrics.ChunksRecorded.Inc()

	text, err := m.stt.Transcribe(ctx, chunk.Path)
	if err != nil {
		metrics.TranscriptsFailed.Inc()
		log.Warn("chunk transcription failed", "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	log.Info("chunk transcribed", "chars", len(text))
	return text, true
}

// deliver pushes the message downstream, suppressing answers already emitted
// within the memory window. The in-progress marker covers the delivery so a
// concurrent trigger for the same pipeline waits it out.
func (m *Manager) deliver(ctx context.Context, id string, prof *competition.Profile, msg string, dedupe bool) {
	log := trace.Logger(ctx).With("session_id", id, "comp", prof.Name)

	if dedupe {
		dup, err := m.memory.IsDuplicate(ctx, msg)
		if err != nil {
			log.Warn("duplicate check unavailable, delivering anyway", "error", err)
		} else if dup {
			metrics.DuplicatesSuppressed.Inc()
			log.Info("answer already delivered within the window, suppressing")
			m.finish(ctx, id, prof, "suppressed", msg)
			return
		}
	}

	if err := m.guard.MarkInProgress(ctx); err != nil {
		log.Warn("in-progress marker not set", "error", err)
	}
	defer func() {
		if err := m.guard.ClearInProgress(ctx); err != nil {
			log.Warn("in-progress marker not cleared", "error", err)
		}
	}()

	if err := m.notifier.Deliver(ctx, prof.Name, msg); err != nil {
		metrics.Deliveries.WithLabelValues("error").Inc()
		log.Error("delivery failed", "error", err)
		m.finish(ctx, id, prof, "delivery_failed", msg)
		return
	}
	metrics.Deliveries.WithLabelValues("ok").Inc()

	if dedupe {
		if err := m.memory.Remember(ctx, msg); err != nil {
			log.Warn("answer not recorded in memory", "error", err)
		}
	}
	if err := m.store.Set(ctx, lastAnswerPrefix+m.pipelineID, msg, m.window); err != nil {
		log.Warn("last answer not stored", "error", err)
	}

	log.Info("message delivered", "chars", len(msg))
	m.hub.Publish(feed.Event{Kind: feed.KindDelivery, SessionID: id, CompName: prof.Name, Detail: msg})
	m.finish(ctx, id, prof, "delivered", msg)
}

func (m *Manager) finish(ctx context.Context, id string, prof *competition.Profile, terminal, detail string) {
	trace.Logger(ctx).Info("session finished", "session_id", id, "comp", prof.Name, "terminal", terminal)
	m.hub.Publish(feed.Event{Kind: feed.KindSessionDone, SessionID: id, CompName: prof.Name, Detail: terminal + ": " + detail})
}

// composeMessage picks the outbound text for a decided result. Competitions
// with fixed outcome templates always send them; competitions whose message
// is the extracted answer itself go through duplicate suppression.
func composeMessage(prof *competition.Profile, r *classify.Result) (string, bool) {
	switch r.Outcome {
	case classify.Win:
		if prof.Templates.Win != "" {
			return prof.Templates.Win, false
		}
	case classify.Lose:
		if prof.Templates.Lose != "" {
			return prof.Templates.Lose, false
		}
	}
	// The message length bound was already enforced during result
	// validation; the text passes through verbatim.
	return r.Message, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
