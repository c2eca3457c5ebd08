package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/airwin/platform/internal/errors"
)

// fakeRunner writes the output file ffmpeg would have produced, or fails.
type fakeRunner struct {
	err   error
	calls int
	args  [][]string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) error {
	f.calls++
	f.args = append(f.args, args)
	if f.err != nil {
		return f.err
	}
	// Last arg is the output path.
	return os.WriteFile(args[len(args)-1], []byte("mp3data"), 0o644)
}

func TestRecordSuccess(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	r := New("/usr/bin/ffmpeg", "http://stream.example/live", dir).WithRunner(runner)

	chunk, err := r.Record(context.Background(), "abc", 1, 150*time.Second)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if chunk.Seq != 1 {
		t.Errorf("Seq = %d, want 1", chunk.Seq)
	}
	if chunk.Size != int64(len("mp3data")) {
		t.Errorf("Size = %d", chunk.Size)
	}
	if filepath.Base(chunk.Path) != "session_abc_chunk_01.mp3" {
		t.Errorf("Path = %q", chunk.Path)
	}

	args := runner.args[0]
	if args[0] != "-i" || args[1] != "http://stream.example/live" {
		t.Errorf("stream args = %v", args[:2])
	}
	if args[2] != "-t" || args[3] != "150" {
		t.Errorf("duration args = %v", args[2:4])
	}
}

func TestRecordRunnerFailure(t *testing.T) {
	r := New("/usr/bin/ffmpeg", "http://stream.example/live", t.TempDir()).
		WithRunner(&fakeRunner{err: errors.New("exit status 1")})

	_, err := r.Record(context.Background(), "abc", 1, time.Minute)
	if err == nil {
		t.Fatal("Record() error = nil, want failure")
	}
	if !apperrors.IsCode(err, apperrors.CaptureFailed) {
		t.Errorf("error code = %v, want CaptureFailed", err)
	}
}

func TestSourceDownAfterConsecutiveFailures(t *testing.T) {
	r := New("/usr/bin/ffmpeg", "http://stream.example/live", t.TempDir()).
		WithRunner(&fakeRunner{err: errors.New("connection refused")})
	ctx := context.Background()

	for i := 1; !r.SourceDown() && i < 10; i++ {
		_, _ = r.Record(ctx, "abc", i, time.Second)
	}
	if !r.SourceDown() {
		t.Fatal("SourceDown() = false after repeated failures")
	}

	// The breaker now refuses outright.
	_, err := r.Record(ctx, "abc", 99, time.Second)
	if err == nil {
		t.Error("Record() succeeded while source down")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	runner := &fakeRunner{err: errors.New("blip")}
	r := New("/usr/bin/ffmpeg", "http://stream.example/live", t.TempDir()).WithRunner(runner)
	ctx := context.Background()

	_, _ = r.Record(ctx, "abc", 1, time.Second)
	runner.err = nil
	if _, err := r.Record(ctx, "abc", 2, time.Second); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if r.SourceDown() {
		t.Error("SourceDown() = true after a success")
	}
}

func TestCleanupMovesSessionChunks(t *testing.T) {
	dir := t.TempDir()
	r := New("/usr/bin/ffmpeg", "http://stream.example/live", dir).WithRunner(&fakeRunner{})
	ctx := context.Background()

	_, _ = r.Record(ctx, "mine", 1, time.Second)
	_, _ = r.Record(ctx, "mine", 2, time.Second)
	_, _ = r.Record(ctx, "other", 1, time.Second)

	r.Cleanup(ctx, "mine")

	if _, err := os.Stat(filepath.Join(dir, "processed", "session_mine_chunk_01.mp3")); err != nil {
		t.Errorf("chunk 1 not moved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session_other_chunk_01.mp3")); err != nil {
		t.Errorf("other session's chunk disturbed: %v", err)
	}
}
