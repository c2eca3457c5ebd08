// Package capture records the live broadcast stream into fixed-duration,
// overlapping chunks via an external ffmpeg process. Each invocation captures
// live audio and cannot replay past chunks.
package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/airwin/platform/internal/errors"
	"github.com/airwin/platform/internal/resilience"
	"github.com/airwin/platform/internal/trace"
)

// Chunk is a handle to one captured segment.
type Chunk struct {
	Path     string
	Seq      int
	Duration time.Duration
	Size     int64
}

// Runner executes the capture process. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs real subprocesses.
type ExecRunner struct{}

// Run executes the command, discarding output. ffmpeg is invoked with
// -loglevel error so anything it prints is noise.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Recorder captures chunks for detection sessions.
type Recorder struct {
	bin       string
	streamURL string
	chunkDir  string
	runner    Runner
	breaker   *resilience.Breaker
}

// New creates a recorder writing into chunkDir.
func New(bin, streamURL, chunkDir string) *Recorder {
	return &Recorder{
		bin:       bin,
		streamURL: streamURL,
		chunkDir:  chunkDir,
		runner:    ExecRunner{},
		breaker:   resilience.NewBreaker(resilience.CaptureConfig()),
	}
}

// WithRunner replaces the subprocess runner (tests).
func (r *Recorder) WithRunner(runner Runner) *Recorder {
	r.runner = runner
	return r
}

// SourceDown reports whether consecutive capture failures have tripped the
// breaker; the session must abort instead of grinding through dead air.
func (r *Recorder) SourceDown() bool {
	return r.breaker.State() == resilience.Open
}

// Record captures one chunk of the given duration (chunk length plus overlap
// is the caller's concern). A failed or timed-out capture returns an error;
// the caller skips the chunk and continues unless the source is down.
func (r *Recorder) Record(ctx context.Context, sessionID string, seq int, duration time.Duration) (Chunk, error) {
	if err := r.breaker.Allow(); err != nil {
		return Chunk{}, apperrors.Wrap(err, apperrors.CaptureFailed, "capture source unreachable")
	}

	log := trace.Logger(ctx)

	if err := os.MkdirAll(r.chunkDir, 0o755); err != nil {
		return Chunk{}, apperrors.Wrap(err, apperrors.CaptureFailed, "chunk dir")
	}

	name := fmt.Sprintf("session_%s_chunk_%02d.mp3", sessionID, seq)
	path := filepath.Join(r.chunkDir, name)

	secs := int(duration.Seconds())
	args := []string{
		"-i", r.streamURL,
		"-t", strconv.Itoa(secs),
		"-acodec", "libmp3lame",
		"-ab", "128k",
		"-ar", "44100",
		"-ac", "2",
		"-y",
		"-loglevel", "error",
		path,
	}

	log.Info("recording chunk", "seq", seq, "file", name, "duration_sec", secs)

	// Real-time capture takes the full chunk duration; allow slack for
	// stream connection setup before declaring the attempt dead.
	runCtx, cancel := context.WithTimeout(ctx, duration+60*time.Second)
	defer cancel()

	if err := r.runner.Run(runCtx, r.bin, args...); err != nil {
		r.breaker.Failure()
		return Chunk{}, apperrors.Wrapf(err, apperrors.CaptureFailed, "chunk %d", seq)
	}

	info, err := os.Stat(path)
	if err != nil {
		r.breaker.Failure()
		return Chunk{}, apperrors.Wrapf(err, apperrors.CaptureFailed, "chunk %d not created", seq)
	}

	r.breaker.Success()
	log.Info("chunk recorded", "seq", seq, "bytes", info.Size())

	return Chunk{Path: path, Seq: seq, Duration: duration, Size: info.Size()}, nil
}

// Cleanup moves a session's chunks into a processed subdirectory. Audio is
// not persisted beyond the session; the processed area is an operator
// convenience emptied out of band.
func (r *Recorder) Cleanup(ctx context.Context, sessionID string) {
	log := trace.Logger(ctx)
	processed := filepath.Join(r.chunkDir, "processed")
	if err := os.MkdirAll(processed, 0o755); err != nil {
		log.Warn("cleanup: processed dir", "error", err)
		return
	}

	pattern := filepath.Join(r.chunkDir, fmt.Sprintf("session_%s_chunk_*.mp3", sessionID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		log.Warn("cleanup: glob", "error", err)
		return
	}
	for _, m := range matches {
		dst := filepath.Join(processed, filepath.Base(m))
		if err := os.Rename(m, dst); err != nil {
			log.Warn("cleanup: move chunk", "file", m, "error", err)
		}
	}
	log.Info("session chunks cleaned up", "count", len(matches))
}
