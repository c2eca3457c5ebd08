// Package classify implements the two-stage verification state machine that
// turns an accumulated transcript into a confirmed outcome.
package classify

import (
	"encoding/json"
	"strings"

	apperrors "github.com/airwin/platform/internal/errors"
)

// Outcome is the discrete result of a verification pass.
type Outcome string

// Valid outcomes.
const (
	Win     Outcome = "WIN"
	Lose    Outcome = "LOSE"
	Unknown Outcome = "UNKNOWN"
)

// Confidence levels reported by the generation service.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Result is a validated classification record. Win/Lose outcomes are only
// possible when all three stage flags are true; anything else is coerced to
// Unknown before the result leaves this package.
type Result struct {
	CallMade   bool    `json:"call_made"`
	Outcome    Outcome `json:"outcome"`
	Message    string  `json:"sms_message"`
	Confidence string  `json:"confidence"`
	Stage1     bool    `json:"stage_1_call_initiated"`
	Stage2     bool    `json:"stage_2_call_completed"`
	Stage3     bool    `json:"stage_3_clear_outcome"`

	// Coerced records that stage gating overrode a Win/Lose claim.
	Coerced bool `json:"-"`
}

var requiredKeys = []string{
	"call_made", "outcome", "sms_message", "confidence",
	"stage_1_call_initiated", "stage_2_call_completed", "stage_3_clear_outcome",
}

// ParseResult strictly validates a raw generation response. Malformed
// responses are rejected, never guessed at; the caller discards them and
// retries on the next cycle with more transcript.
func ParseResult(raw string, maxMsgLen int) (Result, error) {
	raw = strings.TrimSpace(raw)

	// Presence check first: a record with a missing field must not decode
	// into zero values silently.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.LLMInvalidOutput, "classification not valid JSON")
	}
	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			return Result{}, apperrors.Newf(apperrors.LLMInvalidOutput, "classification missing key %q", k)
		}
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.LLMInvalidOutput, "classification field types")
	}

	switch r.Outcome {
	case Win, Lose, Unknown:
	default:
		return Result{}, apperrors.Newf(apperrors.LLMInvalidOutput, "invalid outcome %q", r.Outcome)
	}

	if maxMsgLen > 0 && len(r.Message) > maxMsgLen {
		return Result{}, apperrors.Newf(apperrors.LLMInvalidOutput, "message exceeds %d chars", maxMsgLen)
	}

	return gateStages(r), nil
}

// gateStages enforces the core invariant: Win/Lose requires all three stage
// flags, else the outcome is Unknown.
func gateStages(r Result) Result {
	if r.Outcome == Win || r.Outcome == Lose {
		if !(r.Stage1 && r.Stage2 && r.Stage3) {
			r.Outcome = Unknown
			r.Coerced = true
		}
	}
	return r
}

// Decided reports whether the result carries a confirmed outcome.
func (r Result) Decided() bool {
	return r.Outcome == Win || r.Outcome == Lose
}
