package classify

import (
	"context"
	"strings"

	"github.com/airwin/platform/internal/competition"
	"github.com/airwin/platform/internal/llm"
	"github.com/airwin/platform/internal/trace"
)

// State of the verification machine.
type State int

// Machine states. Timeout/Fallback is reachable from any non-final state
// once the session's maximum duration elapses.
const (
	StateInit State = iota
	StateRecording
	StateAnalyzing
	StateOutcomePending
	StateOutcomeConfirmed
	StateContextExtension
	StateFinalized
	StateFallback
)

func (s State) String() string {
	return [...]string{
		"init", "recording", "analyzing", "outcome_pending",
		"outcome_confirmed", "context_extension", "finalized", "fallback",
	}[s]
}

// Generation parameters per stage. Low temperature throughout; the master
// pass gets a tight token budget because its contract is one short line.
const (
	studentMaxTokens  = 300
	masterMaxTokens   = 60
	classifyMaxTokens = 400
	temperature       = 0.1
	topP              = 0.9
)

// masterRejectTag is the stage-2 sentinel for "nothing found".
const masterRejectTag = "#"

// Machine runs the two-stage verification for one session. Not safe for
// concurrent use; each session owns its machine exclusively.
type Machine struct {
	gen  llm.Generator
	prof *competition.Profile

	state        State
	callDetected bool
	confirmed    *Result
}

// NewMachine creates a verification machine for a profile.
func NewMachine(gen llm.Generator, prof *competition.Profile) *Machine {
	return &Machine{gen: gen, prof: prof, state: StateInit}
}

// State returns the current machine state.
func (m *Machine) State() State { return m.state }

// CallDetected reports whether any pass has seen evidence of a live call or
// announcement.
func (m *Machine) CallDetected() bool { return m.callDetected }

// Confirmed returns the confirmed result, if any.
func (m *Machine) Confirmed() *Result { return m.confirmed }

// StartRecording moves the machine out of init.
func (m *Machine) StartRecording() { m.state = StateRecording }

// Analyze runs one full two-stage pass over the accumulated transcript.
// A nil result with nil error means "nothing confirmed yet, keep recording".
func (m *Machine) Analyze(ctx context.Context, transcript string) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "classify_analyze")
	defer span.End()
	span.SetAttr("transcript_chars", len(transcript))
	log := trace.Logger(ctx)

	m.state = StateAnalyzing

	student, err := m.stage1(ctx, transcript)
	if err != nil {
		return nil, err
	}
	if student == "" {
		log.Info("stage 1 found nothing relevant")
		m.state = StateRecording
		return nil, nil
	}

	master, err := m.stage2(ctx, student)
	if err != nil {
		return nil, err
	}
	if master == masterRejectTag {
		log.Info("stage 2 rejected stage 1 finding")
		m.state = StateRecording
		return nil, nil
	}

	m.state = StateOutcomePending

	result, err := m.finalClassification(ctx, transcript, student, master)
	if err != nil {
		// Malformed output is discarded, not retried in place; the next
		// chunk brings more context.
		log.Warn("classification rejected", "error", err)
		m.state = StateRecording
		return nil, nil
	}

	if result.CallMade {
		m.callDetected = true
	}
	if result.Coerced {
		log.Warn("outcome declared without all stages detected, forced UNKNOWN")
	}

	if !result.Decided() {
		log.Info("outcome still unknown, continuing recording")
		m.state = StateRecording
		return nil, nil
	}

	m.state = StateOutcomeConfirmed
	m.confirmed = result
	span.SetAttr("outcome", string(result.Outcome))
	return result, nil
}

// BeginExtension marks the bounded additional-context recording phase that
// follows a confirmed outcome.
func (m *Machine) BeginExtension() { m.state = StateContextExtension }

// Reconfirm re-runs the full two-stage analysis once over the extended
// transcript. If the re-run fails or is rejected, the previously confirmed
// result stands.
func (m *Machine) Reconfirm(ctx context.Context, transcript string) *Result {
	log := trace.Logger(ctx)

	prev := m.confirmed
	m.state = StateAnalyzing
	result, err := m.Analyze(ctx, transcript)
	if err != nil || result == nil {
		log.Warn("final re-analysis failed, keeping initial result")
		m.confirmed = prev
	}
	m.state = StateFinalized
	if m.confirmed == nil {
		m.confirmed = prev
	}
	return m.confirmed
}

// Finalize marks the machine done.
func (m *Machine) Finalize() { m.state = StateFinalized }

// Timeout enters the fallback terminal state and returns the fixed fallback
// message, distinct from either positive outcome. The window elapsing always
// produces the fallback, whether or not any call evidence was seen.
func (m *Machine) Timeout() string {
	m.state = StateFallback
	return m.prof.Templates.Fallback
}

// stage1 submits the transcript to the student prompt. The sentinel response
// is never accepted as final when the output also shows evidence of detected
// content; a narrower follow-up forces a committed choice.
func (m *Machine) stage1(ctx context.Context, transcript string) (string, error) {
	out, err := m.gen.Complete(ctx, llm.Request{
		System:      m.prof.Prompts.System + "\n\n" + m.prof.Prompts.Student,
		User:        transcript,
		MaxTokens:   studentMaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	trace.Logger(ctx).Info("stage 1 response", "chars", len(out))

	if !strings.Contains(out, m.prof.NoAnswerTag) {
		return out, nil
	}

	// Bare sentinel: genuinely nothing there.
	if strings.TrimSpace(strings.ReplaceAll(out, m.prof.NoAnswerTag, "")) == "" {
		return "", nil
	}

	// Sentinel plus commentary means the model saw something but dodged.
	trace.Logger(ctx).Info("stage 1 dodged a detected item, issuing follow-up")
	retry, err := m.gen.Complete(ctx, llm.Request{
		System:      m.prof.Prompts.System + "\n\n" + m.prof.Prompts.StudentRetry,
		User:        transcript,
		MaxTokens:   studentMaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", err
	}
	retry = strings.TrimSpace(retry)
	if retry == "" || strings.Contains(retry, m.prof.NoAnswerTag) {
		return "", nil
	}
	m.callDetected = true
	return retry, nil
}

// stage2 submits the stage-1 output to the master prompt and normalizes the
// response to a short form. An ambiguous response while stage 1 clearly found
// content triggers one direct follow-up before defaulting.
func (m *Machine) stage2(ctx context.Context, student string) (string, error) {
	out, err := m.gen.Complete(ctx, llm.Request{
		System:      m.prof.Prompts.System + "\n\n" + m.prof.Prompts.Master,
		User:        student,
		MaxTokens:   masterMaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", err
	}

	norm := normalizeMaster(out)
	if norm != "" {
		trace.Logger(ctx).Info("stage 2 response", "normalized", norm)
		return norm, nil
	}

	trace.Logger(ctx).Info("stage 2 ambiguous, issuing direct follow-up")
	retry, err := m.gen.Complete(ctx, llm.Request{
		System: m.prof.Prompts.System + "\n\n" + m.prof.Prompts.Master +
			"\n\nYour previous response did not match the required format. Respond again in the exact required format.",
		User:        student,
		MaxTokens:   masterMaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", err
	}
	if norm := normalizeMaster(retry); norm != "" {
		return norm, nil
	}
	return masterRejectTag, nil
}

// finalClassification produces the strict-JSON record from the full evidence.
func (m *Machine) finalClassification(ctx context.Context, transcript, student, master string) (*Result, error) {
	prompt := strings.ReplaceAll(m.prof.Prompts.Classification, "{{TRANSCRIPT}}", transcript)
	user := "STAGE 1 ANALYSIS:\n" + student + "\n\nSTAGE 2 VERDICT:\n" + master

	out, err := m.gen.Complete(ctx, llm.Request{
		System:      m.prof.Prompts.System + "\n\n" + prompt,
		User:        user,
		MaxTokens:   classifyMaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return nil, err
	}

	result, err := ParseResult(out, m.prof.MaxMsgLen)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// normalizeMaster maps a raw stage-2 response onto its short form: "#", a
// WIN/LOSE/UNKNOWN token, or "A, Option" / "B, Option". Empty string means
// the response fit no known shape.
func normalizeMaster(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `'"`)
	if s == "" {
		return ""
	}
	if s == masterRejectTag {
		return masterRejectTag
	}

	upper := strings.ToUpper(s)
	lower := strings.ToLower(s)
	if strings.Contains(lower, "no question") || strings.Contains(lower, "not contain") {
		return masterRejectTag
	}

	switch upper {
	case "WIN", "LOSE", "UNKNOWN":
		return upper
	}

	// "A, Option" / "B, Option" with the comma present.
	if len(upper) >= 2 && (upper[0] == 'A' || upper[0] == 'B') && strings.Contains(s, ",") {
		return s
	}

	// A letter without the comma: recover the option text if exactly one
	// letter appears.
	hasA := strings.Contains(upper, "A")
	hasB := strings.Contains(upper, "B")
	if hasA != hasB {
		letter := "A"
		if hasB {
			letter = "B"
		}
		parts := strings.SplitN(upper, letter, 2)
		if len(parts) == 2 {
			option := strings.TrimSpace(strings.TrimLeft(parts[1], ", "))
			if option != "" {
				return letter + ", " + option
			}
		}
	}
	return ""
}
