package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(CaptureFailed, "chunk 3")
	if got := err.Error(); got != "[CAPTURE_FAILED] chunk 3" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorFormatWithCause(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := Wrap(cause, CaptureFailed, "chunk 3")

	if !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("Error() = %q, missing cause", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(DeliveryFailed, "notifier").WithMetadata("comp", "splash")
	if err.Metadata["comp"] != "splash" {
		t.Errorf("Metadata = %v", err.Metadata)
	}
	if !strings.Contains(err.Error(), "splash") {
		t.Errorf("Error() = %q, missing metadata", err.Error())
	}
}

func TestIsCode(t *testing.T) {
	err := Newf(LLMInvalidOutput, "missing key %q", "outcome")
	if !IsCode(err, LLMInvalidOutput) {
		t.Error("IsCode() = false for matching code")
	}
	if IsCode(err, Timeout) {
		t.Error("IsCode() = true for different code")
	}
	if IsCode(stderrors.New("plain"), Timeout) {
		t.Error("IsCode() = true for non-AppError")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{Unavailable, true},
		{Timeout, true},
		{LLMRateLimited, true},
		{LLMAPIError, false},
		{LLMInvalidOutput, false},
		{CaptureFailed, false},
		{DeliveryFailed, false},
	}
	for _, tc := range cases {
		if got := IsRetryable(New(tc.code, "x")); got != tc.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("IsRetryable(plain error) = true")
	}
}
