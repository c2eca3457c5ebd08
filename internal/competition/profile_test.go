package competition

import (
	"strings"
	"testing"
	"time"
)

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	r := Defaults()

	for _, name := range []string{"Splash The Cash", "splash the cash", "SPLASH THE CASH"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("Lookup(%q) = false", name)
		}
	}
	if _, ok := r.Lookup("unknown show"); ok {
		t.Error("Lookup matched an unregistered competition")
	}
}

func TestAcceptsAlarm(t *testing.T) {
	p := SplashTheCash()
	if !p.AcceptsAlarm("Alarm1") {
		t.Error("AcceptsAlarm(Alarm1) = false")
	}
	if p.AcceptsAlarm("Alarm99") {
		t.Error("AcceptsAlarm(Alarm99) = true")
	}
}

func TestMaxChunks(t *testing.T) {
	tm := Timing{ChunkLen: 2 * time.Minute, MaxTotal: 46 * time.Minute}
	if got := tm.MaxChunks(); got != 24 {
		t.Errorf("MaxChunks() = %d, want 24", got)
	}
	if got := (Timing{}).MaxChunks(); got != 0 {
		t.Errorf("zero timing MaxChunks() = %d, want 0", got)
	}
}

func TestExtensionChunks(t *testing.T) {
	tm := Timing{ChunkLen: 2 * time.Minute, Extension: 3 * time.Minute}
	if got := tm.ExtensionChunks(); got != 2 {
		t.Errorf("ExtensionChunks() = %d, want 2", got)
	}
}

func TestSourceKeysDistinct(t *testing.T) {
	a, b := SplashTheCash(), MakeMeAMillionaire()
	if a.SourceKey == b.SourceKey {
		t.Error("competitions share a source key")
	}
}

func TestDefaultProfilesComplete(t *testing.T) {
	for _, p := range []*Profile{SplashTheCash(), MakeMeAMillionaire()} {
		t.Run(p.Name, func(t *testing.T) {
			if p.Timing.ChunkLen <= 0 || p.Timing.MaxTotal <= 0 || p.Timing.Cooldown <= 0 {
				t.Errorf("timing incomplete: %+v", p.Timing)
			}
			if p.Prompts.System == "" || p.Prompts.Student == "" || p.Prompts.Master == "" {
				t.Error("prompt set incomplete")
			}
			if p.Templates.Fallback == "" {
				t.Error("missing fallback template")
			}
			if p.MaxMsgLen <= 0 {
				t.Error("missing message length bound")
			}
			if len(p.AlarmIDs) == 0 {
				t.Error("no accepted alarm ids")
			}
		})
	}
}

func TestSplashTemplatesFitMessageBound(t *testing.T) {
	p := SplashTheCash()
	for name, msg := range map[string]string{
		"win":      p.Templates.Win,
		"lose":     p.Templates.Lose,
		"fallback": p.Templates.Fallback,
	} {
		if len(msg) > p.MaxMsgLen {
			t.Errorf("%s template is %d chars, bound is %d", name, len(msg), p.MaxMsgLen)
		}
	}
}

func TestClassificationPromptHasTranscriptSlot(t *testing.T) {
	if !strings.Contains(SplashTheCash().Prompts.Classification, "{{TRANSCRIPT}}") {
		t.Error("classification prompt missing transcript placeholder")
	}
}
