// Package competition parameterizes the detection pipeline per competition.
// Timing constants, verification prompts, message templates, and validation
// thresholds are data; the pipeline control flow is shared.
package competition

import (
	"strings"
	"time"
)

// Timing holds the chunked-recording schedule for one competition.
type Timing struct {
	InitialDelay time.Duration // wait after alarm before recording starts
	ChunkLen     time.Duration // length of each chunk (without overlap)
	Overlap      time.Duration // extra tail so sentences spanning a boundary survive
	MaxTotal     time.Duration // maximum total recording time
	MinAnalysis  time.Duration // accumulated duration before analysis starts
	Extension    time.Duration // additional recording after a confirmed outcome
	Cooldown     time.Duration // trigger suppression window
}

// MaxChunks is the bound on the chunk sequence.
func (t Timing) MaxChunks() int {
	if t.ChunkLen <= 0 {
		return 0
	}
	return int(t.MaxTotal/t.ChunkLen) + 1
}

// ExtensionChunks is the bounded number of context-extension chunks.
func (t Timing) ExtensionChunks() int {
	if t.ChunkLen <= 0 {
		return 0
	}
	return int(t.Extension/t.ChunkLen) + 1
}

// Prompts is the verification prompt set for one competition.
type Prompts struct {
	System         string // hard output constraints for every call
	Student        string // stage 1: extract content and propose a result
	StudentRetry   string // narrower follow-up when stage 1 dodges
	Master         string // stage 2: confirm or override, normalized short form
	Classification string // final strict-JSON classification, {{TRANSCRIPT}} substituted
}

// Templates are the fixed outbound messages.
type Templates struct {
	Win      string
	Lose     string
	Fallback string
}

// Profile configures the pipeline for one competition.
type Profile struct {
	Name        string
	SourceKey   string   // cooldown key; distinct competitions never share one
	AlarmIDs    []string // accepted alarm identifiers; others are rejected
	Timing      Timing
	Prompts     Prompts
	Templates   Templates
	MaxMsgLen   int // downstream channel bound
	NoAnswerTag string
}

// AcceptsAlarm reports whether the profile recognizes the alarm ID.
func (p *Profile) AcceptsAlarm(id string) bool {
	for _, a := range p.AlarmIDs {
		if a == id {
			return true
		}
	}
	return false
}

// Registry maps competition names to profiles.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry builds a registry from profiles.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[strings.ToLower(p.Name)] = p
	}
	return r
}

// Lookup returns the profile for a competition name, case-insensitively.
func (r *Registry) Lookup(name string) (*Profile, bool) {
	p, ok := r.profiles[strings.ToLower(name)]
	return p, ok
}

// Names lists registered competition names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.Name)
	}
	return out
}

// Defaults returns the production competition set.
func Defaults() *Registry {
	return NewRegistry(SplashTheCash(), MakeMeAMillionaire())
}
