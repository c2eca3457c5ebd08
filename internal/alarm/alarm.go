// Package alarm parses the fingerprinting service's webhook payload into a
// typed trigger event. The payload nests a list of "custom file" entries whose
// alarm identification may be flat fields or a JSON-encoded sub-object; one
// extraction function tries a short ordered list of known shapes instead of
// ad hoc recursive searching.
package alarm

import (
	"encoding/json"
	"time"
)

// Event identifies one recognized alarm trigger. Immutable; consumed once by
// a session.
type Event struct {
	AlarmID    string
	CompName   string
	CompID     string
	ReceivedAt time.Time
}

// customFile is one entry of the payload's custom_files list. Identification
// may sit directly on the entry or inside an encoded metadata string.
type customFile struct {
	AlarmID  string `json:"ALARM_ID"`
	CompName string `json:"COMP_NAME"`
	CompID   string `json:"COMP_ID"`
	// Some fingerprint configurations pack the fields into a JSON string.
	UserDefined string `json:"user_defined"`
}

type payload struct {
	Data struct {
		Metadata struct {
			CustomFiles []customFile `json:"custom_files"`
		} `json:"metadata"`
	} `json:"data"`
	// Older callbacks put metadata at the top level.
	Metadata struct {
		CustomFiles []customFile `json:"custom_files"`
	} `json:"metadata"`
}

// Extract returns the first complete {ALARM_ID, COMP_NAME, COMP_ID} triple in
// the payload, trying data.metadata.custom_files then metadata.custom_files.
// The boolean is false when no entry matches.
func Extract(body []byte, now time.Time) (Event, bool) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, false
	}

	for _, files := range [][]customFile{p.Data.Metadata.CustomFiles, p.Metadata.CustomFiles} {
		for _, f := range files {
			if ev, ok := fromFile(f, now); ok {
				return ev, true
			}
		}
	}
	return Event{}, false
}

// fromFile checks an entry's flat fields first, then its encoded sub-object.
func fromFile(f customFile, now time.Time) (Event, bool) {
	if f.AlarmID != "" && f.CompName != "" && f.CompID != "" {
		return Event{
			AlarmID:    f.AlarmID,
			CompName:   f.CompName,
			CompID:     f.CompID,
			ReceivedAt: now,
		}, true
	}

	if f.UserDefined != "" {
		var nested customFile
		if err := json.Unmarshal([]byte(f.UserDefined), &nested); err == nil {
			if nested.AlarmID != "" && nested.CompName != "" && nested.CompID != "" {
				return Event{
					AlarmID:    nested.AlarmID,
					CompName:   nested.CompName,
					CompID:     nested.CompID,
					ReceivedAt: now,
				}, true
			}
		}
	}
	return Event{}, false
}
