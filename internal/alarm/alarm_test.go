package alarm

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

func TestExtractFlatFields(t *testing.T) {
	body := []byte(`{
		"data": {"metadata": {"custom_files": [
			{"ALARM_ID": "Alarm1", "COMP_NAME": "Splash The Cash", "COMP_ID": "42"}
		]}}
	}`)

	ev, ok := Extract(body, now)
	if !ok {
		t.Fatal("Extract() = false, want event")
	}
	if ev.AlarmID != "Alarm1" || ev.CompName != "Splash The Cash" || ev.CompID != "42" {
		t.Errorf("event = %+v", ev)
	}
	if !ev.ReceivedAt.Equal(now) {
		t.Errorf("ReceivedAt = %v, want %v", ev.ReceivedAt, now)
	}
}

func TestExtractTopLevelMetadata(t *testing.T) {
	body := []byte(`{
		"metadata": {"custom_files": [
			{"ALARM_ID": "Alarm2", "COMP_NAME": "Make me a millionaire", "COMP_ID": "7"}
		]}
	}`)

	ev, ok := Extract(body, now)
	if !ok {
		t.Fatal("Extract() = false for top-level metadata")
	}
	if ev.AlarmID != "Alarm2" {
		t.Errorf("AlarmID = %q, want Alarm2", ev.AlarmID)
	}
}

func TestExtractEncodedUserDefined(t *testing.T) {
	body := []byte(`{
		"data": {"metadata": {"custom_files": [
			{"user_defined": "{\"ALARM_ID\": \"Alarm3\", \"COMP_NAME\": \"Splash The Cash\", \"COMP_ID\": \"42\"}"}
		]}}
	}`)

	ev, ok := Extract(body, now)
	if !ok {
		t.Fatal("Extract() = false for encoded user_defined entry")
	}
	if ev.AlarmID != "Alarm3" || ev.CompID != "42" {
		t.Errorf("event = %+v", ev)
	}
}

func TestExtractSkipsIncompleteEntries(t *testing.T) {
	body := []byte(`{
		"data": {"metadata": {"custom_files": [
			{"ALARM_ID": "Alarm1"},
			{"user_defined": "not json"},
			{"ALARM_ID": "Alarm4", "COMP_NAME": "Splash The Cash", "COMP_ID": "42"}
		]}}
	}`)

	ev, ok := Extract(body, now)
	if !ok {
		t.Fatal("Extract() = false, want the complete third entry")
	}
	if ev.AlarmID != "Alarm4" {
		t.Errorf("AlarmID = %q, want Alarm4", ev.AlarmID)
	}
}

func TestExtractNoAlarm(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"not json", `title=song&artist=somebody`},
		{"empty files", `{"data": {"metadata": {"custom_files": []}}}`},
		{"incomplete only", `{"metadata": {"custom_files": [{"COMP_NAME": "x"}]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Extract([]byte(tc.body), now); ok {
				t.Error("Extract() = true, want false")
			}
		})
	}
}
