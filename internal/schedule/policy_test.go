package schedule

import (
	"testing"
	"time"
)

const testPolicyJSON = `{
	"timezone": "UTC",
	"default_buffer_minutes": 15,
	"default_min_appointment_minutes": 15,
	"default_max_appointment_minutes": 120,
	"operational_hours": {
		"monday":    {"open": "08:00", "close": "17:00"},
		"tuesday":   {"open": "08:00", "close": "17:00"},
		"wednesday": {"open": "08:00", "close": "17:00"},
		"thursday":  {"open": "08:00", "close": "17:00"},
		"friday":    {"open": "08:00", "close": "17:00"},
		"saturday":  null,
		"sunday":    null
	},
	"practice_holidays": ["2026-11-26", "2026-12-25"],
	"provider_preferences": {
		"prov-breaks": {
			"breaks": [{"start": "12:00", "end": "13:00"}]
		},
		"prov-types": {
			"allowed_appointment_types": ["standard", "followup"]
		},
		"prov-buffer": {
			"default_buffer_minutes": 30
		},
		"prov-bounds": {
			"min_appointment_minutes": 30,
			"max_appointment_minutes": 60
		}
	}
}`

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := ParsePolicy([]byte(testPolicyJSON))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	return p
}

func TestParsePolicyCalendar(t *testing.T) {
	p := testPolicy(t)

	mon := p.WindowFor(time.Monday)
	if mon == nil {
		t.Fatal("Monday should be open")
	}
	if mon.OpenMinutes != 8*60 || mon.CloseMinutes != 17*60 {
		t.Fatalf("Monday window = %d-%d, want 480-1020", mon.OpenMinutes, mon.CloseMinutes)
	}
	if p.WindowFor(time.Sunday) != nil {
		t.Fatal("Sunday should be closed")
	}
}

func TestParsePolicyNumericWeekdays(t *testing.T) {
	p, err := ParsePolicy([]byte(`{
		"default_buffer_minutes": 10,
		"operational_hours": {"1": {"open": "09:00", "close": "12:00"}, "0": null}
	}`))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	if p.WindowFor(time.Monday) == nil {
		t.Fatal("numeric key 1 should map to Monday")
	}
	if p.WindowFor(time.Sunday) != nil {
		t.Fatal("numeric key 0 should map to closed Sunday")
	}
}

func TestParsePolicyErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid json", `{`},
		{"bad timezone", `{"timezone": "Mars/Phobos"}`},
		{"negative buffer", `{"default_buffer_minutes": -5}`},
		{"unknown weekday", `{"operational_hours": {"someday": {"open": "08:00", "close": "17:00"}}}`},
		{"bad open clock", `{"operational_hours": {"monday": {"open": "8am", "close": "17:00"}}}`},
		{"close before open", `{"operational_hours": {"monday": {"open": "17:00", "close": "08:00"}}}`},
		{"bad holiday", `{"practice_holidays": ["Christmas"]}`},
		{"inverted break", `{"provider_preferences": {"p": {"breaks": [{"start": "13:00", "end": "12:00"}]}}}`},
		{"bad break clock", `{"provider_preferences": {"p": {"breaks": [{"start": "noon", "end": "13:00"}]}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePolicy([]byte(tc.doc)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestPolicyBufferFor(t *testing.T) {
	p := testPolicy(t)
	if got := p.BufferFor("prov-unknown"); got != 15*time.Minute {
		t.Fatalf("default buffer = %s, want 15m", got)
	}
	if got := p.BufferFor("prov-buffer"); got != 30*time.Minute {
		t.Fatalf("override buffer = %s, want 30m", got)
	}
}

func TestPolicyDurationBounds(t *testing.T) {
	p := testPolicy(t)
	if got := p.MinDurationFor("prov-unknown"); got != 15*time.Minute {
		t.Fatalf("default min = %s, want 15m", got)
	}
	if got := p.MaxDurationFor("prov-unknown"); got != 120*time.Minute {
		t.Fatalf("default max = %s, want 2h", got)
	}
	if got := p.MinDurationFor("prov-bounds"); got != 30*time.Minute {
		t.Fatalf("override min = %s, want 30m", got)
	}
	if got := p.MaxDurationFor("prov-bounds"); got != 60*time.Minute {
		t.Fatalf("override max = %s, want 1h", got)
	}
}

func TestPolicyAllowsType(t *testing.T) {
	p := testPolicy(t)
	if !p.AllowsType("prov-unknown", "surgery") {
		t.Fatal("provider without restrictions should allow every type")
	}
	if !p.AllowsType("prov-types", "standard") {
		t.Fatal("listed type should be allowed")
	}
	if !p.AllowsType("prov-types", "  Followup ") {
		t.Fatal("type matching is case- and whitespace-insensitive")
	}
	if p.AllowsType("prov-types", "surgery") {
		t.Fatal("unlisted type should be rejected")
	}
	types := p.AllowedTypesFor("prov-types")
	if len(types) != 2 || types[0] != "followup" || types[1] != "standard" {
		t.Fatalf("AllowedTypesFor = %v", types)
	}
}

func TestPolicyIsHoliday(t *testing.T) {
	p := testPolicy(t)
	thanksgiving := time.Date(2026, 11, 26, 10, 0, 0, 0, time.UTC)
	if !p.IsHoliday(thanksgiving) {
		t.Fatal("2026-11-26 should be a holiday")
	}
	if p.IsHoliday(thanksgiving.AddDate(0, 0, 1)) {
		t.Fatal("2026-11-27 should not be a holiday")
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy("testdata/does-not-exist.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
