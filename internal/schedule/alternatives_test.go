package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateAlternativesSameDayFirst(t *testing.T) {
	provider := &fakeProvider{slots: []BookedSlot{busySlot(t, "10:15", "10:45", "appt-1")}}
	engine := newTestEngine(t, provider, nil)

	got, err := engine.GenerateAlternatives(context.Background(), "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 3)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(got))
	}
	if !got[0].Start.Equal(monday(t, "11:00")) {
		t.Fatalf("first suggestion starts %s, want 11:00 same day", got[0].Start)
	}
	if !strings.HasPrefix(got[0].Reason, "same day") {
		t.Fatalf("reason = %q, want a same-day reason", got[0].Reason)
	}
	for i, s := range got {
		if !s.End.Equal(s.Start.Add(30 * time.Minute)) {
			t.Fatalf("suggestion %d does not preserve the requested duration: %s-%s", i, s.Start, s.End)
		}
		if s.Score < 0 || s.Score > 1 {
			t.Fatalf("suggestion %d score %f out of [0,1]", i, s.Score)
		}
		if i > 0 && s.Score > got[i-1].Score {
			t.Fatalf("scores must be non-increasing: %f then %f", got[i-1].Score, s.Score)
		}
	}
}

func TestGenerateAlternativesAreSchedulable(t *testing.T) {
	provider := &fakeProvider{slots: []BookedSlot{
		busySlot(t, "10:15", "10:45", "appt-1"),
		busySlot(t, "11:15", "11:45", "appt-2"),
	}}
	engine := newTestEngine(t, provider, nil)

	ctx := context.Background()
	got, err := engine.GenerateAlternatives(ctx, "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 5)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	for _, s := range got {
		result, err := engine.CheckConflicts(ctx, "prov-1", s.Start, s.End, "standard")
		if err != nil {
			t.Fatalf("re-check %s: %v", s.Start, err)
		}
		if result.HasBlockingConflicts {
			t.Fatalf("suggested %s-%s is itself blocked: %+v", s.Start, s.End, result.Conflicts)
		}
	}
}

func TestGenerateAlternativesClosedDayMovesForward(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{}, nil)

	sunday := time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC)
	got, err := engine.GenerateAlternatives(context.Background(), "prov-1", sunday, sunday.Add(30*time.Minute), "standard", 1)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got))
	}
	if !got[0].Start.Equal(monday(t, "08:00")) {
		t.Fatalf("first alternative = %s, want Monday 08:00", got[0].Start)
	}
	if !strings.HasPrefix(got[0].Reason, "different day") {
		t.Fatalf("reason = %q, want a different-day reason", got[0].Reason)
	}
}

func TestGenerateAlternativesSkipsHolidays(t *testing.T) {
	// Wednesday 2026-11-25; Thursday the 26th is a practice holiday.
	engine := newTestEngine(t, &fakeProvider{}, nil)

	wednesday := time.Date(2026, 11, 25, 10, 0, 0, 0, time.UTC)
	got, err := engine.GenerateAlternatives(context.Background(), "prov-1", wednesday, wednesday.Add(30*time.Minute), "standard", 50)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	for _, s := range got {
		if s.Start.Month() == time.November && s.Start.Day() == 26 {
			t.Fatalf("holiday offered as an alternative: %s", s.Start)
		}
	}
}

func TestGenerateAlternativesRespectsMaxAndDefault(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{}, nil)
	ctx := context.Background()

	got, err := engine.GenerateAlternatives(ctx, "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 2)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(got))
	}

	got, err = engine.GenerateAlternatives(ctx, "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 0)
	if err != nil {
		t.Fatalf("GenerateAlternatives with zero max: %v", err)
	}
	if len(got) != DefaultMaxSuggestions {
		t.Fatalf("got %d suggestions, want default %d", len(got), DefaultMaxSuggestions)
	}
}

func TestGenerateAlternativesNoneWhenTypeNeverOffered(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{}, nil)

	got, err := engine.GenerateAlternatives(context.Background(), "prov-types", monday(t, "10:00"), monday(t, "10:30"), "surgery", 3)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("no interval can clear a type restriction, got %+v", got)
	}
}

func TestGenerateAlternativesNoneWhenFullyBooked(t *testing.T) {
	// Only Mondays are open; every Monday inside the horizon is solid.
	p, err := ParsePolicy([]byte(`{
		"default_buffer_minutes": 0,
		"operational_hours": {"monday": {"open": "08:00", "close": "17:00"}}
	}`))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	var slots []BookedSlot
	for _, day := range []int{7, 14, 21} {
		slots = append(slots, BookedSlot{
			Interval: Interval{
				Start: time.Date(2026, 9, day, 8, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 9, day, 17, 0, 0, 0, time.UTC),
			},
			Status:         SlotBusy,
			AppointmentRef: "block",
		})
	}
	engine, err := NewEngine(EngineConfig{Provider: &fakeProvider{slots: slots}, Policy: p})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	got, err := engine.GenerateAlternatives(context.Background(), "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 3)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fully booked horizon should yield nothing, got %+v", got)
	}
}

func TestGenerateAlternativesSingleSnapshot(t *testing.T) {
	provider := &fakeProvider{}
	engine := newTestEngine(t, provider, nil)

	if _, err := engine.GenerateAlternatives(context.Background(), "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 3); err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want exactly 1", provider.calls)
	}
}

func TestGenerateAlternativesProviderFailure(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{err: errors.New("timeout")}, nil)

	got, err := engine.GenerateAlternatives(context.Background(), "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 3)
	if got != nil {
		t.Fatal("no partial suggestion list may accompany a schedule failure")
	}
	var schedErr *ScheduleConflictError
	if !errors.As(err, &schedErr) {
		t.Fatalf("error = %T, want *ScheduleConflictError", err)
	}
}

func TestGenerateAlternativesInvalidInterval(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{}, nil)
	at := monday(t, "10:00")
	if _, err := engine.GenerateAlternatives(context.Background(), "prov-1", at, at, "standard", 3); err == nil {
		t.Fatal("expected error for zero-length interval")
	}
}

func TestGenerateAlternativesAuditRecord(t *testing.T) {
	audit := &recordingAudit{}
	engine := newTestEngine(t, &fakeProvider{}, audit)

	got, err := engine.GenerateAlternatives(context.Background(), "prov-1", monday(t, "10:00"), monday(t, "10:30"), "standard", 3)
	if err != nil {
		t.Fatalf("GenerateAlternatives: %v", err)
	}
	if len(audit.records) != 1 {
		t.Fatalf("got %d audit records, want exactly 1", len(audit.records))
	}
	rec := audit.records[0]
	if rec.Kind != "alternatives" {
		t.Fatalf("Kind = %s", rec.Kind)
	}
	if rec.SuggestionsReturned != len(got) {
		t.Fatalf("SuggestionsReturned = %d, want %d", rec.SuggestionsReturned, len(got))
	}
	if len(rec.ProviderHash) != 16 {
		t.Fatalf("ProviderHash length = %d, want 16", len(rec.ProviderHash))
	}
}
