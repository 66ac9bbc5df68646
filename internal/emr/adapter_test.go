package emr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/halcyonmd/voice-scheduler/internal/schedule"
)

type stubClient struct {
	days []DaySchedule
	err  error
	req  ScheduleRequest
}

func (s *stubClient) GetSchedule(ctx context.Context, req ScheduleRequest) ([]DaySchedule, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return s.days, nil
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestGetScheduleMapsSlots(t *testing.T) {
	client := &stubClient{days: []DaySchedule{{
		Slots: []Slot{
			{
				StartTime:      ts(t, "2026-09-07T10:00:00Z"),
				EndTime:        ts(t, "2026-09-07T10:30:00Z"),
				Status:         "busy",
				AppointmentRef: "appt-1",
			},
			{
				StartTime: ts(t, "2026-09-07T11:00:00Z"),
				EndTime:   ts(t, "2026-09-07T11:30:00Z"),
				Status:    "free",
			},
			{
				StartTime:      ts(t, "2026-09-07T12:00:00Z"),
				EndTime:        ts(t, "2026-09-07T12:30:00Z"),
				Status:         "busy-tentative",
				AppointmentRef: "appt-2",
			},
		},
	}}}
	adapter := NewScheduleAdapter(client, nil, nil)

	from := ts(t, "2026-09-07T00:00:00Z")
	to := ts(t, "2026-09-08T00:00:00Z")
	slots, err := adapter.GetSchedule(context.Background(), "prov-1", from, to)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	if client.req.ProviderID != "prov-1" || !client.req.StartDate.Equal(from) || !client.req.EndDate.Equal(to) {
		t.Fatalf("request not forwarded: %+v", client.req)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if slots[0].Status != schedule.SlotBusy || slots[0].AppointmentRef != "appt-1" {
		t.Fatalf("busy slot mapped wrong: %+v", slots[0])
	}
	if slots[1].Status != schedule.SlotFree {
		t.Fatalf("free slot mapped wrong: %+v", slots[1])
	}
	// Any non-free FHIR status blocks.
	if slots[2].Status != schedule.SlotBusy {
		t.Fatalf("busy-tentative should map to busy: %+v", slots[2])
	}
}

func TestGetScheduleSkipsMalformed(t *testing.T) {
	client := &stubClient{days: []DaySchedule{{
		Slots: []Slot{
			{EndTime: ts(t, "2026-09-07T10:30:00Z"), Status: "busy"},
			{StartTime: ts(t, "2026-09-07T10:00:00Z"), Status: "busy"},
			{
				StartTime: ts(t, "2026-09-07T11:00:00Z"),
				EndTime:   ts(t, "2026-09-07T10:00:00Z"),
				Status:    "busy",
			},
			{
				StartTime:      ts(t, "2026-09-07T12:00:00Z"),
				EndTime:        ts(t, "2026-09-07T12:30:00Z"),
				Status:         "busy",
				AppointmentRef: "appt-good",
			},
		},
	}}}
	adapter := NewScheduleAdapter(client, nil, nil)

	slots, err := adapter.GetSchedule(context.Background(), "prov-1", ts(t, "2026-09-07T00:00:00Z"), ts(t, "2026-09-08T00:00:00Z"))
	if err != nil {
		t.Fatalf("malformed slots must be skipped, not fatal: %v", err)
	}
	if len(slots) != 1 || slots[0].AppointmentRef != "appt-good" {
		t.Fatalf("got %+v, want only appt-good", slots)
	}
}

func TestGetScheduleClientError(t *testing.T) {
	cause := errors.New("upstream down")
	adapter := NewScheduleAdapter(&stubClient{err: cause}, nil, nil)

	slots, err := adapter.GetSchedule(context.Background(), "prov-1", ts(t, "2026-09-07T00:00:00Z"), ts(t, "2026-09-08T00:00:00Z"))
	if slots != nil {
		t.Fatal("no slots may accompany an error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error should wrap the client failure: %v", err)
	}
}
