package emr

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyonmd/voice-scheduler/internal/observability/metrics"
	"github.com/halcyonmd/voice-scheduler/internal/schedule"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

// ScheduleAdapter implements schedule.ScheduleProvider over an EMR client,
// flattening day schedules into the engine's slot snapshot. Malformed slot
// records are skipped defensively rather than aborting the whole check; the
// skips are surfaced through logs and metrics, never through the snapshot.
type ScheduleAdapter struct {
	client  Client
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
}

// NewScheduleAdapter wraps an EMR client as an engine schedule provider.
func NewScheduleAdapter(client Client, logger *logging.Logger, m *metrics.SchedulingMetrics) *ScheduleAdapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleAdapter{client: client, logger: logger.Component("emr"), metrics: m}
}

// GetSchedule fetches the provider's schedule for [from, to) and maps it to
// engine slots.
func (a *ScheduleAdapter) GetSchedule(ctx context.Context, providerID string, from, to time.Time) ([]schedule.BookedSlot, error) {
	days, err := a.client.GetSchedule(ctx, ScheduleRequest{
		ProviderID: providerID,
		StartDate:  from,
		EndDate:    to,
	})
	if err != nil {
		return nil, fmt.Errorf("emr: get schedule: %w", err)
	}

	var slots []schedule.BookedSlot
	for _, day := range days {
		for _, slot := range day.Slots {
			mapped, ok := a.mapSlot(slot)
			if !ok {
				continue
			}
			slots = append(slots, mapped)
		}
	}
	return slots, nil
}

func (a *ScheduleAdapter) mapSlot(slot Slot) (schedule.BookedSlot, bool) {
	var iv schedule.Interval
	var err error
	if slot.StartTime.IsZero() || slot.EndTime.IsZero() {
		err = fmt.Errorf("emr: slot has missing timestamps")
	} else {
		iv, err = schedule.NewInterval(slot.StartTime, slot.EndTime)
	}
	if err != nil {
		a.logger.Warn("skipping malformed schedule slot",
			"appointment_ref", slot.AppointmentRef,
			"error", err,
		)
		a.metrics.ObserveSkippedSlot()
		return schedule.BookedSlot{}, false
	}
	status := schedule.SlotFree
	// FHIR reports several busy variants; all of them block.
	if slot.Status != "free" {
		status = schedule.SlotBusy
	}
	return schedule.BookedSlot{
		Interval:       iv,
		Status:         status,
		AppointmentRef: slot.AppointmentRef,
	}, true
}
