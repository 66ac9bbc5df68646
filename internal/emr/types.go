// Package emr defines the boundary to third-party medical-records systems
// that act as the engine's schedule source.
package emr

import (
	"context"
	"time"
)

// Client is the interface a medical-records integration must implement to
// serve as a schedule source.
type Client interface {
	// GetSchedule retrieves a provider's day schedules, already scoped to the
	// requested provider and date range.
	GetSchedule(ctx context.Context, req ScheduleRequest) ([]DaySchedule, error)
}

// ScheduleRequest scopes a schedule retrieval.
type ScheduleRequest struct {
	ProviderID string
	StartDate  time.Time // inclusive
	EndDate    time.Time // exclusive
}

// DaySchedule is one day of a provider's schedule as reported by the EMR.
type DaySchedule struct {
	Metadata ScheduleMetadata
	Slots    []Slot
}

// ScheduleMetadata carries optional operating hints the EMR attaches to a
// schedule. The engine's own policy is authoritative; these are advisory.
type ScheduleMetadata struct {
	OperatingStart *time.Time
	OperatingEnd   *time.Time
}

// Slot is one booked or free slot in an EMR schedule.
type Slot struct {
	StartTime      time.Time
	EndTime        time.Time
	Status         string // "free", "busy", "busy-unavailable", "busy-tentative"
	AppointmentRef string
}
