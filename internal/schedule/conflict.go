// Package schedule implements the scheduling conflict detection engine: given
// a provider, a proposed time interval and an appointment type it decides
// whether the interval can be booked, explains every reason it cannot, and
// proposes ranked conflict-free alternatives when it cannot.
package schedule

import "time"

// ConflictType identifies the category of a scheduling conflict. The set is
// closed; evaluators never invent new values at runtime.
type ConflictType string

const (
	ConflictExistingAppointment ConflictType = "existing_appointment"
	ConflictBufferTime          ConflictType = "buffer_time"
	ConflictOperationalHours    ConflictType = "operational_hours"
	ConflictBreakTime           ConflictType = "break_time"
	ConflictHoliday             ConflictType = "holiday"
	ConflictProviderUnavailable ConflictType = "provider_unavailable"
)

// Severity distinguishes hard stops from advisory findings. It is fixed per
// conflict category and never altered dynamically.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Conflict is a single reason a proposed interval cannot (or should not) be
// booked. Immutable; created fresh per evaluation.
type Conflict struct {
	Type           ConflictType `json:"conflict_type"`
	Severity       Severity     `json:"severity"`
	Description    string       `json:"description"`
	AppointmentRef string       `json:"appointment_ref,omitempty"`
}

// CheckResult is the admissibility decision for one proposed interval. The
// booleans are derived from the conflict list at construction and are never
// set independently.
type CheckResult struct {
	HasConflicts         bool       `json:"has_conflicts"`
	HasBlockingConflicts bool       `json:"has_blocking_conflicts"`
	CanSchedule          bool       `json:"can_schedule"`
	Conflicts            []Conflict `json:"conflicts"`
}

func newCheckResult(conflicts []Conflict) *CheckResult {
	blocking := false
	for _, c := range conflicts {
		if c.Severity == SeverityBlocking {
			blocking = true
			break
		}
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return &CheckResult{
		HasConflicts:         len(conflicts) > 0,
		HasBlockingConflicts: blocking,
		CanSchedule:          !blocking,
		Conflicts:            conflicts,
	}
}

// ConflictTally counts conflicts by type, for audit records and metrics.
func (r *CheckResult) ConflictTally() map[ConflictType]int {
	tally := make(map[ConflictType]int, len(r.Conflicts))
	for _, c := range r.Conflicts {
		tally[c.Type]++
	}
	return tally
}

// SlotStatus is the booking state of a schedule slot.
type SlotStatus string

const (
	SlotFree SlotStatus = "free"
	SlotBusy SlotStatus = "busy"
)

// BookedSlot is one slot from a provider's schedule snapshot. Owned by the
// schedule provider; read-only to the engine.
type BookedSlot struct {
	Interval       Interval
	Status         SlotStatus
	AppointmentRef string
}

// Suggestion is a ranked, conflict-free alternative to a rejected interval.
type Suggestion struct {
	Start  time.Time `json:"suggested_start"`
	End    time.Time `json:"suggested_end"`
	Score  float64   `json:"ranking_score"`
	Reason string    `json:"reason"`
}
