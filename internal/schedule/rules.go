package schedule

import (
	"fmt"
	"strings"
	"time"
)

// ruleInput is the shared immutable input every conflict rule evaluates.
type ruleInput struct {
	ProviderID      string
	Interval        Interval
	AppointmentType string
	Policy          *Policy
	Slots           []BookedSlot
}

// rule is one conflict category evaluator: a pure predicate producing zero or
// more conflicts. Rules never mutate their input.
type rule func(ruleInput) []Conflict

// conflictRules is the fixed evaluation pipeline. Order affects presentation
// only; the blocking outcome is order-independent. Adding a category means
// appending one evaluator here.
var conflictRules = []rule{
	existingAppointmentRule,
	bufferTimeRule,
	operationalHoursRule,
	breakTimeRule,
	holidayRule,
	appointmentTypeRule,
	durationRule,
}

// existingAppointmentRule flags every busy slot that strictly overlaps the
// proposed interval.
func existingAppointmentRule(in ruleInput) []Conflict {
	var conflicts []Conflict
	for _, slot := range in.Slots {
		if slot.Status != SlotBusy || !slot.Interval.Overlaps(in.Interval) {
			continue
		}
		loc := in.Policy.Location()
		conflicts = append(conflicts, Conflict{
			Type:     ConflictExistingAppointment,
			Severity: SeverityBlocking,
			Description: fmt.Sprintf("requested time overlaps an existing appointment from %s to %s",
				slot.Interval.Start.In(loc).Format("15:04"), slot.Interval.End.In(loc).Format("15:04")),
			AppointmentRef: slot.AppointmentRef,
		})
	}
	return conflicts
}

// bufferTimeRule warns when the gap between the proposed interval and a busy
// slot is shorter than the provider's buffer. Overlapping slots are already
// reported by existingAppointmentRule and are not double-reported here.
func bufferTimeRule(in ruleInput) []Conflict {
	buffer := in.Policy.BufferFor(in.ProviderID)
	if buffer <= 0 {
		return nil
	}
	var conflicts []Conflict
	for _, slot := range in.Slots {
		if slot.Status != SlotBusy || slot.Interval.Overlaps(in.Interval) {
			continue
		}
		gapBefore := in.Interval.Start.Sub(slot.Interval.End)
		gapAfter := slot.Interval.Start.Sub(in.Interval.End)
		var gap time.Duration
		switch {
		case gapBefore >= 0 && gapBefore < buffer:
			gap = gapBefore
		case gapAfter >= 0 && gapAfter < buffer:
			gap = gapAfter
		default:
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:     ConflictBufferTime,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("only %d minutes between appointments; %d minute buffer preferred",
				int(gap.Minutes()), int(buffer.Minutes())),
			AppointmentRef: slot.AppointmentRef,
		})
	}
	return conflicts
}

// operationalHoursRule blocks requests outside the practice's open/close
// window for the weekday of the proposed start. The end time is compared
// against the same calendar day as the start, so a request running past
// midnight exceeds that day's close.
func operationalHoursRule(in ruleInput) []Conflict {
	loc := in.Policy.Location()
	local := in.Interval.Start.In(loc)
	window := in.Policy.WindowFor(local.Weekday())
	if window == nil {
		return []Conflict{{
			Type:        ConflictOperationalHours,
			Severity:    SeverityBlocking,
			Description: fmt.Sprintf("the practice is closed on %ss", local.Weekday()),
		}}
	}

	startMins := minuteOfDay(in.Interval.Start, loc)
	endMins := int(in.Interval.End.Sub(startOfDay(in.Interval.Start, loc)).Minutes())

	var conflicts []Conflict
	if startMins < window.OpenMinutes {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictOperationalHours,
			Severity:    SeverityBlocking,
			Description: fmt.Sprintf("requested time starts before the practice opens at %s", formatClock(window.OpenMinutes)),
		})
	}
	if endMins > window.CloseMinutes {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictOperationalHours,
			Severity:    SeverityBlocking,
			Description: fmt.Sprintf("requested time runs past the practice close at %s", formatClock(window.CloseMinutes)),
		})
	}
	return conflicts
}

// breakTimeRule blocks requests overlapping any of the provider's recurring
// daily break windows, compared on time-of-day.
func breakTimeRule(in ruleInput) []Conflict {
	prefs, ok := in.Policy.PreferencesFor(in.ProviderID)
	if !ok || len(prefs.Breaks) == 0 {
		return nil
	}
	loc := in.Policy.Location()
	startMins := minuteOfDay(in.Interval.Start, loc)
	endMins := int(in.Interval.End.Sub(startOfDay(in.Interval.Start, loc)).Minutes())

	var conflicts []Conflict
	for _, br := range prefs.Breaks {
		// Same strict-overlap semantics as intervals: touching does not overlap.
		if br.StartMinutes < endMins && startMins < br.EndMinutes {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictBreakTime,
				Severity: SeverityBlocking,
				Description: fmt.Sprintf("requested time overlaps the provider's break from %s to %s",
					formatClock(br.StartMinutes), formatClock(br.EndMinutes)),
			})
		}
	}
	return conflicts
}

// holidayRule blocks requests on practice holidays. It fires independently of
// operationalHoursRule for the same date.
func holidayRule(in ruleInput) []Conflict {
	if !in.Policy.IsHoliday(in.Interval.Start) {
		return nil
	}
	date := in.Interval.Start.In(in.Policy.Location()).Format("2006-01-02")
	return []Conflict{{
		Type:        ConflictHoliday,
		Severity:    SeverityBlocking,
		Description: fmt.Sprintf("the practice is closed on %s for a holiday", date),
	}}
}

// appointmentTypeRule blocks appointment types the provider does not offer.
func appointmentTypeRule(in ruleInput) []Conflict {
	if in.Policy.AllowsType(in.ProviderID, in.AppointmentType) {
		return nil
	}
	return []Conflict{{
		Type:     ConflictProviderUnavailable,
		Severity: SeverityBlocking,
		Description: fmt.Sprintf("provider does not offer %q appointments (offers: %s)",
			in.AppointmentType, strings.Join(in.Policy.AllowedTypesFor(in.ProviderID), ", ")),
	}}
}

// durationRule warns when the requested duration falls outside the provider's
// minimum/maximum bounds. No configured maximum means the upper bound never
// fires.
func durationRule(in ruleInput) []Conflict {
	duration := in.Interval.Duration()
	var conflicts []Conflict
	if min := in.Policy.MinDurationFor(in.ProviderID); min > 0 && duration < min {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictProviderUnavailable,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("requested %d minutes is too short; minimum is %d minutes",
				int(duration.Minutes()), int(min.Minutes())),
		})
	}
	if max := in.Policy.MaxDurationFor(in.ProviderID); max > 0 && duration > max {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictProviderUnavailable,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("requested %d minutes is too long; maximum is %d minutes",
				int(duration.Minutes()), int(max.Minutes())),
		})
	}
	return conflicts
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
