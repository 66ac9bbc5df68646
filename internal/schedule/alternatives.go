package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DefaultMaxSuggestions is the number of alternatives returned when the
// caller does not ask for a specific count.
const DefaultMaxSuggestions = 3

// searchHorizonDays bounds the alternative-time search: the original day plus
// this many subsequent days.
const searchHorizonDays = 14

// candidate is an alternative interval that survived re-validation.
type candidate struct {
	interval Interval
	distance time.Duration
	sameDay  bool
}

// GenerateAlternatives searches a bounded horizon for conflict-free
// alternatives to a rejected interval and returns the top maxSuggestions
// ranked by proximity to the original start. The schedule snapshot is fetched
// once and reused across every candidate, so all suggestions are judged
// against the same view of the schedule. The first schedule retrieval failure
// aborts the whole search; no partial list is returned.
func (e *Engine) GenerateAlternatives(ctx context.Context, providerID string, originalStart, originalEnd time.Time, appointmentType string, maxSuggestions int) ([]Suggestion, error) {
	ctx, span := e.tracer.Start(ctx, "schedule.GenerateAlternatives")
	defer span.End()

	original, err := NewInterval(originalStart, originalEnd)
	if err != nil {
		return nil, err
	}
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	policy := e.Policy()
	loc := policy.Location()
	duration := original.Duration()
	originalDay := startOfDay(originalStart, loc)
	horizonEnd := originalDay.AddDate(0, 0, searchHorizonDays+1)

	slots, err := e.provider.GetSchedule(ctx, providerID, originalDay, horizonEnd)
	if err != nil {
		return nil, &ScheduleConflictError{ProviderID: providerID, Err: err}
	}

	maxDistance := horizonEnd.Sub(originalStart)
	var survivors []candidate
	for offset := 0; offset <= searchHorizonDays; offset++ {
		day := originalDay.AddDate(0, 0, offset)
		window := policy.WindowFor(day.Weekday())
		if window == nil || policy.IsHoliday(day) {
			continue
		}
		cursor := day.Add(time.Duration(window.OpenMinutes) * time.Minute)
		if offset == 0 {
			// Only the remaining hours of the original day are candidates.
			if originalStart.After(cursor) {
				cursor = originalStart
			}
		}
		closeAt := day.Add(time.Duration(window.CloseMinutes) * time.Minute)
		for ; !cursor.Add(duration).After(closeAt); cursor = cursor.Add(duration) {
			iv := Interval{Start: cursor, End: cursor.Add(duration)}
			result := e.evaluate(providerID, iv, appointmentType, slots)
			if result.HasBlockingConflicts {
				continue
			}
			dist := cursor.Sub(originalStart)
			if dist < 0 {
				dist = -dist
			}
			survivors = append(survivors, candidate{
				interval: iv,
				distance: dist,
				sameDay:  offset == 0 && cursor.After(originalStart),
			})
		}
	}

	suggestions := rankCandidates(survivors, maxDistance, maxSuggestions, loc)

	e.metrics.ObserveAlternatives(len(suggestions))
	e.emitAudit(ctx, DecisionRecord{
		Kind:                "alternatives",
		ProviderHash:        hashIdentifier(providerID),
		CheckedAt:           time.Now().UTC(),
		CanSchedule:         len(suggestions) > 0,
		SuggestionsReturned: len(suggestions),
	})

	return suggestions, nil
}

// rankCandidates scores survivors by temporal distance from the original
// start and orders them: descending score, same-day-after-original ahead of
// later days at equal distance, earliest start breaking remaining ties.
func rankCandidates(survivors []candidate, maxDistance time.Duration, maxSuggestions int, loc *time.Location) []Suggestion {
	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.sameDay != b.sameDay {
			return a.sameDay
		}
		return a.interval.Start.Before(b.interval.Start)
	})

	suggestions := make([]Suggestion, 0, maxSuggestions)
	for _, c := range survivors {
		if len(suggestions) == maxSuggestions {
			break
		}
		score := 1 - float64(c.distance)/float64(maxDistance)
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		reason := fmt.Sprintf("different day (%s)", c.interval.Start.In(loc).Format("Monday Jan 2"))
		if c.sameDay {
			reason = fmt.Sprintf("same day, %d minutes after the requested time", int(c.distance.Minutes()))
		}
		suggestions = append(suggestions, Suggestion{
			Start:  c.interval.Start,
			End:    c.interval.End,
			Score:  score,
			Reason: reason,
		})
	}
	return suggestions
}
