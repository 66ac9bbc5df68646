package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DayWindow is the open/close window for one weekday, in minutes from local
// midnight.
type DayWindow struct {
	OpenMinutes  int
	CloseMinutes int
}

// BreakWindow is a recurring daily range during which a provider is
// unavailable, in minutes from local midnight.
type BreakWindow struct {
	StartMinutes int
	EndMinutes   int
}

// ProviderPreferences are per-provider overrides of the practice defaults.
type ProviderPreferences struct {
	// BufferMinutes overrides the policy default when non-nil.
	BufferMinutes *int
	// Breaks are recurring daily unavailability windows, in presentation order.
	Breaks []BreakWindow
	// AllowedTypes restricts bookable appointment types. Empty means all
	// types are allowed.
	AllowedTypes map[string]struct{}
	// MinDurationMinutes / MaxDurationMinutes override the policy defaults
	// when > 0.
	MinDurationMinutes int
	MaxDurationMinutes int
}

// Policy is the immutable scheduling configuration: default buffer, the
// per-weekday operational calendar, the practice holiday set and per-provider
// preference overrides. A configuration reload constructs a new Policy and
// swaps it in whole; fields are never mutated after construction.
type Policy struct {
	DefaultBufferMinutes      int
	DefaultMinDurationMinutes int
	// DefaultMaxDurationMinutes of 0 means no practice-wide maximum.
	DefaultMaxDurationMinutes int

	calendar  map[time.Weekday]*DayWindow
	holidays  map[string]struct{} // "2006-01-02" in the practice timezone
	providers map[string]ProviderPreferences
	location  *time.Location
}

// policyDocument is the on-disk JSON shape of the scheduling policy.
type policyDocument struct {
	Timezone                  string                      `json:"timezone"`
	DefaultBufferMinutes      int                         `json:"default_buffer_minutes"`
	DefaultMinDurationMinutes int                         `json:"default_min_appointment_minutes"`
	DefaultMaxDurationMinutes int                         `json:"default_max_appointment_minutes"`
	OperationalHours          map[string]*dayWindowDoc    `json:"operational_hours"`
	PracticeHolidays          []string                    `json:"practice_holidays"`
	ProviderPreferences       map[string]providerPrefsDoc `json:"provider_preferences"`
}

type dayWindowDoc struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type providerPrefsDoc struct {
	DefaultBufferMinutes *int             `json:"default_buffer_minutes,omitempty"`
	Breaks               []breakWindowDoc `json:"breaks,omitempty"`
	AllowedTypes         []string         `json:"allowed_appointment_types,omitempty"`
	MinDurationMinutes   int              `json:"min_appointment_minutes,omitempty"`
	MaxDurationMinutes   int              `json:"max_appointment_minutes,omitempty"`
}

type breakWindowDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LoadPolicy reads and parses a scheduling policy JSON document.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy builds an immutable Policy from a JSON document.
func ParsePolicy(data []byte) (*Policy, error) {
	var doc policyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schedule: parse policy: %w", err)
	}

	loc := time.UTC
	if doc.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(doc.Timezone)
		if err != nil {
			return nil, fmt.Errorf("schedule: load policy timezone: %w", err)
		}
	}
	if doc.DefaultBufferMinutes < 0 {
		return nil, fmt.Errorf("schedule: default_buffer_minutes must not be negative")
	}

	calendar := make(map[time.Weekday]*DayWindow, 7)
	for key, win := range doc.OperationalHours {
		day, err := parseWeekday(key)
		if err != nil {
			return nil, err
		}
		if win == nil {
			calendar[day] = nil // explicitly closed
			continue
		}
		open, err := parseClock(win.Open)
		if err != nil {
			return nil, fmt.Errorf("schedule: parse open time for %s: %w", key, err)
		}
		closeMin, err := parseClock(win.Close)
		if err != nil {
			return nil, fmt.Errorf("schedule: parse close time for %s: %w", key, err)
		}
		if closeMin <= open {
			return nil, fmt.Errorf("schedule: %s close %s must be after open %s", key, win.Close, win.Open)
		}
		calendar[day] = &DayWindow{OpenMinutes: open, CloseMinutes: closeMin}
	}

	holidays := make(map[string]struct{}, len(doc.PracticeHolidays))
	for _, d := range doc.PracticeHolidays {
		if _, err := time.ParseInLocation("2006-01-02", d, loc); err != nil {
			return nil, fmt.Errorf("schedule: parse holiday %q: %w", d, err)
		}
		holidays[d] = struct{}{}
	}

	providers := make(map[string]ProviderPreferences, len(doc.ProviderPreferences))
	for id, p := range doc.ProviderPreferences {
		prefs := ProviderPreferences{
			BufferMinutes:      p.DefaultBufferMinutes,
			MinDurationMinutes: p.MinDurationMinutes,
			MaxDurationMinutes: p.MaxDurationMinutes,
		}
		for _, b := range p.Breaks {
			start, err := parseClock(b.Start)
			if err != nil {
				return nil, fmt.Errorf("schedule: parse break start for provider %s: %w", id, err)
			}
			end, err := parseClock(b.End)
			if err != nil {
				return nil, fmt.Errorf("schedule: parse break end for provider %s: %w", id, err)
			}
			if end <= start {
				return nil, fmt.Errorf("schedule: break end %s must be after start %s for provider %s", b.End, b.Start, id)
			}
			prefs.Breaks = append(prefs.Breaks, BreakWindow{StartMinutes: start, EndMinutes: end})
		}
		if len(p.AllowedTypes) > 0 {
			prefs.AllowedTypes = make(map[string]struct{}, len(p.AllowedTypes))
			for _, t := range p.AllowedTypes {
				prefs.AllowedTypes[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
			}
		}
		providers[id] = prefs
	}

	return &Policy{
		DefaultBufferMinutes:      doc.DefaultBufferMinutes,
		DefaultMinDurationMinutes: doc.DefaultMinDurationMinutes,
		DefaultMaxDurationMinutes: doc.DefaultMaxDurationMinutes,
		calendar:                  calendar,
		holidays:                  holidays,
		providers:                 providers,
		location:                  loc,
	}, nil
}

// Location is the practice timezone all weekday and time-of-day rules are
// evaluated in.
func (p *Policy) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

// WindowFor returns the operational window for a weekday, or nil when the
// practice is closed that day.
func (p *Policy) WindowFor(day time.Weekday) *DayWindow {
	return p.calendar[day]
}

// IsHoliday reports whether the calendar date of t (practice timezone) is a
// practice holiday.
func (p *Policy) IsHoliday(t time.Time) bool {
	_, ok := p.holidays[t.In(p.Location()).Format("2006-01-02")]
	return ok
}

// PreferencesFor returns the provider's preference overrides, if any.
func (p *Policy) PreferencesFor(providerID string) (ProviderPreferences, bool) {
	prefs, ok := p.providers[providerID]
	return prefs, ok
}

// BufferFor resolves the inter-appointment buffer for a provider: the
// provider override when present, else the practice default.
func (p *Policy) BufferFor(providerID string) time.Duration {
	if prefs, ok := p.providers[providerID]; ok && prefs.BufferMinutes != nil {
		return time.Duration(*prefs.BufferMinutes) * time.Minute
	}
	return time.Duration(p.DefaultBufferMinutes) * time.Minute
}

// MinDurationFor resolves the minimum appointment duration for a provider.
func (p *Policy) MinDurationFor(providerID string) time.Duration {
	if prefs, ok := p.providers[providerID]; ok && prefs.MinDurationMinutes > 0 {
		return time.Duration(prefs.MinDurationMinutes) * time.Minute
	}
	return time.Duration(p.DefaultMinDurationMinutes) * time.Minute
}

// MaxDurationFor resolves the maximum appointment duration for a provider.
// Zero means no maximum is configured.
func (p *Policy) MaxDurationFor(providerID string) time.Duration {
	if prefs, ok := p.providers[providerID]; ok && prefs.MaxDurationMinutes > 0 {
		return time.Duration(prefs.MaxDurationMinutes) * time.Minute
	}
	return time.Duration(p.DefaultMaxDurationMinutes) * time.Minute
}

// AllowsType reports whether a provider may take the given appointment type.
// A provider with no allowed-types restriction accepts every type.
func (p *Policy) AllowsType(providerID, appointmentType string) bool {
	prefs, ok := p.providers[providerID]
	if !ok || len(prefs.AllowedTypes) == 0 {
		return true
	}
	_, ok = prefs.AllowedTypes[strings.ToLower(strings.TrimSpace(appointmentType))]
	return ok
}

// AllowedTypesFor lists a provider's allowed types, sorted, for diagnostics.
func (p *Policy) AllowedTypesFor(providerID string) []string {
	prefs, ok := p.providers[providerID]
	if !ok || len(prefs.AllowedTypes) == 0 {
		return nil
	}
	types := make([]string, 0, len(prefs.AllowedTypes))
	for t := range prefs.AllowedTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseWeekday accepts either a lowercase weekday name or a numeric index
// (0 = Sunday, matching time.Weekday).
func parseWeekday(v string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	if day, ok := weekdayNames[key]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("schedule: unknown weekday %q", v)
}

// parseClock converts an HH:MM string to minutes from midnight.
func parseClock(v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("empty clock")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// minuteOfDay returns t's time-of-day in minutes, in the given location.
func minuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// startOfDay returns local midnight of t's calendar day.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
