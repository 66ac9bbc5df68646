package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/halcyonmd/voice-scheduler/internal/observability/metrics"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

// ScheduleProvider supplies a provider's booked/free slots for a time range.
// Implementations live at the EMR boundary; the engine treats the returned
// snapshot as read-only.
type ScheduleProvider interface {
	GetSchedule(ctx context.Context, providerID string, from, to time.Time) ([]BookedSlot, error)
}

// DecisionRecord is the anonymized summary of one engine decision. It carries
// a fixed-length hash of the provider id and a conflict tally, never raw
// identifiers or free-text descriptions.
type DecisionRecord struct {
	Kind                 string // "check" or "alternatives"
	ProviderHash         string
	CheckedAt            time.Time
	HasConflicts         bool
	HasBlockingConflicts bool
	CanSchedule          bool
	ConflictTally        map[ConflictType]int
	SuggestionsReturned  int
}

// AuditEmitter receives anonymized decision records.
type AuditEmitter interface {
	EmitDecision(ctx context.Context, rec DecisionRecord) error
}

// ScheduleConflictError wraps any failure to obtain schedule data from the
// schedule provider. No partial result accompanies it.
type ScheduleConflictError struct {
	ProviderID string
	Err        error
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("schedule: conflict check for provider %s failed: %v", e.ProviderID, e.Err)
}

func (e *ScheduleConflictError) Unwrap() error { return e.Err }

// EngineConfig collects the engine's collaborators.
type EngineConfig struct {
	Provider ScheduleProvider
	Policy   *Policy
	Audit    AuditEmitter               // optional
	Metrics  *metrics.SchedulingMetrics // optional
	Logger   *logging.Logger            // optional
}

// Engine is the conflict aggregator. Each call is synchronous and stateless;
// concurrent checks for independent providers and intervals need no locking.
type Engine struct {
	provider ScheduleProvider
	audit    AuditEmitter
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	tracer   trace.Tracer
	policy   atomic.Pointer[Policy]
}

// NewEngine builds a conflict detection engine over the given schedule
// provider and policy.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("schedule: a schedule provider is required")
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("schedule: a scheduling policy is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		provider: cfg.Provider,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		logger:   logger,
		tracer:   otel.Tracer("voice-scheduler/schedule"),
	}
	e.policy.Store(cfg.Policy)
	return e, nil
}

// SetPolicy atomically swaps in a new policy. Concurrent checks observe
// either the old or the new value, never a mix.
func (e *Engine) SetPolicy(p *Policy) {
	if p != nil {
		e.policy.Store(p)
	}
}

// Policy returns the currently active policy.
func (e *Engine) Policy() *Policy {
	return e.policy.Load()
}

// CheckConflicts decides whether [start, end) can be booked for the provider
// and appointment type. It fetches one schedule snapshot, runs every conflict
// rule against it, and returns the merged decision. The only side effect is
// one audit record per call; a schedule retrieval failure fails the whole
// call with a ScheduleConflictError.
func (e *Engine) CheckConflicts(ctx context.Context, providerID string, start, end time.Time, appointmentType string) (*CheckResult, error) {
	ctx, span := e.tracer.Start(ctx, "schedule.CheckConflicts")
	defer span.End()

	interval, err := NewInterval(start, end)
	if err != nil {
		return nil, err
	}

	slots, err := e.fetchSnapshot(ctx, providerID, interval)
	if err != nil {
		e.metrics.ObserveCheck("error", 0)
		return nil, &ScheduleConflictError{ProviderID: providerID, Err: err}
	}

	began := time.Now()
	result := e.evaluate(providerID, interval, appointmentType, slots)
	e.observeResult(result, time.Since(began))

	e.emitAudit(ctx, DecisionRecord{
		Kind:                 "check",
		ProviderHash:         hashIdentifier(providerID),
		CheckedAt:            time.Now().UTC(),
		HasConflicts:         result.HasConflicts,
		HasBlockingConflicts: result.HasBlockingConflicts,
		CanSchedule:          result.CanSchedule,
		ConflictTally:        result.ConflictTally(),
	})

	return result, nil
}

// evaluate runs the rule pipeline against one consistent snapshot. Shared by
// CheckConflicts and the alternative-time search.
func (e *Engine) evaluate(providerID string, interval Interval, appointmentType string, slots []BookedSlot) *CheckResult {
	in := ruleInput{
		ProviderID:      providerID,
		Interval:        interval,
		AppointmentType: appointmentType,
		Policy:          e.Policy(),
		Slots:           slots,
	}
	var conflicts []Conflict
	for _, r := range conflictRules {
		conflicts = append(conflicts, r(in)...)
	}
	return newCheckResult(conflicts)
}

// fetchSnapshot retrieves the booked slots for the calendar day(s) spanning
// the interval, in the practice timezone.
func (e *Engine) fetchSnapshot(ctx context.Context, providerID string, interval Interval) ([]BookedSlot, error) {
	loc := e.Policy().Location()
	from := startOfDay(interval.Start, loc)
	to := startOfDay(interval.End, loc).AddDate(0, 0, 1)
	return e.provider.GetSchedule(ctx, providerID, from, to)
}

func (e *Engine) observeResult(result *CheckResult, elapsed time.Duration) {
	outcome := "schedulable"
	if result.HasBlockingConflicts {
		outcome = "blocked"
	}
	e.metrics.ObserveCheck(outcome, elapsed.Seconds())
	for _, c := range result.Conflicts {
		e.metrics.ObserveConflict(string(c.Type), string(c.Severity))
	}
}

func (e *Engine) emitAudit(ctx context.Context, rec DecisionRecord) {
	if e.audit == nil {
		return
	}
	if err := e.audit.EmitDecision(ctx, rec); err != nil {
		// Audit failures never fail the decision.
		e.logger.Warn("audit emission failed", "error", err)
	}
}

// hashIdentifier anonymizes an identifier for audit records: a fixed-length
// 16-character hex prefix of its SHA-256 digest.
func hashIdentifier(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:16]
}
