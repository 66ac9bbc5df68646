// Package compliance provides healthcare regulatory compliance features.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonmd/voice-scheduler/internal/schedule"
)

// DecisionEvent is an immutable audit record of one engine decision. It
// carries only anonymized identifiers: a fixed-length hash of the provider id,
// the decision booleans and a conflict-type tally. Raw identifiers and
// free-text conflict descriptions never reach the audit trail.
type DecisionEvent struct {
	ID                   string          `json:"id"`
	Kind                 string          `json:"kind"` // "check" or "alternatives"
	ProviderHash         string          `json:"provider_hash"`
	HasConflicts         bool            `json:"has_conflicts"`
	HasBlockingConflicts bool            `json:"has_blocking_conflicts"`
	CanSchedule          bool            `json:"can_schedule"`
	ConflictTally        json.RawMessage `json:"conflict_tally,omitempty"`
	SuggestionsReturned  int             `json:"suggestions_returned"`
	CreatedAt            time.Time       `json:"created_at"`
}

// AuditService persists anonymized decision records. It implements
// schedule.AuditEmitter.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// EmitDecision records one engine decision.
func (s *AuditService) EmitDecision(ctx context.Context, rec schedule.DecisionRecord) error {
	event := DecisionEvent{
		ID:                   uuid.NewString(),
		Kind:                 rec.Kind,
		ProviderHash:         rec.ProviderHash,
		HasConflicts:         rec.HasConflicts,
		HasBlockingConflicts: rec.HasBlockingConflicts,
		CanSchedule:          rec.CanSchedule,
		SuggestionsReturned:  rec.SuggestionsReturned,
		CreatedAt:            rec.CheckedAt,
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(rec.ConflictTally) > 0 {
		tally, err := json.Marshal(rec.ConflictTally)
		if err != nil {
			return fmt.Errorf("compliance: marshal conflict tally: %w", err)
		}
		event.ConflictTally = tally
	}

	query := `
		INSERT INTO scheduling_audit_events (
			id, kind, provider_hash, has_conflicts, has_blocking_conflicts,
			can_schedule, conflict_tally, suggestions_returned, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Kind,
		event.ProviderHash,
		event.HasConflicts,
		event.HasBlockingConflicts,
		event.CanSchedule,
		nullJSON(event.ConflictTally),
		event.SuggestionsReturned,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log decision event: %w", err)
	}

	return nil
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]DecisionEvent, error) {
	query := `
		SELECT id, kind, provider_hash, has_conflicts, has_blocking_conflicts,
			   can_schedule, conflict_tally, suggestions_returned, created_at
		FROM scheduling_audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.ProviderHash != "" {
		query += fmt.Sprintf(" AND provider_hash = $%d", argIdx)
		args = append(args, filter.ProviderHash)
		argIdx++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, filter.Kind)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query decision events: %w", err)
	}
	defer rows.Close()

	var events []DecisionEvent
	for rows.Next() {
		var e DecisionEvent
		var tally sql.NullString
		err := rows.Scan(
			&e.ID, &e.Kind, &e.ProviderHash, &e.HasConflicts, &e.HasBlockingConflicts,
			&e.CanSchedule, &tally, &e.SuggestionsReturned, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan decision event: %w", err)
		}
		if tally.Valid {
			e.ConflictTally = json.RawMessage(tally.String)
		}
		events = append(events, e)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying decision events.
type AuditFilter struct {
	ProviderHash string
	Kind         string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
