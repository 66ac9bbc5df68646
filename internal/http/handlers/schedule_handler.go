package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/halcyonmd/voice-scheduler/internal/schedule"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

// ConflictChecker is the engine surface the transport layer depends on.
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, providerID string, start, end time.Time, appointmentType string) (*schedule.CheckResult, error)
	GenerateAlternatives(ctx context.Context, providerID string, originalStart, originalEnd time.Time, appointmentType string, maxSuggestions int) ([]schedule.Suggestion, error)
}

// ScheduleHandler exposes the conflict engine over HTTP. It is a thin shell:
// all decisions are the engine's.
type ScheduleHandler struct {
	engine         ConflictChecker
	logger         *logging.Logger
	maxSuggestions int
}

// NewScheduleHandler creates a schedule handler. maxSuggestions is the default
// alternative count when a request does not ask for one; zero falls back to
// the engine default.
func NewScheduleHandler(engine ConflictChecker, logger *logging.Logger, maxSuggestions int) *ScheduleHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleHandler{
		engine:         engine,
		logger:         logger.Component("http"),
		maxSuggestions: maxSuggestions,
	}
}

type checkRequest struct {
	ProviderID      string    `json:"provider_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	AppointmentType string    `json:"appointment_type"`
	MaxSuggestions  int       `json:"max_suggestions,omitempty"`
}

func (req *checkRequest) validate() string {
	switch {
	case req.ProviderID == "":
		return "provider_id is required"
	case req.Start.IsZero() || req.End.IsZero():
		return "start and end are required RFC3339 timestamps"
	case !req.Start.Before(req.End):
		return "start must precede end"
	default:
		return ""
	}
}

// CheckConflicts handles POST /v1/schedule/check.
func (h *ScheduleHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.engine.CheckConflicts(r.Context(), req.ProviderID, req.Start, req.End, req.AppointmentType)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type alternativesResponse struct {
	Suggestions []schedule.Suggestion `json:"suggestions"`
}

// GenerateAlternatives handles POST /v1/schedule/alternatives.
func (h *ScheduleHandler) GenerateAlternatives(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	maxSuggestions := req.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = h.maxSuggestions
	}

	suggestions, err := h.engine.GenerateAlternatives(r.Context(), req.ProviderID, req.Start, req.End, req.AppointmentType, maxSuggestions)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []schedule.Suggestion{}
	}
	writeJSON(w, http.StatusOK, alternativesResponse{Suggestions: suggestions})
}

// HealthCheck handles GET /health.
func (h *ScheduleHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ScheduleHandler) writeEngineError(w http.ResponseWriter, err error) {
	var schedErr *schedule.ScheduleConflictError
	if errors.As(err, &schedErr) {
		h.logger.Error("schedule source unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "schedule source unavailable")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
