// Package nextech integrates the Nextech EMR (FHIR STU 3) as a schedule
// source.
package nextech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/halcyonmd/voice-scheduler/internal/emr"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

// Client implements the emr.Client interface for Nextech EMR
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *logging.Logger

	// OAuth 2.0 token management
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Config holds configuration for the Nextech client
type Config struct {
	BaseURL      string // e.g., "https://api.nextech.com" or sandbox URL
	ClientID     string // OAuth 2.0 client ID
	ClientSecret string // OAuth 2.0 client secret
	Timeout      time.Duration
	Logger       *logging.Logger
}

// New creates a new Nextech EMR client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("nextech: BaseURL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("nextech: ClientID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("nextech: ClientSecret is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	client := &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger.Component("nextech"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

// GetSchedule retrieves a provider's booked and free slots for a date range.
// Nextech FHIR: GET /Slot?schedule={scheduleID}&start={start}&end={end}
func (c *Client) GetSchedule(ctx context.Context, req emr.ScheduleRequest) ([]emr.DaySchedule, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, fmt.Errorf("nextech: authentication failed: %w", err)
	}

	params := url.Values{}
	if req.ProviderID != "" {
		params.Set("schedule", req.ProviderID) // FHIR schedule reference
	}
	params.Set("start", req.StartDate.Format(time.RFC3339))
	params.Set("end", req.EndDate.Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/Slot?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("nextech: failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.token())
	httpReq.Header.Set("Accept", "application/fhir+json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nextech: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nextech: API error (status %d): %s", resp.StatusCode, string(body))
	}

	var bundle FHIRBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("nextech: failed to decode response: %w", err)
	}

	return c.parseSchedule(bundle), nil
}

// parseSchedule converts a FHIR Slot bundle into per-day schedules. Slots
// with unparsable timestamps are skipped; the decision engine prefers a
// usable, possibly-incomplete snapshot over failing outright.
func (c *Client) parseSchedule(bundle FHIRBundle) []emr.DaySchedule {
	byDay := make(map[string][]emr.Slot)
	for _, entry := range bundle.Entry {
		// Convert interface{} to FHIRSlot via JSON round-trip
		data, err := json.Marshal(entry.Resource)
		if err != nil {
			continue
		}
		var fhirSlot FHIRSlot
		if err := json.Unmarshal(data, &fhirSlot); err != nil || fhirSlot.ResourceType != "Slot" {
			continue
		}

		start, err := time.Parse(time.RFC3339, fhirSlot.Start)
		if err != nil {
			c.logger.Warn("skipping slot with unparsable start", "slot_id", fhirSlot.ID, "error", err)
			continue
		}
		end, err := time.Parse(time.RFC3339, fhirSlot.End)
		if err != nil {
			c.logger.Warn("skipping slot with unparsable end", "slot_id", fhirSlot.ID, "error", err)
			continue
		}

		day := start.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], emr.Slot{
			StartTime:      start,
			EndTime:        end,
			Status:         normalizeStatus(fhirSlot.Status),
			AppointmentRef: fhirSlot.ID,
		})
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	schedules := make([]emr.DaySchedule, 0, len(days))
	for _, day := range days {
		slots := byDay[day]
		sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
		schedules = append(schedules, emr.DaySchedule{
			Metadata: dayMetadata(slots),
			Slots:    slots,
		})
	}
	return schedules
}

// dayMetadata derives the advisory operating hints from the day's slot span.
func dayMetadata(slots []emr.Slot) emr.ScheduleMetadata {
	if len(slots) == 0 {
		return emr.ScheduleMetadata{}
	}
	first := slots[0].StartTime
	last := slots[0].EndTime
	for _, s := range slots[1:] {
		if s.EndTime.After(last) {
			last = s.EndTime
		}
	}
	return emr.ScheduleMetadata{OperatingStart: &first, OperatingEnd: &last}
}

// normalizeStatus collapses the FHIR busy variants.
func normalizeStatus(status string) string {
	switch status {
	case "free":
		return "free"
	case "busy", "busy-unavailable", "busy-tentative":
		return "busy"
	default:
		return "busy"
	}
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// ensureAuthenticated ensures we have a valid access token
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	valid := c.accessToken != "" && time.Now().Add(5*time.Minute).Before(c.tokenExpiry)
	c.mu.Unlock()
	// Check if token is still valid (with 5-minute buffer)
	if valid {
		return nil
	}

	// Request new token using OAuth 2.0 client credentials flow
	return c.authenticate(ctx)
}

// authenticate performs OAuth 2.0 client credentials authentication
func (c *Client) authenticate(ctx context.Context) error {
	tokenURL := c.baseURL + "/connect/token"

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("scope", "slot/*.read schedule/*.read")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return nil
}
