package dto

import (
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/form"
)

// FormResponse is the form state plus the delete prompt for the bound record
type FormResponse struct {
	form.State
	Dirty        bool   `json:"isDirty"`
	DeletePrompt string `json:"deletePrompt,omitempty"`
}

// FilterResponse is the selection state of the session
type FilterResponse struct {
	SessionID string `json:"session_id"`
	filter.State
}

// PublicResult is one result with its time rendered for display
type PublicResult struct {
	ID       string   `json:"id"`
	Meet     string   `json:"meet"`
	Event    string   `json:"event"`
	Athletes []string `json:"athletes"`
	Relay    bool     `json:"relay"`
	DQ       bool     `json:"dq"`
	Time     string   `json:"time"`
}

// PublicAthleteResults lists an athlete's results, fastest first
type PublicAthleteResults struct {
	AthleteID string         `json:"athlete_id"`
	Results   []PublicResult `json:"results"`
}

// HealthResponse reports component status
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Uptime   string            `json:"uptime"`
	Sessions int               `json:"sessions"`
}
