package run

import (
	"time"

	"github.com/rpggio/roadmap/internal/calendar"
)

// Status represents the outcome of a pipeline run
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Kind names the operation a run performed.
type Kind string

const (
	KindBuild    Kind = "build"
	KindMidnight Kind = "midnight"
	KindQueue    Kind = "smart-queue"
	KindPromote  Kind = "promote"
)

// Run is one invocation of an engine operation against a content root.
type Run struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"`
	Kind          Kind          `json:"kind"`
	Status        Status        `json:"status"`
	ReferenceDate calendar.Date `json:"reference_date"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	Projects      int           `json:"projects"`
	Updates       int           `json:"updates"`
	ActiveCount   int           `json:"active_count"`
	OverCapacity  bool          `json:"over_capacity"`
	Error         string        `json:"error,omitempty"`
}

// Outcome carries the counters reported when a run finishes.
type Outcome struct {
	Status       Status
	TenantID     string
	Projects     int
	Updates      int
	ActiveCount  int
	OverCapacity bool
	Err          error
}

// ListOptions provides filtering options for listing runs.
type ListOptions struct {
	TenantID string
	Kind     Kind
	Limit    int
	Offset   int
}
