package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeStatusResolved  ActivityType = "status_resolved"
	TypeCapacityWarning ActivityType = "capacity_warning"
	TypeRecordDropped   ActivityType = "record_dropped"
	TypeProjectPromoted ActivityType = "project_promoted"
	TypeRecommendation  ActivityType = "recommendation"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	RunID        *string      `json:"run_id,omitempty"`
	ProjectID    string       `json:"project_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
