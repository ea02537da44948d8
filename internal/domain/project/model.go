package project

import "github.com/rpggio/roadmap/internal/calendar"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusBacklog  Status = "Backlog"
	StatusQueued   Status = "Queued"
	StatusActive   Status = "Active"
	StatusPaused   Status = "Paused"
	StatusComplete Status = "Complete"
	// StatusOverdue is synthesized by the status resolver and never authored.
	StatusOverdue Status = "Overdue"
)

// AuthoredStatuses lists the statuses a content file may carry.
var AuthoredStatuses = []Status{StatusBacklog, StatusQueued, StatusActive, StatusPaused, StatusComplete}

// Quadrant is a prioritization bucket derived from normalized impact and effort.
type Quadrant string

const (
	QuadrantQuickWins Quadrant = "Quick Wins"
	QuadrantBigBets   Quadrant = "Big Bets"
	QuadrantFillers   Quadrant = "Fillers"
	QuadrantTimeSinks Quadrant = "Time Sinks"
)

// Project is a strategic initiative loaded from one content record.
type Project struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Owner           string     `json:"owner"`
	Department      string     `json:"department"`
	Phase           string     `json:"phase"`
	Status          Status     `json:"status"`
	Dates           Dates      `json:"dates"`
	Scores          Scores     `json:"scores"`
	Financials      Financials `json:"financials"`
	Tags            []string   `json:"tags"`
	RelatedProjects []string   `json:"related_projects"`
	Body            string     `json:"body"`
	Matrix          *Matrix    `json:"matrix,omitempty"`
}

// Dates are calendar days; ActualStart is nil until work begins.
type Dates struct {
	PlannedStart calendar.Date  `json:"planned_start"`
	PlannedEnd   calendar.Date  `json:"planned_end"`
	ActualStart  *calendar.Date `json:"actual_start,omitempty"`
}

// Scores are raw authored scores: strategic value and complexity on 0-10,
// confidence on 0-1.
type Scores struct {
	StrategicValue float64 `json:"strategic_value"`
	Complexity     float64 `json:"complexity"`
	Confidence     float64 `json:"confidence"`
}

type Financials struct {
	EstimatedCost float64 `json:"estimated_cost"`
	ProjectedROI  float64 `json:"projected_roi"`
	Currency      string  `json:"currency"`
}

// Matrix is derived by the scoring normalizer.
type Matrix struct {
	ImpactNormalized int      `json:"impact_normalized"`
	EffortNormalized int      `json:"effort_normalized"`
	Quadrant         Quadrant `json:"quadrant"`
}
