package update

import "github.com/rpggio/roadmap/internal/calendar"

// Type classifies the cadence of a status update.
type Type string

const (
	TypeWeekly    Type = "Weekly"
	TypeMonthly   Type = "Monthly"
	TypeMilestone Type = "Milestone"
)

// Sentiment is the author's overall read of progress.
type Sentiment string

const (
	SentimentOnTrack Sentiment = "On Track"
	SentimentAtRisk  Sentiment = "At Risk"
	SentimentBlocked Sentiment = "Blocked"
)

// StatusUpdate is a narrative report. HighlightProjects is not checked
// against the project collection.
type StatusUpdate struct {
	ID                string        `json:"id"`
	Date              calendar.Date `json:"date"`
	Author            string        `json:"author"`
	Type              Type          `json:"type"`
	HighlightProjects []string      `json:"highlight_projects"`
	Sentiment         Sentiment     `json:"sentiment"`
	Body              string        `json:"body"`
}
