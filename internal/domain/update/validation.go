package update

import (
	"sort"

	"github.com/rpggio/roadmap/internal/schema"
)

// Parse validates a raw status update record.
func Parse(raw map[string]any) (*StatusUpdate, error) {
	f := schema.NewFields(raw)
	u := &StatusUpdate{
		ID:                f.NonEmpty("id"),
		Date:              f.Date("date"),
		Author:            f.NonEmpty("author"),
		Type:              Type(f.Enum("type", string(TypeWeekly), string(TypeMonthly), string(TypeMilestone))),
		HighlightProjects: f.StringList("highlight_projects"),
		Sentiment:         Sentiment(f.Enum("sentiment", string(SentimentOnTrack), string(SentimentAtRisk), string(SentimentBlocked))),
	}
	if err := f.Err(schema.KindUpdate); err != nil {
		return nil, err
	}
	return u, nil
}

// SortNewestFirst orders updates by date descending. Updates sharing a date
// keep their relative input order.
func SortNewestFirst(updates []StatusUpdate) {
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Date.After(updates[j].Date)
	})
}
