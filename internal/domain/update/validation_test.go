package update_test

import (
	"testing"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/domain/update"
	"github.com/rpggio/roadmap/internal/schema"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	u, err := update.Parse(map[string]any{
		"id":        "UPD-2025-05",
		"date":      "2025-05-30",
		"author":    "PMO",
		"type":      "Monthly",
		"sentiment": "At Risk",
	})
	require.NoError(t, err)
	require.Equal(t, update.TypeMonthly, u.Type)
	require.Equal(t, update.SentimentAtRisk, u.Sentiment)
	require.Equal(t, []string{}, u.HighlightProjects)
}

func TestParse_Violations(t *testing.T) {
	_, err := update.Parse(map[string]any{
		"id":                 "",
		"date":               "May 30",
		"type":               "Daily",
		"sentiment":          "Fine",
		"highlight_projects": []any{"PRJ-404"},
	})
	require.ErrorIs(t, err, schema.ErrInvalid)

	rules := map[string]schema.Rule{}
	for _, v := range schema.ViolationsOf(err) {
		rules[v.Path] = v.Rule
	}
	require.Equal(t, map[string]schema.Rule{
		"id":        schema.RuleMinLength,
		"date":      schema.RuleFormat,
		"author":    schema.RuleRequired,
		"type":      schema.RuleEnum,
		"sentiment": schema.RuleEnum,
	}, rules)
}

func TestSortNewestFirst_StableOnTies(t *testing.T) {
	updates := []update.StatusUpdate{
		{ID: "a", Date: calendar.MustParse("2025-01-01")},
		{ID: "b", Date: calendar.MustParse("2025-03-01")},
		{ID: "c", Date: calendar.MustParse("2025-01-01")},
		{ID: "d", Date: calendar.MustParse("2025-03-01")},
	}
	update.SortNewestFirst(updates)

	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	require.Equal(t, []string{"b", "d", "a", "c"}, ids)
}
