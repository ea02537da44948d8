package schema

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFields_CollectsEveryViolation(t *testing.T) {
	f := NewFields(map[string]any{
		"title":  "",
		"count":  "seven",
		"status": "Done",
		"nested": map[string]any{"score": 11},
	})

	f.NonEmpty("title")
	f.NonEmpty("owner")
	f.Number("count")
	f.Enum("status", "Open", "Closed")
	f.Object("nested").Range("score", 0, 10)

	err := f.Err(KindProject)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalid))

	got := map[string]Rule{}
	for _, v := range ViolationsOf(err) {
		got[v.Path] = v.Rule
	}
	require.Equal(t, map[string]Rule{
		"title":        RuleMinLength,
		"owner":        RuleRequired,
		"count":        RuleType,
		"status":       RuleEnum,
		"nested.score": RuleRange,
	}, got)
}

func TestFields_MissingObjectReportsOnce(t *testing.T) {
	f := NewFields(map[string]any{})
	dates := f.Object("dates")
	dates.Date("planned_start")
	dates.Date("planned_end")

	violations := f.Violations()
	require.Len(t, violations, 1)
	require.Equal(t, "dates", violations[0].Path)
	require.Equal(t, RuleRequired, violations[0].Rule)
}

func TestFields_MissingObjectSkipsDerivedChecks(t *testing.T) {
	f := NewFields(map[string]any{})
	fin := f.Object("financials")
	fin.Length("currency", 3)
	fin.NonEmpty("owner")
	fin.Pattern("code", regexp.MustCompile(`^[A-Z]+$`), "upper case")
	fin.Enum("kind", "a", "b")
	fin.Range("score", 1, 10)

	violations := f.Violations()
	require.Len(t, violations, 1)
	require.Equal(t, "financials", violations[0].Path)
	require.Equal(t, RuleRequired, violations[0].Rule)
}

func TestFields_StringListDefaultsToEmpty(t *testing.T) {
	f := NewFields(map[string]any{"tags": []any{"a", 3}})
	require.Equal(t, []string{}, f.StringList("missing"))
	require.Equal(t, []string{"a"}, f.StringList("tags"))

	violations := f.Violations()
	require.Len(t, violations, 1)
	require.Equal(t, "tags[1]", violations[0].Path)
}

func TestFields_Dates(t *testing.T) {
	f := NewFields(map[string]any{
		"text":      "2025-01-31",
		"timestamp": time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		"clock":     time.Date(2025, 2, 1, 13, 0, 0, 0, time.UTC),
		"bad":       "31/01/2025",
		"blank":     "",
	})
	require.Equal(t, "2025-01-31", f.Date("text").String())
	require.Equal(t, "2025-02-01", f.Date("timestamp").String())
	require.True(t, f.Date("clock").IsZero())
	require.True(t, f.Date("bad").IsZero())
	require.True(t, f.OptionalDate("blank").IsZero())
	require.True(t, f.OptionalDate("absent").IsZero())

	paths := []string{}
	for _, v := range f.Violations() {
		require.Equal(t, RuleFormat, v.Rule)
		paths = append(paths, v.Path)
	}
	require.Equal(t, []string{"clock", "bad"}, paths)
}

func TestFields_PatternAndLength(t *testing.T) {
	f := NewFields(map[string]any{"id": "PRJ-1", "currency": "EURO"})
	f.Pattern("id", regexp.MustCompile(`^PRJ-\d{3,}$`), "PRJ-nnn")
	f.Length("currency", 3)

	rules := []Rule{}
	for _, v := range f.Violations() {
		rules = append(rules, v.Rule)
	}
	require.Equal(t, []Rule{RuleFormat, RuleLength}, rules)
}

func TestFields_NoViolationsMeansNilErr(t *testing.T) {
	f := NewFields(map[string]any{"n": 3, "ok": true})
	require.Equal(t, float64(3), f.Range("n", 0, 10))
	require.True(t, f.Bool("ok"))
	require.NoError(t, f.Err(KindConfig))
}
