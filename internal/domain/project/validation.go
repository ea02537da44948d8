package project

import (
	"regexp"

	"github.com/rpggio/roadmap/internal/schema"
)

// IDPattern matches permanent (PRJ-nnn) and staging (STG-nnn) identifiers.
var IDPattern = regexp.MustCompile(`^(PRJ|STG)-\d{3,}$`)

// Parse validates a raw project record. Body is left empty; the loader
// attaches it. All violations are reported together.
func Parse(raw map[string]any) (*Project, error) {
	f := schema.NewFields(raw)
	p := &Project{
		ID:         f.Pattern("id", IDPattern, "PRJ-nnn or STG-nnn"),
		Title:      f.NonEmpty("title"),
		Slug:       f.NonEmpty("slug"),
		Owner:      f.NonEmpty("owner"),
		Department: f.NonEmpty("department"),
		Phase:      f.NonEmpty("phase"),
		Status:     Status(f.Enum("status", statusNames(AuthoredStatuses)...)),
	}

	dates := f.Object("dates")
	p.Dates.PlannedStart = dates.Date("planned_start")
	p.Dates.PlannedEnd = dates.Date("planned_end")
	if actual := dates.OptionalDate("actual_start"); !actual.IsZero() {
		p.Dates.ActualStart = &actual
	}
	if !p.Dates.PlannedStart.IsZero() && !p.Dates.PlannedEnd.IsZero() &&
		p.Dates.PlannedEnd.Before(p.Dates.PlannedStart) {
		f.Violate("dates", schema.RuleOrder, "planned_end %s is before planned_start %s",
			p.Dates.PlannedEnd, p.Dates.PlannedStart)
	}

	scores := f.Object("scores")
	p.Scores = Scores{
		StrategicValue: scores.Range("strategic_value", 0, 10),
		Complexity:     scores.Range("complexity", 0, 10),
		Confidence:     scores.Range("confidence", 0, 1),
	}

	fin := f.Object("financials")
	p.Financials = Financials{
		EstimatedCost: fin.Number("estimated_cost"),
		ProjectedROI:  fin.Number("projected_roi"),
		Currency:      fin.Length("currency", 3),
	}

	p.Tags = f.StringList("tags")
	p.RelatedProjects = f.StringList("related_projects")

	if err := f.Err(schema.KindProject); err != nil {
		return nil, err
	}
	return p, nil
}

func statusNames(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
