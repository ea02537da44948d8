package content

import (
	"fmt"

	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/tenant"
	"github.com/rpggio/roadmap/internal/domain/update"
	"github.com/rpggio/roadmap/internal/schema"
)

// Validate checks a raw record against the schema for kind and returns the
// typed record: *project.Project, *update.StatusUpdate or *tenant.Config.
func Validate(kind schema.Kind, raw map[string]any) (any, error) {
	switch kind {
	case schema.KindProject:
		return project.Parse(raw)
	case schema.KindUpdate:
		return update.Parse(raw)
	case schema.KindConfig:
		return tenant.Parse(raw)
	default:
		return nil, fmt.Errorf("content: unknown record kind %q", kind)
	}
}

// checkTaxonomy reports every field of p outside the configured allow-lists.
func checkTaxonomy(p *project.Project, cfg *tenant.Config) error {
	var violations []schema.Violation
	if !cfg.AllowsDepartment(p.Department) {
		violations = append(violations, schema.Violation{
			Path:    "department",
			Rule:    schema.RuleTaxonomy,
			Message: fmt.Sprintf("%q is not a configured department", p.Department),
		})
	}
	if !cfg.AllowsPhase(p.Phase) {
		violations = append(violations, schema.Violation{
			Path:    "phase",
			Rule:    schema.RuleTaxonomy,
			Message: fmt.Sprintf("%q is not a configured phase", p.Phase),
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTaxonomy, &schema.ValidationError{Kind: schema.KindProject, Violations: violations})
}

// checkReferences reports every related project id missing from index.
func checkReferences(p project.Project, index map[string]int) error {
	var violations []schema.Violation
	for i, ref := range p.RelatedProjects {
		if _, ok := index[ref]; !ok {
			violations = append(violations, schema.Violation{
				Path:    fmt.Sprintf("related_projects[%d]", i),
				Rule:    schema.RuleReference,
				Message: fmt.Sprintf("%q does not match any loaded project", ref),
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDanglingReference, &schema.ValidationError{Kind: schema.KindProject, Violations: violations})
}
