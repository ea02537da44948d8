package tenant

import (
	"math"

	"github.com/rpggio/roadmap/internal/schema"
)

// Parse validates a raw configuration document.
func Parse(raw map[string]any) (*Config, error) {
	f := schema.NewFields(raw)
	cfg := &Config{
		TenantID: f.String("tenant_id"),
	}

	meta := f.Object("meta")
	cfg.Meta = Meta{
		Title:      meta.String("title"),
		LogoURL:    meta.String("logo_url"),
		FaviconURL: meta.String("favicon_url"),
	}

	if tokens, ok := f.OptionalObject("design_tokens"); ok {
		colors := tokens.Object("colors")
		typography := tokens.Object("typography")
		cfg.DesignTokens = &DesignTokens{
			Colors: Colors{
				Primary:    colors.String("primary"),
				Secondary:  colors.String("secondary"),
				Accent:     colors.String("accent"),
				Background: colors.String("background"),
			},
			Typography: Typography{
				HeadingFont: typography.String("heading_font"),
				BodyFont:    typography.String("body_font"),
			},
		}
	}

	if modules, ok := f.OptionalObject("modules"); ok {
		cfg.Modules = &Modules{
			EnableMatrix: modules.Bool("enable_matrix"),
			EnableGantt:  modules.Bool("enable_gantt"),
			EnableBlog:   modules.Bool("enable_blog"),
		}
	}

	if gov, ok := f.OptionalObject("governance"); ok {
		cfg.Governance = &Governance{
			FiscalYearStart:       gov.String("fiscal_year_start"),
			MaxConcurrentProjects: wholeNumber(gov, "max_concurrent_projects"),
			Phases:                gov.StringList("phases"),
		}
	}

	if tax, ok := f.OptionalObject("taxonomies"); ok {
		cfg.Taxonomies = &Taxonomies{}
		cfg.Taxonomies.Departments, _ = tax.OptionalStringList("departments")
		cfg.Taxonomies.Statuses, _ = tax.OptionalStringList("statuses")
	}

	if err := f.Err(schema.KindConfig); err != nil {
		return nil, err
	}
	return cfg, nil
}

func wholeNumber(f *schema.Fields, key string) int {
	n, ok := f.OptionalNumber(key)
	if !ok {
		f.Number(key)
		return 0
	}
	if n < 0 || n != math.Trunc(n) {
		f.Violate(key, schema.RuleRange, "must be a non-negative whole number, got %g", n)
		return 0
	}
	return int(n)
}
