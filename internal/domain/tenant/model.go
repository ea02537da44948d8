package tenant

// DefaultMaxConcurrent applies when governance.max_concurrent_projects is
// absent; it is high enough to never trip the capacity warning in practice.
const DefaultMaxConcurrent = 999

// Config is the per-tenant configuration document read at the start of
// every run. Optional sections are nil when omitted.
type Config struct {
	TenantID     string        `json:"tenant_id"`
	Meta         Meta          `json:"meta"`
	DesignTokens *DesignTokens `json:"design_tokens,omitempty"`
	Modules      *Modules      `json:"modules,omitempty"`
	Governance   *Governance   `json:"governance,omitempty"`
	Taxonomies   *Taxonomies   `json:"taxonomies,omitempty"`
}

// Meta carries branding shown by the dashboard.
type Meta struct {
	Title      string `json:"title"`
	LogoURL    string `json:"logo_url"`
	FaviconURL string `json:"favicon_url"`
}

type DesignTokens struct {
	Colors     Colors     `json:"colors"`
	Typography Typography `json:"typography"`
}

type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

type Typography struct {
	HeadingFont string `json:"heading_font"`
	BodyFont    string `json:"body_font"`
}

// Modules toggles dashboard features.
type Modules struct {
	EnableMatrix bool `json:"enable_matrix"`
	EnableGantt  bool `json:"enable_gantt"`
	EnableBlog   bool `json:"enable_blog"`
}

// Governance holds portfolio rules. Phases is ordered.
type Governance struct {
	FiscalYearStart       string   `json:"fiscal_year_start"`
	MaxConcurrentProjects int      `json:"max_concurrent_projects"`
	Phases                []string `json:"phases"`
}

// Taxonomies are allow-lists; an empty list places no constraint. A list
// is nil only when its key was absent, and only then left out of the JSON.
type Taxonomies struct {
	Departments []string `json:"departments,omitzero"`
	Statuses    []string `json:"statuses,omitzero"`
}

// MaxConcurrent returns the active-project ceiling.
func (c *Config) MaxConcurrent() int {
	if c == nil || c.Governance == nil {
		return DefaultMaxConcurrent
	}
	return c.Governance.MaxConcurrentProjects
}

// Phases returns the configured phase list, possibly empty.
func (c *Config) Phases() []string {
	if c == nil || c.Governance == nil {
		return nil
	}
	return c.Governance.Phases
}

// Departments returns the configured department list, possibly empty.
func (c *Config) Departments() []string {
	if c == nil || c.Taxonomies == nil {
		return nil
	}
	return c.Taxonomies.Departments
}

// AllowsPhase reports whether phase satisfies the phase taxonomy.
func (c *Config) AllowsPhase(phase string) bool {
	return allowed(c.Phases(), phase)
}

// AllowsDepartment reports whether department satisfies the department taxonomy.
func (c *Config) AllowsDepartment(department string) bool {
	return allowed(c.Departments(), department)
}

func allowed(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
