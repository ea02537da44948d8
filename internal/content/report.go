package content

import (
	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/update"
)

// Report is the outcome of a full validation pass. Unlike Load it does not
// stop at the first bad project.
type Report struct {
	Projects []project.Project
	Updates  []update.StatusUpdate
	// Failures are project errors; any one of them would fail a build.
	Failures []*RecordError
	// Dropped are update errors; a build would skip these records.
	Dropped []*RecordError
}

// OK reports whether a build over the same content would succeed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Validate checks every record in the content root. Config problems are
// returned as errors since nothing else can be judged without a config.
func (l *Loader) Validate() (*Report, error) {
	cfg, err := l.LoadConfig()
	if err != nil {
		return nil, err
	}
	projects, failures, err := l.loadProjects(cfg, true)
	if err != nil {
		return nil, err
	}
	updates, dropped, err := l.LoadUpdates()
	if err != nil {
		return nil, err
	}
	return &Report{Projects: projects, Updates: updates, Failures: failures, Dropped: dropped}, nil
}
