package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/frontmatter"
	"github.com/rpggio/roadmap/internal/schema"
)

// SweepReport summarises a pass over the project files.
type SweepReport struct {
	// Missing is set when the projects directory does not exist.
	Missing   bool         `json:"missing,omitempty"`
	Scanned   int          `json:"scanned"`
	Activated []Transition `json:"activated"`
	// Flagged lists projects that resolve to Overdue. Overdue is never
	// written back to a file.
	Flagged []Transition `json:"flagged"`
}

// Changed reports whether the sweep produced any transition.
func (r SweepReport) Changed() bool {
	return len(r.Activated) > 0 || len(r.Flagged) > 0
}

// Sweep applies the Queued -> Active transition in place to every project
// file in dir whose start date has arrived. Files are read leniently: a
// record with unreadable dates is skipped here and left for the build to
// reject.
func Sweep(dir string, ref calendar.Date) (SweepReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SweepReport{Missing: true}, nil
		}
		return SweepReport{}, fmt.Errorf("lifecycle: read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var report SweepReport
	for _, name := range names {
		path := filepath.Join(dir, name)
		report.Scanned++
		content, err := os.ReadFile(path)
		if err != nil {
			return report, fmt.Errorf("lifecycle: read %s: %w", path, err)
		}
		p, ok := sweepView(content)
		if !ok {
			continue
		}
		next, changed := Next(p, ref)
		if !changed {
			continue
		}
		t := Transition{ProjectID: p.ID, Title: p.Title, From: p.Status, To: next}
		if next == project.StatusOverdue {
			report.Flagged = append(report.Flagged, t)
			continue
		}
		if err := rewriteStatus(path, content, next); err != nil {
			return report, err
		}
		report.Activated = append(report.Activated, t)
	}
	return report, nil
}

// sweepView extracts just the fields the transition table needs.
func sweepView(content []byte) (project.Project, bool) {
	raw, _, err := frontmatter.Parse(content)
	if err != nil {
		return project.Project{}, false
	}
	f := schema.NewFields(raw)
	id, _ := f.OptionalString("id")
	title, _ := f.OptionalString("title")
	status, _ := f.OptionalString("status")
	p := project.Project{ID: id, Title: title, Status: project.Status(status)}
	if dates, ok := f.OptionalObject("dates"); ok {
		p.Dates.PlannedStart = dates.OptionalDate("planned_start")
		p.Dates.PlannedEnd = dates.OptionalDate("planned_end")
	}
	if len(f.Violations()) > 0 || p.Dates.PlannedStart.IsZero() || p.Dates.PlannedEnd.IsZero() {
		return project.Project{}, false
	}
	return p, true
}

func rewriteStatus(path string, content []byte, status project.Status) error {
	doc, err := frontmatter.Load(content)
	if err != nil {
		return fmt.Errorf("lifecycle: load %s: %w", path, err)
	}
	doc.Set("status", string(status))
	out, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("lifecycle: render %s: %w", path, err)
	}
	return replaceFile(path, out)
}

// replaceFile swaps data in through a temporary file in the same directory,
// so an interrupted write never truncates the authored record.
func replaceFile(path string, data []byte) (err error) {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("lifecycle: stat %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("lifecycle: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("lifecycle: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("lifecycle: sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("lifecycle: close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("lifecycle: chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("lifecycle: replace %s: %w", path, err)
	}
	return nil
}
