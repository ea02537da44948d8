// Package lifecycle applies date-driven project status transitions.
//
// Only two transitions exist and each fires from its own source status:
//
//	Queued -> Active   when planned_start <= reference date
//	Active -> Overdue  when planned_end   <  reference date
//
// They are not chained within one evaluation: a Queued project whose end
// date has also passed becomes Active now and Overdue on the next run.
// Completion is never automatic.
package lifecycle

import (
	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/domain/project"
)

// Transition records a status change produced by Resolve.
type Transition struct {
	ProjectID string         `json:"project_id"`
	Title     string         `json:"title"`
	From      project.Status `json:"from"`
	To        project.Status `json:"to"`
}

// Next returns the status p moves to at ref, and whether it changes.
func Next(p project.Project, ref calendar.Date) (project.Status, bool) {
	switch p.Status {
	case project.StatusQueued:
		if p.Dates.PlannedStart.Compare(ref) <= 0 {
			return project.StatusActive, true
		}
	case project.StatusActive:
		if p.Dates.PlannedEnd.Before(ref) {
			return project.StatusOverdue, true
		}
	}
	return p.Status, false
}

// Resolve returns p with its status advanced for ref. Nothing else changes.
func Resolve(p project.Project, ref calendar.Date) project.Project {
	if next, changed := Next(p, ref); changed {
		p.Status = next
	}
	return p
}

// ResolveAll resolves every project against the same reference date and
// reports the transitions in input order.
func ResolveAll(projects []project.Project, ref calendar.Date) ([]project.Project, []Transition) {
	out := make([]project.Project, len(projects))
	var transitions []Transition
	for i, p := range projects {
		next, changed := Next(p, ref)
		if changed {
			transitions = append(transitions, Transition{
				ProjectID: p.ID,
				Title:     p.Title,
				From:      p.Status,
				To:        next,
			})
			p.Status = next
		}
		out[i] = p
	}
	return out, transitions
}
