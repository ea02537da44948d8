// Package capacity measures portfolio load against the configured ceiling
// and picks the next backlog candidate when there is room.
package capacity

import (
	"sort"

	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/tenant"
)

// Capacity is the portfolio summary carried in the snapshot.
type Capacity struct {
	ActiveCount   int  `json:"activeCount"`
	MaxConcurrent int  `json:"maxConcurrent"`
	OverCapacity  bool `json:"overCapacity"`
}

// Remaining is the number of projects that could still start. It is never
// negative.
func (c Capacity) Remaining() int {
	if c.ActiveCount >= c.MaxConcurrent {
		return 0
	}
	return c.MaxConcurrent - c.ActiveCount
}

// Compute counts Active projects in an already resolved collection.
func Compute(projects []project.Project, cfg *tenant.Config) Capacity {
	active := 0
	for _, p := range projects {
		if p.Status == project.StatusActive {
			active++
		}
	}
	limit := cfg.MaxConcurrent()
	return Capacity{
		ActiveCount:   active,
		MaxConcurrent: limit,
		OverCapacity:  active > limit,
	}
}

// Recommendation is the outcome of a queue check.
type Recommendation struct {
	Capacity Capacity `json:"capacity"`
	// Candidate is nil when at capacity or the backlog is empty.
	Candidate *project.Project `json:"candidate,omitempty"`
}

// AtCapacity reports whether no further project should start.
func (r Recommendation) AtCapacity() bool {
	return r.Capacity.ActiveCount >= r.Capacity.MaxConcurrent
}

// Recommend suggests the Backlog project with the highest strategic value
// when active work is below the ceiling. Ties go to the lowest id. Nothing
// is modified.
func Recommend(projects []project.Project, cfg *tenant.Config) Recommendation {
	rec := Recommendation{Capacity: Compute(projects, cfg)}
	if rec.AtCapacity() {
		return rec
	}
	var backlog []project.Project
	for _, p := range projects {
		if p.Status == project.StatusBacklog {
			backlog = append(backlog, p)
		}
	}
	if len(backlog) == 0 {
		return rec
	}
	sort.SliceStable(backlog, func(i, j int) bool {
		if backlog[i].Scores.StrategicValue != backlog[j].Scores.StrategicValue {
			return backlog[i].Scores.StrategicValue > backlog[j].Scores.StrategicValue
		}
		return backlog[i].ID < backlog[j].ID
	})
	best := backlog[0]
	rec.Candidate = &best
	return rec
}
