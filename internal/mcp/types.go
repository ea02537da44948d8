package mcp

import (
	"time"

	"github.com/rpggio/roadmap/internal/capacity"
	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/lifecycle"
	"github.com/rpggio/roadmap/internal/schema"
)

type ValidateContentParams struct{}

type BuildSnapshotParams struct {
	ReferenceDate string `json:"reference_date,omitempty" jsonschema:"YYYY-MM-DD date used to resolve statuses; defaults to today (UTC)"`
}

type CapacityReportParams struct {
	ReferenceDate string `json:"reference_date,omitempty" jsonschema:"YYYY-MM-DD date used to resolve statuses; defaults to today (UTC)"`
}

type RecommendNextParams struct {
	ReferenceDate string `json:"reference_date,omitempty" jsonschema:"YYYY-MM-DD date used to resolve statuses; defaults to today (UTC)"`
}

type RecentActivityParams struct {
	ProjectID   string `json:"project_id,omitempty" jsonschema:"only entries for this project id"`
	RunID       string `json:"run_id,omitempty" jsonschema:"only entries recorded by this run"`
	Type        string `json:"type,omitempty" jsonschema:"only entries of this type"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum entries to return (default 50)"`
	Offset      int    `json:"offset,omitempty"`
	IncludeRuns bool   `json:"include_runs,omitempty" jsonschema:"also list recent runs"`
}

type ViolationResponse struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type RecordErrorResponse struct {
	Kind       string              `json:"kind"`
	File       string              `json:"file"`
	ID         string              `json:"id,omitempty"`
	Error      string              `json:"error"`
	Violations []ViolationResponse `json:"violations"`
}

type ValidateContentResponse struct {
	OK       bool                  `json:"ok"`
	Projects int                   `json:"projects"`
	Updates  int                   `json:"updates"`
	Failures []RecordErrorResponse `json:"failures"`
	Dropped  []RecordErrorResponse `json:"dropped"`
}

type TransitionResponse struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type CapacityResponse struct {
	ActiveCount   int  `json:"active_count"`
	MaxConcurrent int  `json:"max_concurrent"`
	Remaining     int  `json:"remaining"`
	OverCapacity  bool `json:"over_capacity"`
}

type BuildSnapshotResponse struct {
	RunID         string                `json:"run_id,omitempty"`
	ReferenceDate string                `json:"reference_date"`
	Skipped       bool                  `json:"skipped"`
	Reason        string                `json:"reason,omitempty"`
	Path          string                `json:"path,omitempty"`
	Projects      int                   `json:"projects"`
	Updates       int                   `json:"updates"`
	Assets        int                   `json:"assets"`
	Capacity      CapacityResponse      `json:"capacity"`
	Transitions   []TransitionResponse  `json:"transitions"`
	Dropped       []RecordErrorResponse `json:"dropped"`
}

type CapacityReportResponse struct {
	ReferenceDate string           `json:"reference_date"`
	Capacity      CapacityResponse `json:"capacity"`
}

type CandidateResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Slug           string  `json:"slug"`
	Owner          string  `json:"owner"`
	Department     string  `json:"department"`
	StrategicValue float64 `json:"strategic_value"`
}

type RecommendNextResponse struct {
	ReferenceDate string             `json:"reference_date"`
	Capacity      CapacityResponse   `json:"capacity"`
	AtCapacity    bool               `json:"at_capacity"`
	Candidate     *CandidateResponse `json:"candidate,omitempty"`
}

type ActivityResponse struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RunResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	ReferenceDate string `json:"reference_date"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
	Projects      int    `json:"projects"`
	Updates       int    `json:"updates"`
	ActiveCount   int    `json:"active_count"`
	OverCapacity  bool   `json:"over_capacity"`
	Error         string `json:"error,omitempty"`
}

type RecentActivityResponse struct {
	Activity []ActivityResponse `json:"activity"`
	Runs     []RunResponse      `json:"runs,omitempty"`
}

func recordErrorResponse(e *content.RecordError) RecordErrorResponse {
	return RecordErrorResponse{
		Kind:       string(e.Kind),
		File:       e.File,
		ID:         e.ID,
		Error:      e.Err.Error(),
		Violations: violationResponses(e.Violations()),
	}
}

func recordErrorResponses(errs []*content.RecordError) []RecordErrorResponse {
	out := make([]RecordErrorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, recordErrorResponse(e))
	}
	return out
}

func violationResponses(vs []schema.Violation) []ViolationResponse {
	out := make([]ViolationResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, ViolationResponse{Path: v.Path, Rule: string(v.Rule), Message: v.Message})
	}
	return out
}

func transitionResponses(ts []lifecycle.Transition) []TransitionResponse {
	out := make([]TransitionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, TransitionResponse{ProjectID: t.ProjectID, Title: t.Title, From: string(t.From), To: string(t.To)})
	}
	return out
}

func capacityResponse(c capacity.Capacity) CapacityResponse {
	return CapacityResponse{
		ActiveCount:   c.ActiveCount,
		MaxConcurrent: c.MaxConcurrent,
		Remaining:     c.Remaining(),
		OverCapacity:  c.OverCapacity,
	}
}

func candidateResponse(p *project.Project) *CandidateResponse {
	if p == nil {
		return nil
	}
	return &CandidateResponse{
		ID:             p.ID,
		Title:          p.Title,
		Slug:           p.Slug,
		Owner:          p.Owner,
		Department:     p.Department,
		StrategicValue: p.Scores.StrategicValue,
	}
}

func activityResponse(e activity.ActivityEntry) ActivityResponse {
	resp := ActivityResponse{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		Type:      string(e.ActivityType),
		Summary:   e.Summary,
		Details:   e.Details,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.RunID != nil {
		resp.RunID = *e.RunID
	}
	return resp
}

func runResponse(r run.Run) RunResponse {
	resp := RunResponse{
		ID:            r.ID,
		Kind:          string(r.Kind),
		Status:        string(r.Status),
		ReferenceDate: r.ReferenceDate.String(),
		StartedAt:     r.StartedAt.UTC().Format(time.RFC3339),
		Projects:      r.Projects,
		Updates:       r.Updates,
		ActiveCount:   r.ActiveCount,
		OverCapacity:  r.OverCapacity,
		Error:         r.Error,
	}
	if r.FinishedAt != nil {
		resp.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
