package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/run"
)

// Handler implements the MCP tools on top of the domain services.
type Handler struct {
	engine   EngineService
	activity ActivityService
	runs     RunService
	logger   *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   services.Engine,
		activity: services.Activity,
		runs:     services.Runs,
		logger:   logger,
	}
}

// ValidateContent checks every record and reports all failures.
func (h *Handler) ValidateContent(ctx context.Context, _ ValidateContentParams) (ValidateContentResponse, error) {
	report, err := h.engine.Validate(ctx)
	if err != nil {
		return ValidateContentResponse{}, err
	}
	return ValidateContentResponse{
		OK:       report.OK(),
		Projects: len(report.Projects),
		Updates:  len(report.Updates),
		Failures: recordErrorResponses(report.Failures),
		Dropped:  recordErrorResponses(report.Dropped),
	}, nil
}

// BuildSnapshot runs the engine and publishes the snapshot.
func (h *Handler) BuildSnapshot(ctx context.Context, req BuildSnapshotParams) (BuildSnapshotResponse, error) {
	ref, err := h.referenceDate(req.ReferenceDate)
	if err != nil {
		return BuildSnapshotResponse{}, err
	}
	res, err := h.engine.Run(ctx, ref)
	if err != nil {
		return BuildSnapshotResponse{}, err
	}
	resp := BuildSnapshotResponse{
		RunID:         res.RunID,
		ReferenceDate: res.ReferenceDate.String(),
		Skipped:       res.Skipped,
		Reason:        res.Reason,
		Path:          res.Path,
		Assets:        res.Assets,
		Transitions:   transitionResponses(res.Transitions),
		Dropped:       recordErrorResponses(res.Dropped),
	}
	if res.Snapshot != nil {
		resp.Projects = len(res.Snapshot.Projects)
		resp.Updates = len(res.Snapshot.Updates)
		resp.Capacity = capacityResponse(res.Snapshot.Capacity)
	}
	return resp, nil
}

// CapacityReport reports active projects against the configured limit.
func (h *Handler) CapacityReport(ctx context.Context, req CapacityReportParams) (CapacityReportResponse, error) {
	ref, err := h.referenceDate(req.ReferenceDate)
	if err != nil {
		return CapacityReportResponse{}, err
	}
	load, err := h.engine.Capacity(ctx, ref)
	if err != nil {
		return CapacityReportResponse{}, err
	}
	return CapacityReportResponse{
		ReferenceDate: ref.String(),
		Capacity:      capacityResponse(load),
	}, nil
}

// RecommendNext suggests the next backlog project when there is room.
func (h *Handler) RecommendNext(ctx context.Context, req RecommendNextParams) (RecommendNextResponse, error) {
	ref, err := h.referenceDate(req.ReferenceDate)
	if err != nil {
		return RecommendNextResponse{}, err
	}
	rec, err := h.engine.Recommend(ctx, ref)
	if err != nil {
		return RecommendNextResponse{}, err
	}
	return RecommendNextResponse{
		ReferenceDate: ref.String(),
		Capacity:      capacityResponse(rec.Capacity),
		AtCapacity:    rec.AtCapacity(),
		Candidate:     candidateResponse(rec.Candidate),
	}, nil
}

// RecentActivity lists ledger entries for tenantID, newest first.
func (h *Handler) RecentActivity(ctx context.Context, tenantID string, req RecentActivityParams) (RecentActivityResponse, error) {
	if h.activity == nil {
		return RecentActivityResponse{}, ErrLedgerDisabled
	}
	opts := activity.ListActivityOptions{
		ProjectID: req.ProjectID,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.RunID != "" {
		if h.runs != nil {
			r, err := h.runs.Get(ctx, req.RunID)
			if err != nil {
				return RecentActivityResponse{}, err
			}
			if r.TenantID != "" && r.TenantID != tenantID {
				return RecentActivityResponse{}, run.ErrRunNotFound
			}
		}
		opts.RunID = &req.RunID
	}
	if req.Type != "" {
		typ := activity.ActivityType(req.Type)
		opts.ActivityType = &typ
	}
	entries, err := h.activity.GetRecentActivity(ctx, tenantID, opts)
	if err != nil {
		return RecentActivityResponse{}, err
	}
	resp := RecentActivityResponse{Activity: make([]ActivityResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Activity = append(resp.Activity, activityResponse(e))
	}

	if req.IncludeRuns && h.runs != nil {
		runs, err := h.runs.Recent(ctx, run.ListOptions{TenantID: tenantID, Limit: req.Limit})
		if err != nil {
			return RecentActivityResponse{}, err
		}
		resp.Runs = make([]RunResponse, 0, len(runs))
		for _, r := range runs {
			resp.Runs = append(resp.Runs, runResponse(r))
		}
	}
	return resp, nil
}

// referenceDate parses value, falling back to the engine's today.
func (h *Handler) referenceDate(value string) (calendar.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return h.engine.ReferenceDate(calendar.Date{}), nil
	}
	d, err := calendar.Parse(value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("reference_date: %w", err)
	}
	return d, nil
}
