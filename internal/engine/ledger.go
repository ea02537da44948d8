package engine

import (
	"context"
	"fmt"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/lifecycle"
)

// runRecord is the ledger entry for the current operation. It is nil when
// the ledger is disabled or the run could not be recorded.
type runRecord struct {
	run *run.Run
}

func (r *runRecord) id() string {
	if r == nil || r.run == nil {
		return ""
	}
	return r.run.ID
}

// Ledger failures are logged and never fail the operation itself.

func (e *Engine) startRun(ctx context.Context, kind run.Kind, ref calendar.Date) *runRecord {
	if e.runs == nil {
		return nil
	}
	r, err := e.runs.Start(ctx, kind, ref)
	if err != nil {
		e.logger.Warn("failed to record run start", "kind", kind, "error", err)
		return nil
	}
	return &runRecord{run: r}
}

func (e *Engine) finishRun(ctx context.Context, rec *runRecord, out run.Outcome) {
	if e.runs == nil || rec == nil {
		return
	}
	if err := e.runs.Finish(ctx, rec.run, out); err != nil {
		e.logger.Warn("failed to record run finish", "run_id", rec.id(), "error", err)
	}
}

func (e *Engine) recordActivity(ctx context.Context, rec *runRecord, tenantID string, typ activity.ActivityType, projectID, summary string, details any) {
	if e.activity == nil {
		return
	}
	if err := e.activity.Record(ctx, tenantID, rec.id(), typ, projectID, summary, details); err != nil {
		e.logger.Warn("failed to record activity", "type", typ, "project", projectID, "error", err)
	}
}

func (e *Engine) recordTransitions(ctx context.Context, rec *runRecord, tenantID string, transitions []lifecycle.Transition) {
	for _, t := range transitions {
		e.recordActivity(ctx, rec, tenantID, activity.TypeStatusResolved, t.ProjectID,
			fmt.Sprintf("%s -> %s", t.From, t.To), t)
	}
}
