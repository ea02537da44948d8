// Package engine runs the governance pipeline over a content root:
// load, resolve status, measure capacity, score, assemble and publish.
//
// Every operation takes the run lock first, so at most one operation
// touches a content root at a time, within this process or across
// processes sharing the root.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/capacity"
	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/lifecycle"
	"github.com/rpggio/roadmap/internal/promote"
	"github.com/rpggio/roadmap/internal/scoring"
	"github.com/rpggio/roadmap/internal/snapshot"
)

// Engine owns one content root and one public output directory.
type Engine struct {
	loader    *content.Loader
	publicDir string
	runs      *run.Service
	activity  *activity.Service
	ledger    promote.Ledger
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for build timestamps and the
// default reference date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunLedger records runs and their activity.
func WithRunLedger(runs *run.Service, act *activity.Service) Option {
	return func(e *Engine) {
		e.runs = runs
		e.activity = act
	}
}

// WithIDLedger enables promotion.
func WithIDLedger(l promote.Ledger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// New creates an engine.
func New(contentDir, publicDir string, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		loader:    content.NewLoader(contentDir, logger),
		publicDir: publicDir,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ContentDir returns the content root.
func (e *Engine) ContentDir() string {
	return e.loader.Root()
}

// PublicDir returns the output directory.
func (e *Engine) PublicDir() string {
	return e.publicDir
}

// ReferenceDate returns ref, or today's UTC date when ref is zero.
func (e *Engine) ReferenceDate(ref calendar.Date) calendar.Date {
	if !ref.IsZero() {
		return ref
	}
	return calendar.Of(e.now())
}

// Result describes one build.
type Result struct {
	RunID         string                 `json:"run_id,omitempty"`
	ReferenceDate calendar.Date          `json:"reference_date"`
	Skipped       bool                   `json:"skipped"`
	Reason        string                 `json:"reason,omitempty"`
	Path          string                 `json:"path,omitempty"`
	Assets        int                    `json:"assets"`
	Snapshot      *snapshot.Snapshot     `json:"-"`
	Transitions   []lifecycle.Transition `json:"transitions"`
	Dropped       []*content.RecordError `json:"-"`
}

// Run builds and publishes a snapshot. A missing content root or config
// yields a skipped result and no error. On any other failure nothing is
// published and the previous snapshot stays in place.
func (e *Engine) Run(ctx context.Context, ref calendar.Date) (*Result, error) {
	ref = e.ReferenceDate(ref)
	res := &Result{ReferenceDate: ref, Transitions: []lifecycle.Transition{}}

	release, err := e.acquire()
	if err != nil {
		if content.IsDegraded(err) {
			return e.skip(ctx, run.KindBuild, res, err), nil
		}
		return nil, err
	}
	defer release()

	rec := e.startRun(ctx, run.KindBuild, ref)
	res.RunID = rec.id()

	cfg, err := e.loader.LoadConfig()
	if err != nil {
		if content.IsDegraded(err) {
			e.logger.Info("nothing to build", "reason", err)
			res.Skipped, res.Reason = true, err.Error()
			e.finishRun(ctx, rec, run.Outcome{Status: run.StatusSkipped})
			return res, nil
		}
		return nil, e.fail(ctx, rec, "", err)
	}

	projects, err := e.loader.LoadProjects(cfg)
	if err != nil {
		return nil, e.fail(ctx, rec, cfg.TenantID, err)
	}

	resolved, transitions := lifecycle.ResolveAll(projects, ref)
	for _, t := range transitions {
		e.logger.Info("status resolved", "project", t.ProjectID, "from", t.From, "to", t.To)
	}
	res.Transitions = append(res.Transitions, transitions...)

	load := capacity.Compute(resolved, cfg)
	if load.OverCapacity {
		e.logger.Warn("over capacity", "active", load.ActiveCount, "max", load.MaxConcurrent)
	}

	for i := range resolved {
		resolved[i] = scoring.Apply(resolved[i])
	}

	updates, dropped, err := e.loader.LoadUpdates()
	if err != nil {
		return nil, e.fail(ctx, rec, cfg.TenantID, err)
	}
	res.Dropped = dropped

	if err := ctx.Err(); err != nil {
		return nil, e.fail(ctx, rec, cfg.TenantID, err)
	}

	snap := snapshot.Assemble(cfg, resolved, updates, e.now())
	res.Snapshot = snap

	assets, err := snapshot.CopyAssets(e.loader.Path(content.AssetsDir), filepath.Join(e.publicDir, content.AssetsDir))
	if err != nil {
		return nil, e.fail(ctx, rec, cfg.TenantID, err)
	}
	res.Assets = assets

	path, err := snapshot.Publish(e.publicDir, snap)
	if err != nil {
		return nil, e.fail(ctx, rec, cfg.TenantID, err)
	}
	res.Path = path

	e.logger.Info("snapshot published",
		"path", path,
		"projects", len(snap.Projects),
		"updates", len(snap.Updates),
		"active", load.ActiveCount,
		"dropped", len(dropped),
		"assets", assets,
	)

	e.recordTransitions(ctx, rec, cfg.TenantID, transitions)
	if load.OverCapacity {
		e.recordActivity(ctx, rec, cfg.TenantID, activity.TypeCapacityWarning, "",
			fmt.Sprintf("%d active projects exceed the limit of %d", load.ActiveCount, load.MaxConcurrent), load)
	}
	for _, d := range dropped {
		e.recordActivity(ctx, rec, cfg.TenantID, activity.TypeRecordDropped, "", d.Error(),
			map[string]any{"file": d.File, "id": d.ID, "violations": d.Violations()})
	}
	e.finishRun(ctx, rec, run.Outcome{
		Status:       run.StatusSucceeded,
		TenantID:     cfg.TenantID,
		Projects:     len(snap.Projects),
		Updates:      len(snap.Updates),
		ActiveCount:  load.ActiveCount,
		OverCapacity: load.OverCapacity,
	})
	return res, nil
}

// Validate checks every record without publishing anything.
func (e *Engine) Validate(ctx context.Context) (*content.Report, error) {
	release, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return e.loader.Validate()
}

// Midnight persists Queued -> Active transitions into the project files
// and reports projects that have run past their planned end.
func (e *Engine) Midnight(ctx context.Context, ref calendar.Date) (*lifecycle.SweepReport, error) {
	ref = e.ReferenceDate(ref)
	release, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rec := e.startRun(ctx, run.KindMidnight, ref)
	tenantID := e.TenantID()
	report, err := lifecycle.Sweep(e.loader.Path(content.ProjectsDir), ref)
	if err != nil {
		return nil, e.fail(ctx, rec, tenantID, err)
	}
	if report.Missing {
		e.logger.Info("no projects directory", "dir", e.loader.Path(content.ProjectsDir))
		e.finishRun(ctx, rec, run.Outcome{Status: run.StatusSkipped, TenantID: tenantID})
		return &report, nil
	}
	for _, t := range report.Activated {
		e.logger.Info("project activated", "project", t.ProjectID, "title", t.Title)
	}
	for _, t := range report.Flagged {
		e.logger.Warn("project overdue", "project", t.ProjectID, "title", t.Title)
	}
	e.recordTransitions(ctx, rec, tenantID, report.Activated)
	e.recordTransitions(ctx, rec, tenantID, report.Flagged)
	e.finishRun(ctx, rec, run.Outcome{Status: run.StatusSucceeded, TenantID: tenantID, Projects: report.Scanned})
	return &report, nil
}

// Capacity resolves statuses for ref and reports how many projects are
// active against the configured limit. It records nothing.
func (e *Engine) Capacity(ctx context.Context, ref calendar.Date) (capacity.Capacity, error) {
	ref = e.ReferenceDate(ref)
	release, err := e.acquire()
	if err != nil {
		return capacity.Capacity{}, err
	}
	defer release()

	cfg, err := e.loader.LoadConfig()
	if err != nil {
		return capacity.Capacity{}, err
	}
	projects, err := e.loader.LoadProjects(cfg)
	if err != nil {
		return capacity.Capacity{}, err
	}
	resolved, _ := lifecycle.ResolveAll(projects, ref)
	return capacity.Compute(resolved, cfg), nil
}

// Recommend resolves statuses for ref and suggests the next backlog
// project when there is capacity. Nothing is written to content.
func (e *Engine) Recommend(ctx context.Context, ref calendar.Date) (*capacity.Recommendation, error) {
	ref = e.ReferenceDate(ref)
	release, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := e.loader.LoadConfig()
	if err != nil {
		return nil, err
	}
	projects, err := e.loader.LoadProjects(cfg)
	if err != nil {
		return nil, err
	}
	resolved, _ := lifecycle.ResolveAll(projects, ref)
	rec := capacity.Recommend(resolved, cfg)

	r := e.startRun(ctx, run.KindQueue, ref)
	switch {
	case rec.AtCapacity():
		e.logger.Info("at capacity", "active", rec.Capacity.ActiveCount, "max", rec.Capacity.MaxConcurrent)
	case rec.Candidate == nil:
		e.logger.Info("backlog empty", "active", rec.Capacity.ActiveCount, "max", rec.Capacity.MaxConcurrent)
	default:
		e.logger.Info("recommend next project",
			"project", rec.Candidate.ID,
			"title", rec.Candidate.Title,
			"strategic_value", rec.Candidate.Scores.StrategicValue,
			"slots", rec.Capacity.Remaining(),
		)
		e.recordActivity(ctx, r, cfg.TenantID, activity.TypeRecommendation, rec.Candidate.ID,
			fmt.Sprintf("recommend %s (%s)", rec.Candidate.ID, rec.Candidate.Title), rec.Capacity)
	}
	e.finishRun(ctx, r, run.Outcome{
		Status:       run.StatusSucceeded,
		TenantID:     cfg.TenantID,
		Projects:     len(resolved),
		ActiveCount:  rec.Capacity.ActiveCount,
		OverCapacity: rec.Capacity.ActiveCount > rec.Capacity.MaxConcurrent,
	})
	return &rec, nil
}

// Promote moves staging drafts into projects with permanent ids.
func (e *Engine) Promote(ctx context.Context) (*promote.Report, error) {
	if e.ledger == nil {
		return nil, promote.ErrNoLedger
	}
	release, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ref := e.ReferenceDate(calendar.Date{})
	rec := e.startRun(ctx, run.KindPromote, ref)
	tenantID := e.TenantID()

	p := promote.New(e.loader.Root(), content.ProjectsDir, content.StagingDir, e.ledger, e.logger)
	report, err := p.Run(ctx)
	if report != nil {
		for _, pr := range report.Promoted {
			e.recordActivity(ctx, rec, tenantID, activity.TypeProjectPromoted, pr.ID,
				fmt.Sprintf("%s promoted to %s", pr.Draft, pr.ID), pr)
		}
	}
	if err != nil {
		return report, e.fail(ctx, rec, tenantID, err)
	}
	status := run.StatusSucceeded
	if report.Missing {
		status = run.StatusSkipped
	}
	e.finishRun(ctx, rec, run.Outcome{Status: status, TenantID: tenantID, Projects: len(report.Promoted)})
	return report, nil
}

// acquire takes the in-process mutex and the lock file. A missing content
// root is reported as content.ErrNoContent.
func (e *Engine) acquire() (func(), error) {
	info, err := os.Stat(e.loader.Root())
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", content.ErrNoContent, e.loader.Root())
	}
	e.mu.Lock()
	unlock, err := acquireFileLock(e.loader.Root(), e.now())
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	return func() {
		unlock()
		e.mu.Unlock()
	}, nil
}

// TenantID reads the tenant id of the content root; it is empty when the
// config cannot be loaded.
func (e *Engine) TenantID() string {
	cfg, err := e.loader.LoadConfig()
	if err != nil {
		return ""
	}
	return cfg.TenantID
}

func (e *Engine) skip(ctx context.Context, kind run.Kind, res *Result, reason error) *Result {
	e.logger.Info("nothing to build", "reason", reason)
	res.Skipped, res.Reason = true, reason.Error()
	rec := e.startRun(ctx, kind, res.ReferenceDate)
	res.RunID = rec.id()
	e.finishRun(ctx, rec, run.Outcome{Status: run.StatusSkipped})
	return res
}

func (e *Engine) fail(ctx context.Context, rec *runRecord, tenantID string, err error) error {
	e.logger.Error("run failed", "error", err)
	var rerr *content.RecordError
	if errors.As(err, &rerr) {
		for _, v := range rerr.Violations() {
			e.logger.Error("violation", "file", rerr.File, "id", rerr.ID, "path", v.Path, "rule", v.Rule, "message", v.Message)
		}
	}
	e.finishRun(ctx, rec, run.Outcome{Status: run.StatusFailed, TenantID: tenantID, Err: err})
	return err
}
