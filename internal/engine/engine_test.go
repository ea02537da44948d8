package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/content/contenttest"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/frontmatter"
	"github.com/rpggio/roadmap/internal/promote"
	"github.com/rpggio/roadmap/internal/snapshot"
	"github.com/rpggio/roadmap/internal/sqlite"
	"github.com/stretchr/testify/require"
)

var (
	ref   = calendar.MustParse("2025-06-01")
	clock = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
)

func readSnapshot(t *testing.T, dir string) *snapshot.Snapshot {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, snapshot.FileName))
	require.NoError(t, err)
	var s snapshot.Snapshot
	require.NoError(t, json.Unmarshal(data, &s))
	return &s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, f *contenttest.Fixture, opts ...Option) (*Engine, string) {
	t.Helper()
	public := filepath.Join(t.TempDir(), "public")
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(f.Root, public, quietLogger(), opts...), public
}

func newLedgerDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db
}

func withLedger(t *testing.T, db *sqlite.DB) Option {
	t.Helper()
	logger := quietLogger()
	return WithRunLedger(
		run.NewService(sqlite.NewRunRepository(db), logger, run.WithClock(clock)),
		activity.NewService(sqlite.NewActivityRepository(db), logger),
	)
}

func baseFixture(t *testing.T) *contenttest.Fixture {
	t.Helper()
	f := contenttest.New(t)
	f.Config(contenttest.DefaultConfig())
	return f
}

func projectByID(t *testing.T, s *snapshot.Snapshot, id string) project.Project {
	t.Helper()
	for _, p := range s.Projects {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("project %s not in snapshot", id)
	return project.Project{}
}

func TestRun_QueuedBecomesActive(t *testing.T) {
	f := baseFixture(t)
	p := contenttest.ProjectRecord("PRJ-001")
	p["status"] = "Queued"
	contenttest.Set(p, "dates.planned_start", "2025-01-01")
	f.Project(p, "")

	e, _ := newEngine(t, f)
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, project.StatusActive, projectByID(t, res.Snapshot, "PRJ-001").Status)
	require.Len(t, res.Transitions, 1)
}

func TestRun_ActiveBecomesOverdue(t *testing.T) {
	f := baseFixture(t)
	p := contenttest.ProjectRecord("PRJ-001")
	p["status"] = "Active"
	contenttest.Set(p, "dates.planned_start", "2024-06-01")
	contenttest.Set(p, "dates.planned_end", "2025-01-01")
	f.Project(p, "")

	e, _ := newEngine(t, f)
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, project.StatusOverdue, projectByID(t, res.Snapshot, "PRJ-001").Status)
	require.Equal(t, 0, res.Snapshot.Capacity.ActiveCount)
}

func TestRun_Matrix(t *testing.T) {
	f := baseFixture(t)
	p := contenttest.ProjectRecord("PRJ-001")
	contenttest.Set(p, "scores.strategic_value", 8)
	contenttest.Set(p, "scores.complexity", 2)
	f.Project(p, "")

	e, _ := newEngine(t, f)
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	got := projectByID(t, res.Snapshot, "PRJ-001")
	require.Equal(t, &project.Matrix{ImpactNormalized: 80, EffortNormalized: 20, Quadrant: project.QuadrantQuickWins}, got.Matrix)
}

func TestRun_DanglingReferenceWritesNothing(t *testing.T) {
	f := baseFixture(t)
	f.Write("assets/logo.svg", []byte("<svg/>"))
	p := contenttest.ProjectRecord("PRJ-001")
	p["related_projects"] = []any{"PRJ-404"}
	f.Project(p, "")

	e, public := newEngine(t, f)
	_, err := e.Run(context.Background(), ref)
	require.ErrorIs(t, err, content.ErrDanglingReference)

	_, statErr := os.Stat(filepath.Join(public, snapshot.FileName))
	require.True(t, os.IsNotExist(statErr), "no snapshot after a failed run")
}

func TestRun_FailureKeepsPreviousSnapshot(t *testing.T) {
	f := baseFixture(t)
	f.Project(contenttest.ProjectRecord("PRJ-001"), "")
	e, public := newEngine(t, f)
	_, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(public, snapshot.FileName))
	require.NoError(t, err)

	dup := contenttest.ProjectRecord("PRJ-001")
	dup["slug"] = "dup"
	f.Write("projects/PRJ-002.md", contenttest.Markdown(t, dup, ""))
	_, err = e.Run(context.Background(), ref)
	require.ErrorIs(t, err, content.ErrDuplicateID)

	after, err := os.ReadFile(filepath.Join(public, snapshot.FileName))
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestRun_OverCapacity(t *testing.T) {
	f := baseFixture(t)
	for i := 1; i <= 6; i++ {
		p := contenttest.ProjectRecord(promote.FormatID(i))
		p["status"] = "Active"
		f.Project(p, "")
	}

	e, _ := newEngine(t, f)
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, res.Snapshot.Capacity.OverCapacity)
	require.Equal(t, 6, res.Snapshot.Capacity.ActiveCount)
	require.Equal(t, 5, res.Snapshot.Capacity.MaxConcurrent)
}

func TestRun_Idempotent(t *testing.T) {
	f := baseFixture(t)
	a := contenttest.ProjectRecord("PRJ-001")
	a["status"] = "Queued"
	a["related_projects"] = []any{"PRJ-002"}
	f.Project(a, "Body A")
	f.Project(contenttest.ProjectRecord("PRJ-002"), "Body B")
	f.Update("u1", contenttest.UpdateRecord("u1", "2025-05-01"), "one")
	f.Update("u2", contenttest.UpdateRecord("u2", "2025-05-01"), "two")

	tick := 0
	e, public := newEngine(t, f, WithClock(func() time.Time {
		tick++
		return clock().Add(time.Duration(tick) * time.Minute)
	}))

	_, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	first := readSnapshot(t, public)

	_, err = e.Run(context.Background(), ref)
	require.NoError(t, err)
	second := readSnapshot(t, public)

	require.NotEqual(t, first.BuiltAt, second.BuiltAt)
	first.BuiltAt, second.BuiltAt = time.Time{}, time.Time{}
	require.Equal(t, first, second)
	require.Equal(t, "u1", second.Updates[0].ID, "equal dates keep load order")
}

func TestRun_PublishesAssetsAndUpdates(t *testing.T) {
	f := baseFixture(t)
	f.Project(contenttest.ProjectRecord("PRJ-001"), "")
	f.Write("assets/img/logo.png", []byte{1, 2, 3})
	f.Update("ok", contenttest.UpdateRecord("u-ok", "2025-05-01"), "")
	bad := contenttest.UpdateRecord("u-bad", "2025-05-02")
	delete(bad, "author")
	f.Update("bad", bad, "")

	e, public := newEngine(t, f)
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, 1, res.Assets)
	require.Len(t, res.Dropped, 1)
	require.Len(t, res.Snapshot.Updates, 1)

	data, err := os.ReadFile(filepath.Join(public, "assets", "img", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestRun_Degraded(t *testing.T) {
	missing := &contenttest.Fixture{Root: filepath.Join(t.TempDir(), "nope")}
	e, public := newEngine(t, missing)
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, res.Skipped)

	noConfig := contenttest.New(t)
	e, public = newEngine(t, noConfig)
	res, err = e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, res.Skipped)
	_, statErr := os.Stat(filepath.Join(public, snapshot.FileName))
	require.True(t, os.IsNotExist(statErr))
}

func TestRun_DefaultReferenceDateFromClock(t *testing.T) {
	f := baseFixture(t)
	f.Project(contenttest.ProjectRecord("PRJ-001"), "")
	e, _ := newEngine(t, f)
	res, err := e.Run(context.Background(), calendar.Date{})
	require.NoError(t, err)
	require.Equal(t, "2025-06-01", res.ReferenceDate.String())
}

func TestRun_Locked(t *testing.T) {
	f := baseFixture(t)
	f.Write(LockFile, []byte("123 2025-06-01T08:59:00Z\n"))
	now := time.Now()
	require.NoError(t, os.Chtimes(f.Path(LockFile), now, now))

	e, _ := newEngine(t, f, WithClock(func() time.Time { return now }))
	_, err := e.Run(context.Background(), ref)
	require.ErrorIs(t, err, ErrLocked)
}

func TestRun_StaleLockIsReclaimed(t *testing.T) {
	f := baseFixture(t)
	f.Project(contenttest.ProjectRecord("PRJ-001"), "")
	f.Write(LockFile, []byte("123\n"))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(f.Path(LockFile), old, old))

	e, _ := newEngine(t, f, WithClock(time.Now))
	_, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	_, statErr := os.Stat(f.Path(LockFile))
	require.True(t, os.IsNotExist(statErr), "lock released after run")
}

func TestRun_RecordsLedger(t *testing.T) {
	f := baseFixture(t)
	for i := 1; i <= 6; i++ {
		p := contenttest.ProjectRecord(promote.FormatID(i))
		p["status"] = "Queued"
		f.Project(p, "")
	}
	bad := contenttest.UpdateRecord("u-bad", "2025-05-02")
	bad["type"] = "Daily"
	f.Update("bad", bad, "")

	db := newLedgerDB(t)
	e, _ := newEngine(t, f, withLedger(t, db))
	res, err := e.Run(context.Background(), ref)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	r, err := sqlite.NewRunRepository(db).Get(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Equal(t, run.StatusSucceeded, r.Status)
	require.Equal(t, "acme", r.TenantID)
	require.Equal(t, 6, r.ActiveCount)
	require.True(t, r.OverCapacity)

	entries, err := sqlite.NewActivityRepository(db).List(context.Background(), "acme", activity.ListActivityOptions{RunID: &res.RunID})
	require.NoError(t, err)
	counts := map[activity.ActivityType]int{}
	for _, entry := range entries {
		counts[entry.ActivityType]++
	}
	require.Equal(t, map[activity.ActivityType]int{
		activity.TypeStatusResolved:  6,
		activity.TypeCapacityWarning: 1,
		activity.TypeRecordDropped:   1,
	}, counts)
}

func TestRun_RecordsFailure(t *testing.T) {
	f := baseFixture(t)
	bad := contenttest.ProjectRecord("PRJ-001")
	delete(bad, "owner")
	f.Project(bad, "")

	db := newLedgerDB(t)
	e, _ := newEngine(t, f, withLedger(t, db))
	_, err := e.Run(context.Background(), ref)
	require.ErrorIs(t, err, content.ErrInvalidRecord)

	runs, err := sqlite.NewRunRepository(db).List(context.Background(), run.ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.StatusFailed, runs[0].Status)
	require.Contains(t, runs[0].Error, "owner")
}

func TestMidnight(t *testing.T) {
	f := baseFixture(t)
	q := contenttest.ProjectRecord("PRJ-001")
	q["status"] = "Queued"
	f.Project(q, "")
	late := contenttest.ProjectRecord("PRJ-002")
	late["status"] = "Active"
	contenttest.Set(late, "dates.planned_end", "2025-02-01")
	f.Project(late, "")

	db := newLedgerDB(t)
	e, _ := newEngine(t, f, withLedger(t, db))
	report, err := e.Midnight(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, report.Activated, 1)
	require.Len(t, report.Flagged, 1)

	data, err := os.ReadFile(f.Path("projects", "PRJ-001.md"))
	require.NoError(t, err)
	meta, _, err := frontmatter.Parse(data)
	require.NoError(t, err)
	require.Equal(t, "Active", meta["status"])

	// The rewritten file still passes a full build.
	_, err = e.Run(context.Background(), ref)
	require.NoError(t, err)

	runs, err := sqlite.NewRunRepository(db).List(context.Background(), run.ListOptions{Kind: run.KindMidnight})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "acme", runs[0].TenantID)
}

func TestRecommend(t *testing.T) {
	f := baseFixture(t)
	low := contenttest.ProjectRecord("PRJ-001")
	contenttest.Set(low, "scores.strategic_value", 3)
	f.Project(low, "")
	high := contenttest.ProjectRecord("PRJ-002")
	contenttest.Set(high, "scores.strategic_value", 9)
	f.Project(high, "")

	e, _ := newEngine(t, f)
	rec, err := e.Recommend(context.Background(), ref)
	require.NoError(t, err)
	require.NotNil(t, rec.Candidate)
	require.Equal(t, "PRJ-002", rec.Candidate.ID)
	require.Equal(t, 5, rec.Capacity.Remaining())
}

func TestCapacity(t *testing.T) {
	f := baseFixture(t)
	for _, id := range []string{"PRJ-001", "PRJ-002"} {
		p := contenttest.ProjectRecord(id)
		p["status"] = "Queued"
		f.Project(p, "")
	}
	f.Project(contenttest.ProjectRecord("PRJ-003"), "")

	e, public := newEngine(t, f)
	load, err := e.Capacity(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, 2, load.ActiveCount)
	require.Equal(t, 5, load.MaxConcurrent)
	require.False(t, load.OverCapacity)

	_, err = os.Stat(filepath.Join(public, snapshot.FileName))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	f := baseFixture(t)
	bad := contenttest.ProjectRecord("PRJ-001")
	bad["status"] = "Overdue"
	f.Project(bad, "")

	e, _ := newEngine(t, f)
	report, err := e.Validate(context.Background())
	require.NoError(t, err)
	require.False(t, report.OK())
}

func TestPromote(t *testing.T) {
	f := baseFixture(t)
	f.Project(contenttest.ProjectRecord("PRJ-001"), "")
	f.Staging("draft", contenttest.ProjectRecord("STG-001"), "")

	db := newLedgerDB(t)
	ledger := sqlite.NewLedgerRepository(db)
	e, _ := newEngine(t, f, withLedger(t, db), WithIDLedger(ledger))
	report, err := e.Promote(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Promoted, 1)
	require.Equal(t, "PRJ-002", report.Promoted[0].ID)

	// Deleting the promoted file must not free its number.
	require.NoError(t, os.Remove(f.Path("projects", "PRJ-002.md")))
	f.Staging("again", contenttest.ProjectRecord("STG-002"), "")
	report, err = e.Promote(context.Background())
	require.NoError(t, err)
	require.Equal(t, "PRJ-003", report.Promoted[0].ID)

	_, err = e.Run(context.Background(), ref)
	require.NoError(t, err)

	typ := activity.TypeProjectPromoted
	entries, err := sqlite.NewActivityRepository(db).List(context.Background(), "acme", activity.ListActivityOptions{ActivityType: &typ})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestPromote_RequiresLedger(t *testing.T) {
	e, _ := newEngine(t, baseFixture(t))
	_, err := e.Promote(context.Background())
	require.ErrorIs(t, err, promote.ErrNoLedger)
}
