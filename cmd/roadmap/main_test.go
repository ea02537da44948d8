package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/roadmap/internal/content/contenttest"
	"github.com/rpggio/roadmap/internal/snapshot"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ROADMAP_CONFIG_PATH", "ROADMAP_CONTENT_DIR", "ROADMAP_PUBLIC_DIR",
		"ROADMAP_SERVER_HOST", "ROADMAP_SERVER_PORT", "ROADMAP_TRANSPORT_MODE",
		"ROADMAP_DB_PATH", "ROADMAP_LOG_LEVEL", "ROADMAP_LOG_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	require.NoError(t, a.close())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

type workspace struct {
	fixture *contenttest.Fixture
	public  string
	db      string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	clearEnv(t)
	f := contenttest.New(t)
	f.Config(contenttest.DefaultConfig())
	queued := contenttest.ProjectRecord("PRJ-001")
	queued["status"] = "Queued"
	f.Project(queued, "")
	f.Project(contenttest.ProjectRecord("PRJ-002"), "")
	dir := t.TempDir()
	return workspace{fixture: f, public: filepath.Join(dir, "public"), db: filepath.Join(dir, "state", "roadmap.db")}
}

func (w workspace) args(extra ...string) []string {
	return append([]string{
		"--content", w.fixture.Root,
		"--public", w.public,
		"--db", w.db,
		"--reference-date", "2025-06-01",
	}, extra...)
}

func TestBuild(t *testing.T) {
	w := newWorkspace(t)

	res := execute(t, w.args("build")...)
	require.NoError(t, res.err, res.stderr)
	require.Contains(t, res.stdout, "published")
	require.Contains(t, res.stdout, "PRJ-001 Queued -> Active")
	require.Contains(t, res.stdout, "capacity 1/5")

	data, err := os.ReadFile(filepath.Join(w.public, snapshot.FileName))
	require.NoError(t, err)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Len(t, snap["projects"], 2)
}

func TestBuild_WithoutLedger(t *testing.T) {
	w := newWorkspace(t)

	args := append(w.args("build", "--json"), "--db", "")
	res := execute(t, args...)
	require.NoError(t, res.err, res.stderr)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	require.Equal(t, false, out["skipped"])
	require.NotContains(t, out, "run_id")
	_, err := os.Stat(w.db)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild_MissingContentIsSkipped(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	res := execute(t, "--content", filepath.Join(dir, "nope"), "--public", filepath.Join(dir, "public"), "--db", "", "build")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "skipped")
}

func TestValidate_ReportsEveryFailure(t *testing.T) {
	w := newWorkspace(t)
	bad := contenttest.ProjectRecord("PRJ-003")
	bad["status"] = "Overdue"
	contenttest.Set(bad, "financials.currency", "US")
	w.fixture.Project(bad, "")

	res := execute(t, w.args("validate")...)
	require.ErrorIs(t, res.err, errFailed)
	require.Contains(t, res.stdout, "FAIL projects/PRJ-003.md (PRJ-003)")
	require.Contains(t, res.stdout, "status:")
	require.Contains(t, res.stdout, "financials.currency:")
	require.Contains(t, res.stdout, "2 projects valid, 1 invalid")

	_, err := os.Stat(filepath.Join(w.public, snapshot.FileName))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMidnight(t *testing.T) {
	w := newWorkspace(t)

	res := execute(t, w.args("midnight", "--json")...)
	require.NoError(t, res.err, res.stderr)
	var report struct {
		Scanned   int `json:"scanned"`
		Activated []struct {
			ProjectID string `json:"project_id"`
		} `json:"activated"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	require.Equal(t, 2, report.Scanned)
	require.Len(t, report.Activated, 1)
	require.Equal(t, "PRJ-001", report.Activated[0].ProjectID)

	data, err := os.ReadFile(w.fixture.Path("projects", "PRJ-001.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "status: Active")
}

func TestSmartQueue(t *testing.T) {
	w := newWorkspace(t)

	res := execute(t, w.args("smart-queue")...)
	require.NoError(t, res.err, res.stderr)
	require.Contains(t, res.stdout, "capacity 1/5")
	require.Contains(t, res.stdout, "recommend PRJ-002")
}

func TestPromoteAndHistory(t *testing.T) {
	w := newWorkspace(t)
	w.fixture.Staging("draft", contenttest.ProjectRecord("STG-001"), "")

	res := execute(t, w.args("promote")...)
	require.NoError(t, res.err, res.stderr)
	require.Contains(t, res.stdout, "-> PRJ-003")
	_, err := os.Stat(w.fixture.Path("projects", "PRJ-003.md"))
	require.NoError(t, err)

	res = execute(t, w.args("build")...)
	require.NoError(t, res.err, res.stderr)

	res = execute(t, w.args("history")...)
	require.NoError(t, res.err, res.stderr)
	require.Contains(t, res.stdout, "promote")
	require.Contains(t, res.stdout, "build")
	require.Contains(t, res.stdout, "project_promoted")
	require.Contains(t, res.stdout, "status_resolved")
}

func TestHistory_RequiresLedger(t *testing.T) {
	w := newWorkspace(t)

	args := append(w.args("history"), "--db", "")
	res := execute(t, args...)
	require.ErrorIs(t, res.err, errNoLedger)
}

func TestInvalidReferenceDate(t *testing.T) {
	w := newWorkspace(t)

	args := append(w.args("build"), "--reference-date", "06/01/2025")
	res := execute(t, args...)
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "--reference-date")
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel(""))
}

func TestLogFileWriterKeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "roadmap.log")
	w, file, err := newLogFileWriter(path)
	require.NoError(t, err)
	defer file.Close()
	w.max, w.keep = 100, 60

	for i := 0; i < 20; i++ {
		_, err := w.Write([]byte(strings.Repeat("x", 9) + "\n"))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.LessOrEqual(t, len(data), 100)
	require.True(t, strings.HasSuffix(string(data), "xxxxxxxxx\n"))
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		require.Equal(t, strings.Repeat("x", 9), line)
	}
}
