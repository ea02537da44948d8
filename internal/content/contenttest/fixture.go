// Package contenttest builds content roots on disk for tests.
package contenttest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Fixture is a content root under a test temp dir.
type Fixture struct {
	t    testing.TB
	Root string
}

// New returns an empty fixture. The root directory exists; nothing is in it.
func New(t testing.TB) *Fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "content")
	require.NoError(t, os.MkdirAll(root, 0o755))
	return &Fixture{t: t, Root: root}
}

// Path joins rel onto the root.
func (f *Fixture) Path(rel ...string) string {
	return filepath.Join(append([]string{f.Root}, rel...)...)
}

// Write creates a file relative to the root.
func (f *Fixture) Write(rel string, data []byte) string {
	f.t.Helper()
	path := f.Path(rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, data, 0o644))
	return path
}

// Config writes config.json.
func (f *Fixture) Config(cfg map[string]any) {
	f.t.Helper()
	data, err := json.MarshalIndent(cfg, "", "\t")
	require.NoError(f.t, err)
	f.Write("config.json", data)
}

// Project writes projects/<id>.md from meta.
func (f *Fixture) Project(meta map[string]any, body string) string {
	f.t.Helper()
	return f.Write(filepath.Join("projects", meta["id"].(string)+".md"), Markdown(f.t, meta, body))
}

// Update writes updates/<name>.md from meta.
func (f *Fixture) Update(name string, meta map[string]any, body string) string {
	f.t.Helper()
	return f.Write(filepath.Join("updates", name+".md"), Markdown(f.t, meta, body))
}

// Staging writes _staging/<name>.md from meta.
func (f *Fixture) Staging(name string, meta map[string]any, body string) string {
	f.t.Helper()
	return f.Write(filepath.Join("_staging", name+".md"), Markdown(f.t, meta, body))
}

// Markdown renders meta as a front-matter block followed by body.
func Markdown(t testing.TB, meta map[string]any, body string) []byte {
	t.Helper()
	data, err := yaml.Marshal(meta)
	require.NoError(t, err)
	return []byte("---\n" + string(data) + "---\n" + body)
}

// DefaultConfig is a valid tenant configuration with no taxonomy limits.
func DefaultConfig() map[string]any {
	return map[string]any{
		"tenant_id": "acme",
		"meta": map[string]any{
			"title":       "Acme Roadmap",
			"logo_url":    "/assets/logo.svg",
			"favicon_url": "/assets/favicon.ico",
		},
		"modules": map[string]any{
			"enable_matrix": true,
			"enable_gantt":  true,
			"enable_blog":   false,
		},
		"governance": map[string]any{
			"fiscal_year_start":       "01-01",
			"max_concurrent_projects": 5,
			"phases":                  []any{},
		},
	}
}

// ProjectRecord is a valid Backlog project.
func ProjectRecord(id string) map[string]any {
	return map[string]any{
		"id":         id,
		"title":      "Project " + id,
		"slug":       strings.ToLower(id),
		"owner":      "Dana",
		"department": "Engineering",
		"phase":      "Discovery",
		"status":     "Backlog",
		"dates": map[string]any{
			"planned_start": "2025-01-01",
			"planned_end":   "2025-12-31",
		},
		"scores": map[string]any{
			"strategic_value": 5,
			"complexity":      5,
			"confidence":      0.5,
		},
		"financials": map[string]any{
			"estimated_cost": 10000,
			"projected_roi":  1.5,
			"currency":       "USD",
		},
		"tags":             []any{"platform"},
		"related_projects": []any{},
	}
}

// UpdateRecord is a valid weekly update.
func UpdateRecord(id, date string) map[string]any {
	return map[string]any{
		"id":                 id,
		"date":               date,
		"author":             "Lee",
		"type":               "Weekly",
		"highlight_projects": []any{},
		"sentiment":          "On Track",
	}
}

// Set assigns value at a dotted path such as "dates.planned_start",
// creating intermediate objects.
func Set(record map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	m := record
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
}

// Delete removes the key at a dotted path.
func Delete(record map[string]any, path string) {
	keys := strings.Split(path, ".")
	m := record
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, keys[len(keys)-1])
}
