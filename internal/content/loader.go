// Package content reads a content root into validated tenant config,
// projects and status updates.
//
// Projects are strict: any invalid record, duplicate id or slug, taxonomy
// violation or dangling related_projects entry fails the load. Updates are
// lenient: an invalid update is logged and dropped.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/tenant"
	"github.com/rpggio/roadmap/internal/domain/update"
	"github.com/rpggio/roadmap/internal/frontmatter"
	"github.com/rpggio/roadmap/internal/schema"
	"gopkg.in/yaml.v3"
)

// Content root layout.
const (
	ConfigJSON  = "config.json"
	ConfigYAML  = "config.yaml"
	ProjectsDir = "projects"
	UpdatesDir  = "updates"
	AssetsDir   = "assets"
	StagingDir  = "_staging"
)

// Loader reads records from one content root.
type Loader struct {
	root   string
	logger *slog.Logger
}

// NewLoader creates a loader for root.
func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, logger: logger}
}

// Root returns the content root directory.
func (l *Loader) Root() string {
	return l.root
}

// Path joins elem onto the content root.
func (l *Loader) Path(elem ...string) string {
	return filepath.Join(append([]string{l.root}, elem...)...)
}

// Result is a fully validated content set.
type Result struct {
	Config   *tenant.Config
	Projects []project.Project
	// Updates are sorted newest first.
	Updates []update.StatusUpdate
	// Dropped lists updates excluded for failing validation.
	Dropped []*RecordError
}

// Load reads config, projects and updates. Degraded outcomes are reported
// with ErrNoContent or ErrNoConfig; see IsDegraded.
func (l *Loader) Load() (*Result, error) {
	cfg, err := l.LoadConfig()
	if err != nil {
		return nil, err
	}
	projects, err := l.LoadProjects(cfg)
	if err != nil {
		return nil, err
	}
	updates, dropped, err := l.LoadUpdates()
	if err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Projects: projects, Updates: updates, Dropped: dropped}, nil
}

// LoadConfig reads config.json, falling back to config.yaml.
func (l *Loader) LoadConfig() (*tenant.Config, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, l.root)
		}
		return nil, fmt.Errorf("failed to stat content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoContent, l.root)
	}

	var raw map[string]any
	file, data, err := l.readConfigFile()
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(file) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, file, err)
	}

	cfg, err := tenant.Parse(raw)
	if err != nil {
		return nil, &RecordError{Kind: schema.KindConfig, File: file, Err: fmt.Errorf("%w: %w", ErrConfig, err)}
	}
	return cfg, nil
}

func (l *Loader) readConfigFile() (string, []byte, error) {
	for _, name := range []string{ConfigJSON, ConfigYAML} {
		data, err := os.ReadFile(l.Path(name))
		if err == nil {
			return name, data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return name, nil, fmt.Errorf("%w: read %s: %w", ErrConfig, name, err)
		}
	}
	return "", nil, fmt.Errorf("%w: expected %s or %s in %s", ErrNoConfig, ConfigJSON, ConfigYAML, l.root)
}

// LoadProjects reads every project record and stops at the first failure.
func (l *Loader) LoadProjects(cfg *tenant.Config) ([]project.Project, error) {
	projects, failures, err := l.loadProjects(cfg, false)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, failures[0]
	}
	return projects, nil
}

// loadProjects runs both passes. With collect set it keeps going after a
// bad record and returns every failure; otherwise it returns after the first.
func (l *Loader) loadProjects(cfg *tenant.Config, collect bool) ([]project.Project, []*RecordError, error) {
	files, err := listRecords(l.Path(ProjectsDir))
	if err != nil {
		return nil, nil, err
	}

	var (
		projects []project.Project
		failures []*RecordError
		sources  []string
		byID     = map[string]int{}
		bySlug   = map[string]string{}
	)
	// Every id read from a record, accepted or not. References are checked
	// against it so a rejected record is reported once, not again as a
	// dangling reference from its neighbours.
	known := map[string]int{}
	fail := func(file, id string, err error) bool {
		failures = append(failures, &RecordError{Kind: schema.KindProject, File: file, ID: id, Err: err})
		return !collect
	}

	for _, file := range files {
		rel := filepath.Join(ProjectsDir, filepath.Base(file))
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		raw, body, err := frontmatter.Parse(content)
		if err != nil {
			if fail(rel, "", fmt.Errorf("%w: %w", ErrInvalidRecord, err)) {
				return nil, failures, nil
			}
			continue
		}
		id, _ := raw["id"].(string)
		if id != "" {
			known[id]++
		}
		p, err := project.Parse(raw)
		if err != nil {
			if fail(rel, id, fmt.Errorf("%w: %w", ErrInvalidRecord, err)) {
				return nil, failures, nil
			}
			continue
		}
		p.Body = body

		if first, dup := byID[p.ID]; dup {
			err := fmt.Errorf("%w: %w", ErrDuplicateID, violation(schema.KindProject, "id", schema.RuleUnique,
				"%s is already defined in %s", p.ID, sources[first]))
			if fail(rel, p.ID, err) {
				return nil, failures, nil
			}
			continue
		}
		if owner, dup := bySlug[p.Slug]; dup {
			err := fmt.Errorf("%w: %w", ErrDuplicateSlug, violation(schema.KindProject, "slug", schema.RuleUnique,
				"%q is already used by %s", p.Slug, owner))
			if fail(rel, p.ID, err) {
				return nil, failures, nil
			}
			continue
		}
		if err := checkTaxonomy(p, cfg); err != nil {
			if fail(rel, p.ID, err) {
				return nil, failures, nil
			}
			continue
		}

		byID[p.ID] = len(projects)
		bySlug[p.Slug] = p.ID
		projects = append(projects, *p)
		sources = append(sources, rel)
	}

	// Second pass: the id index is complete, so forward references resolve.
	for i, p := range projects {
		if err := checkReferences(p, known); err != nil {
			if fail(sources[i], p.ID, err) {
				return nil, failures, nil
			}
		}
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return projects, failures, nil
}

// LoadUpdates reads every update record, dropping the invalid ones.
func (l *Loader) LoadUpdates() ([]update.StatusUpdate, []*RecordError, error) {
	files, err := listRecords(l.Path(UpdatesDir))
	if err != nil {
		return nil, nil, err
	}
	updates := []update.StatusUpdate{}
	var dropped []*RecordError
	for _, file := range files {
		rel := filepath.Join(UpdatesDir, filepath.Base(file))
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		u, rerr := parseUpdate(rel, content)
		if rerr != nil {
			l.logger.Warn("dropping invalid update",
				"file", rel,
				"id", rerr.ID,
				"error", rerr.Err,
			)
			dropped = append(dropped, rerr)
			continue
		}
		updates = append(updates, *u)
	}
	update.SortNewestFirst(updates)
	return updates, dropped, nil
}

func parseUpdate(rel string, content []byte) (*update.StatusUpdate, *RecordError) {
	raw, body, err := frontmatter.Parse(content)
	if err != nil {
		return nil, &RecordError{Kind: schema.KindUpdate, File: rel, Err: fmt.Errorf("%w: %w", ErrInvalidRecord, err)}
	}
	id, _ := raw["id"].(string)
	u, err := update.Parse(raw)
	if err != nil {
		return nil, &RecordError{Kind: schema.KindUpdate, File: rel, ID: id, Err: fmt.Errorf("%w: %w", ErrInvalidRecord, err)}
	}
	u.Body = body
	return u, nil
}

// listRecords returns the *.md files in dir in lexical order. A missing
// directory holds no records.
func listRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
