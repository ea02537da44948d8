// Package snapshot assembles the published JSON document and writes it
// so readers only ever see a complete file.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rpggio/roadmap/internal/capacity"
	"github.com/rpggio/roadmap/internal/domain/project"
	"github.com/rpggio/roadmap/internal/domain/tenant"
	"github.com/rpggio/roadmap/internal/domain/update"
)

// FileName is the snapshot's name inside the public directory.
const FileName = "master_data.json"

// Snapshot is the single output document of a run. Field names are read
// directly by the dashboard.
type Snapshot struct {
	BuiltAt  time.Time             `json:"builtAt"`
	Config   *tenant.Config        `json:"config"`
	Projects []project.Project     `json:"projects"`
	Updates  []update.StatusUpdate `json:"updates"`
	Capacity capacity.Capacity     `json:"capacity"`
}

// Assemble builds a snapshot from resolved, scored projects and sorted
// updates. builtAt is truncated to milliseconds.
func Assemble(cfg *tenant.Config, projects []project.Project, updates []update.StatusUpdate, builtAt time.Time) *Snapshot {
	if projects == nil {
		projects = []project.Project{}
	}
	if updates == nil {
		updates = []update.StatusUpdate{}
	}
	return &Snapshot{
		BuiltAt:  builtAt.UTC().Truncate(time.Millisecond),
		Config:   cfg,
		Projects: projects,
		Updates:  updates,
		Capacity: capacity.Compute(projects, cfg),
	}
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Publish writes s to dir/FileName through a temporary file in the same
// directory and renames it into place.
func Publish(dir string, s *Snapshot) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".master_data-*.json")
	if err != nil {
		return "", fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, s); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("snapshot: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("snapshot: close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("snapshot: chmod: %w", err)
	}
	path = filepath.Join(dir, FileName)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("snapshot: publish: %w", err)
	}
	return path, nil
}
