// Package promote turns staging drafts into permanent project records.
//
// Each draft in _staging/ receives the next PRJ-nnn number, is written to
// projects/PRJ-nnn.md with its id rewritten, and is then removed from
// staging. Numbers come from the larger of the highest project file on
// disk and the highest number in the ID ledger, so a deleted project's
// number is never handed out again.
package promote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rpggio/roadmap/internal/frontmatter"
)

// Prefix is the permanent project id prefix.
const Prefix = "PRJ"

var (
	// ErrNoLedger indicates promotion was attempted without an ID ledger.
	ErrNoLedger = errors.New("promote: id ledger required")
	// ErrTargetExists indicates the destination project file already exists.
	ErrTargetExists = errors.New("promote: target project file exists")
)

var projectFile = regexp.MustCompile(`^` + Prefix + `-(\d+)\.md$`)

// Ledger records issued project numbers.
type Ledger interface {
	Highest(ctx context.Context, prefix string) (int, error)
	Issue(ctx context.Context, prefix string, number int, source string) error
}

// Promotion describes one promoted draft.
type Promotion struct {
	Draft     string `json:"draft"`
	StagingID string `json:"staging_id,omitempty"`
	ID        string `json:"id"`
	File      string `json:"file"`
}

// Skipped describes a draft that could not be promoted.
type Skipped struct {
	Draft  string `json:"draft"`
	Reason string `json:"reason"`
}

// Report summarises a promotion pass.
type Report struct {
	// Missing is set when there is no staging directory.
	Missing  bool        `json:"missing,omitempty"`
	Promoted []Promotion `json:"promoted"`
	Skipped  []Skipped   `json:"skipped,omitempty"`
}

// Promoter promotes drafts within one content root.
type Promoter struct {
	root    string
	staging string
	ledger  Ledger
	logger  *slog.Logger
}

// New creates a promoter. projectsDir and stagingDir are relative to root.
func New(root, projectsDir, stagingDir string, ledger Ledger, logger *slog.Logger) *Promoter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Promoter{
		root:    filepath.Join(root, projectsDir),
		staging: filepath.Join(root, stagingDir),
		ledger:  ledger,
		logger:  logger,
	}
}

// FormatID renders a permanent id, zero padded to three digits.
func FormatID(n int) string {
	return fmt.Sprintf("%s-%03d", Prefix, n)
}

// Run promotes every draft in lexical filename order.
func (p *Promoter) Run(ctx context.Context) (*Report, error) {
	if p.ledger == nil {
		return nil, ErrNoLedger
	}
	drafts, err := listDrafts(p.staging)
	if err != nil {
		return nil, err
	}
	report := &Report{Promoted: []Promotion{}}
	if drafts == nil {
		report.Missing = true
		return report, nil
	}
	if len(drafts) == 0 {
		return report, nil
	}

	next, err := p.nextNumber(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return nil, fmt.Errorf("promote: create %s: %w", p.root, err)
	}

	for _, name := range drafts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		draftPath := filepath.Join(p.staging, name)
		content, err := os.ReadFile(draftPath)
		if err != nil {
			return report, fmt.Errorf("promote: read %s: %w", name, err)
		}
		doc, err := frontmatter.Load(content)
		if err != nil {
			p.logger.Warn("skipping draft", "draft", name, "error", err)
			report.Skipped = append(report.Skipped, Skipped{Draft: name, Reason: err.Error()})
			continue
		}

		id := FormatID(next)
		stagingID, _ := doc.Get("id")
		doc.Set("id", id)
		out, err := doc.Bytes()
		if err != nil {
			return report, fmt.Errorf("promote: render %s: %w", name, err)
		}

		if err := p.ledger.Issue(ctx, Prefix, next, filepath.Join(filepath.Base(p.staging), name)); err != nil {
			return report, fmt.Errorf("promote: issue %s: %w", id, err)
		}
		next++

		target := filepath.Join(p.root, id+".md")
		if err := writeNew(target, out); err != nil {
			return report, err
		}
		if err := os.Remove(draftPath); err != nil {
			return report, fmt.Errorf("promote: remove draft %s: %w", name, err)
		}

		promotion := Promotion{
			Draft:     name,
			StagingID: stagingID,
			ID:        id,
			File:      filepath.Join(filepath.Base(p.root), id+".md"),
		}
		report.Promoted = append(report.Promoted, promotion)
		p.logger.Info("promoted draft", "draft", name, "staging_id", stagingID, "id", id)
	}
	return report, nil
}

func (p *Promoter) nextNumber(ctx context.Context) (int, error) {
	highest, err := highestOnDisk(p.root)
	if err != nil {
		return 0, err
	}
	issued, err := p.ledger.Highest(ctx, Prefix)
	if err != nil {
		return 0, fmt.Errorf("promote: read ledger: %w", err)
	}
	if issued > highest {
		highest = issued
	}
	return highest + 1, nil
}

func highestOnDisk(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("promote: list %s: %w", dir, err)
	}
	highest := 0
	for _, e := range entries {
		m := projectFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// listDrafts returns nil when the staging directory does not exist.
func listDrafts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("promote: list %s: %w", dir, err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTargetExists, path)
		}
		return fmt.Errorf("promote: create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("promote: write %s: %w", path, err)
	}
	return f.Close()
}
