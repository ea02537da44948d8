package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/repository"
)

// Service handles run bookkeeping.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new run service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start records a new running run.
func (s *Service) Start(ctx context.Context, kind Kind, ref calendar.Date) (*Run, error) {
	if kind == "" || ref.IsZero() {
		return nil, ErrInvalidInput
	}
	r := &Run{
		ID:            uuid.New().String(),
		Kind:          kind,
		Status:        StatusRunning,
		ReferenceDate: ref,
		StartedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	s.logger.Debug("run started", "run_id", r.ID, "kind", kind, "reference_date", ref)
	return r, nil
}

// Finish stamps the outcome onto r and persists it.
func (s *Service) Finish(ctx context.Context, r *Run, out Outcome) error {
	if r == nil || out.Status == "" || out.Status == StatusRunning {
		return ErrInvalidInput
	}
	if r.FinishedAt != nil {
		return ErrAlreadyFinished
	}
	finished := s.now().UTC()
	r.FinishedAt = &finished
	r.Status = out.Status
	if out.TenantID != "" {
		r.TenantID = out.TenantID
	}
	r.Projects = out.Projects
	r.Updates = out.Updates
	r.ActiveCount = out.ActiveCount
	r.OverCapacity = out.OverCapacity
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	if err := s.repo.Update(ctx, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRunNotFound
		}
		return fmt.Errorf("updating run: %w", err)
	}
	s.logger.Debug("run finished", "run_id", r.ID, "status", r.Status)
	return nil
}

// Get loads a run by id.
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("loading run: %w", err)
	}
	return r, nil
}

// Recent lists runs newest first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Run, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	return s.repo.List(ctx, opts)
}
