package run

import "context"

// Repository provides persistence for runs.
type Repository interface {
	Create(ctx context.Context, r *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	Update(ctx context.Context, r *Run) error
	List(ctx context.Context, opts ListOptions) ([]Run, error)
}
