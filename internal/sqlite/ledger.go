package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/roadmap/internal/repository"
)

// LedgerRepository records every project number handed out.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Highest returns the largest number issued under prefix, or 0.
func (r *LedgerRepository) Highest(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) FROM id_ledger WHERE prefix = ?`, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger: %w", err)
	}
	return n, nil
}

// Issue records that prefix-number has been assigned. Issuing the same
// number twice returns repository.ErrConflict.
func (r *LedgerRepository) Issue(ctx context.Context, prefix string, number int, source string) error {
	if prefix == "" || number <= 0 {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO id_ledger (prefix, number, source) VALUES (?, ?, ?)`, prefix, number, source)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to issue %s-%d: %w", prefix, number, err)
	}
	return nil
}
