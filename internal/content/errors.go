package content

import (
	"errors"
	"fmt"

	"github.com/rpggio/roadmap/internal/schema"
)

var (
	// ErrNoContent indicates the content root does not exist.
	ErrNoContent = errors.New("content root not found")
	// ErrNoConfig indicates the content root has no configuration document.
	ErrNoConfig = errors.New("tenant config not found")
	// ErrConfig indicates the configuration document is present but unusable.
	ErrConfig = errors.New("invalid tenant config")

	ErrInvalidRecord     = errors.New("invalid record")
	ErrDuplicateID       = errors.New("duplicate project id")
	ErrDuplicateSlug     = errors.New("duplicate project slug")
	ErrTaxonomy          = errors.New("taxonomy violation")
	ErrDanglingReference = errors.New("dangling related project reference")
)

// RecordError identifies the record a load failure belongs to.
type RecordError struct {
	Kind schema.Kind
	File string
	// ID is empty when the record failed before its id could be read.
	ID  string
	Err error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.File, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Kind, e.File, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Violations returns the field-level violations behind the error, if any.
func (e *RecordError) Violations() []schema.Violation {
	return schema.ViolationsOf(e.Err)
}

// IsDegraded reports whether err means there is simply nothing to process.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrNoContent) || errors.Is(err, ErrNoConfig)
}

func violation(kind schema.Kind, path string, rule schema.Rule, format string, args ...any) *schema.ValidationError {
	return &schema.ValidationError{
		Kind:       kind,
		Violations: []schema.Violation{{Path: path, Rule: rule, Message: fmt.Sprintf(format, args...)}},
	}
}
