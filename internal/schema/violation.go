// Package schema validates raw, untyped content records field by field.
// Violations are collected rather than returned one at a time so a single
// report can name every problem in a record.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("schema violation")

// Kind identifies the shape a raw record is validated against.
type Kind string

const (
	KindProject Kind = "project"
	KindUpdate  Kind = "update"
	KindConfig  Kind = "config"
)

// Rule names the constraint a field failed.
type Rule string

const (
	RuleRequired  Rule = "required"
	RuleType      Rule = "type"
	RuleMinLength Rule = "min_length"
	RuleLength    Rule = "length"
	RuleRange     Rule = "range"
	RuleEnum      Rule = "enum"
	RuleFormat    Rule = "format"
	RuleOrder     Rule = "order"
	RuleTaxonomy  Rule = "taxonomy"
	RuleReference Rule = "reference"
	RuleUnique    Rule = "unique"
)

// Violation is one failed constraint at a field path such as
// "dates.planned_end" or "tags[2]".
type Violation struct {
	Path    string `json:"path"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s]", v.Path, v.Message, v.Rule)
}

// ValidationError carries every violation found in one record.
type ValidationError struct {
	Kind       Kind
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	noun := "violations"
	if len(e.Violations) == 1 {
		noun = "violation"
	}
	return fmt.Sprintf("invalid %s: %d %s: %s", e.Kind, len(e.Violations), noun, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// ViolationsOf extracts the violations from err, if it wraps a ValidationError.
func ViolationsOf(err error) []Violation {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}
