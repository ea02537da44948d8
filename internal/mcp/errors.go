package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/engine"
	"github.com/rpggio/roadmap/internal/schema"
)

// ErrLedgerDisabled is returned by history tools when no run ledger is configured.
var ErrLedgerDisabled = errors.New("run ledger is disabled")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes. It returns nil for
// errors with no specific code.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var details any
	var rerr *content.RecordError
	if errors.As(err, &rerr) {
		details = recordErrorResponse(rerr)
	}
	switch {
	case errors.Is(err, engine.ErrLocked):
		return &APIError{Code: "LOCKED", Message: err.Error(), RecoveryHint: "Another run holds the content root; retry shortly"}
	case errors.Is(err, content.ErrNoContent):
		return &APIError{Code: "NO_CONTENT", Message: err.Error(), RecoveryHint: "Check the configured content directory"}
	case errors.Is(err, content.ErrNoConfig):
		return &APIError{Code: "NO_CONFIG", Message: err.Error(), RecoveryHint: "Add config.json to the content root"}
	case errors.Is(err, content.ErrConfig):
		return &APIError{Code: "INVALID_CONFIG", Message: err.Error(), Details: details, RecoveryHint: "Fix the tenant config"}
	case errors.Is(err, content.ErrDuplicateID):
		return &APIError{Code: "DUPLICATE_ID", Message: err.Error(), Details: details, RecoveryHint: "Give each project a unique id"}
	case errors.Is(err, content.ErrDuplicateSlug):
		return &APIError{Code: "DUPLICATE_SLUG", Message: err.Error(), Details: details, RecoveryHint: "Give each project a unique slug"}
	case errors.Is(err, content.ErrTaxonomy):
		return &APIError{Code: "TAXONOMY", Message: err.Error(), Details: details, RecoveryHint: "Use a department and phase listed in the tenant config"}
	case errors.Is(err, content.ErrDanglingReference):
		return &APIError{Code: "DANGLING_REFERENCE", Message: err.Error(), Details: details, RecoveryHint: "Remove or correct related_projects entries"}
	case errors.Is(err, content.ErrInvalidRecord), errors.Is(err, schema.ErrInvalid):
		return &APIError{Code: "INVALID_RECORD", Message: err.Error(), Details: details, RecoveryHint: "Call validate_content for a full report"}
	case errors.Is(err, calendar.ErrInvalidDate):
		return &APIError{Code: "INVALID_DATE", Message: err.Error(), RecoveryHint: "Use YYYY-MM-DD"}
	case errors.Is(err, run.ErrRunNotFound):
		return &APIError{Code: "RUN_NOT_FOUND", Message: "run not found"}
	case errors.Is(err, ErrLedgerDisabled):
		return &APIError{Code: "LEDGER_DISABLED", Message: err.Error(), RecoveryHint: "Start the server with a database path"}
	default:
		return nil
	}
}

// toolError maps err for a tool response, leaving unmapped errors as-is.
func toolError(err error) error {
	if api := MapError(err); api != nil {
		return api
	}
	return err
}
