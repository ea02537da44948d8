package mcp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/engine"
	"github.com/rpggio/roadmap/internal/schema"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	_, dateErr := calendar.Parse("tomorrow")

	cases := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("build: %w", engine.ErrLocked), "LOCKED"},
		{fmt.Errorf("%w: /srv/content", content.ErrNoContent), "NO_CONTENT"},
		{content.ErrNoConfig, "NO_CONFIG"},
		{fmt.Errorf("%w: config.json: bad json", content.ErrConfig), "INVALID_CONFIG"},
		{content.ErrDuplicateID, "DUPLICATE_ID"},
		{content.ErrDuplicateSlug, "DUPLICATE_SLUG"},
		{content.ErrTaxonomy, "TAXONOMY"},
		{content.ErrDanglingReference, "DANGLING_REFERENCE"},
		{&schema.ValidationError{Kind: schema.KindProject}, "INVALID_RECORD"},
		{dateErr, "INVALID_DATE"},
		{ErrLedgerDisabled, "LEDGER_DISABLED"},
	}
	for _, tc := range cases {
		api := MapError(tc.err)
		require.NotNil(t, api, tc.code)
		require.Equal(t, tc.code, api.Code)
	}

	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("disk full")))
}

func TestMapError_RecordDetails(t *testing.T) {
	err := &content.RecordError{
		Kind: schema.KindProject,
		File: "projects/PRJ-001.md",
		ID:   "PRJ-001",
		Err: fmt.Errorf("%w: %w", content.ErrDanglingReference, &schema.ValidationError{
			Kind:       schema.KindProject,
			Violations: []schema.Violation{{Path: "related_projects[0]", Rule: schema.RuleReference, Message: `"PRJ-999" does not match any loaded project`}},
		}),
	}

	api := MapError(err)
	require.NotNil(t, api)
	require.Equal(t, "DANGLING_REFERENCE", api.Code)
	details, ok := api.Details.(RecordErrorResponse)
	require.True(t, ok)
	require.Equal(t, "PRJ-001", details.ID)
	require.Equal(t, "related_projects[0]", details.Violations[0].Path)
	require.Contains(t, api.Error(), "DANGLING_REFERENCE")
}

func TestToolError(t *testing.T) {
	require.NoError(t, toolError(nil))

	plain := errors.New("disk full")
	require.Equal(t, plain, toolError(plain))

	var api *APIError
	require.ErrorAs(t, toolError(engine.ErrLocked), &api)
	require.Equal(t, "LOCKED", api.Code)
}
