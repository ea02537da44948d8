package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/schema"
)

// errNoLedger is returned by commands that read the run ledger when none is configured.
var errNoLedger = errors.New("no run ledger configured; set --db or ROADMAP_DB_PATH")

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Validate content, resolve statuses and publish master_data.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.engine.Run(cmd.Context(), a.ref)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, res)
			}
			if res.Skipped {
				fmt.Fprintf(out, "skipped: %s\n", res.Reason)
				return nil
			}
			s := res.Snapshot
			fmt.Fprintf(out, "published %s (reference date %s)\n", res.Path, res.ReferenceDate)
			fmt.Fprintf(out, "  %d projects, %d updates, %d assets\n", len(s.Projects), len(s.Updates), res.Assets)
			fmt.Fprintf(out, "  capacity %d/%d", s.Capacity.ActiveCount, s.Capacity.MaxConcurrent)
			if s.Capacity.OverCapacity {
				fmt.Fprint(out, " OVER CAPACITY")
			}
			fmt.Fprintln(out)
			for _, t := range res.Transitions {
				fmt.Fprintf(out, "  %s %s -> %s\n", t.ProjectID, t.From, t.To)
			}
			for _, d := range res.Dropped {
				fmt.Fprintf(out, "  dropped %s\n", d.File)
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every record and report all violations without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.engine.Validate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				if err := printJSON(out, validateOutput(report)); err != nil {
					return err
				}
			} else {
				for _, f := range report.Failures {
					printRecordError(out, "FAIL", f)
				}
				for _, d := range report.Dropped {
					printRecordError(out, "SKIP", d)
				}
				fmt.Fprintf(out, "%d projects valid, %d invalid; %d updates valid, %d skipped\n",
					len(report.Projects), len(report.Failures), len(report.Updates), len(report.Dropped))
			}
			if !report.OK() {
				return errFailed
			}
			return nil
		},
	}
}

func newMidnightCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "midnight",
		Short: "Write Queued -> Active transitions into project files and report overdue projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.engine.Midnight(cmd.Context(), a.ref)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, report)
			}
			if report.Missing {
				fmt.Fprintln(out, "no projects directory")
				return nil
			}
			fmt.Fprintf(out, "scanned %d projects\n", report.Scanned)
			for _, t := range report.Activated {
				fmt.Fprintf(out, "  activated %s %s\n", t.ProjectID, t.Title)
			}
			for _, t := range report.Flagged {
				fmt.Fprintf(out, "  overdue   %s %s\n", t.ProjectID, t.Title)
			}
			return nil
		},
	}
}

func newSmartQueueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "smart-queue",
		Short: "Check capacity and recommend the next backlog project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := a.engine.Recommend(cmd.Context(), a.ref)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, rec)
			}
			c := rec.Capacity
			fmt.Fprintf(out, "capacity %d/%d\n", c.ActiveCount, c.MaxConcurrent)
			switch {
			case rec.AtCapacity():
				fmt.Fprintln(out, "at capacity; nothing to start")
			case rec.Candidate == nil:
				fmt.Fprintln(out, "backlog is empty")
			default:
				fmt.Fprintf(out, "recommend %s %q (strategic value %g, %d slots open)\n",
					rec.Candidate.ID, rec.Candidate.Title, rec.Candidate.Scores.StrategicValue, c.Remaining())
			}
			return nil
		},
	}
}

func newPromoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Move _staging drafts into projects/ with permanent PRJ ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.engine.Promote(cmd.Context())
			if err != nil && report == nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				if perr := printJSON(out, report); perr != nil {
					return perr
				}
				return err
			}
			if report.Missing {
				fmt.Fprintln(out, "no staging directory")
			}
			for _, p := range report.Promoted {
				fmt.Fprintf(out, "promoted %s -> %s (%s)\n", p.Draft, p.ID, p.File)
			}
			for _, s := range report.Skipped {
				fmt.Fprintf(out, "skipped %s: %s\n", s.Draft, s.Reason)
			}
			return err
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit     int
		kind      string
		projectID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs and lifecycle activity from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.runs == nil || a.activity == nil {
				return errNoLedger
			}
			ctx := cmd.Context()
			tenantID := a.engine.TenantID()

			runs, err := a.runs.Recent(ctx, run.ListOptions{TenantID: tenantID, Kind: run.Kind(kind), Limit: limit})
			if err != nil {
				return err
			}
			entries, err := a.activity.GetRecentActivity(ctx, tenantID, activity.ListActivityOptions{ProjectID: projectID, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, map[string]any{"runs": runs, "activity": entries})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tKIND\tSTATUS\tREF DATE\tPROJECTS\tACTIVE\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.StartedAt.UTC().Format(time.RFC3339), r.Kind, r.Status, r.ReferenceDate, r.Projects, r.ActiveCount, r.Error)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tTYPE\tPROJECT\tSUMMARY")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.ActivityType, e.ProjectID, e.Summary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs and entries to show")
	cmd.Flags().StringVar(&kind, "kind", "", "only runs of this kind: build|midnight|smart-queue|promote")
	cmd.Flags().StringVar(&projectID, "project", "", "only activity for this project id")
	return cmd
}

type recordErrorOutput struct {
	Kind       string             `json:"kind"`
	File       string             `json:"file"`
	ID         string             `json:"id,omitempty"`
	Error      string             `json:"error"`
	Violations []schema.Violation `json:"violations"`
}

func recordErrorsOutput(errs []*content.RecordError) []recordErrorOutput {
	out := make([]recordErrorOutput, 0, len(errs))
	for _, e := range errs {
		vs := e.Violations()
		if vs == nil {
			vs = []schema.Violation{}
		}
		out = append(out, recordErrorOutput{Kind: string(e.Kind), File: e.File, ID: e.ID, Error: e.Err.Error(), Violations: vs})
	}
	return out
}

func validateOutput(r *content.Report) map[string]any {
	return map[string]any{
		"ok":       r.OK(),
		"projects": len(r.Projects),
		"updates":  len(r.Updates),
		"failures": recordErrorsOutput(r.Failures),
		"dropped":  recordErrorsOutput(r.Dropped),
	}
}

func printRecordError(w io.Writer, label string, e *content.RecordError) {
	id := e.ID
	if id == "" {
		id = "?"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", label, e.File, id)
	vs := e.Violations()
	if len(vs) == 0 {
		fmt.Fprintf(w, "  %v\n", e.Err)
		return
	}
	for _, v := range vs {
		fmt.Fprintf(w, "  %s\n", v)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
