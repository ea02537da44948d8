package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `roadmap governs a static-site project roadmap kept as Markdown files.

Core concepts:
- Content root: config.json (tenant config), projects/*.md, updates/*.md, assets/, _staging/.
- Project: YAML front matter (id, slug, status, dates, scores, financials) plus a Markdown body.
- Snapshot: master_data.json, rebuilt from scratch on every build.
- Status resolution: Queued becomes Active once planned_start has arrived; Active becomes Overdue after planned_end. Nothing else changes automatically.
- Capacity: Active projects counted against governance.max_concurrent_projects.

Workflow:
1) validate_content before building; it reports every violation with file, field path and rule.
2) build_snapshot to publish. A failed build leaves the previous snapshot untouched.
3) capacity_report / recommend_next to plan what starts next. Neither edits content.
4) recent_activity to see what changed in earlier runs.

Docs:
- roadmap://docs/content-model
- roadmap://docs/lifecycle
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "roadmap://docs/content-model",
		Name:        "docs_content_model",
		Title:       "Content model",
		Description: "Layout of the content root and the fields each record carries.",
		Content: `# Content model

## Layout

- ` + "`config.json`" + ` (or ` + "`config.yaml`" + `): tenant config: tenant_id, meta, modules, taxonomy, governance.
- ` + "`projects/*.md`" + `: one project per file, YAML front matter between --- fences.
- ` + "`updates/*.md`" + `: status updates; invalid ones are skipped with a warning.
- ` + "`assets/**`" + `: copied byte for byte into the public directory.
- ` + "`_staging/*.md`" + `: drafts awaiting a permanent PRJ id.

## Project fields

- id: PRJ-nnn (STG-nnn while staged)
- title, slug, owner, department, phase: non-empty; department and phase must appear in the taxonomy when one is configured
- status: Backlog, Queued, Active, Paused or Complete (Overdue is computed, never authored)
- dates.planned_start <= dates.planned_end, both YYYY-MM-DD
- scores.strategic_value and scores.complexity in 0..10, scores.confidence in 0..1
- financials.currency: three letters
- related_projects: ids of other loaded projects

## Errors

Any invalid project fails the whole build; nothing is published. Call ` + "`validate_content`" + ` for the full list.
`,
	},
	{
		URI:         "roadmap://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Lifecycle and capacity",
		Description: "How statuses are resolved against the reference date and how capacity and the matrix are computed.",
		Content: `# Lifecycle and capacity

## Status resolution

| Authored | Condition | Published |
|---|---|---|
| Queued | planned_start <= reference date | Active |
| Active | planned_end < reference date | Overdue |

One step per build: a Queued project whose end has also passed publishes as Active.
The reference date defaults to today (UTC); pass reference_date for reproducible builds.

## Capacity

active_count counts published Active projects. over_capacity is true when it exceeds
max_concurrent_projects (999 when unset). Capacity is reported, never enforced.

## Matrix

impact = round(strategic_value / 10 * 100), effort = round(complexity / 10 * 100).
impact >= 50 and effort < 50 is Quick Wins; impact >= 50 is Big Bets; effort < 50 is Fillers; otherwise Time Sinks.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
