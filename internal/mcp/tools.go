package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolValidateContent = "validate_content"
	ToolBuildSnapshot   = "build_snapshot"
	ToolCapacityReport  = "capacity_report"
	ToolRecommendNext   = "recommend_next"
	ToolRecentActivity  = "recent_activity"
)

func registerTools(server *sdkmcp.Server, h *Handler) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolValidateContent,
		Description: "Validate the tenant config, every project and every status update. Reports all violations with file, field path and rule; writes nothing.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ValidateContentParams) (*sdkmcp.CallToolResult, ValidateContentResponse, error) {
		out, err := h.ValidateContent(ctx, in)
		return nil, out, toolError(err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolBuildSnapshot,
		Description: "Run the governance engine: resolve statuses, compute capacity and matrix scores, and publish master_data.json. On failure the previous snapshot is kept.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in BuildSnapshotParams) (*sdkmcp.CallToolResult, BuildSnapshotResponse, error) {
		out, err := h.BuildSnapshot(ctx, in)
		return nil, out, toolError(err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolCapacityReport,
		Description: "Count active projects (after date-driven status resolution) against the configured max_concurrent_projects.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CapacityReportParams) (*sdkmcp.CallToolResult, CapacityReportResponse, error) {
		out, err := h.CapacityReport(ctx, in)
		return nil, out, toolError(err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolRecommendNext,
		Description: "Suggest the backlog project with the highest strategic value when there is capacity. Never changes any project.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecommendNextParams) (*sdkmcp.CallToolResult, RecommendNextResponse, error) {
		out, err := h.RecommendNext(ctx, in)
		return nil, out, toolError(err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolRecentActivity,
		Description: "List recent lifecycle activity from the run ledger (status changes, capacity warnings, dropped updates, promotions), newest first.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, RecentActivityResponse, error) {
		out, err := h.RecentActivity(ctx, getTenantID(ctx), in)
		return nil, out, toolError(err)
	})
}
