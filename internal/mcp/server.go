package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/capacity"
	"github.com/rpggio/roadmap/internal/content"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/engine"
)

// EngineService defines the governance operations needed by MCP.
type EngineService interface {
	ReferenceDate(ref calendar.Date) calendar.Date
	Run(ctx context.Context, ref calendar.Date) (*engine.Result, error)
	Validate(ctx context.Context) (*content.Report, error)
	Capacity(ctx context.Context, ref calendar.Date) (capacity.Capacity, error)
	Recommend(ctx context.Context, ref calendar.Date) (*capacity.Recommendation, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// RunService defines run history operations needed by MCP.
type RunService interface {
	Get(ctx context.Context, id string) (*run.Run, error)
	Recent(ctx context.Context, opts run.ListOptions) ([]run.Run, error)
}

// Services contains all services needed by MCP. Activity and Runs are nil
// when the run ledger is disabled.
type Services struct {
	Engine   EngineService
	Activity ActivityService
	Runs     RunService
}

// Config contains server configuration.
type Config struct {
	Services Services
	// TenantID scopes ledger reads; it is the tenant_id of the content root.
	TenantID string
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "roadmap",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// The first middleware is outermost: tenant and session fill the
	// context before traffic logging reads it.
	server.AddReceivingMiddleware(
		tenantMiddleware(cfg.TenantID),
		sessionMiddleware(),
		trafficLoggingMiddleware(cfg.Logger, "inbound"),
	)
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services, cfg.Logger))

	return server
}
