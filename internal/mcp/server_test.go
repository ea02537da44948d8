package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/roadmap/internal/content/contenttest"
	"github.com/rpggio/roadmap/internal/engine"
	"github.com/rpggio/roadmap/internal/snapshot"
)

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	server := NewServer(cfg)
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	return result
}

func textOf(t *testing.T, result *sdkmcp.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatal("no text content")
	return ""
}

func newFixtureEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	f := contenttest.New(t)
	f.Config(contenttest.DefaultConfig())
	queued := contenttest.ProjectRecord("PRJ-001")
	queued["status"] = "Queued"
	f.Project(queued, "Portal rebuild")
	f.Project(contenttest.ProjectRecord("PRJ-002"), "")
	f.Update("2025-05-01-kickoff", contenttest.UpdateRecord("UPD-001", "2025-05-01"), "Kickoff")

	public := filepath.Join(t.TempDir(), "public")
	clock := func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return engine.New(f.Root, public, quietLogger(), engine.WithClock(clock)), public
}

func TestServer_ListTools(t *testing.T) {
	eng, _ := newFixtureEngine(t)
	session := connect(t, Config{Services: Services{Engine: eng}, Logger: quietLogger()})

	initResult := session.InitializeResult()
	require.NotNil(t, initResult)
	require.Equal(t, "roadmap", initResult.ServerInfo.Name)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{ToolValidateContent, ToolBuildSnapshot, ToolCapacityReport, ToolRecommendNext, ToolRecentActivity} {
		require.True(t, names[name], "missing tool %s", name)
	}
}

func TestServer_BuildSnapshot(t *testing.T) {
	eng, public := newFixtureEngine(t)
	session := connect(t, Config{Services: Services{Engine: eng}, Logger: quietLogger()})

	result := callTool(t, session, ToolBuildSnapshot, map[string]any{"reference_date": "2025-06-01"})
	require.False(t, result.IsError, textOf(t, result))

	var resp BuildSnapshotResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &resp))
	require.Equal(t, "2025-06-01", resp.ReferenceDate)
	require.Equal(t, 2, resp.Projects)
	require.Equal(t, 1, resp.Updates)
	require.Equal(t, 1, resp.Capacity.ActiveCount)
	require.Len(t, resp.Transitions, 1)
	require.Equal(t, "PRJ-001", resp.Transitions[0].ProjectID)

	_, err := os.Stat(filepath.Join(public, snapshot.FileName))
	require.NoError(t, err)
}

func TestServer_CapacityAndRecommend(t *testing.T) {
	eng, _ := newFixtureEngine(t)
	session := connect(t, Config{Services: Services{Engine: eng}, Logger: quietLogger()})

	result := callTool(t, session, ToolCapacityReport, nil)
	require.False(t, result.IsError, textOf(t, result))
	var load CapacityReportResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &load))
	require.Equal(t, "2025-06-01", load.ReferenceDate)
	require.Equal(t, 1, load.Capacity.ActiveCount)
	require.Equal(t, 4, load.Capacity.Remaining)

	result = callTool(t, session, ToolRecommendNext, nil)
	require.False(t, result.IsError, textOf(t, result))
	var rec RecommendNextResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &rec))
	require.NotNil(t, rec.Candidate)
	require.Equal(t, "PRJ-002", rec.Candidate.ID)
}

func TestServer_ToolErrors(t *testing.T) {
	eng, _ := newFixtureEngine(t)
	session := connect(t, Config{Services: Services{Engine: eng}, Logger: quietLogger()})

	result := callTool(t, session, ToolRecentActivity, nil)
	require.True(t, result.IsError)
	require.Contains(t, textOf(t, result), "LEDGER_DISABLED")

	result = callTool(t, session, ToolBuildSnapshot, map[string]any{"reference_date": "soon"})
	require.True(t, result.IsError)
	require.Contains(t, textOf(t, result), "INVALID_DATE")
}

func TestServer_DocResources(t *testing.T) {
	eng, _ := newFixtureEngine(t)
	session := connect(t, Config{Services: Services{Engine: eng}, Logger: quietLogger()})

	for _, doc := range docResources {
		res, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: doc.URI})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		require.Equal(t, doc.Content, res.Contents[0].Text)
	}
}
