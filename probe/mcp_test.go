package probe

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func mcpSession(t *testing.T, p *Probe) *mcp.ClientSession {
	t.Helper()
	impl := &mcp.Implementation{Name: "pierce-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	p.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()
	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, s *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := s.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	if out != nil && !res.IsError {
		tc, ok := res.Content[0].(*mcp.TextContent)
		if !ok {
			t.Fatalf("expected TextContent, got %T", res.Content[0])
		}
		if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
	}
	return res
}

func TestMCP_Tools(t *testing.T) {
	s := mcpSession(t, newTestProbe(t))

	tools, err := s.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"pierce_query": true, "pierce_explain": true, "pierce_save_selector": true,
		"pierce_list_selectors": true, "pierce_delete_selector": true,
		"pierce_run_selector": true, "pierce_history": true,
	}
	for _, tool := range tools.Tools {
		delete(want, tool.Name)
	}
	if len(want) != 0 {
		t.Errorf("missing tools: %v", want)
	}
}

func TestMCP_Query(t *testing.T) {
	s := mcpSession(t, newTestProbe(t))

	var resp struct {
		Count    int    `json:"count"`
		Acquired string `json:"acquired"`
		Matches  []struct {
			Path     string `json:"path"`
			InShadow bool   `json:"in_shadow"`
		} `json:"matches"`
	}
	res := callTool(t, s, "pierce_query", map[string]any{"selector": "x-cart span", "html": shopHTML}, &resp)
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	if resp.Count != 1 || resp.Acquired != "inline" || !resp.Matches[0].InShadow {
		t.Errorf("response: %+v", resp)
	}
	if resp.Matches[0].Path != "/html/body/x-shop/shadow-root/x-cart/shadow-root/span" {
		t.Errorf("Path: %q", resp.Matches[0].Path)
	}

	res = callTool(t, s, "pierce_query", map[string]any{"selector": "li:bogus", "html": shopHTML}, nil)
	if !res.IsError {
		t.Error("invalid selector should be a tool error")
	}
}

func TestMCP_Explain(t *testing.T) {
	s := mcpSession(t, newTestProbe(t))
	var plan struct {
		Stages []struct {
			Final bool `json:"final"`
		} `json:"stages"`
	}
	res := callTool(t, s, "pierce_explain", map[string]any{"selector": "x-shop >>> li"}, &plan)
	if res.IsError || len(plan.Stages) != 2 || !plan.Stages[1].Final {
		t.Errorf("plan: %+v", plan)
	}
}

func TestMCP_SelectorLifecycle(t *testing.T) {
	s := mcpSession(t, newTestProbe(t))

	res := callTool(t, s, "pierce_save_selector", map[string]any{"name": "prices", "selector": ".price"}, nil)
	if res.IsError {
		t.Fatalf("save: %+v", res.Content)
	}

	var list []map[string]any
	callTool(t, s, "pierce_list_selectors", nil, &list)
	if len(list) != 1 || list[0]["name"] != "prices" {
		t.Errorf("list: %v", list)
	}

	var run struct {
		Count int    `json:"count"`
		RunID string `json:"run_id"`
	}
	callTool(t, s, "pierce_run_selector", map[string]any{"name": "prices", "html": shopHTML}, &run)
	if run.Count != 4 || run.RunID == "" {
		t.Errorf("run: %+v", run)
	}

	var history []map[string]any
	callTool(t, s, "pierce_history", map[string]any{"name": "prices"}, &history)
	if len(history) != 1 {
		t.Errorf("history: %v", history)
	}

	callTool(t, s, "pierce_delete_selector", map[string]any{"name": "prices"}, nil)
	res = callTool(t, s, "pierce_delete_selector", map[string]any{"name": "prices"}, nil)
	if !res.IsError {
		t.Error("second delete should fail")
	}
}
