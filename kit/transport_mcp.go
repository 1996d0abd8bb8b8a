package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDecodeResult is what a tool's decode function hands to the endpoint:
// the typed request, plus an optional hook that adds values to the call
// context.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// MCPDecoder turns raw tool arguments into an endpoint request.
type MCPDecoder func(*mcp.CallToolRequest) (*MCPDecodeResult, error)

// RegisterMCPTool exposes endpoint as tool on srv. The call context is
// tagged with the "mcp" transport. A failure at any step (decoding, the
// endpoint, encoding the response) is reported to the client as a tool
// result with IsError set; the handler itself never fails the protocol
// exchange. A successful response is sent as a single JSON text block.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in, err := decode(req)
		if err != nil {
			return toolError(fmt.Errorf("%s: bad arguments: %w", tool.Name, err)), nil
		}
		ctx = WithTransport(ctx, "mcp")
		if in.EnrichCtx != nil {
			ctx = in.EnrichCtx(ctx)
		}
		out, err := endpoint(ctx, in.Request)
		if err != nil {
			return toolError(err), nil
		}
		body, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Errorf("%s: encode response: %w", tool.Name, err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	res := &mcp.CallToolResult{}
	res.SetError(err)
	return res
}
