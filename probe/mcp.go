package probe

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pierce/kit"
)

// ToolPrefix prefixes every MCP tool name.
const ToolPrefix = "pierce_"

// RegisterMCP registers the pierce tools on an MCP server.
func (p *Probe) RegisterMCP(srv *mcp.Server) {
	for _, op := range p.operations() {
		tool := &mcp.Tool{
			Name:        ToolPrefix + op.name,
			Description: op.description,
			InputSchema: op.schema,
		}
		dec := op.decode
		kit.RegisterMCPTool(srv, tool, op.endpoint, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			r, err := dec(req.Params.Arguments)
			if err != nil {
				return nil, err
			}
			return &kit.MCPDecodeResult{Request: r}, nil
		})
	}
}
