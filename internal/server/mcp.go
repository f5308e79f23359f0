package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// newMCPServer builds the SSE-served MCP surface: a query tool and an index
// status tool, both backed by the same engine as the HTTP API.
func (s *Server) newMCPServer() *mcpserver.SSEServer {
	srv := mcpserver.NewMCPServer("codequery", Version)
	srv.AddTool(queryTool(), s.handleMCPQuery)
	srv.AddTool(indexStatusTool(), s.handleMCPIndexStatus)
	return mcpserver.NewSSEServer(srv)
}

func queryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query",
		Description: "Ask a natural-language question about the indexed codebase",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer from the indexed code",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of code chunks to retrieve (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"question"},
		},
	}
}

func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report statistics from the most recent indexing pass",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func (s *Server) handleMCPQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments"), nil
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	topK := 5
	if v, ok := args["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	resp, err := s.engine.Query(ctx, question, topK, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

func (s *Server) handleMCPIndexStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.Stats()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"backend":       s.cfg.Vector.Backend,
		"collection":    s.cfg.Vector.CollectionName,
		"total_files":   stats.TotalFiles,
		"indexed_files": stats.IndexedFiles,
		"failed_files":  stats.FailedFiles,
		"total_chunks":  stats.TotalChunks,
	})), nil
}

func formatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
