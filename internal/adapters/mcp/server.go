// Package mcpadapter exposes the wine search as an MCP tool so voice
// agents and assistants can call it over streamable HTTP.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/podoring/wine-search/internal/core/domain"
	"github.com/podoring/wine-search/internal/core/ports"
)

type Server struct {
	mcp *server.MCPServer
}

func NewServer(version string, searcher ports.WineSearcher, defaultLimit int) *Server {
	mcpServer := server.NewMCPServer(
		"wine-search",
		version,
		server.WithToolCapabilities(true),
	)
	registerSearchWinesTool(mcpServer, searcher, defaultLimit)
	return &Server{mcp: mcpServer}
}

// HTTPHandler returns the stateless streamable HTTP transport; the API mux
// routes /mcp to it.
func (s *Server) HTTPHandler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

func registerSearchWinesTool(s *server.MCPServer, searcher ports.WineSearcher, defaultLimit int) {
	tool := mcp.NewTool(
		"search_wines",
		mcp.WithDescription(
			"Search the wine catalog with a natural-language request in Korean or English. "+
				"Constraint phrases (price, type, sweetness, country, grape) become structured "+
				"filters; open-ended requests use semantic similarity. "+
				"Example: search_wines(query='드라이한 5만원 이하 레드 와인')",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Natural-language wine request (e.g., 'sweet sparkling wine', '가장 비싼 와인')"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of wines to return (default 3, max 20)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}
		query = strings.TrimSpace(query)
		if query == "" {
			return mcp.NewToolResultError("query parameter cannot be empty"), nil
		}

		limit := defaultLimit
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if limitVal, ok := args["limit"].(float64); ok && limitVal > 0 {
				limit = int(limitVal)
			}
		}
		if limit > 20 {
			limit = 20
		}

		result, err := searcher.Search(ctx, query, limit)
		if err != nil {
			if domain.IsKind(err, domain.ErrInvalidInput) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal search result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
