package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

const serverVersion = "1.0.0"

// Server exposes the knowledge base over MCP stdio so editor and agent
// clients can query it as tools. Handler failures become tool-error results;
// only transport problems surface as protocol errors.
type Server struct {
	answerer ports.AnswerService
	searcher ports.KnowledgeSearcher
	indexer  ports.KnowledgeIndexer
	topK     int
}

func New(answerer ports.AnswerService, searcher ports.KnowledgeSearcher, indexer ports.KnowledgeIndexer, topK int) *Server {
	if topK <= 0 {
		topK = 10
	}
	return &Server{
		answerer: answerer,
		searcher: searcher,
		indexer:  indexer,
		topK:     topK,
	}
}

// Serve blocks reading MCP requests from stdin until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer())
}

func (s *Server) mcpServer() *server.MCPServer {
	srv := server.NewMCPServer("rag-chatbot", serverVersion,
		server.WithToolCapabilities(false),
	)

	srv.AddTool(
		mcp.NewTool("ask_knowledge_base",
			mcp.WithDescription("Answer a question using the indexed documents. Returns a generated answer with its sources."),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question to answer."),
			),
		),
		s.handleAsk,
	)

	srv.AddTool(
		mcp.NewTool("search_knowledge_base",
			mcp.WithDescription("Search the indexed documents and return the raw ranked text fragments without generating an answer."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The search query."),
			),
			mcp.WithNumber("k",
				mcp.Description("Maximum number of fragments to return."),
			),
		),
		s.handleSearch,
	)

	srv.AddTool(
		mcp.NewTool("list_sources",
			mcp.WithDescription("List the sources currently indexed in the knowledge base."),
		),
		s.handleListSources,
	)

	return srv
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question must not be empty"), nil
	}

	result := s.answerer.Answer(ctx, question)
	if !result.Success() {
		return mcp.NewToolResultError(result.Answer), nil
	}

	var sb strings.Builder
	sb.WriteString(result.Answer)
	if len(result.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, ref := range result.Sources {
			fmt.Fprintf(&sb, "- %s (relevance %.3f, %s)\n", ref.Source, ref.RelevanceScore, ref.ChunkInfo)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	k := req.GetInt("k", s.topK)
	if k <= 0 {
		k = s.topK
	}

	matches, err := s.searcher.SearchExpanded(ctx, query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No matching fragments found."), nil
	}

	var sb strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. [%.3f] %s (chunk %d of %d)\n%s\n",
			i+1, m.Score, m.Fragment.Source, m.Fragment.ChunkIndex+1, m.Fragment.ChunkCount, m.Fragment.Text)
		if i < len(matches)-1 {
			sb.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleListSources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := s.indexer.Sources(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sources failed: %v", err)), nil
	}
	if len(sources) == 0 {
		return mcp.NewToolResultText("The knowledge base is empty."), nil
	}

	var sb strings.Builder
	sb.WriteString("Indexed sources:\n")
	for _, source := range sources {
		fmt.Fprintf(&sb, "- %s\n", source)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
