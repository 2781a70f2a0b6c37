package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/mpetrov/rag-chatbot/internal/adapters/mcp"
	"github.com/mpetrov/rag-chatbot/internal/bootstrap"
	"github.com/mpetrov/rag-chatbot/internal/config"
	"github.com/mpetrov/rag-chatbot/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol stream, so all logging goes to stderr.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	app, err := bootstrap.NewQueryApp(cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	srv := mcpadapter.New(app.AnswerUC, app.SearchUC, app.IndexUC, cfg.TopKResults)
	slog.Info("mcp_serving_stdio", "model", cfg.OllamaGenModel)
	if err := srv.Serve(); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
