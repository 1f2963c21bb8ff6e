// Command judgeide-mcp exposes the judgeide tools (run_code,
// list_languages, get_run) to MCP clients. It speaks MCP over stdio by
// default, which is what editors and agent hosts launch; with -http it
// serves streamable HTTP on /mcp instead.
//
// Runs are kept in memory for the lifetime of the process. Configuration
// is shared with the server (JUDGEIDE_CONFIG and JUDGEIDE_* variables).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/judgeide/pkg/config"
	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/engine"
	"github.com/rhuss/judgeide/pkg/history/memory"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/languages"
	"github.com/rhuss/judgeide/pkg/mcpserver"
	transporthttp "github.com/rhuss/judgeide/pkg/transport/http"
)

var version = "dev"

func main() {
	addr := flag.String("http", "", "serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *addr); err != nil {
		slog.Error("judgeide-mcp failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	// stdout carries the protocol in stdio mode.
	debug.Setup(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     os.Stderr,
	})

	srv, err := newServer(cfg)
	if err != nil {
		return err
	}

	if addr == "" {
		slog.Info("judgeide-mcp serving on stdio", "version", version)
		return srv.MCP().Run(ctx, &mcp.StdioTransport{})
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", srv.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	hs := transporthttp.NewServer(mux,
		transporthttp.WithAddr(addr),
		transporthttp.WithLogger(slog.Default()),
	)
	slog.Info("judgeide-mcp serving streamable HTTP", "addr", addr, "version", version)
	return hs.Run(ctx)
}

func newServer(cfg *config.Config) (*mcpserver.Server, error) {
	client := judge0.NewClient(cfg.Judge0.ClientConfig())
	var files *judge0.FileBundle
	if cfg.Judge0.AdditionalFilesURL != "" {
		files = judge0.NewFileBundle(cfg.Judge0.AdditionalFilesURL, nil)
	}
	runner := judge0.NewRunner(client, files)
	registry := languages.NewRegistry(client)
	store := memory.New(cfg.History.MaxSize)

	eng, err := engine.New(runner, store, engine.Config{Validation: cfg.Judge0.Validation()})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return mcpserver.New(eng, registry, store, version), nil
}
