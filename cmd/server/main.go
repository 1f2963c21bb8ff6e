// Command server runs the judgeide backend: the run API, the language
// catalogue, the WebSocket host bridge, the assistant proxy and, when
// enabled, the MCP endpoint.
//
// Configuration is read from a YAML file (JUDGEIDE_CONFIG, ./config.yaml or
// /etc/judgeide/config.yaml) and JUDGEIDE_* environment variables; see
// package config for the full list.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/rhuss/judgeide/pkg/assist"
	"github.com/rhuss/judgeide/pkg/config"
	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/engine"
	"github.com/rhuss/judgeide/pkg/history/memory"
	"github.com/rhuss/judgeide/pkg/history/postgres"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/languages"
	"github.com/rhuss/judgeide/pkg/mcpserver"
	"github.com/rhuss/judgeide/pkg/observability"
	"github.com/rhuss/judgeide/pkg/server"
	"github.com/rhuss/judgeide/pkg/session"
	"github.com/rhuss/judgeide/pkg/transport"
	transporthttp "github.com/rhuss/judgeide/pkg/transport/http"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	debug.Setup(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})

	ctx := context.Background()

	// Judge0 client, additional files bundle and runner.
	client := judge0.NewClient(cfg.Judge0.ClientConfig())
	var files *judge0.FileBundle
	if cfg.Judge0.AdditionalFilesURL != "" {
		files = judge0.NewFileBundle(cfg.Judge0.AdditionalFilesURL, nil)
	}
	runner := judge0.NewRunner(client, files, observability.Judge0Observer())
	registry := languages.NewRegistry(client)

	store, err := newStore(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := engine.New(runner, store, engine.Config{
		Validation: cfg.Judge0.Validation(),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	adapter := transporthttp.NewAdapter(eng, store,
		transporthttp.Config{MaxBodySize: cfg.Server.MaxBodySize},
		transport.Recovery(), transport.RequestID(), transport.Logging(slog.Default()),
	)

	authMW, err := server.AuthMiddleware(cfg.Auth)
	if err != nil {
		return err
	}

	sessions := session.NewManager(runner, registry)
	deps := server.Deps{
		Adapter:   adapter,
		Languages: registry,
		Sessions:  sessions,
		Store:     store,
		Auth:      authMW,
	}

	if cfg.Assist.APIKey != "" {
		prov, err := assist.NewProvider(assist.Config{
			Provider: cfg.Assist.Provider,
			BaseURL:  cfg.Assist.BaseURL,
			APIKey:   cfg.Assist.APIKey,
			Model:    cfg.Assist.Model,
			Timeout:  cfg.Assist.Timeout,
		})
		if err != nil {
			return fmt.Errorf("creating assistant: %w", err)
		}
		deps.Assist = assist.NewService(prov)
		slog.Info("assistant enabled", "provider", prov.Name())
	} else {
		slog.Info("assistant disabled, no API key configured")
	}

	if cfg.MCP.Enabled {
		deps.MCP = mcpserver.New(eng, registry, store, version)
		slog.Info("MCP endpoint enabled", "path", cfg.MCP.Path)
	}

	srvCfg := server.Config{
		MCPPath:        cfg.MCP.Path,
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Observability.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Observability.Metrics.Path
	}
	handler := server.New(srvCfg, deps).Handler()

	srv := transporthttp.NewServer(handler,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(slog.Default()),
	)
	// Hijacked WebSocket connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(sessions.CloseAll)

	slog.Info("judgeide starting",
		"version", version,
		"port", cfg.Server.Port,
		"ce", cfg.Judge0.CE.AuthURL,
		"extra_ce", cfg.Judge0.ExtraCE.AuthURL,
		"history", cfg.History.Type,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

func newStore(ctx context.Context, cfg config.HistoryConfig) (transport.RunStore, error) {
	switch cfg.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting history store: %w", err)
		}
		slog.Info("history enabled", "type", "postgres")
		return store, nil
	default:
		slog.Info("history enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	}
}
