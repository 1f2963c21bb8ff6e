// Package server composes the judgeide HTTP surface: the run API, the
// language catalogue, the WebSocket host bridge, the assistant proxy, the
// MCP endpoint, health and metrics.
package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/judgeide/pkg/assist"
	"github.com/rhuss/judgeide/pkg/languages"
	"github.com/rhuss/judgeide/pkg/mcpserver"
	"github.com/rhuss/judgeide/pkg/observability"
	"github.com/rhuss/judgeide/pkg/session"
	"github.com/rhuss/judgeide/pkg/transport"
	transporthttp "github.com/rhuss/judgeide/pkg/transport/http"
)

// Config holds the routing options of the composed handler.
type Config struct {
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	// MCPPath mounts the MCP endpoint when an MCP server is supplied.
	// Default: "/mcp".
	MCPPath string

	// StaticDir serves front end assets at "/" when set.
	StaticDir string

	// AllowedOrigins controls CORS and WebSocket origin checks. "*" allows
	// any origin; an empty list only admits same-origin requests.
	AllowedOrigins []string
}

// Deps are the components served by the handler. Adapter and Languages
// are required; the rest are optional.
type Deps struct {
	Adapter   *transporthttp.Adapter
	Languages *languages.Registry
	Sessions  *session.Manager
	Assist    *assist.Service
	MCP       *mcpserver.Server
	Store     transport.RunStore

	// Auth wraps the API routes. Health, metrics and static assets are
	// never authenticated.
	Auth func(http.Handler) http.Handler
}

// Server is the composed HTTP handler.
type Server struct {
	cfg  Config
	deps Deps
	mux  *http.ServeMux
}

// New builds the route table.
func New(cfg Config, deps Deps) *Server {
	if cfg.MCPPath == "" {
		cfg.MCPPath = "/mcp"
	}
	s := &Server{cfg: cfg, deps: deps, mux: http.NewServeMux()}

	runs := s.protect(deps.Adapter.Handler())
	s.mux.Handle("/api/runs", runs)
	s.mux.Handle("/api/runs/", runs)

	s.mux.Handle("GET /api/languages", s.protect(http.HandlerFunc(s.handleListLanguages)))
	s.mux.Handle("GET /api/languages/{flavor}/{id}", s.protect(http.HandlerFunc(s.handleGetLanguage)))

	if deps.Sessions != nil {
		s.mux.Handle("GET /ws", s.protect(newBridge(deps.Sessions, cfg.AllowedOrigins)))
	}
	if deps.Assist != nil {
		am := http.NewServeMux()
		assist.NewHandler(deps.Assist).Register(am)
		s.mux.Handle("POST /chat", s.protect(am))
		s.mux.Handle("POST /autocomplete", s.protect(am))
	}
	if deps.MCP != nil {
		s.mux.Handle(cfg.MCPPath, s.protect(deps.MCP.Handler()))
	}

	// Health, metrics and static assets are public.
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}
	if cfg.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}
	return s
}

func (s *Server) protect(h http.Handler) http.Handler {
	if s.deps.Auth == nil {
		return h
	}
	return s.deps.Auth(h)
}

// Handler returns the route table wrapped in metrics and CORS.
func (s *Server) Handler() http.Handler {
	return observability.MetricsMiddleware(cors(s.cfg.AllowedOrigins, s.mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.HealthCheck(r.Context()); err != nil {
			http.Error(w, "store unavailable: "+err.Error()+"\n", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func originAllowed(allowed []string, origin string) bool {
	return slices.Contains(allowed, "*") || slices.ContainsFunc(allowed, func(o string) bool {
		return strings.EqualFold(o, origin)
	})
}

// cors answers preflight requests and sets the allow headers the browser
// front end needs to reach the assistant proxy from another origin.
func cors(allowed []string, next http.Handler) http.Handler {
	if len(allowed) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(allowed, origin) {
			h := w.Header()
			if slices.Contains(allowed, "*") {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
