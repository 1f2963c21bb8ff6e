package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/history"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/transport"
)

// Adapter serves the run API over HTTP.
type Adapter struct {
	executor transport.RunExecutor
	store    transport.RunStore // nil disables the history endpoints
	polling  *transport.PollingRuns
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// MaxBodySize bounds a POST /api/runs body in bytes.
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter. The store is optional; without it
// the history endpoints answer 501. Middleware wraps the executor in the
// given order.
func NewAdapter(executor transport.RunExecutor, store transport.RunStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		executor = transport.Chain(middlewares...)(executor)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		executor: executor,
		store:    store,
		polling:  transport.NewPollingRuns(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /api/runs", a.handleCreateRun)
	a.mux.HandleFunc("GET /api/runs", a.handleListRuns)
	a.mux.HandleFunc("GET /api/runs/{id}", a.handleGetRun)
	a.mux.HandleFunc("DELETE /api/runs/{id}", a.handleDeleteRun)

	return a
}

// Handler returns the adapter's routes wrapped in request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return RequestIDMiddleware(a.mux)
}

// InFlight returns the number of streamed runs still polling.
func (a *Adapter) InFlight() int {
	return a.polling.Len()
}

// RequestIDMiddleware copies an incoming X-Request-ID header into the
// context, assigns a fresh ID otherwise, and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// handleCreateRun handles POST /api/runs.
func (a *Adapter) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if req.Stream {
		a.handleStreamingRun(w, r, &req)
		return
	}

	rw := newSSERunWriter(w, nil)
	if err := a.executor.ExecuteRun(r.Context(), &req, rw); err != nil {
		a.writeExecutorError(w, rw, err)
	}
}

// handleStreamingRun registers the run for cancellation while it polls.
func (a *Adapter) handleStreamingRun(w http.ResponseWriter, r *http.Request, req *api.RunRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	release := func() {}
	rw := newSSERunWriter(w, func(id string) {
		release = a.polling.Track(ctx, id, cancel)
	})

	err := a.executor.ExecuteRun(ctx, req, rw)
	release()
	if err != nil {
		a.writeExecutorError(w, rw, err)
	}
}

// handleGetRun handles GET /api/runs/{id}.
func (a *Adapter) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, "run retrieval") {
		return
	}
	id, ok := pathRunID(w, r)
	if !ok {
		return
	}

	run, err := a.store.GetRun(r.Context(), id)
	if err != nil {
		writeStoreError(w, id, err)
		return
	}
	writeJSON(w, run)
}

// handleDeleteRun handles DELETE /api/runs/{id}. A streamed run of the
// caller's tenant that is still polling is cancelled; otherwise the stored
// run is removed.
func (a *Adapter) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathRunID(w, r)
	if !ok {
		return
	}

	if a.polling.Cancel(r.Context(), id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !a.requireStore(w, "run deletion") {
		return
	}
	if err := a.store.DeleteRun(r.Context(), id); err != nil {
		writeStoreError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListRuns handles GET /api/runs.
func (a *Adapter) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, "run listing") {
		return
	}

	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	list, err := a.store.ListRuns(r.Context(), opts)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, list)
}

func (a *Adapter) requireStore(w http.ResponseWriter, what string) bool {
	if a.store != nil {
		return true
	}
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("", what+" is not available (no history store configured)"),
		http.StatusNotImplemented,
	)
	return false
}

func pathRunID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !api.ValidateRunID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed run ID"))
		return "", false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, history.ErrNotFound) {
		transport.WriteAPIError(w, api.NewNotFoundError("run "+id+" not found"))
		return
	}
	transport.WriteError(w, err)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// parseListOptions extracts pagination and filter parameters.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := transport.ListOptions{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Order:  q.Get("order"),
	}

	if opts.After != "" && opts.Before != "" {
		return opts, api.NewInvalidRequestError("after", "cannot use both 'after' and 'before' cursors")
	}

	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}

	if s := q.Get("language_id"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil || id < 1 {
			return opts, api.NewInvalidRequestError("language_id", "language_id must be a positive integer")
		}
		opts.LanguageID = id
	}

	if s := q.Get("flavor"); s != "" {
		f, err := judge0.ParseFlavor(s)
		if err != nil {
			return opts, api.NewInvalidRequestError("flavor", "flavor must be 'CE' or 'EXTRA_CE'")
		}
		opts.Flavor = f.String()
	}

	return opts, nil
}

// writeExecutorError reports a failure as a run.failed event once
// streaming has begun, and as a JSON error otherwise.
func (a *Adapter) writeExecutorError(w http.ResponseWriter, rw *sseRunWriter, err error) {
	apiErr := transport.FromError(err)

	if rw.hasStartedStreaming() {
		rw.WriteEvent(context.Background(), api.RunEvent{
			Type: api.RunEventFailed,
			Run:  &api.Run{Object: "run", State: api.RunFailed, Error: apiErr},
		})
		return
	}
	transport.WriteAPIError(w, apiErr)
}
