package transport

import (
	"context"

	"github.com/rhuss/judgeide/pkg/api"
)

// RunExecutor handles the core execute-run operation. The implementation
// receives a validated-shape request and writes either progress events or
// the finished record to the RunWriter.
type RunExecutor interface {
	ExecuteRun(ctx context.Context, req *api.RunRequest, w RunWriter) error
}

// RunExecutorFunc is an adapter that allows using an ordinary function
// as a RunExecutor.
type RunExecutorFunc func(ctx context.Context, req *api.RunRequest, w RunWriter) error

// ExecuteRun calls f(ctx, req, w).
func (f RunExecutorFunc) ExecuteRun(ctx context.Context, req *api.RunRequest, w RunWriter) error {
	return f(ctx, req, w)
}

// ListOptions controls pagination, filtering, and ordering for list operations.
type ListOptions struct {
	After      string // Cursor: return items after this ID.
	Before     string // Cursor: return items before this ID.
	Limit      int    // Maximum number of items to return (default 20, max 100).
	LanguageID int    // Filter by language id, 0 for all.
	Flavor     string // Filter by flavor wire name, empty for all.
	Order      string // Sort order: "asc" or "desc" (default "desc").
}

// RunStore persists finished runs. Stores scope every operation by the
// tenant carried in the context, if any.
type RunStore interface {
	// SaveRun persists a finished run. Saving an existing ID returns
	// history.ErrConflict.
	SaveRun(ctx context.Context, run *api.Run) error

	// GetRun retrieves a run by ID. Returns history.ErrNotFound if the run
	// does not exist or has been deleted.
	GetRun(ctx context.Context, id string) (*api.Run, error)

	// DeleteRun removes a run by ID.
	DeleteRun(ctx context.Context, id string) error

	// ListRuns returns a page of stored runs.
	ListRuns(ctx context.Context, opts ListOptions) (*api.RunList, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases connections and resources.
	Close() error
}

// RunWriter abstracts streaming and non-streaming output for the executor.
//
// WriteEvent and WriteRun are mutually exclusive on a single writer
// instance. Calling WriteEvent after a terminal event returns an error.
type RunWriter interface {
	// WriteEvent sends a single progress event.
	WriteEvent(ctx context.Context, event api.RunEvent) error

	// WriteRun sends the finished run as one JSON document.
	WriteRun(ctx context.Context, run *api.Run) error

	// Flush ensures buffered data is sent to the client.
	Flush() error
}
