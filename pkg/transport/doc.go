// Package transport defines the run executor contract and the middleware
// chain shared by judgeide's HTTP surfaces.
//
// A RunExecutor takes a RunRequest and writes either progress events or a
// finished Run to a RunWriter; the HTTP adapter in the http subpackage
// provides the writer (JSON or server-sent events). A RunStore persists
// finished runs for the history endpoints.
//
// # Middleware
//
// Middleware wraps a RunExecutor. Built-in middleware provides panic
// recovery, request ID assignment (X-Request-ID) and structured logging
// via log/slog.
//
// # Errors
//
// FromError maps Judge0 lifecycle errors onto api.APIError values and
// HTTPStatusFromError maps those onto status codes: validation failures
// are 400, an exhausted probe budget is 504 and transport failures are 502.
package transport
