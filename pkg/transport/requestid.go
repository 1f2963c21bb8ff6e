package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rhuss/judgeide/pkg/api"
)

// RequestID returns middleware that makes sure every run carries a request
// ID. An ID already in the context (from the X-Request-ID header) wins.
func RequestID() Middleware {
	return func(next RunExecutor) RunExecutor {
		return RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.ExecuteRun(ctx, req, w)
		})
	}
}

// NewRequestID creates a random 32 character hex request ID.
func NewRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
