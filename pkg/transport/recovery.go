package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/judgeide/pkg/api"
)

// Recovery returns middleware that turns a panic in the executor into a
// server error. The server keeps accepting runs afterwards.
func Recovery() Middleware {
	return func(next RunExecutor) RunExecutor {
		return RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.ExecuteRun(ctx, req, w)
		})
	}
}
