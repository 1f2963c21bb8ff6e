package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/judgeide/pkg/api"
)

// Logging returns middleware that emits one structured log entry per run
// with the request ID, language, flavor, stream flag and duration.
// HTTP status codes are logged by the server's access log, not here.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next RunExecutor) RunExecutor {
		return RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
			start := time.Now()

			err := next.ExecuteRun(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.Int("language_id", req.LanguageID),
				slog.String("flavor", req.Flavor),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "run failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "run completed", attrs...)
			}
			return err
		})
	}
}
