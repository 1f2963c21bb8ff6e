package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/history"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/observability"
	"github.com/rhuss/judgeide/pkg/transport"
)

// Middleware authenticates every request with chain and, when limiter is
// not nil, applies the caller's rate limit. Admitted requests carry the
// identity (IdentityFrom), its history tenant and, if the identity has one,
// its Judge0 credential in their context.
func Middleware(chain *Chain, limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := chain.Authenticate(r.Context(), r)
			id := res.Identity

			if res.Decision != Accept || id == nil {
				slog.Warn("authentication failed", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", res.Err)
				transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
				return
			}
			if id.Subject == "" {
				slog.Error("authenticator accepted an identity without subject", "path", r.URL.Path)
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
				return
			}
			debug.Log("auth", "accepted", "subject", id.Subject, "tier", id.TierName(), "path", r.URL.Path)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", id.TierName())
					observability.RateLimitRejectedTotal.WithLabelValues(id.TierName()).Inc()
					transport.WriteAPIError(w, api.NewTooManyRequestsError(err.Error()))
					return
				}
			}

			ctx := WithIdentity(r.Context(), id)
			if id.Tenant != "" {
				ctx = history.WithTenant(ctx, id.Tenant)
			}
			if id.Judge0Key != "" {
				ctx = judge0.WithAPIKey(ctx, id.Judge0Key)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
