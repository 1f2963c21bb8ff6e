package server

import (
	"fmt"
	"net/http"

	"github.com/rhuss/judgeide/pkg/auth"
	"github.com/rhuss/judgeide/pkg/auth/apikey"
	"github.com/rhuss/judgeide/pkg/auth/jwt"
	"github.com/rhuss/judgeide/pkg/auth/noop"
	"github.com/rhuss/judgeide/pkg/config"
)

// AuthMiddleware builds the authentication and rate limiting middleware
// described by cfg. Type "none" admits every caller as "anonymous" but
// still applies the default rate limit.
func AuthMiddleware(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	authn, err := authenticator(cfg)
	if err != nil {
		return nil, err
	}
	chain := &auth.Chain{Authenticators: []auth.Authenticator{authn}, Fallback: auth.Reject}

	var limiter auth.Limiter
	if cfg.RateLimit.DefaultRPM > 0 || len(cfg.RateLimit.Tiers) > 0 {
		limiter = auth.NewTierLimiter(cfg.RateLimit.Tiers, cfg.RateLimit.DefaultRPM)
	}
	return auth.Middleware(chain, limiter), nil
}

func authenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	switch cfg.Type {
	case "", "none":
		return noop.Authenticator{}, nil
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, apikey.Key{Key: k.Key, Identity: auth.Identity{
				Subject:   k.Subject,
				Tier:      k.ServiceTier,
				Tenant:    k.TenantID,
				Judge0Key: k.Judge0APIKey,
			}})
		}
		return apikey.New(keys), nil
	case "jwt":
		return jwt.New(jwt.Config{
			Secret:      cfg.JWT.Secret,
			JWKSURL:     cfg.JWT.JWKSURL,
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			TenantClaim: cfg.JWT.TenantClaim,
			TierClaim:   cfg.JWT.TierClaim,
			Leeway:      cfg.JWT.Leeway,
			CacheTTL:    cfg.JWT.CacheTTL,
		})
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}
