package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// Each flavor needs at least one usable base URL.
	for name, ep := range map[string]EndpointConfig{"judge0.ce": c.Judge0.CE, "judge0.extra_ce": c.Judge0.ExtraCE} {
		if ep.AuthURL == "" && ep.UnauthURL == "" {
			errs = append(errs, fmt.Errorf("%s.auth_url or %s.unauth_url is required", name, name))
			continue
		}
		for _, raw := range []string{ep.AuthURL, ep.UnauthURL} {
			if raw == "" {
				continue
			}
			if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("%s: invalid URL %q", name, raw))
			}
		}
	}

	if c.Judge0.MaxProbes <= 0 {
		errs = append(errs, fmt.Errorf("judge0.max_probes must be > 0, got %d", c.Judge0.MaxProbes))
	}
	if c.Judge0.PollDelay < 0 || c.Judge0.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("judge0 delays must not be negative"))
	}

	switch c.Judge0.Backoff {
	case "constant", "exponential":
		// valid
	default:
		errs = append(errs, fmt.Errorf("judge0.backoff must be \"constant\" or \"exponential\", got %q", c.Judge0.Backoff))
	}

	switch c.Assist.Provider {
	case "gemini", "openai":
		// valid
	default:
		errs = append(errs, fmt.Errorf("assist.provider must be \"gemini\" or \"openai\", got %q", c.Assist.Provider))
	}

	switch c.History.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("history.type must be \"memory\" or \"postgres\", got %q", c.History.Type))
	}

	if c.History.Type == "postgres" {
		if c.History.Postgres.DSN == "" && c.History.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("history.postgres.dsn or history.postgres.dsn_file is required when history.type is \"postgres\""))
		}
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.type is \"apikey\""))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path must start with \"/\", got %q", c.MCP.Path))
	}

	return errors.Join(errs...)
}
