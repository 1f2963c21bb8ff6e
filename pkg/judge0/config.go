package judge0

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// Default public endpoints.
const (
	DefaultCEAuthURL        = "https://judge0-ce.p.sulu.sh"
	DefaultExtraCEAuthURL   = "https://judge0-extra-ce.p.sulu.sh"
	DefaultCEUnauthURL      = "https://ce.judge0.com"
	DefaultExtraCEUnauthURL = "https://extra-ce.judge0.com"
)

// Endpoint holds the base URLs and credential of one flavor. Submissions go
// to AuthURL (with APIKey when set); polling and language lookups go to
// UnauthURL without credentials.
type Endpoint struct {
	AuthURL   string
	UnauthURL string
	APIKey    string
}

// DelayPolicy returns the wait before the next probe, given the number of
// probes already issued.
type DelayPolicy func(probe int) time.Duration

// ConstantDelay waits d between every probe.
func ConstantDelay(d time.Duration) DelayPolicy {
	return func(int) time.Duration { return d }
}

// ExponentialDelay doubles the wait after every probe, starting from base
// and capped at max.
func ExponentialDelay(base, max time.Duration) DelayPolicy {
	return func(probe int) time.Duration {
		if probe < 1 {
			probe = 1
		}
		d := float64(base) * math.Pow(2, float64(probe-1))
		if max > 0 && d > float64(max) {
			return max
		}
		return time.Duration(d)
	}
}

// Config holds configuration for the Judge0 client.
type Config struct {
	CE      Endpoint
	ExtraCE Endpoint

	// Timeout for individual HTTP requests. Defaults to 30s.
	Timeout time.Duration

	// InitialDelay is the wait before the first probe. Defaults to 0.
	InitialDelay time.Duration

	// Delay computes the wait between probes. Defaults to ConstantDelay(100ms).
	Delay DelayPolicy

	// MaxProbes caps the number of status requests per submission. Defaults to 50.
	MaxProbes int

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a Config pointing at the public Judge0 deployments.
func DefaultConfig() Config {
	return Config{
		CE: Endpoint{
			AuthURL:   DefaultCEAuthURL,
			UnauthURL: DefaultCEUnauthURL,
		},
		ExtraCE: Endpoint{
			AuthURL:   DefaultExtraCEAuthURL,
			UnauthURL: DefaultExtraCEUnauthURL,
		},
		Timeout:   30 * time.Second,
		Delay:     ConstantDelay(100 * time.Millisecond),
		MaxProbes: 50,
	}
}

// applyDefaults fills in zero-value fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Delay == nil {
		c.Delay = ConstantDelay(100 * time.Millisecond)
	}
	if c.MaxProbes <= 0 {
		c.MaxProbes = 50
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	c.CE = c.CE.normalized()
	c.ExtraCE = c.ExtraCE.normalized()
}

func (e Endpoint) normalized() Endpoint {
	e.AuthURL = strings.TrimRight(e.AuthURL, "/")
	e.UnauthURL = strings.TrimRight(e.UnauthURL, "/")
	if e.UnauthURL == "" {
		e.UnauthURL = e.AuthURL
	}
	if e.AuthURL == "" {
		e.AuthURL = e.UnauthURL
	}
	return e
}

// Endpoint returns the endpoint configuration of a flavor.
func (c *Config) Endpoint(f Flavor) (Endpoint, error) {
	switch f {
	case FlavorCE:
		return c.CE, nil
	case FlavorExtraCE:
		return c.ExtraCE, nil
	default:
		return Endpoint{}, fmt.Errorf("judge0: unknown flavor %s", f)
	}
}

// apiKeyKey is a private type for the per-call credential context key.
type apiKeyKey struct{}

// WithAPIKey returns a context whose submissions authenticate with key
// instead of the configured flavor credential.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyKey{}, key)
}

// apiKeyFromContext returns the credential injected with WithAPIKey.
func apiKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(apiKeyKey{}).(string); ok {
		return v
	}
	return ""
}
