package config

import (
	"time"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/judge0"
)

// ClientConfig converts the judge0 section into a client configuration.
func (c *Judge0Config) ClientConfig() judge0.Config {
	cfg := judge0.Config{
		CE: judge0.Endpoint{
			AuthURL:   c.CE.AuthURL,
			UnauthURL: c.CE.UnauthURL,
			APIKey:    c.CE.APIKey,
		},
		ExtraCE: judge0.Endpoint{
			AuthURL:   c.ExtraCE.AuthURL,
			UnauthURL: c.ExtraCE.UnauthURL,
			APIKey:    c.ExtraCE.APIKey,
		},
		Timeout:      c.Timeout,
		InitialDelay: c.InitialDelay,
		MaxProbes:    c.MaxProbes,
	}
	cfg.Delay = c.DelayPolicy()
	return cfg
}

// DelayPolicy returns the inter-probe wait selected by backoff.
func (c *Judge0Config) DelayPolicy() judge0.DelayPolicy {
	delay := c.PollDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	if c.Backoff == "exponential" {
		return judge0.ExponentialDelay(delay, c.MaxDelay)
	}
	return judge0.ConstantDelay(delay)
}

// Validation returns the request size limits.
func (c *Judge0Config) Validation() api.ValidationConfig {
	v := api.DefaultValidationConfig()
	if c.MaxSourceSize > 0 {
		v.MaxSourceSize = c.MaxSourceSize
	}
	if c.MaxStdinSize > 0 {
		v.MaxStdinSize = c.MaxStdinSize
	}
	return v
}
