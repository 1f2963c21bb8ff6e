package auth

import (
	"context"
	"errors"
	"net/http"
)

// Decision is the vote of one authenticator.
type Decision int

const (
	// Abstain passes the request to the next authenticator, e.g. when it
	// carries no credential this authenticator understands.
	Abstain Decision = iota

	// Accept stops the chain and admits the request with Result.Identity.
	Accept

	// Reject stops the chain and refuses the request.
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "abstain"
	}
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set on Accept
	Err      error     // set on Reject
}

// Identity is an authenticated IDE user or service.
type Identity struct {
	// Subject identifies the caller; never empty on an accepted request.
	Subject string

	// Tier selects the run rate limit. Empty means "default".
	Tier string

	// Tenant scopes the run history. Empty shares the global history.
	Tenant string

	// Judge0Key replaces the configured Judge0 credential for runs
	// submitted by this caller.
	Judge0Key string
}

// anonymous is admitted by the noop authenticator and by a chain whose
// default decision is Accept.
var anonymous = Identity{Subject: "anonymous"}

// Anonymous returns a fresh anonymous identity.
func Anonymous() *Identity {
	id := anonymous
	return &id
}

// TierName returns Tier, or "default" when unset.
func (id *Identity) TierName() string {
	if id == nil || id.Tier == "" {
		return "default"
	}
	return id.Tier
}

// Authenticator votes on the credentials of one request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("run rate limit exceeded")
)

// Chain asks its authenticators in order until one accepts or rejects.
type Chain struct {
	Authenticators []Authenticator

	// Fallback decides when every authenticator abstains. Only Accept
	// admits; the zero value rejects.
	Fallback Decision
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.Fallback == Accept {
		return Result{Decision: Accept, Identity: Anonymous()}
	}
	return Result{Decision: Reject, Err: ErrUnauthenticated}
}
