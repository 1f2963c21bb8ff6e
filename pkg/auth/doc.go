// Package auth authenticates callers of the judgeide HTTP surface.
//
// A Chain asks its authenticators in turn. Each one accepts (the request
// carries valid credentials), rejects (it carries invalid ones) or abstains
// (it carries none this authenticator understands). The chain's Fallback
// decides when all abstain.
//
// Middleware wires a chain into net/http. Accepted callers are rate limited
// per tier, their tenant scopes the run history, and an identity bound to
// its own Judge0 key submits runs with that key instead of the server's.
package auth
