// Package apikey authenticates static bearer keys, e.g. one key per
// classroom or embedding site. Keys are kept only as SHA-256 digests and
// compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/rhuss/judgeide/pkg/auth"
)

// Key binds a plaintext key to the identity it authenticates.
type Key struct {
	Key      string
	Identity auth.Identity
}

type entry struct {
	digest   [sha256.Size]byte
	identity auth.Identity
}

// Authenticator checks bearer tokens against a fixed key set.
type Authenticator struct {
	entries []entry
}

// New hashes keys and returns an Authenticator for them. Empty keys are
// ignored.
func New(keys []Key) *Authenticator {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		if k.Key == "" {
			continue
		}
		a.entries = append(a.entries, entry{digest: sha256.Sum256([]byte(k.Key)), identity: k.Identity})
	}
	return a
}

// Authenticate abstains without a bearer token and rejects unknown keys.
// Every entry is compared so the time taken does not depend on which key
// matched.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	digest := sha256.Sum256([]byte(token))

	match := -1
	for i := range a.entries {
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 && match < 0 {
			match = i
		}
	}
	if token == "" || match < 0 {
		return auth.Result{Decision: auth.Reject, Err: auth.ErrUnauthenticated}
	}
	id := a.entries[match].identity
	return auth.Result{Decision: auth.Accept, Identity: &id}
}
