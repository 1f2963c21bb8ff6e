// Package noop admits every request as the anonymous identity. It backs
// auth type "none", the default for a local IDE.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/judgeide/pkg/auth"
)

// Authenticator accepts every request.
type Authenticator struct{}

// Authenticate returns auth.Accept with auth.Anonymous.
func (Authenticator) Authenticate(context.Context, *http.Request) auth.Result {
	return auth.Result{Decision: auth.Accept, Identity: auth.Anonymous()}
}
