package judge0

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrProbeLimitExceeded is returned by Poll when the probe budget is spent
// before the submission reaches a terminal status. It is fatal and is not a
// job failure: the job may still finish on the service side.
var ErrProbeLimitExceeded = errors.New("maximum number of probe requests reached")

// TransportError reports a network or HTTP failure talking to Judge0.
// Transport errors are never retried.
type TransportError struct {
	// Op is the operation that failed: "submit", "poll", "languages",
	// "language" or "additional_files".
	Op string

	// StatusCode is the HTTP status, zero for network-level failures.
	StatusCode int

	// Body holds the start of the error response body, if any.
	Body string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("judge0 %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("judge0 %s: HTTP %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("judge0 %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("judge0 %s: transport error", e.Op)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError rejects a request before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// HTTPStatus maps a lifecycle error to the HTTP status a proxy should
// answer with.
func HTTPStatus(err error) int {
	var verr *ValidationError
	var terr *TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrProbeLimitExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &terr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
