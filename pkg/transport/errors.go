package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/judge0"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeUpstreamError:
		return http.StatusBadGateway
	case api.ErrorTypeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a run lifecycle error into an APIError. An *APIError
// anywhere in the chain is returned as is.
func FromError(err error) *api.APIError {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	var verr *judge0.ValidationError
	var terr *judge0.TransportError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &verr):
		return api.NewInvalidRequestError(verr.Field, verr.Message)
	case errors.Is(err, judge0.ErrProbeLimitExceeded):
		return api.NewUpstreamTimeoutError(err.Error())
	case errors.As(err, &terr):
		return api.NewUpstreamError(terr.Op, terr.Error())
	case errors.Is(err, context.Canceled):
		return &api.APIError{Type: api.ErrorTypeServerError, Code: "cancelled", Message: "run cancelled"}
	default:
		return api.NewServerError(err.Error())
	}
}

// WriteErrorResponse writes a JSON error response in the api.ErrorResponse
// envelope with the given status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError converts err with FromError and writes it.
func WriteError(w http.ResponseWriter, err error) {
	WriteAPIError(w, FromError(err))
}
