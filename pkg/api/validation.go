package api

import (
	"fmt"
	"strings"

	"github.com/rhuss/judgeide/pkg/judge0"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxSourceSize int
	MaxStdinSize  int
}

// DefaultValidationConfig returns the default limits.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxSourceSize: 1024 * 1024,
		MaxStdinSize:  1024 * 1024,
	}
}

// ValidateRunRequest returns an *APIError for the first invalid field, or nil.
func ValidateRunRequest(req *RunRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.SourceCode) == "" {
		return NewInvalidRequestError("source_code", "Source code can't be empty!")
	}
	if cfg.MaxSourceSize > 0 && len(req.SourceCode) > cfg.MaxSourceSize {
		return NewInvalidRequestError("source_code",
			fmt.Sprintf("source_code exceeds maximum of %d bytes", cfg.MaxSourceSize))
	}
	if cfg.MaxStdinSize > 0 && len(req.Stdin) > cfg.MaxStdinSize {
		return NewInvalidRequestError("stdin",
			fmt.Sprintf("stdin exceeds maximum of %d bytes", cfg.MaxStdinSize))
	}
	if req.LanguageID <= 0 {
		return NewInvalidRequestError("language_id", "language_id must be a positive integer")
	}
	if _, err := judge0.ParseFlavor(req.Flavor); err != nil {
		return NewInvalidRequestError("flavor", "flavor must be 'CE' or 'EXTRA_CE'")
	}
	return nil
}
