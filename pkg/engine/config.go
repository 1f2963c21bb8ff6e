package engine

import "github.com/rhuss/judgeide/pkg/api"

// Config holds configuration for the run engine.
type Config struct {
	// Validation bounds request sizes. Zero limits are not enforced.
	Validation api.ValidationConfig

	// SkipFailed keeps failed runs out of the history store.
	SkipFailed bool
}
