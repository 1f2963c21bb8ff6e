package api

import "github.com/rhuss/judgeide/pkg/judge0"

// RunEventType identifies a progress event of a streamed run.
type RunEventType string

const (
	RunEventCreated   RunEventType = "run.created"
	RunEventSubmitted RunEventType = "run.submitted"
	RunEventProbe     RunEventType = "run.probe"
	RunEventCompleted RunEventType = "run.completed"
	RunEventFailed    RunEventType = "run.failed"
)

// Terminal reports whether no further events follow this one.
func (t RunEventType) Terminal() bool {
	return t == RunEventCompleted || t == RunEventFailed
}

// RunEvent is one server-sent event of a streamed run.
type RunEvent struct {
	Type           RunEventType `json:"type"`
	SequenceNumber int          `json:"sequence_number"`
	RunID          string       `json:"run_id"`

	// Token is set from run.submitted on.
	Token string `json:"token,omitempty"`

	// Probe and Status are set on run.probe.
	Probe  int            `json:"probe,omitempty"`
	Status *judge0.Status `json:"status,omitempty"`

	// Run is the final record on terminal events.
	Run *Run `json:"run,omitempty"`
}
