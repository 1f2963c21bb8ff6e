package api

import (
	"time"

	"github.com/rhuss/judgeide/pkg/judge0"
)

// RunRequest asks the server to execute source code. Text fields are plain
// text; the server takes care of transport encoding.
type RunRequest struct {
	SourceCode           string `json:"source_code"`
	LanguageID           int    `json:"language_id"`
	Flavor               string `json:"flavor,omitempty"`
	Stdin                string `json:"stdin,omitempty"`
	CompilerOptions      string `json:"compiler_options,omitempty"`
	CommandLineArguments string `json:"command_line_arguments,omitempty"`

	// RedirectStderrToStdout defaults to true when omitted.
	RedirectStderrToStdout *bool `json:"redirect_stderr_to_stdout,omitempty"`

	// AdditionalFiles is a base64 zip; for SQLite the server attaches its
	// own bundle when empty.
	AdditionalFiles string `json:"additional_files,omitempty"`

	// Stream asks for progress as server-sent events instead of a single
	// JSON record.
	Stream bool `json:"stream,omitempty"`
}

// Submission converts the request into a judge0 submission. The flavor must
// already have been validated.
func (r *RunRequest) Submission() judge0.SubmissionRequest {
	flavor, _ := judge0.ParseFlavor(r.Flavor)
	redirect := true
	if r.RedirectStderrToStdout != nil {
		redirect = *r.RedirectStderrToStdout
	}
	return judge0.SubmissionRequest{
		SourceCode:             r.SourceCode,
		LanguageID:             r.LanguageID,
		Flavor:                 flavor,
		Stdin:                  r.Stdin,
		CompilerOptions:        r.CompilerOptions,
		CommandLineArguments:   r.CommandLineArguments,
		RedirectStderrToStdout: redirect,
		AdditionalFiles:        r.AdditionalFiles,
	}
}

// RunState is the lifecycle state of a stored run.
type RunState string

const (
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// Run is an execution record. Completed runs carry the Judge0 result;
// failed runs carry an error instead.
type Run struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	CreatedAt int64    `json:"created_at"`
	State     RunState `json:"state"`
	Tenant    string   `json:"tenant,omitempty"`

	LanguageID int           `json:"language_id"`
	Flavor     judge0.Flavor `json:"flavor"`
	SourceCode string        `json:"source_code"`
	Stdin      string        `json:"stdin,omitempty"`

	Token        string         `json:"token,omitempty"`
	Status       *judge0.Status `json:"status,omitempty"`
	Output       string         `json:"output"`
	Time         string         `json:"time,omitempty"`
	Memory       *int64         `json:"memory,omitempty"`
	TurnaroundMS int64          `json:"tat_ms"`
	StatusLine   string         `json:"status_line,omitempty"`

	Error *APIError `json:"error,omitempty"`
}

// NewRun builds the record of a finished execution. Exactly one of res and
// runErr is expected to be set. An empty id gets a fresh run ID.
func NewRun(id string, req judge0.SubmissionRequest, res *judge0.Result, runErr *APIError, tat time.Duration) *Run {
	if id == "" {
		id = NewRunID()
	}
	run := &Run{
		ID:           id,
		Object:       "run",
		CreatedAt:    time.Now().Unix(),
		LanguageID:   req.LanguageID,
		Flavor:       req.Flavor,
		SourceCode:   req.SourceCode,
		Stdin:        req.Stdin,
		TurnaroundMS: tat.Milliseconds(),
	}
	if runErr != nil {
		run.State = RunFailed
		run.Error = runErr
		return run
	}
	status := res.Status
	run.State = RunCompleted
	run.Token = res.Token
	run.Status = &status
	run.Output = res.Output()
	run.Time = res.Time
	run.Memory = res.Memory
	return run
}

// RunList is one page of runs, newest first.
type RunList struct {
	Object  string `json:"object"`
	Data    []*Run `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// LanguageList is the response of the language listing endpoint.
type LanguageList struct {
	Object string `json:"object"`
	Data   any    `json:"data"`
}
