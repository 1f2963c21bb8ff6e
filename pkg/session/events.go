package session

import (
	"github.com/rhuss/judgeide/pkg/judge0"
)

// Event names sent to the host.
const (
	EventInitialised   = "initialised"
	EventGetResponse   = "getResponse"
	EventPreExecution  = "preExecution"
	EventPostExecution = "postExecution"
	EventRunError      = "runError"
)

// Actions accepted from the host.
const (
	ActionGet      = "get"
	ActionSet      = "set"
	ActionRun      = "run"
	ActionClear    = "clear"
	ActionDefaults = "defaults"
)

// Message is an inbound host message. For "set", only non-empty fields are
// applied; the language changes only when both LanguageID and Flavor are set.
type Message struct {
	Action               string `json:"action"`
	SourceCode           string `json:"source_code,omitempty"`
	LanguageID           int    `json:"language_id,omitempty"`
	Flavor               string `json:"flavor,omitempty"`
	Stdin                string `json:"stdin,omitempty"`
	Stdout               string `json:"stdout,omitempty"`
	CompilerOptions      string `json:"compiler_options,omitempty"`
	CommandLineArguments string `json:"command_line_arguments,omitempty"`
	APIKey               string `json:"api_key,omitempty"`
}

// Initialised is sent once the session is ready.
type Initialised struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
}

// GetResponse answers a "get" action with the current state.
type GetResponse struct {
	Event string `json:"event"`
	State
}

// PreExecution is sent right before a submission leaves the session. Text
// fields are plain, not encoded.
type PreExecution struct {
	Event                string        `json:"event"`
	SourceCode           string        `json:"source_code"`
	LanguageID           int           `json:"language_id"`
	Flavor               judge0.Flavor `json:"flavor"`
	Stdin                string        `json:"stdin"`
	CompilerOptions      string        `json:"compiler_options"`
	CommandLineArguments string        `json:"command_line_arguments"`
}

// PostExecution reports a terminal result.
type PostExecution struct {
	Event  string        `json:"event"`
	Status judge0.Status `json:"status"`

	// Time and Memory are null when Judge0 did not report them.
	Time   *string `json:"time"`
	Memory *int64  `json:"memory"`

	Output       string `json:"output"`
	TurnaroundMS int64  `json:"tat_ms"`
}

// RunError reports a failed run. Status is the HTTP-equivalent code of the
// failure (400, 502, 504 or 500).
type RunError struct {
	Event  string `json:"event"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// Hooks observe the session lifecycle. Every field is optional. Hooks are
// called without the session lock held and may call back into the session.
type Hooks struct {
	Initialised   func(Initialised)
	PreExecution  func(PreExecution)
	PostExecution func(PostExecution)
	RunError      func(RunError)
}

// EmitHooks returns Hooks forwarding every event to emit, for transports
// that relay events to a remote host unchanged.
func EmitHooks(emit func(event any)) Hooks {
	return Hooks{
		Initialised:   func(e Initialised) { emit(e) },
		PreExecution:  func(e PreExecution) { emit(e) },
		PostExecution: func(e PostExecution) { emit(e) },
		RunError:      func(e RunError) { emit(e) },
	}
}
