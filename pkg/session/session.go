// Package session holds the editor state of one connected host and
// orchestrates runs against Judge0 on its behalf: the host bridge actions,
// the four lifecycle hooks and the busy flag that guards concurrent runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
)

// ErrBusy is returned when a run is requested while another is in flight.
var ErrBusy = errors.New("a run is already in progress")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// State is the editor state of a session.
type State struct {
	SourceCode           string        `json:"source_code"`
	LanguageID           int           `json:"language_id"`
	Flavor               judge0.Flavor `json:"flavor"`
	Stdin                string        `json:"stdin"`
	Stdout               string        `json:"stdout"`
	CompilerOptions      string        `json:"compiler_options"`
	CommandLineArguments string        `json:"command_line_arguments"`
}

// LanguageChecker reports whether a flavor offers a language.
type LanguageChecker interface {
	Has(ctx context.Context, flavor judge0.Flavor, id int) bool
}

// Session is the explicit context of one host: its editor state, credential
// and in-flight job. It is safe for concurrent use.
type Session struct {
	id       string
	runner   *judge0.Runner
	langs    LanguageChecker
	hooks    Hooks
	openedAt time.Time

	mu         sync.Mutex
	state      State
	apiKey     string
	busy       bool
	closed     bool
	statusLine string
	job        *judge0.Job
	cancel     context.CancelFunc
}

// New creates a session with the default state. langs may be nil, in which
// case any language is accepted.
func New(id string, runner *judge0.Runner, langs LanguageChecker, hooks Hooks) *Session {
	return &Session{
		id:       id,
		runner:   runner,
		langs:    langs,
		hooks:    hooks,
		openedAt: time.Now(),
		state:    Defaults(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of the editor state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StatusLine returns the text of the status line.
func (s *Session) StatusLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLine
}

// Busy reports whether a run is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Job returns the most recent job, or nil if the session never ran.
func (s *Session) Job() *judge0.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Apply mutates the state from a "set" message.
func (s *Session) Apply(ctx context.Context, m Message) {
	var (
		flavor   judge0.Flavor
		langOK   bool
		langSkip string
	)
	if m.LanguageID != 0 && m.Flavor != "" {
		f, err := judge0.ParseFlavor(m.Flavor)
		switch {
		case err != nil:
			langSkip = err.Error()
		case s.langs != nil && !s.langs.Has(ctx, f, m.LanguageID):
			langSkip = "language not offered by flavor"
		default:
			flavor, langOK = f, true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m.SourceCode != "" {
		s.state.SourceCode = m.SourceCode
	}
	if langOK {
		s.state.LanguageID = m.LanguageID
		s.state.Flavor = flavor
	}
	if m.Stdin != "" {
		s.state.Stdin = m.Stdin
	}
	if m.Stdout != "" {
		s.state.Stdout = m.Stdout
	}
	if m.CompilerOptions != "" {
		s.state.CompilerOptions = m.CompilerOptions
	}
	if m.CommandLineArguments != "" {
		s.state.CommandLineArguments = m.CommandLineArguments
	}
	if m.APIKey != "" {
		s.apiKey = m.APIKey
	}
	if langSkip != "" {
		debug.Log("session", "language change ignored", "session", s.id, "language_id", m.LanguageID, "flavor", m.Flavor, "reason", langSkip)
	}
}

// Clear empties the source, stdin, compiler options, arguments and status line.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SourceCode = ""
	s.state.Stdin = ""
	s.state.CompilerOptions = ""
	s.state.CommandLineArguments = ""
	s.statusLine = ""
}

// Reset restores the default state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Defaults()
	s.statusLine = ""
}

// Run submits the current state. It returns as soon as the submission has
// been handed to the runner; the outcome is reported through the
// PostExecution or RunError hook and through the returned job. Every failure
// fires RunError and leaves the session idle.
func (s *Session) Run(ctx context.Context) (*judge0.Job, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	st := s.state
	req := judge0.SubmissionRequest{
		SourceCode:             st.SourceCode,
		LanguageID:             st.LanguageID,
		Flavor:                 st.Flavor,
		Stdin:                  st.Stdin,
		CompilerOptions:        st.CompilerOptions,
		CommandLineArguments:   st.CommandLineArguments,
		RedirectStderrToStdout: true,
	}
	if err := judge0.ValidateRequest(&req); err != nil {
		s.mu.Unlock()
		s.fireRunError(err)
		return nil, err
	}

	s.busy = true
	s.state.Stdout = ""
	s.statusLine = ""
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.apiKey != "" {
		runCtx = judge0.WithAPIKey(runCtx, s.apiKey)
	}
	s.mu.Unlock()

	if s.hooks.PreExecution != nil {
		s.hooks.PreExecution(PreExecution{
			Event:                EventPreExecution,
			SourceCode:           req.SourceCode,
			LanguageID:           req.LanguageID,
			Flavor:               req.Flavor,
			Stdin:                req.Stdin,
			CompilerOptions:      req.CompilerOptions,
			CommandLineArguments: req.CommandLineArguments,
		})
	}

	job := s.runner.Start(runCtx, req, judge0.Observer{
		Probed: func(_ judge0.Handle, _ int, st judge0.Status) {
			if !st.Terminal() {
				s.mu.Lock()
				s.statusLine = st.Description
				s.mu.Unlock()
			}
		},
		Finished: func(_ *judge0.SubmissionRequest, res *judge0.Result, err error, tat time.Duration) {
			cancel()
			s.finish(res, err, tat)
		},
	})

	s.mu.Lock()
	s.job = job
	s.mu.Unlock()
	return job, nil
}

func (s *Session) finish(res *judge0.Result, err error, tat time.Duration) {
	s.mu.Lock()
	s.busy = false
	s.cancel = nil
	if err != nil {
		s.statusLine = err.Error()
		s.mu.Unlock()
		slog.Warn("run failed", "session", s.id, "error", err)
		s.fireRunError(err)
		return
	}
	output := res.Output()
	s.state.Stdout = output
	s.statusLine = FormatStatusLine(res, tat)
	s.mu.Unlock()

	debug.Log("session", "run finished", "session", s.id, "status", res.Status.Description, "tat_ms", tat.Milliseconds())
	if s.hooks.PostExecution != nil {
		ev := PostExecution{
			Event:        EventPostExecution,
			Status:       res.Status,
			Memory:       res.Memory,
			Output:       output,
			TurnaroundMS: tat.Milliseconds(),
		}
		if res.Time != "" {
			t := res.Time
			ev.Time = &t
		}
		s.hooks.PostExecution(ev)
	}
}

func (s *Session) fireRunError(err error) {
	if s.hooks.RunError != nil {
		s.hooks.RunError(RunError{
			Event:  EventRunError,
			Error:  err.Error(),
			Status: judge0.HTTPStatus(err),
		})
	}
}

// Close cancels any in-flight run. A cancelled run still fires RunError.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Handle processes one bridge message and returns the direct reply, if
// any. Lifecycle events are delivered through the hooks, not the reply.
func (s *Session) Handle(ctx context.Context, raw []byte) (any, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	debug.Log("session", "message", "session", s.id, "action", m.Action)

	switch m.Action {
	case ActionGet:
		return GetResponse{Event: EventGetResponse, State: s.State()}, nil
	case ActionSet:
		s.Apply(ctx, m)
		return nil, nil
	case ActionRun:
		_, err := s.Run(ctx)
		if err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrClosed) {
			// Already reported through RunError.
			return nil, nil
		}
		return nil, err
	case ActionClear:
		s.Clear()
		return nil, nil
	case ActionDefaults:
		s.Reset()
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown action %q", m.Action)
	}
}

// FormatStatusLine renders a terminal result as
// "<description>, <time>, <memory> (TAT: <n>ms)".
func FormatStatusLine(res *judge0.Result, tat time.Duration) string {
	return fmt.Sprintf("%s, %s, %s (TAT: %dms)", res.Status.Description, res.TimeLabel(), res.MemoryLabel(), tat.Milliseconds())
}
