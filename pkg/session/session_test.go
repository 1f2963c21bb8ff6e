package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/judgeide/pkg/judge0"
)

// judge0Stub answers every submission with token "t" and every probe with
// the configured status. When hold is non-nil, probes block until it closes.
type judge0Stub struct {
	status int
	stdout string
	hold   chan struct{}

	mu   sync.Mutex
	auth []string
}

func (j *judge0Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodPost {
		j.mu.Lock()
		j.auth = append(j.auth, r.Header.Get("Authorization"))
		j.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"t"}`))
		return
	}
	if j.hold != nil {
		<-j.hold
	}
	if j.status == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status": map[string]any{"id": j.status, "description": "Accepted"},
		"stdout": judge0.Encode(j.stdout),
		"time":   "0.01",
		"memory": 1200,
	})
}

func newRunner(t *testing.T, stub http.Handler) *judge0.Runner {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	client := judge0.NewClient(judge0.Config{
		CE:        judge0.Endpoint{AuthURL: srv.URL},
		ExtraCE:   judge0.Endpoint{AuthURL: srv.URL},
		Delay:     judge0.ConstantDelay(time.Millisecond),
		MaxProbes: 3,
	})
	return judge0.NewRunner(client, nil)
}

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) hooks() Hooks {
	return EmitHooks(func(e any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

func TestSession_RunSuccess(t *testing.T) {
	stub := &judge0Stub{status: judge0.StatusAccepted, stdout: "line 1: 6\n"}
	rec := &recorder{}
	s := New("s1", newRunner(t, stub), nil, rec.hooks())

	job, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-job.Done()

	if s.Busy() {
		t.Error("session still busy after completion")
	}
	if got := s.State().Stdout; got != "line 1: 6" {
		t.Errorf("stdout = %q", got)
	}
	line := s.StatusLine()
	if !strings.HasPrefix(line, "Accepted, 0.01s, 1200KB (TAT: ") || !strings.HasSuffix(line, "ms)") {
		t.Errorf("status line = %q", line)
	}

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("events = %#v", events)
	}
	pre, ok := events[0].(PreExecution)
	if !ok || pre.LanguageID != judge0.LanguageDefault || pre.SourceCode != DefaultSource {
		t.Errorf("first event = %#v", events[0])
	}
	post, ok := events[1].(PostExecution)
	if !ok {
		t.Fatalf("second event = %#v", events[1])
	}
	if post.Status.ID != judge0.StatusAccepted || post.Output != "line 1: 6" || post.Time == nil || *post.Time != "0.01" {
		t.Errorf("post = %#v", post)
	}
}

func TestSession_RunErrorClearsBusy(t *testing.T) {
	stub := &judge0Stub{}
	rec := &recorder{}
	s := New("s1", newRunner(t, stub), nil, rec.hooks())

	job, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-job.Done()

	if s.Busy() {
		t.Error("session still busy after failure")
	}
	events := rec.all()
	last, ok := events[len(events)-1].(RunError)
	if !ok {
		t.Fatalf("last event = %#v", events[len(events)-1])
	}
	if last.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", last.Status)
	}
}

func TestSession_EmptySource(t *testing.T) {
	rec := &recorder{}
	s := New("s1", newRunner(t, &judge0Stub{}), nil, rec.hooks())
	s.Clear()

	_, err := s.Run(context.Background())
	var verr *judge0.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if s.Busy() {
		t.Error("busy after validation failure")
	}
	events := rec.all()
	if len(events) != 1 {
		t.Fatalf("events = %#v", events)
	}
	if re, ok := events[0].(RunError); !ok || re.Status != http.StatusBadRequest {
		t.Errorf("event = %#v", events[0])
	}
}

func TestSession_BusyRejectsSecondRun(t *testing.T) {
	stub := &judge0Stub{status: judge0.StatusAccepted, hold: make(chan struct{})}
	s := New("s1", newRunner(t, stub), nil, Hooks{})

	job, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Run err = %v, want ErrBusy", err)
	}
	close(stub.hold)
	<-job.Done()

	if _, err := s.Run(context.Background()); err != nil {
		t.Errorf("Run after completion: %v", err)
	}
}

func TestSession_CloseCancelsRun(t *testing.T) {
	stub := &judge0Stub{status: judge0.StatusAccepted, hold: make(chan struct{})}
	defer close(stub.hold)
	rec := &recorder{}
	s := New("s1", newRunner(t, stub), nil, rec.hooks())

	job, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	select {
	case <-job.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job not cancelled by Close")
	}
	if _, err := job.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close err = %v, want ErrClosed", err)
	}
}

func TestSession_APIKeyInjection(t *testing.T) {
	stub := &judge0Stub{status: judge0.StatusAccepted}
	s := New("s1", newRunner(t, stub), nil, Hooks{})
	s.Apply(context.Background(), Message{Action: ActionSet, APIKey: "host-key"})

	job, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	<-job.Done()

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.auth) != 1 || stub.auth[0] != "Bearer host-key" {
		t.Errorf("auth = %v", stub.auth)
	}
}

type onlyLanguage struct{ id int }

func (o onlyLanguage) Has(_ context.Context, _ judge0.Flavor, id int) bool { return id == o.id }

func TestSession_Apply(t *testing.T) {
	s := New("s1", nil, onlyLanguage{id: 71}, Hooks{})
	ctx := context.Background()

	s.Apply(ctx, Message{Action: ActionSet, SourceCode: "print(1)", LanguageID: 71, Flavor: "CE", Stdin: "in"})
	st := s.State()
	if st.SourceCode != "print(1)" || st.LanguageID != 71 || st.Stdin != "in" {
		t.Errorf("state = %+v", st)
	}
	if st.CompilerOptions != "" {
		t.Errorf("compiler options changed: %q", st.CompilerOptions)
	}

	// Empty fields leave the state alone.
	s.Apply(ctx, Message{Action: ActionSet, CompilerOptions: "-O2"})
	st = s.State()
	if st.SourceCode != "print(1)" || st.CompilerOptions != "-O2" {
		t.Errorf("state = %+v", st)
	}

	// Language changes need both fields and an offered language.
	s.Apply(ctx, Message{Action: ActionSet, LanguageID: 50})
	s.Apply(ctx, Message{Action: ActionSet, LanguageID: 50, Flavor: "CE"})
	s.Apply(ctx, Message{Action: ActionSet, LanguageID: 71, Flavor: "bogus"})
	st = s.State()
	if st.LanguageID != 71 || st.Flavor != judge0.FlavorCE {
		t.Errorf("language = %d/%v, want 71/CE", st.LanguageID, st.Flavor)
	}
}

func TestSession_HandleBridgeMessages(t *testing.T) {
	s := New("s1", nil, nil, Hooks{})
	ctx := context.Background()

	if _, err := s.Handle(ctx, []byte(`{"action":"set","source_code":"x = 1","language_id":25,"flavor":"EXTRA_CE","stdout":"old"}`)); err != nil {
		t.Fatal(err)
	}
	reply, err := s.Handle(ctx, []byte(`{"action":"get"}`))
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"event":       "getResponse",
		"source_code": "x = 1",
		"language_id": float64(25),
		"flavor":      "EXTRA_CE",
		"stdout":      "old",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}

	if _, err := s.Handle(ctx, []byte(`{"action":"clear"}`)); err != nil {
		t.Fatal(err)
	}
	if s.State().SourceCode != "" {
		t.Error("clear kept source code")
	}
	if _, err := s.Handle(ctx, []byte(`{"action":"defaults"}`)); err != nil {
		t.Fatal(err)
	}
	if st := s.State(); st.SourceCode != DefaultSource || st.LanguageID != judge0.LanguageDefault {
		t.Errorf("defaults not restored: %+v", st)
	}

	if _, err := s.Handle(ctx, []byte(`{"action":"explode"}`)); err == nil {
		t.Error("expected error for unknown action")
	}
	if _, err := s.Handle(ctx, []byte(`not json`)); err == nil {
		t.Error("expected error for malformed message")
	}
}

func TestManager(t *testing.T) {
	m := NewManager(nil, nil)

	var initialised []string
	s := m.Open(Hooks{Initialised: func(e Initialised) { initialised = append(initialised, e.SessionID) }})

	if len(initialised) != 1 || initialised[0] != s.ID() {
		t.Errorf("initialised = %v, want [%s]", initialised, s.ID())
	}
	if got, ok := m.Get(s.ID()); !ok || got != s {
		t.Error("Get did not return the opened session")
	}
	other := m.Open(Hooks{})
	if other.ID() == s.ID() {
		t.Error("session IDs collide")
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}

	m.Close(s.ID())
	if _, ok := m.Get(s.ID()); ok {
		t.Error("closed session still registered")
	}
	m.Close("unknown")
	m.CloseAll()
	if m.Count() != 0 {
		t.Errorf("Count after CloseAll = %d", m.Count())
	}
}

func TestFormatStatusLine(t *testing.T) {
	mem := int64(512)
	res := &judge0.Result{Status: judge0.Status{ID: 5, Description: "Time Limit Exceeded"}, Time: "5.0", Memory: &mem}
	if got := FormatStatusLine(res, 1234*time.Millisecond); got != "Time Limit Exceeded, 5.0s, 512KB (TAT: 1234ms)" {
		t.Errorf("got %q", got)
	}
	res = &judge0.Result{Status: judge0.Status{ID: 13, Description: "Internal Error"}}
	if got := FormatStatusLine(res, 0); got != "Internal Error, -, - (TAT: 0ms)" {
		t.Errorf("got %q", got)
	}
}
