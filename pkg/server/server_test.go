package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/config"
	"github.com/rhuss/judgeide/pkg/engine"
	"github.com/rhuss/judgeide/pkg/history/memory"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/languages"
	"github.com/rhuss/judgeide/pkg/session"
	transporthttp "github.com/rhuss/judgeide/pkg/transport/http"
)

// fakeJudge0 serves one Python language and accepts every submission. The
// token of a submission made with a credential is "t-<credential>".
func fakeJudge0() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submissions", func(w http.ResponseWriter, r *http.Request) {
		token := "t"
		if key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); key != "" {
			token += "-" + key
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("GET /submissions/{token}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[string]any{"id": judge0.StatusAccepted, "description": "Accepted"},
			"stdout": judge0.Encode("hi\n"),
			"time":   "0.01",
			"memory": 1200,
		})
	})
	mux.HandleFunc("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":71,"name":"Python (3.8.1)"},{"id":89,"name":"Multi-file program"}]`))
	})
	mux.HandleFunc("GET /languages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "71" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"id":71,"name":"Python (3.8.1)","source_file":"script.py"}`))
	})
	return mux
}

type testEnv struct {
	srv      *httptest.Server
	sessions *session.Manager
}

func newTestEnv(t *testing.T, cfg Config, authCfg *config.AuthConfig) *testEnv {
	t.Helper()
	backend := httptest.NewServer(fakeJudge0())
	t.Cleanup(backend.Close)

	client := judge0.NewClient(judge0.Config{
		CE:        judge0.Endpoint{AuthURL: backend.URL},
		ExtraCE:   judge0.Endpoint{AuthURL: backend.URL},
		Delay:     judge0.ConstantDelay(time.Millisecond),
		MaxProbes: 3,
	})
	runner := judge0.NewRunner(client, nil)
	registry := languages.NewRegistry(client)
	store := memory.New(0)

	eng, err := engine.New(runner, store, engine.Config{})
	if err != nil {
		t.Fatal(err)
	}

	deps := Deps{
		Adapter:   transporthttp.NewAdapter(eng, store, transporthttp.DefaultConfig()),
		Languages: registry,
		Sessions:  session.NewManager(runner, registry),
		Store:     store,
	}
	if authCfg != nil {
		mw, err := AuthMiddleware(*authCfg)
		if err != nil {
			t.Fatal(err)
		}
		deps.Auth = mw
	}

	srv := httptest.NewServer(New(cfg, deps).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, sessions: deps.Sessions}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	resp, err := http.Get(env.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{MetricsPath: "/metrics"}, nil)

	// Generate at least one request sample.
	http.Get(env.srv.URL + "/healthz")

	resp, err := http.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "judgeide_requests_total") {
		t.Error("metrics output missing judgeide_requests_total")
	}
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	resp, err := http.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListLanguages(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{name: "merged", query: "", wantCode: http.StatusOK, wantCount: 1},
		{name: "single flavor", query: "?flavor=EXTRA_CE", wantCode: http.StatusOK, wantCount: 1},
		{name: "unknown flavor", query: "?flavor=nope", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(env.srv.URL + "/api/languages" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var list struct {
				Object string            `json:"object"`
				Data   []json.RawMessage `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
				t.Fatal(err)
			}
			if list.Object != "list" {
				t.Errorf("object = %q, want list", list.Object)
			}
			if len(list.Data) != tt.wantCount {
				t.Errorf("got %d languages, want %d", len(list.Data), tt.wantCount)
			}
		})
	}
}

func TestMergedLanguagesCarryMode(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	resp, err := http.Get(env.srv.URL + "/api/languages")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var list struct {
		Data []languages.Entry `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].Mode != "python" {
		t.Errorf("data = %+v, want one python entry", list.Data)
	}
}

func TestGetLanguage(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{name: "found", path: "/api/languages/CE/71", wantCode: http.StatusOK},
		{name: "not found", path: "/api/languages/CE/5", wantCode: http.StatusNotFound},
		{name: "bad id", path: "/api/languages/CE/abc", wantCode: http.StatusBadRequest},
		{name: "bad flavor", path: "/api/languages/XX/71", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(env.srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				var er api.ErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == nil {
					t.Errorf("expected error envelope, err=%v", err)
				}
				return
			}
			var lang judge0.Language
			if err := json.NewDecoder(resp.Body).Decode(&lang); err != nil {
				t.Fatal(err)
			}
			if lang.SourceFile != "script.py" {
				t.Errorf("source_file = %q, want script.py", lang.SourceFile)
			}
		})
	}
}

func TestRunsRouted(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	body := `{"source_code":"print('hi')","language_id":71}`
	resp, err := http.Post(env.srv.URL+"/api/runs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, b)
	}
	var run api.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}

	got, err := http.Get(env.srv.URL + "/api/runs/" + run.ID)
	if err != nil {
		t.Fatal(err)
	}
	got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("GET run status = %d, want 200", got.StatusCode)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>ide</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, Config{StaticDir: dir}, &config.AuthConfig{
		Type:    "apikey",
		APIKeys: []config.APIKeyConfig{{Key: "secret", Subject: "alice"}},
	})

	// Static assets are public even when the API requires a key.
	resp, err := http.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ide") {
		t.Errorf("status = %d, body = %q", resp.StatusCode, body)
	}

	resp, err = http.Get(env.srv.URL + "/api/languages")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("API status = %d, want 401", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Config{AllowedOrigins: []string{"https://ide.example.com"}}, nil)

	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/runs", nil)
	req.Header.Set("Origin", "https://ide.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://ide.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q for foreign origin", got)
	}
}

func TestAPIKeyJudge0Credential(t *testing.T) {
	env := newTestEnv(t, Config{}, &config.AuthConfig{
		Type: "apikey",
		APIKeys: []config.APIKeyConfig{
			{Key: "class-a", Subject: "class-a", Judge0APIKey: "j0-class-a"},
			{Key: "class-b", Subject: "class-b"},
		},
	})

	tests := []struct {
		key       string
		wantToken string
	}{
		{"class-a", "t-j0-class-a"},
		{"class-b", "t"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/runs",
				strings.NewReader(`{"source_code":"print(1)","language_id":71}`))
			req.Header.Set("Authorization", "Bearer "+tt.key)
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			var run api.Run
			if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
				t.Fatal(err)
			}
			if run.Token != tt.wantToken {
				t.Errorf("token = %q, want %q", run.Token, tt.wantToken)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Config{}, &config.AuthConfig{
		Type:      "none",
		RateLimit: config.RateLimitConfig{DefaultRPM: 2},
	})

	var codes []int
	for range 3 {
		resp, err := http.Get(env.srv.URL + "/api/languages")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	// Unprotected routes are not counted.
	resp, err := http.Get(env.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthMiddlewareUnknownType(t *testing.T) {
	if _, err := AuthMiddleware(config.AuthConfig{Type: "kerberos"}); err == nil {
		t.Error("expected error for unknown auth type")
	}
}

// --- WebSocket host bridge ---

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev map[string]any
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestBridgeLifecycle(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.srv, "/ws"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ev := readEvent(t, conn)
	if ev["event"] != session.EventInitialised || ev["session_id"] == "" {
		t.Fatalf("first event = %v, want initialised", ev)
	}
	if env.sessions.Count() != 1 {
		t.Errorf("open sessions = %d, want 1", env.sessions.Count())
	}

	conn.WriteJSON(map[string]any{"action": "get"})
	ev = readEvent(t, conn)
	if ev["event"] != session.EventGetResponse {
		t.Fatalf("event = %v, want getResponse", ev["event"])
	}
	if ev["language_id"] != float64(judge0.LanguageDefault) {
		t.Errorf("language_id = %v, want default %d", ev["language_id"], judge0.LanguageDefault)
	}

	conn.WriteJSON(map[string]any{"action": "set", "source_code": "print('hi')", "language_id": 71, "flavor": "CE"})
	conn.WriteJSON(map[string]any{"action": "run"})

	ev = readEvent(t, conn)
	if ev["event"] != session.EventPreExecution {
		t.Fatalf("event = %v, want preExecution", ev)
	}
	if ev["source_code"] != "print('hi')" || ev["language_id"] != float64(71) {
		t.Errorf("preExecution = %v", ev)
	}

	ev = readEvent(t, conn)
	if ev["event"] != session.EventPostExecution {
		t.Fatalf("event = %v, want postExecution", ev)
	}
	if ev["output"] != "hi" {
		t.Errorf("output = %q, want %q", ev["output"], "hi")
	}

	conn.WriteJSON(map[string]any{"action": "dance"})
	ev = readEvent(t, conn)
	if ev["event"] != "error" || ev["status"] != float64(http.StatusBadRequest) {
		t.Errorf("unknown action reply = %v", ev)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.sessions.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if env.sessions.Count() != 0 {
		t.Errorf("session not closed after disconnect, open = %d", env.sessions.Count())
	}
}

func TestBridgeRequiresAuth(t *testing.T) {
	env := newTestEnv(t, Config{}, &config.AuthConfig{
		Type:    "apikey",
		APIKeys: []config.APIKeyConfig{{Key: "secret", Subject: "alice"}},
	})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(env.srv, "/ws"), nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("err = %v, want bad handshake", err)
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %v, want 401", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.srv, "/ws?access_token=secret"), nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	defer conn.Close()
	if ev := readEvent(t, conn); ev["event"] != session.EventInitialised {
		t.Errorf("first event = %v, want initialised", ev)
	}
}

func TestBridgeOriginCheck(t *testing.T) {
	env := newTestEnv(t, Config{AllowedOrigins: []string{"https://ide.example.com"}}, nil)

	h := http.Header{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(env.srv, "/ws"), h)
	if err == nil {
		t.Fatal("expected foreign origin to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("handshake response = %v, want 403", resp)
	}

	h.Set("Origin", "https://ide.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.srv, "/ws"), h)
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	conn.Close()
}
