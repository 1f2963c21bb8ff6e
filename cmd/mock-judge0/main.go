// Command mock-judge0 runs a deterministic Judge0 server for local
// development and end-to-end tests. Verdicts are derived from the submitted
// source code:
//
//	source contains "COMPILE_ERROR" -> Compilation Error (6)
//	source contains "RUNTIME_ERROR" -> Runtime Error (NZEC) (11)
//	source contains "TIME_LIMIT"    -> stays Processing forever
//	otherwise                       -> Accepted, stdout echoes stdin or
//	                                   prints "Hello, World!"
//
// Every submission reports "In Queue" and "Processing" on its first two
// probes. The server also answers OpenAI-compatible chat completions so the
// assistant can be exercised without a real provider.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 2358)
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/judgeide/pkg/judge0"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "2358"
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMock().routes()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock judge0 starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock judge0 failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock judge0 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// queuedProbes is the number of non-terminal probes before a verdict.
const queuedProbes = 2

var mockLanguages = []judge0.Language{
	{ID: 43, Name: "Plain Text", SourceFile: "text.txt"},
	{ID: 71, Name: "Python (3.8.1)", SourceFile: "script.py"},
	{ID: 89, Name: "Multi-file program"},
	{ID: 95, Name: "Go (1.18.5)", SourceFile: "main.go"},
	{ID: 105, Name: "C++ (GCC 14.1.0)", SourceFile: "main.cpp"},
}

// --- Request types ---

type submission struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`

	probes int
}

type submissionResponse struct {
	Status        judge0.Status `json:"status"`
	Stdout        *string       `json:"stdout"`
	Stderr        *string       `json:"stderr"`
	CompileOutput *string       `json:"compile_output"`
	Message       *string       `json:"message"`
	Time          *string       `json:"time"`
	Memory        *int64        `json:"memory"`
}

type mock struct {
	mu   sync.Mutex
	subs map[string]*submission
}

func newMock() *mock {
	return &mock{subs: make(map[string]*submission)}
}

func (m *mock) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submissions", m.handleSubmit)
	mux.HandleFunc("GET /submissions/{token}", m.handlePoll)
	mux.HandleFunc("GET /languages", handleLanguages)
	mux.HandleFunc("GET /languages/{id}", handleLanguage)
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Judge0 handlers ---

func (m *mock) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	if sub.LanguageID <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"language_id": {"can't be blank"}})
		return
	}

	// Language 44 is the only one sent as raw text.
	if sub.LanguageID != judge0.LanguageMultiFile && r.URL.Query().Get("base64_encoded") == "true" {
		sub.SourceCode = judge0.Decode(sub.SourceCode)
	}
	if r.URL.Query().Get("base64_encoded") == "true" {
		sub.Stdin = judge0.Decode(sub.Stdin)
	}

	token := uuid.NewString()
	m.mu.Lock()
	m.subs[token] = &sub
	m.mu.Unlock()

	slog.Debug("submission accepted", "token", token, "language_id", sub.LanguageID)
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (m *mock) handlePoll(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	sub, ok := m.subs[r.PathValue("token")]
	var probes int
	if ok {
		sub.probes++
		probes = sub.probes
	}
	m.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, classifyAndRespond(sub, probes, r.URL.Query().Get("base64_encoded") == "true"))
}

func classifyAndRespond(sub *submission, probes int, encode bool) submissionResponse {
	if probes <= queuedProbes || strings.Contains(sub.SourceCode, "TIME_LIMIT") {
		if probes == 1 {
			return submissionResponse{Status: judge0.Status{ID: judge0.StatusInQueue, Description: "In Queue"}}
		}
		return submissionResponse{Status: judge0.Status{ID: judge0.StatusProcessing, Description: "Processing"}}
	}

	text := func(s string) *string {
		if encode {
			s = judge0.Encode(s)
		}
		return &s
	}
	elapsed := "0.012"
	memory := int64(1200)
	resp := submissionResponse{Time: &elapsed, Memory: &memory}

	switch {
	case strings.Contains(sub.SourceCode, "COMPILE_ERROR"):
		resp.Status = judge0.Status{ID: judge0.StatusCompilationError, Description: "Compilation Error"}
		resp.CompileOutput = text("main.cpp:1:1: error: expected declaration\n")
		resp.Time, resp.Memory = nil, nil
	case strings.Contains(sub.SourceCode, "RUNTIME_ERROR"):
		resp.Status = judge0.Status{ID: judge0.StatusRuntimeNZEC, Description: "Runtime Error (NZEC)"}
		resp.Stderr = text("panic: runtime error\n")
		resp.Message = text("Exited with error status 1")
	default:
		resp.Status = judge0.Status{ID: judge0.StatusAccepted, Description: "Accepted"}
		out := "Hello, World!\n"
		if sub.Stdin != "" {
			out = sub.Stdin
		}
		resp.Stdout = text(out)
	}
	return resp
}

func handleLanguages(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	out := make([]entry, 0, len(mockLanguages))
	for _, l := range mockLanguages {
		out = append(out, entry{ID: l.ID, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func handleLanguage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	for _, l := range mockLanguages {
		if l.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"id": l.ID, "name": l.Name, "source_file": l.SourceFile})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
}

// --- Chat completions ---

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}
	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	text := "Looks good to me."
	if strings.Contains(strings.ToLower(lastUserMessage(&req)), "complete") {
		text = "return 0;"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14},
	})
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		if s, ok := req.Messages[i].Content.(string); ok {
			return s
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
