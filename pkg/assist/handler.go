package assist

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error bodies kept compatible with the IDE front end.
const (
	chatFailedMessage       = "Failed to process request"
	completionFailedMessage = "Internal Server Error"
	noPromptMessage         = "No prompt provided"
)

// errorBody is the flat {"error": "..."} shape the IDE front end reads.
type errorBody struct {
	Error string `json:"error"`
}

// Handler serves POST /chat and POST /autocomplete.
type Handler struct {
	service     *Service
	maxBodySize int64
}

// NewHandler creates the assistant HTTP handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s, maxBodySize: 1 << 20}
}

// Register adds the assistant routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("POST /autocomplete", h.handleAutocomplete)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}
	// A question without editor context cannot be answered.
	if req.Context == nil {
		slog.Warn("chat request without context")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: chatFailedMessage})
		return
	}

	text, err := h.service.Chat(r.Context(), *req.Context, req.Prompt)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: chatFailedMessage})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: text})
}

func (h *Handler) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: noPromptMessage})
		return
	}

	text, err := h.service.Complete(r.Context(), req.Prompt)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: completionFailedMessage})
		return
	}
	writeJSON(w, http.StatusOK, CompletionResponse{Completion: text})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
