package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/transport"
)

type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // WriteEvent has been called
	writerCompleted                    // terminal event sent or WriteRun called
)

// sseRunWriter implements transport.RunWriter over HTTP: server-sent
// events for streamed runs, a single JSON document otherwise. Writes may
// come from the job goroutine, so every method locks.
type sseRunWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState

	// onCreated receives the run ID from the run.created event, once.
	onCreated func(id string)
}

var _ transport.RunWriter = (*sseRunWriter)(nil)

func newSSERunWriter(w http.ResponseWriter, onCreated func(id string)) *sseRunWriter {
	return &sseRunWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		onCreated: onCreated,
	}
}

// WriteEvent sends one event as
//
//	event: {type}
//	data: {json}
//
// followed by "data: [DONE]" after a terminal event.
func (s *sseRunWriter) WriteEvent(_ context.Context, event api.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}
	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = writerStreaming
	}

	if event.Type == api.RunEventCreated && s.onCreated != nil {
		s.onCreated(event.RunID)
		s.onCreated = nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if event.Type.Terminal() {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush [DONE]: %w", err)
		}
		s.state = writerCompleted
	}
	return nil
}

// WriteRun sends the finished run as JSON. It is mutually exclusive with
// WriteEvent.
func (s *sseRunWriter) WriteRun(_ context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerStreaming:
		return errors.New("cannot write run: streaming has already started")
	case writerCompleted:
		return errors.New("cannot write run: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted
	if err := json.NewEncoder(s.w).Encode(run); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseRunWriter) Flush() error {
	return s.rc.Flush()
}

func (s *sseRunWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming ||
		(s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}
