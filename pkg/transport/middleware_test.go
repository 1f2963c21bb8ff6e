package transport

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rhuss/judgeide/pkg/api"
)

// recordingWriter is a minimal RunWriter for testing middleware.
type recordingWriter struct {
	events  []api.RunEvent
	run     *api.Run
	flushed bool
}

func (w *recordingWriter) WriteEvent(_ context.Context, event api.RunEvent) error {
	w.events = append(w.events, event)
	return nil
}

func (w *recordingWriter) WriteRun(_ context.Context, run *api.Run) error {
	w.run = run
	return nil
}

func (w *recordingWriter) Flush() error {
	w.flushed = true
	return nil
}

var _ RunExecutor = RunExecutorFunc(nil)

func TestRunExecutorFuncAdapter(t *testing.T) {
	var got *api.RunRequest
	fn := RunExecutorFunc(func(_ context.Context, req *api.RunRequest, w RunWriter) error {
		got = req
		return w.WriteRun(context.Background(), &api.Run{ID: "run_x"})
	})

	w := &recordingWriter{}
	if err := fn.ExecuteRun(context.Background(), &api.RunRequest{LanguageID: 71}, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.LanguageID != 71 {
		t.Errorf("request not forwarded: %+v", got)
	}
	if w.run == nil || w.run.ID != "run_x" {
		t.Errorf("run not written: %+v", w.run)
	}
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next RunExecutor) RunExecutor {
			return RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
				order = append(order, name+":before")
				err := next.ExecuteRun(ctx, req, w)
				order = append(order, name+":after")
				return err
			})
		}
	}

	handler := RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
		order = append(order, "handler")
		return nil
	})

	Chain(mw("first"), mw("second"), mw("third"))(handler).
		ExecuteRun(context.Background(), &api.RunRequest{}, &recordingWriter{})

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}
	if len(order) != len(expected) {
		t.Fatalf("execution order = %v, want %v", order, expected)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
		panic("test panic")
	})

	err := Recovery()(handler).ExecuteRun(context.Background(), &api.RunRequest{}, &recordingWriter{})
	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	handler := RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
		return nil
	})
	if err := Recovery()(handler).ExecuteRun(context.Background(), &api.RunRequest{}, &recordingWriter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestID(t *testing.T) {
	var captured string
	handler := RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
		captured = RequestIDFromContext(ctx)
		return nil
	})
	wrapped := RequestID()(handler)

	wrapped.ExecuteRun(context.Background(), &api.RunRequest{}, &recordingWriter{})
	if len(captured) != 32 {
		t.Errorf("generated request ID = %q, want 32 hex chars", captured)
	}

	ctx := ContextWithRequestID(context.Background(), "existing-id-123")
	wrapped.ExecuteRun(ctx, &api.RunRequest{}, &recordingWriter{})
	if captured != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", captured, "existing-id-123")
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ids[NewRequestID()] = true
	}
	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    []string
		request api.RunRequest
	}{
		{
			name:    "success",
			request: api.RunRequest{LanguageID: 71, Flavor: "CE", Stream: true},
			want:    []string{"request_id=req-log-test", "language_id=71", "flavor=CE", "stream=true", "run completed"},
		},
		{
			name:    "failure",
			err:     api.NewServerError("test failure"),
			request: api.RunRequest{LanguageID: 54},
			want:    []string{"run failed", "test failure"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			handler := RunExecutorFunc(func(ctx context.Context, req *api.RunRequest, w RunWriter) error {
				return tt.err
			})

			ctx := ContextWithRequestID(context.Background(), "req-log-test")
			Logging(logger)(handler).ExecuteRun(ctx, &tt.request, &recordingWriter{})

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("log output missing %q in:\n%s", w, out)
				}
			}
		})
	}
}
