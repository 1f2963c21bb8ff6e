package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/judge0"
)

func TestStreamingRun(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/runs", map[string]any{
		"source_code": "print(input())",
		"language_id": 71,
		"stdin":       "streamed\n",
		"stream":      true,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	events := parseSSEEvents(t, resp)
	if len(events) < 4 {
		t.Fatalf("got %d events, want at least 4: %+v", len(events), events)
	}

	if events[0].Type != api.RunEventCreated {
		t.Errorf("first event = %q, want run.created", events[0].Type)
	}
	if events[1].Type != api.RunEventSubmitted || events[1].Token == "" {
		t.Errorf("second event = %+v, want run.submitted with token", events[1])
	}
	last := events[len(events)-1]
	if last.Type != api.RunEventCompleted {
		t.Fatalf("last event = %q, want run.completed", last.Type)
	}

	// The mock reports In Queue on the first probe.
	var probes int
	for _, ev := range events[2 : len(events)-1] {
		if ev.Type != api.RunEventProbe {
			t.Errorf("unexpected event %q between submit and completion", ev.Type)
			continue
		}
		probes++
		if ev.Probe != probes {
			t.Errorf("probe number = %d, want %d", ev.Probe, probes)
		}
	}
	if probes < 1 {
		t.Error("expected at least one run.probe event")
	}

	for i, ev := range events {
		if ev.SequenceNumber != i {
			t.Errorf("event %d sequence_number = %d", i, ev.SequenceNumber)
		}
		if ev.RunID != events[0].RunID {
			t.Errorf("event %d run_id = %q, want %q", i, ev.RunID, events[0].RunID)
		}
	}

	if last.Run == nil {
		t.Fatal("run.completed without run")
	}
	if last.Run.Output != "streamed" {
		t.Errorf("output = %q, want streamed", last.Run.Output)
	}
	if last.Run.Status == nil || last.Run.Status.ID != judge0.StatusAccepted {
		t.Errorf("status = %+v, want Accepted", last.Run.Status)
	}

	// The streamed run is stored under the id announced in run.created.
	got := getURL(t, testEnv.BaseURL()+"/api/runs/"+events[0].RunID)
	got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("stored streamed run: expected 200, got %d", got.StatusCode)
	}
}

func TestStreamingProbeLimit(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/runs", map[string]any{
		"source_code": "while True: pass  # SLOW",
		"language_id": 71,
		"stream":      true,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	events := parseSSEEvents(t, resp)
	if len(events) == 0 {
		t.Fatal("no events")
	}
	last := events[len(events)-1]
	if last.Type != api.RunEventFailed {
		t.Fatalf("last event = %q, want run.failed", last.Type)
	}
	if last.Run == nil || last.Run.Error == nil {
		t.Fatal("run.failed without error")
	}
	if last.Run.Error.Type != api.ErrorTypeUpstreamTimeout {
		t.Errorf("error type = %q, want upstream_timeout", last.Run.Error.Type)
	}
}

func TestStreamingValidationErrorIsJSON(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/runs", map[string]any{
		"source_code": "",
		"language_id": 71,
		"stream":      true,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error == nil || errResp.Error.Param != "source_code" {
		t.Errorf("error = %+v, want param source_code", errResp.Error)
	}
}
