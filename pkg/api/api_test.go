package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/judgeide/pkg/judge0"
)

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			NewInvalidRequestError("language_id", "is required"),
			"invalid_request: is required (param: language_id)",
		},
		{
			"without param",
			NewServerError("internal failure"),
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: NewUpstreamTimeoutError("maximum number of probe requests reached")})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"error":{"type":"upstream_timeout","code":"probe_limit_exceeded","message":"maximum number of probe requests reached"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestRunID(t *testing.T) {
	id := NewRunID()
	if !ValidateRunID(id) {
		t.Errorf("NewRunID() = %q, want valid run ID", id)
	}
	if NewRunID() == id {
		t.Error("consecutive run IDs collide")
	}

	tests := []struct {
		id   string
		want bool
	}{
		{"run_abcdefghijklmnopqrstuvwx", true},
		{"run_123456789012345678901234", true},
		{"resp_abcdefghijklmnopqrstuvwx", false},
		{"run_abc", false},
		{"run_abcdefghijklmnopqrstuv!@", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateRunID(tt.id); got != tt.want {
			t.Errorf("ValidateRunID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestValidateRunRequest(t *testing.T) {
	cfg := ValidationConfig{MaxSourceSize: 16, MaxStdinSize: 4}
	tests := []struct {
		name      string
		req       RunRequest
		wantParam string
	}{
		{"valid", RunRequest{SourceCode: "print(1)", LanguageID: 71}, ""},
		{"valid extra ce", RunRequest{SourceCode: "print(1)", LanguageID: 25, Flavor: "EXTRA_CE"}, ""},
		{"empty source", RunRequest{SourceCode: "  ", LanguageID: 71}, "source_code"},
		{"source too large", RunRequest{SourceCode: strings.Repeat("x", 17), LanguageID: 71}, "source_code"},
		{"stdin too large", RunRequest{SourceCode: "x", Stdin: "12345", LanguageID: 71}, "stdin"},
		{"missing language", RunRequest{SourceCode: "x"}, "language_id"},
		{"bad flavor", RunRequest{SourceCode: "x", LanguageID: 71, Flavor: "pro"}, "flavor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunRequest(&tt.req, cfg)
			if tt.wantParam == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Param != tt.wantParam {
				t.Errorf("err = %v, want param %q", err, tt.wantParam)
			}
		})
	}
}

func TestRunRequestSubmission(t *testing.T) {
	no := false
	tests := []struct {
		name         string
		req          RunRequest
		wantFlavor   judge0.Flavor
		wantRedirect bool
	}{
		{"defaults", RunRequest{SourceCode: "x", LanguageID: 71}, judge0.FlavorCE, true},
		{"explicit", RunRequest{SourceCode: "x", LanguageID: 25, Flavor: "EXTRA_CE", RedirectStderrToStdout: &no}, judge0.FlavorExtraCE, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := tt.req.Submission()
			if sub.Flavor != tt.wantFlavor || sub.RedirectStderrToStdout != tt.wantRedirect {
				t.Errorf("submission = %+v", sub)
			}
		})
	}
}

func TestNewRun(t *testing.T) {
	mem := int64(1200)
	req := judge0.SubmissionRequest{SourceCode: "print(1)", LanguageID: 71}
	res := &judge0.Result{Token: "tok", Status: judge0.Status{ID: 3, Description: "Accepted"}, Stdout: "1\n", Time: "0.01", Memory: &mem}

	run := NewRun("", req, res, nil, 250*time.Millisecond)
	if run.State != RunCompleted || run.Output != "1" || run.Status.ID != 3 || run.TurnaroundMS != 250 {
		t.Errorf("run = %+v", run)
	}
	if !ValidateRunID(run.ID) || run.Object != "run" {
		t.Errorf("id/object = %q/%q", run.ID, run.Object)
	}

	failed := NewRun("run_abcdefghijklmnopqrstuvwx", req, nil, NewUpstreamError("submit", "judge0 submit: HTTP 503"), time.Second)
	if failed.ID != "run_abcdefghijklmnopqrstuvwx" || failed.State != RunFailed || failed.Status != nil || failed.Error == nil {
		t.Errorf("failed run = %+v", failed)
	}
}
