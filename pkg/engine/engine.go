package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/session"
	"github.com/rhuss/judgeide/pkg/transport"
)

// Engine runs submissions on behalf of the REST API. It implements
// transport.RunExecutor.
type Engine struct {
	runner *judge0.Runner
	store  transport.RunStore
	cfg    Config
}

var _ transport.RunExecutor = (*Engine)(nil)

// New creates an Engine. The runner must not be nil; the store may be nil,
// in which case runs are not recorded.
func New(runner *judge0.Runner, store transport.RunStore, cfg Config) (*Engine, error) {
	if runner == nil {
		return nil, fmt.Errorf("engine: runner must not be nil")
	}
	return &Engine{runner: runner, store: store, cfg: cfg}, nil
}

// ExecuteRun validates req, runs it to a terminal status and writes the
// record. Non-streaming failures are returned as *api.APIError after the
// failed run has been recorded. When streaming, failures are reported as a
// run.failed event and ExecuteRun returns nil.
func (e *Engine) ExecuteRun(ctx context.Context, req *api.RunRequest, w transport.RunWriter) error {
	if apiErr := api.ValidateRunRequest(req, e.cfg.Validation); apiErr != nil {
		return apiErr
	}

	sub := req.Submission()
	id := api.NewRunID()
	debug.Log("judge0", "run requested", "run_id", id, "language_id", sub.LanguageID, "flavor", sub.Flavor.String())

	if req.Stream {
		return e.executeStreaming(ctx, id, sub, w)
	}

	run, err := e.execute(ctx, id, sub, judge0.Observer{})
	if err != nil {
		return run.Error
	}
	return w.WriteRun(ctx, run)
}

func (e *Engine) executeStreaming(ctx context.Context, id string, sub judge0.SubmissionRequest, w transport.RunWriter) error {
	state := &streamState{runID: id}
	if err := w.WriteEvent(ctx, state.created()); err != nil {
		return err
	}

	// Observers run on the job goroutine; execute waits for it to finish,
	// so no write happens after ExecuteRun returns.
	obs := judge0.Observer{
		Submitted: func(_ *judge0.SubmissionRequest, h judge0.Handle) {
			emit(ctx, w, state.submitted(h))
		},
		Probed: func(_ judge0.Handle, probe int, st judge0.Status) {
			emit(ctx, w, state.probed(probe, st))
		},
	}

	run, _ := e.execute(ctx, id, sub, obs)
	return w.WriteEvent(ctx, state.finished(run))
}

// emit writes a progress event. A failed write does not stop the run: it
// still polls to a verdict and is stored.
func emit(ctx context.Context, w transport.RunWriter, ev api.RunEvent) {
	if err := w.WriteEvent(ctx, ev); err != nil {
		debug.Log("server", "stream event write failed", "run_id", ev.RunID, "event", ev.Type, "error", err)
	}
}

// execute runs one submission and records it. The returned run is never
// nil; on failure its Error is set and the lifecycle error is returned too.
func (e *Engine) execute(ctx context.Context, id string, sub judge0.SubmissionRequest, obs judge0.Observer) (*api.Run, error) {
	job := e.runner.Start(ctx, sub, obs)
	<-job.Done()
	res, err := job.Result()
	tat := job.Turnaround()

	run := api.NewRun(id, sub, res, transport.FromError(err), tat)
	if job.Handle() != nil {
		run.Token = job.Handle().Token
	}
	if res != nil {
		run.StatusLine = session.FormatStatusLine(res, tat)
	}
	e.save(ctx, run)
	return run, err
}

func (e *Engine) save(ctx context.Context, run *api.Run) {
	if e.store == nil || (e.cfg.SkipFailed && run.State == api.RunFailed) {
		return
	}
	// A cancelled request context must not lose the record.
	if err := e.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("saving run failed", "run_id", run.ID, "error", err)
	}
}
