package judge0

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Observer receives lifecycle notifications from a Runner. Every field is
// optional.
type Observer struct {
	// Submitted is called once Judge0 accepted the submission.
	Submitted func(req *SubmissionRequest, h Handle)

	// Probed is called after every status probe.
	Probed func(h Handle, probe int, status Status)

	// Finished is called exactly once per job with either a result or an error.
	Finished func(req *SubmissionRequest, res *Result, err error, elapsed time.Duration)
}

// Runner owns the full round trip of a submission: encode, submit, poll,
// and report.
type Runner struct {
	client    *Client
	files     *FileBundle
	observers []Observer
}

// NewRunner creates a Runner. files may be nil when no LanguageSQLite
// submissions are expected.
func NewRunner(client *Client, files *FileBundle, observers ...Observer) *Runner {
	return &Runner{
		client:    client,
		files:     files,
		observers: observers,
	}
}

// Client returns the underlying Judge0 client.
func (r *Runner) Client() *Client {
	return r.client
}

// Start launches a submission in the background and returns its Job
// immediately. The job's polling chain stops when a terminal result is
// reached, on the first error, or when ctx is cancelled. Extra observers
// apply to this job only.
func (r *Runner) Start(ctx context.Context, req SubmissionRequest, observers ...Observer) *Job {
	j := &Job{
		req:     req,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	obs := append(append([]Observer(nil), r.observers...), observers...)

	go func() {
		defer close(j.done)
		res, err := r.execute(ctx, j, obs)
		j.record(res, err)
		for _, o := range obs {
			if o.Finished != nil {
				o.Finished(&j.req, res, err, j.Turnaround())
			}
		}
	}()

	return j
}

// Run submits req and waits for its terminal result.
func (r *Runner) Run(ctx context.Context, req SubmissionRequest, observers ...Observer) (*Result, error) {
	return r.Start(ctx, req, observers...).Wait(ctx)
}

func (r *Runner) execute(ctx context.Context, j *Job, obs []Observer) (*Result, error) {
	req := j.req

	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}

	if req.LanguageID == LanguageSQLite && req.AdditionalFiles == "" {
		if r.files == nil {
			return nil, &TransportError{Op: "additional_files", Err: errNoBundle}
		}
		files, err := r.files.Get(ctx)
		if err != nil {
			return nil, err
		}
		req.AdditionalFiles = files
	}

	payload, err := EncodeRequest(&req)
	if err != nil {
		return nil, err
	}

	h, err := r.client.Submit(ctx, req.Flavor, payload)
	if err != nil {
		slog.Warn("judge0 submission failed", "flavor", req.Flavor.String(), "language_id", req.LanguageID, "error", err)
		return nil, err
	}
	j.setHandle(h)
	for _, o := range obs {
		if o.Submitted != nil {
			o.Submitted(&j.req, *h)
		}
	}

	return r.client.poll(ctx, h, func(h Handle, probe int, st Status) {
		for _, o := range obs {
			if o.Probed != nil {
				o.Probed(h, probe, st)
			}
		}
	})
}

var errNoBundle = errors.New("no additional files bundle configured")

// Job is one submitted request and its single polling chain.
type Job struct {
	req     SubmissionRequest
	started time.Time
	done    chan struct{}

	mu       sync.Mutex
	handle   *Handle
	result   *Result
	err      error
	finished time.Time
}

// Request returns the request the job was started with.
func (j *Job) Request() SubmissionRequest {
	return j.req
}

// Done is closed once the job reached a terminal result or failed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done. Returning early because
// of ctx does not stop the job; cancel the context passed to Start for that.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome. Before Done is closed both values are nil.
func (j *Job) Result() (*Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Handle returns the submission handle, or nil before Judge0 accepted the job.
func (j *Job) Handle() *Handle {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.handle
}

// Turnaround is the time from Start until completion, or until now while
// the job is still running.
func (j *Job) Turnaround() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished.IsZero() {
		return time.Since(j.started)
	}
	return j.finished.Sub(j.started)
}

func (j *Job) setHandle(h *Handle) {
	j.mu.Lock()
	j.handle = h
	j.mu.Unlock()
}

// record stores the outcome. Observers run after record and before done
// is closed, so Wait returns only once every observer has seen the result.
func (j *Job) record(res *Result, err error) {
	j.mu.Lock()
	j.result, j.err = res, err
	j.finished = time.Now()
	j.mu.Unlock()
}
