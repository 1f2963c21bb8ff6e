package transport

import (
	"context"
	"sync"

	"github.com/rhuss/judgeide/pkg/history"
)

// PollingRuns holds the cancel functions of streamed runs whose Judge0
// submission is still being polled, keyed by run ID. Each run remembers the
// history tenant that started it. It is safe for concurrent use.
type PollingRuns struct {
	mu   sync.Mutex
	runs map[string]pollingRun
}

type pollingRun struct {
	tenant string
	cancel context.CancelFunc
}

// NewPollingRuns returns an empty set.
func NewPollingRuns() *PollingRuns {
	return &PollingRuns{runs: map[string]pollingRun{}}
}

// Track adds a run owned by the tenant of ctx. The returned release removes
// it again without cancelling and is safe to call after Cancel.
func (p *PollingRuns) Track(ctx context.Context, id string, cancel context.CancelFunc) (release func()) {
	p.mu.Lock()
	p.runs[id] = pollingRun{tenant: history.TenantFrom(ctx), cancel: cancel}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.runs, id)
		p.mu.Unlock()
	}
}

// Cancel stops polling for id on behalf of the tenant of ctx. It reports
// false for runs that already reached a verdict, were never streamed, or
// belong to another tenant. Runs started without a tenant can be cancelled
// by anyone.
func (p *PollingRuns) Cancel(ctx context.Context, id string) bool {
	p.mu.Lock()
	run, ok := p.runs[id]
	if ok && run.tenant != "" && run.tenant != history.TenantFrom(ctx) {
		ok = false
	}
	if ok {
		delete(p.runs, id)
	}
	p.mu.Unlock()

	if ok {
		run.cancel()
	}
	return ok
}

// Len returns how many runs are polling.
func (p *PollingRuns) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runs)
}
