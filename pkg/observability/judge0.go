package observability

import (
	"time"

	"github.com/rhuss/judgeide/pkg/judge0"
)

// Judge0Observer returns a runner observer that records submission,
// probe, and run metrics.
func Judge0Observer() judge0.Observer {
	return judge0.Observer{
		Submitted: func(req *judge0.SubmissionRequest, h judge0.Handle) {
			SubmissionsTotal.WithLabelValues(h.Flavor.String()).Inc()
		},
		Probed: func(h judge0.Handle, _ int, _ judge0.Status) {
			ProbesTotal.WithLabelValues(h.Flavor.String()).Inc()
		},
		Finished: func(req *judge0.SubmissionRequest, res *judge0.Result, err error, elapsed time.Duration) {
			flavor := req.Flavor.String()
			outcome := "error"
			if err == nil && res != nil {
				outcome = string(res.Status.Kind())
			}
			RunsTotal.WithLabelValues(flavor, outcome).Inc()
			RunTurnaround.WithLabelValues(flavor).Observe(elapsed.Seconds())
		},
	}
}
