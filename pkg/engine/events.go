package engine

import (
	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/judge0"
)

// streamState numbers the events of one streamed run.
type streamState struct {
	runID string
	token string
	seq   int
}

// nextSeq returns the current sequence number and increments it.
func (s *streamState) nextSeq() int {
	n := s.seq
	s.seq++
	return n
}

func (s *streamState) created() api.RunEvent {
	return api.RunEvent{Type: api.RunEventCreated, SequenceNumber: s.nextSeq(), RunID: s.runID}
}

func (s *streamState) submitted(h judge0.Handle) api.RunEvent {
	s.token = h.Token
	return api.RunEvent{Type: api.RunEventSubmitted, SequenceNumber: s.nextSeq(), RunID: s.runID, Token: h.Token}
}

func (s *streamState) probed(probe int, status judge0.Status) api.RunEvent {
	return api.RunEvent{
		Type:           api.RunEventProbe,
		SequenceNumber: s.nextSeq(),
		RunID:          s.runID,
		Token:          s.token,
		Probe:          probe,
		Status:         &status,
	}
}

// finished returns run.completed or run.failed depending on the record.
func (s *streamState) finished(run *api.Run) api.RunEvent {
	typ := api.RunEventCompleted
	if run.State == api.RunFailed {
		typ = api.RunEventFailed
	}
	return api.RunEvent{Type: typ, SequenceNumber: s.nextSeq(), RunID: s.runID, Token: s.token, Run: run}
}
