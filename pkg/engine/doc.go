// Package engine executes runs for the REST API. The Engine implements
// transport.RunExecutor on top of a judge0.Runner: it validates the
// request, drives one submission through its polling chain, reports
// progress events when the caller streams, and records the finished run
// in the history store when one is configured.
package engine
