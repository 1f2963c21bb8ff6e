// Package api defines the wire types of the judgeide HTTP API.
//
// It covers the run API (requests, stored run records, list pages), the
// structured error envelope and run ID generation. The package performs no
// I/O and depends only on the judge0 data model.
//
// Core types:
//   - [RunRequest]: client request to execute source code on Judge0
//   - [Run]: a finished execution as returned and stored
//   - [RunList]: a page of runs
//   - [APIError]: structured error with type, code, param, and message
package api
