// Package mcpserver exposes code execution and the language catalogue as
// Model Context Protocol tools, so agents can run programs through the same
// engine, history, and limits as the IDE.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/languages"
	"github.com/rhuss/judgeide/pkg/observability"
	"github.com/rhuss/judgeide/pkg/transport"
)

// Tool names.
const (
	ToolRunCode       = "run_code"
	ToolListLanguages = "list_languages"
	ToolGetRun        = "get_run"
)

// RunCodeInput is the argument of run_code.
type RunCodeInput struct {
	SourceCode           string `json:"source_code" jsonschema:"program source code"`
	LanguageID           int    `json:"language_id" jsonschema:"Judge0 language id, see list_languages"`
	Flavor               string `json:"flavor,omitempty" jsonschema:"CE (default) or EXTRA_CE"`
	Stdin                string `json:"stdin,omitempty" jsonschema:"standard input"`
	CompilerOptions      string `json:"compiler_options,omitempty" jsonschema:"extra compiler flags"`
	CommandLineArguments string `json:"command_line_arguments,omitempty" jsonschema:"program arguments"`
}

// RunCodeOutput is the structured result of run_code and get_run.
type RunCodeOutput struct {
	RunID      string `json:"run_id"`
	State      string `json:"state"`
	Status     string `json:"status,omitempty"`
	Output     string `json:"output"`
	Time       string `json:"time,omitempty"`
	Memory     int64  `json:"memory,omitempty"`
	StatusLine string `json:"status_line,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ListLanguagesInput is the argument of list_languages.
type ListLanguagesInput struct {
	Flavor string `json:"flavor,omitempty" jsonschema:"CE or EXTRA_CE; both flavors when empty"`
}

// ListLanguagesOutput is the result of list_languages.
type ListLanguagesOutput struct {
	Languages []languages.Entry `json:"languages"`
}

// GetRunInput is the argument of get_run.
type GetRunInput struct {
	ID string `json:"id" jsonschema:"run id returned by run_code"`
}

// Server wraps an MCP server with the judgeide tools.
type Server struct {
	mcp      *mcp.Server
	executor transport.RunExecutor
	langs    *languages.Registry
	store    transport.RunStore
}

// New creates the MCP server. store may be nil, in which case get_run is
// not offered.
func New(executor transport.RunExecutor, langs *languages.Registry, store transport.RunStore, version string) *Server {
	s := &Server{
		mcp:      mcp.NewServer(&mcp.Implementation{Name: "judgeide", Version: version}, nil),
		executor: executor,
		langs:    langs,
		store:    store,
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolRunCode,
		Description: "Compiles and runs source code on Judge0 and returns its output and verdict",
	}, s.runCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolListLanguages,
		Description: "Lists the languages available for run_code",
	}, s.listLanguages)

	if store != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        ToolGetRun,
			Description: "Returns a previous run by id",
		}, s.getRun)
	}
	return s
}

// MCP returns the underlying server, e.g. to connect in-memory transports.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

func (s *Server) runCode(ctx context.Context, _ *mcp.CallToolRequest, in RunCodeInput) (*mcp.CallToolResult, RunCodeOutput, error) {
	debug.Log("mcp", "run_code", "language_id", in.LanguageID, "flavor", in.Flavor)

	req := &api.RunRequest{
		SourceCode:           in.SourceCode,
		LanguageID:           in.LanguageID,
		Flavor:               in.Flavor,
		Stdin:                in.Stdin,
		CompilerOptions:      in.CompilerOptions,
		CommandLineArguments: in.CommandLineArguments,
	}
	w := &captureWriter{}
	err := s.executor.ExecuteRun(ctx, req, w)
	if err != nil {
		observability.ToolCallsTotal.WithLabelValues(ToolRunCode, "error").Inc()
		return errorResult(transport.FromError(err)), RunCodeOutput{State: string(api.RunFailed), Error: err.Error()}, nil
	}
	if w.run == nil {
		observability.ToolCallsTotal.WithLabelValues(ToolRunCode, "error").Inc()
		return nil, RunCodeOutput{}, errors.New("run finished without a result")
	}

	observability.ToolCallsTotal.WithLabelValues(ToolRunCode, "ok").Inc()
	out := runOutput(w.run)
	return textResult(out), out, nil
}

func (s *Server) listLanguages(ctx context.Context, _ *mcp.CallToolRequest, in ListLanguagesInput) (*mcp.CallToolResult, ListLanguagesOutput, error) {
	var (
		entries []languages.Entry
		err     error
	)
	if in.Flavor == "" {
		entries, err = s.langs.Merged(ctx)
	} else {
		entries, err = s.flavorEntries(ctx, in.Flavor)
	}
	if err != nil {
		observability.ToolCallsTotal.WithLabelValues(ToolListLanguages, "error").Inc()
		return nil, ListLanguagesOutput{}, err
	}
	observability.ToolCallsTotal.WithLabelValues(ToolListLanguages, "ok").Inc()
	out := ListLanguagesOutput{Languages: entries}
	return textResult(out), out, nil
}

func (s *Server) flavorEntries(ctx context.Context, name string) ([]languages.Entry, error) {
	flavor, err := judge0.ParseFlavor(name)
	if err != nil {
		return nil, err
	}
	langs, err := s.langs.List(ctx, flavor)
	if err != nil {
		return nil, err
	}
	entries := make([]languages.Entry, 0, len(langs))
	for _, l := range langs {
		entries = append(entries, languages.Entry{Language: l, Mode: languages.EditorMode(l.Name)})
	}
	return entries, nil
}

func (s *Server) getRun(ctx context.Context, _ *mcp.CallToolRequest, in GetRunInput) (*mcp.CallToolResult, RunCodeOutput, error) {
	if !api.ValidateRunID(in.ID) {
		observability.ToolCallsTotal.WithLabelValues(ToolGetRun, "error").Inc()
		return nil, RunCodeOutput{}, fmt.Errorf("invalid run id %q", in.ID)
	}
	run, err := s.store.GetRun(ctx, in.ID)
	if err != nil {
		observability.ToolCallsTotal.WithLabelValues(ToolGetRun, "error").Inc()
		return nil, RunCodeOutput{}, err
	}
	observability.ToolCallsTotal.WithLabelValues(ToolGetRun, "ok").Inc()
	out := runOutput(run)
	return textResult(out), out, nil
}

func runOutput(run *api.Run) RunCodeOutput {
	out := RunCodeOutput{
		RunID:      run.ID,
		State:      string(run.State),
		Output:     run.Output,
		Time:       run.Time,
		StatusLine: run.StatusLine,
	}
	if run.Status != nil {
		out.Status = run.Status.Description
	}
	if run.Memory != nil {
		out.Memory = *run.Memory
	}
	if run.Error != nil {
		out.Error = run.Error.Message
	}
	return out
}

func textResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(api.NewServerError(err.Error()))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func errorResult(apiErr *api.APIError) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: apiErr.Error()}},
	}
}

// captureWriter keeps the final record of a non-streamed run.
type captureWriter struct {
	run *api.Run
}

func (c *captureWriter) WriteEvent(context.Context, api.RunEvent) error { return nil }

func (c *captureWriter) WriteRun(_ context.Context, run *api.Run) error {
	c.run = run
	return nil
}

func (c *captureWriter) Flush() error { return nil }
