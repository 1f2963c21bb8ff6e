// Command judgeide runs source files on Judge0 from the command line and
// lists the available languages. It reads the same configuration as the
// server.
//
//	judgeide run [-language ID] [-flavor CE|EXTRA_CE] [-stdin FILE] [-args ARGS] FILE
//	judgeide languages [-flavor CE|EXTRA_CE]
//
// Without -language, the language is inferred from the file extension.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rhuss/judgeide/pkg/config"
	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/languages"
	"github.com/rhuss/judgeide/pkg/session"
)

const usage = `usage:
  judgeide run [-language ID] [-flavor CE|EXTRA_CE] [-stdin FILE] [-args ARGS] FILE
  judgeide languages [-flavor CE|EXTRA_CE]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code: 0 for an
// accepted run, 1 for any other verdict or failure, 2 for usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(stderr, "judgeide:", err)
		return 1
	}
	debug.Setup(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      "WARN",
		Output:     stderr,
	})
	client := judge0.NewClient(cfg.Judge0.ClientConfig())

	switch args[0] {
	case "run":
		var files *judge0.FileBundle
		if cfg.Judge0.AdditionalFilesURL != "" {
			files = judge0.NewFileBundle(cfg.Judge0.AdditionalFilesURL, nil)
		}
		return runFile(ctx, judge0.NewRunner(client, files), args[1:], stdout, stderr)
	case "languages":
		return listLanguages(ctx, languages.NewRegistry(client), args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "judgeide: unknown command %q\n%s", args[0], usage)
		return 2
	}
}

func runFile(ctx context.Context, runner *judge0.Runner, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	langID := fs.Int("language", 0, "Judge0 language id (default: inferred from the file extension)")
	flavorName := fs.String("flavor", "", "Judge0 flavor, CE or EXTRA_CE")
	stdinPath := fs.String("stdin", "", "file fed to the program's standard input")
	cliArgs := fs.String("args", "", "command line arguments")
	compilerOpts := fs.String("compiler-options", "", "compiler options")
	apiKey := fs.String("api-key", "", "Judge0 API key for this submission")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	path := fs.Arg(0)

	ref := languages.ForFile(filepath.Base(path))
	if *langID != 0 {
		ref.LanguageID = *langID
	}
	if *flavorName != "" {
		f, err := judge0.ParseFlavor(*flavorName)
		if err != nil {
			fmt.Fprintln(stderr, "judgeide:", err)
			return 2
		}
		ref.Flavor = f
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stderr, "judgeide:", err)
		return 1
	}

	req := judge0.SubmissionRequest{
		SourceCode:             string(src),
		LanguageID:             ref.LanguageID,
		Flavor:                 ref.Flavor,
		CompilerOptions:        *compilerOpts,
		CommandLineArguments:   *cliArgs,
		RedirectStderrToStdout: true,
	}
	if *stdinPath != "" {
		in, err := os.ReadFile(*stdinPath)
		if err != nil {
			fmt.Fprintln(stderr, "judgeide:", err)
			return 1
		}
		req.Stdin = string(in)
	}
	if *apiKey != "" {
		ctx = judge0.WithAPIKey(ctx, *apiKey)
	}

	start := time.Now()
	res, err := runner.Run(ctx, req)
	if err != nil {
		var verr *judge0.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(stderr, "judgeide: invalid request:", err)
			return 2
		}
		fmt.Fprintln(stderr, "judgeide:", err)
		return 1
	}

	fmt.Fprintln(stdout, res.Output())
	fmt.Fprintln(stderr, session.FormatStatusLine(res, time.Since(start)))
	if res.Status.ID != judge0.StatusAccepted {
		return 1
	}
	return 0
}

func listLanguages(ctx context.Context, registry *languages.Registry, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flavorName := fs.String("flavor", "", "list only this flavor, CE or EXTRA_CE")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var entries []languages.Entry
	if *flavorName != "" {
		f, err := judge0.ParseFlavor(*flavorName)
		if err != nil {
			fmt.Fprintln(stderr, "judgeide:", err)
			return 2
		}
		langs, err := registry.List(ctx, f)
		if err != nil {
			fmt.Fprintln(stderr, "judgeide:", err)
			return 1
		}
		for _, l := range langs {
			entries = append(entries, languages.Entry{Language: l, Mode: languages.EditorMode(l.Name)})
		}
	} else {
		var err error
		entries, err = registry.Merged(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "judgeide:", err)
			return 1
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFLAVOR\tNAME\tMODE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Flavor, e.Name, e.Mode)
	}
	tw.Flush()
	return 0
}
