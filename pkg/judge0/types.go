// Package judge0 implements the submission lifecycle against a remote Judge0
// code execution service: request encoding, asynchronous submission, and
// bounded status polling until a terminal result is available.
package judge0

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flavor selects one of the two independently deployed Judge0 backends.
type Flavor int

const (
	// FlavorCE is the primary Judge0 CE deployment.
	FlavorCE Flavor = iota

	// FlavorExtraCE is the Judge0 Extra CE deployment with additional languages.
	FlavorExtraCE
)

// Flavors lists every known flavor in lookup order.
var Flavors = []Flavor{FlavorCE, FlavorExtraCE}

// String returns the wire name of the flavor.
func (f Flavor) String() string {
	switch f {
	case FlavorCE:
		return "CE"
	case FlavorExtraCE:
		return "EXTRA_CE"
	default:
		return "Flavor(" + strconv.Itoa(int(f)) + ")"
	}
}

// Valid reports whether f is a known flavor.
func (f Flavor) Valid() bool {
	switch f {
	case FlavorCE, FlavorExtraCE:
		return true
	default:
		return false
	}
}

// ParseFlavor converts a wire name ("CE", "EXTRA_CE") to a Flavor.
// Matching is case-insensitive and accepts "extra-ce" as an alias.
func ParseFlavor(s string) (Flavor, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CE", "":
		return FlavorCE, nil
	case "EXTRA_CE", "EXTRA-CE":
		return FlavorExtraCE, nil
	default:
		return 0, fmt.Errorf("unknown flavor %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Flavor) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("unknown flavor %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Flavor) UnmarshalText(b []byte) error {
	v, err := ParseFlavor(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Language ids with special submission handling.
const (
	// LanguageMultiFile is sent with raw, unencoded source code.
	LanguageMultiFile = 44

	// LanguageSQLite needs the additional files bundle attached.
	LanguageSQLite = 82

	// LanguagePlainText is the fallback for unrecognized file extensions.
	LanguagePlainText = 43

	// LanguageMultiFileProgram is hidden from language listings.
	LanguageMultiFileProgram = 89

	// LanguageDefault is C++ (GCC 14.1.0).
	LanguageDefault = 105
)

// SubmissionRequest is a single execution request as produced by the caller.
// Text fields hold plain text; encoding for transport happens in EncodeRequest.
type SubmissionRequest struct {
	SourceCode             string
	LanguageID             int
	Flavor                 Flavor
	Stdin                  string
	CompilerOptions        string
	CommandLineArguments   string
	RedirectStderrToStdout bool

	// AdditionalFiles is a base64 zip bundle. When empty and LanguageID is
	// LanguageSQLite, the runner attaches the shared bundle.
	AdditionalFiles string
}

// Handle identifies one in-flight job on one flavor.
type Handle struct {
	Token  string `json:"token"`
	Flavor Flavor `json:"flavor"`

	// Region pins polling to the partition that accepted the submission.
	// It is passed through verbatim and never interpreted.
	Region string `json:"region,omitempty"`
}

// Status is the Judge0 submission status.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Judge0 status ids.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeSIGSEGV    = 7
	StatusRuntimeSIGXFSZ    = 8
	StatusRuntimeSIGFPE     = 9
	StatusRuntimeSIGABRT    = 10
	StatusRuntimeNZEC       = 11
	StatusRuntimeOther      = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

// StatusKind folds the Judge0 status ids into coarse categories.
type StatusKind string

const (
	KindQueued            StatusKind = "queued"
	KindProcessing        StatusKind = "processing"
	KindAccepted          StatusKind = "accepted"
	KindWrongAnswer       StatusKind = "wrong_answer"
	KindTimeLimitExceeded StatusKind = "time_limit_exceeded"
	KindCompilationError  StatusKind = "compilation_error"
	KindRuntimeError      StatusKind = "runtime_error"
	KindInternalError     StatusKind = "internal_error"
	KindExecFormatError   StatusKind = "exec_format_error"
)

// Terminal reports whether polling can stop. Only In Queue and Processing
// are non-terminal.
func (s Status) Terminal() bool {
	return s.ID > StatusProcessing
}

// Kind returns the category of the status.
func (s Status) Kind() StatusKind {
	switch {
	case s.ID <= StatusInQueue:
		return KindQueued
	case s.ID == StatusProcessing:
		return KindProcessing
	case s.ID == StatusAccepted:
		return KindAccepted
	case s.ID == StatusWrongAnswer:
		return KindWrongAnswer
	case s.ID == StatusTimeLimitExceeded:
		return KindTimeLimitExceeded
	case s.ID == StatusCompilationError:
		return KindCompilationError
	case s.ID >= StatusRuntimeSIGSEGV && s.ID <= StatusRuntimeOther:
		return KindRuntimeError
	case s.ID == StatusExecFormatError:
		return KindExecFormatError
	default:
		return KindInternalError
	}
}

// Result is the decoded outcome of a submission that reached a terminal status.
type Result struct {
	Token         string `json:"token"`
	Status        Status `json:"status"`
	Stdout        string `json:"stdout"`
	CompileOutput string `json:"compile_output"`

	// Time is the CPU time in seconds as reported by Judge0 ("0.01").
	// Empty when the service reported null.
	Time string `json:"time,omitempty"`

	// Memory is the peak memory in KB, nil when not reported.
	Memory *int64 `json:"memory,omitempty"`
}

// Duration parses Time into a time.Duration.
func (r *Result) Duration() (time.Duration, bool) {
	if r.Time == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(r.Time, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// TimeLabel formats Time as "0.01s", or "-" when absent.
func (r *Result) TimeLabel() string {
	if r.Time == "" {
		return "-"
	}
	return r.Time + "s"
}

// MemoryLabel formats Memory as "1200KB", or "-" when absent.
func (r *Result) MemoryLabel() string {
	if r.Memory == nil {
		return "-"
	}
	return strconv.FormatInt(*r.Memory, 10) + "KB"
}

// Output joins compile output and stdout the way the editor displays them.
func (r *Result) Output() string {
	return strings.TrimSpace(r.CompileOutput + "\n" + r.Stdout)
}

// Language describes one language offered by a flavor.
type Language struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	SourceFile string `json:"source_file,omitempty"`
	Flavor     Flavor `json:"flavor"`
}
