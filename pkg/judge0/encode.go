package judge0

import (
	"strings"
)

// SubmissionPayload is the JSON body of POST /submissions.
type SubmissionPayload struct {
	SourceCode             string `json:"source_code"`
	LanguageID             int    `json:"language_id"`
	Stdin                  string `json:"stdin"`
	CompilerOptions        string `json:"compiler_options"`
	CommandLineArguments   string `json:"command_line_arguments"`
	RedirectStderrToStdout bool   `json:"redirect_stderr_to_stdout"`
	AdditionalFiles        string `json:"additional_files,omitempty"`
}

// ValidateRequest rejects requests that must not reach the network.
func ValidateRequest(req *SubmissionRequest) error {
	if strings.TrimSpace(req.SourceCode) == "" {
		return &ValidationError{Field: "source_code", Message: "Source code can't be empty!"}
	}
	if req.LanguageID <= 0 {
		return &ValidationError{Field: "language_id", Message: "language id must be positive"}
	}
	if !req.Flavor.Valid() {
		return &ValidationError{Field: "flavor", Message: "unknown flavor " + req.Flavor.String()}
	}
	return nil
}

// EncodeRequest validates req and converts it into the wire payload.
// Source code is base64 encoded except for LanguageMultiFile, which Judge0
// expects as raw text; stdin is always encoded.
func EncodeRequest(req *SubmissionRequest) (*SubmissionPayload, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	source := Encode(req.SourceCode)
	if req.LanguageID == LanguageMultiFile {
		source = req.SourceCode
	}

	return &SubmissionPayload{
		SourceCode:             source,
		LanguageID:             req.LanguageID,
		Stdin:                  Encode(req.Stdin),
		CompilerOptions:        req.CompilerOptions,
		CommandLineArguments:   req.CommandLineArguments,
		RedirectStderrToStdout: req.RedirectStderrToStdout,
		AdditionalFiles:        req.AdditionalFiles,
	}, nil
}
