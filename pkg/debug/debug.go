// Package debug provides category-based debug logging for judgeide.
//
// Categories select which subsystems emit debug output (JUDGEIDE_DEBUG or
// logging.debug in config); the level selects how much detail the default
// slog handler prints (JUDGEIDE_LOG_LEVEL or logging.level).
//
//	debug.Log("judge0", "submit", "flavor", "CE", "url", url)
//	if debug.Enabled("judge0") { ... }
//
// Categories: judge0, languages, session, assist, history, server, mcp, auth, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"
)

// LevelTrace sits below slog.LevelDebug. Full request and response bodies
// are only logged at this level.
const LevelTrace = slog.LevelDebug - 4

// Environment variables that override configuration.
const (
	EnvCategories = "JUDGEIDE_DEBUG"
	EnvLevel      = "JUDGEIDE_LOG_LEVEL"
	EnvFormat     = "JUDGEIDE_LOG_FORMAT"
)

// categories is written by Setup at startup and only read afterwards.
var categories map[string]bool

// rawOut receives Raw output.
var rawOut io.Writer = os.Stderr

func init() {
	categories = parseCategories(os.Getenv(EnvCategories))
}

// Options configures the logging setup.
type Options struct {
	// Categories is a comma separated list of debug categories.
	Categories string

	// Level is one of TRACE, DEBUG, INFO, WARN, ERROR. Defaults to INFO.
	Level string

	// Format is "text" (default) or "json".
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Init configures categories and the default slog logger from config
// values. Environment variables take precedence.
func Init(configCategories, configLevel string) {
	Setup(Options{Categories: configCategories, Level: configLevel})
}

// Setup installs the default slog logger described by opts. Environment
// variables take precedence over opts.
func Setup(opts Options) {
	cats := firstNonEmpty(os.Getenv(EnvCategories), opts.Categories)
	categories = parseCategories(cats)

	level := ParseLevel(firstNonEmpty(os.Getenv(EnvLevel), opts.Level))
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	rawOut = out

	hopts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevelName}
	var h slog.Handler
	if strings.EqualFold(firstNonEmpty(os.Getenv(EnvFormat), opts.Format), "json") {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = slog.NewTextHandler(out, hopts)
	}
	slog.SetDefault(slog.New(h))
}

// replaceLevelName prints LevelTrace as "TRACE" instead of "DEBUG-4".
func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Enabled reports whether debug output is active for category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a DEBUG record tagged with category when the category is enabled.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a TRACE record tagged with category when the category is enabled.
func Trace(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether category is enabled and the logger accepts TRACE.
func TraceIsEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes text verbatim, without slog formatting, when TraceIsEnabled.
func Raw(category, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(rawOut, text)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	out := make([]string, 0, len(categories))
	for k := range categories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence, appending "..." when something was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
