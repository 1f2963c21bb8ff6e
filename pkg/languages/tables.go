package languages

import (
	"path/filepath"
	"strings"

	"github.com/rhuss/judgeide/pkg/judge0"
)

// Ref points at one language of one flavor.
type Ref struct {
	Flavor     judge0.Flavor `json:"flavor"`
	LanguageID int           `json:"language_id"`
}

// PlainText is the language used for unknown file extensions.
var PlainText = Ref{Flavor: judge0.FlavorCE, LanguageID: judge0.LanguagePlainText}

var extensions = map[string]Ref{
	"asm":   {judge0.FlavorCE, 45},      // Assembly (NASM 2.14.02)
	"c":     {judge0.FlavorCE, 103},     // C (GCC 14.1.0)
	"cpp":   {judge0.FlavorCE, 105},     // C++ (GCC 14.1.0)
	"cs":    {judge0.FlavorExtraCE, 29}, // C# (.NET Core SDK 7.0.400)
	"go":    {judge0.FlavorCE, 95},      // Go (1.18.5)
	"java":  {judge0.FlavorCE, 91},      // Java (JDK 17.0.6)
	"js":    {judge0.FlavorCE, 102},     // JavaScript (Node.js 22.08.0)
	"lua":   {judge0.FlavorCE, 64},      // Lua (5.3.5)
	"pas":   {judge0.FlavorCE, 67},      // Pascal (FPC 3.0.4)
	"php":   {judge0.FlavorCE, 98},      // PHP (8.3.11)
	"py":    {judge0.FlavorExtraCE, 25}, // Python for ML (3.11.2)
	"r":     {judge0.FlavorCE, 99},      // R (4.4.1)
	"rb":    {judge0.FlavorCE, 72},      // Ruby (2.7.0)
	"rs":    {judge0.FlavorCE, 73},      // Rust (1.40.0)
	"scala": {judge0.FlavorCE, 81},      // Scala (2.13.2)
	"sh":    {judge0.FlavorCE, 46},      // Bash (5.0.0)
	"swift": {judge0.FlavorCE, 83},      // Swift (5.2.3)
	"ts":    {judge0.FlavorCE, 101},     // TypeScript (5.6.2)
	"txt":   {judge0.FlavorCE, 43},      // Plain Text
}

// ForExtension maps a file extension (with or without the leading dot) to a
// language, falling back to PlainText.
func ForExtension(ext string) Ref {
	if ref, ok := extensions[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return ref
	}
	return PlainText
}

// ForFile maps a file name to a language by its extension.
func ForFile(name string) Ref {
	return ForExtension(filepath.Ext(name))
}

// DefaultMode is the editor mode for languages without syntax support.
const DefaultMode = "plaintext"

// modes maps display-name prefixes to editor syntax modes.
var modes = []struct {
	prefix string
	mode   string
}{
	{"Bash", "shell"},
	{"C", "c"},
	{"C3", "c"},
	{"C#", "csharp"},
	{"C++", "cpp"},
	{"Clojure", "clojure"},
	{"F#", "fsharp"},
	{"Go", "go"},
	{"Java", "java"},
	{"JavaScript", "javascript"},
	{"Kotlin", "kotlin"},
	{"Objective-C", "objective-c"},
	{"Pascal", "pascal"},
	{"Perl", "perl"},
	{"PHP", "php"},
	{"Python", "python"},
	{"R", "r"},
	{"Ruby", "ruby"},
	{"SQL", "sql"},
	{"Swift", "swift"},
	{"TypeScript", "typescript"},
	{"Visual Basic", "vb"},
}

// EditorMode returns the syntax mode for a language display name. The
// longest matching prefix wins, compared case-insensitively, so "C++ (GCC)"
// maps to cpp rather than c.
func EditorMode(name string) string {
	lower := strings.ToLower(name)
	best, bestLen := DefaultMode, 0
	for _, m := range modes {
		p := strings.ToLower(m.prefix)
		if len(p) > bestLen && strings.HasPrefix(lower, p) {
			best, bestLen = m.mode, len(p)
		}
	}
	return best
}
