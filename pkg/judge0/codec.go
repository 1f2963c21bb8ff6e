package judge0

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encode converts text to the transport form Judge0 expects with
// base64_encoded=true: UTF-8 bytes in standard base64.
func Encode(text string) string {
	if text == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// Decode converts a base64 field from Judge0 back into text. It never fails:
// payloads that are not valid base64 are returned as received, and bytes
// that are not valid UTF-8 are mapped one byte per rune (ISO-8859-1) so that
// partially corrupt program output can still be displayed.
func Decode(s string) string {
	if s == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(stripNewlines(s))
	if err != nil {
		return s
	}
	return bytesToText(raw)
}

func bytesToText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// stripNewlines removes the line breaks Judge0 inserts into long base64 values.
func stripNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
