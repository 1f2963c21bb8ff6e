package judge0

import (
	"encoding/base64"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"ascii", "print(1)\n"},
		{"multi-byte", "héllo wörld ✓ 日本語"},
		{"emoji", "😀 done"},
		{"control characters", "a\tb\r\nc\x00d\x1b[0m"},
		{"long", string(make([]byte, 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(Encode(tt.text)); got != tt.text {
				t.Errorf("Decode(Encode(%q)) = %q", tt.text, got)
			}
		})
	}
}

func TestEncode_Empty(t *testing.T) {
	if got := Encode(""); got != "" {
		t.Errorf("Encode(\"\") = %q, want empty", got)
	}
}

func TestDecode_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "not base64 returned unchanged",
			input: "not base64!!",
			want:  "not base64!!",
		},
		{
			name:  "latin-1 bytes mapped per byte",
			input: base64.StdEncoding.EncodeToString([]byte{'c', 'a', 'f', 0xe9}),
			want:  "café",
		},
		{
			name:  "truncated utf-8 sequence",
			input: base64.StdEncoding.EncodeToString([]byte{0xe6, 0x97}),
			want:  "æ\u0097",
		},
		{
			name:  "line-wrapped base64",
			input: "aGVs\nbG8=\n",
			want:  "hello",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.input); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecode_ArbitraryBytesNeverPanics(t *testing.T) {
	for i := 0; i < 256; i++ {
		raw := []byte{byte(i), byte(255 - i), 0x80, byte(i ^ 0x5a)}
		_ = Decode(base64.StdEncoding.EncodeToString(raw))
	}
}

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		name       string
		req        SubmissionRequest
		wantErr    bool
		wantSource string
		wantStdin  string
	}{
		{
			name:       "source and stdin encoded",
			req:        SubmissionRequest{SourceCode: "print(1)", LanguageID: 71, Stdin: "5"},
			wantSource: Encode("print(1)"),
			wantStdin:  Encode("5"),
		},
		{
			name:       "multi-file language keeps raw source",
			req:        SubmissionRequest{SourceCode: "UEsDBBQ=", LanguageID: LanguageMultiFile, Stdin: "x"},
			wantSource: "UEsDBBQ=",
			wantStdin:  Encode("x"),
		},
		{
			name:    "empty source rejected",
			req:     SubmissionRequest{SourceCode: "", LanguageID: 71},
			wantErr: true,
		},
		{
			name:    "whitespace source rejected",
			req:     SubmissionRequest{SourceCode: " \n\t", LanguageID: 71},
			wantErr: true,
		},
		{
			name:    "missing language rejected",
			req:     SubmissionRequest{SourceCode: "x"},
			wantErr: true,
		},
		{
			name:    "unknown flavor rejected",
			req:     SubmissionRequest{SourceCode: "x", LanguageID: 71, Flavor: Flavor(7)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := EncodeRequest(&tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if HTTPStatus(err) != 400 {
					t.Errorf("HTTPStatus = %d, want 400", HTTPStatus(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.SourceCode != tt.wantSource {
				t.Errorf("source_code = %q, want %q", p.SourceCode, tt.wantSource)
			}
			if p.Stdin != tt.wantStdin {
				t.Errorf("stdin = %q, want %q", p.Stdin, tt.wantStdin)
			}
		})
	}
}

func TestEncodeRequest_EmptySourceMessage(t *testing.T) {
	_, err := EncodeRequest(&SubmissionRequest{LanguageID: 71})
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Message != "Source code can't be empty!" {
		t.Errorf("message = %q", verr.Message)
	}
}
