package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"lower y", "y\n", true},
		{"upper Y", "Y\n", true},
		{"padded", "  y  \n", true},
		{"no newline", "y", true},
		{"windows newline", "y\r\n", true},
		{"no", "n\n", false},
		{"yes word", "yes\n", false},
		{"empty line", "\n", false},
		{"eof", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := confirm(strings.NewReader(tt.input), &out, downloadPrompt); got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.HasPrefix(out.String(), downloadPrompt) {
				t.Errorf("prompt not written, got %q", out.String())
			}
		})
	}
}

func TestConfirmNilReader(t *testing.T) {
	var out bytes.Buffer
	if confirm(nil, &out, downloadPrompt) {
		t.Error("nil reader should answer no")
	}
}
