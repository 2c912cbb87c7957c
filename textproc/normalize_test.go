package textproc

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "crlf becomes lf",
			input: "line one\r\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "bare cr becomes lf",
			input: "line one\rline two",
			want:  "line one\nline two",
		},
		{
			name:  "blank line runs collapse to one",
			input: "para one\n\n\n\n\npara two",
			want:  "para one\n\npara two",
		},
		{
			name:  "interior whitespace collapses",
			input: "too   many\tspaces here",
			want:  "too many spaces here",
		},
		{
			name:  "leading and trailing blank lines stripped",
			input: "\n\n  \ncontent here\n\n \n",
			want:  "content here",
		},
		{
			name:  "whitespace only",
			input: "   \n\t\n  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	input := "First  paragraph.\r\n\r\n\r\nSecond\tparagraph here.\n"
	once := Normalize(input)
	twice := Normalize(once)
	if once != twice {
		t.Errorf("Normalize not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestSplitParagraphs(t *testing.T) {
	text := Normalize("First paragraph.\n\nSecond paragraph.\n\n\n\nThird.")
	got := SplitParagraphs(text)
	want := []string{"First paragraph.", "Second paragraph.", "Third."}
	if len(got) != len(want) {
		t.Fatalf("got %d paragraphs %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitParagraphsDropsEmpty(t *testing.T) {
	got := SplitParagraphs("one\n\n   \n\ntwo")
	if len(got) != 2 {
		t.Fatalf("got %d paragraphs %v, want 2", len(got), got)
	}
	if strings.TrimSpace(got[0]) != "one" || strings.TrimSpace(got[1]) != "two" {
		t.Errorf("unexpected paragraphs: %v", got)
	}
}
