package textproc

import (
	"regexp"
	"strings"
)

var (
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
	reLineSpaces = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// Normalize collapses whitespace while preserving paragraph breaks.
// Newline variants become a single line feed, interior whitespace within a
// line becomes a single space, and runs of blank lines collapse to exactly
// one blank line. Leading and trailing blank lines are stripped.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(reLineSpaces.ReplaceAllString(ln, " "))
	}

	// Strip empty lines at the extremes.
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}

// SplitParagraphs splits normalized text on blank-line boundaries,
// dropping empty paragraphs.
func SplitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
