package textproc

import "strings"

// ParagraphBreak is the sentinel inserted between sentences that belonged
// to different paragraphs. It never appears as the first element of a
// sentence sequence, never twice in a row, and is dropped from chunk text.
const ParagraphBreak = "\n\n"

// minSentenceChars is the threshold below which a fragment is merged into
// the preceding sentence instead of standing alone. Abbreviations like
// "et al." or "Fig. 3" otherwise produce spurious micro-sentences.
const minSentenceChars = 20

// SplitSentences splits normalized text into an ordered sequence of
// sentences, inserting ParagraphBreak between sentences from different
// paragraphs. Empty input yields an empty sequence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	for _, para := range SplitParagraphs(text) {
		parts := splitTerminal(para)

		// Merge tiny fragments into the preceding sentence within the
		// same paragraph.
		var merged []string
		for _, s := range parts {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if len(merged) > 0 && len(s) < minSentenceChars {
				merged[len(merged)-1] = merged[len(merged)-1] + " " + s
			} else {
				merged = append(merged, s)
			}
		}
		if len(merged) == 0 {
			continue
		}

		if len(sentences) > 0 {
			sentences = append(sentences, ParagraphBreak)
		}
		sentences = append(sentences, merged...)
	}
	return sentences
}

// splitTerminal is a simple sentence tokeniser. It splits after
// period/question-mark/exclamation followed by whitespace or end of string.
func splitTerminal(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				s := strings.TrimSpace(cur.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
