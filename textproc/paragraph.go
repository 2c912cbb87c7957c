package textproc

import "strings"

// oversizeFactor is the multiple of TargetChars beyond which a
// paragraph-packed chunk is re-split at sentence boundaries.
const oversizeFactor = 1.5

// ChunkParagraphs greedily accumulates whole paragraphs until adding the
// next would exceed TargetChars, always accepting at least one paragraph
// per chunk so progress is guaranteed. Chunks that still exceed
// oversizeFactor x TargetChars are re-split through the sentence packer.
func (c *Chunker) ChunkParagraphs(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := SplitParagraphs(text)
	var chunks []string
	var cur []string
	curLen := 0

	for _, p := range paragraphs {
		if curLen+len(p)+2 <= c.cfg.TargetChars || len(cur) == 0 {
			cur = append(cur, p)
			curLen += len(p) + 2
		} else {
			chunks = append(chunks, strings.Join(cur, "\n\n"))
			cur = []string{p}
			curLen = len(p) + 2
		}
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, "\n\n"))
	}

	limit := int(float64(c.cfg.TargetChars) * oversizeFactor)
	var final []string
	for _, ch := range chunks {
		if len(ch) > limit {
			final = append(final, c.ChunkSentences(SplitSentences(ch))...)
		} else {
			final = append(final, ch)
		}
	}
	return final
}
