package textproc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChunkConfig is returned when the chunk-size budget cannot
// accommodate any retained content.
var ErrInvalidChunkConfig = errors.New("textproc: invalid chunker configuration")

// Config controls chunk assembly.
type Config struct {
	TargetChars      int // Target chunk size in characters (~800-900 tokens at 3500).
	OverlapSentences int // Trailing sentences carried into the next chunk.
}

// Chunker packs sentence sequences into size-bounded, overlapping chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// A zero TargetChars falls back to the standard 3500. OverlapSentences is
// taken as given, so an explicit zero disables overlap; a negative value or
// a target too small to hold any retained chunk is rejected as a
// configuration error.
func New(cfg Config) (*Chunker, error) {
	if cfg.TargetChars == 0 {
		cfg.TargetChars = 3500
	}
	if cfg.TargetChars < 200 || cfg.OverlapSentences < 0 {
		return nil, fmt.Errorf("%w: target_chars=%d overlap_sentences=%d",
			ErrInvalidChunkConfig, cfg.TargetChars, cfg.OverlapSentences)
	}
	return &Chunker{cfg: cfg}, nil
}

// MinChunkChars returns the size floor below which emitted chunks are
// discarded as degenerate trailing fragments.
func (c *Chunker) MinChunkChars() int {
	floor := c.cfg.TargetChars * 15 / 100
	if floor < 200 {
		floor = 200
	}
	return floor
}

// ChunkSentences greedily packs sentences into chunks of at most TargetChars
// characters, seeding each new chunk with the last OverlapSentences
// non-sentinel sentences so consecutive chunks share trailing context.
// A single sentence longer than TargetChars is emitted whole, never
// truncated. Chunks below the size floor are discarded.
func (c *Chunker) ChunkSentences(sentences []string) []string {
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf []string
	bufLen := 0
	overlapOnly := false // buf holds only the overlap seed, no new sentence yet

	emit := func() {
		if len(buf) == 0 {
			return
		}
		var parts []string
		for _, s := range buf {
			if s != ParagraphBreak {
				parts = append(parts, s)
			}
		}
		if chunk := strings.TrimSpace(strings.Join(parts, " ")); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf = buf[:0]
		bufLen = 0
	}

	i := 0
	for i < len(sentences) {
		s := sentences[i]

		// A paragraph sentinel never starts a chunk.
		if bufLen == 0 && s == ParagraphBreak {
			i++
			continue
		}

		if len(buf) > 0 && !overlapOnly && bufLen+len(s)+1 > c.cfg.TargetChars {
			emit()
			// Seed the new buffer with trailing non-sentinel sentences
			// from just before the current position.
			if c.cfg.OverlapSentences > 0 {
				var back []string
				for j := i - 1; j >= 0 && len(back) < c.cfg.OverlapSentences; j-- {
					if sentences[j] != ParagraphBreak {
						back = append(back, sentences[j])
					}
				}
				for k := len(back) - 1; k >= 0; k-- {
					buf = append(buf, back[k])
					bufLen += len(back[k]) + 1
				}
				overlapOnly = len(buf) > 0
			}
			continue
		}

		buf = append(buf, s)
		bufLen += len(s) + 1
		if s != ParagraphBreak {
			overlapOnly = false
		}
		i++
	}
	emit()

	// Drop degenerate trailing fragments.
	floor := c.MinChunkChars()
	kept := chunks[:0]
	for _, ch := range chunks {
		if len(ch) >= floor {
			kept = append(kept, ch)
		}
	}
	return kept
}

// ChunkText runs the full normalize/segment/pack pipeline on raw text,
// falling back to paragraph-based packing when sentence packing yields
// nothing (e.g. pathological input with no sentence boundaries).
func (c *Chunker) ChunkText(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	chunks := c.ChunkSentences(SplitSentences(normalized))
	if len(chunks) == 0 {
		chunks = c.ChunkParagraphs(normalized)
	}
	return chunks
}

// TextChunk is a contiguous, size-bounded span of article text prepared for
// downstream embedding, with provenance metadata.
type TextChunk struct {
	PublicationID string `json:"publication_id"`
	Section       string `json:"section,omitempty"`
	Text          string `json:"text"`
	ChunkIndex    int    `json:"chunk_index"`
	CharStart     int    `json:"char_start"`
	CharEnd       int    `json:"char_end"`
}

// ChunkDocument chunks raw article text and wraps the result in TextChunk
// records. Offsets are positions in the canonical space-joined sentence
// stream of the document; overlapped sentences keep the offsets of their
// first emission, so char_start is strictly increasing across chunks.
func (c *Chunker) ChunkDocument(publicationID, section, text string) []TextChunk {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	sentences := SplitSentences(normalized)
	chunks := c.ChunkSentences(sentences)

	stream := canonicalStream(sentences)
	if len(chunks) == 0 {
		chunks = c.ChunkParagraphs(normalized)
		stream = normalized
	}

	out := make([]TextChunk, 0, len(chunks))
	prevStart := -1
	for i, ch := range chunks {
		start := locate(stream, ch, prevStart+1)
		out = append(out, TextChunk{
			PublicationID: publicationID,
			Section:       section,
			Text:          ch,
			ChunkIndex:    i,
			CharStart:     start,
			CharEnd:       start + len(ch),
		})
		prevStart = start
	}
	return out
}

// canonicalStream joins the non-sentinel sentences with single spaces.
// Every sentence-packed chunk is a contiguous substring of this stream.
func canonicalStream(sentences []string) string {
	var parts []string
	for _, s := range sentences {
		if s != ParagraphBreak {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// locate finds text within stream at or after from. Paragraph-fallback
// chunks re-split through the sentence path are not substrings of the
// stream; those fall back to the cursor position.
func locate(stream, text string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(stream) {
		return from
	}
	if idx := strings.Index(stream[from:], text); idx >= 0 {
		return from + idx
	}
	return from
}
