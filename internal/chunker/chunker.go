// Package chunker splits extracted document text into overlapping windows
// sized for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

// Config controls chunk window sizing.
type Config struct {
	// WindowSize is the maximum chunk length in runes.
	WindowSize int
	// Overlap is how many runes consecutive chunks share.
	Overlap int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		WindowSize: 1000,
		Overlap:    200,
	}
}

// Validate rejects configurations that cannot make progress.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("chunk window size must be positive, got %d", c.WindowSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.WindowSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than window size (%d)", c.Overlap, c.WindowSize)
	}
	return nil
}

// Chunk splits text into overlapping chunks in document order. Chunks are
// exact contiguous substrings of the input, so every rune of the source
// appears in at least one chunk. Splitting prefers line, then sentence,
// then word boundaries before falling back to a hard cut. Whitespace-only
// input yields no chunks. The same text and config always produce the same
// sequence.
func Chunk(text string, cfg Config) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}

	runes := []rune(text)
	spans := chunkSpans(runes, cfg)

	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunks = append(chunks, string(runes[s[0]:s[1]]))
	}
	return chunks
}

// chunkSpans computes [start, end) rune offsets for each chunk. Consecutive
// spans overlap by at most cfg.Overlap and together cover [0, len(runes)).
func chunkSpans(runes []rune, cfg Config) [][2]int {
	if len(runes) <= cfg.WindowSize {
		return [][2]int{{0, len(runes)}}
	}

	var spans [][2]int
	start := 0
	for start < len(runes) {
		end := start + cfg.WindowSize
		if end >= len(runes) {
			spans = append(spans, [2]int{start, len(runes)})
			break
		}

		cut := boundaryCut(runes, start, end)
		spans = append(spans, [2]int{start, cut})

		next := cut - cfg.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return spans
}

// boundaryCut picks a cut point in (start, end], scanning backwards no
// further than half the window so short tail chunks stay rare. Preference
// order: line break, sentence end, word break, hard cut at end.
func boundaryCut(runes []rune, start, end int) int {
	minCut := start + (end-start)/2

	for i := end; i > minCut; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}

	for i := end - 1; i > minCut; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	for i := end; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}
