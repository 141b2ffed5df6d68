// Package chunker splits documents into overlapping token windows.
package chunker

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/promptgenie/internal/tokenizer"
)

// Defaults used by the ingestion job.
const (
	DefaultSize    = 400
	DefaultOverlap = 75
)

// ErrInvalidConfig is returned for window parameters that cannot make progress.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunk is one window of a document. Start and End are token offsets,
// End exclusive.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Chunker produces fixed-size token windows with a fixed overlap.
type Chunker struct {
	tok     tokenizer.Tokenizer
	size    int
	overlap int
}

// New validates the window parameters. overlap must be strictly smaller
// than size or the window would never advance.
func New(tok tokenizer.Tokenizer, size, overlap int) (*Chunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("%w: tokenizer is required", ErrInvalidConfig)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, size, overlap)
	}
	return &Chunker{tok: tok, size: size, overlap: overlap}, nil
}

// Size returns the window size in tokens.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of tokens shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks text. A document that fits in one window is returned as-is,
// without a tokenize/detokenize round trip. Empty text yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	tokens := c.tok.Encode(text)
	total := len(tokens)
	if total <= c.size {
		return []Chunk{{Index: 0, Start: 0, End: total, Text: text}}
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, Count(total, c.size, c.overlap))
	for start := 0; ; start += step {
		end := min(start+c.size, total)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  c.tok.Decode(tokens[start:end]),
		})
		if end == total {
			break
		}
	}
	return chunks
}

// Count returns how many chunks Split produces for a document of n tokens.
func Count(n, size, overlap int) int {
	if n <= 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n - overlap + step - 1) / step
}
