// Package embeddings turns text into fixed-length vectors.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// DefaultDimensions is the vector length the reference index is built with.
const DefaultDimensions = 768

// ErrDimensionMismatch is returned when a backend produces vectors of an
// unexpected length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%s returned %d embeddings for one text", e.Name(), len(vecs))
	}
	return vecs[0], nil
}

func checkDimensions(name string, want int, vecs [][]float32) error {
	if want <= 0 {
		return nil
	}
	for i, v := range vecs {
		if len(v) != want {
			return fmt.Errorf("%w: %s vector %d has %d dimensions, want %d", ErrDimensionMismatch, name, i, len(v), want)
		}
	}
	return nil
}
