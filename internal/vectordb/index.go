// Package vectordb stores chunk embeddings and answers nearest-neighbour
// queries against them.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultNamespace is the partition the reference prompts live in.
const DefaultNamespace = "promptsdb"

// ErrInvalidRecord is returned for records an index cannot store.
var ErrInvalidRecord = errors.New("invalid vector record")

// Index is a namespaced vector index.
type Index interface {
	// Upsert inserts or overwrites records by ID. Either the whole batch is
	// written or an error is returned.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Query returns up to req.TopK matches ordered by descending score.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)

	// Name identifies the backend for logs.
	Name() string
}

// Record is one embedded chunk as written to the index.
type Record struct {
	ID       string
	Values   []float32
	Metadata RecordMetadata
}

// RecordMetadata is stored alongside every vector.
type RecordMetadata struct {
	Text        string   `json:"text"`
	Filename    string   `json:"filename"`
	SourcePath  string   `json:"source_path"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
}

// QueryRequest describes a similarity query. Filter restricts matches to
// records whose metadata fields equal the given values.
type QueryRequest struct {
	Vector          []float32
	TopK            int
	Namespace       string
	IncludeMetadata bool
	Filter          map[string]string
}

// Match is a record returned by a query with its similarity score.
type Match struct {
	ID       string
	Score    float32
	Metadata RecordMetadata
}

func validateRecords(records []Record) error {
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: empty record ID", ErrInvalidRecord)
		}
		if len(r.Values) == 0 {
			return fmt.Errorf("%w: record %s has no vector", ErrInvalidRecord, r.ID)
		}
	}
	return nil
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
