package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemIndex implements Index on an embedded chromem-go database. Each
// namespace is its own collection. With a directory the database is
// persisted on every write; without one it lives in memory.
type ChromemIndex struct {
	db  *chromem.DB
	dir string

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewChromemIndex opens (or creates) a chromem database. An empty dir gives
// an in-memory index.
func NewChromemIndex(dir string) (*ChromemIndex, error) {
	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
		}
	}
	return &ChromemIndex{
		db:          db,
		dir:         dir,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *ChromemIndex) Name() string {
	return "chromem"
}

// precomputedOnly is installed as the collection embedding function. Every
// record and query arrives with its vector, so it must never be called.
func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem index requires precomputed embeddings")
}

func (s *ChromemIndex) collection(namespace string) (*chromem.Collection, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[namespace]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(namespace, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", namespace, err)
	}
	s.collections[namespace] = col
	return col, nil
}

func (s *ChromemIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	col, err := s.collection(namespace)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Embedding: r.Values,
			Content:   r.Metadata.Text,
			Metadata:  metadataToMap(r.Metadata),
		}
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem upsert: %w", err)
	}
	return nil
}

func (s *ChromemIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	limit := req.TopK
	if limit <= 0 {
		limit = 10
	}

	col, err := s.collection(req.Namespace)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	limit = min(limit, count)

	where := req.Filter
	if len(where) == 0 {
		where = nil
	}

	results, err := col.QueryEmbedding(ctx, req.Vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ID: r.ID, Score: r.Similarity}
		if req.IncludeMetadata {
			matches[i].Metadata = mapToMetadata(r.Metadata)
			matches[i].Metadata.Text = r.Content
		}
	}
	sortMatches(matches)
	return matches, nil
}

// Count returns the number of records in a namespace.
func (s *ChromemIndex) Count(namespace string) int {
	col, err := s.collection(namespace)
	if err != nil {
		return 0
	}
	return col.Count()
}

// metadataToMap flattens RecordMetadata for chromem, which only stores
// string values. The chunk text is kept as the document content instead.
func metadataToMap(m RecordMetadata) map[string]string {
	keywords, _ := json.Marshal(m.Keywords)
	return map[string]string{
		"filename":     m.Filename,
		"source_path":  m.SourcePath,
		"summary":      m.Summary,
		"keywords":     string(keywords),
		"chunk_index":  strconv.Itoa(m.ChunkIndex),
		"total_chunks": strconv.Itoa(m.TotalChunks),
	}
}

// mapToMetadata converts a flat map[string]string back to RecordMetadata.
func mapToMetadata(m map[string]string) RecordMetadata {
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	totalChunks, _ := strconv.Atoi(m["total_chunks"])

	var keywords []string
	_ = json.Unmarshal([]byte(m["keywords"]), &keywords)

	return RecordMetadata{
		Filename:    m["filename"],
		SourcePath:  m["source_path"],
		Summary:     m["summary"],
		Keywords:    keywords,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
	}
}
