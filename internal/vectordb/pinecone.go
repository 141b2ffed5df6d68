package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultPineconeIndex is the serverless index the reference corpus lives in.
const DefaultPineconeIndex = "quickstart"

// PineconeIndex implements Index on a Pinecone serverless index. One data
// plane connection is opened per namespace and reused.
type PineconeIndex struct {
	client    *pinecone.Client
	indexName string
	host      string

	mu    sync.Mutex
	conns map[string]*pinecone.IndexConnection
}

// NewPineconeIndex resolves the host of indexName. It makes one control
// plane call, so callers wanting lazy startup should defer it.
func NewPineconeIndex(ctx context.Context, apiKey, indexName string) (*PineconeIndex, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone API key is empty")
	}
	if indexName == "" {
		indexName = DefaultPineconeIndex
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	idx, err := client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe pinecone index %q: %w", indexName, err)
	}

	return &PineconeIndex{
		client:    client,
		indexName: indexName,
		host:      idx.Host,
		conns:     make(map[string]*pinecone.IndexConnection),
	}, nil
}

func (p *PineconeIndex) Name() string {
	return "pinecone/" + p.indexName
}

func (p *PineconeIndex) conn(namespace string) (*pinecone.IndexConnection, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[namespace]; ok {
		return c, nil
	}
	c, err := p.client.Index(pinecone.NewIndexConnParams{Host: p.host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to pinecone namespace %q: %w", namespace, err)
	}
	p.conns[namespace] = c
	return c, nil
}

func (p *PineconeIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	conn, err := p.conn(namespace)
	if err != nil {
		return err
	}

	vectors := make([]*pinecone.Vector, len(records))
	for i, r := range records {
		md, err := metadataToStruct(r.Metadata)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		vectors[i] = &pinecone.Vector{
			Id:       r.ID,
			Values:   r.Values,
			Metadata: md,
		}
	}

	if _, err := conn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}

func (p *PineconeIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	conn, err := p.conn(req.Namespace)
	if err != nil {
		return nil, err
	}

	q := &pinecone.QueryByVectorValuesRequest{
		Vector:          req.Vector,
		TopK:            uint32(topK),
		IncludeMetadata: req.IncludeMetadata,
	}
	if len(req.Filter) > 0 {
		filter, err := filterToStruct(req.Filter)
		if err != nil {
			return nil, err
		}
		q.MetadataFilter = filter
	}

	resp, err := conn.QueryByVectorValues(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, sv := range resp.Matches {
		if sv == nil || sv.Vector == nil {
			continue
		}
		m := Match{ID: sv.Vector.Id, Score: sv.Score}
		if req.IncludeMetadata && sv.Vector.Metadata != nil {
			m.Metadata = structToMetadata(sv.Vector.Metadata)
		}
		matches = append(matches, m)
	}
	sortMatches(matches)
	return matches, nil
}

// Close releases all data plane connections.
func (p *PineconeIndex) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for ns, c := range p.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pinecone namespace %q: %w", ns, err)
		}
		delete(p.conns, ns)
	}
	return firstErr
}

func metadataToStruct(m RecordMetadata) (*structpb.Struct, error) {
	keywords := make([]any, len(m.Keywords))
	for i, k := range m.Keywords {
		keywords[i] = k
	}
	return structpb.NewStruct(map[string]any{
		"text":         m.Text,
		"filename":     m.Filename,
		"source_path":  m.SourcePath,
		"summary":      m.Summary,
		"keywords":     keywords,
		"chunk_index":  m.ChunkIndex,
		"total_chunks": m.TotalChunks,
	})
}

func structToMetadata(s *structpb.Struct) RecordMetadata {
	fields := s.GetFields()
	str := func(key string) string {
		return fields[key].GetStringValue()
	}
	num := func(key string) int {
		return int(fields[key].GetNumberValue())
	}

	var keywords []string
	for _, v := range fields["keywords"].GetListValue().GetValues() {
		if k := v.GetStringValue(); k != "" {
			keywords = append(keywords, k)
		}
	}

	return RecordMetadata{
		Text:        str("text"),
		Filename:    str("filename"),
		SourcePath:  str("source_path"),
		Summary:     str("summary"),
		Keywords:    keywords,
		ChunkIndex:  num("chunk_index"),
		TotalChunks: num("total_chunks"),
	}
}

// filterToStruct builds a Pinecone equality filter: {"field": {"$eq": value}}.
func filterToStruct(filter map[string]string) (*structpb.Struct, error) {
	fields := make(map[string]any, len(filter))
	for k, v := range filter {
		fields[k] = map[string]any{"$eq": v}
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build pinecone filter: %w", err)
	}
	return s, nil
}
