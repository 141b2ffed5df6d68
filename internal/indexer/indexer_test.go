package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/promptgenie/internal/chunker"
	"github.com/ziadkadry99/promptgenie/internal/db"
	"github.com/ziadkadry99/promptgenie/internal/enrich"
	"github.com/ziadkadry99/promptgenie/internal/vectordb"
	"github.com/ziadkadry99/promptgenie/internal/walker"
)

// --- Fakes ---

// runeTokenizer treats every rune as one token.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids
}

func (runeTokenizer) Decode(ids []int) string {
	rs := make([]rune, len(ids))
	for i, id := range ids {
		rs[i] = rune(id)
	}
	return string(rs)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string    { return "fake" }
func (fakeEmbedder) Dimensions() int { return 2 }

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "EMBEDFAIL") {
			return nil, errors.New("embedding backend rejected input")
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	calls   int
	failOn  map[int]bool
	batches [][]vectordb.Record
	ns      []string
}

func (f *fakeIndex) Name() string { return "fake" }

func (f *fakeIndex) Upsert(_ context.Context, namespace string, records []vectordb.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[f.calls] {
		return fmt.Errorf("store unreachable on call %d", f.calls)
	}
	f.batches = append(f.batches, append([]vectordb.Record(nil), records...))
	f.ns = append(f.ns, namespace)
	return nil
}

func (f *fakeIndex) Query(context.Context, vectordb.QueryRequest) ([]vectordb.Match, error) {
	return nil, nil
}

func (f *fakeIndex) ids() []string {
	var out []string
	for _, b := range f.batches {
		for _, r := range b {
			out = append(out, r.ID)
		}
	}
	return out
}

type fixedSummary string

func (s fixedSummary) Summarize(context.Context, string) (string, error) { return string(s), nil }

type fixedKeywords []string

func (k fixedKeywords) Extract(context.Context, string, int) ([]string, error) { return k, nil }

// --- Helpers ---

// writeCorpus creates a.txt (3 chunks of size 10), b.json (1 chunk) and an
// empty c.txt.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":  strings.Repeat("a", 25),
		"b.json": `{"k":"v"}`,
		"c.txt":  "  \n\t ",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func walk(t *testing.T, dir string) []walker.FileInfo {
	t.Helper()
	files, err := walker.Walk(walker.WalkerConfig{RootDir: dir, Include: walker.IncludeForExtensions(nil)})
	require.NoError(t, err)
	return files
}

func newPipeline(t *testing.T, idx vectordb.Index, opts Options) *Pipeline {
	t.Helper()
	ch, err := chunker.New(runeTokenizer{}, 10, 0)
	require.NoError(t, err)
	en := enrich.New(fixedSummary("summary"), fixedKeywords{"kw1", "kw2"}, enrich.Options{}, nil)
	return NewPipeline(ch, en, fakeEmbedder{}, idx, opts, nil)
}

func newHistory(t *testing.T) *History {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewHistory(database)
}

// --- Tests ---

func TestRecordID(t *testing.T) {
	cases := []struct {
		path string
		idx  int
		want string
	}{
		{"Cursor Prompts/Agent Prompt.txt", 0, "Cursor_Prompts/Agent_Prompt.txt_0"},
		{"tabs\tand\nnewlines.txt", 3, "tabs_and_newlines.txt_3"},
		{"naïve.txt", 1, "na%C3%AFve.txt_1"},
		{"100%.txt", 2, "100%25.txt_2"},
		{"plain.json", 12, "plain.json_12"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RecordID(tc.path, tc.idx), tc.path)
	}
	assert.Equal(t, RecordID("x y.txt", 4), RecordID("x y.txt", 4))
	assert.NotEqual(t, RecordID("a.txt", 1), RecordID("a.txt", 11))
}

func TestRunBuildsRecordsAndFlushesBatches(t *testing.T) {
	dir := writeCorpus(t)
	idx := &fakeIndex{}
	p := newPipeline(t, idx, Options{Namespace: "promptsdb", BatchSize: 3})

	var progress []string
	p.SetProgressFunc(func(done, total int, path string) {
		progress = append(progress, fmt.Sprintf("%d/%d %s", done, total, path))
	})

	res, err := p.Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	// a.txt fills the first batch exactly; b.json goes out in the final flush.
	require.Len(t, idx.batches, 2)
	assert.Len(t, idx.batches[0], 3)
	assert.Len(t, idx.batches[1], 1)
	assert.Equal(t, []string{"promptsdb", "promptsdb"}, idx.ns)
	assert.Equal(t, []string{"a.txt_0", "a.txt_1", "a.txt_2", "b.json_0"}, idx.ids())

	rec := idx.batches[0][2]
	assert.Equal(t, vectordb.RecordMetadata{
		Text:        "aaaaa",
		Filename:    "a.txt",
		SourcePath:  "a.txt",
		Summary:     "summary",
		Keywords:    []string{"kw1", "kw2"},
		ChunkIndex:  2,
		TotalChunks: 3,
	}, rec.Metadata)
	assert.Equal(t, []float32{5, 1}, rec.Values)

	assert.Equal(t, 2, res.FilesIngested)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 1, res.CountStatus(StatusEmpty))
	assert.Equal(t, 0, res.CountStatus(StatusUnchanged))
	assert.Equal(t, 0, res.FilesFailed)
	assert.Equal(t, 4, res.RecordsWritten)
	assert.Equal(t, 2, res.BatchesWritten)
	assert.Equal(t, RunCompleted, res.Status())
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Files, 3)
	assert.Equal(t, StatusIngested, res.Files[0].Status)
	assert.Equal(t, 3, res.Files[0].Chunks)
	assert.Equal(t, StatusEmpty, res.Files[2].Status)

	assert.Equal(t, []string{"1/3 a.txt", "2/3 b.json", "3/3 c.txt"}, progress)
}

func TestRunIsIdempotent(t *testing.T) {
	dir := writeCorpus(t)
	first, second := &fakeIndex{}, &fakeIndex{}

	_, err := newPipeline(t, first, Options{}).Run(context.Background(), walk(t, dir))
	require.NoError(t, err)
	_, err = newPipeline(t, second, Options{}).Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	assert.Equal(t, first.ids(), second.ids())
	assert.Equal(t, []string{vectordb.DefaultNamespace}, first.ns)
}

func TestRunContinuesAfterBatchFailure(t *testing.T) {
	dir := writeCorpus(t)
	idx := &fakeIndex{failOn: map[int]bool{1: true}}
	res, err := newPipeline(t, idx, Options{BatchSize: 3}).Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	assert.Equal(t, []string{"b.json_0"}, idx.ids())
	assert.Equal(t, 1, res.BatchesFailed)
	assert.Equal(t, 3, res.RecordsLost)
	assert.Equal(t, 1, res.RecordsWritten)
	assert.Equal(t, 1, res.FilesIngested)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, StatusFailed, res.Files[0].Status)
	assert.Error(t, res.Files[0].Err)
	assert.Equal(t, "partial", res.Status())
}

func TestRunContinuesAfterFileFailure(t *testing.T) {
	dir := writeCorpus(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0-bad.txt"), []byte("EMBEDFAIL"), 0o644))

	idx := &fakeIndex{}
	res, err := newPipeline(t, idx, Options{}).Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Files[0].Status)
	assert.Equal(t, "0-bad.txt", res.Files[0].RelPath)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 2, res.FilesIngested)
	assert.Equal(t, []string{"a.txt_0", "a.txt_1", "a.txt_2", "b.json_0"}, idx.ids())
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := writeCorpus(t)
	idx := &fakeIndex{}
	h := newHistory(t)
	p := newPipeline(t, idx, Options{DryRun: true})
	p.SetRunStore(h)

	res, err := p.Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	assert.Zero(t, idx.calls)
	assert.Equal(t, StatusCounted, res.Files[0].Status)
	assert.Equal(t, 3, res.Files[0].Chunks)
	assert.Equal(t, 1, res.Files[1].Chunks)

	runs, err := h.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunDryRunWithoutBackends(t *testing.T) {
	dir := writeCorpus(t)
	ch, err := chunker.New(runeTokenizer{}, 10, 0)
	require.NoError(t, err)

	res, err := NewPipeline(ch, nil, nil, nil, Options{DryRun: true}, nil).Run(context.Background(), walk(t, dir))
	require.NoError(t, err)
	assert.Equal(t, StatusCounted, res.Files[0].Status)
	assert.Zero(t, res.RecordsWritten)
}

func TestRunCancelled(t *testing.T) {
	dir := writeCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := &fakeIndex{}
	_, err := newPipeline(t, idx, Options{}).Run(ctx, walk(t, dir))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, idx.calls)
}

func TestRunCancelledMidRunCountsPendingBatchAsLost(t *testing.T) {
	dir := writeCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx := &fakeIndex{}
	h := newHistory(t)
	p := newPipeline(t, idx, Options{BatchSize: 50, Incremental: true})
	p.SetRunStore(h)
	p.SetProgressFunc(func(done, total int, path string) {
		if done == 1 {
			cancel()
		}
	})

	res, err := p.Run(ctx, walk(t, dir))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.Zero(t, idx.calls)
	assert.True(t, res.Cancelled)
	assert.Equal(t, RunCancelled, res.Status())
	assert.Equal(t, 0, res.FilesIngested)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 3, res.RecordsLost)
	assert.Equal(t, 1, res.BatchesFailed)
	assert.Equal(t, StatusFailed, res.Files[0].Status)
	assert.ErrorIs(t, res.Files[0].Err, context.Canceled)

	hashes, err := h.FileHashes(context.Background(), vectordb.DefaultNamespace)
	require.NoError(t, err)
	assert.Empty(t, hashes)

	runs, err := h.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunCancelled, runs[0].Status)
	assert.Equal(t, 3, runs[0].RecordsLost)
}

type failingSummary struct{}

func (failingSummary) Summarize(context.Context, string) (string, error) {
	return "", errors.New("summary model offline")
}

type panickingKeywords struct{}

func (panickingKeywords) Extract(context.Context, string, int) ([]string, error) {
	panic("keyword extractor crashed")
}

func TestRunWritesChunksWhenEnrichmentFails(t *testing.T) {
	dir := writeCorpus(t)
	ch, err := chunker.New(runeTokenizer{}, 10, 0)
	require.NoError(t, err)
	en := enrich.New(failingSummary{}, panickingKeywords{}, enrich.Options{}, nil)

	idx := &fakeIndex{}
	res, err := NewPipeline(ch, en, fakeEmbedder{}, idx, Options{}, nil).Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt_0", "a.txt_1", "a.txt_2", "b.json_0"}, idx.ids())
	for _, b := range idx.batches {
		for _, rec := range b {
			assert.Empty(t, rec.Metadata.Summary, rec.ID)
			assert.Equal(t, []string{}, rec.Metadata.Keywords, rec.ID)
			assert.NotEmpty(t, rec.Metadata.Text, rec.ID)
		}
	}
	assert.Equal(t, StatusIngested, res.Files[0].Status)
	assert.Len(t, res.Files[0].EnrichmentErrs, 2)
	assert.Equal(t, 2, res.FilesIngested)
	assert.Equal(t, RunCompleted, res.Status())
}

func TestIncrementalRequiresHistory(t *testing.T) {
	_, err := newPipeline(t, &fakeIndex{}, Options{Incremental: true}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestIncrementalSkipsUnchangedAndRetriesFailed(t *testing.T) {
	dir := writeCorpus(t)
	h := newHistory(t)
	ctx := context.Background()

	// First run: a.txt's batch fails, b.json lands.
	idx := &fakeIndex{failOn: map[int]bool{1: true}}
	p := newPipeline(t, idx, Options{BatchSize: 3, Incremental: true})
	p.SetRunStore(h)
	_, err := p.Run(ctx, walk(t, dir))
	require.NoError(t, err)

	hashes, err := h.FileHashes(ctx, vectordb.DefaultNamespace)
	require.NoError(t, err)
	assert.Contains(t, hashes, "b.json")
	assert.NotContains(t, hashes, "a.txt")

	// Second run: only a.txt is retried.
	idx = &fakeIndex{}
	p = newPipeline(t, idx, Options{BatchSize: 3, Incremental: true})
	p.SetRunStore(h)
	res, err := p.Run(ctx, walk(t, dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt_0", "a.txt_1", "a.txt_2"}, idx.ids())
	assert.Equal(t, StatusUnchanged, res.Files[1].Status)

	// Third run: nothing to do.
	idx = &fakeIndex{}
	p = newPipeline(t, idx, Options{BatchSize: 3, Incremental: true})
	p.SetRunStore(h)
	res, err = p.Run(ctx, walk(t, dir))
	require.NoError(t, err)
	assert.Zero(t, idx.calls)
	assert.Equal(t, 3, res.FilesSkipped)
	assert.Equal(t, 2, res.CountStatus(StatusUnchanged))
	assert.Equal(t, 1, res.CountStatus(StatusEmpty))

	// A modified file is picked up again.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"k":"w"}`), 0o644))
	idx = &fakeIndex{}
	p = newPipeline(t, idx, Options{BatchSize: 3, Incremental: true})
	p.SetRunStore(h)
	_, err = p.Run(ctx, walk(t, dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.json_0"}, idx.ids())
}

func TestFileSpanningFailedBatchIsNotRecorded(t *testing.T) {
	dir := writeCorpus(t)
	h := newHistory(t)

	// Batch size 2: [a0 a1] [a2 b0]. The second batch fails, so both files
	// have lost records.
	idx := &fakeIndex{failOn: map[int]bool{2: true}}
	p := newPipeline(t, idx, Options{BatchSize: 2})
	p.SetRunStore(h)
	res, err := p.Run(context.Background(), walk(t, dir))
	require.NoError(t, err)

	assert.Equal(t, 2, res.FilesFailed)
	assert.Equal(t, 0, res.FilesIngested)
	hashes, err := h.FileHashes(context.Background(), vectordb.DefaultNamespace)
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestHistoryRecordsRuns(t *testing.T) {
	dir := writeCorpus(t)
	h := newHistory(t)
	ctx := context.Background()

	p := newPipeline(t, &fakeIndex{}, Options{CorpusDir: dir, Namespace: "promptsdb"})
	p.SetRunStore(h)
	res, err := p.Run(ctx, walk(t, dir))
	require.NoError(t, err)

	runs, err := h.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, res.RunID, r.ID)
	assert.Equal(t, dir, r.CorpusDir)
	assert.Equal(t, "promptsdb", r.Namespace)
	assert.Equal(t, "completed", r.Status)
	assert.Equal(t, 3, r.FilesSeen)
	assert.Equal(t, 2, r.FilesIngested)
	assert.Equal(t, 4, r.RecordsWritten)
	assert.NotNil(t, r.FinishedAt)
	assert.False(t, r.StartedAt.IsZero())
}
