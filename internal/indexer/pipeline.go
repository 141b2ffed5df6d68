package indexer

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/chunker"
	"github.com/ziadkadry99/promptgenie/internal/embeddings"
	"github.com/ziadkadry99/promptgenie/internal/enrich"
	"github.com/ziadkadry99/promptgenie/internal/logging"
	"github.com/ziadkadry99/promptgenie/internal/vectordb"
	"github.com/ziadkadry99/promptgenie/internal/walker"
)

// DefaultBatchSize is the number of records sent per upsert.
const DefaultBatchSize = 50

// Options configures a Pipeline.
type Options struct {
	CorpusDir   string
	Namespace   string
	BatchSize   int
	Incremental bool // skip files whose hash matches the last successful ingestion
	DryRun      bool // chunk and count only
}

// RunStore persists run history and the per-file hashes used by
// incremental runs.
type RunStore interface {
	FileHashes(ctx context.Context, namespace string) (map[string]string, error)
	BeginRun(ctx context.Context, run *RunResult) error
	RecordFile(ctx context.Context, run *RunResult, relPath, hash string, chunks int) error
	ForgetFile(ctx context.Context, namespace, relPath string) error
	FinishRun(ctx context.Context, run *RunResult) error
}

// Pipeline orchestrates ingestion: read -> enrich -> chunk -> embed -> batch -> upsert.
type Pipeline struct {
	chunker    *chunker.Chunker
	enricher   *enrich.Enricher
	embedder   embeddings.Embedder
	index      vectordb.Index
	history    RunStore
	opts       Options
	logger     *zap.Logger
	onProgress ProgressFunc
}

// NewPipeline creates a new Pipeline. A nil enricher disables enrichment;
// embedder and index may be nil for dry runs.
func NewPipeline(
	ch *chunker.Chunker,
	enricher *enrich.Enricher,
	embedder embeddings.Embedder,
	index vectordb.Index,
	opts Options,
	logger *zap.Logger,
) *Pipeline {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Namespace == "" {
		opts.Namespace = vectordb.DefaultNamespace
	}
	logger = logging.OrNop(logger)
	if enricher == nil {
		enricher = enrich.New(nil, nil, enrich.Options{}, logger)
	}
	return &Pipeline{
		chunker:  ch,
		enricher: enricher,
		embedder: embedder,
		index:    index,
		opts:     opts,
		logger:   logger,
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// SetRunStore enables run history and incremental state.
func (p *Pipeline) SetRunStore(store RunStore) {
	p.history = store
}

// pendingFile tracks a file whose records may still sit in unflushed batches.
type pendingFile struct {
	relPath     string
	hash        string
	chunks      int
	outcome     int // index into RunResult.Files
	outstanding int
	queued      bool
	failed      bool
}

type batch struct {
	records []vectordb.Record
	files   []*pendingFile
}

func (b *batch) add(rec vectordb.Record, pf *pendingFile) {
	b.records = append(b.records, rec)
	if n := len(b.files); n == 0 || b.files[n-1] != pf {
		b.files = append(b.files, pf)
		pf.outstanding++
	}
}

// Run ingests files sequentially. Per-file and per-batch failures are
// recorded in the result and never stop the run; only cancellation or an
// unreadable incremental state returns an error.
func (p *Pipeline) Run(ctx context.Context, files []walker.FileInfo) (*RunResult, error) {
	res := &RunResult{
		RunID:       uuid.New().String(),
		CorpusDir:   p.opts.CorpusDir,
		Namespace:   p.opts.Namespace,
		StartedAt:   time.Now(),
		Incremental: p.opts.Incremental,
		DryRun:      p.opts.DryRun,
	}
	log := p.logger.With(zap.String("run_id", res.RunID))

	var known map[string]string
	if p.opts.Incremental {
		if p.history == nil {
			return nil, fmt.Errorf("incremental ingestion requires run history")
		}
		hashes, err := p.history.FileHashes(ctx, p.opts.Namespace)
		if err != nil {
			return nil, fmt.Errorf("load file hashes: %w", err)
		}
		known = hashes
	}

	history := p.history
	if history != nil && !p.opts.DryRun {
		if err := history.BeginRun(ctx, res); err != nil {
			log.Warn("run history disabled", zap.Error(err))
			history = nil
		}
	} else {
		history = nil
	}

	indexName := "none"
	if p.index != nil {
		indexName = p.index.Name()
	}
	log.Info("ingestion started",
		zap.Int("files", len(files)),
		zap.String("namespace", p.opts.Namespace),
		zap.String("index", indexName),
		zap.Bool("incremental", p.opts.Incremental),
		zap.Bool("dry_run", p.opts.DryRun),
	)

	r := &run{p: p, res: res, history: history, log: log}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			detached := context.WithoutCancel(ctx)
			if len(r.batch.records) > 0 {
				r.drop(detached, err)
			}
			res.Cancelled = true
			res.Duration = time.Since(res.StartedAt)
			r.finish(detached)
			log.Warn("ingestion cancelled",
				zap.Int("processed", i),
				zap.Int("records_written", res.RecordsWritten),
				zap.Int("records_lost", res.RecordsLost),
			)
			return res, err
		}

		if known != nil && known[f.RelPath] == f.ContentHash {
			res.Files = append(res.Files, FileOutcome{RelPath: f.RelPath, Status: StatusUnchanged})
			res.FilesSkipped++
		} else {
			r.ingestFile(ctx, f)
		}

		if p.onProgress != nil {
			p.onProgress(i+1, len(files), f.RelPath)
		}
	}

	if len(r.batch.records) > 0 {
		r.flush(ctx)
	}

	res.Duration = time.Since(res.StartedAt)
	r.finish(ctx)
	log.Info("ingestion finished",
		zap.Int("ingested", res.FilesIngested),
		zap.Int("skipped", res.FilesSkipped),
		zap.Int("failed", res.FilesFailed),
		zap.Int("records_written", res.RecordsWritten),
		zap.Int("records_lost", res.RecordsLost),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// run carries the mutable state of one Pipeline.Run call.
type run struct {
	p       *Pipeline
	res     *RunResult
	history RunStore
	log     *zap.Logger
	batch   batch
}

func (r *run) fail(ctx context.Context, relPath string, err error) {
	r.log.Warn("file failed", zap.String("path", relPath), zap.Error(err))
	r.res.Files = append(r.res.Files, FileOutcome{RelPath: relPath, Status: StatusFailed, Err: err})
	r.res.FilesFailed++
	r.res.Errors = append(r.res.Errors, fmt.Errorf("%s: %w", relPath, err))
	if r.history != nil {
		if err := r.history.ForgetFile(ctx, r.res.Namespace, relPath); err != nil {
			r.log.Warn("forget file hash", zap.String("path", relPath), zap.Error(err))
		}
	}
}

func (r *run) ingestFile(ctx context.Context, f walker.FileInfo) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		r.fail(ctx, f.RelPath, fmt.Errorf("read: %w", err))
		return
	}
	content := strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	if content == "" {
		r.res.Files = append(r.res.Files, FileOutcome{RelPath: f.RelPath, Status: StatusEmpty})
		r.res.FilesSkipped++
		return
	}

	chunks := r.p.chunker.Split(content)

	if r.p.opts.DryRun {
		r.res.Files = append(r.res.Files, FileOutcome{RelPath: f.RelPath, Status: StatusCounted, Chunks: len(chunks)})
		return
	}

	meta := r.p.enricher.Enrich(ctx, content)
	var enrichErrs []error
	if meta.Failed() {
		for _, s := range meta.Stages {
			if s.Err != nil {
				enrichErrs = append(enrichErrs, fmt.Errorf("%s: %w", s.Stage, s.Err))
			}
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := r.p.embedder.Embed(ctx, texts)
	if err != nil {
		r.fail(ctx, f.RelPath, fmt.Errorf("embed: %w", err))
		return
	}
	if len(vectors) != len(chunks) {
		r.fail(ctx, f.RelPath, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks)))
		return
	}

	r.res.Files = append(r.res.Files, FileOutcome{
		RelPath:        f.RelPath,
		Status:         StatusIngested,
		Chunks:         len(chunks),
		EnrichmentErrs: enrichErrs,
	})
	r.res.FilesIngested++

	pf := &pendingFile{
		relPath: f.RelPath,
		hash:    f.ContentHash,
		chunks:  len(chunks),
		outcome: len(r.res.Files) - 1,
	}
	filename := path.Base(f.RelPath)
	for i, c := range chunks {
		r.batch.add(vectordb.Record{
			ID:     RecordID(f.RelPath, i),
			Values: vectors[i],
			Metadata: vectordb.RecordMetadata{
				Text:        c.Text,
				Filename:    filename,
				SourcePath:  f.RelPath,
				Summary:     meta.Metadata.Summary,
				Keywords:    meta.Metadata.Keywords,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			},
		}, pf)
		if len(r.batch.records) >= r.p.opts.BatchSize {
			r.flush(ctx)
		}
	}
	pf.queued = true
	r.settle(ctx, pf)
}

// flush upserts the current batch. A failed batch is logged and its records
// are dropped.
func (r *run) flush(ctx context.Context) {
	b := r.batch
	r.batch = batch{}

	err := r.p.index.Upsert(ctx, r.p.opts.Namespace, b.records)
	if err != nil {
		r.log.Error("upsert batch failed", zap.Int("records", len(b.records)), zap.Error(err))
		r.res.Errors = append(r.res.Errors, fmt.Errorf("upsert batch of %d: %w", len(b.records), err))
		r.discard(ctx, b, fmt.Errorf("upsert: %w", err))
		return
	}
	r.log.Debug("upserted batch", zap.Int("records", len(b.records)))
	r.res.BatchesWritten++
	r.res.RecordsWritten += len(b.records)
	for _, pf := range b.files {
		pf.outstanding--
		r.settle(ctx, pf)
	}
}

// drop abandons the current batch without writing it.
func (r *run) drop(ctx context.Context, cause error) {
	b := r.batch
	r.batch = batch{}
	r.log.Warn("unwritten batch dropped", zap.Int("records", len(b.records)), zap.Error(cause))
	r.discard(ctx, b, fmt.Errorf("not written: %w", cause))
}

// discard counts b as lost and fails every file with records in it.
func (r *run) discard(ctx context.Context, b batch, fileErr error) {
	r.res.BatchesFailed++
	r.res.RecordsLost += len(b.records)
	for _, pf := range b.files {
		pf.outstanding--
		if !pf.failed {
			pf.failed = true
			out := &r.res.Files[pf.outcome]
			out.Status = StatusFailed
			out.Err = fileErr
			r.res.FilesIngested--
			r.res.FilesFailed++
		}
		r.settle(ctx, pf)
	}
}

// settle records the file hash once every batch holding its records has
// been flushed.
func (r *run) settle(ctx context.Context, pf *pendingFile) {
	if !pf.queued || pf.outstanding > 0 || r.history == nil {
		return
	}
	var err error
	if pf.failed {
		err = r.history.ForgetFile(ctx, r.res.Namespace, pf.relPath)
	} else {
		err = r.history.RecordFile(ctx, r.res, pf.relPath, pf.hash, pf.chunks)
	}
	if err != nil {
		r.log.Warn("update file state", zap.String("path", pf.relPath), zap.Error(err))
	}
}

func (r *run) finish(ctx context.Context) {
	if r.history == nil {
		return
	}
	if err := r.history.FinishRun(ctx, r.res); err != nil {
		r.log.Warn("record run", zap.Error(err))
	}
}
