// Package enrich derives document-level metadata (summary and keywords)
// for the ingestion pipeline.
package enrich

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/logging"
)

// Defaults used by the ingestion job.
const (
	DefaultSummaryChars = 2500
	DefaultKeywordChars = 4000
	DefaultKeywordCount = 5
)

// Stage names an enrichment step.
type Stage string

const (
	StageSummary  Stage = "summary"
	StageKeywords Stage = "keywords"
)

// Metadata is the document-level enrichment copied onto every chunk.
type Metadata struct {
	Summary  string
	Keywords []string
}

// StageResult reports how one enrichment step went. A skipped stage had no
// implementation configured.
type StageResult struct {
	Stage    Stage
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Result is the outcome of enriching one document. Metadata is always
// usable: failed stages leave their field empty.
type Result struct {
	Metadata Metadata
	Stages   []StageResult
}

// Failed reports whether any stage returned an error.
func (r Result) Failed() bool {
	for _, s := range r.Stages {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Options bounds how much of a document each stage sees.
type Options struct {
	SummaryChars int
	KeywordChars int
	KeywordCount int
}

func (o Options) withDefaults() Options {
	if o.SummaryChars <= 0 {
		o.SummaryChars = DefaultSummaryChars
	}
	if o.KeywordChars <= 0 {
		o.KeywordChars = DefaultKeywordChars
	}
	if o.KeywordCount <= 0 {
		o.KeywordCount = DefaultKeywordCount
	}
	return o
}

// Enricher runs the summary and keyword stages independently; one failing
// never affects the other.
type Enricher struct {
	summarizer Summarizer
	keywords   KeywordExtractor
	opts       Options
	logger     *zap.Logger
}

// New creates an Enricher. Either stage may be nil to disable it.
func New(summarizer Summarizer, keywords KeywordExtractor, opts Options, logger *zap.Logger) *Enricher {
	return &Enricher{
		summarizer: summarizer,
		keywords:   keywords,
		opts:       opts.withDefaults(),
		logger:     logging.OrNop(logger),
	}
}

// Enrich summarizes the first SummaryChars characters of content and
// extracts keywords from the first KeywordChars characters.
func (e *Enricher) Enrich(ctx context.Context, content string) Result {
	var res Result
	keywords := []string{}

	if e.summarizer == nil {
		res.Stages = append(res.Stages, StageResult{Stage: StageSummary, Skipped: true})
	} else {
		start := time.Now()
		summary, err := runStage(func() (string, error) {
			return e.summarizer.Summarize(ctx, Prefix(content, e.opts.SummaryChars))
		})
		if err != nil {
			e.logger.Warn("summary failed", zap.Error(err))
			summary = ""
		}
		res.Metadata.Summary = summary
		res.Stages = append(res.Stages, StageResult{Stage: StageSummary, Err: err, Duration: time.Since(start)})
	}

	if e.keywords == nil {
		res.Stages = append(res.Stages, StageResult{Stage: StageKeywords, Skipped: true})
	} else {
		start := time.Now()
		kws, err := runStage(func() ([]string, error) {
			return e.keywords.Extract(ctx, Prefix(content, e.opts.KeywordChars), e.opts.KeywordCount)
		})
		if err != nil {
			e.logger.Warn("keyword extraction failed", zap.Error(err))
		} else if kws != nil {
			keywords = kws
		}
		res.Stages = append(res.Stages, StageResult{Stage: StageKeywords, Err: err, Duration: time.Since(start)})
	}

	res.Metadata.Keywords = keywords
	return res
}

// runStage converts a panic inside a stage into an error.
func runStage[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
