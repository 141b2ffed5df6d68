package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/chunker"
	"github.com/ziadkadry99/promptgenie/internal/db"
	"github.com/ziadkadry99/promptgenie/internal/embeddings"
	"github.com/ziadkadry99/promptgenie/internal/enrich"
	"github.com/ziadkadry99/promptgenie/internal/indexer"
	"github.com/ziadkadry99/promptgenie/internal/progress"
	"github.com/ziadkadry99/promptgenie/internal/tokenizer"
	"github.com/ziadkadry99/promptgenie/internal/vectordb"
	"github.com/ziadkadry99/promptgenie/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, enrich, embed and index the reference prompt corpus",
	Long: `Walks the corpus directory, splits every prompt file into overlapping
token chunks, attaches a summary and keywords, embeds the chunks and writes
them to the vector index in batches.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("dir", "", "corpus directory (overrides ingest.corpus_dir)")
	ingestCmd.Flags().Bool("incremental", false, "skip files unchanged since their last successful ingestion")
	ingestCmd.Flags().Bool("dry-run", false, "chunk and count without enriching, embedding or writing")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ic := cfg.Ingest

	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		ic.CorpusDir = dir
	}
	incremental, _ := cmd.Flags().GetBool("incremental")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := walker.Walk(walker.WalkerConfig{
		RootDir:          ic.CorpusDir,
		Include:          walker.IncludeForExtensions(ic.Extensions),
		Exclude:          ic.Exclude,
		RespectGitignore: true,
	})
	if err != nil {
		return fmt.Errorf("scanning corpus: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Found %d files in %s\n", len(files), ic.CorpusDir)

	tok, err := tokenizer.NewTiktoken(ic.Tokenizer)
	if err != nil {
		return err
	}
	ch, err := chunker.New(tok, ic.ChunkSize, ic.ChunkOverlap)
	if err != nil {
		return err
	}
	logger.Info("chunking",
		zap.String("tokenizer", ic.Tokenizer),
		zap.Int("size", ch.Size()),
		zap.Int("overlap", ch.Overlap()),
	)

	var (
		embedder embeddings.Embedder
		index    vectordb.Index
		enricher *enrich.Enricher
	)
	if !dryRun {
		embedder, err = newEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		index, err = newIndex(ctx, cfg)
		if err != nil {
			return fmt.Errorf("opening vector index: %w", err)
		}
		defer closeIndex(index)

		provider, pool, err := newProvider(cfg)
		if err != nil {
			return err
		}
		enricher = newEnricher(cfg, provider, pool, embedder)
	}

	pipeline := indexer.NewPipeline(ch, enricher, embedder, index, indexer.Options{
		CorpusDir:   ic.CorpusDir,
		Namespace:   cfg.VectorStore.Namespace,
		BatchSize:   ic.BatchSize,
		Incremental: incremental,
		DryRun:      dryRun,
	}, logger)

	if ic.StateDB != "" {
		if err := os.MkdirAll(filepath.Dir(ic.StateDB), 0o755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
		database, err := db.Open(ic.StateDB)
		if err != nil {
			return err
		}
		defer database.Close()
		pipeline.SetRunStore(indexer.NewHistory(database))
	}

	reporter := progress.NewReporter(os.Stderr)
	reporter.Start(len(files))
	pipeline.SetProgressFunc(func(done, total int, path string) {
		reporter.Update(done, path)
	})

	res, err := pipeline.Run(ctx, files)
	reporter.Finish()
	if err != nil {
		if res != nil {
			printIngestSummary(res)
		}
		return fmt.Errorf("ingestion: %w", err)
	}

	printIngestSummary(res)
	for _, e := range res.Errors {
		logger.Warn("ingestion error", zap.Error(e))
	}
	if res.Status() == "failed" && len(files) > 0 {
		return fmt.Errorf("ingestion failed: no records were written")
	}
	return nil
}

func printIngestSummary(res *indexer.RunResult) {
	if res.DryRun {
		chunks := 0
		for _, f := range res.Files {
			chunks += f.Chunks
		}
		fmt.Printf("\nDry run: %d files would produce %d chunks\n", len(res.Files), chunks)
		return
	}

	fmt.Printf("\nIngestion %s in %s (run %s)\n", res.Status(), res.Duration.Round(time.Millisecond), res.RunID)
	fmt.Printf("  Files:   %d ingested, %d unchanged, %d empty, %d failed\n",
		res.FilesIngested, res.CountStatus(indexer.StatusUnchanged), res.CountStatus(indexer.StatusEmpty), res.FilesFailed)
	fmt.Printf("  Records: %d written in %d batches, %d lost in %d failed batches\n",
		res.RecordsWritten, res.BatchesWritten, res.RecordsLost, res.BatchesFailed)
	for _, f := range res.Files {
		if f.Status == indexer.StatusFailed {
			fmt.Printf("  FAILED %s: %v\n", f.RelPath, f.Err)
		}
	}
}
