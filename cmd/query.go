package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/promptgenie/internal/lazy"
	"github.com/ziadkadry99/promptgenie/internal/retrieval"
	"github.com/ziadkadry99/promptgenie/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the reference prompt index",
	Long:  `Embeds the query and returns the most similar reference prompt chunks from the vector index.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 10, "maximum number of results")
	queryCmd.Flags().String("source", "", "only return chunks from this source path")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

type queryResult struct {
	ID          string   `json:"id"`
	Score       float32  `json:"score"`
	SourcePath  string   `json:"source_path"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
	Summary     string   `json:"summary,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Text        string   `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	source, _ := cmd.Flags().GetString("source")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := newQueryEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	index, err := newIndex(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	defer closeIndex(index)

	if ci, ok := index.(*vectordb.ChromemIndex); ok && ci.Count(cfg.VectorStore.Namespace) == 0 {
		fmt.Printf("Namespace %q is empty. Run `promptgenie ingest` first.\n", cfg.VectorStore.Namespace)
		return nil
	}

	retriever := retrieval.New(lazy.Ready(embedder), lazy.Ready(index), retrieval.Options{
		Namespace: cfg.VectorStore.Namespace,
		TopK:      cfg.Generation.TopK,
	}, logger)

	var filter map[string]string
	if source != "" {
		filter = map[string]string{"source_path": source}
	}

	matches, err := retriever.Search(ctx, args[0], limit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		out := make([]queryResult, len(matches))
		for i, m := range matches {
			out[i] = queryResult{
				ID:          m.ID,
				Score:       m.Score,
				SourcePath:  m.Metadata.SourcePath,
				ChunkIndex:  m.Metadata.ChunkIndex,
				TotalChunks: m.Metadata.TotalChunks,
				Summary:     m.Metadata.Summary,
				Keywords:    m.Metadata.Keywords,
				Text:        m.Metadata.Text,
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Print(vectordb.FormatMatches(matches))
	return nil
}
