package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ziadkadry99/promptgenie/internal/db"
)

// History is the SQLite-backed RunStore.
type History struct {
	db *db.DB
}

// NewHistory creates a History backed by the given database.
func NewHistory(database *db.DB) *History {
	return &History{db: database}
}

// RunRecord is one row of the ingestion history.
type RunRecord struct {
	ID             string
	CorpusDir      string
	Namespace      string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Incremental    bool
	FilesSeen      int
	FilesIngested  int
	FilesSkipped   int
	FilesFailed    int
	RecordsWritten int
	RecordsLost    int
	BatchesFailed  int
	Status         string
}

// FileHashes returns relPath -> content hash for every file fully ingested
// into namespace.
func (h *History) FileHashes(ctx context.Context, namespace string) (map[string]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT rel_path, content_hash FROM ingested_files WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var rel, hash string
		if err := rows.Scan(&rel, &hash); err != nil {
			return nil, err
		}
		hashes[rel] = hash
	}
	return hashes, rows.Err()
}

// BeginRun inserts a running row for run.
func (h *History) BeginRun(ctx context.Context, run *RunResult) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, corpus_dir, namespace, started_at, incremental)
		VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.CorpusDir, run.Namespace,
		run.StartedAt.UTC().Format(time.DateTime), boolToInt(run.Incremental),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// RecordFile stores the hash of a file whose records were all written.
func (h *History) RecordFile(ctx context.Context, run *RunResult, relPath, hash string, chunks int) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO ingested_files (namespace, rel_path, content_hash, chunks, run_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, rel_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunks = excluded.chunks,
			run_id = excluded.run_id,
			ingested_at = excluded.ingested_at`,
		run.Namespace, relPath, hash, chunks, run.RunID,
		time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("recording file %s: %w", relPath, err)
	}
	return nil
}

// ForgetFile drops the stored hash so the next incremental run retries relPath.
func (h *History) ForgetFile(ctx context.Context, namespace, relPath string) error {
	_, err := h.db.ExecContext(ctx,
		`DELETE FROM ingested_files WHERE namespace = ? AND rel_path = ?`, namespace, relPath)
	if err != nil {
		return fmt.Errorf("forgetting file %s: %w", relPath, err)
	}
	return nil
}

// FinishRun stores the final counters of run.
func (h *History) FinishRun(ctx context.Context, run *RunResult) error {
	_, err := h.db.ExecContext(ctx, `
		UPDATE ingest_runs SET
			finished_at = ?, files_seen = ?, files_ingested = ?, files_skipped = ?,
			files_failed = ?, records_written = ?, records_lost = ?, batches_failed = ?,
			status = ?
		WHERE id = ?`,
		run.StartedAt.Add(run.Duration).UTC().Format(time.DateTime),
		len(run.Files), run.FilesIngested, run.FilesSkipped, run.FilesFailed,
		run.RecordsWritten, run.RecordsLost, run.BatchesFailed,
		run.Status(), run.RunID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (h *History) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, corpus_dir, namespace, started_at, finished_at, incremental,
		files_seen, files_ingested, files_skipped, files_failed,
		records_written, records_lost, batches_failed, status
		FROM ingest_runs ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r           RunRecord
			started     string
			finished    sql.NullString
			incremental int
		)
		if err := rows.Scan(
			&r.ID, &r.CorpusDir, &r.Namespace, &started, &finished, &incremental,
			&r.FilesSeen, &r.FilesIngested, &r.FilesSkipped, &r.FilesFailed,
			&r.RecordsWritten, &r.RecordsLost, &r.BatchesFailed, &r.Status,
		); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			r.FinishedAt = &t
		}
		r.Incremental = incremental != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseTime accepts the formats SQLite and the driver hand back for DATETIME.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
