package indexer

import "time"

// FileStatus is the outcome of ingesting one file.
type FileStatus string

const (
	StatusIngested  FileStatus = "ingested"
	StatusEmpty     FileStatus = "empty"
	StatusUnchanged FileStatus = "unchanged"
	StatusFailed    FileStatus = "failed"
	StatusCounted   FileStatus = "counted" // dry run
)

// FileOutcome describes what happened to a single file during a run.
type FileOutcome struct {
	RelPath        string
	Status         FileStatus
	Chunks         int
	EnrichmentErrs []error
	Err            error
}

// RunResult summarizes the outcome of a full ingestion run.
type RunResult struct {
	RunID          string
	CorpusDir      string
	Namespace      string
	StartedAt      time.Time
	Duration       time.Duration
	Incremental    bool
	DryRun         bool
	Cancelled      bool
	Files          []FileOutcome
	FilesIngested  int
	FilesSkipped   int
	FilesFailed    int
	RecordsWritten int
	RecordsLost    int
	BatchesWritten int
	BatchesFailed  int
	Errors         []error
}

// Run statuses as stored in the history table.
const (
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// Status classifies the run for the history table.
func (r *RunResult) Status() string {
	switch {
	case r.Cancelled:
		return RunCancelled
	case r.FilesFailed == 0 && r.BatchesFailed == 0:
		return RunCompleted
	case r.RecordsWritten == 0 && r.FilesIngested == 0:
		return RunFailed
	default:
		return RunPartial
	}
}

// CountStatus returns the number of files that ended with status.
func (r *RunResult) CountStatus(status FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func(done, total int, path string)
