package engine

import "context"

// Store is the persistence interface the engine writes Jobs, LogEntries, and
// Results through. Implementations must make every write atomic: readers
// must never observe a partial write. Concrete implementations live in
// internal/jobstore.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context) ([]*Job, error)

	AppendLog(ctx context.Context, entry *LogEntry) error
	ListLogs(ctx context.Context, jobID string) ([]*LogEntry, error)

	AppendResult(ctx context.Context, result *Result) error
	ListResults(ctx context.Context, jobID string) ([]*Result, error)

	// FactorCacheGet/Put key on a digest of N's decimal string and
	// short-circuit the pipeline when N has already been fully factored by a
	// prior job.
	FactorCacheGet(ctx context.Context, digest string) ([]string, bool, error)
	FactorCachePut(ctx context.Context, digest string, factors []string) error
}

// EventSink is the observable event-stream interface. Ordering is per-job
// and at-least-once; the final event for a job is always a `complete` tagged
// with the job's terminal status. Concrete implementations live in
// internal/eventbus.
type EventSink interface {
	PublishLog(entry *LogEntry)
	PublishProgress(jobID string, percent float64, candidate string)
	PublishComplete(jobID string, state JobState, errorMessage string)
}

// ExternalSolver is the narrow interface over the external GNFS tool (stage
// 6). Concrete implementations live in internal/external.
type ExternalSolver interface {
	// Solve runs the external tool against n, forwarding each parsed
	// progress line to onProgress, and returns any factors it found. A
	// non-zero exit with no parseable factors is treated as "no result", not
	// an error.
	Solve(ctx context.Context, n string, onProgress func(line string)) (factors []string, err error)
	// Configured reports whether the tool is available at all (stage 6 is
	// skipped entirely when this is false).
	Configured() bool
}
