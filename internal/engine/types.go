// Package engine implements the Job Engine: the stage pipeline, primality
// gate, cancellation/progress protocol, result recording, and the job state
// machine that orchestrate the factorization kernels. Persistence, the event
// stream, and the external solver are narrow interfaces implemented by
// adapters outside this package (internal/jobstore, internal/eventbus,
// internal/external).
package engine

import (
	"fmt"
	"time"
)

// JobMode selects how a job's search space is determined.
type JobMode string

const (
	ModeAuto           JobMode = "auto"
	ModeRangeScan      JobMode = "range_scan"
	ModeCSV            JobMode = "csv"
	ModeEquationGuided JobMode = "equation_guided"
)

// JobState is a node in the job lifecycle state machine.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StatePaused    JobState = "paused"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether s is one of the lifecycle's terminal states.
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// ControlAction is a user-issued transition request against a running job.
type ControlAction string

const (
	ActionPause  ControlAction = "pause"
	ActionResume ControlAction = "resume"
	ActionCancel ControlAction = "cancel"
)

// validTransition reports whether action may be applied to a job currently
// in state s: running can be paused, paused can be resumed, and
// pending/running/paused can be cancelled; any other combination is rejected.
func validTransition(s JobState, action ControlAction) bool {
	switch action {
	case ActionPause:
		return s == StateRunning
	case ActionResume:
		return s == StatePaused
	case ActionCancel:
		return s == StatePending || s == StateRunning || s == StatePaused
	default:
		return false
	}
}

// Job is the top-level unit of work: a target integer N factored under a
// policy, observed via LogEntries and Results.
type Job struct {
	ID               string
	N                string // decimal string, arbitrary precision, >= 2
	Mode             JobMode
	LowerBound       string // optional, decimal; "" if unset
	UpperBound       string // optional, decimal; "" if unset
	Policy           AlgorithmPolicy
	ECMParams        ECMParamsConfig
	UseEquation      bool
	State            JobState
	CreatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
	Progress         float64 // [0,100]
	CurrentCandidate string  // stringified big int, "" if not yet set
	ErrorMessage     string
	Factors          []string // decimal strings, discovered prime factors in discovery order
	Certificate      []byte   // serialized certificate.Certificate JSON, set only when N itself
	                          // was prime at the stage-0 gate (no factor was "discovered", so no
	                          // Result row is created for this case); nil otherwise.
}

// validate enforces Job's invariants at construction time: FinishedAt is set
// if and only if State is terminal, and Progress stays within [0,100].
func (j *Job) validate() error {
	if j.FinishedAt != nil && !j.State.Terminal() {
		return fmt.Errorf("engine: job %s: finished_at set but state %q is not terminal", j.ID, j.State)
	}
	if j.FinishedAt == nil && j.State.Terminal() {
		return fmt.Errorf("engine: job %s: state %q is terminal but finished_at unset", j.ID, j.State)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("engine: job %s: progress %f out of [0,100]", j.ID, j.Progress)
	}
	return nil
}

// LogLevel is the severity of a LogEntry emitted during a job's run.
type LogLevel string

const (
	LevelDebug   LogLevel = "DEBUG"
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// LogEntry is one append-only line in a job's event history.
type LogEntry struct {
	JobID     string
	Sequence  int64 // monotonic per job, assigned by Manager.nextSeq
	Timestamp time.Time
	Level     LogLevel
	Stage     string
	Message   string
	Payload   map[string]any // optional structured payload
}

// Result is one factor discovery recorded against a job.
type Result struct {
	JobID         string
	Factor        string // decimal string
	IsPrime       bool
	Algorithm     string
	ElapsedMillis int64
	Certificate   []byte // optional serialized certificate.Certificate JSON, nil if absent
	CreatedAt     time.Time
}

// Upload describes a CSV intake file, referenced by csv-mode jobs.
type Upload struct {
	Token    string
	Filename string
	RowCount int
	Path     string
	State    string
}

// Snapshot caches a rendered equation curve for a job.
type Snapshot struct {
	JobID  string
	XMin   string
	XMax   string
	Step   string
	Points []byte // serialized trurl.Point slice
}

// KernelRunState mirrors the optional parallel-racing sub-entity's state.
type KernelRunState string

const (
	KernelRunRunning KernelRunState = "running"
	KernelRunDone    KernelRunState = "done"
	KernelRunFailed  KernelRunState = "failed"
)

// KernelRun is an optional sub-entity recording one kernel invocation when
// the engine races multiple kernels concurrently for a single job. The
// sequential pipeline does not populate this; it exists so a future racing
// scheduler has a place to record per-kernel outcomes.
type KernelRun struct {
	JobID     string
	Algorithm string
	State     KernelRunState
	Metrics   map[string]any
	Result    *Result
}
