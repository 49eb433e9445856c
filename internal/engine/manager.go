package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
	"github.com/Deenyoro/SubPrimeDivide/internal/cancel"
	"github.com/google/uuid"
)

// JobCreateRequest is the validated input to Submit, the Go-native analogue
// of the out-of-scope POST /jobs request body.
type JobCreateRequest struct {
	N               string
	Mode            JobMode
	LowerBound      string
	UpperBound      string
	Policy          *AlgorithmPolicy // nil = DefaultAlgorithmPolicy()
	ECMParams       *ECMParamsConfig // nil = zero value (kernel defaults)
	UseEquation     bool
}

// validate mirrors the perceiver-style input gate: reject malformed N, bad
// bound ordering, and unknown modes synchronously, before a Job is ever
// constructed.
func (r JobCreateRequest) validate() (*bigint.Int, error) {
	n, ok := bigint.FromString(r.N)
	if !ok {
		return nil, &ValidationError{Field: "n", Message: fmt.Sprintf("not a valid decimal integer: %q", r.N)}
	}
	if n.Cmp(bigint.New(2)) < 0 {
		return nil, &ValidationError{Field: "n", Message: "must be >= 2"}
	}
	switch r.Mode {
	case ModeAuto, ModeRangeScan, ModeCSV, ModeEquationGuided:
	case "":
		// defaulted below by Submit
	default:
		return nil, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", r.Mode)}
	}
	if r.LowerBound != "" && r.UpperBound != "" {
		lo, ok1 := bigint.FromString(r.LowerBound)
		hi, ok2 := bigint.FromString(r.UpperBound)
		if !ok1 || !ok2 {
			return nil, &ValidationError{Field: "bounds", Message: "lower_bound/upper_bound must be decimal integers"}
		}
		if lo.Cmp(hi) > 0 {
			return nil, &ValidationError{Field: "bounds", Message: "lower_bound must be <= upper_bound"}
		}
	}
	return n, nil
}

// Manager is the job engine's public surface: Submit, Control, Stream. It
// runs a fixed-size worker pool consuming submitted jobs, one worker per job
// at a time.
type Manager struct {
	store  Store
	sink   EventSink
	solver ExternalSolver

	workers       int
	queue         chan string // job IDs awaiting a worker
	checkInterval time.Duration

	mu       sync.Mutex
	tokens   map[string]*cancel.Token // live cancel tokens for running/paused jobs
	cancels  map[string]context.CancelFunc
	seq      map[string]int64 // per-job monotonic LogEntry sequence counter

	wg sync.WaitGroup
}

// ManagerOption configures optional Manager behavior at construction.
type ManagerOption func(*Manager)

// WithWorkers overrides the worker pool size (default runtime.NumCPU()).
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithCheckInterval sets the minimum spacing between persisted/published
// progress updates within a single job's run (default 1s). It does not
// affect stage or cancellation checkpoints, which run on each kernel's and
// stage's own iteration counts.
func WithCheckInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.checkInterval = d
		}
	}
}

// NewManager constructs a Manager backed by store/sink/solver and starts its
// worker pool.
func NewManager(store Store, sink EventSink, solver ExternalSolver, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		sink:          sink,
		solver:        solver,
		workers:       runtime.NumCPU(),
		queue:         make(chan string, 1024),
		checkInterval: time.Second,
		tokens:        make(map[string]*cancel.Token),
		cancels:       make(map[string]context.CancelFunc),
		seq:           make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Submit validates req, creates a pending Job, and schedules it for
// background execution. Returns the created Job's identity.
func (m *Manager) Submit(ctx context.Context, req JobCreateRequest) (*Job, error) {
	if req.Mode == "" {
		req.Mode = ModeAuto
	}
	if _, err := req.validate(); err != nil {
		return nil, err
	}

	policy := DefaultAlgorithmPolicy()
	if req.Policy != nil {
		policy = *req.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	ecmParams := ECMParamsConfig{}
	if req.ECMParams != nil {
		ecmParams = *req.ECMParams
	}
	if err := ecmParams.Validate(); err != nil {
		return nil, err
	}

	job := &Job{
		ID:          uuid.NewString(),
		N:           req.N,
		Mode:        req.Mode,
		LowerBound:  req.LowerBound,
		UpperBound:  req.UpperBound,
		Policy:      policy,
		ECMParams:   ecmParams,
		UseEquation: req.UseEquation,
		State:       StatePending,
		CreatedAt:   now(),
		Progress:    0,
	}
	if err := job.validate(); err != nil {
		return nil, &InternalError{Reason: "constructed job failed its own invariants", Err: err}
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, &InternalError{Reason: "failed to persist new job", Err: err}
	}

	select {
	case m.queue <- job.ID:
	default:
		// queue saturated: the job remains `pending` in the store and is
		// not enqueued; nothing in this package (Control included) enqueues
		// it later, so no worker picks it up. This package does not grow the
		// queue unbounded.
	}
	return job, nil
}

// Control applies a pause/resume/cancel action to an in-flight job,
// rejecting invalid state transitions.
func (m *Manager) Control(ctx context.Context, jobID string, action ControlAction) (*Job, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, &InternalError{Reason: "failed to load job for control action", Err: err}
	}
	if job == nil {
		return nil, &ValidationError{Field: "job_id", Message: "no such job"}
	}
	if !validTransition(job.State, action) {
		return nil, &ValidationError{Field: "action", Message: fmt.Sprintf("cannot %s a job in state %q", action, job.State)}
	}

	m.mu.Lock()
	tok := m.tokens[jobID]
	cancelFn := m.cancels[jobID]
	m.mu.Unlock()

	switch action {
	case ActionPause:
		if tok != nil {
			tok.Pause()
		}
		job.State = StatePaused
		if err := m.store.UpdateJob(ctx, job); err != nil {
			return nil, &InternalError{Reason: "failed to persist control transition", Err: err}
		}
	case ActionResume:
		// Resume-in-place: the worker goroutine running this job's pipeline
		// is still alive, blocked inside cancel.Token.CheckPoint. Resume()
		// unblocks it directly. The job must never be re-enqueued here — a
		// free worker picking it up would start a second concurrent
		// pipelineRun for the same job.
		if tok != nil {
			tok.Resume()
		}
		job.State = StateRunning
		if err := m.store.UpdateJob(ctx, job); err != nil {
			return nil, &InternalError{Reason: "failed to persist control transition", Err: err}
		}
	case ActionCancel:
		if cancelFn != nil {
			cancelFn()
		}
		if job.State == StatePending {
			// never picked up by a worker: finalize here directly.
			t := now()
			job.State = StateCancelled
			job.FinishedAt = &t
			if err := m.store.UpdateJob(ctx, job); err != nil {
				return nil, &InternalError{Reason: "failed to persist control transition", Err: err}
			}
		}
		// running/paused jobs transition to cancelled inside the pipeline's
		// cancellation check, which persists the final state itself.
	}

	return job, nil
}

// Stream returns the job's current log backlog plus its terminal status if
// already finished. A full push-based append-only feed is the EventSink's
// responsibility (internal/eventbus); this method covers the GET-style
// snapshot half of the out-of-scope WS surface.
func (m *Manager) Stream(ctx context.Context, jobID string) ([]*LogEntry, *Job, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, &InternalError{Reason: "failed to load job", Err: err}
	}
	if job == nil {
		return nil, nil, &ValidationError{Field: "job_id", Message: "no such job"}
	}
	logs, err := m.store.ListLogs(ctx, jobID)
	if err != nil {
		return nil, nil, &InternalError{Reason: "failed to load logs", Err: err}
	}
	return logs, job, nil
}

// HealthReport is returned by Health, adapted from the teacher's auditor
// window-stats design: a liveness snapshot rather than a continuous report.
type HealthReport struct {
	Workers       int
	QueueDepth    int
	ActiveJobs    int
	StoreHealthy  bool
	SolverPresent bool
	CheckedAt     time.Time
}

// Health reports component liveness, the Go-native analogue of GET /health.
func (m *Manager) Health(ctx context.Context) HealthReport {
	m.mu.Lock()
	active := len(m.tokens)
	m.mu.Unlock()
	_, storeErr := m.store.ListJobs(ctx)
	return HealthReport{
		Workers:       m.workers,
		QueueDepth:    len(m.queue),
		ActiveJobs:    active,
		StoreHealthy:  storeErr == nil,
		SolverPresent: m.solver != nil && m.solver.Configured(),
		CheckedAt:     now(),
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for jobID := range m.queue {
		m.runJob(jobID)
	}
}

func (m *Manager) runJob(jobID string) {
	ctx := context.Background()
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	if job.State.Terminal() {
		return
	}

	tok, cancelFn := cancel.New(ctx)
	m.mu.Lock()
	m.tokens[jobID] = tok
	m.cancels[jobID] = cancelFn
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.tokens, jobID)
		delete(m.cancels, jobID)
		delete(m.seq, jobID)
		m.mu.Unlock()
	}()

	if job.StartedAt == nil {
		t := now()
		job.StartedAt = &t
	}
	job.State = StateRunning
	_ = m.store.UpdateJob(ctx, job)

	p := &pipelineRun{
		mgr: m,
		job: job,
		tok: tok,
	}
	p.run(ctx)
}

func (m *Manager) nextSeq(jobID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[jobID]++
	return m.seq[jobID]
}

// now is the single time source the engine calls, so tests can substitute a
// controllable clock if ever needed without touching every call site.
var now = time.Now
