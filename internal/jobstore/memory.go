// Package jobstore implements engine.Store: an in-memory implementation
// used by default and by tests, and a LevelDB-backed implementation adapted
// from the teacher's key-prefix persistence scheme for longer-lived
// deployments.
package jobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Deenyoro/SubPrimeDivide/internal/engine"
)

// Memory is a mutex-protected, in-memory engine.Store. Every write locks the
// whole store, which is fine at the scale this engine targets and makes the
// "readers never observe a partial write" invariant trivial to uphold.
type Memory struct {
	mu      sync.Mutex
	jobs    map[string]*engine.Job
	logs    map[string][]*engine.LogEntry
	results map[string][]*engine.Result
	cache   map[string][]string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:    make(map[string]*engine.Job),
		logs:    make(map[string][]*engine.LogEntry),
		results: make(map[string][]*engine.Result),
		cache:   make(map[string][]string),
	}
}

func (m *Memory) CreateJob(ctx context.Context, job *engine.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("jobstore: job %s already exists", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) UpdateJob(ctx context.Context, job *engine.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; !exists {
		return fmt.Errorf("jobstore: job %s does not exist", job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (*engine.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *Memory) ListJobs(ctx context.Context) ([]*engine.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*engine.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) AppendLog(ctx context.Context, entry *engine.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[entry.JobID]; !exists {
		return fmt.Errorf("jobstore: cannot log against unknown job %s", entry.JobID)
	}
	cp := *entry
	m.logs[entry.JobID] = append(m.logs[entry.JobID], &cp)
	return nil
}

func (m *Memory) ListLogs(ctx context.Context, jobID string) ([]*engine.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.logs[jobID]
	out := make([]*engine.LogEntry, len(src))
	for i, e := range src {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

func (m *Memory) AppendResult(ctx context.Context, result *engine.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[result.JobID]; !exists {
		return fmt.Errorf("jobstore: cannot record result against unknown job %s", result.JobID)
	}
	cp := *result
	m.results[result.JobID] = append(m.results[result.JobID], &cp)
	return nil
}

func (m *Memory) ListResults(ctx context.Context, jobID string) ([]*engine.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.results[jobID]
	out := make([]*engine.Result, len(src))
	for i, r := range src {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (m *Memory) FactorCacheGet(ctx context.Context, digest string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	factors, ok := m.cache[digest]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), factors...), true, nil
}

func (m *Memory) FactorCachePut(ctx context.Context, digest string, factors []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[digest] = append([]string(nil), factors...)
	return nil
}

var _ engine.Store = (*Memory)(nil)
