package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/Deenyoro/SubPrimeDivide/internal/engine"
)

func TestMemoryCreateAndGetJob(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	job := &engine.Job{ID: "j1", N: "143", State: engine.StatePending, CreatedAt: time.Now()}
	if err := m.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	got, err := m.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got == nil || got.N != "143" {
		t.Fatalf("GetJob returned %+v", got)
	}
}

func TestMemoryCreateDuplicateRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	job := &engine.Job{ID: "j1", N: "143", CreatedAt: time.Now()}
	if err := m.CreateJob(ctx, job); err != nil {
		t.Fatalf("first CreateJob: %v", err)
	}
	if err := m.CreateJob(ctx, job); err == nil {
		t.Fatal("expected duplicate CreateJob to fail")
	}
}

func TestMemoryLogsAreAppendOnlyAndOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	job := &engine.Job{ID: "j1", CreatedAt: time.Now()}
	_ = m.CreateJob(ctx, job)
	for i := int64(1); i <= 3; i++ {
		_ = m.AppendLog(ctx, &engine.LogEntry{JobID: "j1", Sequence: i, Message: "m"})
	}
	logs, err := m.ListLogs(ctx, "j1")
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	for i, l := range logs {
		if l.Sequence != int64(i+1) {
			t.Fatalf("log out of order: %+v", logs)
		}
	}
}

func TestMemoryLogAgainstUnknownJobFails(t *testing.T) {
	m := NewMemory()
	if err := m.AppendLog(context.Background(), &engine.LogEntry{JobID: "ghost"}); err == nil {
		t.Fatal("expected AppendLog against unknown job to fail")
	}
}

func TestMemoryFactorCacheRoundTrips(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, ok, _ := m.FactorCacheGet(ctx, "digest1"); ok {
		t.Fatal("expected cache miss before any Put")
	}
	if err := m.FactorCachePut(ctx, "digest1", []string{"11", "13"}); err != nil {
		t.Fatalf("FactorCachePut: %v", err)
	}
	factors, ok, err := m.FactorCacheGet(ctx, "digest1")
	if err != nil || !ok {
		t.Fatalf("FactorCacheGet: ok=%v err=%v", ok, err)
	}
	if len(factors) != 2 || factors[0] != "11" || factors[1] != "13" {
		t.Fatalf("unexpected factors %v", factors)
	}
}

func TestMemoryResultsIsolatedPerJob(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.CreateJob(ctx, &engine.Job{ID: "j1", CreatedAt: time.Now()})
	_ = m.CreateJob(ctx, &engine.Job{ID: "j2", CreatedAt: time.Now()})
	_ = m.AppendResult(ctx, &engine.Result{JobID: "j1", Factor: "11"})
	_ = m.AppendResult(ctx, &engine.Result{JobID: "j2", Factor: "97"})

	r1, _ := m.ListResults(ctx, "j1")
	r2, _ := m.ListResults(ctx, "j2")
	if len(r1) != 1 || r1[0].Factor != "11" {
		t.Fatalf("job1 results wrong: %+v", r1)
	}
	if len(r2) != 1 || r2[0].Factor != "97" {
		t.Fatalf("job2 results wrong: %+v", r2)
	}
}
