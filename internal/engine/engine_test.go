package engine_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Deenyoro/SubPrimeDivide/internal/engine"
	"github.com/Deenyoro/SubPrimeDivide/internal/eventbus"
	"github.com/Deenyoro/SubPrimeDivide/internal/jobstore"
)

// noopSolver reports unconfigured, matching a deployment with no external
// GNFS tool wired in.
type noopSolver struct{}

func (noopSolver) Solve(ctx context.Context, n string, onProgress func(string)) ([]string, error) {
	return nil, nil
}
func (noopSolver) Configured() bool { return false }

func newTestManager(t *testing.T) (*engine.Manager, *jobstore.Memory) {
	t.Helper()
	store := jobstore.NewMemory()
	bus := eventbus.New()
	mgr := engine.NewManager(store, bus, noopSolver{}, engine.WithWorkers(2))
	return mgr, store
}

func waitTerminal(t *testing.T, store *jobstore.Memory, jobID string, timeout time.Duration) *engine.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job != nil && job.State.Terminal() {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state within %s", jobID, timeout)
	return nil
}

func sortedStrings(ss []string) []string {
	out := append([]string{}, ss...)
	sort.Strings(out)
	return out
}

// Scenario 1: N=143=11*13, auto mode, default policy.
func TestScenarioAutoModeFindsBothFactors(t *testing.T) {
	mgr, store := newTestManager(t)
	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "143"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitTerminal(t, store, job.ID, 5*time.Second)
	if final.State != engine.StateCompleted {
		t.Fatalf("state = %s, want completed (error=%s)", final.State, final.ErrorMessage)
	}
	want := []string{"11", "13"}
	if got := sortedStrings(final.Factors); !equalStrings(got, want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}
}

// Scenario 2: N=1,003,001=991*1013, equation-guided mode.
func TestScenarioEquationGuidedFindsFactor(t *testing.T) {
	mgr, store := newTestManager(t)
	policy := engine.DefaultAlgorithmPolicy()
	policy.EnableTrialDivision = false
	policy.EnablePollardRho = false
	policy.EnableShor = false
	policy.EnableStagedECM = false
	policy.EnableAdvancedECM = false
	policy.EnableExternalGNFS = false
	policy.EnableEquationSearch = true

	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{
		N:           "1003001",
		Mode:        engine.ModeEquationGuided,
		Policy:      &policy,
		UseEquation: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitTerminal(t, store, job.ID, 10*time.Second)
	if final.State != engine.StateCompleted {
		t.Fatalf("state = %s, want completed (error=%s)", final.State, final.ErrorMessage)
	}
	want := []string{"1013", "991"}
	if got := sortedStrings(final.Factors); !equalStrings(got, want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}

	results, err := store.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Factor == "991" && r.Algorithm == "equation_search" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Result row recording factor 991 via equation_search, got %+v", results)
	}
}

// Scenario 3: N=10,403=101*103, trial division/pollard rho/ECM disabled, so
// Shor's classical order-finding must be the stage that discovers a factor.
func TestScenarioShorFindsFactorWhenOtherStagesDisabled(t *testing.T) {
	mgr, store := newTestManager(t)
	policy := engine.DefaultAlgorithmPolicy()
	policy.EnableTrialDivision = false
	policy.EnablePollardRho = false
	policy.EnableStagedECM = false
	policy.EnableAdvancedECM = false
	policy.EnableExternalGNFS = false
	policy.EnableEquationSearch = false
	policy.EnableShor = true

	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "10403", Policy: &policy})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitTerminal(t, store, job.ID, 20*time.Second)
	if final.State != engine.StateCompleted {
		t.Fatalf("state = %s, want completed (error=%s)", final.State, final.ErrorMessage)
	}
	want := []string{"101", "103"}
	if got := sortedStrings(final.Factors); !equalStrings(got, want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}

	results, err := store.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	sawShor := false
	for _, r := range results {
		if r.Algorithm == "shor" {
			sawShor = true
		}
	}
	if !sawShor {
		t.Fatalf("expected shor to be the algorithm that recorded a factor, got %+v", results)
	}
}

// Scenario 4: N=97 (prime). Expected: state completed, no Result rows, a
// certificate attached directly to the job.
func TestScenarioPrimeInputHasNoResultRows(t *testing.T) {
	mgr, store := newTestManager(t)
	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "97"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitTerminal(t, store, job.ID, 5*time.Second)
	if final.State != engine.StateCompleted {
		t.Fatalf("state = %s, want completed (error=%s)", final.State, final.ErrorMessage)
	}
	if got := final.Factors; len(got) != 1 || got[0] != "97" {
		t.Fatalf("factors = %v, want [97]", got)
	}
	if len(final.Certificate) == 0 {
		t.Fatal("expected a certificate attached to the job")
	}
	results, err := store.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected zero Result rows for a prime input, got %d", len(results))
	}
}

// Scenario 5: N=1234=2*617, default policy; trial division should find the
// factor 2 immediately.
func TestScenarioTrialDivisionFindsSmallFactorImmediately(t *testing.T) {
	mgr, store := newTestManager(t)
	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "1234"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitTerminal(t, store, job.ID, 5*time.Second)
	if final.State != engine.StateCompleted {
		t.Fatalf("state = %s, want completed (error=%s)", final.State, final.ErrorMessage)
	}
	want := []string{"2", "617"}
	if got := sortedStrings(final.Factors); !equalStrings(got, want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}
}

// Scenario 6: a cancel issued against a still-pending job (the deterministic
// sliver of "cancel observed before stage 1 completes") transitions straight
// to cancelled with no Result rows. The job is written directly to the store
// (bypassing Submit's worker queue) so the race against a live worker pool
// picking it up first cannot flake the test.
func TestScenarioCancelBeforePickupLeavesNoResults(t *testing.T) {
	mgr, store := newTestManager(t)

	job := &engine.Job{
		ID:        uuid.NewString(),
		N:         "143",
		Mode:      engine.ModeAuto,
		Policy:    engine.DefaultAlgorithmPolicy(),
		State:     engine.StatePending,
		CreatedAt: time.Now(),
	}
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	final, err := mgr.Control(context.Background(), job.ID, engine.ActionCancel)
	if err != nil {
		t.Fatalf("Control(cancel): %v", err)
	}
	if final.State != engine.StateCancelled {
		t.Fatalf("state = %s, want cancelled", final.State)
	}
	if final.FinishedAt == nil {
		t.Fatal("expected finished_at to be set on cancellation")
	}
	results, err := store.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected zero Result rows for a cancelled-before-pickup job, got %d", len(results))
	}
}

// Pausing then resuming a running job must not cause the pipeline to run
// twice: resume unblocks the same still-alive worker goroutine in place
// rather than re-enqueuing the job for a second worker to pick up.
func TestControlPauseThenResumeRunsPipelineExactlyOnce(t *testing.T) {
	mgr, store := newTestManager(t)
	policy := engine.DefaultAlgorithmPolicy()
	policy.EnableTrialDivision = false
	policy.EnablePollardRho = false
	policy.EnableShor = false
	policy.EnableStagedECM = false
	policy.EnableAdvancedECM = false
	policy.EnableExternalGNFS = false
	policy.EnableEquationSearch = true

	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{
		N:           "1003001",
		Mode:        engine.ModeEquationGuided,
		Policy:      &policy,
		UseEquation: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		cur, err := store.GetJob(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if cur.State == engine.StateRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never reached running state")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := mgr.Control(context.Background(), job.ID, engine.ActionPause); err != nil {
		t.Fatalf("Control(pause): %v", err)
	}
	paused, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if paused.State != engine.StatePaused {
		t.Fatalf("state = %s, want paused", paused.State)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := mgr.Control(context.Background(), job.ID, engine.ActionResume); err != nil {
		t.Fatalf("Control(resume): %v", err)
	}
	resumed, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if resumed.State != engine.StateRunning {
		t.Fatalf("state = %s, want running immediately after resume", resumed.State)
	}

	final := waitTerminal(t, store, job.ID, 10*time.Second)
	if final.State != engine.StateCompleted {
		t.Fatalf("state = %s, want completed (error=%s)", final.State, final.ErrorMessage)
	}
	want := []string{"1013", "991"}
	if got := sortedStrings(final.Factors); !equalStrings(got, want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}

	results, err := store.ListResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected exactly 2 Result rows (no duplicate pipeline run), got %d: %+v", len(results), results)
	}
}

func TestSubmitRejectsMalformedN(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "not-a-number"}); err == nil {
		t.Fatal("expected malformed N to be rejected")
	}
}

func TestSubmitRejectsNBelowTwo(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "1"}); err == nil {
		t.Fatal("expected N=1 to be rejected")
	}
}

func TestSubmitRejectsInvertedBounds(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "143", LowerBound: "100", UpperBound: "50"})
	if err == nil {
		t.Fatal("expected inverted bounds to be rejected")
	}
}

func TestControlRejectsInvalidTransition(t *testing.T) {
	mgr, store := newTestManager(t)
	job, err := mgr.Submit(context.Background(), engine.JobCreateRequest{N: "97"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitTerminal(t, store, job.ID, 5*time.Second)
	if _, err := mgr.Control(context.Background(), job.ID, engine.ActionResume); err == nil {
		t.Fatal("expected resuming a completed job to be rejected")
	}
}

func TestControlRejectsUnknownJob(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Control(context.Background(), "no-such-job", engine.ActionCancel); err == nil {
		t.Fatal("expected control on an unknown job to be rejected")
	}
}

func TestHealthReportsConfiguredComponents(t *testing.T) {
	mgr, _ := newTestManager(t)
	h := mgr.Health(context.Background())
	if h.Workers != 2 {
		t.Fatalf("workers = %d, want 2", h.Workers)
	}
	if h.SolverPresent {
		t.Fatal("expected SolverPresent to be false for an unconfigured solver")
	}
	if !h.StoreHealthy {
		t.Fatal("expected StoreHealthy to be true for a healthy in-memory store")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
