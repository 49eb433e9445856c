package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
	"github.com/Deenyoro/SubPrimeDivide/internal/cancel"
	"github.com/Deenyoro/SubPrimeDivide/internal/certificate"
	"github.com/Deenyoro/SubPrimeDivide/internal/kernels"
	"github.com/Deenyoro/SubPrimeDivide/internal/primality"
	"github.com/Deenyoro/SubPrimeDivide/internal/sieve"
	"github.com/Deenyoro/SubPrimeDivide/internal/trurl"
)

// pipelineRun holds the state threaded through one job's execution of stages
// 0 through 7. It is constructed fresh per runJob call and never shared
// across goroutines.
type pipelineRun struct {
	mgr *Manager
	job *Job
	tok *cancel.Token

	lastProgressAt time.Time // zero until the first reportProgress call
}

// factorCacheDigest keys the FactorCache on a digest of N's decimal string,
// rather than the string itself, to keep the store's key size bounded
// regardless of how many digits N has.
func factorCacheDigest(n string) string {
	sum := sha256.Sum256([]byte(n))
	return hex.EncodeToString(sum[:])
}

// run executes the full pipeline against p.job, persisting state, logs, and
// results as it goes, and leaves the job in a terminal state before
// returning.
func (p *pipelineRun) run(ctx context.Context) {
	n, ok := bigint.FromString(p.job.N)
	if !ok {
		p.fail(ctx, &InternalError{Reason: fmt.Sprintf("job N %q is not a valid integer at pipeline start", p.job.N)})
		return
	}

	if err := p.checkpoint(ctx, "pipeline"); err != nil {
		p.cancelled(ctx)
		return
	}

	digest := factorCacheDigest(n.String())
	if cached, hit, cacheErr := p.mgr.store.FactorCacheGet(ctx, digest); cacheErr == nil && hit {
		p.log(ctx, LevelInfo, "factor_cache", fmt.Sprintf("%s was already factored by a prior job, reusing cached result", n.String()), nil)
		p.job.Factors = cached
		p.complete(ctx)
		return
	}

	// A job whose N is already prime never reaches a stage: no factor is
	// "discovered", so no Result row is created — only the job-level
	// certificate field.
	if primality.IsPrimeFast(n) {
		p.log(ctx, LevelInfo, "primality_gate", fmt.Sprintf("%s is prime", n.String()), nil)
		p.attachJobCertificate(ctx, n)
		p.job.Factors = []string{n.String()}
		p.complete(ctx)
		p.cacheFactors(ctx, digest, p.job.Factors)
		return
	}

	factors, unfactoredRemainder, done, err := p.decompose(ctx, n, false)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	if !done {
		// decompose returned early because of a checkpoint cancellation.
		p.cancelled(ctx)
		return
	}

	p.job.Factors = factors
	if unfactoredRemainder != nil {
		p.log(ctx, LevelWarning, "finalize", fmt.Sprintf("unfactored composite remainder left: %s", unfactoredRemainder.String()), nil)
	}
	p.complete(ctx)
	if unfactoredRemainder == nil {
		// only a complete factorization is worth short-circuiting on next time.
		p.cacheFactors(ctx, digest, factors)
	}
}

// cacheFactors stores a completed factorization in the FactorCache, logging
// rather than failing the job if the store rejects the write.
func (p *pipelineRun) cacheFactors(ctx context.Context, digest string, factors []string) {
	if err := p.mgr.store.FactorCachePut(ctx, digest, factors); err != nil {
		p.log(ctx, LevelWarning, "factor_cache", fmt.Sprintf("failed to cache factorization: %v", err), nil)
	}
}

// decompose runs the stage pipeline against n (and recursively against any
// composite cofactor), accumulating discovered prime factors. alreadyRecorded
// is true when the caller's stage already wrote a Result row for n (the
// branch a kernel directly returned as "Found"); the cofactor branch is
// always false, since nothing has recorded it yet. It returns the list of
// discovered prime factors, any unfactored composite remainder (nil if
// everything was resolved), and done=false if a cancellation was observed
// mid-way (in which case the caller must not treat the partial result as
// final).
func (p *pipelineRun) decompose(ctx context.Context, n *big.Int, alreadyRecorded bool) (factors []string, remainder *big.Int, done bool, err error) {
	if n.Cmp(big.NewInt(1)) == 0 {
		return nil, nil, true, nil
	}

	if primality.IsPrimeFast(n) {
		if !alreadyRecorded {
			p.recordPrimeLeaf(ctx, n)
		}
		return []string{n.String()}, nil, true, nil
	}

	factor, stageErr := p.runStages(ctx, n)
	if stageErr != nil {
		if _, isCancel := stageErr.(*CancellationError); isCancel {
			return nil, nil, false, nil
		}
		return nil, nil, true, stageErr
	}
	if factor == nil {
		// every enabled stage declined: record the composite as an
		// unfactored remainder rather than looping forever.
		return nil, n, true, nil
	}

	cofactor := new(big.Int).Div(n, factor)
	if new(big.Int).Mul(factor, cofactor).Cmp(n) != 0 {
		return nil, nil, true, &InternalError{Reason: fmt.Sprintf("factor %s does not divide %s exactly", factor, n)}
	}

	leftFactors, leftRem, leftDone, err := p.decompose(ctx, factor, true)
	if err != nil || !leftDone {
		return nil, nil, leftDone, err
	}
	rightFactors, rightRem, rightDone, err := p.decompose(ctx, cofactor, false)
	if err != nil || !rightDone {
		return nil, nil, rightDone, err
	}

	factors = append(factors, leftFactors...)
	factors = append(factors, rightFactors...)
	if leftRem != nil && rightRem != nil {
		remainder = new(big.Int).Mul(leftRem, rightRem)
	} else if leftRem != nil {
		remainder = leftRem
	} else if rightRem != nil {
		remainder = rightRem
	}
	return factors, remainder, true, nil
}

// runStages executes stages 1 through 7 in policy order against n, stopping
// at the first non-trivial factor. It returns nil, nil when every enabled
// stage declines (not an error: the caller records an unfactored
// remainder).
func (p *pipelineRun) runStages(ctx context.Context, n *big.Int) (*big.Int, error) {
	policy := p.job.Policy
	progress := func(candidate *big.Int, note string) {
		p.reportProgress(ctx, candidate, note)
	}

	if policy.EnableTrialDivision {
		if err := p.checkpoint(ctx, "trial_division"); err != nil {
			return nil, err
		}
		p.setProgressFloor(ctx, 5)
		outcome, diag := kernels.TrialDivision(p.tok, n, policy.TrialDivisionLimit, progress, policy.CheckIntervalSieve)
		if f, err, handled := p.handleOutcome(ctx, "trial_division", outcome, n); handled {
			return f, err
		}
		p.log(ctx, LevelDebug, "trial_division", fmt.Sprintf("tried %d candidates up to limit %d", diag.CandidatesTried, diag.LimitUsed), nil)
	}

	if policy.EnablePollardRho {
		if err := p.checkpoint(ctx, "pollard_rho"); err != nil {
			return nil, err
		}
		p.setProgressFloor(ctx, 15)
		outcome, diag := kernels.PollardRhoBrent(p.tok, n, policy.PollardRhoMaxIters, progress, int64(policy.CheckIntervalBigInt))
		if f, err, handled := p.handleOutcome(ctx, "pollard_rho", outcome, n); handled {
			return f, err
		}
		p.log(ctx, LevelDebug, "pollard_rho", fmt.Sprintf("%d restarts, %d iterations", diag.Restarts, diag.Iterations), nil)
	}

	if policy.EnableShor {
		if err := p.checkpoint(ctx, "shor"); err != nil {
			return nil, err
		}
		p.setProgressFloor(ctx, 25)
		outcome, diag := kernels.Shor(p.tok, n, progress)
		if f, err, handled := p.handleOutcome(ctx, "shor", outcome, n); handled {
			return f, err
		}
		p.log(ctx, LevelDebug, "shor", fmt.Sprintf("%d attempts across bound sweep", len(diag.Attempts)), nil)
		p.setProgressFloor(ctx, 30)
	}

	if policy.EnableStagedECM {
		if err := p.checkpoint(ctx, "ecm_staged"); err != nil {
			return nil, err
		}
		p.setProgressFloor(ctx, 30)
		params := p.job.ECMParams.ToKernelParams(nil)
		outcome, diag := kernels.ECM(p.tok, n, params, progress)
		if f, err, handled := p.handleOutcome(ctx, "ecm_staged", outcome, n); handled {
			return f, err
		}
		p.log(ctx, LevelDebug, "ecm_staged", fmt.Sprintf("%d stages, %d curves tried", diag.StagesRun, diag.CurvesTried), nil)
		p.setProgressFloor(ctx, 70)
	}

	digits := bigint.Digits(n)
	if policy.EnableAdvancedECM && digits >= 30 {
		if err := p.checkpoint(ctx, "ecm_advanced"); err != nil {
			return nil, err
		}
		p.setProgressFloor(ctx, 60)
		suggestion := kernels.SuggestECM(digits / 2)
		advParams := kernels.ECMParams{
			Schedule: []kernels.ECMStage{{B1: suggestion.B1, Curves: suggestion.Curves}},
		}
		outcome, diag := kernels.ECM(p.tok, n, advParams, progress)
		if f, err, handled := p.handleOutcome(ctx, "ecm_advanced", outcome, n); handled {
			return f, err
		}
		p.log(ctx, LevelDebug, "ecm_advanced", fmt.Sprintf("suggested B1=%d curves=%d, tried %d curves", suggestion.B1, suggestion.Curves, diag.CurvesTried), nil)
		p.setProgressFloor(ctx, 75)
	}

	if policy.EnableExternalGNFS && digits >= 200 && p.mgr.solver != nil && p.mgr.solver.Configured() {
		if err := p.checkpoint(ctx, "external_gnfs"); err != nil {
			return nil, err
		}
		factors, err := p.mgr.solver.Solve(p.tok.Context(), n.String(), func(line string) {
			p.log(ctx, LevelInfo, "external_gnfs", line, nil)
		})
		if err != nil {
			// a transport failure from the external tool is transient, not
			// internal: log and advance to the next stage.
			p.log(ctx, LevelWarning, "external_gnfs", fmt.Sprintf("external tool error: %v", err), nil)
		} else if len(factors) > 0 {
			f, ok := bigint.FromString(factors[0])
			if ok && f.Cmp(big.NewInt(1)) > 0 && f.Cmp(n) < 0 && new(big.Int).Mod(n, f).Sign() == 0 {
				p.recordResult(ctx, f, n, "external_gnfs")
				return f, nil
			}
		}
	} else if policy.EnableExternalGNFS && policy.EnableGNFSFallback && digits >= 200 {
		if err := p.checkpoint(ctx, "gnfs_fallback"); err != nil {
			return nil, err
		}
		p.log(ctx, LevelWarning, "gnfs_fallback", "no external GNFS tool configured, running a bounded in-process fallback", nil)
		fallbackParams := kernels.ECMParams{Schedule: []kernels.ECMStage{{B1: 10_000, Curves: 5}}}
		outcome, _ := kernels.ECM(p.tok, n, fallbackParams, progress)
		if outcome.Kind == kernels.Found {
			if f := outcome.Factor; f.Cmp(big.NewInt(1)) > 0 && f.Cmp(n) < 0 && new(big.Int).Mod(n, f).Sign() == 0 {
				p.recordResult(ctx, f, n, "diagnostic")
				return f, nil
			}
		}
	}

	if policy.EnableEquationSearch {
		if err := p.checkpoint(ctx, "equation_search"); err != nil {
			return nil, err
		}
		p.setProgressFloor(ctx, 70)
		f, err := p.runEquationSearch(ctx, n)
		if err != nil {
			return nil, err
		}
		if f != nil {
			p.recordResult(ctx, f, n, "equation_search")
			p.setProgressFloor(ctx, 95)
			return f, nil
		}
	}

	return nil, nil
}

// handleOutcome interprets a kernel Outcome uniformly: Found records the
// result and returns it; NotFound/Timeout log and let the caller proceed to
// the next stage; KernelError is transient (logged, pipeline advances)
// unless the token was cancelled, in which case it becomes a
// CancellationError. A Found factor that fails 1 < f < n and f | n is an
// InternalError. handled is true whenever the caller should stop processing
// further stages (a factor was found, an invalid factor was rejected, or a
// cancellation propagated).
func (p *pipelineRun) handleOutcome(ctx context.Context, stage string, outcome kernels.Outcome, n *big.Int) (factor *big.Int, err error, handled bool) {
	switch outcome.Kind {
	case kernels.Found:
		if outcome.Factor.Cmp(big.NewInt(1)) <= 0 || outcome.Factor.Cmp(n) >= 0 || new(big.Int).Mod(n, outcome.Factor).Sign() != 0 {
			return nil, &InternalError{Reason: fmt.Sprintf("%s returned a factor that does not satisfy 1 < f < n and f | n: %s", stage, outcome.Factor)}, true
		}
		p.recordResult(ctx, outcome.Factor, n, stage)
		return outcome.Factor, nil, true
	case kernels.NotFound:
		p.log(ctx, LevelInfo, stage, outcome.Message, nil)
		return nil, nil, false
	case kernels.Timeout:
		p.log(ctx, LevelWarning, stage, outcome.Message, nil)
		return nil, nil, false
	case kernels.KernelError:
		if p.tok.Cancelled() {
			return nil, &CancellationError{Stage: stage}, true
		}
		p.log(ctx, LevelWarning, stage, fmt.Sprintf("transient kernel error: %v", outcome.Err), nil)
		return nil, nil, false
	default:
		return nil, nil, false
	}
}

// runEquationSearch derives bounds via the Trurl equations and iterates
// primes in the solver's decreasing region, testing p | N. This is stage 7.
func (p *pipelineRun) runEquationSearch(ctx context.Context, n *big.Int) (*big.Int, error) {
	bounds := trurl.InitialBounds(n)
	lo, hi := bounds.Lower, bounds.Upper
	if p.job.LowerBound != "" {
		if custom, ok := bigint.FromString(p.job.LowerBound); ok {
			lo = custom
		}
	}
	if p.job.UpperBound != "" {
		if custom, ok := bigint.FromString(p.job.UpperBound); ok {
			hi = custom
		}
	}

	if !sieve.FitsSegmented(hi) {
		p.log(ctx, LevelWarning, "equation_search", "upper bound exceeds the fast segmented sieve range; falling back to arbitrary-precision next_prime", nil)
	}
	it := sieve.NewIterator(lo, hi, nil)
	count := uint64(0)
	for {
		if err := p.checkpoint(ctx, "equation_search"); err != nil {
			return nil, err
		}
		candidate, ok := it.Next()
		if !ok || candidate.Cmp(hi) > 0 {
			break
		}
		count++
		if count%p.job.Policy.CheckIntervalSieve == 0 {
			pct := trurl.Progress(candidate, lo, hi)
			p.reportProgress(ctx, candidate, fmt.Sprintf("equation_search %.1f%%", pct))
		}
		if new(big.Int).Mod(n, candidate).Sign() == 0 {
			return new(big.Int).Set(candidate), nil
		}
	}
	return nil, nil
}

// attachJobCertificate builds a certificate.Certificate for a job whose N
// was already prime at the stage-0 gate and stores it directly on the job,
// not as a Result: no factor was discovered, so this case gets zero Result
// rows.
func (p *pipelineRun) attachJobCertificate(ctx context.Context, n *big.Int) {
	cert := certificate.Build(n, now())
	data, err := certificate.Marshal(cert)
	if err != nil {
		p.log(ctx, LevelWarning, "primality_gate", fmt.Sprintf("failed to serialize certificate: %v", err), nil)
		return
	}
	p.job.Certificate = data
}

// recordPrimeLeaf records a Result row for a prime reached via recursive
// decomposition (a cofactor that was never itself returned as a stage's
// "Found" factor, and so has no Result row yet).
func (p *pipelineRun) recordPrimeLeaf(ctx context.Context, n *big.Int) {
	cert := certificate.Build(n, now())
	data, err := certificate.Marshal(cert)
	if err != nil {
		p.log(ctx, LevelWarning, "primality_gate", fmt.Sprintf("failed to serialize certificate: %v", err), nil)
		data = nil
	}
	result := &Result{
		JobID:         p.job.ID,
		Factor:        n.String(),
		IsPrime:       true,
		Algorithm:     "primality_gate",
		ElapsedMillis: p.elapsedMillis(),
		Certificate:   data,
		CreatedAt:     now(),
	}
	if err := p.mgr.store.AppendResult(ctx, result); err != nil {
		p.log(ctx, LevelError, "primality_gate", fmt.Sprintf("failed to persist prime-leaf result: %v", err), nil)
	}
}

func (p *pipelineRun) recordResult(ctx context.Context, factor, n *big.Int, algorithm string) {
	isPrime := primality.IsPrimeFast(factor)
	result := &Result{
		JobID:         p.job.ID,
		Factor:        factor.String(),
		IsPrime:       isPrime,
		Algorithm:     algorithm,
		ElapsedMillis: p.elapsedMillis(),
		CreatedAt:     now(),
	}
	if isPrime {
		cert := certificate.Build(factor, now())
		if data, err := certificate.Marshal(cert); err == nil {
			result.Certificate = data
		}
	}
	if err := p.mgr.store.AppendResult(ctx, result); err != nil {
		p.log(ctx, LevelError, algorithm, fmt.Sprintf("failed to persist result: %v", err), nil)
	}
}

func (p *pipelineRun) elapsedMillis() int64 {
	if p.job.StartedAt == nil {
		return 0
	}
	return now().Sub(*p.job.StartedAt).Milliseconds()
}

// checkpoint calls through to the cancel token and, on a pause, blocks until
// resumed or cancelled; on cancellation it returns a *CancellationError so
// the caller can unwind cleanly to p.cancelled.
func (p *pipelineRun) checkpoint(ctx context.Context, stage string) error {
	if err := p.tok.CheckPoint(); err != nil {
		return &CancellationError{Stage: stage}
	}
	return nil
}

func (p *pipelineRun) log(ctx context.Context, level LogLevel, stage, message string, payload map[string]any) {
	entry := &LogEntry{
		JobID:     p.job.ID,
		Sequence:  p.mgr.nextSeq(p.job.ID),
		Timestamp: now(),
		Level:     level,
		Stage:     stage,
		Message:   message,
		Payload:   payload,
	}
	if err := p.mgr.store.AppendLog(ctx, entry); err != nil {
		return // a logging failure must not fail the job (it's not an invariant violation)
	}
	if p.mgr.sink != nil {
		p.mgr.sink.PublishLog(entry)
	}
}

// reportProgress updates the candidate being tried and persists/publishes it
// at most once per mgr.checkInterval, so a kernel calling progress() on every
// inner iteration does not flood the store and event sink.
func (p *pipelineRun) reportProgress(ctx context.Context, candidate *big.Int, note string) {
	p.setProgressFloor(ctx, p.job.Progress) // no-op: the percent is raised only at stage boundaries
	p.job.CurrentCandidate = candidate.String()
	if !p.lastProgressAt.IsZero() && now().Sub(p.lastProgressAt) < p.mgr.checkInterval {
		_ = note
		return
	}
	p.lastProgressAt = now()
	if err := p.mgr.store.UpdateJob(ctx, p.job); err != nil {
		return
	}
	if p.mgr.sink != nil {
		p.mgr.sink.PublishProgress(p.job.ID, p.job.Progress, p.job.CurrentCandidate)
	}
	_ = note
}

// setProgressFloor raises job.Progress to pct if pct is higher, keeping
// progress monotonically non-decreasing over the job's run.
func (p *pipelineRun) setProgressFloor(ctx context.Context, pct float64) {
	if pct > p.job.Progress {
		p.job.Progress = pct
	}
}

func (p *pipelineRun) complete(ctx context.Context) {
	t := now()
	p.job.State = StateCompleted
	p.job.FinishedAt = &t
	p.job.Progress = 100
	_ = p.mgr.store.UpdateJob(ctx, p.job)
	if p.mgr.sink != nil {
		p.mgr.sink.PublishComplete(p.job.ID, p.job.State, "")
	}
}

func (p *pipelineRun) cancelled(ctx context.Context) {
	t := now()
	p.job.State = StateCancelled
	p.job.FinishedAt = &t
	_ = p.mgr.store.UpdateJob(ctx, p.job)
	if p.mgr.sink != nil {
		p.mgr.sink.PublishComplete(p.job.ID, p.job.State, "")
	}
}

func (p *pipelineRun) fail(ctx context.Context, err error) {
	t := now()
	p.job.State = StateFailed
	p.job.FinishedAt = &t
	p.job.ErrorMessage = err.Error()
	_ = p.mgr.store.UpdateJob(ctx, p.job)
	p.log(ctx, LevelError, "pipeline", err.Error(), nil)
	if p.mgr.sink != nil {
		p.mgr.sink.PublishComplete(p.job.ID, p.job.State, p.job.ErrorMessage)
	}
}
