package engine

import (
	"fmt"
	"time"

	"github.com/Deenyoro/SubPrimeDivide/internal/kernels"
)

// AlgorithmPolicy enables/disables and bounds each pipeline stage. Unknown
// fields reaching this struct via deserialization are rejected by the
// caller's decoder before construction; this package only validates the
// values it receives.
type AlgorithmPolicy struct {
	EnableTrialDivision bool
	TrialDivisionLimit  uint64 // 0 = DefaultTrialDivisionLimit

	EnablePollardRho   bool
	PollardRhoMaxIters int64 // 0 = kernel default

	EnableShor bool

	EnableStagedECM bool
	EnableAdvancedECM bool // gated additionally on digits(N) >= 30 at pipeline time

	EnableExternalGNFS bool // gated additionally on digits(N) >= 200 and a configured tool

	// EnableGNFSFallback runs a small fixed-parameter in-process ECM pass,
	// tagged "diagnostic" rather than a real algorithm name, when stage 6 is
	// enabled but no external GNFS tool is configured. It exists so a
	// digits(N)>=200 job still gets *some* attempt recorded instead of
	// silently skipping straight to equation search; it is not a substitute
	// for the staged ECM schedule and is off by default.
	EnableGNFSFallback bool

	EnableEquationSearch bool

	CheckIntervalSieve uint64 // default 10_000, K for primesieve inner loops
	CheckIntervalBigInt uint64 // default 1_000, K for big-int iteration inner loops
}

// DefaultAlgorithmPolicy enables every stage with conservative defaults.
func DefaultAlgorithmPolicy() AlgorithmPolicy {
	return AlgorithmPolicy{
		EnableTrialDivision: true,
		TrialDivisionLimit:  kernels.DefaultTrialDivisionLimit,
		EnablePollardRho:    true,
		PollardRhoMaxIters:  1_000_000,
		EnableShor:          true,
		EnableStagedECM:     true,
		EnableAdvancedECM:   true,
		EnableExternalGNFS:  true,
		EnableEquationSearch: true,
		CheckIntervalSieve:  10_000,
		CheckIntervalBigInt: 1_000,
	}
}

// Validate rejects a policy with contradictory or out-of-range values.
func (p AlgorithmPolicy) Validate() error {
	if p.CheckIntervalSieve == 0 {
		return fmt.Errorf("engine: policy: CheckIntervalSieve must be > 0")
	}
	if p.CheckIntervalBigInt == 0 {
		return fmt.Errorf("engine: policy: CheckIntervalBigInt must be > 0")
	}
	if p.PollardRhoMaxIters < 0 {
		return fmt.Errorf("engine: policy: PollardRhoMaxIters must be >= 0")
	}
	return nil
}

// ECMParamsConfig configures the staged ECM stage. A zero value means "use
// kernels.DefaultECMSchedule."
type ECMParamsConfig struct {
	Schedule        []kernels.ECMStage
	B2Multiplier    int64
	PerStageTimeout time.Duration
	MaxCurves       int
	Enhanced        bool
	CheckpointEvery int
}

// ToKernelParams converts the config record into the kernels.ECMParams the
// kernel function expects. Zero fields pass through unchanged; kernels.ECM
// substitutes its own defaults for an empty Schedule and a zero B2Multiplier.
func (c ECMParamsConfig) ToKernelParams(resume *kernels.ECMCheckpoint) kernels.ECMParams {
	return kernels.ECMParams{
		Schedule:        c.Schedule,
		B2Multiplier:    c.B2Multiplier,
		PerStageTimeout: c.PerStageTimeout,
		MaxCurves:       c.MaxCurves,
		Enhanced:        c.Enhanced,
		CheckpointEvery: c.CheckpointEvery,
		Resume:          resume,
	}
}

// Validate rejects structurally invalid ECM parameters.
func (c ECMParamsConfig) Validate() error {
	for _, s := range c.Schedule {
		if s.B1 <= 0 || s.Curves <= 0 {
			return fmt.Errorf("engine: ecm params: stage (B1=%d, curves=%d) must have positive B1 and curves", s.B1, s.Curves)
		}
	}
	if c.B2Multiplier < 0 {
		return fmt.Errorf("engine: ecm params: B2Multiplier must be >= 0")
	}
	if c.MaxCurves < 0 {
		return fmt.Errorf("engine: ecm params: MaxCurves must be >= 0")
	}
	return nil
}
