package external

import "testing"

func TestFactorTokenPatternMatchesFactorLine(t *testing.T) {
	m := factorTokenPattern.FindStringSubmatch("Factor: 12345678901234567")
	if m == nil || m[1] != "12345678901234567" {
		t.Fatalf("expected to parse factor token, got %v", m)
	}
}

func TestFactorTokenPatternMatchesFactorsPairLine(t *testing.T) {
	m := factorTokenPattern.FindStringSubmatch("Factors: 101 103")
	if m == nil || m[1] != "101" || m[2] != "103" {
		t.Fatalf("expected to parse both factors, got %v", m)
	}
}

func TestFactorTokenPatternMatchesPrpLine(t *testing.T) {
	m := factorTokenPattern.FindStringSubmatch("prp42: 123456789012345678901234567890123456789012")
	if m == nil {
		t.Fatal("expected prpNN: line to match")
	}
}

func TestNotConfiguredWithoutBinaryPath(t *testing.T) {
	d := &SubprocessDriver{}
	if d.Configured() {
		t.Fatal("expected driver with empty BinaryPath to report unconfigured")
	}
}
