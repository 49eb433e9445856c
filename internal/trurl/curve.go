package trurl

import (
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
)

// Point is one sample of the y_of_x curve.
type Point struct {
	X, Y *big.Int
}

// Curve samples y_of_x at `points` log-spaced x values in [xMin, xMax],
// corresponding to the out-of-scope GET /equations/curve HTTP endpoint's
// payload. points is clamped to [10, 2000].
func Curve(n, xMin, xMax *big.Int, points int) []Point {
	if points < 10 {
		points = 10
	}
	if points > 2000 {
		points = 2000
	}
	logMin := bigint.Log10(xMin)
	logMax := bigint.Log10(xMax)
	out := make([]Point, 0, points)
	for i := 0; i < points; i++ {
		frac := float64(i) / float64(points-1)
		logX := logMin + frac*(logMax-logMin)
		x := seedFromLog10(logX)
		if x.Cmp(xMin) < 0 {
			x = new(big.Int).Set(xMin)
		}
		if x.Cmp(xMax) > 0 {
			x = new(big.Int).Set(xMax)
		}
		out = append(out, Point{X: x, Y: YOfX(n, x)})
	}
	return out
}

// Analysis bundles the diagnostics the out-of-scope GET /equations/analyze/{n}
// endpoint reports: derived bounds, the critical x, and the y=1 root.
type Analysis struct {
	Bounds     Bounds
	CriticalX  *big.Int
	XAtYEqual1 *big.Int
	Converged  bool
}

// Analyze computes the full equation-solver diagnostic bundle for N.
func Analyze(n *big.Int) Analysis {
	bounds := InitialBounds(n)
	x1, ok := XAtYEqualsOne(n)
	return Analysis{
		Bounds:     bounds,
		CriticalX:  CriticalX(n),
		XAtYEqual1: x1,
		Converged:  ok,
	}
}
