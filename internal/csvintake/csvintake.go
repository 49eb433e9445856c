// Package csvintake parses bulk job submissions from CSV: one decimal
// integer per row, or columns n,lower_bound,upper_bound — and implements
// Bernstein batch-GCD preprocessing to find shared factors across rows
// before they are submitted as individual jobs.
package csvintake

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
)

// Row is one parsed CSV intake row: a target N plus optional user-supplied
// search bounds.
type Row struct {
	N          *big.Int
	LowerBound *big.Int // nil if unset
	UpperBound *big.Int // nil if unset
}

// Parse reads r as CSV and returns one Row per data row. Both supported
// shapes are accepted: a single column of decimal integers, or three
// columns (n, lower_bound, upper_bound). A header row is tolerated and
// skipped if its first cell does not parse as an integer.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate both 1-column and 3-column shapes
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvintake: read: %w", err)
	}

	var rows []Row
	for i, rec := range records {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		n, ok := bigint.FromString(strings.TrimSpace(rec[0]))
		if !ok {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("csvintake: row %d: %q is not a valid integer", i+1, rec[0])
		}
		row := Row{N: n}
		if len(rec) >= 3 {
			if lo, ok := bigint.FromString(strings.TrimSpace(rec[1])); ok {
				row.LowerBound = lo
			}
			if hi, ok := bigint.FromString(strings.TrimSpace(rec[2])); ok {
				row.UpperBound = hi
			}
			if row.LowerBound != nil && row.UpperBound != nil && row.LowerBound.Cmp(row.UpperBound) > 0 {
				return nil, fmt.Errorf("csvintake: row %d: lower_bound must be <= upper_bound", i+1)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BatchGCD preprocesses a batch of composites to cheaply reveal shared
// factors across the batch, using Bernstein's product formulation: compute
// P = prod(n_i), then for each n_i, R_i = P mod n_i^2, and
// gcd(R_i/n_i, n_i) reveals a factor shared with some other n_j in the
// batch.
//
// This is the corrected formulation; an earlier variant computed
// gcd(n_i^2/remainder, n_i), which diverges from Bernstein's method and is
// not implemented here (see the module's design notes).
func BatchGCD(ns []*big.Int) []*big.Int {
	out := make([]*big.Int, len(ns))
	if len(ns) == 0 {
		return out
	}

	product := big.NewInt(1)
	for _, n := range ns {
		product.Mul(product, n)
	}

	for i, n := range ns {
		if n.Sign() == 0 {
			out[i] = big.NewInt(0)
			continue
		}
		nSquared := new(big.Int).Mul(n, n)
		remainder := new(big.Int).Mod(product, nSquared)
		quotient := new(big.Int).Div(remainder, n)
		out[i] = bigint.GCD(quotient, n)
	}
	return out
}
