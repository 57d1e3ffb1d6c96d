// Package stats provides the rank-correlation test used to gate regulatory
// edges.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Spearman returns the Spearman rank correlation of x and y and its two-sided
// p-value from Student's t distribution with n-2 degrees of freedom. Ties get
// average ranks. Both results are NaN when the lengths differ, n < 3, any
// value is NaN, or either vector is constant.
func Spearman(x, y []float64) (rho, p float64) {
	n := len(x)
	if n != len(y) || n < 3 || floats.HasNaN(x) || floats.HasNaN(y) {
		return math.NaN(), math.NaN()
	}

	rho = stat.Correlation(rank(x), rank(y), nil)
	if math.IsNaN(rho) {
		return math.NaN(), math.NaN()
	}
	rho = math.Max(-1, math.Min(1, rho))

	return rho, pValue(rho, n)
}

// pValue is the two-sided p-value for a correlation of rho over n samples.
func pValue(rho float64, n int) float64 {
	denom := (1 - rho) * (1 + rho)
	if denom <= 0 {
		return 0
	}
	df := float64(n - 2)
	t := rho * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

// rank returns 1-based ranks of x, averaging tied values.
func rank(x []float64) []float64 {
	n := len(x)
	sorted := make([]float64, n)
	copy(sorted, x)
	inds := make([]int, n)
	floats.Argsort(sorted, inds)

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && sorted[j] == sorted[i] {
			j++
		}
		r := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[inds[k]] = r
		}
		i = j
	}
	return ranks
}

// Gate is a two-sided significance filter on a correlation.
type Gate struct {
	Corr   float64 // |rho| must exceed this
	PValue float64 // p must be below this
}

// Pass reports whether |rho| > Corr and p < PValue. NaN never passes.
func (g Gate) Pass(rho, p float64) bool {
	return math.Abs(rho) > g.Corr && p < g.PValue
}

// Validate checks that the cutoffs are in range: Corr in (0, 1] and
// PValue in (0, 1).
func (g Gate) Validate() error {
	if !(g.Corr > 0 && g.Corr <= 1) {
		return fmt.Errorf("correlation cutoff %v out of range (0, 1]", g.Corr)
	}
	if !(g.PValue > 0 && g.PValue < 1) {
		return fmt.Errorf("p-value cutoff %v out of range (0, 1)", g.PValue)
	}
	return nil
}
