package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"stockdash/internal/dataset"
	"stockdash/pkg/contracts/domain"
)

// minCorrelationSamples is the fewest complete pairs a correlation is computed from
const minCorrelationSamples = 2

// Pearson returns the Pearson correlation of x and y over the rows where both are present,
// along with the number of rows used. The result is NaN when fewer than two rows remain or
// when either side has zero variance.
func Pearson(x, y []float64) (float64, int) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	if len(xs) < minCorrelationSamples || constant(xs) || constant(ys) {
		return math.NaN(), len(xs)
	}

	r := stat.Correlation(xs, ys, nil)
	switch {
	case math.IsNaN(r):
		return r, len(xs)
	case r > 1:
		r = 1
	case r < -1:
		r = -1
	}
	return r, len(xs)
}

// Summarize computes one correlation record per usable role, in Open, Close, Volume order,
// from the first two matched columns of each.
func Summarize(ds *dataset.Dataset, matches domain.RoleMatch) []domain.CorrelationRecord {
	records := make([]domain.CorrelationRecord, 0, len(domain.ComparableRoles))
	for _, role := range domain.ComparableRoles {
		first, second, ok := matches.Pair(role)
		if !ok {
			continue
		}

		rec := domain.CorrelationRecord{
			Metric:      role,
			Columns:     []string{first, second},
			Correlation: domain.Number(math.NaN()),
		}
		a, aok := ds.Column(first)
		b, bok := ds.Column(second)
		if aok && bok {
			r, n := Pearson(a.Floats(), b.Floats())
			rec.Correlation = domain.Number(r)
			rec.Samples = n
			rec.Defined = !math.IsNaN(r)
		}
		records = append(records, rec)
	}
	return records
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
