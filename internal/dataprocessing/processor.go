package dataprocessing

import (
	"errors"

	"stockdash/internal/dataset"
	"stockdash/pkg/contracts/domain"
)

var (
	// ErrNoDataset means there is nothing to derive charts from
	ErrNoDataset = errors.New("no data uploaded")
	// ErrMissingDateColumn means no column can serve as the x axis
	ErrMissingDateColumn = errors.New("no date/datetime column found")
	// ErrInsufficientColumns means no role has two columns to compare
	ErrInsufficientColumns = errors.New("insufficient matching columns")
	// ErrColumnNotFound is returned by the builders when a named column is absent
	ErrColumnNotFound = errors.New("column not found")
)

// Result is the outcome of one derivation pass
type Result struct {
	State          domain.DashboardState
	Err            error
	Message        string
	Classification Classification
	Figures        []domain.Figure
	Correlations   []domain.CorrelationRecord
	// Derived is the private working copy including the moving-average columns
	Derived *dataset.Dataset
}

// Ready reports whether the pass produced figures
func (r Result) Ready() bool {
	return r.State == domain.StateReady
}

// Run derives figures and the correlation table from a dataset snapshot.
//
// The pass moves NoData → Classified → Error|Ready. Empty or nil datasets fail with
// ErrNoDataset, a dataset without a date column with ErrMissingDateColumn, and one where no
// role has two matching columns with ErrInsufficientColumns. Run is a pure function of its
// inputs and safe to call concurrently.
func Run(ds *dataset.Dataset, opts FigureOptions) Result {
	res := Result{State: domain.StateNoData}
	if ds.Empty() {
		return fail(res, ErrNoDataset)
	}

	res.Classification = Classify(ds)
	res.State = domain.StateClassified

	if !res.Classification.HasDate {
		return fail(res, ErrMissingDateColumn)
	}
	if len(res.Classification.UsableRoles()) == 0 {
		return fail(res, ErrInsufficientColumns)
	}

	figures, derived, err := BuildFigures(ds, res.Classification, opts)
	if err != nil {
		return fail(res, err)
	}

	res.Figures = figures
	res.Correlations = Summarize(ds, res.Classification.Matches)
	res.Derived = derived
	res.State = domain.StateReady
	return res
}

func fail(res Result, err error) Result {
	res.State = domain.StateError
	res.Err = err
	res.Message = err.Error()
	return res
}
