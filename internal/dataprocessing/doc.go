// Package dataprocessing derives comparison charts and a correlation table from a tabular
// stock dataset.
//
// # Architecture
//
// A pass runs three steps over an immutable dataset snapshot:
//
//  1. Classify: buckets columns into Date, Open, Close and Volume by declared kind and
//     case-insensitive name matching
//  2. BuildFigures: one dual-axis comparison figure per usable role, then one 30-row
//     moving-average figure per usable role
//  3. Summarize: Pearson correlation of the first two matched columns of each usable role
//
// A role is usable when at least two columns match it. Only the first two matches are
// compared; further matches are ignored.
//
// # Usage
//
//	res := dataprocessing.Run(ds, dataprocessing.FigureOptions{VolumeLogScale: true})
//	if !res.Ready() {
//	    fmt.Println(res.Message)
//	    return
//	}
//	for _, fig := range res.Figures {
//	    fmt.Println(fig.Title)
//	}
//
// # Error Handling
//
// Run never returns a Go error. Failures are reported on the Result as one of
// ErrNoDataset, ErrMissingDateColumn or ErrInsufficientColumns together with a display
// message. An undefined correlation is a NaN value with Defined set to false, not an error.
package dataprocessing
