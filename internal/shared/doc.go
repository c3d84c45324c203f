// Package shared holds helpers that are used across packages but belong to no
// single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting on log
// output and synthetic price-history fixtures that mirror the CSV exports users
// upload to the dashboard:
//
//	logger, logs := testutil.NewTestLogger(t)
//	data := testutil.SPX().CSV()
//
// Nothing in this package is imported by production code.
package shared
