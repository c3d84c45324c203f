package services

import "errors"

// Dashboard service errors
var (
	// ErrNoInput is returned when a pass is requested without any file
	ErrNoInput = errors.New("no input files")
	// ErrUnsupportedExport is returned for export formats other than csv and xlsx
	ErrUnsupportedExport = errors.New("unsupported export format")
	// ErrTooManyRows is returned when a dataset exceeds the configured row limit
	ErrTooManyRows = errors.New("dataset exceeds row limit")
	// ErrNothingToExport is returned when the uploads merge into an empty dataset
	ErrNothingToExport = errors.New("nothing to export")
)
