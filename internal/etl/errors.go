package etl

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a problem with how the pipeline was configured:
	// mismatched marker lists, a missing column, a bad keyword category.
	ErrConfig = errors.New("configuration error")

	// ErrDataQuality marks a cell that cannot be coerced to the type its
	// column requires.
	ErrDataQuality = errors.New("data quality error")
)

// MissingColumnError is returned when a stage references a column the
// table does not have.
type MissingColumnError struct {
	Stage  string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("%s: column %q not found", e.Stage, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrConfig }

// CoercionError is returned when a cell value cannot be converted.
// Row is 1-based and does not count the header.
type CoercionError struct {
	Column string
	Row    int
	Value  string
	Target string
	Err    error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("column %q row %d: cannot convert %q to %s", e.Column, e.Row, e.Value, e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDataQuality}
	}
	return []error{ErrDataQuality, e.Err}
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
