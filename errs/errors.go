// Package errs defines the error values shared by the structarray packages.
//
// Callers should match errors with errors.Is against the sentinel values below, or
// errors.As against *LayoutError and *FieldError when they need the row index or the
// field name that triggered the failure.
package errs

import (
	"errors"
	"fmt"
)

// Layout errors.
var (
	ErrLayout             = errors.New("invalid layout")
	ErrMalformedRow       = errors.New("malformed layout row")
	ErrMixedRowShapes     = errors.New("mixed relative and absolute layout rows")
	ErrUndefinedReference = errors.New("compacted name references an undefined previous name")
	ErrUnknownTypeCode    = errors.New("unknown type code")
	ErrFieldOutOfRecord   = errors.New("field does not fit inside the record stride")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrInvalidStride      = errors.New("invalid record stride")
)

// Lookup and decoding errors.
var (
	ErrFieldNotFound       = errors.New("field not found")
	ErrUnknownField        = errors.New("unknown field")
	ErrRecordCountMismatch = errors.New("record count mismatch")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrTruncatedSource     = errors.New("truncated record source")
	ErrIO                  = errors.New("i/o failure")
	ErrPointerField        = errors.New("pointer fields carry no data")
	ErrFastPathUnavailable = errors.New("field cannot be decoded by grid reinterpretation")
)

// Archive errors.
var (
	ErrInvalidHeaderSize = errors.New("invalid archive header size")
	ErrInvalidMagic      = errors.New("invalid archive magic number")
	ErrCorruptArchive    = errors.New("corrupt archive")
	ErrArchiveSealed     = errors.New("archive already sealed")
	ErrArchiveNotBuilt   = errors.New("archive has not been built")
	ErrInvalidCodec      = errors.New("invalid compression codec")
)

// LayoutError reports a layout parsing failure at a given data row.
//
// Row is 1-based and counts data rows after the header row; 0 means the header.
type LayoutError struct {
	Row   int
	Cells []string
	Err   error
}

func (e *LayoutError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("layout header %q: %v", e.Cells, e.Err)
	}

	return fmt.Sprintf("layout row %d %q: %v", e.Row, e.Cells, e.Err)
}

func (e *LayoutError) Unwrap() []error {
	return []error{ErrLayout, e.Err}
}

// NewLayoutError creates a LayoutError for the given row.
func NewLayoutError(row int, cells []string, err error) *LayoutError {
	return &LayoutError{Row: row, Cells: cells, Err: err}
}

// FieldError attaches a field name to an error raised while handling that field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Field wraps err with the field name. It returns nil when err is nil.
func Field(name string, err error) error {
	if err == nil {
		return nil
	}

	return &FieldError{Field: name, Err: err}
}

// IO wraps an underlying read, seek or write failure so that it matches ErrIO.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
