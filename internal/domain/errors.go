package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDownloadFirst is wrapped by MissingInputError so callers can match the
// condition without caring which file was absent.
var ErrDownloadFirst = errors.New("file not found, download it first")

// MissingInputError reports a raw source file that is not on disk.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, ErrDownloadFirst)
}

func (e *MissingInputError) Unwrap() error { return ErrDownloadFirst }

// MalformedSourceError reports a source whose overall shape is wrong, such as
// a workbook with too few sheets or without its join key.
type MalformedSourceError struct {
	Source string
	Reason string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	msg := fmt.Sprintf("malformed source %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// SchemaError reports required columns that are absent, or tables whose
// columns do not line up.
type SchemaError struct {
	Op      string
	Columns []string
	Reason  string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Reason != "" {
		b.WriteString(e.Reason)
	} else {
		b.WriteString("missing columns")
	}
	if len(e.Columns) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Columns, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// CoercionError reports an identity field that could not be converted to an
// integer. Row is the zero-based row index in the table being coerced.
type CoercionError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("coerce %q row %d value %q to integer: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// WriteError wraps a failure while writing an output artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
