package elf_decoder

// This file contains the error types produced while decoding ELF files. Only
// FormatError, ArgumentError and UnsupportedOperationError ever reach callers;
// out-of-range reads are reported internally as boundsError values and are
// converted at the parse boundaries.

import (
	"fmt"

	"github.com/pkg/errors"
)

// Returned (via errors.Is) by ByteReader methods for value kinds that never
// occur in ELF structures.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Reports input that isn't a well-formed ELF file. Any FormatError aborts the
// entire parse.
type FormatError struct {
	Message string
	cause   error
}

func (e *FormatError) Error() string {
	return e.Message
}

// Returns the low-level error this FormatError was converted from, if any.
func (e *FormatError) Cause() error {
	return e.cause
}

func (e *FormatError) Unwrap() error {
	return e.cause
}

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// Returned when a ByteReader can't be built over the given source.
type ArgumentError struct {
	Argument string
	Err      error
}

func (e *ArgumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid argument %s", e.Argument)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Returned by ByteReader operations that ELF decoding never needs.
type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported by the ELF byte reader", e.Operation)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// A seek or read outside of the underlying byte source.
type boundsError struct {
	Offset uint64
	Length uint64
	Extent uint64
}

func (e *boundsError) Error() string {
	if e.Length == 0 {
		return fmt.Sprintf("offset 0x%x is outside of the 0x%x-byte input",
			e.Offset, e.Extent)
	}
	return fmt.Sprintf("read of %d bytes at offset 0x%x is outside of the "+
		"0x%x-byte input", e.Length, e.Offset, e.Extent)
}

// Converts any error escaping a decode pass into the error callers observe.
// Bounds failures (possibly wrapped with context) become a FormatError
// carrying the full message; argument errors and format errors pass through.
func asFormatError(e error) error {
	if e == nil {
		return nil
	}
	switch e.(type) {
	case *FormatError, *ArgumentError:
		return e
	}
	var argumentError *ArgumentError
	if errors.As(e, &argumentError) {
		return argumentError
	}
	return &FormatError{Message: e.Error(), cause: e}
}
