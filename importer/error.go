package importer

import (
	"fmt"

	"github.com/radium-io/atelier-assets/errors"
)

// ImportError reports malformed source input. It carries a format-specific
// message and, when known, the byte offset in the source where decoding
// failed. The host records it per asset; it never aborts other imports.
type ImportError struct {
	Msg    string
	Offset int64 // byte offset into the source, -1 when unknown
	Err    error
}

// NewImportError creates an ImportError without a source offset.
func NewImportError(msg string, err error) *ImportError {
	return &ImportError{Msg: msg, Offset: -1, Err: err}
}

// NewImportErrorAt creates an ImportError pinned to a source byte offset.
func NewImportErrorAt(msg string, offset int64, err error) *ImportError {
	return &ImportError{Msg: msg, Offset: offset, Err: err}
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("import error at byte %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("import error: %s", e.Msg)
}

// Unwrap exposes the underlying cause. ImportErrors always match
// errors.ErrMalformedSource so hosts can classify them without type
// assertions.
func (e *ImportError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return errors.ErrMalformedSource
}

// Is makes every ImportError match errors.ErrMalformedSource.
func (e *ImportError) Is(target error) bool {
	return target == errors.ErrMalformedSource
}
