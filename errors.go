package verdoc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by DB operations whose path or key doesn't
	// exist. Document lookups report absence with a false ok instead.
	ErrNotFound = errors.New("not found")
	// ErrAllocation is wrapped by decode errors for lengths that exceed
	// the configured limit.
	ErrAllocation = errors.New("allocation refused")
	// ErrLock is returned when a Document is used after it was freed.
	ErrLock = errors.New("document lock unavailable")
	// ErrIO wraps failures to open, read, write or close a stream.
	ErrIO = errors.New("i/o error")
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("bad format")
	// ErrInvalidPath is returned for empty paths or empty path segments.
	ErrInvalidPath = errors.New("invalid path")
	// ErrClosed is returned by every DB method after Close.
	ErrClosed = errors.New("db closed")

	errNilRoot     = errors.New("nil root")
	errNilDocument = errors.New("nil subdocument")
)

// FormatError describes a serialized stream that can't be decoded: bad
// magic, an unsupported format version, an unknown type tag, or a
// truncated or corrupt record.
type FormatError struct {
	Off int64
	Msg string
	Err error
}

func formatErrf(off int64, err error, format string, args ...interface{}) error {
	return &FormatError{off, fmt.Sprintf(format, args...), err}
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at offset %d: %v", e.Msg, e.Off, e.Err)
	}
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Off)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func ioErrf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, fmt.Sprintf(format, args...), err)
}
