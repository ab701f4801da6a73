package bundle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrHeaderMissing   = errors.New("header row is missing")
	ErrShortRow        = errors.New("row has fewer values than the header")
	ErrUnparsableValue = errors.New("cannot parse the input, quote strings to force string interpretation")
	ErrDuplicateField  = errors.New("duplicate header field")
)

// InputError describes malformed user input: a missing header, a short
// row or a value that cannot be parsed. The session stays usable after
// one of these; the caller fixes the text and tries again.
type InputError struct {
	Err    error  // one of the sentinels above
	Row    int    // 1-based line number in the input (0 if unknown)
	Column string // header field (empty if row-level)
	Value  string // offending raw text (may be empty)
	Reason string // extra human-readable detail (optional)
}

func (e *InputError) Error() string {
	var parts []string

	parts = append(parts, e.Err.Error())

	if e.Row > 0 {
		parts = append(parts, fmt.Sprintf("at row %d", e.Row))
	}

	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("in field %q", e.Column))
	}

	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}

	if e.Value != "" {
		parts = append(parts, fmt.Sprintf("was %q", e.Value))
	}

	return strings.Join(parts, " - ")
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is malformed input rather than an internal failure
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

func newShortRow(row, got, want int, raw string) *InputError {
	return &InputError{
		Err:    ErrShortRow,
		Row:    row,
		Value:  raw,
		Reason: fmt.Sprintf("had %d < %d values", got, want),
	}
}

func newUnparsable(value string, cause error) *InputError {
	e := &InputError{
		Err:   ErrUnparsableValue,
		Value: value,
	}
	if cause != nil {
		e.Reason = cause.Error()
	}
	return e
}
