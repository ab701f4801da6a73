package bundle

import (
	"errors"
	"strings"

	"github.com/leengari/tree-tutor/internal/tokenizer"
)

// Reader turns delimited text (header row + data rows) into Records.
// It is a forward-only cursor in the style of bufio.Scanner:
//
//	for r.Next() {
//		rec := r.Record()
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	lines  []string
	line   int // index of the next line to read
	fields []string
	tok    *tokenizer.Tokenizer

	current *Record
	err     error
}

// rowTokenizer is quote- and bracket-aware so array and object literals
// may contain commas without quoting the whole field
func rowTokenizer() *tokenizer.Tokenizer {
	return tokenizer.MustNew(",", []string{`"`, "[]", "{}"}, false)
}

// NewReader reads the header row from text. The first non-blank line is the header.
func NewReader(text string) (*Reader, error) {
	r := &Reader{
		lines: splitLines(text),
		tok:   rowTokenizer(),
	}

	for r.line < len(r.lines) {
		tokens := r.tok.Tokenize(r.lines[r.line])
		r.line++
		if tokens == nil {
			continue
		}
		fields, err := headerFields(tokens, r.line)
		if err != nil {
			return nil, err
		}
		r.fields = fields
		return r, nil
	}

	return nil, &InputError{Err: ErrHeaderMissing}
}

func headerFields(tokens []string, row int) ([]string, error) {
	seen := make(map[string]bool, len(tokens))
	fields := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		name := strings.TrimSpace(tok)
		if surrounded(name, '"', '"') {
			name = name[1 : len(name)-1]
		}
		if seen[name] {
			return nil, &InputError{Err: ErrDuplicateField, Row: row, Column: name}
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields, nil
}

// Fields returns the header field names in column order
func (r *Reader) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Next advances to the next data row. It returns false at the end of the
// text or on the first malformed row; check Err afterwards.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	r.current = nil

	for r.line < len(r.lines) {
		raw := r.lines[r.line]
		r.line++

		tokens := r.tok.Tokenize(raw)
		if tokens == nil {
			continue
		}

		rec, err := r.parseRow(tokens, raw)
		if err != nil {
			r.err = err
			return false
		}
		r.current = rec
		return true
	}
	return false
}

func (r *Reader) parseRow(tokens []string, raw string) (*Record, error) {
	row := r.line // 1-based because line was already advanced
	if len(tokens) < len(r.fields) {
		return nil, newShortRow(row, len(tokens), len(r.fields), raw)
	}

	values := make([]Value, len(r.fields))
	for i, field := range r.fields {
		v, err := ParseValue(tokens[i])
		if err != nil {
			var ie *InputError
			if errors.As(err, &ie) {
				ie.Row = row
				ie.Column = field
			}
			return nil, err
		}
		values[i] = v
	}
	return NewRecord(r.fields, values), nil
}

// Record returns the row read by the last successful Next
func (r *Reader) Record() *Record {
	return r.current
}

func (r *Reader) Err() error {
	return r.err
}

// ReadAll drains the reader
func ReadAll(text string) ([]*Record, error) {
	r, err := NewReader(text)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for r.Next() {
		out = append(out, r.Record())
	}
	return out, r.Err()
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
