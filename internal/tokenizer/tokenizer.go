package tokenizer

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultEscape is the escape character used when none is configured
const DefaultEscape = '\\'

var (
	ErrSeparatorMissing = errors.New("separator not set")
	ErrInvalidGroup     = errors.New("invalid group")
)

// Tokenizer splits one line of delimited text into field tokens without
// losing anything but separators and escape characters. Group delimiters
// (quotes, brackets, braces) stay in the token so later stages can tell
// a quoted string from a bare word.
type Tokenizer struct {
	separator string
	groups    []string
	pack      bool
	escape    rune

	// derived by Configure
	open  []rune
	close []rune
}

// Option customises a Tokenizer at construction time
type Option func(*Tokenizer)

// WithEscape replaces the default backslash escape
func WithEscape(ch rune) Option {
	return func(t *Tokenizer) {
		t.escape = ch
	}
}

// New creates a ready-to-use tokenizer.
// Each group is either one character (open == close, e.g. `"`) or two
// characters (open, close, e.g. `[]`).
func New(separator string, groups []string, pack bool, opts ...Option) (*Tokenizer, error) {
	t := &Tokenizer{escape: DefaultEscape}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.Configure(separator, groups, pack); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNew is New for package-level tokenizers with constant settings
func MustNew(separator string, groups []string, pack bool, opts ...Option) *Tokenizer {
	t, err := New(separator, groups, pack, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the comma tokenizer with double-quote grouping and no packing
func Default() *Tokenizer {
	return MustNew(",", []string{`"`}, false)
}

// Configure changes separator, grouping and packing and re-derives the
// open/close alphabets. It must be called again after any grouping change.
func (t *Tokenizer) Configure(separator string, groups []string, pack bool) error {
	if separator == "" {
		return ErrSeparatorMissing
	}

	open := make([]rune, 0, len(groups))
	closing := make([]rune, 0, len(groups))
	for _, g := range groups {
		r := []rune(g)
		switch len(r) {
		case 1:
			open = append(open, r[0])
			closing = append(closing, r[0])
		case 2:
			open = append(open, r[0])
			closing = append(closing, r[1])
		default:
			return fmt.Errorf("%w: %q", ErrInvalidGroup, g)
		}
	}

	t.separator = separator
	t.groups = append([]string(nil), groups...)
	t.pack = pack
	t.open = open
	t.close = closing
	return nil
}

func (t *Tokenizer) Separator() string { return t.separator }

func (t *Tokenizer) Groups() []string { return append([]string(nil), t.groups...) }

func (t *Tokenizer) Packed() bool { return t.pack }

// Tokenize splits line into tokens. A blank line yields nil (no row),
// never a single empty token.
func (t *Tokenizer) Tokenize(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	s := scanner{tok: t, input: []rune(line), group: -1}
	return s.run()
}

// scanner holds the per-call state so one Tokenizer can be shared
type scanner struct {
	tok      *Tokenizer
	input    []rune
	position int
	group    int // index of the active group pair, -1 when outside
	escaped  bool
	sep      bool // previous character was a separator
	buf      strings.Builder
	out      []string
}

func (s *scanner) run() []string {
	for {
		eol := s.position == len(s.input)
		if (s.sep && s.group < 0) || eol {
			s.flush(eol)
		}
		if eol {
			break
		}

		ch := s.input[s.position]
		s.position++

		if s.escaped {
			s.buf.WriteRune(ch)
			s.escaped = false
			continue
		}
		if ch == s.tok.escape {
			s.escaped = true
			s.sep = false
			continue
		}

		if s.group >= 0 {
			if ch == s.tok.close[s.group] {
				s.group = -1
			}
			s.buf.WriteRune(ch)
			continue
		}
		if idx := indexRune(s.tok.open, ch); idx >= 0 {
			s.sep = false
			s.group = idx
			s.buf.WriteRune(ch)
			continue
		}

		s.sep = strings.ContainsRune(s.tok.separator, ch)
		if s.sep {
			continue
		}
		s.buf.WriteRune(ch)
	}
	return s.out
}

func (s *scanner) flush(eol bool) {
	if s.buf.Len() == 0 && s.tok.pack {
		return
	}
	s.out = append(s.out, s.buf.String())
	s.buf.Reset()
	// a trailing separator leaves one more (empty) field behind it
	if s.sep && eol && !s.tok.pack {
		s.out = append(s.out, "")
	}
}

func indexRune(set []rune, ch rune) int {
	for i, r := range set {
		if r == ch {
			return i
		}
	}
	return -1
}
