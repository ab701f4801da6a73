package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name      string
		separator string
		groups    []string
		pack      bool
		line      string
		expected  []string
	}{
		{"plain", ",", nil, false, "a,b,c", []string{"a", "b", "c"}},
		{"quoted separator", ",", []string{`"`}, false, `a,"b,c",d`, []string{"a", `"b,c"`, "d"}},
		{"empty fields kept", ",", nil, false, ",a,,b,", []string{"", "a", "", "b", ""}},
		{"empty fields packed", ",", nil, true, ",a,,b,", []string{"a", "b"}},
		{"brackets group", ",", []string{"[]", "{}"}, false, "x,[1,2],{a: 1, b: 2}", []string{"x", "[1,2]", "{a: 1, b: 2}"}},
		{"escaped separator", ",", nil, false, `a\,b,c`, []string{"a,b", "c"}},
		{"escaped group open", ",", []string{`"`}, false, `\"a,b`, []string{`"a`, "b"}},
		{"multiple separators", ",;", nil, false, "a;b,c", []string{"a", "b", "c"}},
		{"spaces preserved", ",", nil, false, "Data, Mac, Matt", []string{"Data", " Mac", " Matt"}},
		{"blank line", ",", nil, false, "   ", nil},
		{"empty line", ",", nil, false, "", nil},
	}

	for i, tt := range tests {
		tok, err := New(tt.separator, tt.groups, tt.pack)
		if err != nil {
			t.Fatalf("tests[%d] %s - unexpected error: %v", i, tt.name, err)
		}

		got := tok.Tokenize(tt.line)
		assert.DeepEqual(t, tt.expected, got)
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	tok := MustNew(",", nil, false)

	lines := []string{
		"team,computer,name",
		"a,,b",
		",leading",
		"trailing,",
		"one",
		",,",
	}

	for i, line := range lines {
		got := strings.Join(tok.Tokenize(line), ",")
		if got != line {
			t.Fatalf("tests[%d] - round trip mismatch. expected=%q, got=%q", i, line, got)
		}
	}
}

func TestCustomEscape(t *testing.T) {
	tok := MustNew(",", nil, false, WithEscape('^'))

	assert.DeepEqual(t, []string{"a,b", `c\`}, tok.Tokenize(`a^,b,c\`))
}

func TestConfigureRederivesGroups(t *testing.T) {
	tok := Default()
	assert.DeepEqual(t, []string{"[1", "2]"}, tok.Tokenize("[1,2]"))

	err := tok.Configure(",", []string{"[]"}, false)
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"[1,2]"}, tok.Tokenize("[1,2]"))
	assert.DeepEqual(t, []string{"[]"}, tok.Groups())
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := New("", nil, false)
	assert.Assert(t, errors.Is(err, ErrSeparatorMissing))

	_, err = New(",", []string{"abc"}, false)
	assert.Assert(t, errors.Is(err, ErrInvalidGroup))
}
