package bundle

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leengari/tree-tutor/internal/tokenizer"
)

// arrayTokenizer splits the interior of [...] literals
var arrayTokenizer = tokenizer.MustNew(",", []string{"{}", "[]", `"`}, false)

// ParseValue turns one raw token into a typed Value.
//
//	""            -> empty string
//	null, (null)  -> nil
//	"text"        -> String (quotes stripped)
//	{k: v, ...}   -> *Map
//	[a, b, ...]   -> Array, each element parsed recursively
//	12, -3        -> Int
//	1.5, NaN      -> Float
//
// Anything else that does not look like a number is taken as a bare-word
// string. Number-looking text that fails to parse is an error.
func ParseValue(token string) (Value, error) {
	s := strings.TrimSpace(token)

	switch {
	case s == "":
		return String(""), nil
	case s == "null" || s == "(null)":
		return nil, nil
	case surrounded(s, '"', '"'):
		return String(s[1 : len(s)-1]), nil
	case surrounded(s, '{', '}'):
		return parseObject(s)
	case surrounded(s, '[', ']'):
		return parseArray(s[1 : len(s)-1])
	case looksNumeric(s):
		return parseNumber(s)
	}
	return String(s), nil
}

func surrounded(s string, open, close byte) bool {
	return len(s) >= 2 && s[0] == open && s[len(s)-1] == close
}

func looksNumeric(s string) bool {
	switch s {
	case "NaN", "Infinity", "-Infinity", "+Infinity":
		return true
	}
	c := s[0]
	if c == '+' || c == '-' || c == '.' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	return c >= '0' && c <= '9' || c == '.'
}

func parseNumber(s string) (Value, error) {
	if strings.Contains(s, ".") || strings.Contains(s, "NaN") || strings.Contains(s, "Infinity") {
		f, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
		if err != nil {
			return nil, newUnparsable(s, nil)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, newUnparsable(s, nil)
	}
	return Int(i), nil
}

func parseArray(inner string) (Value, error) {
	tokens := arrayTokenizer.Tokenize(inner)
	out := make(Array, 0, len(tokens))
	for _, tok := range tokens {
		v, err := ParseValue(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseObject reads a {key: value} literal. YAML flow syntax covers both
// JSON objects and the relaxed unquoted-key form.
func parseObject(s string) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, newUnparsable(s, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, newUnparsable(s, fmt.Errorf("not an object literal"))
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make(Array, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.ScalarNode:
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			return String(n.Value), nil
		}
		if n.Tag == "!!null" {
			return nil, nil
		}
		return ParseValue(n.Value)
	}
	return nil, newUnparsable(n.Value, fmt.Errorf("unsupported object content"))
}
