package bundle

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type behind a Value
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	}
	return "unknown"
}

// Value is a typed field value. A nil Value means null.
type Value interface {
	Kind() Kind
	// String is the plain text form used when a value names a tree node
	String() string
}

type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

type Int int64

func (Int) Kind() Kind       { return KindInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

type Float float64

func (Float) Kind() Kind { return KindFloat }

// String always keeps a decimal point so the text parses back as a float
func (f Float) String() string {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

type Array []Value

func (Array) Kind() Kind       { return KindArray }
func (a Array) String() string { return FormatOutput(a) }

// Map is an insertion-ordered string-keyed map
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

func (*Map) Kind() Kind       { return KindMap }
func (m *Map) String() string { return FormatOutput(m) }

func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Map) Len() int { return len(m.keys) }

// FormatOutput renders v in the same syntax ParseValue accepts:
// strings are quoted, arrays become [a , b], null becomes (null).
func FormatOutput(v Value) string {
	switch val := v.(type) {
	case nil:
		return "(null)"
	case String:
		return `"` + string(val) + `"`
	case Array:
		var b strings.Builder
		b.WriteByte('[')
		for i, el := range val {
			if i > 0 {
				b.WriteString(" , ")
			}
			b.WriteString(FormatOutput(el))
		}
		b.WriteByte(']')
		return b.String()
	case *Map:
		if val == nil {
			return "(null)"
		}
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range val.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(k))
			b.WriteString(": ")
			b.WriteString(FormatOutput(val.values[k]))
		}
		b.WriteByte('}')
		return b.String()
	default:
		return v.String()
	}
}

// Native converts v into plain Go values (string, int64, float64,
// []any, map[string]any, nil) for JSON encoding.
func Native(v Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Array:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = Native(el)
		}
		return out
	case *Map:
		out := make(map[string]any, val.Len())
		for _, k := range val.keys {
			out[k] = Native(val.values[k])
		}
		return out
	}
	return v.String()
}
