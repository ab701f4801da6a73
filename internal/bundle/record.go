package bundle

import "strings"

// Record is one parsed data row: header field -> typed value.
// Records are immutable once built.
type Record struct {
	fields []string
	values map[string]Value
}

// NewRecord pairs fields with values positionally. Missing trailing values are null.
func NewRecord(fields []string, values []Value) *Record {
	r := &Record{
		fields: append([]string(nil), fields...),
		values: make(map[string]Value, len(fields)),
	}
	for i, f := range r.fields {
		if i < len(values) {
			r.values[f] = values[i]
		}
	}
	return r
}

// Get returns the value for field; ok is false when the field is unknown.
// A known field may still hold a nil (null) value.
func (r *Record) Get(field string) (Value, bool) {
	if _, ok := r.values[field]; ok {
		return r.values[field], true
	}
	for _, f := range r.fields {
		if f == field {
			return nil, true
		}
	}
	return nil, false
}

func (r *Record) Fields() []string {
	return append([]string(nil), r.fields...)
}

func (r *Record) Len() int { return len(r.fields) }

func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(FormatOutput(r.values[f]))
	}
	b.WriteByte('}')
	return b.String()
}
