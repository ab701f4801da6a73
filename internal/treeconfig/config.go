package treeconfig

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every configuration error
var ErrInvalid = errors.New("invalid tree configuration")

// Element types
const (
	TypeConst = "const"
	TypeValue = "value"
)

// Attachment types
const (
	DataCount  = "count"
	DataKeyTop = "key.top"
	DataSum    = "sum"
)

// DefaultTopSize bounds a key.top attachment when no size is given
const DefaultTopSize = 100

// Attachment describes data kept on every node created by an element
type Attachment struct {
	Name string
	Type string
	Key  string
	Size int
}

// Element is one level of a path. Const elements always produce the node
// Value; value elements name their nodes after the record field Key.
type Element struct {
	Type  string
	Value string
	Key   string
	Data  []Attachment
}

// Config is a parsed tree configuration
type Config struct {
	Root  string
	Paths map[string][]Element
}

// Path returns the elements of the root path
func (c *Config) Path() []Element {
	return c.Paths[c.Root]
}

// Error locates a configuration problem
type Error struct {
	Path   string
	Index  int // element index, -1 for path-level problems
	Reason string
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, ErrInvalid.Error())
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path %q", e.Path))
	}
	if e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("element %d", e.Index))
	}
	parts = append(parts, e.Reason)
	return strings.Join(parts, " - ")
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

func invalid(path string, index int, format string, args ...any) error {
	return &Error{Path: path, Index: index, Reason: fmt.Sprintf(format, args...)}
}

// Parse reads a tree configuration. The text is YAML with two HOCON
// conveniences: dotted keys expand into nested maps, and `key = value`
// entries are accepted inside flow maps.
func Parse(text string) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(spaceColons(text)), &doc); err != nil {
		return nil, invalid("", -1, "%v", err)
	}
	if len(doc.Content) == 0 {
		return nil, invalid("", -1, "configuration is empty")
	}

	raw, err := toPlain(doc.Content[0])
	if err != nil {
		return nil, err
	}
	top, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("", -1, "configuration must be a map")
	}

	cfg := &Config{Paths: make(map[string][]Element)}

	paths, ok := top["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return nil, invalid("", -1, "no paths defined")
	}
	for name, v := range paths {
		elements, err := parsePath(name, v)
		if err != nil {
			return nil, err
		}
		cfg.Paths[name] = elements
	}

	root, err := rootName(top["root"], cfg.Paths)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	return cfg, nil
}

// MustParse is Parse for configurations known to be valid
func MustParse(text string) *Config {
	cfg, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return cfg
}

func rootName(v any, paths map[string][]Element) (string, error) {
	var name string
	switch r := v.(type) {
	case nil:
	case string:
		name = r
	case map[string]any:
		name, _ = r["path"].(string)
	default:
		return "", invalid("", -1, "root must be a path name or {path: NAME}")
	}

	if name != "" {
		if _, ok := paths[name]; !ok {
			return "", invalid(name, -1, "root path is not defined")
		}
		return name, nil
	}
	if _, ok := paths["root"]; ok {
		return "root", nil
	}
	if len(paths) == 1 {
		for n := range paths {
			return n, nil
		}
	}

	names := make([]string, 0, len(paths))
	for n := range paths {
		names = append(names, n)
	}
	sort.Strings(names)
	return "", invalid("", -1, "several paths (%s) and no root", strings.Join(names, ", "))
}

func parsePath(name string, v any) ([]Element, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, invalid(name, -1, "path must be a list of elements")
	}
	if len(list) == 0 {
		return nil, invalid(name, -1, "path has no elements")
	}

	out := make([]Element, 0, len(list))
	for i, item := range list {
		el, err := parseElement(name, i, item)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func parseElement(path string, index int, v any) (Element, error) {
	switch e := v.(type) {
	case string:
		return Element{Type: TypeConst, Value: e}, nil
	case map[string]any:
		el := Element{}
		switch {
		case e["const"] != nil:
			el.Type = TypeConst
			el.Value = fmt.Sprint(e["const"])
		case e["field"] != nil:
			el.Type = TypeValue
			el.Key = fmt.Sprint(e["field"])
		default:
			t, _ := e["type"].(string)
			el.Type = t
			if s, ok := e["value"].(string); ok {
				el.Value = s
			}
			if s, ok := e["key"].(string); ok {
				el.Key = s
			}
		}

		switch el.Type {
		case TypeConst:
			if el.Value == "" {
				return Element{}, invalid(path, index, "const element needs a value")
			}
		case TypeValue:
			if el.Key == "" {
				return Element{}, invalid(path, index, "value element needs a key")
			}
		case "":
			return Element{}, invalid(path, index, "element has no type")
		default:
			return Element{}, invalid(path, index, "unknown element type %q", el.Type)
		}

		data, err := parseData(path, index, e["data"])
		if err != nil {
			return Element{}, err
		}
		el.Data = data
		return el, nil
	}
	return Element{}, invalid(path, index, "element must be a map or a name")
}

func parseData(path string, index int, v any) ([]Attachment, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalid(path, index, "data must be a map")
	}

	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]Attachment, 0, len(m))
	for _, n := range names {
		spec, ok := m[n].(map[string]any)
		if !ok {
			return nil, invalid(path, index, "data %q must be a map", n)
		}
		a := Attachment{Name: n}
		a.Type, _ = spec["type"].(string)
		a.Key, _ = spec["key"].(string)

		switch a.Type {
		case DataCount:
		case DataKeyTop, DataSum:
			if a.Key == "" {
				return nil, invalid(path, index, "data %q needs a key", n)
			}
		default:
			return nil, invalid(path, index, "data %q has unknown type %q", n, a.Type)
		}

		if a.Type == DataKeyTop {
			a.Size = DefaultTopSize
			if s, ok := spec["size"].(string); ok {
				size, err := strconv.Atoi(s)
				if err != nil || size <= 0 {
					return nil, invalid(path, index, "data %q size must be a positive integer", n)
				}
				a.Size = size
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// toPlain converts a YAML node into maps, slices and strings, applying
// the HOCON conveniences on the way
func toPlain(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return toPlain(n.Content[0])
	case yaml.AliasNode:
		return toPlain(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := toPlain(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			key := k.Value

			var v any
			if vn.Tag == "!!null" && strings.Contains(key, "=") && k.Style == 0 {
				// {const = root}
				parts := strings.SplitN(key, "=", 2)
				key = strings.TrimSpace(parts[0])
				v = unquote(strings.TrimSpace(parts[1]))
			} else {
				var err error
				v, err = toPlain(vn)
				if err != nil {
					return nil, err
				}
			}

			segments := []string{key}
			if k.Style == 0 && strings.Contains(key, ".") && !isNumber(key) {
				segments = strings.Split(key, ".")
			}
			if err := setPath(out, segments, v); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, invalid("", -1, "unsupported yaml content at line %d", n.Line)
}

func setPath(m map[string]any, segments []string, v any) error {
	for i, s := range segments[:len(segments)-1] {
		next, ok := m[s].(map[string]any)
		if !ok {
			if m[s] != nil {
				return invalid("", -1, "key %q is both a value and a map", strings.Join(segments[:i+1], "."))
			}
			next = make(map[string]any)
			m[s] = next
		}
		m = next
	}

	last := segments[len(segments)-1]
	if existing, ok := m[last].(map[string]any); ok {
		if add, ok := v.(map[string]any); ok {
			for k, val := range add {
				existing[k] = val
			}
			return nil
		}
	}
	m[last] = v
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// spaceColons inserts the space YAML wants after a key's colon so that
// compact JSON-ish text like {type:"const"} still parses. Quoted text and
// "://" are left alone.
func spaceColons(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 16)

	var quote rune
	escaped := false
	runes := []rune(text)
	for i, ch := range runes {
		b.WriteRune(ch)

		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\' && quote == '"':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}

		switch ch {
		case '"', '\'':
			quote = ch
		case ':':
			if i+1 < len(runes) {
				next := runes[i+1]
				if next != ' ' && next != '\t' && next != '\n' && next != '\r' && next != '/' && next != ':' {
					b.WriteByte(' ')
				}
			}
		}
	}
	return b.String()
}
