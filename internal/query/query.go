package query

import (
	"encoding/json"
	"strings"

	"github.com/leengari/tree-tutor/internal/storage"
)

// Table is a query result. Every cell is text.
type Table struct {
	Rows [][]string
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// MarshalJSON renders the table as an array of string arrays
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return json.Marshal(rows)
}

// UnmarshalJSON reads the array of string arrays written by MarshalJSON
func (t *Table) UnmarshalJSON(data []byte) error {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	t.Rows = rows
	return nil
}

// Run evaluates path against the store and pipes the rows through ops
func Run(r *storage.Reader, path, ops string) (*Table, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	pipeline, err := ParseOps(ops)
	if err != nil {
		return nil, err
	}

	rows := collect(r, segments)
	for _, op := range pipeline {
		rows = op.Apply(rows)
	}
	return &Table{Rows: rows}, nil
}

func collect(r *storage.Reader, segments []Segment) [][]string {
	rows := make([][]string, 0)
	root := r.Root()
	if root == nil {
		return rows
	}

	var visit func(n *storage.Node, depth int, row []string)
	visit = func(n *storage.Node, depth int, row []string) {
		if depth == len(segments) {
			rows = append(rows, append(make([]string, 0, len(row)), row...))
			return
		}
		seg := segments[depth]
		for _, c := range n.Children {
			if !seg.matches(c) {
				continue
			}
			next := row
			if seg.Emit {
				next = append(next, c.Name)
			}
			for _, p := range seg.Props {
				next = append(next, propValue(c, p))
			}
			visit(c, depth+1, next)
		}
	}
	visit(root, 0, nil)
	return rows
}

// CheckPath explains why path returns nothing. It tries each prefix of
// the node part of path and reports the first one with no children.
func CheckPath(r *storage.Reader, path string) string {
	nodes := path
	if i := strings.Index(path, ":"); i > 0 {
		nodes = path[:i]
	}

	var prefix string
	found := false
	index := -1
	for {
		if next := strings.Index(nodes[index+1:], "/"); next >= 0 {
			index += next + 1
		} else {
			index = -1
		}
		prefix = nodes
		if index > 0 {
			prefix = nodes[:index]
		}

		found = hasRows(r, prefix+"/+")
		if !found || index < 0 {
			break
		}
	}

	if !found {
		name := prefix[strings.LastIndex(prefix, "/")+1:]
		return "The path '" + prefix + "' isn't returning any matches. Double check to make sure '" +
			name + "' is a valid branch or if it actually doesn't have any matches."
	}
	return "The beginning of the path specified in your query appears to be correct, but the rest of your " +
		"query isn't returning any results. Double check to make sure the rest of your query is correct."
}

func hasRows(r *storage.Reader, path string) bool {
	t, err := Run(r, path, "")
	return err == nil && t.Len() > 0
}
