package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Op transforms a result table
type Op interface {
	Apply(rows [][]string) [][]string
}

// SortOp orders rows by one column, numerically or as strings
type SortOp struct {
	Column     int
	Numeric    bool
	Descending bool
}

func (o SortOp) Apply(rows [][]string) [][]string {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := cell(rows[i], o.Column), cell(rows[j], o.Column)
		var less, greater bool
		if o.Numeric {
			x, _ := strconv.ParseFloat(a, 64)
			y, _ := strconv.ParseFloat(b, 64)
			less, greater = x < y, x > y
		} else {
			less, greater = a < b, a > b
		}
		if o.Descending {
			return greater
		}
		return less
	})
	return rows
}

// TitleOp prepends a header row
type TitleOp struct {
	Titles []string
}

func (o TitleOp) Apply(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, append([]string(nil), o.Titles...))
	return append(out, rows...)
}

// LimitOp keeps the first N rows
type LimitOp struct {
	N int
}

func (o LimitOp) Apply(rows [][]string) [][]string {
	if len(rows) > o.N {
		return rows[:o.N]
	}
	return rows
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ParseOps reads a ";"-separated op list:
//
//	sort=COL[:n|s[:a|d]]
//	title=a,b,...
//	limit=N
func ParseOps(text string) ([]Op, error) {
	var ops []Op
	for _, raw := range strings.Split(text, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, arg, _ := strings.Cut(raw, "=")

		switch strings.TrimSpace(name) {
		case "sort":
			op, err := parseSort(arg)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		case "title":
			titles := strings.Split(arg, ",")
			for i := range titles {
				titles[i] = strings.TrimSpace(titles[i])
			}
			ops = append(ops, TitleOp{Titles: titles})
		case "limit":
			n, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: limit needs a non-negative number, was %q", ErrBadOp, arg)
			}
			ops = append(ops, LimitOp{N: n})
		default:
			return nil, fmt.Errorf("%w: unknown op %q", ErrBadOp, name)
		}
	}
	return ops, nil
}

func parseSort(arg string) (SortOp, error) {
	parts := strings.Split(arg, ":")
	col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || col < 0 {
		return SortOp{}, fmt.Errorf("%w: sort needs a column number, was %q", ErrBadOp, arg)
	}
	op := SortOp{Column: col}

	if len(parts) > 1 {
		switch parts[1] {
		case "n":
			op.Numeric = true
		case "s", "":
		default:
			return SortOp{}, fmt.Errorf("%w: sort type must be n or s, was %q", ErrBadOp, parts[1])
		}
	}
	if len(parts) > 2 {
		switch parts[2] {
		case "d":
			op.Descending = true
		case "a", "":
		default:
			return SortOp{}, fmt.Errorf("%w: sort direction must be a or d, was %q", ErrBadOp, parts[2])
		}
	}
	return op, nil
}
