package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leengari/tree-tutor/internal/storage"
)

var (
	ErrBadPath = errors.New("invalid query path")
	ErrBadOp   = errors.New("invalid query op")
)

// Property names a segment may emit after the node name
const (
	PropHits  = "hits"
	PropNodes = "nodes"
)

// Segment is one "/"-separated step of a query path:
//
//	[+]match[:prop,...]
//
// match is a literal name, "*" for any node, or empty after "+" for any node.
// A leading "+" emits the node name; each "+prop" emits a property.
type Segment struct {
	Match string // empty matches any node
	Emit  bool
	Props []string
}

func (s Segment) matches(n *storage.Node) bool {
	return s.Match == "" || s.Match == n.Name
}

// ParsePath splits a query path into segments
func ParsePath(path string) ([]Segment, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrBadPath)
	}

	parts := strings.Split(path, "/")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseSegment(text string) (Segment, error) {
	var seg Segment

	match, props, hasProps := strings.Cut(text, ":")
	if strings.HasPrefix(match, "+") {
		seg.Emit = true
		match = match[1:]
	}
	switch {
	case match == "*":
		match = ""
	case match == "" && !seg.Emit:
		return Segment{}, fmt.Errorf("%w: empty segment", ErrBadPath)
	}
	seg.Match = match

	if hasProps {
		for _, p := range strings.Split(props, ",") {
			p = strings.TrimSpace(p)
			name := strings.TrimPrefix(p, "+")
			switch {
			case p == "":
				continue
			case name != PropHits && name != PropNodes:
				return Segment{}, fmt.Errorf("%w: unknown property %q", ErrBadPath, p)
			case !strings.HasPrefix(p, "+"):
				// a property without "+" is matched but not emitted
				continue
			}
			seg.Props = append(seg.Props, name)
		}
	}
	return seg, nil
}

func propValue(n *storage.Node, prop string) string {
	switch prop {
	case PropHits:
		return strconv.FormatInt(n.Hits, 10)
	case PropNodes:
		return strconv.Itoa(len(n.Children))
	}
	return ""
}
