package view

import "strings"

// Walk visits every node depth-first, parents before children
func Walk(nodes []*Node, visitor func(n *Node, depth int) error) error {
	return walk(nodes, 0, visitor)
}

func walk(nodes []*Node, depth int, visitor func(*Node, int) error) error {
	for _, n := range nodes {
		if err := visitor(n, depth); err != nil {
			return err
		}
		if err := walk(n.Children, depth+1, visitor); err != nil {
			return err
		}
	}
	return nil
}

// Format prints the view one title per line, tab-indented by depth
func Format(nodes []*Node) string {
	var b strings.Builder
	Walk(nodes, func(n *Node, depth int) error {
		b.WriteString(strings.Repeat("\t", depth))
		b.WriteString(n.Title())
		b.WriteByte('\n')
		return nil
	})
	return b.String()
}

// CountNodes counts the total number of nodes in the view
func CountNodes(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		count += 1 + CountNodes(n.Children)
	}
	return count
}

// Paths lists the "/"-joined label path of every node
func Paths(nodes []*Node) []string {
	var out []string
	var prefix []string
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			prefix = append(prefix, n.Label)
			out = append(out, strings.Join(prefix, "/"))
			visit(n.Children)
			prefix = prefix[:len(prefix)-1]
		}
	}
	visit(nodes)
	return out
}
