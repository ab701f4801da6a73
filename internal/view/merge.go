package view

// Merge brings prev up to date with a store that grew by one record.
//
// Store nodes are matched to existing view nodes by label, one level at a
// time. At most one new node is inserted per call: it goes right after the
// last matched sibling, so the view keeps store order, and it arrives with
// its whole store subtree. Existing nodes are never removed and never lose
// their data marker; their folder flag follows the store.
//
// The second result reports whether a node was inserted. A record that
// branched into several paths needs repeated calls until it is false.
func Merge(prev []*Node, it Iterator) ([]*Node, bool) {
	m := &merger{}
	nodes := m.merge(prev, it)
	return nodes, m.inserted
}

// merger carries the inserted flag across the whole recursive call
type merger struct {
	inserted bool
}

func (m *merger) merge(nodes []*Node, it Iterator) []*Node {
	if nodes == nil {
		nodes = make([]*Node, 0)
	}

	pos := 0
	for it.HasNext() {
		sn := it.Next()

		if i := indexOf(nodes, sn.Name); i >= 0 {
			n := nodes[i]
			n.Folder = sn.HasChildren()
			n.HasData = n.HasData || sn.HasData()
			n.Children = m.merge(n.Children, sn.Iterator())
			pos = i + 1
			continue
		}

		if m.inserted {
			continue
		}
		nodes = insertAt(nodes, pos, materialize(sn))
		pos++
		m.inserted = true
	}
	return nodes
}

func indexOf(nodes []*Node, label string) int {
	for i, n := range nodes {
		if n.Label == label {
			return i
		}
	}
	return -1
}

func insertAt(nodes []*Node, i int, n *Node) []*Node {
	nodes = append(nodes, nil)
	copy(nodes[i+1:], nodes[i:])
	nodes[i] = n
	return nodes
}
