package storage

import (
	"encoding/json"
	"sort"
)

// Node is one entry of the stored tree
type Node struct {
	Name     string                 `json:"name"`
	Hits     int64                  `json:"hits"`
	Data     map[string]*Attachment `json:"data,omitempty"`
	Children []*Node                `json:"children,omitempty"`

	index map[string]*Node // builder lookup, nil on read
}

func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

func (n *Node) HasData() bool {
	return len(n.Data) > 0
}

// AttachedData returns the node's data as JSON, or nil when it has none
func (n *Node) AttachedData() json.RawMessage {
	if !n.HasData() {
		return nil
	}
	b, err := json.Marshal(n.Data)
	if err != nil {
		return nil
	}
	return b
}

// Child returns the direct child called name
func (n *Node) Child(name string) *Node {
	if n.index != nil {
		return n.index[name]
	}
	i := sort.Search(len(n.Children), func(i int) bool {
		return n.Children[i].Name >= name
	})
	if i < len(n.Children) && n.Children[i].Name == name {
		return n.Children[i]
	}
	return nil
}

// Iterator walks the node's children in store order
func (n *Node) Iterator() *Iterator {
	return NewIterator(n.Children)
}

func (n *Node) child(name string) *Node {
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	c, ok := n.index[name]
	if !ok {
		c = &Node{Name: name}
		n.index[name] = c
		n.Children = append(n.Children, c)
	}
	return c
}

// seal sorts children by name and drops the builder index
func (n *Node) seal() int64 {
	sort.Slice(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
	n.index = nil
	count := int64(1)
	for _, c := range n.Children {
		count += c.seal()
	}
	return count
}

// Iterator is a forward-only cursor over sibling nodes
type Iterator struct {
	nodes []*Node
	pos   int
}

func NewIterator(nodes []*Node) *Iterator {
	return &Iterator{nodes: nodes}
}

func (it *Iterator) HasNext() bool {
	return it.pos < len(it.nodes)
}

// Next returns the next node, or nil once exhausted
func (it *Iterator) Next() *Node {
	if !it.HasNext() {
		return nil
	}
	n := it.nodes[it.pos]
	it.pos++
	return n
}
