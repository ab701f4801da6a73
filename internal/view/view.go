package view

import (
	"encoding/json"

	"github.com/leengari/tree-tutor/internal/storage"
)

// DataMarker is appended to the title of a node whose store node carries data
const DataMarker = "*"

// Node is one entry of the rendered tree. It owns its children.
type Node struct {
	Label    string
	HasData  bool
	Folder   bool
	Children []*Node
}

// Title is the label as shown to the client
func (n *Node) Title() string {
	if n.HasData {
		return n.Label + DataMarker
	}
	return n.Label
}

// Iterator is the part of a store iterator the merger needs
type Iterator interface {
	HasNext() bool
	Next() *storage.Node
}

// Materialize renders every node reachable from it
func Materialize(it Iterator) []*Node {
	nodes := make([]*Node, 0)
	for it.HasNext() {
		nodes = append(nodes, materialize(it.Next()))
	}
	return nodes
}

func materialize(sn *storage.Node) *Node {
	return &Node{
		Label:    sn.Name,
		HasData:  sn.HasData(),
		Folder:   sn.HasChildren(),
		Children: Materialize(sn.Iterator()),
	}
}

// Clone deep-copies a view so callers can hold it while the original keeps merging
func Clone(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Children = Clone(n.Children)
		out[i] = &c
	}
	return out
}

type jsonNode struct {
	Title    string     `json:"title"`
	Children []jsonNode `json:"children"`
	Folder   bool       `json:"folder"`
}

func toJSON(nodes []*Node) []jsonNode {
	out := make([]jsonNode, len(nodes))
	for i, n := range nodes {
		out[i] = jsonNode{
			Title:    n.Title(),
			Children: toJSON(n.Children),
			Folder:   n.Folder,
		}
	}
	return out
}

// Serialize renders the view as [{"title", "children", "folder"}, ...].
// A nil view is an empty array.
func Serialize(nodes []*Node) ([]byte, error) {
	return json.Marshal(toJSON(nodes))
}

// MarshalJSON lets a view node be embedded in larger responses
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON([]*Node{n})[0])
}
