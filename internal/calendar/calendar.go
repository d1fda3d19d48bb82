// Package calendar groups day-partition names ("YYYY-MM-DD") into a
// year/month/day tree for cdcgraph's rendered output. Insertion walks
// each day's dash-separated segments, finding or creating a child at
// each level, so repeated days share their year and month nodes.
package calendar

import "strings"

// Node is one level of the year/month/day tree. Leaves carry a row
// count; interior nodes (years, months) do not.
type Node struct {
	Name     string
	IsLeaf   bool
	Rows     int
	Children []*Node
}

func NewTree() *Node {
	return &Node{Name: "root"}
}

// AddDay inserts day ("YYYY-MM-DD") into the tree under its year and
// month, recording rows at the leaf.
func (n *Node) AddDay(day string, rows int) {
	parts := strings.Split(day, "-") // [year, month, day]
	n.addPath(parts, rows)
}

func (n *Node) addPath(parts []string, rows int) {
	if len(parts) == 0 {
		return
	}
	name := parts[0]
	var child *Node
	for _, c := range n.Children {
		if c.Name == name {
			child = c
			break
		}
	}
	if child == nil {
		child = &Node{Name: name}
		n.Children = append(n.Children, child)
	}
	if len(parts) == 1 {
		child.IsLeaf = true
		child.Rows = rows
		return
	}
	child.addPath(parts[1:], rows)
}

// Leaf describes one day-partition leaf with its full "YYYY-MM-DD" key
// reconstructed from the path walked to reach it.
type Leaf struct {
	Day  string
	Rows int
}

// Leaves walks the tree and returns every day leaf, in tree order.
func (n *Node) Leaves() []Leaf {
	var out []Leaf
	n.collect(nil, &out)
	return out
}

func (n *Node) collect(prefix []string, out *[]Leaf) {
	for _, c := range n.Children {
		path := append(append([]string{}, prefix...), c.Name)
		if c.IsLeaf {
			*out = append(*out, Leaf{Day: strings.Join(path, "-"), Rows: c.Rows})
			continue
		}
		c.collect(path, out)
	}
}
