package main

import (
	"fmt"
	"os"

	"github.com/emicklei/dot"

	"github.com/rcowham/cdcconsolidate/internal/calendar"
)

// writeGraph renders a Graphviz dot graph of the days whose files this
// run rewrote, grouped by year/month via the calendar tree, with one
// leaf node per day labeled with its resulting row count. Days whose
// file was removed or left untouched are not in the graph.
func writeGraph(path string, tree *calendar.Node) error {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	yearNodes := map[string]dot.Node{}
	monthNodes := map[string]dot.Node{}

	for _, leaf := range tree.Leaves() {
		// leaf.Day is "YYYY-MM-DD"; split back out for the tree levels.
		year, month := leaf.Day[:4], leaf.Day[:7]

		yn, ok := yearNodes[year]
		if !ok {
			yn = g.Node(year).Attr("shape", "box")
			yearNodes[year] = yn
		}
		mn, ok := monthNodes[month]
		if !ok {
			mn = g.Node(month)
			monthNodes[month] = mn
			g.Edge(yn, mn)
		}
		dayLabel := fmt.Sprintf("%s\\nrows=%d", leaf.Day, leaf.Rows)
		dn := g.Node(leaf.Day).Attr("label", dayLabel)
		g.Edge(mn, dn)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(g.String()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
