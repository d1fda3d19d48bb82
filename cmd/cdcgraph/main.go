// cdcgraph renders the per-day summary a cdcconsolidate run wrote (via
// the report package) into a Graphviz image: one node per day, grouped
// by year and month.
package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/emicklei/dot"
	"github.com/goccy/go-graphviz"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/cdcconsolidate/internal/calendar"
)

var updatedLine = regexp.MustCompile(`^updated (\S+) rows=(\d+)$`)

func main() {
	var (
		reportFile = kingpin.Arg(
			"report",
			"Report file written by cdcconsolidate (its stdout).",
		).Required().String()
		outFile = kingpin.Flag(
			"out",
			"Output image path.",
		).Default("cdcgraph.png").Short('o').String()
		format = kingpin.Flag(
			"format",
			"Output format (png, svg).",
		).Default("png").String()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate)
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()

	tree, err := parseReport(*reportFile)
	if err != nil {
		logger.Errorf("failed to parse report: %v", err)
		os.Exit(1)
	}

	if err := render(tree, *outFile, *format); err != nil {
		logger.Errorf("failed to render graph: %v", err)
		os.Exit(1)
	}
	logger.Infof("wrote %s", *outFile)
}

func parseReport(path string) (*calendar.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	tree := calendar.NewTree()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := updatedLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		day := dayFromPath(m[1])
		rows, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if day != "" {
			tree.AddDay(day, rows)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return tree, nil
}

// dayFromPath extracts "YYYY-MM-DD" from a day file path such as
// "/data/cdc/2025-01-02.parquet".
func dayFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	if len(base) < 10 {
		return ""
	}
	return base[:10]
}

func render(tree *calendar.Node, outFile, format string) error {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	yearNodes := map[string]dot.Node{}
	monthNodes := map[string]dot.Node{}
	for _, leaf := range tree.Leaves() {
		if len(leaf.Day) < 7 {
			continue
		}
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
		dn := g.Node(leaf.Day).Attr("label", fmt.Sprintf("%s\\nrows=%d", leaf.Day, leaf.Rows))
		g.Edge(mn, dn)
	}

	gv := graphviz.New()
	parsed, err := graphviz.ParseBytes([]byte(g.String()))
	if err != nil {
		return fmt.Errorf("parsing dot graph: %w", err)
	}
	defer gv.Close()

	var gfmt graphviz.Format
	switch format {
	case "svg":
		gfmt = graphviz.SVG
	default:
		gfmt = graphviz.PNG
	}
	return gv.RenderFilename(parsed, gfmt, outFile)
}
