package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDayAndLeaves(t *testing.T) {
	tree := NewTree()
	tree.AddDay("2025-01-02", 3)
	tree.AddDay("2025-01-03", 5)
	tree.AddDay("2025-02-01", 1)

	leaves := tree.Leaves()
	byDay := map[string]int{}
	for _, l := range leaves {
		byDay[l.Day] = l.Rows
	}
	assert.Equal(t, 3, byDay["2025-01-02"])
	assert.Equal(t, 5, byDay["2025-01-03"])
	assert.Equal(t, 1, byDay["2025-02-01"])
	assert.Len(t, leaves, 3)
}

func TestAddDaySharesYearMonthNodes(t *testing.T) {
	tree := NewTree()
	tree.AddDay("2025-01-02", 1)
	tree.AddDay("2025-01-03", 1)

	require := assert.New(t)
	require.Len(tree.Children, 1, "one year node")
	year := tree.Children[0]
	require.Len(year.Children, 1, "one month node shared by both days")
	month := year.Children[0]
	require.Len(month.Children, 2, "two distinct day leaves")
}
