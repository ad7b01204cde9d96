package pdfio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropAndText(t *testing.T) {
	doc := NewMemDocument(MemPage{Words: []Word{
		{X: 50, Y: 40, S: "Account"},
		{X: 120, Y: 40, S: "12345678"},
		{X: 50, Y: 60, S: "Opening Balance"},
		{X: 300, Y: 60, S: "100.00"},
		{X: 50, Y: 700, S: "Footer"},
	}})
	page := doc.Page(1)

	assert.Equal(t, "Account 12345678\nOpening Balance 100.00\nFooter", page.Text())

	region := page.Crop(BBox{X0: 0, Y0: 0, X1: 595, Y1: 100})
	assert.Equal(t, "Account 12345678\nOpening Balance 100.00", region.Text())
	assert.False(t, region.Empty())

	empty := page.Crop(BBox{X0: 400, Y0: 400, X1: 500, Y1: 500})
	assert.True(t, empty.Empty())
	assert.Equal(t, "", empty.Text())
}

func TestTextOrdersRowsAndWords(t *testing.T) {
	// words authored out of order; rows group by y proximity
	doc := NewMemDocument(MemPage{Words: []Word{
		{X: 200, Y: 41, S: "second"},
		{X: 50, Y: 80, S: "next"},
		{X: 50, Y: 40, S: "first"},
	}})
	assert.Equal(t, "first second\nnext", doc.Page(1).Text())
}

func TestTableExplicitLines(t *testing.T) {
	doc := NewMemDocument(MemPage{Words: []Word{
		{X: 55, Y: 100, S: "14 Mar"},
		{X: 155, Y: 100, S: "CARD PAYMENT"},
		{X: 355, Y: 100, S: "12.50"},
		{X: 55, Y: 120, S: "15 Mar"},
		{X: 355, Y: 120, S: "8.00"},
	}})
	grid := doc.Page(1).Table(TableSettings{VerticalLines: []float64{50, 150, 350, 450}})

	require.Len(t, grid, 2)
	assert.Equal(t, []string{"14 Mar", "CARD PAYMENT", "12.50"}, grid[0])
	assert.Equal(t, []string{"15 Mar", "", "8.00"}, grid[1])
}

func TestTableExplicitLinesIgnoresOutOfBoundsWords(t *testing.T) {
	doc := NewMemDocument(MemPage{Words: []Word{
		{X: 20, Y: 100, S: "margin"},
		{X: 60, Y: 100, S: "in"},
	}})
	grid := doc.Page(1).Table(TableSettings{VerticalLines: []float64{50, 150}})

	require.Len(t, grid, 1)
	assert.Equal(t, []string{"in"}, grid[0])
}

func TestTableGapHeuristic(t *testing.T) {
	// columns split where the horizontal gap exceeds the threshold; short rows
	// are padded to the widest
	doc := NewMemDocument(MemPage{Words: []Word{
		{X: 50, Y: 100, S: "Opening Balance"},
		{X: 300, Y: 100, S: "100.00"},
		{X: 420, Y: 100, S: "2,000.00"},
		{X: 50, Y: 120, S: "Closing Balance"},
	}})
	grid := doc.Page(1).Table(TableSettings{})

	require.Len(t, grid, 2)
	assert.Equal(t, []string{"Opening Balance", "100.00", "2,000.00"}, grid[0])
	assert.Equal(t, []string{"Closing Balance", "", ""}, grid[1])
}

func TestTableMinColumnsRejects(t *testing.T) {
	doc := NewMemDocument(MemPage{Words: []Word{
		{X: 50, Y: 100, S: "only"},
		{X: 70, Y: 100, S: "one column"},
	}})
	grid := doc.Page(1).Table(TableSettings{MinColumns: 3})
	assert.Nil(t, grid)
}

func TestTableEmptyRegion(t *testing.T) {
	doc := NewMemDocument(MemPage{})
	assert.Nil(t, doc.Page(1).Table(TableSettings{}))
}

func TestImageX(t *testing.T) {
	doc := NewMemDocument(MemPage{
		Images: []MemImage{{ID: 2, Tags: map[string]float64{"x1": 410.5}}},
	})
	page := doc.Page(1)

	x, ok := page.ImageX(2, "x1")
	require.True(t, ok)
	assert.Equal(t, 410.5, x)

	_, ok = page.ImageX(2, "x0")
	assert.False(t, ok)
	_, ok = page.ImageX(9, "x1")
	assert.False(t, ok)
}

func TestPageBounds(t *testing.T) {
	doc := NewMemDocument(MemPage{Width: 600, Height: 800})

	assert.Equal(t, 1, doc.PageCount())
	assert.Nil(t, doc.Page(0))
	assert.Nil(t, doc.Page(2))

	w, h := doc.Page(1).Size()
	assert.Equal(t, 600.0, w)
	assert.Equal(t, 800.0, h)
}
