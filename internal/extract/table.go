package extract

import (
	"math"
	"strings"

	"github.com/boscorat/bankparse/internal/pdfio"
	"github.com/boscorat/bankparse/internal/rules"
)

// dynamicLineTolerance bounds how far the image-driven last column boundary
// may sit from the configured one before the hint is ignored.
const dynamicLineTolerance = 10.0

// acquireTable builds the statement table's grid at one location, trying the
// configured strategies in order: image-aligned last column boundary, the
// explicit boundaries as configured, a vertical shift of the region when it
// came back empty, and finally gap-heuristic column detection when the
// location allows text failover.
func acquireTable(doc pdfio.Document, loc rules.Location, table *rules.StatementTable) (pdfio.Grid, error) {
	region, err := getRegion(doc, loc)
	if err != nil {
		return nil, err
	}

	settings := pdfio.TableSettings{
		MinColumns:    table.TableColumns,
		MinRows:       table.TableRows,
		RowSpacing:    table.RowSpacing,
		VerticalLines: loc.VerticalLines,
	}

	var grid pdfio.Grid
	if len(loc.VerticalLines) > 0 && loc.DynamicLastVerticalLine != nil {
		if dyn, ok := dynamicLines(region, loc); ok {
			settings.VerticalLines = dyn
			grid = region.Table(settings)
			if grid == nil {
				settings.VerticalLines = loc.VerticalLines
			}
		}
	}
	if grid == nil {
		grid = region.Table(settings)
	}
	if grid == nil && loc.TryShiftDown > 0 && len(loc.TopLeft) == 2 && len(loc.BottomRight) == 2 {
		if shifted, serr := getRegion(doc, shiftDown(loc)); serr == nil {
			region = shifted
			grid = region.Table(settings)
		}
	}
	if grid == nil && loc.AllowTextFailover && len(settings.VerticalLines) > 0 {
		settings.VerticalLines = nil
		grid = region.Table(settings)
	}
	if grid == nil {
		return nil, nil
	}

	if table.RemoveHeader && len(grid) > 0 {
		if table.HeaderText == "" || matchesHeader(grid[0], table.HeaderText) {
			grid = grid[1:]
		}
	}
	return grid, nil
}

// dynamicLines returns the location's vertical lines with the last boundary
// snapped to the configured image's x-position, when the image is present and
// close enough to the configured line.
func dynamicLines(region pdfio.Region, loc rules.Location) ([]float64, bool) {
	spec := loc.DynamicLastVerticalLine
	x, ok := region.ImageX(spec.ImageID, spec.ImageLocationTag)
	if !ok {
		return nil, false
	}
	last := loc.VerticalLines[len(loc.VerticalLines)-1]
	if math.Abs(last-x) > dynamicLineTolerance {
		return nil, false
	}
	out := make([]float64, len(loc.VerticalLines))
	copy(out, loc.VerticalLines)
	out[len(out)-1] = x
	return out, true
}

// matchesHeader compares a grid row to the configured header text, ignoring
// case and spacing.
func matchesHeader(row []string, headerText string) bool {
	squash := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, " ", ""))
	}
	return squash(strings.Join(row, "")) == squash(headerText)
}
