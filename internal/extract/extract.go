// Package extract runs extraction rules over an open document: it spawns page
// locations, crops regions, acquires tables, and pulls each configured field's
// raw text through the transformation pipeline. The output is a flat list of
// per-field results addressed by (page, row); transaction assembly over those
// rows lives in the assemble package.
package extract

import (
	"fmt"

	"github.com/boscorat/bankparse/internal/pdfio"
	"github.com/boscorat/bankparse/internal/pipeline"
	"github.com/boscorat/bankparse/internal/rules"
)

// FieldResult is one field's pipeline outcome at a document position.
type FieldResult struct {
	Section  string
	Config   string
	Location int
	Page     int
	Row      int
	pipeline.Result
}

// SpawnLocations expands a location list against a document's pages. Locations
// with an explicit page number pass through; each location with page number 0
// is duplicated onto every page not claimed by an explicit location. The last
// excludeLastN pages are never spawned onto (statements often end with
// boilerplate pages that only confuse table detection).
func SpawnLocations(locations []rules.Location, pageCount, excludeLastN int) []rules.Location {
	claimed := make(map[int]bool)
	var spawned []rules.Location
	for _, loc := range locations {
		if loc.PageNumber > 0 {
			claimed[loc.PageNumber] = true
			spawned = append(spawned, loc)
		}
	}
	lastPage := pageCount - excludeLastN
	for _, loc := range locations {
		if loc.PageNumber > 0 {
			continue
		}
		for page := 1; page <= lastPage; page++ {
			if claimed[page] {
				continue
			}
			dup := loc
			dup.PageNumber = page
			spawned = append(spawned, dup)
		}
	}
	return spawned
}

// Run executes one extraction rule over the document and returns every field
// result it produced. A Config is either a single field read from its
// locations, or a statement table whose fields are read cell- or column-wise.
func Run(doc pdfio.Document, cfg rules.Config, section string, excludeLastN int) []FieldResult {
	var results []FieldResult

	if cfg.StatementTable != nil {
		locations := SpawnLocations(cfg.StatementTable.Locations, doc.PageCount(), excludeLastN)
		for i, loc := range locations {
			results = append(results, tableFields(doc, loc, cfg.StatementTable, cfg.Name, section, i)...)
		}
		return results
	}

	if cfg.Field == nil {
		return nil
	}
	locations := cfg.Locations
	if len(locations) == 0 {
		// a bare field config defaults to page 1
		locations = []rules.Location{{PageNumber: 1}}
	}
	for i, loc := range SpawnLocations(locations, doc.PageCount(), excludeLastN) {
		results = append(results, singleField(doc, loc, *cfg.Field, cfg.Name, section, i))
	}
	return results
}

// singleField extracts one field's raw text from a cropped region and runs it
// through the pipeline. An empty region is retried once shifted down by the
// location's fallback offset.
func singleField(doc pdfio.Document, loc rules.Location, field rules.Field, config, section string, locationID int) FieldResult {
	fr := FieldResult{
		Section:  section,
		Config:   config,
		Location: locationID,
		Page:     loc.PageNumber,
	}

	region, err := getRegion(doc, loc)
	if err != nil {
		fr.Result = failed(field, err.Error())
		return fr
	}
	if region.Empty() && loc.TryShiftDown > 0 {
		if shifted, serr := getRegion(doc, shiftDown(loc)); serr == nil && !shifted.Empty() {
			region = shifted
		}
	}
	fr.Result = pipeline.Transform(region.Text(), field)
	return fr
}

// tableFields acquires the statement table's grid at one location and pulls
// each field from it. Fields with a fixed cell address produce one result;
// fields with a column index produce one result per grid row, with any
// configured offset column re-piped over the successful rows.
func tableFields(doc pdfio.Document, loc rules.Location, table *rules.StatementTable, config, section string, locationID int) []FieldResult {
	var results []FieldResult

	grid, err := acquireTable(doc, loc, table)
	if err != nil || grid == nil {
		msg := "table error"
		if err != nil {
			msg = err.Error()
		}
		for _, field := range table.Fields {
			results = append(results, FieldResult{
				Section: section, Config: config, Location: locationID, Page: loc.PageNumber,
				Result: failed(field, msg),
			})
		}
		return results
	}

	if table.TransactionSpec == nil {
		for _, field := range table.Fields {
			if field.Cell == nil {
				continue
			}
			fr := FieldResult{
				Section: section, Config: config, Location: locationID,
				Page: loc.PageNumber, Row: field.Cell.Row,
			}
			raw, ok := gridCell(grid, field.Cell.Row, field.Cell.Col)
			if !ok {
				fr.Result = failed(field, fmt.Sprintf("cell [%d,%d] not in table", field.Cell.Row, field.Cell.Col))
			} else {
				fr.Result = pipeline.Transform(raw, field)
			}
			results = append(results, fr)
		}
		return results
	}

	for _, field := range table.Fields {
		if field.Column == nil {
			continue
		}
		results = append(results, columnField(grid, loc, field, config, section, locationID)...)
	}
	return results
}

// columnField pulls one column-addressed field out of every grid row.
func columnField(grid pdfio.Grid, loc rules.Location, field rules.Field, config, section string, locationID int) []FieldResult {
	col := *field.Column
	offsetCol := -1
	if field.ValueOffset != nil && field.ValueOffset.ColsOffset != 0 {
		offsetCol = col + field.ValueOffset.ColsOffset
	}

	rows := make([]FieldResult, 0, len(grid))
	for i, cells := range grid {
		var raw, rawOffset string
		if col >= 0 && col < len(cells) {
			raw = cells[col]
		}
		if offsetCol >= 0 && offsetCol < len(cells) {
			rawOffset = cells[offsetCol]
		}
		fr := FieldResult{
			Section: section, Config: config, Location: locationID,
			Page: loc.PageNumber, Row: i,
			Result: pipeline.Transform(raw, field),
		}
		fr.RawOffset = rawOffset
		rows = append(rows, fr)
	}

	if field.ValueOffset == nil {
		return rows
	}
	return repipeOffsets(rows, field)
}

// repipeOffsets replaces each successful primary result with its offset value
// run through the pipeline under the offset's own spec. Rows whose primary
// extraction failed carry nothing usable and are dropped; when no row
// succeeded, the primary results stand so their failures stay visible.
func repipeOffsets(rows []FieldResult, field rules.Field) []FieldResult {
	offsetField := pipeline.OffsetField(field)
	out := make([]FieldResult, 0, len(rows))
	anySuccess := false
	for _, fr := range rows {
		if !fr.Success {
			continue
		}
		anySuccess = true
		re := fr
		re.Result = pipeline.Transform(fr.RawOffset, offsetField)
		out = append(out, re)
	}
	if !anySuccess {
		return rows
	}
	return out
}

func getRegion(doc pdfio.Document, loc rules.Location) (pdfio.Region, error) {
	if loc.PageNumber < 1 || loc.PageNumber > doc.PageCount() {
		return nil, fmt.Errorf("page %d not in document", loc.PageNumber)
	}
	page := doc.Page(loc.PageNumber)
	if len(loc.TopLeft) == 0 && len(loc.BottomRight) == 0 {
		return page, nil
	}
	w, h := page.Size()
	bbox := pdfio.BBox{X1: w, Y1: h}
	if len(loc.TopLeft) == 2 {
		bbox.X0, bbox.Y0 = loc.TopLeft[0], loc.TopLeft[1]
	}
	if len(loc.BottomRight) == 2 {
		bbox.X1, bbox.Y1 = loc.BottomRight[0], loc.BottomRight[1]
	}
	return page.Crop(bbox), nil
}

// shiftDown returns the location moved down by its fallback offset.
func shiftDown(loc rules.Location) rules.Location {
	out := loc
	if len(loc.TopLeft) == 2 {
		out.TopLeft = []float64{loc.TopLeft[0], loc.TopLeft[1] + loc.TryShiftDown}
	}
	if len(loc.BottomRight) == 2 {
		out.BottomRight = []float64{loc.BottomRight[0], loc.BottomRight[1] + loc.TryShiftDown}
	}
	return out
}

func gridCell(grid pdfio.Grid, row, col int) (string, bool) {
	if row < 0 || row >= len(grid) {
		return "", false
	}
	if col < 0 || col >= len(grid[row]) {
		return "", false
	}
	return grid[row][col], true
}

func failed(field rules.Field, msg string) pipeline.Result {
	return pipeline.Result{
		Field:    field.Field,
		Vital:    field.Vital,
		Success:  false,
		HardFail: field.Vital,
		Err:      msg,
	}
}
