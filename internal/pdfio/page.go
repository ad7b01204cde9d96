package pdfio

import (
	"sort"
	"strings"
)

const (
	defaultRowSpacing = 3.0
	columnGap         = 12.0
)

type imagePos struct {
	id   int
	tags map[string]float64
}

// page holds a page's positioned words in top-down coordinates. Both the PDF
// reader and the in-memory document build pages in this form, so region
// cropping, text assembly, and grid construction share one implementation.
type page struct {
	words  []Word
	width  float64
	height float64
	images []imagePos
}

func (p *page) Size() (float64, float64) { return p.width, p.height }

func (p *page) Crop(bbox BBox) Region {
	var words []Word
	for _, w := range p.words {
		if w.X >= bbox.X0 && w.X <= bbox.X1 && w.Y >= bbox.Y0 && w.Y <= bbox.Y1 {
			words = append(words, w)
		}
	}
	return &region{page: p, words: words}
}

func (p *page) Text() string               { return (&region{page: p, words: p.words}).Text() }
func (p *page) Table(s TableSettings) Grid { return (&region{page: p, words: p.words}).Table(s) }
func (p *page) Empty() bool                { return len(p.words) == 0 }
func (p *page) ImageX(id int, tag string) (float64, bool) {
	return (&region{page: p, words: p.words}).ImageX(id, tag)
}

type region struct {
	page  *page
	words []Word
}

func (r *region) Empty() bool { return len(r.words) == 0 }

func (r *region) ImageX(imageID int, locationTag string) (float64, bool) {
	for _, img := range r.page.images {
		if img.id == imageID {
			x, ok := img.tags[locationTag]
			return x, ok
		}
	}
	return 0, false
}

// rows groups the region's words into lines by y proximity, each line sorted
// left to right.
func (r *region) rows(spacing float64) [][]Word {
	if spacing <= 0 {
		spacing = defaultRowSpacing
	}
	words := make([]Word, len(r.words))
	copy(words, r.words)
	sort.SliceStable(words, func(i, j int) bool { return words[i].Y < words[j].Y })

	var out [][]Word
	var current []Word
	var currentY float64
	for _, w := range words {
		if len(current) > 0 && w.Y-currentY > spacing {
			out = append(out, sortRow(current))
			current = nil
		}
		if len(current) == 0 {
			currentY = w.Y
		}
		current = append(current, w)
	}
	if len(current) > 0 {
		out = append(out, sortRow(current))
	}
	return out
}

func sortRow(row []Word) []Word {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	return row
}

func (r *region) Text() string {
	var lines []string
	for _, row := range r.rows(0) {
		parts := make([]string, 0, len(row))
		for _, w := range row {
			if s := strings.TrimSpace(w.S); s != "" {
				parts = append(parts, s)
			}
		}
		if line := strings.Join(parts, " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Table builds a grid from the region. With explicit vertical lines each
// adjacent pair of boundaries is one column and words are binned by x
// position. Without them, columns are split wherever a row has a horizontal
// gap wider than columnGap; this is the heuristic strategy and works best on
// evenly spaced layouts.
func (r *region) Table(settings TableSettings) Grid {
	rows := r.rows(settings.RowSpacing)
	if len(rows) == 0 {
		return nil
	}

	var grid Grid
	if len(settings.VerticalLines) >= 2 {
		bounds := uniqueSorted(settings.VerticalLines)
		cols := len(bounds) - 1
		for _, row := range rows {
			cells := make([]string, cols)
			for _, w := range row {
				idx := columnIndex(bounds, w.X)
				if idx < 0 {
					continue
				}
				if cells[idx] != "" {
					cells[idx] += " "
				}
				cells[idx] += strings.TrimSpace(w.S)
			}
			grid = append(grid, cells)
		}
	} else {
		maxCols := 0
		for _, row := range rows {
			cells := splitByGaps(row)
			if len(cells) > maxCols {
				maxCols = len(cells)
			}
			grid = append(grid, cells)
		}
		for i, cells := range grid {
			for len(cells) < maxCols {
				cells = append(cells, "")
			}
			grid[i] = cells
		}
	}

	if settings.MinColumns > 0 && (len(grid) == 0 || len(grid[0]) < settings.MinColumns) {
		return nil
	}
	return grid
}

func uniqueSorted(lines []float64) []float64 {
	sorted := make([]float64, len(lines))
	copy(sorted, lines)
	sort.Float64s(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func columnIndex(bounds []float64, x float64) int {
	for i := 0; i+1 < len(bounds); i++ {
		if x >= bounds[i] && x < bounds[i+1] {
			return i
		}
	}
	return -1
}

func splitByGaps(row []Word) []string {
	var cells []string
	var current strings.Builder
	var prevX float64
	for i, w := range row {
		if i > 0 && w.X-prevX > columnGap {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(strings.TrimSpace(w.S))
		prevX = w.X
	}
	if current.Len() > 0 {
		cells = append(cells, strings.TrimSpace(current.String()))
	}
	return cells
}
