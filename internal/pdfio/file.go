package pdfio

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// File is a Document backed by a PDF on disk. All positioned text is read
// eagerly at open time; the file handle is only needed until Open returns.
type File struct {
	path  string
	pages []*page
	f     *os.File
}

// Open reads a PDF and materializes each page's positioned text. The library
// can panic on malformed files, so extraction is wrapped in a recover and
// surfaced as an error.
func Open(path string) (doc *File, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	file := &File{path: path, f: f}
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			file.pages = append(file.pages, &page{width: 595, height: 842})
			continue
		}
		file.pages = append(file.pages, buildPage(p))
	}
	return file, nil
}

func (d *File) PageCount() int { return len(d.pages) }

func (d *File) Page(n int) Page {
	if n < 1 || n > len(d.pages) {
		return nil
	}
	return d.pages[n-1]
}

func (d *File) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// buildPage converts a PDF page's text objects into top-down positioned words.
// PDF y coordinates grow bottom-up, so they are flipped against the page
// height; adjacent fragments on the same baseline are merged into words.
func buildPage(p pdf.Page) *page {
	width, height := mediaBox(p)
	content := p.Content()

	items := make([]pdf.Text, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		items = append(items, t)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if math.Abs(items[i].Y-items[j].Y) > 0.5 {
			return items[i].Y > items[j].Y // higher Y first = top of page first
		}
		return items[i].X < items[j].X
	})

	pg := &page{width: width, height: height}
	var cur *Word
	var curEnd, curY float64
	flush := func() {
		if cur != nil {
			pg.words = append(pg.words, *cur)
			cur = nil
		}
	}
	for _, t := range items {
		y := height - t.Y
		gap := t.X - curEnd
		sameRow := cur != nil && math.Abs(t.Y-curY) <= 0.5
		if sameRow && gap <= t.FontSize*0.4 {
			cur.S += t.S
			curEnd = t.X + t.W
			continue
		}
		flush()
		w := Word{X: t.X, Y: y, S: t.S}
		cur = &w
		curEnd = t.X + t.W
		curY = t.Y
	}
	flush()
	return pg
}

func mediaBox(p pdf.Page) (w, h float64) {
	w, h = 595, 842 // A4 fallback
	box := p.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return w, h
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	if x1 > x0 && y1 > y0 {
		w, h = x1-x0, y1-y0
	}
	return w, h
}
