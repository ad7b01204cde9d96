package pdfio

// MemImage is an image position entry for an in-memory page.
type MemImage struct {
	ID   int
	Tags map[string]float64
}

// MemPage describes one in-memory page by its positioned words.
type MemPage struct {
	Width  float64
	Height float64
	Words  []Word
	Images []MemImage
}

// MemDocument is an in-memory Document used by tests and fixtures. It shares
// the region/grid logic with the PDF-backed reader, so tests exercise the same
// cropping and table construction paths.
type MemDocument struct {
	pages []*page
}

// NewMemDocument builds a document from in-memory pages.
func NewMemDocument(pages ...MemPage) *MemDocument {
	doc := &MemDocument{}
	for _, mp := range pages {
		w, h := mp.Width, mp.Height
		if w == 0 {
			w = 595
		}
		if h == 0 {
			h = 842
		}
		p := &page{width: w, height: h, words: mp.Words}
		for _, img := range mp.Images {
			p.images = append(p.images, imagePos{id: img.ID, tags: img.Tags})
		}
		doc.pages = append(doc.pages, p)
	}
	return doc
}

func (d *MemDocument) PageCount() int { return len(d.pages) }

func (d *MemDocument) Page(n int) Page {
	if n < 1 || n > len(d.pages) {
		return nil
	}
	return d.pages[n-1]
}

func (d *MemDocument) Close() error { return nil }
