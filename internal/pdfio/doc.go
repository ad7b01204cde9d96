// Package pdfio provides the page-geometry primitives the extraction engine
// consumes: cropped regions, plain text, and row/column grids. The engine only
// depends on the Document/Region interfaces; the concrete reader is built on
// positioned text from github.com/ledongthuc/pdf.
package pdfio

// BBox is a bounding box in top-down page coordinates: (X0,Y0) is the top-left
// corner, (X1,Y1) the bottom-right.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Word is one positioned text fragment on a page, in top-down coordinates.
type Word struct {
	X, Y float64
	S    string
}

// Grid is a row/column table of raw cell strings.
type Grid [][]string

// TableSettings tunes grid construction from a region.
type TableSettings struct {
	// MinColumns is the expected column count; a grid with fewer columns is
	// rejected so the caller can fail over.
	MinColumns int
	// MinRows is the expected minimum row count hint.
	MinRows int
	// RowSpacing is the y tolerance for grouping words into one row.
	RowSpacing float64
	// VerticalLines, when set, are explicit column boundaries in page
	// coordinates; otherwise columns are detected from horizontal gaps.
	VerticalLines []float64
}

// Region is a rectangular slice of one page.
type Region interface {
	// Text returns the region's text, rows top to bottom, words left to
	// right, rows separated by newlines.
	Text() string
	// Table builds a row/column grid from the region, or nil when no
	// acceptable grid can be formed.
	Table(settings TableSettings) Grid
	// Empty reports whether the region contains no text.
	Empty() bool
	// ImageX returns the x position of the identified image attribute, for
	// layouts where the last column boundary tracks an image. Implementations
	// without image geometry report false.
	ImageX(imageID int, locationTag string) (float64, bool)
}

// Page is a full document page. A page is itself a Region.
type Page interface {
	Region
	// Crop returns the sub-region inside bbox.
	Crop(bbox BBox) Region
	// Size returns the page width and height.
	Size() (w, h float64)
}

// Document is an open statement document.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int
	// Page returns the 1-based page, or nil when out of range.
	Page(n int) Page
	// Close releases the underlying file.
	Close() error
}
