package render

import (
	"fmt"
	"image"
)

// Colorspace selects the pixel format of a rendered pixmap.
type Colorspace int

const (
	// ColorspaceRGB renders full colour pages for on-screen viewing.
	ColorspaceRGB Colorspace = iota
	// ColorspaceGray renders grayscale pages; lower memory, good enough
	// for the margin-detection pipeline.
	ColorspaceGray
)

// Engine opens PDF documents for rendering.
type Engine interface {
	// Open opens the document at path and returns a handle to it.
	Open(path string) (Document, error)

	// Name reports which backend this engine uses (fitz, pdfium).
	Name() string

	// Close cleans up any resources used by the engine
	Close() error
}

// Document is an open PDF document.
type Document interface {
	// NumPages returns the page count, fixed for the document lifetime.
	NumPages() int

	// Page returns the page at the given 0-based index.
	Page(index int) (Page, error)

	// Close releases the document handle. The document and anything
	// derived from it must not be used afterwards.
	Close() error
}

// Page is a single page of an open document.
type Page interface {
	// DisplayList materializes an intermediate rendering of the page
	// that can be rasterized repeatedly at different scales and clips
	// without going back to the PDF content stream.
	DisplayList() (DisplayList, error)
}

// DisplayList is a reusable intermediate rendering of one page.
type DisplayList interface {
	// Bounds returns the page rectangle in page space (PDF points,
	// origin at the top-left corner).
	Bounds() Rect

	// Render rasterizes the display list. scale maps page space to
	// output pixels (1.0 = one pixel per point). clip selects a
	// page-space sub-region; nil renders the whole page.
	Render(scale float64, colorspace Colorspace, clip *Rect) (Pixmap, error)
}

// Pixmap is a concrete raster produced from a display list.
type Pixmap interface {
	// Image returns the raster as a standard image.
	Image() image.Image

	// PPM encodes the raster as a portable pixmap byte stream
	// (P6 for colour, P5 for grayscale).
	PPM() ([]byte, error)
}

// NewEngine creates a rendering engine for the named backend.
// An empty backend defaults to fitz (MuPDF).
func NewEngine(backend string) (Engine, error) {
	switch backend {
	case "", "fitz":
		return NewFitzEngine()
	case "pdfium":
		return NewPDFiumEngine()
	default:
		return nil, fmt.Errorf("unknown renderer backend %q (supported: fitz, pdfium)", backend)
	}
}
