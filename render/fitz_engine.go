package render

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzEngine implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzEngine struct {
}

// NewFitzEngine creates a new Fitz-based rendering engine
func NewFitzEngine() (*FitzEngine, error) {
	return &FitzEngine{}, nil
}

// Name reports the backend name
func (e *FitzEngine) Name() string {
	return "fitz"
}

// Open opens a PDF document using go-fitz
func (e *FitzEngine) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzDocument{doc: doc, numPages: doc.NumPage()}, nil
}

// Close cleans up resources (no-op for the Fitz engine; documents own
// their MuPDF state)
func (e *FitzEngine) Close() error {
	return nil
}

type fitzDocument struct {
	doc      *fitz.Document
	numPages int
}

func (d *fitzDocument) NumPages() int {
	return d.numPages
}

func (d *fitzDocument) Page(index int) (Page, error) {
	if index < 0 || index >= d.numPages {
		return nil, fmt.Errorf("page %d out of range, document has %d pages", index, d.numPages)
	}
	return &fitzPage{doc: d.doc, index: index}, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

type fitzPage struct {
	doc   *fitz.Document
	index int
}

// DisplayList renders the page once at displayListDPI and wraps the
// result as a reusable raster display list.
func (p *fitzPage) DisplayList() (DisplayList, error) {
	bound, err := p.doc.Bound(p.index)
	if err != nil {
		return nil, fmt.Errorf("unable to get bounds of page %d: %w", p.index, err)
	}

	img, err := p.doc.ImageDPI(p.index, displayListDPI)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", p.index, err)
	}

	// Bound reports the page rectangle at 72 DPI, which is page space.
	rect := Rect{
		X0: float64(bound.Min.X),
		Y0: float64(bound.Min.Y),
		X1: float64(bound.Max.X),
		Y1: float64(bound.Max.Y),
	}
	return newRasterDisplayList(img, rect)
}
