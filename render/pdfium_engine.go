package render

import (
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumEngine implements PDF rendering using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumEngine struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumEngine creates a new PDFium-based rendering engine using WebAssembly
func NewPDFiumEngine() (*PDFiumEngine, error) {
	// Initialize WebAssembly pool with minimal configuration
	// For single-threaded usage, we keep it simple
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1, // Minimum idle workers
		MaxIdle:  1, // Maximum idle workers
		MaxTotal: 1, // Total worker limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	// Get a PDFium instance from the pool
	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumEngine{
		pool:     pool,
		instance: instance,
	}, nil
}

// Name reports the backend name
func (e *PDFiumEngine) Name() string {
	return "pdfium"
}

// Open opens a PDF document using go-pdfium
func (e *PDFiumEngine) Open(path string) (Document, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read PDF file: %w", err)
	}

	doc, err := e.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	pageCountResp, err := e.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		e.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	return &pdfiumDocument{
		instance: e.instance,
		document: doc.Document,
		numPages: pageCountResp.PageCount,
	}, nil
}

// Close cleans up resources used by the PDFium engine
func (e *PDFiumEngine) Close() error {
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
	e.instance = nil
	return nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	document references.FPDF_DOCUMENT
	numPages int
}

func (d *pdfiumDocument) NumPages() int {
	return d.numPages
}

func (d *pdfiumDocument) Page(index int) (Page, error) {
	if index < 0 || index >= d.numPages {
		return nil, fmt.Errorf("page %d out of range, document has %d pages", index, d.numPages)
	}
	return &pdfiumPage{doc: d, index: index}, nil
}

func (d *pdfiumDocument) Close() error {
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.document,
	})
	if err != nil {
		return fmt.Errorf("unable to close PDF document: %w", err)
	}
	return nil
}

type pdfiumPage struct {
	doc   *pdfiumDocument
	index int
}

// DisplayList renders the page once at displayListDPI and wraps the
// result as a reusable raster display list.
func (p *pdfiumPage) DisplayList() (DisplayList, error) {
	byIndex := requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: p.doc.document,
			Index:    p.index,
		},
	}

	sizeResp, err := p.doc.instance.GetPageSize(&requests.GetPageSize{
		Page: byIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get size of page %d: %w", p.index, err)
	}

	pageRender, err := p.doc.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI:  displayListDPI,
		Page: byIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", p.index, err)
	}

	// Copy out of the WebAssembly-backed buffer before cleanup frees it.
	img := imaging.Clone(pageRender.Result.Image)
	pageRender.Cleanup()

	// GetPageSize reports points, which is page space.
	rect := Rect{X1: sizeResp.Width, Y1: sizeResp.Height}
	return newRasterDisplayList(img, rect)
}
