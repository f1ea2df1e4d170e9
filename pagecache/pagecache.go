// Package pagecache holds an open PDF document and lazily rendered
// pages of the document for display and for the margin-cropping
// pipeline. Page numbering convention is from zero.
package pagecache

import (
	"errors"
	"fmt"
	"math"

	"github.com/drummonds/goPDFView/render"
)

// zoomMagnification is the extra scale applied on top of the base
// fit-scale when rendering a zoomed quadrant.
const zoomMagnification = 2

var (
	// ErrNoDocument is returned when an operation needs an open
	// document and there is none.
	ErrNoDocument = errors.New("no document is open")

	// ErrPageOutOfRange is returned for page indexes outside
	// [0, NumPages).
	ErrPageOutOfRange = errors.New("page index out of range")
)

// ZoomState describes an arrow-key zoom step: the top-left corner of
// the previous clip rectangle and the direction to move it in, one of
// -1, 0, +1 per axis.
type ZoomState struct {
	TopLeft render.Point
	DirX    int
	DirY    int
}

// ViewOptions controls how Page renders a page for display.
type ViewOptions struct {
	// ViewportWidth and ViewportHeight give the available display
	// area in pixels. When both are positive the page is scaled
	// uniformly to fit inside it. Zero leaves the page at natural
	// size (one pixel per point).
	ViewportWidth  float64
	ViewportHeight float64

	// Zoom, when non-nil, selects a quarter-page window instead of
	// the whole page.
	Zoom *ZoomState

	// FitToViewport is reserved. It is accepted for signature
	// compatibility with the original viewer but does not alter
	// behaviour.
	FitToViewport bool
}

// PageCache owns one open document and two parallel per-page caches:
// display lists shared by every rendering path, and encoded grayscale
// crop images. It is not safe for concurrent use; callers must
// serialize access to one instance.
type PageCache struct {
	engine render.Engine
	doc    render.Document

	numPages     int
	displayLists []render.DisplayList
	cropImages   [][]byte
}

// New creates a PageCache with empty caches, ready for OpenDocument.
func New(engine render.Engine) *PageCache {
	cache := &PageCache{engine: engine}
	cache.ClearCache()
	return cache
}

// ClearCache resets the page count and both page caches.
func (c *PageCache) ClearCache() {
	c.numPages = 0
	c.displayLists = nil
	c.cropImages = nil
}

// NumPages returns the page count of the open document, 0 if none.
func (c *PageCache) NumPages() int {
	return c.numPages
}

// OpenDocument opens the document at path and returns its page count.
// Any previously open document is closed first so a PageCache can be
// reused across documents. A failure to parse the file is reported to
// the caller; it is not recoverable by retrying.
func (c *PageCache) OpenDocument(path string) (int, error) {
	if c.doc != nil {
		if err := c.CloseDocument(); err != nil {
			return 0, fmt.Errorf("unable to close previous document: %w", err)
		}
	}

	doc, err := c.engine.Open(path)
	if err != nil {
		return 0, fmt.Errorf("unable to read document %q: %w", path, err)
	}
	c.doc = doc
	c.numPages = doc.NumPages()
	c.displayLists = make([]render.DisplayList, c.numPages)
	c.cropImages = make([][]byte, c.numPages)
	return c.numPages, nil
}

// CloseDocument closes the document and clears its pages. The cached
// display lists and crop images are dropped together with the handle.
func (c *PageCache) CloseDocument() error {
	if c.doc == nil {
		return ErrNoDocument
	}
	err := c.doc.Close()
	c.doc = nil
	c.ClearCache()
	return err
}

// displayList returns the cached display list for a page,
// materializing it on first access. Whichever rendering path touches a
// page first performs the one-time materialization.
func (c *PageCache) displayList(index int) (render.DisplayList, error) {
	if c.doc == nil {
		return nil, ErrNoDocument
	}
	if index < 0 || index >= c.numPages {
		return nil, fmt.Errorf("%w: page %d, document has %d pages", ErrPageOutOfRange, index, c.numPages)
	}
	if c.displayLists[index] == nil {
		page, err := c.doc.Page(index)
		if err != nil {
			return nil, fmt.Errorf("unable to load page %d: %w", index, err)
		}
		list, err := page.DisplayList()
		if err != nil {
			return nil, fmt.Errorf("unable to build display list for page %d: %w", index, err)
		}
		c.displayLists[index] = list
	}
	return c.displayLists[index], nil
}

// PageForCrop returns an unscaled and unclipped PPM image of the page
// suitable for the cropping pipeline, not intended for display.
// Grayscale keeps the memory requirement down; good enough for margin
// detection. The encoded image is cached so repeated crop passes over
// the same page render and encode once.
func (c *PageCache) PageForCrop(index int) ([]byte, error) {
	list, err := c.displayList(index)
	if err != nil {
		return nil, err
	}
	if c.cropImages[index] != nil {
		return c.cropImages[index], nil
	}

	pixmap, err := list.Render(1, render.ColorspaceGray, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to render crop image for page %d: %w", index, err)
	}
	data, err := pixmap.PPM()
	if err != nil {
		return nil, fmt.Errorf("unable to encode crop image for page %d: %w", index, err)
	}
	c.cropImages[index] = data
	return data, nil
}

// Page returns a PPM image of a document page for display, along with
// the page-space top-left corner of the rendered region so the caller
// can track zoom position. Without zoom the whole page is rendered at
// the base fit-scale; with zoom a quarter-page window is rendered at
// twice that scale.
func (c *PageCache) Page(index int, opts ViewOptions) ([]byte, render.Point, error) {
	list, err := c.displayList(index)
	if err != nil {
		return nil, render.Point{}, err
	}
	rect := list.Bounds()

	scale := 1.0
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		scale = fitScale(rect, opts.ViewportWidth, opts.ViewportHeight)
	}

	clip := rect
	var pixmap render.Pixmap
	if opts.Zoom != nil {
		clip = zoomClip(rect, *opts.Zoom)
		pixmap, err = list.Render(scale*zoomMagnification, render.ColorspaceRGB, &clip)
	} else {
		pixmap, err = list.Render(scale, render.ColorspaceRGB, nil)
	}
	if err != nil {
		return nil, render.Point{}, fmt.Errorf("unable to render page %d: %w", index, err)
	}

	data, err := pixmap.PPM()
	if err != nil {
		return nil, render.Point{}, fmt.Errorf("unable to encode page %d: %w", index, err)
	}
	return data, clip.TopLeft(), nil
}

// fitScale computes the uniform scale that fits a whole page inside
// the viewport without exceeding either dimension, capped at 1 so
// small pages are not blown up.
func fitScale(page render.Rect, viewportW, viewportH float64) float64 {
	return math.Min(1, math.Min(viewportW/page.Width(), viewportH/page.Height()))
}

// zoomClip computes the quarter-page clip window for an arrow-key zoom
// step. The window's top-left starts from the previous one, moves a
// half-window step per axis in the arrow direction, and is clamped so
// the window stays fully inside the page.
func zoomClip(page render.Rect, zoom ZoomState) render.Rect {
	halfW := page.Width() / 2
	halfH := page.Height() / 2

	topLeft := zoom.TopLeft
	topLeft.X += float64(zoom.DirX) * (halfW / 2)
	topLeft.X = math.Max(0, math.Min(halfW, topLeft.X))
	topLeft.Y += float64(zoom.DirY) * (halfH / 2)
	topLeft.Y = math.Max(0, math.Min(halfH, topLeft.Y))

	return render.Rect{
		X0: topLeft.X,
		Y0: topLeft.Y,
		X1: topLeft.X + halfW,
		Y1: topLeft.Y + halfH,
	}
}
