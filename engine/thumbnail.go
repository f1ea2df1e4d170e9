package engine

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/drummonds/goPDFView/render"
)

// renderThumbnail renders the first page of the document and scales it
// down to the requested width, preserving the aspect ratio
func (serverHandler *ServerHandler) renderThumbnail(path string, width int) (image.Image, error) {
	doc, err := serverHandler.Renderer.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %q for thumbnail: %w", path, err)
	}
	defer doc.Close()

	if doc.NumPages() == 0 {
		return nil, fmt.Errorf("document %q has no pages", path)
	}
	page, err := doc.Page(0)
	if err != nil {
		return nil, err
	}
	list, err := page.DisplayList()
	if err != nil {
		return nil, err
	}
	pixmap, err := list.Render(1, render.ColorspaceRGB, nil)
	if err != nil {
		return nil, err
	}

	thumbnail := imaging.Resize(pixmap.Image(), width, 0, imaging.Lanczos)
	thumbnail = imaging.Sharpen(thumbnail, 1.0)
	return thumbnail, nil
}
