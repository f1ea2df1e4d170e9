package render

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// displayListDPI is the resolution of the base raster held by a display
// list. Twice the natural 72 DPI page resolution so that the 2x zoom
// view does not have to upscale.
const displayListDPI = 144

// rasterDisplayList is the display-list representation shared by both
// rendering backends: the page rendered once to a high-resolution base
// raster, from which scaled, clipped and grayscale pixmaps are derived
// without touching the PDF again.
type rasterDisplayList struct {
	img  image.Image
	rect Rect
}

func newRasterDisplayList(img image.Image, rect Rect) (*rasterDisplayList, error) {
	if img == nil {
		return nil, fmt.Errorf("display list has no base raster")
	}
	if rect.IsEmpty() {
		return nil, fmt.Errorf("display list has an empty page rectangle")
	}
	return &rasterDisplayList{img: img, rect: rect}, nil
}

func (d *rasterDisplayList) Bounds() Rect {
	return d.rect
}

func (d *rasterDisplayList) Render(scale float64, colorspace Colorspace, clip *Rect) (Pixmap, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid render scale %v", scale)
	}

	region := d.rect
	src := d.img
	if clip != nil {
		region = clip.Intersect(d.rect)
		if region.IsEmpty() {
			return nil, fmt.Errorf("clip %+v lies outside the page rectangle %+v", *clip, d.rect)
		}
		src = imaging.Crop(src, d.pixelRect(region))
	}

	outW := pixelDim(region.Width() * scale)
	outH := pixelDim(region.Height() * scale)
	out := imaging.Resize(src, outW, outH, imaging.Lanczos)

	if colorspace == ColorspaceGray {
		return &rasterPixmap{img: imaging.Grayscale(out), gray: true}, nil
	}
	return &rasterPixmap{img: out}, nil
}

// pixelRect maps a page-space region onto the base raster's pixel grid.
// Scale factors are derived from the actual raster size so rounding in
// the backend's rasterizer does not accumulate.
func (d *rasterDisplayList) pixelRect(region Rect) image.Rectangle {
	bounds := d.img.Bounds()
	sx := float64(bounds.Dx()) / d.rect.Width()
	sy := float64(bounds.Dy()) / d.rect.Height()
	return image.Rect(
		int(math.Round((region.X0-d.rect.X0)*sx)),
		int(math.Round((region.Y0-d.rect.Y0)*sy)),
		int(math.Round((region.X1-d.rect.X0)*sx)),
		int(math.Round((region.Y1-d.rect.Y0)*sy)),
	)
}

func pixelDim(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// rasterPixmap is the Pixmap implementation backing rasterDisplayList.
type rasterPixmap struct {
	img  image.Image
	gray bool
}

func (p *rasterPixmap) Image() image.Image {
	return p.img
}

func (p *rasterPixmap) PPM() ([]byte, error) {
	return encodePortablePixmap(p.img, p.gray)
}
