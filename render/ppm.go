package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// encodePortablePixmap encodes an image as a binary netpbm stream:
// P6 (pixmap) for colour, P5 (graymap) for grayscale. The format is
// what the GUI toolkit on the consuming side understands natively, so
// no compressed encoding is involved.
func encodePortablePixmap(img image.Image, gray bool) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("cannot encode nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("cannot encode empty %dx%d image", w, h)
	}

	var buf bytes.Buffer
	if gray {
		buf.Grow(len("P5\n65535 65535\n255\n") + w*h)
		fmt.Fprintf(&buf, "P5\n%d %d\n255\n", w, h)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
				buf.WriteByte(g.Y)
			}
		}
		return buf.Bytes(), nil
	}

	buf.Grow(len("P6\n65535 65535\n255\n") + w*h*3)
	fmt.Fprintf(&buf, "P6\n%d %d\n255\n", w, h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf.WriteByte(byte(r >> 8))
			buf.WriteByte(byte(g >> 8))
			buf.WriteByte(byte(b >> 8))
		}
	}
	return buf.Bytes(), nil
}
