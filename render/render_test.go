package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"testing"
)

// basePage builds a 600x800 point page with a 1200x1600 base raster,
// the left half red and the right half blue.
func basePage(t *testing.T) *rasterDisplayList {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1200, 1600))
	for y := 0; y < 1600; y++ {
		for x := 0; x < 1200; x++ {
			if x < 600 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	list, err := newRasterDisplayList(img, Rect{X1: 600, Y1: 800})
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Rect
		expected Rect
		empty    bool
	}{
		{"contained", Rect{0, 0, 10, 10}, Rect{2, 2, 5, 5}, Rect{2, 2, 5, 5}, false},
		{"overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 20, 20}, Rect{5, 5, 10, 10}, false},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 30, 30}, Rect{}, true},
		{"identical", Rect{1, 2, 3, 4}, Rect{1, 2, 3, 4}, Rect{1, 2, 3, 4}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.a.Intersect(test.b)
			if test.empty {
				if !got.IsEmpty() {
					t.Errorf("expected empty intersection, got %+v", got)
				}
				return
			}
			if got != test.expected {
				t.Errorf("Intersect = %+v, want %+v", got, test.expected)
			}
		})
	}
}

func TestRenderScaling(t *testing.T) {
	list := basePage(t)

	pixmap, err := list.Render(0.5, ColorspaceRGB, nil)
	if err != nil {
		t.Fatal(err)
	}
	bounds := pixmap.Image().Bounds()
	if bounds.Dx() != 300 || bounds.Dy() != 400 {
		t.Errorf("half scale render is %dx%d, want 300x400", bounds.Dx(), bounds.Dy())
	}

	pixmap, err = list.Render(1, ColorspaceRGB, nil)
	if err != nil {
		t.Fatal(err)
	}
	bounds = pixmap.Image().Bounds()
	if bounds.Dx() != 600 || bounds.Dy() != 800 {
		t.Errorf("identity scale render is %dx%d, want 600x800", bounds.Dx(), bounds.Dy())
	}

	if _, err := list.Render(0, ColorspaceRGB, nil); err == nil {
		t.Error("zero scale should be rejected")
	}
}

func TestRenderClip(t *testing.T) {
	list := basePage(t)

	// The right half of the page is blue
	clip := Rect{X0: 300, Y0: 0, X1: 600, Y1: 800}
	pixmap, err := list.Render(1, ColorspaceRGB, &clip)
	if err != nil {
		t.Fatal(err)
	}
	img := pixmap.Image()
	bounds := img.Bounds()
	if bounds.Dx() != 300 || bounds.Dy() != 800 {
		t.Fatalf("clipped render is %dx%d, want 300x800", bounds.Dx(), bounds.Dy())
	}
	r, _, b, _ := img.At(bounds.Min.X+290, bounds.Min.Y+10).RGBA()
	if b <= r {
		t.Errorf("right edge of the clip should be blue, got r=%d b=%d", r>>8, b>>8)
	}

	// A clip hanging over the page edge is trimmed to it
	clip = Rect{X0: 450, Y0: 600, X1: 900, Y1: 1200}
	pixmap, err = list.Render(1, ColorspaceRGB, &clip)
	if err != nil {
		t.Fatal(err)
	}
	bounds = pixmap.Image().Bounds()
	if bounds.Dx() != 150 || bounds.Dy() != 200 {
		t.Errorf("trimmed clip render is %dx%d, want 150x200", bounds.Dx(), bounds.Dy())
	}

	// A clip entirely outside the page is an error
	clip = Rect{X0: 700, Y0: 0, X1: 900, Y1: 100}
	if _, err := list.Render(1, ColorspaceRGB, &clip); err == nil {
		t.Error("a clip outside the page should be rejected")
	}
}

func TestRenderGrayscale(t *testing.T) {
	list := basePage(t)
	pixmap, err := list.Render(0.25, ColorspaceGray, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := pixmap.Image()
	bounds := img.Bounds()
	for _, probe := range []image.Point{
		{bounds.Min.X + 1, bounds.Min.Y + 1},
		{bounds.Max.X - 2, bounds.Max.Y - 2},
	} {
		r, g, b, _ := img.At(probe.X, probe.Y).RGBA()
		if r != g || g != b {
			t.Errorf("pixel at %v is not gray: r=%d g=%d b=%d", probe, r>>8, g>>8, b>>8)
		}
	}
}

func TestEncodePortablePixmap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(2, 0, color.RGBA{B: 255, A: 255})

	data, err := encodePortablePixmap(img, false)
	if err != nil {
		t.Fatal(err)
	}
	header := []byte("P6\n3 2\n255\n")
	if !bytes.HasPrefix(data, header) {
		t.Fatalf("unexpected P6 header in %q", data[:len(header)])
	}
	pixels := data[len(header):]
	if len(pixels) != 3*2*3 {
		t.Fatalf("P6 payload is %d bytes, want %d", len(pixels), 3*2*3)
	}
	if pixels[0] != 255 || pixels[1] != 0 || pixels[2] != 0 {
		t.Errorf("first pixel = %v, want red", pixels[:3])
	}
	if pixels[3] != 0 || pixels[4] != 255 {
		t.Errorf("second pixel = %v, want green", pixels[3:6])
	}

	gray, err := encodePortablePixmap(img, true)
	if err != nil {
		t.Fatal(err)
	}
	grayHeader := []byte("P5\n3 2\n255\n")
	if !bytes.HasPrefix(gray, grayHeader) {
		t.Fatalf("unexpected P5 header in %q", gray[:len(grayHeader)])
	}
	if len(gray[len(grayHeader):]) != 3*2 {
		t.Errorf("P5 payload is %d bytes, want 6", len(gray[len(grayHeader):]))
	}

	if _, err := encodePortablePixmap(nil, false); err == nil {
		t.Error("nil image should be rejected")
	}
}

func TestNewEngineBackends(t *testing.T) {
	if _, err := NewEngine("made-up"); err == nil {
		t.Error("unknown backend should be rejected")
	}
	for _, backend := range []string{"", "fitz", "pdfium"} {
		t.Run(fmt.Sprintf("backend=%s", backend), func(t *testing.T) {
			engine, err := NewEngine(backend)
			if err != nil {
				t.Skipf("backend unavailable in this environment: %v", err)
			}
			defer engine.Close()
			if engine.Name() == "" {
				t.Error("engine should report a backend name")
			}
		})
	}
}
