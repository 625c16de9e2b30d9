package gfx

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
)

var errWrongSize = errors.New("gfx: image is wrong size")

// Paletted returns page of data as an image. Pixel values are used directly
// as indices into colors; values with no matching color are shown as color 0.
func (l Layout) Paletted(data []byte, page int, colors []Color) *image.Paletted {
	if len(colors) == 0 {
		colors = Grayscale(1 << uint(l.BitsPerPixel))
	}
	m := image.NewPaletted(l.Bounds(), Palette(colors))
	for ty := 0; ty < l.TileHeight; ty++ {
		for tx := 0; tx < l.TileWidth; tx++ {
			for y := 0; y < TileSize; y++ {
				for x := 0; x < TileSize; x++ {
					dx, dy := tx*TileSize+x, ty*TileSize+y
					v := l.ReadPixel(data, dx, dy, page)
					if v >= len(colors) {
						v = 0
					}
					m.SetColorIndex(dx, dy, uint8(v))
				}
			}
		}
	}
	return m
}

// FromImage converts m, which must be exactly one page in size, into a grid of
// palette indices and the colors they refer to. Images with more than
// maxColors colors are reduced with a median cut quantizer first.
func (l Layout) FromImage(m image.Image, maxColors int) (*Grid, []Color, error) {
	b := m.Bounds()
	if b.Dx() != l.Width() || b.Dy() != l.Height() {
		return nil, nil, errWrongSize
	}

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}

	if pm == nil || len(pm.Palette) > maxColors {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, maxColors), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	g := NewGrid(l.Width(), l.Height())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.Set(x, y, int(pm.ColorIndexAt(b.Min.X+x, b.Min.Y+y)))
		}
	}

	colors := make([]Color, maxColors)
	for i, c := range pm.Palette {
		if i < maxColors {
			colors[i] = ColorModel.Convert(c).(Color)
		}
	}

	return g, colors, nil
}
