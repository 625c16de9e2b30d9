package gfx

import (
	"image/color"
)

// Color is a packed 15-bit color, 0BBBBBGGGGGRRRRR.
type Color uint16

const componentMask = 0x1f

// RGB packs 5-bit red, green and blue components.
func RGB(r, g, b int) Color {
	return Color(r&componentMask | (g&componentMask)<<5 | (b&componentMask)<<10)
}

// Components returns the 5-bit red, green and blue components.
func (c Color) Components() (r, g, b int) {
	return int(c) & componentMask, int(c>>5) & componentMask, int(c>>10) & componentMask
}

func expand(v int) uint32 {
	x := uint32(v) << 3
	x |= x >> 5
	return x<<8 | x
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	cr, cg, cb := c.Components()
	return expand(cr), expand(cg), expand(cb), 0xffff
}

func toColor(c color.Color) color.Color {
	if c, ok := c.(Color); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return RGB(int(r>>11), int(g>>11), int(b>>11))
}

// ColorModel converts any color to a Color, dropping alpha.
var ColorModel = color.ModelFunc(toColor)

// PaletteLayout describes the pages of a palette.
type PaletteLayout struct {
	BitsPerPixel int

	// InitialBlankPages is the number of hardware palette pages in front of
	// the first stored page. They take up no bytes and cannot be selected;
	// stored page p is used as hardware page p+InitialBlankPages.
	InitialBlankPages int
}

// ColorsPerPage returns 16 for 4 bits per pixel, 256 for 8.
func (p PaletteLayout) ColorsPerPage() int { return 1 << uint(p.BitsPerPixel) }

// PageBytes returns the size of one page in bytes.
func (p PaletteLayout) PageBytes() int { return p.ColorsPerPage() * colorSize }

// Pages returns how many whole pages fit in n bytes.
func (p PaletteLayout) Pages(n int) int {
	if pb := p.PageBytes(); pb > 0 {
		return n / pb
	}
	return 0
}

func (p PaletteLayout) offset(page, index int) (int, bool) {
	if page < 0 || index < 0 || index >= p.ColorsPerPage() {
		return 0, false
	}
	return page*p.PageBytes() + index*colorSize, true
}

// ReadColor returns color index of page. Colors beyond the end of data read
// as black.
func (p PaletteLayout) ReadColor(data []byte, page, index int) Color {
	i, ok := p.offset(page, index)
	if !ok || i+colorSize > len(data) {
		return 0
	}
	return Color(data[i]) | Color(data[i+1])<<8
}

// WriteColor stores c as color index of page, touching exactly two bytes.
func (p PaletteLayout) WriteColor(data []byte, page, index int, c Color) bool {
	i, ok := p.offset(page, index)
	if !ok || i+colorSize > len(data) {
		return false
	}
	data[i] = byte(c)
	data[i+1] = byte(c >> 8)
	return true
}

// ReadPage returns every color of page.
func (p PaletteLayout) ReadPage(data []byte, page int) []Color {
	colors := make([]Color, p.ColorsPerPage())
	for i := range colors {
		colors[i] = p.ReadColor(data, page, i)
	}
	return colors
}

// Grayscale returns a ramp of n colors from black to white, used when no
// palette is available.
func Grayscale(n int) []Color {
	colors := make([]Color, n)
	if n < 2 {
		return colors
	}
	for i := range colors {
		v := i * componentMask / (n - 1)
		colors[i] = RGB(v, v, v)
	}
	return colors
}

// Palette converts colors to a color.Palette.
func Palette(colors []Color) color.Palette {
	p := make(color.Palette, len(colors))
	for i, c := range colors {
		p[i] = c
	}
	return p
}
