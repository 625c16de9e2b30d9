package gfx

import "image"

// Grid is a rectangle of raw pixel values, either palette indices or, for 8
// bits per pixel data drawn with 16 color palettes, page and index combined.
type Grid struct {
	Width  int
	Height int
	Pix    []int
}

// NewGrid returns a zeroed w by h grid.
func NewGrid(w, h int) *Grid {
	return &Grid{
		Width:  w,
		Height: h,
		Pix:    make([]int, w*h),
	}
}

// Bounds returns the rectangle covered by the grid.
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// At returns the value at (x, y), or 0 outside the grid.
func (g *Grid) At(x, y int) int {
	if !image.Pt(x, y).In(g.Bounds()) {
		return 0
	}
	return g.Pix[y*g.Width+x]
}

// Set stores v at (x, y). Points outside the grid are ignored.
func (g *Grid) Set(x, y, v int) {
	if !image.Pt(x, y).In(g.Bounds()) {
		return
	}
	g.Pix[y*g.Width+x] = v
}

// Clone returns a copy of g.
func (g *Grid) Clone() *Grid {
	dup := NewGrid(g.Width, g.Height)
	copy(dup.Pix, g.Pix)
	return dup
}
