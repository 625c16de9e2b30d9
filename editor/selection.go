package editor

import (
	"image"
	"math"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/gfx"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Selection returns the selected rectangle in pixels.
func (e *Editor) Selection() image.Rectangle { return e.selection }

func (e *Editor) setSelection(r image.Rectangle) {
	e.selection = r.Intersect(e.Bounds())
	if e.tool == ToolSelect {
		e.setHighlight(e.selection)
	}
}

func clampPoint(p image.Point, r image.Rectangle) image.Point {
	return image.Pt(clamp(p.X, r.Min.X, r.Max.X-1), clamp(p.Y, r.Min.Y, r.Max.Y-1))
}

type selectTool struct {
	anchor image.Point
	last   image.Point
	moving bool
}

func (t *selectTool) down(e *Editor, p image.Point) error {
	px := e.ToPixel(p)
	if px.In(e.selection) {
		t.moving, t.last = true, px
		return nil
	}
	t.anchor = clampPoint(px, e.Bounds())
	e.setSelection(inclusive(t.anchor, t.anchor))
	return nil
}

func (t *selectTool) hover(e *Editor, p image.Point) error {
	px := e.ToPixel(p)
	if !t.moving {
		e.setSelection(inclusive(t.anchor, clampPoint(px, e.Bounds())))
		return nil
	}

	// Keep the whole selection inside the image.
	s, b := e.selection, e.Bounds()
	d := px.Sub(t.last)
	d.X = clamp(d.X, b.Min.X-s.Min.X, b.Max.X-s.Max.X)
	d.Y = clamp(d.Y, b.Min.Y-s.Min.Y, b.Max.Y-s.Max.Y)
	if d == (image.Point{}) {
		return nil
	}
	before := e.selection.Min
	if err := e.moveSelection(d); err != nil {
		return err
	}
	t.last = t.last.Add(e.selection.Min.Sub(before))
	return nil
}

func (t *selectTool) up(e *Editor, p image.Point) error { return t.hover(e, p) }

func (t *selectTool) preview(*Editor, image.Point) {}

// swapMove moves the pixels in s by d. Each pixel the block lands on is
// pushed back along -d to the first position outside the block's new
// place, so moving back by -d restores the original pixels exactly.
func swapMove(g *gfx.Grid, s image.Rectangle, d image.Point) *gfx.Grid {
	out := g.Clone()
	dst := s.Add(d)
	for y := s.Min.Y; y < s.Max.Y; y++ {
		for x := s.Min.X; x < s.Max.X; x++ {
			out.Set(x+d.X, y+d.Y, g.At(x, y))
		}
	}
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		for x := dst.Min.X; x < dst.Max.X; x++ {
			q := image.Pt(x, y)
			if q.In(s) {
				continue
			}
			r := q.Sub(d)
			for r.In(dst) {
				r = r.Sub(d)
			}
			out.Set(r.X, r.Y, g.At(x, y))
		}
	}
	return out
}

func (e *Editor) moveSelection(d image.Point) error {
	c, err := e.load()
	if err != nil {
		return err
	}
	s := e.selection
	g := swapMove(e.pixels, s, d)
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			// A pixel that cannot be written would be lost.
			if g.At(x, y) != e.pixels.At(x, y) && !e.editable(c, x, y) {
				return nil
			}
		}
	}
	e.writeGrid(c, g)
	if c.dirty() {
		if err := e.store(c); err != nil {
			return err
		}
	}
	e.setSelection(s.Add(d))
	return nil
}

// transform replaces the selected pixels with fn's rearrangement of them as
// one undoable edit.
func (e *Editor) transform(fn func(src *gfx.Grid, dst *gfx.Grid, s image.Rectangle)) error {
	s := e.selection
	if s.Empty() {
		return nil
	}
	return e.do(func(*romgfx.Delta) error {
		c, err := e.load()
		if err != nil {
			return err
		}
		g := e.pixels.Clone()
		fn(e.pixels, g, s)
		e.writeGrid(c, g)
		if !c.dirty() {
			return nil
		}
		return e.store(c)
	})
}

// FlipVertical turns the selected pixels upside down.
func (e *Editor) FlipVertical() error {
	return e.transform(func(src, dst *gfx.Grid, s image.Rectangle) {
		for y := s.Min.Y; y < s.Max.Y; y++ {
			for x := s.Min.X; x < s.Max.X; x++ {
				dst.Set(x, s.Max.Y-1-(y-s.Min.Y), src.At(x, y))
			}
		}
	})
}

// FlipHorizontal mirrors the selected pixels left to right.
func (e *Editor) FlipHorizontal() error {
	return e.transform(func(src, dst *gfx.Grid, s image.Rectangle) {
		for y := s.Min.Y; y < s.Max.Y; y++ {
			for x := s.Min.X; x < s.Max.X; x++ {
				dst.Set(s.Max.X-1-(x-s.Min.X), y, src.At(x, y))
			}
		}
	})
}

// Image is the clipboard form of a block of pixels; colors row by row.
type Image struct {
	Colors []gfx.Color
	Width  int
}

// Height returns the number of rows.
func (m Image) Height() int {
	if m.Width <= 0 {
		return 0
	}
	return len(m.Colors) / m.Width
}

// Copy returns the selected pixels, or the whole image if nothing is
// selected.
func (e *Editor) Copy() Image {
	r := e.selection
	if r.Empty() {
		r = e.Bounds()
	}
	m := Image{Width: r.Dx()}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Colors = append(m.Colors, e.colors[e.PixelIndex(x, y)])
		}
	}
	return m
}

// nearest returns the index of the palette color closest to c.
func (e *Editor) nearest(c gfx.Color) int {
	want, _ := colorful.MakeColor(c)
	best, dist := 0, math.Inf(1)
	for i, pc := range e.pal.colors {
		if pc == c {
			return i
		}
		have, _ := colorful.MakeColor(pc)
		if d := want.DistanceLab(have); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// Paste draws m centred on the view using the nearest colors of the current
// palette page, then selects it.
func (e *Editor) Paste(m Image) error {
	h := m.Height()
	if h == 0 || len(m.Colors)%m.Width != 0 {
		return errInvalidImage
	}

	tl := e.ToPixel(image.Point{}).Sub(image.Pt(m.Width/2, h/2))
	r := image.Rect(tl.X, tl.Y, tl.X+m.Width, tl.Y+h)

	err := e.do(func(*romgfx.Delta) error {
		c, err := e.load()
		if err != nil {
			return err
		}
		for i, col := range m.Colors {
			e.writePixel(c, tl.X+i%m.Width, tl.Y+i/m.Width, e.drawValue(e.nearest(col)))
		}
		if !c.dirty() {
			return nil
		}
		return e.store(c)
	})
	if err != nil {
		return err
	}

	e.SetTool(ToolSelect)
	e.setSelection(r)
	return nil
}
