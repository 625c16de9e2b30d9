package editor

import (
	"slices"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/gfx"
)

// Palette is the current palette page along with which colors are selected
// for drawing and which one is hovered.
type Palette struct {
	colors   []gfx.Color
	selected []bool
	start    int
	hover    int
}

func newPalette() *Palette {
	return &Palette{hover: -1}
}

// setColors replaces the colors, reporting whether they changed. The
// selection survives unless the page size changes.
func (p *Palette) setColors(colors []gfx.Color) bool {
	if slices.Equal(p.colors, colors) {
		return false
	}
	if len(colors) != len(p.colors) {
		p.selected = make([]bool, len(colors))
		if len(colors) > 0 {
			p.selected[0] = true
		}
		p.start, p.hover = 0, -1
	}
	p.colors = slices.Clone(colors)
	return true
}

// Len returns the number of colors on the page.
func (p *Palette) Len() int { return len(p.colors) }

// Colors returns every color on the page.
func (p *Palette) Colors() []gfx.Color { return slices.Clone(p.colors) }

// Color returns color i, or black if there is none.
func (p *Palette) Color(i int) gfx.Color {
	if i < 0 || i >= len(p.colors) {
		return 0
	}
	return p.colors[i]
}

// IsSelected reports whether color i is selected.
func (p *Palette) IsSelected(i int) bool {
	return i >= 0 && i < len(p.selected) && p.selected[i]
}

// Selection returns the selected color indices in order.
func (p *Palette) Selection() []int {
	var s []int
	for i, ok := range p.selected {
		if ok {
			s = append(s, i)
		}
	}
	return s
}

// SelectionStart returns the color used for drawing; where the selection
// began, or the lowest selected color if that has since been deselected.
func (p *Palette) SelectionStart() int {
	if p.IsSelected(p.start) {
		return p.start
	}
	if s := p.Selection(); len(s) > 0 {
		return s[0]
	}
	return 0
}

// SelectionEnd returns the highest selected color.
func (p *Palette) SelectionEnd() int {
	s := p.Selection()
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Hover returns the hovered color, or -1.
func (p *Palette) Hover() int { return p.hover }

func (p *Palette) selectRange(start, end int) {
	for i := range p.selected {
		p.selected[i] = false
	}
	lo, hi := min(start, end), max(start, end)
	for i := lo; i <= hi; i++ {
		p.selected[i] = true
	}
	p.start = start
}

func (p *Palette) toggle(i int) {
	p.selected[i] = !p.selected[i]
}

func (p *Palette) valid(i int) bool { return i >= 0 && i < len(p.colors) }

// SelectColor selects color i alone for drawing.
func (e *Editor) SelectColor(i int) {
	e.SelectColorRange(i, i)
}

// SelectColorRange selects the colors from start to end inclusive. A range
// of more than one color fills with a gradient.
func (e *Editor) SelectColorRange(start, end int) {
	if !e.pal.valid(start) || !e.pal.valid(end) {
		return
	}
	e.pal.selectRange(start, end)
	e.colorSelected()
}

// ToggleColor adds color i to, or removes it from, the selection.
func (e *Editor) ToggleColor(i int) {
	if !e.pal.valid(i) {
		return
	}
	e.pal.toggle(i)
	e.colorSelected()
}

// colorSelected drops any captured block and moves off tools that cannot use
// a color.
func (e *Editor) colorSelected() {
	e.clearBlock()
	e.toDrawing()
	e.notify(PaletteChanged)
}

func (e *Editor) toDrawing() {
	switch e.tool {
	case ToolPan, ToolSelect:
		e.SetTool(ToolDraw)
	}
}

// HoverColor highlights the pixels using color i; -1 clears it.
func (e *Editor) HoverColor(i int) {
	if i != -1 && !e.pal.valid(i) {
		return
	}
	if i == e.pal.hover {
		return
	}
	e.pal.hover = i
	e.notify(SelectionChanged)
}

// SetColor changes color i of the current palette page in the model.
func (e *Editor) SetColor(i int, c gfx.Color) error {
	if !e.pal.valid(i) {
		return nil
	}
	return e.writeColors(i, []gfx.Color{c})
}

// PushColors writes colors over the current palette page, starting at the
// first color.
func (e *Editor) PushColors(colors []gfx.Color) error {
	if len(colors) > e.pal.Len() {
		colors = colors[:e.pal.Len()]
	}
	return e.writeColors(0, colors)
}

func (e *Editor) writeColors(index int, colors []gfx.Color) error {
	if !e.hasPalette {
		return errNoPalette
	}
	return e.do(func(d *romgfx.Delta) error {
		return e.storeColors(d, index, colors)
	})
}

func (e *Editor) storeColors(d *romgfx.Delta, index int, colors []gfx.Color) error {
	run, err := e.find(e.palette)
	if err != nil {
		return err
	}
	data, err := e.model.Decode(run)
	if err != nil {
		return err
	}
	pl := run.PaletteLayout()
	for i, c := range colors {
		pl.WriteColor(data, e.palettePage, index+i, c)
	}
	if run, err = e.model.WriteRunData(d, run, data); err != nil {
		return err
	}
	e.palette = refOf(run)
	e.render()
	return nil
}
