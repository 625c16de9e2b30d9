package editor

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/gfx"
	"github.com/bodgit/romgfx/lz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spriteStart    = 0x00
	spritePointer  = 0x80
	paletteStart   = 0x40
	palettePointer = 0x88
)

var (
	black = gfx.RGB(0, 0, 0)
	white = gfx.RGB(31, 31, 31)
	red   = gfx.RGB(31, 0, 0)
	blue  = gfx.RGB(0, 0, 31)
)

func pt(x, y int) image.Point { return image.Pt(x, y) }

type fixture struct {
	t       *testing.T
	model   *romgfx.Model
	history *romgfx.History
	editor  *Editor
}

// newModel returns a model holding an 8x8 4bpp sprite at 0x00 and a one page
// palette at 0x40, each followed by a byte of unrelated data so that growing
// either moves it.
func newModel(t *testing.T) *romgfx.Model {
	t.Helper()

	data := bytes.Repeat([]byte{romgfx.FreeByte}, 0x200)
	for i := 0; i < 0x20; i++ {
		data[spriteStart+i] = 0
		data[paletteStart+i] = 0
	}
	data[0x20] = 0x23
	data[0x60] = 0x23

	m := romgfx.New(data)
	require.NoError(t, m.WritePointer(nil, spritePointer, spriteStart))
	require.NoError(t, m.WritePointer(nil, palettePointer, paletteStart))

	register(t, m, romgfx.Run{
		Name:     "sprite",
		Kind:     romgfx.KindSprite,
		Start:    spriteStart,
		Format:   romgfx.Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1, Hint: "palette"},
		Pointers: []int{spritePointer},
	})
	register(t, m, romgfx.Run{
		Name:     "palette",
		Kind:     romgfx.KindPalette,
		Start:    paletteStart,
		Format:   romgfx.Format{BitsPerPixel: 4},
		Pointers: []int{palettePointer},
	})

	return m
}

func register(t *testing.T, m *romgfx.Model, run romgfx.Run) *romgfx.Run {
	t.Helper()
	r, err := m.Register(nil, run)
	require.NoError(t, err)
	return r
}

// compressed writes the compressed form of p at start.
func compressed(t *testing.T, m *romgfx.Model, start int, p []byte) {
	t.Helper()
	stream, err := lz.Compress(p)
	require.NoError(t, err)
	copy(m.Bytes()[start:], stream)
}

func open(t *testing.T, m *romgfx.Model, address int) *fixture {
	t.Helper()
	h := romgfx.NewHistory(m)
	e, err := New(h, address)
	require.NoError(t, err)
	return &fixture{t: t, model: m, history: h, editor: e}
}

func newFixture(t *testing.T) *fixture {
	return open(t, newModel(t), spriteStart)
}

func (f *fixture) toolMove(pts ...image.Point) {
	f.t.Helper()
	require.NoError(f.t, f.editor.ToolDown(pts[0]))
	for _, p := range pts[1:] {
		require.NoError(f.t, f.editor.Hover(p))
	}
	require.NoError(f.t, f.editor.ToolUp(pts[len(pts)-1]))
}

func (f *fixture) drawBox(index int, start image.Point, w, h int) {
	f.t.Helper()
	f.editor.SelectColor(index)
	pts := []image.Point{start}
	p := start
	for i := 1; i < w; i++ {
		p = p.Add(pt(1, 0))
		pts = append(pts, p)
	}
	for i := 1; i < h; i++ {
		p = p.Add(pt(0, 1))
		pts = append(pts, p)
	}
	for i := 1; i < w; i++ {
		p = p.Add(pt(-1, 0))
		pts = append(pts, p)
	}
	for i := 1; i < h; i++ {
		p = p.Add(pt(0, -1))
		pts = append(pts, p)
	}
	f.toolMove(pts...)
}

func (f *fixture) drawPixel(index int, c gfx.Color, p image.Point) {
	f.t.Helper()
	require.NoError(f.t, f.editor.SetColor(index, c))
	f.editor.SelectColor(index)
	f.toolMove(p)
}

func (f *fixture) pixel(x, y int) gfx.Color {
	return f.editor.PixelData()[f.editor.PixelIndex(x, y)]
}

func (f *fixture) count(ev Event) *int {
	n := new(int)
	f.editor.Subscribe(func(got Event) {
		if got == ev {
			*n++
		}
	})
	return n
}

func (f *fixture) decode(name string) []byte {
	f.t.Helper()
	out, err := f.model.Decode(f.model.Anchor(name))
	require.NoError(f.t, err)
	return out
}

func TestNew(t *testing.T) {
	f := newFixture(t)
	e := f.editor

	assert.Equal(t, 8, e.Width())
	assert.Equal(t, 8, e.Height())
	assert.Equal(t, ToolPan, e.Tool())
	assert.Equal(t, 1, e.Scale())
	assert.Equal(t, []int{0}, e.Palette().Selection())
	assert.False(t, e.CanEditTilePalettes())
	assert.Nil(t, e.TilePalettes())
	_, ok := e.BlockPreview()
	assert.False(t, ok)
	for i := 0; i < 64; i++ {
		assert.False(t, e.ShowSelectionRect(i%8, i/8))
	}

	_, err := New(f.history, 0x10)
	assert.Error(t, err)
	_, err = New(f.history, paletteStart)
	assert.Error(t, err)
}

func TestSetColorUpdatesPixels(t *testing.T) {
	f := newFixture(t)
	n := f.count(PixelsChanged)

	require.NoError(t, f.editor.SetColor(0, gfx.RGB(1, 1, 1)))

	assert.Equal(t, gfx.RGB(1, 1, 1), f.pixel(0, 0))
	assert.Equal(t, 1, *n)
}

func TestDrawNewColor(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	assert.Equal(t, ToolDraw, f.editor.Tool())
	n := f.count(PixelsChanged)

	f.toolMove(pt(0, 0))

	assert.Equal(t, white, f.pixel(4, 4))
	assert.Equal(t, 1, *n)
	assert.Equal(t, byte(0x01), f.model.ByteAt(0x12))
	assert.Equal(t, []byte{0xff, 0x7f}, f.model.Bytes()[paletteStart+2:paletteStart+4])
}

func TestDrawLine(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)

	f.toolMove(pt(0, 0), pt(3, 2))

	for _, p := range []image.Point{{4, 4}, {5, 5}, {6, 5}, {7, 6}} {
		assert.Equal(t, white, f.pixel(p.X, p.Y), p)
	}
	assert.Equal(t, black, f.pixel(4, 5))
}

func TestDrawOutOfBounds(t *testing.T) {
	f := newFixture(t)
	f.editor.SelectColor(1)
	before := bytes.Clone(f.model.Bytes())

	f.toolMove(pt(50, 50))

	assert.Equal(t, before, f.model.Bytes())
	assert.False(t, f.history.CanUndo())
}

func TestUndo(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	before := bytes.Clone(f.model.Bytes())

	f.toolMove(pt(0, 0))
	f.editor.Undo()

	assert.Equal(t, black, f.pixel(4, 4))
	assert.Equal(t, before, f.model.Bytes())

	f.editor.Redo()
	assert.Equal(t, white, f.pixel(4, 4))
}

func TestZoom(t *testing.T) {
	f := newFixture(t)
	e := f.editor
	n := f.count(OffsetChanged)

	e.ZoomIn(pt(-4, -4))
	assert.Equal(t, 2, e.Scale())
	assert.Equal(t, pt(4, 4), e.Offset())
	assert.Equal(t, 1, *n)

	for i := 0; i < 25; i++ {
		e.ZoomIn(pt(0, 0))
	}
	assert.Equal(t, 24, e.Scale())

	f = newFixture(t)
	f.editor.ZoomOut(pt(0, 0))
	assert.Equal(t, 1, f.editor.Scale())
}

func TestZoomSymmetric(t *testing.T) {
	for _, p := range []image.Point{{-4, -4}, {3, 3}, {-4, 3}, {3, -4}} {
		f := newFixture(t)
		e := f.editor

		e.ZoomIn(p)
		e.ZoomIn(p)
		e.ZoomOut(p)
		e.ZoomOut(p)

		assert.Equal(t, 1, e.Scale())
		assert.Equal(t, image.Point{}, e.Offset(), p)
	}
}

func TestZoomOddPixelRoundsLeft(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	f.editor.ZoomIn(pt(0, 0))
	f.editor.ZoomIn(pt(0, 0))

	f.toolMove(pt(-1, -1))

	assert.Equal(t, white, f.pixel(3, 3))
}

func TestPan(t *testing.T) {
	f := newFixture(t)
	f.toolMove(pt(0, 0), pt(2, 0))
	assert.Equal(t, 2, f.editor.Offset().X)

	f = newFixture(t)
	f.toolMove(pt(0, 0), pt(50, 0))
	assert.Equal(t, 4, f.editor.Offset().X)

	f = newFixture(t)
	f.toolMove(pt(0, 0), pt(2, 0))
	f.editor.ZoomIn(pt(0, 0))
	assert.Equal(t, 4, f.editor.Offset().X)

	f = newFixture(t)
	f.editor.ZoomIn(pt(0, 0))
	f.toolMove(pt(0, 0), pt(2, 0))
	assert.Equal(t, 2, f.editor.Offset().X)

	f = newFixture(t)
	f.editor.SetTool(ToolDraw)
	require.NoError(t, f.editor.PanDown(pt(0, 0)))
	require.NoError(t, f.editor.Hover(pt(2, 0)))
	require.NoError(t, f.editor.PanUp(pt(2, 0)))
	assert.Equal(t, 2, f.editor.Offset().X)
	assert.Equal(t, ToolDraw, f.editor.Tool())
}

func TestHoverHighlight(t *testing.T) {
	f := newFixture(t)
	f.editor.SetTool(ToolDraw)
	f.editor.ZoomIn(pt(0, 0))
	n := f.count(SelectionChanged)

	require.NoError(t, f.editor.Hover(pt(0, 0)))

	assert.Equal(t, 1, *n)
	assert.True(t, f.editor.ShowSelectionRect(4, 4))
	for _, p := range []image.Point{{4, 5}, {4, 3}, {5, 4}, {3, 4}} {
		assert.False(t, f.editor.ShowSelectionRect(p.X, p.Y))
	}

	f.editor.SetCursorSize(2)
	require.NoError(t, f.editor.Hover(pt(0, 0)))
	for _, p := range []image.Point{{4, 4}, {4, 5}, {5, 4}, {5, 5}} {
		assert.True(t, f.editor.ShowSelectionRect(p.X, p.Y))
	}
}

func TestHoverColor(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	f.toolMove(pt(0, 0))

	f.editor.HoverColor(1)

	assert.True(t, f.editor.ShowSelectionRect(4, 4))
	assert.False(t, f.editor.ShowSelectionRect(3, 4))
}

func TestToggleColor(t *testing.T) {
	f := newFixture(t)
	f.editor.SelectColorRange(0, 2)

	f.editor.ToggleColor(5)
	assert.Equal(t, []int{0, 1, 2, 5}, f.editor.Palette().Selection())

	f.editor.ToggleColor(1)
	assert.Equal(t, []int{0, 2, 5}, f.editor.Palette().Selection())
	assert.Equal(t, 0, f.editor.Palette().SelectionStart())
	assert.Equal(t, 5, f.editor.Palette().SelectionEnd())
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	f.editor.SetTool(ToolSelect)

	f.toolMove(pt(0, 0), pt(2, 1))

	assert.Equal(t, image.Rect(4, 4, 7, 6), f.editor.Selection())
	for _, p := range []image.Point{{4, 4}, {5, 4}, {6, 4}, {4, 5}, {5, 5}, {6, 5}} {
		assert.True(t, f.editor.ShowSelectionRect(p.X, p.Y))
	}
}

func TestSelectionMidGesture(t *testing.T) {
	f := newFixture(t)
	f.editor.SetTool(ToolSelect)

	require.NoError(t, f.editor.ToolDown(pt(0, 0)))
	require.NoError(t, f.editor.Hover(pt(-1, 0)))

	assert.False(t, f.editor.ShowSelectionRect(2, 4))
	assert.True(t, f.editor.ShowSelectionRect(3, 4))
	assert.True(t, f.editor.ShowSelectionRect(4, 4))
	assert.False(t, f.editor.ShowSelectionRect(5, 4))
}

func TestSelectMove(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.drawBox(1, pt(-4, -4), 2, 2)
	f.editor.SetTool(ToolSelect)
	f.toolMove(pt(-4, -4), pt(-3, -3))

	f.toolMove(pt(-3, -3), pt(-2, -3))

	assert.Equal(t, white, f.pixel(2, 1))
	assert.Equal(t, image.Rect(1, 0, 3, 2), f.editor.Selection())
}

func TestSelectMoveBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.drawBox(1, pt(-4, -4), 2, 2)
	f.toolMove(pt(-2, -4))
	before := bytes.Clone(f.model.Bytes())

	f.editor.SetTool(ToolSelect)
	f.toolMove(pt(-4, -4), pt(-3, -3))
	f.toolMove(pt(-4, -4), pt(-3, -4))
	assert.Equal(t, black, f.pixel(0, 1))
	f.toolMove(pt(-3, -4), pt(-4, -4))

	assert.Equal(t, white, f.pixel(2, 0))
	assert.Equal(t, before, f.model.Bytes())
}

func TestEyeDropper(t *testing.T) {
	f := newFixture(t)
	f.editor.SelectColor(1)
	f.editor.SetTool(ToolEyeDropper)

	f.toolMove(pt(0, 0))

	assert.Equal(t, 0, f.editor.Palette().SelectionStart())
	assert.Equal(t, 0, f.editor.Palette().SelectionEnd())

	// Out of range
	require.NoError(t, f.editor.EyeDropperDown(pt(-50, 0)))
	require.NoError(t, f.editor.EyeDropperUp(pt(-50, 0)))
}

func TestEyeDropperBlock(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.drawBox(1, pt(-4, -4), 2, 2)

	require.NoError(t, f.editor.EyeDropperDown(pt(-4, -4)))
	require.NoError(t, f.editor.Hover(pt(-3, -3)))
	require.NoError(t, f.editor.EyeDropperUp(pt(-3, -3)))
	f.toolMove(pt(0, 0))

	for _, p := range []image.Point{{4, 4}, {4, 5}, {5, 4}, {5, 5}} {
		assert.Equal(t, white, f.pixel(p.X, p.Y))
	}
	assert.Equal(t, black, f.pixel(6, 6))
}

func TestBlockPreview(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(0, white))
	f.editor.SetTool(ToolEyeDropper)

	f.toolMove(pt(0, 0), pt(1, 1))

	b, ok := f.editor.BlockPreview()
	require.True(t, ok)
	assert.Equal(t, 2, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, 32, b.Scale)
	assert.Equal(t, []gfx.Color{white, white, white, white}, b.Colors)

	// A single pixel picks a color instead
	f.toolMove(pt(-1, -1))
	_, ok = f.editor.BlockPreview()
	assert.False(t, ok)

	f.toolMove(pt(-4, -4), pt(3, 3))
	b, ok = f.editor.BlockPreview()
	require.True(t, ok)
	assert.Equal(t, 8, b.Scale)

	f.editor.SelectColor(0)
	_, ok = f.editor.BlockPreview()
	assert.False(t, ok)
}

func TestEyeDropperSelection(t *testing.T) {
	tables := []struct {
		name string
		to   image.Point
		want image.Point
	}{
		{"square", pt(2, 2), pt(6, 4)},
		{"rect", pt(3, 2), pt(7, 4)},
		{"up right", pt(1, -2), pt(4, 2)},
	}
	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.editor.EyeDropperDown(pt(0, 0)))
			require.NoError(t, f.editor.Hover(table.to))
			assert.True(t, f.editor.ShowSelectionRect(table.want.X, table.want.Y))
		})
	}
}

func TestEyeDropperCursor(t *testing.T) {
	f := newFixture(t)
	f.editor.SetTool(ToolEyeDropper)
	f.editor.SetCursorSize(4)

	require.NoError(t, f.editor.Hover(pt(0, 0)))
	assert.Equal(t, ToolEyeDropper, f.editor.Tool())
	assert.True(t, f.editor.ShowSelectionRect(7, 7))

	// Dragging with a large cursor takes the cursor at the start
	f.editor.SetCursorSize(2)
	f.toolMove(pt(0, 0), pt(2, 2))
	b, ok := f.editor.BlockPreview()
	require.True(t, ok)
	assert.Equal(t, 2, b.Width)
	assert.Equal(t, 2, b.Height)

	// Clicking with a large cursor picks the color
	f = newFixture(t)
	f.editor.SetCursorSize(2)
	f.editor.SelectColor(3)
	f.editor.SetTool(ToolFill)
	require.NoError(t, f.editor.EyeDropperDown(pt(0, 0)))
	require.NoError(t, f.editor.EyeDropperUp(pt(0, 0)))
	assert.Equal(t, []int{0}, f.editor.Palette().Selection())
	_, ok = f.editor.BlockPreview()
	assert.False(t, ok)
	assert.Equal(t, ToolFill, f.editor.Tool())
}

func TestFill(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	f.editor.SetTool(ToolFill)

	f.toolMove(pt(0, 0))

	for i := 0; i < 64; i++ {
		assert.Equal(t, white, f.pixel(i%8, i/8))
	}
}

func TestFillGradient(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, white))
	require.NoError(t, f.editor.SetColor(2, red))
	require.NoError(t, f.editor.SetColor(3, blue))
	f.drawBox(1, pt(0, 0), 4, 4)

	f.editor.SelectColorRange(2, 3)
	f.editor.SetTool(ToolFill)
	f.toolMove(pt(1, 1), pt(2, 1))

	assert.Equal(t, red, f.pixel(5, 5))
	assert.Equal(t, blue, f.pixel(6, 5))
	assert.Equal(t, red, f.pixel(5, 6))
	assert.Equal(t, blue, f.pixel(6, 6))
	assert.Equal(t, white, f.pixel(4, 4))
	assert.Equal(t, black, f.pixel(0, 0))
}

func TestFillHighlight(t *testing.T) {
	f := newFixture(t)
	f.editor.SetTool(ToolFill)

	require.NoError(t, f.editor.Hover(pt(0, 0)))
	assert.True(t, f.editor.ShowSelectionRect(4, 4))

	require.NoError(t, f.editor.ToolDown(pt(0, 0)))
	require.NoError(t, f.editor.Hover(pt(1, 1)))
	assert.True(t, f.editor.ShowSelectionRect(5, 5))
}

func TestRelocatedImage(t *testing.T) {
	f := newFixture(t)
	r := f.model.Anchor("sprite")
	_, err := f.model.RelocateForExpansion(new(romgfx.Delta), r, r.Length+1)
	require.NoError(t, err)

	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	f.toolMove(pt(0, 0))

	assert.Equal(t, white, f.pixel(4, 4))
	dest, err := f.model.ReadPointer(spritePointer)
	require.NoError(t, err)
	assert.Equal(t, f.model.Anchor("sprite").Start, dest)
	assert.NotEqual(t, spriteStart, dest)
}

func TestRelocatedPalette(t *testing.T) {
	f := newFixture(t)
	r := f.model.Anchor("palette")
	r, err := f.model.RelocateForExpansion(new(romgfx.Delta), r, r.Length+1)
	require.NoError(t, err)

	require.NoError(t, f.editor.SetColor(0, white))

	assert.Equal(t, []byte{0xff, 0x7f}, f.model.Bytes()[r.Start:r.Start+2])
}

func TestGrowingEditRelocates(t *testing.T) {
	f := newFixture(t)
	stream, err := lz.Compress(make([]byte, 32))
	require.NoError(t, err)
	copy(f.model.Bytes()[spriteStart:], stream)
	f.model.Bytes()[spriteStart+len(stream)] = 0x23
	register(t, f.model, romgfx.Run{
		Name:       "sprite",
		Kind:       romgfx.KindSprite,
		Compressed: true,
		Start:      spriteStart,
		Format:     romgfx.Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1, Hint: "palette"},
		Pointers:   []int{spritePointer},
	})
	f.editor.Refresh()
	before := bytes.Clone(f.model.Bytes())

	// Noise compresses badly, so the stream has to move
	for i := 1; i < 16; i++ {
		f.editor.SelectColor(i)
		f.toolMove(pt(i%8-4, i/8-4))
	}

	r := f.model.Anchor("sprite")
	assert.NotEqual(t, spriteStart, r.Start)
	dest, err := f.model.ReadPointer(spritePointer)
	require.NoError(t, err)
	assert.Equal(t, r.Start, dest)
	assert.Equal(t, 15, f.editor.PixelValue(7, 1))

	for f.history.CanUndo() {
		f.editor.Undo()
	}
	assert.Equal(t, before, f.model.Bytes())
	assert.Equal(t, 0, f.editor.PixelValue(7, 1))
}

func TestTwoPageSprite(t *testing.T) {
	f := newFixture(t)
	compressed(t, f.model, spriteStart, make([]byte, 64))
	register(t, f.model, romgfx.Run{
		Name:       "sprite",
		Kind:       romgfx.KindSprite,
		Compressed: true,
		Start:      spriteStart,
		Format:     romgfx.Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1, Hint: "palette"},
		Pointers:   []int{spritePointer},
	})
	f.editor.Refresh()
	require.Equal(t, 2, f.editor.SpritePages())

	f.editor.SetSpritePage(1)
	require.NoError(t, f.editor.SetColor(1, white))
	f.editor.SelectColor(1)
	f.toolMove(pt(-4, -4))

	data := f.decode("sprite")
	assert.Equal(t, byte(1), data[0x20]&0xf)
	assert.Equal(t, make([]byte, 0x20), data[:0x20])
	assert.Equal(t, white, f.pixel(0, 0))

	f.editor.SetSpritePage(0)
	assert.Equal(t, black, f.pixel(0, 0))
}

func TestTwoPagePalette(t *testing.T) {
	f := newFixture(t)
	compressed(t, f.model, paletteStart, make([]byte, 64))
	register(t, f.model, romgfx.Run{
		Name:       "palette",
		Kind:       romgfx.KindPalette,
		Compressed: true,
		Start:      paletteStart,
		Format:     romgfx.Format{BitsPerPixel: 4},
		Pointers:   []int{palettePointer},
	})
	f.editor.Refresh()
	require.Equal(t, 2, f.editor.PalettePages())

	f.editor.SetPalettePage(1)
	require.NoError(t, f.editor.SetColor(0, white))

	data := f.decode("palette")
	assert.Equal(t, []byte{0xff, 0x7f}, data[0x20:0x22])
	assert.Equal(t, []byte{0, 0}, data[0:2])
	assert.Equal(t, white, f.pixel(0, 0))
}

func TestEightBitSpriteWithPalettePages(t *testing.T) {
	f := newFixture(t)
	compressed(t, f.model, spriteStart, make([]byte, 64))
	compressed(t, f.model, paletteStart, make([]byte, 64))
	register(t, f.model, romgfx.Run{
		Name:       "sprite",
		Kind:       romgfx.KindSprite,
		Compressed: true,
		Start:      spriteStart,
		Format:     romgfx.Format{BitsPerPixel: 8, TileWidth: 1, TileHeight: 1, Hint: "palette"},
		Pointers:   []int{spritePointer},
	})
	register(t, f.model, romgfx.Run{
		Name:       "palette",
		Kind:       romgfx.KindPalette,
		Compressed: true,
		Start:      paletteStart,
		Format:     romgfx.Format{BitsPerPixel: 4, InitialBlankPages: 2},
		Pointers:   []int{palettePointer},
	})
	f.editor.Refresh()

	f.editor.SetPalettePage(1)
	f.editor.SelectColor(1)
	f.editor.SetTool(ToolDraw)
	f.toolMove(pt(-4, -4))

	assert.Equal(t, byte(0x31), f.decode("sprite")[0])
}

func TestCopyPaste(t *testing.T) {
	f := newFixture(t)
	f.drawPixel(1, red, pt(0, -1))
	f.drawPixel(2, blue, pt(-1, 0))
	f.drawPixel(3, white, pt(0, 0))

	f.editor.SetTool(ToolSelect)
	f.toolMove(pt(-1, -1), pt(0, 0))
	m := f.editor.Copy()

	assert.Equal(t, Image{Colors: []gfx.Color{black, red, blue, white}, Width: 2}, m)
	assert.Equal(t, 2, m.Height())

	g := newFixture(t)
	require.NoError(t, g.editor.SetColor(1, red))
	require.NoError(t, g.editor.SetColor(2, blue))
	require.NoError(t, g.editor.SetColor(3, white))
	require.NoError(t, g.editor.Paste(m))

	assert.Equal(t, black, g.pixel(3, 3))
	assert.Equal(t, red, g.pixel(4, 3))
	assert.Equal(t, blue, g.pixel(3, 4))
	assert.Equal(t, white, g.pixel(4, 4))
	assert.Equal(t, ToolSelect, g.editor.Tool())
	for _, p := range []image.Point{{3, 3}, {4, 3}, {3, 4}, {4, 4}} {
		assert.True(t, g.editor.ShowSelectionRect(p.X, p.Y))
	}

	assert.Error(t, g.editor.Paste(Image{Colors: []gfx.Color{red}, Width: 2}))
}

func TestPasteNearestColor(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.editor.SetColor(1, red))
	require.NoError(t, f.editor.SetColor(2, blue))

	require.NoError(t, f.editor.Paste(Image{Colors: []gfx.Color{gfx.RGB(28, 2, 1)}, Width: 1}))

	assert.Equal(t, 1, f.editor.PixelValue(4, 4))
}

func TestFlip(t *testing.T) {
	tables := []struct {
		name string
		flip func(*Editor) error
		want [4]gfx.Color
	}{
		{"vertical", (*Editor).FlipVertical, [4]gfx.Color{blue, white, black, red}},
		{"horizontal", (*Editor).FlipHorizontal, [4]gfx.Color{red, black, white, blue}},
	}
	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			f := newFixture(t)
			f.drawPixel(1, red, pt(0, -1))
			f.drawPixel(2, blue, pt(-1, 0))
			f.drawPixel(3, white, pt(0, 0))
			f.editor.SetTool(ToolSelect)
			f.toolMove(pt(-1, -1), pt(0, 0))
			before := bytes.Clone(f.model.Bytes())

			require.NoError(t, table.flip(f.editor))
			assert.Equal(t, table.want, [4]gfx.Color{f.pixel(3, 3), f.pixel(4, 3), f.pixel(3, 4), f.pixel(4, 4)})

			require.NoError(t, table.flip(f.editor))
			assert.Equal(t, before, f.model.Bytes())
		})
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	colors := make([]gfx.Color, 16)
	colors[15] = white
	require.NoError(t, f.editor.PushColors(colors))
	f.model.Bytes()[spriteStart] = 0xff

	f.editor.Refresh()

	assert.Equal(t, white, f.editor.PixelData()[0])
	assert.Equal(t, white, f.editor.PixelData()[1])
}

func TestEditOptionsPalettes(t *testing.T) {
	m := newModel(t)
	for i := 0; i < 0x20; i++ {
		m.Bytes()[0x100+i] = 0
	}
	require.NoError(t, m.WritePointer(nil, 0x90, 0x100))
	register(t, m, romgfx.Run{
		Name:     "palette2",
		Kind:     romgfx.KindPalette,
		Start:    0x100,
		Format:   romgfx.Format{BitsPerPixel: 4, Hint: "sprite"},
		Pointers: []int{0x90},
	})
	f := open(t, m, spriteStart)

	options := f.editor.EditOptions()
	require.Len(t, options, 2)
	assert.Equal(t, EditOption{ImageName: "sprite", ImageStart: spriteStart, PaletteName: "palette", PaletteStart: paletteStart}, options[0])
	assert.Equal(t, 0x100, options[1].PaletteStart)

	f.editor.SelectEditOption(1)
	assert.Equal(t, 1, f.editor.SelectedEditOption())
	require.NoError(t, f.editor.SetColor(0, white))
	assert.Equal(t, []byte{0xff, 0x7f}, m.Bytes()[0x100:0x102])
	assert.Equal(t, []byte{0, 0}, m.Bytes()[paletteStart:paletteStart+2])
}

func TestEditOptionsClampPages(t *testing.T) {
	m := newModel(t)
	for i := 0; i < 0x40; i++ {
		m.Bytes()[spriteStart+i] = 0
	}
	register(t, m, romgfx.Run{
		Name:     "sprite",
		Kind:     romgfx.KindSprite,
		Start:    spriteStart,
		Format:   romgfx.Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1, Pages: 2, Hint: "palette"},
		Pointers: []int{spritePointer},
	})
	for i := 0; i < 0x20; i++ {
		m.Bytes()[0x100+i] = 0
	}
	register(t, m, romgfx.Run{
		Name:   "sprite2",
		Kind:   romgfx.KindSprite,
		Start:  0x100,
		Format: romgfx.Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1, Hint: "palette"},
	})
	f := open(t, m, spriteStart)
	require.Len(t, f.editor.EditOptions(), 2)

	f.editor.SetSpritePage(1)
	require.Equal(t, 1, f.editor.SpritePage())
	f.editor.SelectEditOption(1)

	assert.Equal(t, 0, f.editor.SpritePage())
	assert.Equal(t, 1, f.editor.SpritePages())
}

func TestImportImage(t *testing.T) {
	f := newFixture(t)
	m := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.White})
	m.SetColorIndex(1, 0, 1)
	m.SetColorIndex(7, 7, 1)

	require.NoError(t, f.editor.ImportImage(m))

	assert.Equal(t, white, f.pixel(1, 0))
	assert.Equal(t, white, f.pixel(7, 7))
	assert.Equal(t, black, f.pixel(0, 0))
	assert.Equal(t, white, f.editor.Palette().Color(1))

	f.editor.Undo()
	assert.Equal(t, black, f.pixel(1, 0))

	assert.Error(t, f.editor.ImportImage(image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black})))
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	n := f.count(Closed)

	f.editor.Close()
	f.editor.Close()

	assert.Equal(t, 1, *n)
	f.editor.SelectColor(1)
	f.toolMove(pt(0, 0))
	assert.False(t, f.history.CanUndo())
}

func TestBlockClippedAtEdge(t *testing.T) {
	f := newFixture(t)
	f.drawPixel(1, white, pt(0, 0))
	require.NoError(t, f.editor.EyeDropperDown(pt(0, 0)))
	require.NoError(t, f.editor.Hover(pt(2, 2)))
	require.NoError(t, f.editor.EyeDropperUp(pt(2, 2)))

	f.toolMove(pt(3, 3))

	assert.Equal(t, white, f.pixel(7, 7))
	assert.Equal(t, black, f.pixel(6, 6))
}
