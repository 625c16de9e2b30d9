/*
Package editor turns pointer gestures into pixel and palette edits on
graphics registered with a romgfx.Model.

An Editor is opened on a sprite, tileset or tilemap. It derives a grid of
pixel values and their colors from the run's bytes, and each gesture
(ToolDown, any number of Hover calls, then ToolUp) is applied to the model
inside one romgfx.History transaction, so it can be undone as a whole.
Screen points passed to the gesture and zoom methods are relative to the
centre of the image.

An Editor is not safe for concurrent use.
*/
package editor

import (
	"errors"
	"image"
	"slices"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/gfx"
	"github.com/hashicorp/go-hclog"
)

var (
	errMissingRun    = errors.New("editor: run is no longer registered")
	errUnsupported   = errors.New("editor: run cannot be edited")
	errInvalidImage  = errors.New("editor: invalid image")
	errNoPalette     = errors.New("editor: no palette")
	errGestureActive = errors.New("editor: gesture in progress")
)

// Tool selects how gestures are interpreted.
type Tool int

// Tools.
const (
	ToolPan Tool = iota
	ToolDraw
	ToolFill
	ToolSelect
	ToolEyeDropper
	ToolTilePalette
)

func (t Tool) String() string {
	switch t {
	case ToolPan:
		return "pan"
	case ToolDraw:
		return "draw"
	case ToolFill:
		return "fill"
	case ToolSelect:
		return "select"
	case ToolEyeDropper:
		return "eyedropper"
	case ToolTilePalette:
		return "tilepalette"
	}
	return "unknown"
}

// Event identifies which part of the editor's state changed.
type Event int

// Events. Each is sent at most once per change, after the change is
// complete.
const (
	PixelsChanged Event = iota + 1
	OffsetChanged
	SelectionChanged
	PaletteChanged
	PagesChanged
	BlockChanged
	ToolChanged
	Closed
)

const (
	minScale      = 1
	maxScale      = 24
	maxCursorSize = 8
)

// runRef finds a run again after it has been moved or replaced.
type runRef struct {
	name    string
	start   int
	pointer int
}

func refOf(r *romgfx.Run) runRef {
	ref := runRef{name: r.Name, start: r.Start, pointer: -1}
	if len(r.Pointers) > 0 {
		ref.pointer = r.Pointers[0]
	}
	return ref
}

func (ref runRef) resolve(m *romgfx.Model) *romgfx.Run {
	if r := m.Anchor(ref.name); r != nil {
		return r
	}
	if r := m.Lookup(ref.start); r != nil {
		return r
	}
	if ref.pointer >= 0 {
		if dest, err := m.ReadPointer(ref.pointer); err == nil {
			return m.Lookup(dest)
		}
	}
	return nil
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used to report aborted gestures and decode
// failures.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// Editor is an interactive pixel editor for one image.
type Editor struct {
	model   *romgfx.Model
	history *romgfx.History
	logger  hclog.Logger

	kind       romgfx.Kind
	image      runRef // the sprite, tileset or tilemap opened
	tiles      runRef // the run holding pixel data, the tileset of a tilemap
	palette    runRef
	hasPalette bool

	options []option
	option  int

	bpp           int
	layout        gfx.Layout
	mapLayout     gfx.TilemapLayout
	width         int
	height        int
	spritePage    int
	spritePages   int
	palettePage   int
	pages         [][]gfx.Color
	blank         int
	colorsPerPage int

	pixels *gfx.Grid
	colors []gfx.Color
	pal    *Palette

	tool       Tool
	cursorSize int
	scale      int
	offset     image.Point

	selection image.Rectangle
	highlight image.Rectangle
	block     *gfx.Grid

	gesture   *gesture
	listeners []func(Event)
	closed    bool
}

// New opens an editor on the sprite, tileset or tilemap registered at
// address. The palette, and for tilemaps the tileset, are found through the
// runs' hints.
func New(history *romgfx.History, address int, opts ...Option) (*Editor, error) {
	m := history.Model()

	r := m.Lookup(address)
	if r == nil {
		return nil, errMissingRun
	}

	e := &Editor{
		model:      m,
		history:    history,
		logger:     hclog.NewNullLogger(),
		kind:       r.Kind,
		image:      refOf(r),
		tiles:      refOf(r),
		pal:        newPalette(),
		tool:       ToolPan,
		cursorSize: 1,
		scale:      minScale,
	}
	for _, opt := range opts {
		opt(e)
	}

	paletteHint := r.Format.Hint
	switch r.Kind {
	case romgfx.KindSprite, romgfx.KindTileset:
	case romgfx.KindTilemap:
		tiles := m.Anchor(r.Format.Hint)
		if tiles == nil || tiles.Kind != romgfx.KindTileset {
			return nil, errMissingRun
		}
		e.tiles = refOf(tiles)
		paletteHint = tiles.Format.Hint
	default:
		return nil, errUnsupported
	}

	if p := m.Anchor(paletteHint); p != nil && p.Kind == romgfx.KindPalette {
		e.palette, e.hasPalette = refOf(p), true
	}

	e.options = e.findOptions(r)

	if _, err := e.load(); err != nil {
		return nil, err
	}
	e.render()

	return e, nil
}

// Subscribe registers fn to be called after every change.
func (e *Editor) Subscribe(fn func(Event)) {
	e.listeners = append(e.listeners, fn)
}

func (e *Editor) notify(ev Event) {
	for _, fn := range e.listeners {
		fn(ev)
	}
}

// Close abandons any gesture in progress and sends Closed.
func (e *Editor) Close() {
	if e.closed {
		return
	}
	if e.gesture != nil {
		e.gesture = nil
		_ = e.history.Abort()
	}
	e.closed = true
	e.notify(Closed)
}

// Width returns the image width in pixels.
func (e *Editor) Width() int { return e.width }

// Height returns the image height in pixels.
func (e *Editor) Height() int { return e.height }

// Bounds returns the image rectangle in pixels.
func (e *Editor) Bounds() image.Rectangle { return image.Rect(0, 0, e.width, e.height) }

// PixelData returns the color of every pixel, row by row. The slice is
// replaced, not modified, when the pixels change.
func (e *Editor) PixelData() []gfx.Color { return e.colors }

// PixelIndex returns the index in PixelData of pixel (x, y).
func (e *Editor) PixelIndex(x, y int) int { return y*e.width + x }

// PixelValue returns the raw value of pixel (x, y). For tilemaps and for 8
// bit images drawn with 16 color palettes the hardware palette page is held
// in the bits above the color index.
func (e *Editor) PixelValue(x, y int) int { return e.pixels.At(x, y) }

// Palette returns the palette state of the current palette page.
func (e *Editor) Palette() *Palette { return e.pal }

// Tool returns the selected tool.
func (e *Editor) Tool() Tool { return e.tool }

// SetTool selects the tool used by ToolDown, Hover and ToolUp.
func (e *Editor) SetTool(t Tool) {
	if t == e.tool {
		return
	}
	e.tool = t
	if t == ToolSelect {
		e.setHighlight(e.selection)
	} else {
		e.setHighlight(image.Rectangle{})
	}
	e.notify(ToolChanged)
}

// CursorSize returns the width and height of the brush.
func (e *Editor) CursorSize() int { return e.cursorSize }

// SetCursorSize sets the brush size, between 1 and 8 pixels.
func (e *Editor) SetCursorSize(n int) {
	e.cursorSize = clamp(n, 1, maxCursorSize)
}

// ShowSelectionRect reports whether pixel (x, y) should be highlighted,
// either because it lies under the cursor or selection or because it uses
// the hovered palette color.
func (e *Editor) ShowSelectionRect(x, y int) bool {
	p := image.Pt(x, y)
	if p.In(e.highlight) {
		return true
	}
	if h := e.pal.Hover(); h >= 0 && p.In(e.Bounds()) {
		return e.pixels.At(x, y) == e.drawValue(h)
	}
	return false
}

func (e *Editor) setHighlight(r image.Rectangle) {
	r = r.Intersect(e.Bounds())
	if r == e.highlight {
		return
	}
	e.highlight = r
	e.notify(SelectionChanged)
}

// Undo reverts the last gesture or command.
func (e *Editor) Undo() {
	if e.gesture == nil && e.history.Undo() {
		e.Refresh()
	}
}

// Redo reapplies the last undone gesture or command.
func (e *Editor) Redo() {
	if e.gesture == nil && e.history.Redo() {
		e.Refresh()
	}
}

// Refresh rederives pixels and colors from the model, after edits made
// outside the editor.
func (e *Editor) Refresh() {
	e.render()
}

// canvas holds the decoded runs an edit works on.
type canvas struct {
	pixels      []byte
	tilemap     []byte
	origPixels  []byte
	origTilemap []byte
}

func (e *Editor) find(ref runRef) (*romgfx.Run, error) {
	if r := ref.resolve(e.model); r != nil {
		return r, nil
	}
	return nil, errMissingRun
}

func (e *Editor) load() (*canvas, error) {
	c := new(canvas)

	tiles, err := e.find(e.tiles)
	if err != nil {
		return nil, err
	}
	if c.pixels, err = e.model.Decode(tiles); err != nil {
		return nil, err
	}
	c.origPixels = slices.Clone(c.pixels)

	if e.kind == romgfx.KindTilemap {
		tilemap, err := e.find(e.image)
		if err != nil {
			return nil, err
		}
		if c.tilemap, err = e.model.Decode(tilemap); err != nil {
			return nil, err
		}
		c.origTilemap = slices.Clone(c.tilemap)
	}

	e.measure(c, tiles)

	return c, nil
}

func (e *Editor) measure(c *canvas, tiles *romgfx.Run) {
	e.bpp = tiles.Format.BitsPerPixel
	e.layout = tiles.Layout(len(c.pixels))

	if e.kind == romgfx.KindTilemap {
		if r := e.image.resolve(e.model); r != nil {
			e.mapLayout = r.TilemapLayout()
		}
		b := e.mapLayout.Bounds()
		e.width, e.height = b.Dx(), b.Dy()
		e.spritePages = 1
	} else {
		e.width, e.height = e.layout.Width(), e.layout.Height()
		e.spritePages = tiles.Pages(len(c.pixels))
	}
	e.spritePage = clamp(e.spritePage, 0, e.spritePages-1)
}

func (c *canvas) dirty() bool {
	return !slices.Equal(c.pixels, c.origPixels) || !slices.Equal(c.tilemap, c.origTilemap)
}

// store writes the changed parts of c back to the model inside the open
// transaction and rerenders.
func (e *Editor) store(c *canvas) error {
	d := e.history.Current()
	if d == nil {
		return romgfx.ErrNoTransaction
	}

	if !slices.Equal(c.pixels, c.origPixels) {
		run, err := e.find(e.tiles)
		if err != nil {
			return err
		}
		if run, err = e.model.WriteRunData(d, run, c.pixels); err != nil {
			return err
		}
		e.tiles = refOf(run)
		if e.kind != romgfx.KindTilemap {
			e.image = e.tiles
		}
	}

	if !slices.Equal(c.tilemap, c.origTilemap) {
		run, err := e.find(e.image)
		if err != nil {
			return err
		}
		if run, err = e.model.WriteRunData(d, run, c.tilemap); err != nil {
			return err
		}
		e.image = refOf(run)
	}

	e.render()
	return nil
}

func (e *Editor) loadPalette() {
	e.pages, e.blank, e.colorsPerPage = nil, 0, 1<<uint(e.bpp)

	if e.hasPalette {
		run, err := e.find(e.palette)
		if err == nil {
			var data []byte
			if data, err = e.model.Decode(run); err == nil {
				pl := run.PaletteLayout()
				for i := 0; i < pl.Pages(len(data)); i++ {
					e.pages = append(e.pages, pl.ReadPage(data, i))
				}
				e.blank, e.colorsPerPage = pl.InitialBlankPages, pl.ColorsPerPage()
			}
		}
		if err != nil {
			e.logger.Error("cannot read palette", "error", err)
		}
	}

	if len(e.pages) == 0 {
		e.pages = [][]gfx.Color{gfx.Grayscale(e.colorsPerPage)}
	}
	e.palettePage = clamp(e.palettePage, 0, len(e.pages)-1)
}

// render rederives the pixel grid, pixel colors and palette, sending an
// event for each that changed.
func (e *Editor) render() {
	c, err := e.load()
	if err != nil {
		e.logger.Error("cannot read image", "error", err)
		return
	}
	e.loadPalette()

	g := gfx.NewGrid(e.width, e.height)
	colors := make([]gfx.Color, e.width*e.height)
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			v := e.readPixel(c, x, y)
			g.Set(x, y, v)
			colors[e.PixelIndex(x, y)] = e.colorOf(v)
		}
	}

	changed := e.pixels == nil || !slices.Equal(g.Pix, e.pixels.Pix) || !slices.Equal(colors, e.colors)
	e.pixels, e.colors = g, colors

	paletteChanged := e.pal.setColors(e.pages[e.palettePage])

	if changed {
		e.notify(PixelsChanged)
	}
	if paletteChanged {
		e.notify(PaletteChanged)
	}
}

// pagedTiles reports whether pixel values carry the palette page of their
// tilemap cell.
func (e *Editor) pagedTiles() bool {
	return e.kind == romgfx.KindTilemap && e.bpp == 4
}

// pagedPixels reports whether 8 bit pixel values select a 16 color page
// themselves.
func (e *Editor) pagedPixels() bool {
	return e.kind != romgfx.KindTilemap && e.bpp == 8 && e.colorsPerPage == 16
}

func (e *Editor) paged() bool { return e.pagedTiles() || e.pagedPixels() }

func (e *Editor) hardwarePage() int { return e.palettePage + e.blank }

// drawValue returns the pixel value that draws color index of the current
// palette page.
func (e *Editor) drawValue(index int) int {
	if e.paged() {
		return e.hardwarePage()<<4 | index
	}
	return index
}

// split returns the color index and stored palette page of pixel value v.
func (e *Editor) split(v int) (index, page int) {
	if e.paged() {
		return v & 0xf, v>>4 - e.blank
	}
	return v, e.palettePage
}

func (e *Editor) colorOf(v int) gfx.Color {
	index, page := e.split(v)
	if !e.hasPalette {
		page = 0
	}
	if page < 0 || page >= len(e.pages) {
		return 0
	}
	colors := e.pages[page]
	if index < 0 || index >= len(colors) {
		return 0
	}
	return colors[index]
}

func (e *Editor) readPixel(c *canvas, x, y int) int {
	if e.kind != romgfx.KindTilemap {
		return e.layout.ReadPixel(c.pixels, x, y, e.spritePage)
	}
	t, tx, ty, ok := e.mapLayout.Resolve(c.tilemap, x, y)
	if !ok {
		return 0
	}
	v := e.layout.ReadTilePixel(c.pixels, t.Index, tx, ty)
	if e.pagedTiles() {
		v |= t.Palette << 4
	}
	return v
}

// editable reports whether pixel (x, y) can be changed; pixels of tilemap
// cells using another palette page cannot.
func (e *Editor) editable(c *canvas, x, y int) bool {
	if !image.Pt(x, y).In(e.Bounds()) {
		return false
	}
	if !e.pagedTiles() {
		return true
	}
	cell, _ := e.mapLayout.Cell(x, y)
	return gfx.ReadTileData(c.tilemap, cell).Palette == e.hardwarePage()
}

// editableAt is editable using the last rendered pixels.
func (e *Editor) editableAt(x, y int) bool {
	if !image.Pt(x, y).In(e.Bounds()) {
		return false
	}
	return !e.pagedTiles() || e.pixels.At(x, y)>>4 == e.hardwarePage()
}

func (e *Editor) writePixel(c *canvas, x, y, v int) {
	if !e.editable(c, x, y) {
		return
	}
	if e.kind != romgfx.KindTilemap {
		e.layout.WritePixel(c.pixels, x, y, e.spritePage, v)
		return
	}
	t, tx, ty, _ := e.mapLayout.Resolve(c.tilemap, x, y)
	if e.pagedTiles() {
		v &= 0xf
	}
	e.layout.WriteTilePixel(c.pixels, t.Index, tx, ty, v)
}

// writeGrid writes every pixel of g that differs from the rendered pixels.
func (e *Editor) writeGrid(c *canvas, g *gfx.Grid) {
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			if v := g.At(x, y); v != e.pixels.At(x, y) {
				e.writePixel(c, x, y, v)
			}
		}
	}
}

// claimTiles moves every tilemap cell lying entirely within r onto the
// current palette page.
func (e *Editor) claimTiles(c *canvas, r image.Rectangle) {
	if !e.pagedTiles() {
		return
	}
	for cell := 0; cell < e.mapLayout.Cells(); cell++ {
		if !e.mapLayout.CellBounds(cell).In(r) {
			continue
		}
		t := gfx.ReadTileData(c.tilemap, cell)
		t.Palette = e.hardwarePage()
		gfx.WriteTileData(c.tilemap, cell, t)
	}
}

// SpritePage returns the page being edited.
func (e *Editor) SpritePage() int { return e.spritePage }

// SpritePages returns the number of pages in the image.
func (e *Editor) SpritePages() int { return e.spritePages }

// SetSpritePage selects the page to edit.
func (e *Editor) SetSpritePage(page int) {
	if page < 0 || page >= e.spritePages || page == e.spritePage {
		return
	}
	e.spritePage = page
	e.notify(PagesChanged)
	e.render()
}

// PalettePage returns the palette page in use, not counting blank pages.
func (e *Editor) PalettePage() int { return e.palettePage }

// PalettePages returns the number of stored palette pages.
func (e *Editor) PalettePages() int { return len(e.pages) }

// SetPalettePage selects the palette page used for drawing and display.
func (e *Editor) SetPalettePage(page int) {
	if page < 0 || page >= len(e.pages) || page == e.palettePage {
		return
	}
	e.palettePage = page
	e.notify(PagesChanged)
	e.render()
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
