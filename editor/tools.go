package editor

import (
	"image"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/gfx"
)

// tool interprets one gesture. down, hover and up run inside the gesture's
// transaction; preview runs for hovers between gestures and only changes
// what is highlighted.
type tool interface {
	down(e *Editor, p image.Point) error
	hover(e *Editor, p image.Point) error
	up(e *Editor, p image.Point) error
	preview(e *Editor, p image.Point)
}

func newTool(t Tool) tool {
	switch t {
	case ToolDraw:
		return new(drawTool)
	case ToolFill:
		return new(fillTool)
	case ToolSelect:
		return new(selectTool)
	case ToolEyeDropper:
		return new(eyeDropperTool)
	case ToolTilePalette:
		return new(tilePaletteTool)
	default:
		return new(panTool)
	}
}

type gesture struct {
	kind  Tool
	tool  tool
	saved [3]runRef
}

func (e *Editor) refs() [3]runRef { return [3]runRef{e.image, e.tiles, e.palette} }

func (e *Editor) restore(refs [3]runRef) { e.image, e.tiles, e.palette = refs[0], refs[1], refs[2] }

func (e *Editor) begin(kind Tool, p image.Point) error {
	if e.gesture != nil || e.closed {
		return nil
	}
	if _, err := e.history.Begin(); err != nil {
		return err
	}
	e.gesture = &gesture{kind: kind, tool: newTool(kind), saved: e.refs()}
	return e.step(e.gesture.tool.down, p)
}

func (e *Editor) step(fn func(*Editor, image.Point) error, p image.Point) error {
	if err := fn(e, p); err != nil {
		e.abort(err)
		return err
	}
	return nil
}

func (e *Editor) end(p image.Point) error {
	if err := e.step(e.gesture.tool.up, p); err != nil {
		return err
	}
	e.gesture = nil
	return e.history.Commit()
}

// abort reverts everything the gesture did.
func (e *Editor) abort(err error) {
	e.logger.Debug("gesture aborted", "tool", e.gesture.kind, "error", err)
	e.restore(e.gesture.saved)
	e.gesture = nil
	_ = e.history.Abort()
	e.render()
}

// do runs fn as one transaction outside any gesture.
func (e *Editor) do(fn func(*romgfx.Delta) error) error {
	if e.gesture != nil {
		return errGestureActive
	}
	saved := e.refs()
	if err := e.history.Do(fn); err != nil {
		e.logger.Debug("edit aborted", "error", err)
		e.restore(saved)
		e.render()
		return err
	}
	return nil
}

// ToolDown starts a gesture with the selected tool at screen point p.
func (e *Editor) ToolDown(p image.Point) error { return e.begin(e.tool, p) }

// Hover continues the gesture in progress, or updates the highlight if there
// is none.
func (e *Editor) Hover(p image.Point) error {
	if e.gesture == nil {
		if !e.closed {
			newTool(e.tool).preview(e, p)
		}
		return nil
	}
	return e.step(e.gesture.tool.hover, p)
}

// ToolUp finishes the gesture in progress as one undoable edit.
func (e *Editor) ToolUp(p image.Point) error {
	if e.gesture == nil {
		return nil
	}
	return e.end(p)
}

// EyeDropperDown starts an eyedropper gesture whatever tool is selected.
func (e *Editor) EyeDropperDown(p image.Point) error { return e.begin(ToolEyeDropper, p) }

// EyeDropperUp finishes an eyedropper gesture.
func (e *Editor) EyeDropperUp(p image.Point) error {
	if e.gesture == nil || e.gesture.kind != ToolEyeDropper {
		return nil
	}
	return e.end(p)
}

// PanDown starts panning whatever tool is selected.
func (e *Editor) PanDown(p image.Point) error { return e.begin(ToolPan, p) }

// PanUp finishes panning.
func (e *Editor) PanUp(p image.Point) error {
	if e.gesture == nil || e.gesture.kind != ToolPan {
		return nil
	}
	return e.end(p)
}

// cursorRect returns the brush rectangle with its top left corner at px.
func (e *Editor) cursorRect(px image.Point) image.Rectangle {
	w, h := e.cursorSize, e.cursorSize
	if e.block != nil {
		w, h = e.block.Width, e.block.Height
	}
	return image.Rect(px.X, px.Y, px.X+w, px.Y+h)
}

// previewBrush highlights the brush at px, unless nothing under it could be
// drawn on.
func (e *Editor) previewBrush(px image.Point) {
	r := e.cursorRect(px).Intersect(e.Bounds())
	if e.block == nil && !e.anyEditable(r) {
		r = image.Rectangle{}
	}
	e.setHighlight(r)
}

// anyEditable reports whether drawing over r would change anything; a brush
// covering a whole tilemap cell claims it.
func (e *Editor) anyEditable(r image.Rectangle) bool {
	if e.pagedTiles() {
		for cell := 0; cell < e.mapLayout.Cells(); cell++ {
			if e.mapLayout.CellBounds(cell).In(r) {
				return true
			}
		}
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if e.editableAt(x, y) {
				return true
			}
		}
	}
	return false
}

// line returns every pixel on the straight line from a to b inclusive.
func line(a, b image.Point) []image.Point {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	diff := dx + dy

	var pts []image.Point
	for p := a; ; {
		pts = append(pts, p)
		if p == b {
			return pts
		}
		e2 := 2 * diff
		if e2 >= dy {
			diff += dy
			p.X += sx
		}
		if e2 <= dx {
			diff += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

type drawTool struct {
	last image.Point
}

func (t *drawTool) down(e *Editor, p image.Point) error {
	t.last = e.ToPixel(p)
	e.previewBrush(t.last)
	return e.paint(t.last)
}

func (t *drawTool) hover(e *Editor, p image.Point) error {
	px := e.ToPixel(p)
	if px == t.last {
		return nil
	}
	pts := line(t.last, px)[1:]
	t.last = px
	e.previewBrush(px)
	return e.paint(pts...)
}

func (t *drawTool) up(e *Editor, p image.Point) error { return t.hover(e, p) }

func (t *drawTool) preview(e *Editor, p image.Point) { e.previewBrush(e.ToPixel(p)) }

// paint stamps the brush, or the captured block, at each point.
func (e *Editor) paint(pts ...image.Point) error {
	c, err := e.load()
	if err != nil {
		return err
	}
	v := e.drawValue(e.pal.SelectionStart())
	for _, pt := range pts {
		r := e.cursorRect(pt)
		e.claimTiles(c, r)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if e.block != nil {
					v = e.block.At(x-r.Min.X, y-r.Min.Y)
				}
				e.writePixel(c, x, y, v)
			}
		}
	}
	if !c.dirty() {
		return nil
	}
	return e.store(c)
}

type fillTool struct {
	anchor image.Point
}

func (t *fillTool) down(e *Editor, p image.Point) error {
	t.anchor = e.ToPixel(p)
	e.previewBrush(t.anchor)
	return nil
}

func (t *fillTool) hover(e *Editor, p image.Point) error {
	e.previewBrush(e.ToPixel(p))
	return nil
}

func (t *fillTool) up(e *Editor, p image.Point) error {
	return e.fill(t.anchor, e.ToPixel(p))
}

func (t *fillTool) preview(e *Editor, p image.Point) { e.previewBrush(e.ToPixel(p)) }

// region returns the 4-connected editable pixels with the same value as
// start.
func (e *Editor) region(c *canvas, start image.Point) []image.Point {
	if !e.editable(c, start.X, start.Y) {
		return nil
	}
	want := e.pixels.At(start.X, start.Y)
	seen := make([]bool, e.width*e.height)
	seen[e.PixelIndex(start.X, start.Y)] = true

	var found []image.Point
	queue := []image.Point{start}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		found = append(found, q)
		for _, d := range []image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			n := q.Add(d)
			if !n.In(e.Bounds()) || seen[e.PixelIndex(n.X, n.Y)] {
				continue
			}
			seen[e.PixelIndex(n.X, n.Y)] = true
			if e.pixels.At(n.X, n.Y) == want && e.editable(c, n.X, n.Y) {
				queue = append(queue, n)
			}
		}
	}
	return found
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// fill floods the region around anchor. With a block captured the block is
// tiled from anchor; with several colors selected and a drag from anchor to
// end, the colors are spread along the drag in order.
func (e *Editor) fill(anchor, end image.Point) error {
	c, err := e.load()
	if err != nil {
		return err
	}

	sel := e.pal.Selection()
	v := end.Sub(anchor)
	dd := v.X*v.X + v.Y*v.Y

	for _, q := range e.region(c, anchor) {
		d := q.Sub(anchor)
		switch {
		case e.block != nil:
			e.writePixel(c, q.X, q.Y, e.block.At(mod(d.X, e.block.Width), mod(d.Y, e.block.Height)))
		case len(sel) > 1 && dd > 0:
			t := float64(d.X*v.X+d.Y*v.Y) / float64(dd)
			k := clamp(int(t*float64(len(sel))), 0, len(sel)-1)
			e.writePixel(c, q.X, q.Y, e.drawValue(sel[k]))
		default:
			e.writePixel(c, q.X, q.Y, e.drawValue(e.pal.SelectionStart()))
		}
	}

	if !c.dirty() {
		return nil
	}
	return e.store(c)
}

type panTool struct {
	start  image.Point
	origin image.Point
}

func (t *panTool) down(e *Editor, p image.Point) error {
	t.start, t.origin = p, e.offset
	return nil
}

func (t *panTool) hover(e *Editor, p image.Point) error {
	e.setOffset(t.origin.Add(p.Sub(t.start)))
	return nil
}

func (t *panTool) up(e *Editor, p image.Point) error { return t.hover(e, p) }

func (t *panTool) preview(*Editor, image.Point) {}

type eyeDropperTool struct {
	anchor image.Point
}

// pickRect returns the pixels an eyedropper drag from a to b captures; the
// cursor at a when the cursor is larger than one pixel.
func (e *Editor) pickRect(a, b image.Point) image.Rectangle {
	if e.cursorSize > 1 {
		return image.Rect(a.X, a.Y, a.X+e.cursorSize, a.Y+e.cursorSize).Intersect(e.Bounds())
	}
	return inclusive(a, b).Intersect(e.Bounds())
}

// inclusive returns the rectangle with corner pixels a and b.
func inclusive(a, b image.Point) image.Rectangle {
	r := image.Rectangle{Min: a, Max: b}.Canon()
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}

func (t *eyeDropperTool) down(e *Editor, p image.Point) error {
	t.anchor = e.ToPixel(p)
	e.setHighlight(e.pickRect(t.anchor, t.anchor))
	return nil
}

func (t *eyeDropperTool) hover(e *Editor, p image.Point) error {
	e.setHighlight(e.pickRect(t.anchor, e.ToPixel(p)))
	return nil
}

func (t *eyeDropperTool) up(e *Editor, p image.Point) error {
	px := e.ToPixel(p)
	e.setHighlight(image.Rectangle{})
	if px == t.anchor {
		e.pickColor(px)
		return nil
	}
	e.captureBlock(e.pickRect(t.anchor, px))
	return nil
}

func (t *eyeDropperTool) preview(e *Editor, p image.Point) {
	px := e.ToPixel(p)
	e.setHighlight(image.Rect(px.X, px.Y, px.X+e.cursorSize, px.Y+e.cursorSize))
}

// pickColor selects the color of pixel px, and its palette page where pixel
// values carry one.
func (e *Editor) pickColor(px image.Point) {
	if !px.In(e.Bounds()) {
		return
	}
	index, page := e.split(e.pixels.At(px.X, px.Y))
	if e.paged() {
		e.SetPalettePage(page)
	}
	e.SelectColor(index)
}

// captureBlock copies the pixels in r as a brush and switches to drawing
// with it.
func (e *Editor) captureBlock(r image.Rectangle) {
	if r.Empty() {
		return
	}
	if r.Dx() == 1 && r.Dy() == 1 {
		e.pickColor(r.Min)
		return
	}
	g := gfx.NewGrid(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			g.Set(x, y, e.pixels.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	e.block = g
	e.notify(BlockChanged)
	e.toDrawing()
}

func (e *Editor) clearBlock() {
	if e.block == nil {
		return
	}
	e.block = nil
	e.notify(BlockChanged)
}

// BlockPreview is a captured block of pixels and the scale to show it at.
type BlockPreview struct {
	Width  int
	Height int
	Scale  int
	Colors []gfx.Color
}

const blockPreviewSize = 64

// BlockPreview returns the captured block, if there is one.
func (e *Editor) BlockPreview() (BlockPreview, bool) {
	if e.block == nil {
		return BlockPreview{}, false
	}
	b := BlockPreview{
		Width:  e.block.Width,
		Height: e.block.Height,
		Scale:  max(1, blockPreviewSize/max(e.block.Width, e.block.Height)),
		Colors: make([]gfx.Color, len(e.block.Pix)),
	}
	for i, v := range e.block.Pix {
		b.Colors[i] = e.colorOf(v)
	}
	return b, true
}

type tilePaletteTool struct{}

// cellsRect returns the tilemap cells touched by the cursor at px, as a
// pixel rectangle.
func (e *Editor) cellsRect(px image.Point) image.Rectangle {
	r := image.Rect(px.X, px.Y, px.X+e.cursorSize, px.Y+e.cursorSize).Intersect(e.Bounds())
	if r.Empty() {
		return r
	}
	return image.Rect(
		floorDiv(r.Min.X, gfx.TileSize)*gfx.TileSize,
		floorDiv(r.Min.Y, gfx.TileSize)*gfx.TileSize,
		(r.Max.X+gfx.TileSize-1)/gfx.TileSize*gfx.TileSize,
		(r.Max.Y+gfx.TileSize-1)/gfx.TileSize*gfx.TileSize,
	)
}

func (t *tilePaletteTool) down(e *Editor, p image.Point) error {
	t.preview(e, p)
	return nil
}

func (t *tilePaletteTool) hover(e *Editor, p image.Point) error {
	t.preview(e, p)
	return nil
}

func (t *tilePaletteTool) up(e *Editor, p image.Point) error {
	if !e.pagedTiles() {
		return nil
	}
	c, err := e.load()
	if err != nil {
		return err
	}
	e.claimTiles(c, e.cellsRect(e.ToPixel(p)))
	if !c.dirty() {
		return nil
	}
	return e.store(c)
}

func (t *tilePaletteTool) preview(e *Editor, p image.Point) {
	if !e.pagedTiles() {
		return
	}
	e.setHighlight(e.cellsRect(e.ToPixel(p)))
}
