package editor

import (
	"image"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/gfx"
)

type option struct {
	image      runRef
	palette    runRef
	hasPalette bool
}

// EditOption is an image and palette pair the editor can switch between.
// PaletteStart is -1 when there is no palette.
type EditOption struct {
	ImageName    string
	ImageStart   int
	PaletteName  string
	PaletteStart int
}

// findOptions pairs r, and other images related to it through hints, with
// every palette related to it. The first option is the pair the editor was
// opened with.
func (e *Editor) findOptions(r *romgfx.Run) []option {
	if r.Kind == romgfx.KindTilemap {
		return []option{{image: e.image, palette: e.palette, hasPalette: e.hasPalette}}
	}

	images := []runRef{e.image}
	var palettes []runRef
	if e.hasPalette {
		palettes = append(palettes, e.palette)
	}

	related := func(o *romgfx.Run) bool {
		return (r.Name != "" && o.Format.Hint == r.Name) || (r.Format.Hint != "" && o.Format.Hint == r.Format.Hint)
	}

	for _, o := range e.model.Runs() {
		if o.Start == r.Start || !related(o) {
			continue
		}
		switch o.Kind {
		case romgfx.KindSprite, romgfx.KindTileset:
			if o.Format.BitsPerPixel == r.Format.BitsPerPixel {
				images = append(images, refOf(o))
			}
		case romgfx.KindPalette:
			if !e.hasPalette || o.Start != e.palette.start {
				palettes = append(palettes, refOf(o))
			}
		}
	}

	var options []option
	for _, img := range images {
		if len(palettes) == 0 {
			options = append(options, option{image: img})
		}
		for _, pal := range palettes {
			options = append(options, option{image: img, palette: pal, hasPalette: true})
		}
	}
	return options
}

// EditOptions returns the image and palette pairs available.
func (e *Editor) EditOptions() []EditOption {
	options := make([]EditOption, 0, len(e.options))
	for _, o := range e.options {
		eo := EditOption{ImageStart: -1, PaletteStart: -1}
		if r := o.image.resolve(e.model); r != nil {
			eo.ImageName, eo.ImageStart = r.Name, r.Start
		}
		if o.hasPalette {
			if r := o.palette.resolve(e.model); r != nil {
				eo.PaletteName, eo.PaletteStart = r.Name, r.Start
			}
		}
		options = append(options, eo)
	}
	return options
}

// SelectedEditOption returns the index of the pair being edited.
func (e *Editor) SelectedEditOption() int { return e.option }

// SelectEditOption switches to another image and palette pair, keeping the
// page selections within range.
func (e *Editor) SelectEditOption(i int) {
	if i == e.option || i < 0 || i >= len(e.options) || e.gesture != nil {
		return
	}
	o := e.options[i]
	r := o.image.resolve(e.model)
	if r == nil {
		return
	}

	e.option = i
	e.kind = r.Kind
	e.image, e.tiles = o.image, o.image
	e.palette, e.hasPalette = o.palette, o.hasPalette
	e.clearBlock()
	e.setSelection(image.Rectangle{})

	e.render()
	e.notify(PagesChanged)
}

// CanEditTilePalettes reports whether the image is a tilemap whose cells
// each choose a palette page.
func (e *Editor) CanEditTilePalettes() bool { return e.pagedTiles() }

// TilePalettes returns the hardware palette page of every tilemap cell.
func (e *Editor) TilePalettes() []int {
	if !e.pagedTiles() {
		return nil
	}
	c, err := e.load()
	if err != nil {
		return nil
	}
	pages := make([]int, e.mapLayout.Cells())
	for i := range pages {
		pages[i] = gfx.ReadTileData(c.tilemap, i).Palette
	}
	return pages
}

// SetTilePalette sets the hardware palette page of tilemap cell.
func (e *Editor) SetTilePalette(cell, page int) error {
	if !e.pagedTiles() || cell < 0 || cell >= e.mapLayout.Cells() {
		return nil
	}
	if page < e.blank || page >= e.blank+len(e.pages) {
		return nil
	}
	return e.do(func(*romgfx.Delta) error {
		c, err := e.load()
		if err != nil {
			return err
		}
		t := gfx.ReadTileData(c.tilemap, cell)
		t.Palette = page
		gfx.WriteTileData(c.tilemap, cell, t)
		if !c.dirty() {
			return nil
		}
		return e.store(c)
	})
}

// ImportImage replaces the current page with m, which must be the same
// size, reducing it to the colors of one palette page and writing those
// colors over the current palette page.
func (e *Editor) ImportImage(m image.Image) error {
	if e.kind == romgfx.KindTilemap {
		return errUnsupported
	}

	g, colors, err := e.layout.FromImage(m, min(e.colorsPerPage, 1<<uint(e.bpp)))
	if err != nil {
		return err
	}

	return e.do(func(d *romgfx.Delta) error {
		c, err := e.load()
		if err != nil {
			return err
		}
		for y := 0; y < e.height; y++ {
			for x := 0; x < e.width; x++ {
				e.writePixel(c, x, y, e.drawValue(g.At(x, y)))
			}
		}
		if c.dirty() {
			if err := e.store(c); err != nil {
				return err
			}
		}
		if !e.hasPalette {
			return nil
		}
		return e.storeColors(d, 0, colors)
	})
}
