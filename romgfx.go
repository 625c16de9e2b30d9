/*
Package romgfx edits graphics stored inside a flat, pointer-addressed binary
image such as a Game Boy Advance ROM.

Graphics are registered with a Model as runs: sprites, palettes, tilesets and
tilemaps, each either raw or LZ77 compressed. A run knows the addresses of the
pointers that reference it, so when an edit needs more room than the run
occupies the run can be moved into free space and every pointer rewritten.
Every byte and registry change is recorded in a Delta, and a History groups
deltas into undoable transactions.
*/
package romgfx

import (
	"errors"
	"fmt"

	"github.com/bodgit/romgfx/gfx"
)

const (
	// FreeByte marks unused space. Runs are only moved into ranges filled with
	// it, and the range a run leaves behind is cleared to it.
	FreeByte = 0xff

	// PointerSize is the size in bytes of a stored pointer.
	PointerSize = 4

	alignment = 4
)

// Sentinel errors, wrapped with context by the operations that return them.
var (
	ErrAllocation      = errors.New("romgfx: no free space")
	ErrOverlap         = errors.New("romgfx: runs overlap")
	ErrPointerMismatch = errors.New("romgfx: pointer does not reference run")
	ErrInvalidFormat   = errors.New("romgfx: invalid format")
	ErrOutOfRange      = errors.New("romgfx: address out of range")
	ErrNoTransaction   = errors.New("romgfx: no open transaction")
	ErrTransactionOpen = errors.New("romgfx: transaction already open")
)

// Kind is the logical type of a run.
type Kind int

// Run kinds.
const (
	KindSprite Kind = iota + 1
	KindPalette
	KindTileset
	KindTilemap
)

func (k Kind) String() string {
	switch k {
	case KindSprite:
		return "sprite"
	case KindPalette:
		return "palette"
	case KindTileset:
		return "tileset"
	case KindTilemap:
		return "tilemap"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Format is the logical shape of a run. Not every field applies to every
// kind.
type Format struct {
	BitsPerPixel int

	// TileWidth and TileHeight are in 8 by 8 pixel tiles. Sprites and
	// tilemaps only.
	TileWidth  int
	TileHeight int

	// Pages is the declared page count of a raw run; for raw tilesets it is
	// the tile count. Compressed runs work it out from their decoded length.
	Pages int

	// InitialBlankPages is the palette page offset, see
	// gfx.PaletteLayout.
	InitialBlankPages int

	// Hint names the anchor of a related run; the palette of a sprite or
	// tileset, or the tileset of a tilemap.
	Hint string
}

// Run is a registered region of the data. Runs returned by a Model are owned
// by it and must not be modified.
type Run struct {
	Name       string
	Kind       Kind
	Compressed bool
	Start      int
	Length     int
	Format     Format
	Pointers   []int
}

func (r *Run) clone() *Run {
	dup := *r
	dup.Pointers = append([]int(nil), r.Pointers...)
	return &dup
}

// End returns the address just past the run.
func (r *Run) End() int { return r.Start + r.Length }

// Contains reports whether addr lies within the run.
func (r *Run) Contains(addr int) bool { return addr >= r.Start && addr < r.End() }

// Layout returns the page layout of a sprite, or of a tileset holding
// decodedLength bytes of tiles.
func (r *Run) Layout(decodedLength int) gfx.Layout {
	l := gfx.Layout{
		BitsPerPixel: r.Format.BitsPerPixel,
		TileWidth:    r.Format.TileWidth,
		TileHeight:   r.Format.TileHeight,
	}
	if r.Kind == KindTileset {
		tiles := 0
		if tb := l.TileBytes(); tb > 0 {
			tiles = decodedLength / tb
		}
		l.TileWidth, l.TileHeight = tilesetShape(tiles)
	}
	return l
}

// tilesetShape picks the widest arrangement of no more than 16 columns that
// holds exactly tiles tiles.
func tilesetShape(tiles int) (int, int) {
	if tiles <= 0 {
		return 0, 0
	}
	for w := 16; w > 1; w-- {
		if tiles%w == 0 {
			return w, tiles / w
		}
	}
	return 1, tiles
}

// PaletteLayout returns the layout of a palette run.
func (r *Run) PaletteLayout() gfx.PaletteLayout {
	return gfx.PaletteLayout{
		BitsPerPixel:      r.Format.BitsPerPixel,
		InitialBlankPages: r.Format.InitialBlankPages,
	}
}

// TilemapLayout returns the layout of a tilemap run.
func (r *Run) TilemapLayout() gfx.TilemapLayout {
	return gfx.TilemapLayout{
		BitsPerPixel: r.Format.BitsPerPixel,
		Width:        r.Format.TileWidth,
		Height:       r.Format.TileHeight,
	}
}

// UnitBytes returns the granularity the run's decoded data grows by; one
// page, or one tile for tilesets.
func (r *Run) UnitBytes() int {
	switch r.Kind {
	case KindSprite:
		return r.Layout(0).PageBytes()
	case KindPalette:
		return r.PaletteLayout().PageBytes()
	case KindTileset:
		return r.Layout(0).TileBytes()
	case KindTilemap:
		return r.TilemapLayout().PageBytes()
	}
	return 0
}

// Pages returns the number of pages in decodedLength bytes of the run's data.
// Tilesets and tilemaps always have one page.
func (r *Run) Pages(decodedLength int) int {
	switch r.Kind {
	case KindTileset, KindTilemap:
		return 1
	}
	if u := r.UnitBytes(); u > 0 {
		return decodedLength / u
	}
	return 0
}

func (r *Run) validate() error {
	switch r.Kind {
	case KindSprite, KindPalette, KindTileset, KindTilemap:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidFormat, int(r.Kind))
	}
	if bpp := r.Format.BitsPerPixel; bpp != 4 && bpp != 8 {
		return fmt.Errorf("%w: %d bits per pixel", ErrInvalidFormat, bpp)
	}
	switch r.Kind {
	case KindSprite, KindTilemap:
		if r.Format.TileWidth <= 0 || r.Format.TileHeight <= 0 {
			return fmt.Errorf("%w: %dx%d tiles", ErrInvalidFormat, r.Format.TileWidth, r.Format.TileHeight)
		}
	}
	if r.Format.Pages < 0 || r.Format.InitialBlankPages < 0 {
		return fmt.Errorf("%w: negative page count", ErrInvalidFormat)
	}
	return nil
}
