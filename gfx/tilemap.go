package gfx

import "image"

const (
	tileIndexMask = 0x03ff
	hflipBit      = 1 << 10
	vflipBit      = 1 << 11
	paletteShift  = 12
)

// Tile is one decoded tilemap cell.
type Tile struct {
	Index   int
	HFlip   bool
	VFlip   bool
	Palette int // hardware palette page
}

// ReadTileData decodes cell number cell. Cells beyond the end of data read as
// the zero Tile.
func ReadTileData(data []byte, cell int) Tile {
	i := cell * CellSize
	if cell < 0 || i+CellSize > len(data) {
		return Tile{}
	}
	v := int(data[i]) | int(data[i+1])<<8
	return Tile{
		Index:   v & tileIndexMask,
		HFlip:   v&hflipBit != 0,
		VFlip:   v&vflipBit != 0,
		Palette: v >> paletteShift,
	}
}

// WriteTileData encodes t into cell number cell.
func WriteTileData(data []byte, cell int, t Tile) bool {
	i := cell * CellSize
	if cell < 0 || i+CellSize > len(data) {
		return false
	}
	v := t.Index&tileIndexMask | t.Palette<<paletteShift
	if t.HFlip {
		v |= hflipBit
	}
	if t.VFlip {
		v |= vflipBit
	}
	data[i] = byte(v)
	data[i+1] = byte(v >> 8)
	return true
}

// TilemapLayout describes a tilemap of Width by Height cells whose tiles use
// BitsPerPixel.
type TilemapLayout struct {
	BitsPerPixel int
	Width        int // in tiles
	Height       int // in tiles
}

// Bounds returns the map rectangle in pixels.
func (m TilemapLayout) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width*TileSize, m.Height*TileSize)
}

// Cells returns the number of cells.
func (m TilemapLayout) Cells() int { return m.Width * m.Height }

// PageBytes returns the size of the map in bytes.
func (m TilemapLayout) PageBytes() int { return m.Cells() * CellSize }

// Cell returns the cell number under pixel (x, y).
func (m TilemapLayout) Cell(x, y int) (int, bool) {
	if !image.Pt(x, y).In(m.Bounds()) {
		return 0, false
	}
	return (y/TileSize)*m.Width + x/TileSize, true
}

// CellBounds returns the pixel rectangle covered by cell.
func (m TilemapLayout) CellBounds(cell int) image.Rectangle {
	x, y := cell%m.Width*TileSize, cell/m.Width*TileSize
	return image.Rect(x, y, x+TileSize, y+TileSize)
}

// Resolve returns the cell shown at pixel (x, y) and the coordinates within
// that cell's tile after applying its flips.
func (m TilemapLayout) Resolve(data []byte, x, y int) (Tile, int, int, bool) {
	cell, ok := m.Cell(x, y)
	if !ok {
		return Tile{}, 0, 0, false
	}
	t := ReadTileData(data, cell)
	tx, ty := x%TileSize, y%TileSize
	if t.HFlip {
		tx = TileSize - 1 - tx
	}
	if t.VFlip {
		ty = TileSize - 1 - ty
	}
	return t, tx, ty, true
}
