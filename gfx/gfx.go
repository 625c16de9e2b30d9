/*
Package gfx maps between the raw bytes of Game Boy Advance graphics data and
pixel grids, palettes and tilemap cells.

Sprites and tilesets are stored as 8 by 8 pixel tiles, left to right and then
top to bottom, with each tile stored row by row. At 4 bits per pixel the left
pixel of each pair is held in the low nibble. Palettes are pages of 16-bit
little-endian colors with five bits each of red, green and blue, red in the
low bits. Tilemap cells are 16-bit little-endian records holding a tile
number, flip flags and a palette page.
*/
package gfx

const (
	// TileSize is the width and height of a tile in pixels.
	TileSize   = 8
	tilePixels = TileSize * TileSize

	// CellSize is the size in bytes of one tilemap cell.
	CellSize = 2

	colorSize = 2
)

func lowerNibble(b byte) byte {
	return b & 0x0f
}

func upperNibble(b byte) byte {
	return b & 0xf0
}
