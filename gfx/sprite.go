package gfx

import "image"

// Layout describes one page of tiled pixel data.
type Layout struct {
	BitsPerPixel int
	TileWidth    int // in tiles
	TileHeight   int // in tiles
}

// Width returns the page width in pixels.
func (l Layout) Width() int { return l.TileWidth * TileSize }

// Height returns the page height in pixels.
func (l Layout) Height() int { return l.TileHeight * TileSize }

// Bounds returns the page rectangle in pixels.
func (l Layout) Bounds() image.Rectangle { return image.Rect(0, 0, l.Width(), l.Height()) }

// TileBytes returns the size of a single tile in bytes.
func (l Layout) TileBytes() int { return tilePixels * l.BitsPerPixel / 8 }

// PageBytes returns the size of one page in bytes.
func (l Layout) PageBytes() int { return l.TileWidth * l.TileHeight * l.TileBytes() }

// Pages returns how many whole pages fit in n bytes.
func (l Layout) Pages(n int) int {
	if pb := l.PageBytes(); pb > 0 {
		return n / pb
	}
	return 0
}

// tileOffset returns the byte offset and nibble shift of pixel (x, y) within
// tile number tile.
func (l Layout) tileOffset(tile, x, y int) (int, uint) {
	i := tile*tilePixels + y*TileSize + x
	if l.BitsPerPixel == 8 {
		return i, 0
	}
	return i >> 1, uint(i&1) << 2
}

func (l Layout) offset(x, y, page int) (int, uint, bool) {
	if !image.Pt(x, y).In(l.Bounds()) || page < 0 {
		return 0, 0, false
	}
	tile := (y/TileSize)*l.TileWidth + x/TileSize
	i, shift := l.tileOffset(tile, x%TileSize, y%TileSize)
	return page*l.PageBytes() + i, shift, true
}

func (l Layout) read(data []byte, i int, shift uint) int {
	if i < 0 || i >= len(data) {
		return 0
	}
	if l.BitsPerPixel == 8 {
		return int(data[i])
	}
	return int(lowerNibble(data[i] >> shift))
}

func (l Layout) write(data []byte, i int, shift uint, v int) bool {
	if i < 0 || i >= len(data) {
		return false
	}
	if l.BitsPerPixel == 8 {
		data[i] = byte(v)
		return true
	}
	if shift == 0 {
		data[i] = upperNibble(data[i]) | lowerNibble(byte(v))
	} else {
		data[i] = lowerNibble(data[i]) | lowerNibble(byte(v))<<4
	}
	return true
}

// ReadPixel returns the value of pixel (x, y) on page. Pixels outside the page
// or beyond the end of data read as 0.
func (l Layout) ReadPixel(data []byte, x, y, page int) int {
	i, shift, ok := l.offset(x, y, page)
	if !ok {
		return 0
	}
	return l.read(data, i, shift)
}

// WritePixel stores v at pixel (x, y) on page, reporting whether anything was
// written. Writes outside the page or beyond the end of data are dropped.
func (l Layout) WritePixel(data []byte, x, y, page, v int) bool {
	i, shift, ok := l.offset(x, y, page)
	if !ok {
		return false
	}
	return l.write(data, i, shift, v)
}

// ReadTilePixel returns pixel (x, y) of tile number tile, ignoring the page
// shape. Used for tilesets referenced by a tilemap.
func (l Layout) ReadTilePixel(data []byte, tile, x, y int) int {
	if tile < 0 || x < 0 || y < 0 || x >= TileSize || y >= TileSize {
		return 0
	}
	i, shift := l.tileOffset(tile, x, y)
	return l.read(data, i, shift)
}

// WriteTilePixel stores v at pixel (x, y) of tile number tile.
func (l Layout) WriteTilePixel(data []byte, tile, x, y, v int) bool {
	if tile < 0 || x < 0 || y < 0 || x >= TileSize || y >= TileSize {
		return false
	}
	i, shift := l.tileOffset(tile, x, y)
	return l.write(data, i, shift, v)
}

// ReadGrid decodes a whole page.
func (l Layout) ReadGrid(data []byte, page int) *Grid {
	g := NewGrid(l.Width(), l.Height())
	for ty := 0; ty < l.TileHeight; ty++ {
		for tx := 0; tx < l.TileWidth; tx++ {
			for y := 0; y < TileSize; y++ {
				for x := 0; x < TileSize; x++ {
					dx, dy := tx*TileSize+x, ty*TileSize+y
					g.Set(dx, dy, l.ReadPixel(data, dx, dy, page))
				}
			}
		}
	}
	return g
}

// WriteGrid encodes g into page. Values outside g's overlap with the page are
// left untouched.
func (l Layout) WriteGrid(data []byte, page int, g *Grid) {
	r := l.Bounds().Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			l.WritePixel(data, x, y, page, g.At(x, y))
		}
	}
}
