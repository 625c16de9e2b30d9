package editor

import "image"

// Scale returns the zoom level, the size of one pixel in screen units.
func (e *Editor) Scale() int { return e.scale }

// Offset returns the screen position of the centre of the image.
func (e *Editor) Offset() image.Point { return e.offset }

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ToPixel returns the pixel under screen point p.
func (e *Editor) ToPixel(p image.Point) image.Point {
	return image.Pt(
		floorDiv(p.X-e.offset.X, e.scale)+e.width/2,
		floorDiv(p.Y-e.offset.Y, e.scale)+e.height/2,
	)
}

// rescale converts a distance between screen scales, keeping the remainder
// so that converting back is exact.
func rescale(d, from, to int) int {
	return d/from*to + d%from
}

func (e *Editor) zoom(p image.Point, scale int) {
	if scale < minScale || scale > maxScale {
		return
	}
	d := e.offset.Sub(p)
	from := e.scale
	e.scale = scale
	e.setOffset(p.Add(image.Pt(rescale(d.X, from, scale), rescale(d.Y, from, scale))))
}

// ZoomIn increases the scale by one, keeping the pixel under p in place.
func (e *Editor) ZoomIn(p image.Point) { e.zoom(p, e.scale+1) }

// ZoomOut decreases the scale by one, keeping the pixel under p in place.
func (e *Editor) ZoomOut(p image.Point) { e.zoom(p, e.scale-1) }

// setOffset moves the image, keeping at least part of it on screen.
func (e *Editor) setOffset(p image.Point) {
	lx, ly := e.width*e.scale/2, e.height*e.scale/2
	p = image.Pt(clamp(p.X, -lx, lx), clamp(p.Y, -ly, ly))
	if p == e.offset {
		return
	}
	e.offset = p
	e.notify(OffsetChanged)
}
