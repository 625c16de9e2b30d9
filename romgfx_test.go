package romgfx

import (
	"bytes"
	"context"
	"testing"

	"github.com/bodgit/romgfx/lz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blank(n int) []byte {
	return bytes.Repeat([]byte{FreeByte}, n)
}

func sprite(start int, pointers ...int) Run {
	return Run{
		Name:     "sprite",
		Kind:     KindSprite,
		Start:    start,
		Format:   Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1},
		Pointers: pointers,
	}
}

// newSpriteModel returns a model with a single page raw 4bpp 8x8 sprite at
// 0x08, referenced by pointers at 0x00 and 0x04, with one byte of unrelated
// data immediately after it.
func newSpriteModel(t *testing.T) (*Model, *Run) {
	t.Helper()

	data := blank(0x100)
	for i := 0; i < 32; i++ {
		data[0x08+i] = byte(i + 1)
	}
	data[0x28] = 0x00

	m := New(data)
	require.NoError(t, m.WritePointer(nil, 0x00, 0x08))
	require.NoError(t, m.WritePointer(nil, 0x04, 0x08))

	r, err := m.Register(nil, sprite(0x08, 0x04, 0x00))
	require.NoError(t, err)

	return m, r
}

func TestRegister(t *testing.T) {
	m, r := newSpriteModel(t)

	assert.Equal(t, 32, r.Length)
	assert.Equal(t, 1, r.Format.Pages)
	assert.Equal(t, []int{0x00, 0x04}, r.Pointers)
	assert.Equal(t, r, m.Lookup(0x08))
	assert.Equal(t, r, m.RunAt(0x27))
	assert.Equal(t, r, m.Anchor("sprite"))
	assert.Nil(t, m.RunAt(0x28))
	assert.Nil(t, m.Lookup(0x09))
	assert.Equal(t, []int{0x00, 0x04}, m.PointersOf(r))

	_, err := m.Register(nil, Run{Kind: KindPalette, Start: 0x20, Format: Format{BitsPerPixel: 4}})
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = m.Register(nil, Run{Kind: KindPalette, Start: 0x40, Format: Format{BitsPerPixel: 4}, Pointers: []int{0x80}})
	assert.ErrorIs(t, err, ErrPointerMismatch)

	_, err = m.Register(nil, Run{Kind: KindSprite, Start: 0x40, Format: Format{BitsPerPixel: 5, TileWidth: 1, TileHeight: 1}})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = m.Register(nil, Run{Kind: KindPalette, Start: 0xf0, Format: Format{BitsPerPixel: 4}})
	assert.ErrorIs(t, err, ErrOutOfRange)

	// Same start replaces the existing run
	r2, err := m.Register(nil, Run{Name: "palette", Kind: KindPalette, Start: 0x08, Format: Format{BitsPerPixel: 4}})
	require.NoError(t, err)
	assert.Equal(t, r2, m.Lookup(0x08))
	assert.Nil(t, m.Anchor("sprite"))
	assert.Len(t, m.Runs(), 1)
}

func TestRelocateWithTrailingData(t *testing.T) {
	m, r := newSpriteModel(t)
	h := NewHistory(m)
	before := append([]byte(nil), m.Bytes()...)

	page0, err := m.Decode(r)
	require.NoError(t, err)

	grown := append(append([]byte(nil), page0...), bytes.Repeat([]byte{0x11}, 32)...)

	var moved *Run
	require.NoError(t, h.Do(func(d *Delta) error {
		moved, err = m.WriteRunData(d, r, grown)
		return err
	}))

	assert.Equal(t, 0x2c, moved.Start)
	assert.Equal(t, 64, moved.Length)
	assert.Equal(t, 2, moved.Format.Pages)
	assert.Nil(t, m.Lookup(0x08))
	assert.Equal(t, moved, m.Anchor("sprite"))
	assert.Equal(t, byte(0x00), m.ByteAt(0x28))
	assert.Equal(t, blank(32), m.Bytes()[0x08:0x28])

	for _, p := range []int{0x00, 0x04} {
		dest, err := m.ReadPointer(p)
		require.NoError(t, err)
		assert.Equal(t, 0x2c, dest)
	}

	out, err := m.Decode(moved)
	require.NoError(t, err)
	assert.Equal(t, grown, out)

	require.True(t, h.Undo())
	assert.Equal(t, before, m.Bytes())
	assert.NotNil(t, m.Lookup(0x08))
	assert.Nil(t, m.Lookup(0x2c))
	assert.False(t, h.Undo())

	require.True(t, h.Redo())
	dest, err := m.ReadPointer(0x00)
	require.NoError(t, err)
	assert.Equal(t, 0x2c, dest)
	assert.Equal(t, 64, m.Anchor("sprite").Length)
}

func TestRelocateInPlace(t *testing.T) {
	data := blank(0x80)
	m := New(data)
	r, err := m.Register(nil, sprite(0x10))
	require.NoError(t, err)

	// Raw runs round up to whole pages
	next, err := m.RelocateForExpansion(new(Delta), r, 33)
	require.NoError(t, err)
	assert.Equal(t, 0x10, next.Start)
	assert.Equal(t, 64, next.Length)
	assert.Equal(t, 2, next.Format.Pages)

	same, err := m.RelocateForExpansion(nil, next, 64)
	require.NoError(t, err)
	assert.Equal(t, next, same)
}

func TestRelocateAllocation(t *testing.T) {
	data := blank(0x40)
	m := New(data)
	require.NoError(t, m.WritePointer(nil, 0x00, 0x08))
	m.Bytes()[0x28] = 0
	r, err := m.Register(nil, sprite(0x08, 0x00))
	require.NoError(t, err)

	h := NewHistory(m)
	before := append([]byte(nil), m.Bytes()...)

	err = h.Do(func(d *Delta) error {
		if err := m.SetByte(d, 0x08, 0x42); err != nil {
			return err
		}
		_, err := m.RelocateForExpansion(d, r, 64)
		return err
	})
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, before, m.Bytes())
	assert.False(t, h.CanUndo())
	assert.Nil(t, h.Current())
}

func TestCompressedPagesPreserved(t *testing.T) {
	pages := make([]byte, 64)
	for i := 32; i < 64; i++ {
		pages[i] = byte(i)
	}
	stream, err := lz.Compress(pages)
	require.NoError(t, err)

	data := blank(0x200)
	copy(data[0x10:], stream)
	data[0x10+len(stream)] = 0 // trailing data forces a move on growth

	m := New(data)
	require.NoError(t, m.WritePointer(nil, 0x00, 0x10))

	run := sprite(0x10, 0x00)
	run.Compressed = true
	r, err := m.Register(nil, run)
	require.NoError(t, err)
	assert.Equal(t, len(stream), r.Length)
	assert.Equal(t, 2, r.Pages(64))

	// Add a third page of noise so the stream grows.
	grown := append(append([]byte(nil), pages...), make([]byte, 32)...)
	for i := 64; i < 96; i++ {
		grown[i] = byte(i * 37)
	}

	d := new(Delta)
	moved, err := m.WriteRunData(d, r, grown)
	require.NoError(t, err)
	assert.NotEqual(t, 0x10, moved.Start)
	assert.Zero(t, moved.Start%alignment)

	out, err := m.Decode(moved)
	require.NoError(t, err)
	assert.Equal(t, pages, out[:64])
	assert.Equal(t, grown, out)

	dest, err := m.ReadPointer(0x00)
	require.NoError(t, err)
	assert.Equal(t, moved.Start, dest)

	m.Revert(d)
	out, err = m.Decode(m.Lookup(0x10))
	require.NoError(t, err)
	assert.Equal(t, pages, out)
}

func TestWriteRunDataShrinks(t *testing.T) {
	m := New(blank(0x80))
	run := sprite(0x10)
	run.Format.Pages = 2
	r, err := m.Register(nil, run)
	require.NoError(t, err)
	assert.Equal(t, 64, r.Length)

	r, err = m.WriteRunData(nil, r, make([]byte, 32))
	require.NoError(t, err)
	assert.Equal(t, 32, r.Length)
	assert.Equal(t, 1, r.Format.Pages)
	assert.Equal(t, blank(32), m.Bytes()[0x30:0x50])

	_, err = m.WriteRunData(nil, r, make([]byte, 33))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestHistory(t *testing.T) {
	m := New(blank(0x10))
	h := NewHistory(m)

	assert.ErrorIs(t, h.Commit(), ErrNoTransaction)
	assert.ErrorIs(t, h.Abort(), ErrNoTransaction)

	d, err := h.Begin()
	require.NoError(t, err)
	_, err = h.Begin()
	assert.ErrorIs(t, err, ErrTransactionOpen)

	require.NoError(t, m.SetByte(d, 3, 1))
	require.NoError(t, m.SetByte(d, 3, 2))
	require.NoError(t, m.SetByte(d, 1, 7))
	assert.Equal(t, []int{3, 1}, d.Addresses())
	require.NoError(t, h.Commit())

	// Nothing changed, nothing recorded
	require.NoError(t, h.Do(func(d *Delta) error {
		return m.SetByte(d, 3, 2)
	}))

	require.True(t, h.Undo())
	assert.Equal(t, blank(0x10), m.Bytes())
	assert.False(t, h.CanUndo())
	require.True(t, h.Redo())
	assert.Equal(t, byte(2), m.ByteAt(3))
	assert.Equal(t, byte(7), m.ByteAt(1))

	assert.ErrorIs(t, m.SetByte(nil, 0x10, 0), ErrOutOfRange)
}

func TestParseFormat(t *testing.T) {
	tables := []struct {
		in         string
		kind       Kind
		compressed bool
		format     Format
	}{
		{"lzs4x1x1", KindSprite, true, Format{BitsPerPixel: 4, TileWidth: 1, TileHeight: 1}},
		{"ucs8x2x2:3", KindSprite, false, Format{BitsPerPixel: 8, TileWidth: 2, TileHeight: 2, Pages: 3}},
		{"lzp4", KindPalette, true, Format{BitsPerPixel: 4}},
		{"ucp4:2+1|font", KindPalette, false, Format{BitsPerPixel: 4, Pages: 2, InitialBlankPages: 1, Hint: "font"}},
		{"lzp4+2", KindPalette, true, Format{BitsPerPixel: 4, InitialBlankPages: 2}},
		{"lzt4|palette", KindTileset, true, Format{BitsPerPixel: 4, Hint: "palette"}},
		{"uct4:64", KindTileset, false, Format{BitsPerPixel: 4, Pages: 64}},
		{"lzm4x30x20|tiles", KindTilemap, true, Format{BitsPerPixel: 4, TileWidth: 30, TileHeight: 20, Hint: "tiles"}},
	}

	for _, table := range tables {
		t.Run(table.in, func(t *testing.T) {
			kind, compressed, format, err := ParseFormat(table.in)
			require.NoError(t, err)
			assert.Equal(t, table.kind, kind)
			assert.Equal(t, table.compressed, compressed)
			assert.Equal(t, table.format, format)

			r := Run{Kind: kind, Compressed: compressed, Format: format}
			assert.Equal(t, table.in, r.FormatString())
		})
	}

	for _, bad := range []string{"", "lzs4", "lzp4x1x1", "lzs4x1x1:2", "ucs6x1x1", "lzs4x1x1+1", "zzp4"} {
		_, _, _, err := ParseFormat(bad)
		assert.ErrorIs(t, err, ErrInvalidFormat, bad)
	}
}

func TestScan(t *testing.T) {
	p := make([]byte, 96)
	for i := range p {
		p[i] = byte(i % 7)
	}
	stream, err := lz.Compress(p)
	require.NoError(t, err)

	data := blank(0x400)
	copy(data[0x20:], stream)
	copy(data[0x200:], stream)
	// Too short to be graphics
	copy(data[0x300:], []byte{0x10, 0x04, 0x00, 0x00, 0x00, 1, 2, 3, 4})

	m := New(data)
	found, err := m.Scan(context.Background(), WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Start: 0x20, Length: len(stream), DecodedLength: 96},
		{Start: 0x200, Length: len(stream), DecodedLength: 96},
	}, found)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Scan(ctx)
	assert.Error(t, err)
}
