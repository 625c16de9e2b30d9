package romgfx

import (
	"fmt"

	"github.com/bodgit/romgfx/lz"
	"github.com/hashicorp/go-hclog"
)

func align(addr int) int {
	return (addr + alignment - 1) &^ (alignment - 1)
}

func roundUp(n, unit int) int {
	if unit <= 0 {
		return n
	}
	return (n + unit - 1) / unit * unit
}

// isFree reports whether [start, end) lies within the data, holds only
// FreeByte and is not claimed by any run.
func (m *Model) isFree(start, end int) bool {
	if !m.inRange(start, end-start) {
		return false
	}
	for addr := start; addr < end; addr++ {
		if m.data[addr] != FreeByte {
			return false
		}
	}
	return len(m.overlapping(start, end)) == 0
}

// findFreeSpace returns the lowest aligned address with length free bytes.
func (m *Model) findFreeSpace(length int) (int, error) {
	for addr := 0; addr+length <= len(m.data); {
		next := -1
		for i := addr; i < addr+length; i++ {
			if m.data[i] != FreeByte {
				next = i + 1
				break
			}
			if r := m.RunAt(i); r != nil {
				next = r.End()
				break
			}
		}
		if next < 0 {
			return addr, nil
		}
		addr = align(next)
	}
	return 0, fmt.Errorf("%w: need %d bytes", ErrAllocation, length)
}

func (m *Model) registered(run *Run) (*Run, error) {
	r := m.Lookup(run.Start)
	if r == nil || r.Kind != run.Kind {
		return nil, fmt.Errorf("%w: no %s registered at %#x", ErrOutOfRange, run.Kind, run.Start)
	}
	return r, nil
}

// RelocateForExpansion makes room for required bytes of run, growing it in
// place when the bytes after it are free and otherwise moving it to the
// first free aligned region and rewriting every pointer to it. Raw runs grow
// by whole pages. The returned run replaces run in the registry.
func (m *Model) RelocateForExpansion(delta *Delta, run *Run, required int) (*Run, error) {
	r, err := m.registered(run)
	if err != nil {
		return nil, err
	}

	if !r.Compressed {
		required = roundUp(required, r.UnitBytes())
	}
	if required <= r.Length {
		return r, nil
	}

	next := r.clone()
	next.Length = required
	if !r.Compressed {
		next.Format.Pages = required / r.UnitBytes()
	}

	if m.isFree(r.End(), r.Start+required) {
		if err := m.replace(delta, r, next); err != nil {
			return nil, err
		}
		m.logger.Debug("extended run in place", "name", r.Name, "start", hclog.Hex(r.Start), "length", required)
		return next, nil
	}

	addr, err := m.findFreeSpace(required)
	if err != nil {
		return nil, fmt.Errorf("%s at %#x: %w", r.Kind, r.Start, err)
	}
	next.Start = addr

	for i := 0; i < r.Length; i++ {
		if err := m.SetByte(delta, addr+i, m.data[r.Start+i]); err != nil {
			return nil, err
		}
	}
	if err := m.clear(delta, r.Start, r.End()); err != nil {
		return nil, err
	}
	if err := m.replace(delta, r, next); err != nil {
		return nil, err
	}
	for _, p := range next.Pointers {
		if err := m.WritePointer(delta, p, addr); err != nil {
			return nil, err
		}
	}

	m.logger.Debug("relocated run", "name", r.Name, "from", hclog.Hex(r.Start), "to", hclog.Hex(addr), "length", required, "pointers", len(next.Pointers))

	return next, nil
}

// WriteRunData replaces the logical contents of run with data, compressing
// it if the run is compressed and relocating if it no longer fits. Only bytes
// that differ are written, and any space the run no longer needs is cleared.
func (m *Model) WriteRunData(delta *Delta, run *Run, data []byte) (*Run, error) {
	r, err := m.registered(run)
	if err != nil {
		return nil, err
	}

	unit := r.UnitBytes()
	if len(data) == 0 || unit <= 0 || len(data)%unit != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d byte units", ErrInvalidFormat, len(data), unit)
	}

	encoded := data
	if r.Compressed {
		if encoded, err = lz.Compress(data); err != nil {
			return nil, err
		}
	}

	if r, err = m.RelocateForExpansion(delta, r, len(encoded)); err != nil {
		return nil, err
	}

	for i, b := range encoded {
		if err := m.SetByte(delta, r.Start+i, b); err != nil {
			return nil, err
		}
	}
	if end := r.Start + len(encoded); end < r.End() {
		if err := m.clear(delta, end, r.End()); err != nil {
			return nil, err
		}
	}

	pages := r.Format.Pages
	if !r.Compressed {
		pages = len(data) / unit
	}
	if r.Length == len(encoded) && r.Format.Pages == pages {
		return r, nil
	}

	next := r.clone()
	next.Length = len(encoded)
	next.Format.Pages = pages
	if err := m.replace(delta, r, next); err != nil {
		return nil, err
	}
	return next, nil
}
