package romgfx

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/bodgit/romgfx/lz"
	"github.com/hashicorp/go-hclog"
)

// Model owns the data and the registry of runs within it. It is not safe for
// concurrent use.
type Model struct {
	data   []byte
	runs   []*Run // sorted by Start, never overlapping
	logger hclog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used to report relocations.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// New returns a Model editing data in place.
func New(data []byte, opts ...Option) *Model {
	m := &Model{
		data:   data,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bytes returns the underlying data.
func (m *Model) Bytes() []byte { return m.data }

// Len returns the size of the data.
func (m *Model) Len() int { return len(m.data) }

func (m *Model) inRange(addr, n int) bool {
	return addr >= 0 && n >= 0 && addr+n <= len(m.data)
}

// ByteAt returns the byte at addr, or 0 outside the data.
func (m *Model) ByteAt(addr int) byte {
	if !m.inRange(addr, 1) {
		return 0
	}
	return m.data[addr]
}

// SetByte writes v at addr, recording the change in delta. A nil delta makes
// the change untracked.
func (m *Model) SetByte(delta *Delta, addr int, v byte) error {
	if !m.inRange(addr, 1) {
		return fmt.Errorf("%w: %#x", ErrOutOfRange, addr)
	}
	if old := m.data[addr]; old != v {
		if delta != nil {
			delta.recordByte(addr, old, v)
		}
		m.data[addr] = v
	}
	return nil
}

func (m *Model) clear(delta *Delta, start, end int) error {
	for addr := start; addr < end; addr++ {
		if err := m.SetByte(delta, addr, FreeByte); err != nil {
			return err
		}
	}
	return nil
}

// ReadPointer returns the address stored at addr.
func (m *Model) ReadPointer(addr int) (int, error) {
	if !m.inRange(addr, PointerSize) {
		return 0, fmt.Errorf("%w: pointer at %#x", ErrOutOfRange, addr)
	}
	return int(binary.LittleEndian.Uint32(m.data[addr:])), nil
}

// WritePointer stores dest at addr.
func (m *Model) WritePointer(delta *Delta, addr, dest int) error {
	if !m.inRange(addr, PointerSize) {
		return fmt.Errorf("%w: pointer at %#x", ErrOutOfRange, addr)
	}
	var b [PointerSize]byte
	binary.LittleEndian.PutUint32(b[:], uint32(dest))
	for i, v := range b {
		if err := m.SetByte(delta, addr+i, v); err != nil {
			return err
		}
	}
	return nil
}

// search returns the index of the first run starting at or after addr.
func (m *Model) search(addr int) int {
	return sort.Search(len(m.runs), func(i int) bool { return m.runs[i].Start >= addr })
}

// Lookup returns the run starting at addr.
func (m *Model) Lookup(addr int) *Run {
	if i := m.search(addr); i < len(m.runs) && m.runs[i].Start == addr {
		return m.runs[i]
	}
	return nil
}

// RunAt returns the run covering addr.
func (m *Model) RunAt(addr int) *Run {
	i := m.search(addr + 1)
	if i == 0 {
		return nil
	}
	if r := m.runs[i-1]; r.Contains(addr) {
		return r
	}
	return nil
}

// Anchor returns the run registered under name.
func (m *Model) Anchor(name string) *Run {
	if name == "" {
		return nil
	}
	for _, r := range m.runs {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Runs returns every registered run in address order.
func (m *Model) Runs() []*Run {
	return append([]*Run(nil), m.runs...)
}

// PointersOf returns the addresses of the pointers referencing run.
func (m *Model) PointersOf(run *Run) []int {
	if r := m.Lookup(run.Start); r != nil {
		return append([]int(nil), r.Pointers...)
	}
	return nil
}

// Decode returns the logical bytes of run, decompressing if needed.
func (m *Model) Decode(run *Run) ([]byte, error) {
	if run.Compressed {
		return lz.Decompress(m.data, run.Start)
	}
	if !m.inRange(run.Start, run.Length) {
		return nil, fmt.Errorf("%w: %s at %#x", ErrOutOfRange, run.Kind, run.Start)
	}
	return append([]byte(nil), m.data[run.Start:run.End()]...), nil
}

func (m *Model) overlapping(start, end int) []*Run {
	i := m.search(start)
	if i > 0 && m.runs[i-1].End() > start {
		i--
	}
	var found []*Run
	for ; i < len(m.runs) && m.runs[i].Start < end; i++ {
		found = append(found, m.runs[i])
	}
	return found
}

func (m *Model) insert(run *Run) {
	i := m.search(run.Start)
	m.runs = append(m.runs, nil)
	copy(m.runs[i+1:], m.runs[i:])
	m.runs[i] = run
}

func (m *Model) remove(run *Run) {
	for i, r := range m.runs {
		if r == run || r.Start == run.Start {
			m.runs = append(m.runs[:i], m.runs[i+1:]...)
			return
		}
	}
}

// validate checks the registry invariants.
func (m *Model) validate() error {
	for i, r := range m.runs {
		if !m.inRange(r.Start, r.Length) {
			return fmt.Errorf("%w: %s at %#x", ErrOutOfRange, r.Kind, r.Start)
		}
		if i > 0 && m.runs[i-1].End() > r.Start {
			return fmt.Errorf("%w: %#x and %#x", ErrOverlap, m.runs[i-1].Start, r.Start)
		}
	}
	return nil
}

// replace swaps before for after in the registry and records it in delta.
// Either may be nil to add or remove a run.
func (m *Model) replace(delta *Delta, before, after *Run) error {
	if before != nil {
		m.remove(before)
	}
	if after != nil {
		m.insert(after)
	}
	if err := m.validate(); err != nil {
		if after != nil {
			m.remove(after)
		}
		if before != nil {
			m.insert(before)
		}
		return err
	}
	if delta != nil {
		delta.recordRun(before, after)
	}
	return nil
}

func (m *Model) measure(run *Run) error {
	unit := run.UnitBytes()
	if unit <= 0 {
		return fmt.Errorf("%w: empty %s", ErrInvalidFormat, run.Kind)
	}

	if !run.Compressed {
		pages := run.Format.Pages
		if pages == 0 {
			pages = 1
		}
		run.Format.Pages = pages
		run.Length = pages * unit
		return nil
	}

	n, err := lz.CompressedLength(m.data, run.Start)
	if err != nil {
		return fmt.Errorf("%s at %#x: %w", run.Kind, run.Start, err)
	}
	decoded, _ := lz.DecompressedLength(m.data, run.Start)
	if decoded == 0 || decoded%unit != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %d byte units", ErrInvalidFormat, decoded, unit)
	}
	run.Length = n
	return nil
}

// Register adds run to the registry, working out its length from its format
// and, for compressed runs, the stream at its start. Every pointer must
// already reference the run. A run already registered at the same address or
// under the same name is replaced.
func (m *Model) Register(delta *Delta, run Run) (*Run, error) {
	r := run.clone()
	if err := r.validate(); err != nil {
		return nil, err
	}
	if err := m.measure(r); err != nil {
		return nil, err
	}
	if !m.inRange(r.Start, r.Length) {
		return nil, fmt.Errorf("%w: %s at %#x", ErrOutOfRange, r.Kind, r.Start)
	}

	sort.Ints(r.Pointers)
	for _, p := range r.Pointers {
		dest, err := m.ReadPointer(p)
		if err != nil {
			return nil, err
		}
		if dest != r.Start {
			return nil, fmt.Errorf("%w: %#x holds %#x, want %#x", ErrPointerMismatch, p, dest, r.Start)
		}
	}

	displaced := make(map[*Run]bool)
	if old := m.Lookup(r.Start); old != nil {
		displaced[old] = true
	}
	if old := m.Anchor(r.Name); old != nil {
		displaced[old] = true
	}
	for _, o := range m.overlapping(r.Start, r.End()) {
		if !displaced[o] {
			return nil, fmt.Errorf("%w: %s at %#x overlaps %s at %#x", ErrOverlap, r.Kind, r.Start, o.Kind, o.Start)
		}
	}

	for old := range displaced {
		if err := m.replace(delta, old, nil); err != nil {
			return nil, err
		}
	}
	if err := m.replace(delta, nil, r); err != nil {
		return nil, err
	}

	m.logger.Debug("registered run", "name", r.Name, "kind", r.Kind, "start", hclog.Hex(r.Start), "length", r.Length)

	return r, nil
}
