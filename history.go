package romgfx

import (
	"github.com/hashicorp/go-hclog"
)

type byteChange struct {
	addr     int
	old, new byte
}

type runChange struct {
	before, after *Run
}

// Delta records the byte and registry changes made by one edit, in order.
// The zero value is ready to use.
type Delta struct {
	bytes []byteChange
	index map[int]int
	runs  []runChange
}

func (d *Delta) recordByte(addr int, old, v byte) {
	if d.index == nil {
		d.index = make(map[int]int)
	}
	if i, ok := d.index[addr]; ok {
		d.bytes[i].new = v
		return
	}
	d.index[addr] = len(d.bytes)
	d.bytes = append(d.bytes, byteChange{addr: addr, old: old, new: v})
}

func (d *Delta) recordRun(before, after *Run) {
	var c runChange
	if before != nil {
		c.before = before.clone()
	}
	if after != nil {
		c.after = after.clone()
	}
	d.runs = append(d.runs, c)
}

// HasChanges reports whether applying the delta would change anything.
func (d *Delta) HasChanges() bool {
	if len(d.runs) > 0 {
		return true
	}
	for _, c := range d.bytes {
		if c.old != c.new {
			return true
		}
	}
	return false
}

// Addresses returns the changed byte addresses in the order they were first
// written.
func (d *Delta) Addresses() []int {
	addrs := make([]int, 0, len(d.bytes))
	for _, c := range d.bytes {
		if c.old != c.new {
			addrs = append(addrs, c.addr)
		}
	}
	return addrs
}

// Revert undoes every change in d, newest first.
func (m *Model) Revert(d *Delta) {
	for i := len(d.bytes) - 1; i >= 0; i-- {
		c := d.bytes[i]
		m.data[c.addr] = c.old
	}
	for i := len(d.runs) - 1; i >= 0; i-- {
		c := d.runs[i]
		if c.after != nil {
			m.remove(c.after)
		}
		if c.before != nil {
			m.insert(c.before.clone())
		}
	}
}

// Apply redoes every change in d, oldest first.
func (m *Model) Apply(d *Delta) {
	for _, c := range d.bytes {
		m.data[c.addr] = c.new
	}
	for _, c := range d.runs {
		if c.before != nil {
			m.remove(c.before)
		}
		if c.after != nil {
			m.insert(c.after.clone())
		}
	}
}

// History groups deltas into transactions that can be undone and redone.
type History struct {
	model   *Model
	current *Delta
	undo    []*Delta
	redo    []*Delta
	logger  hclog.Logger
}

// NewHistory returns an empty history for m.
func NewHistory(m *Model) *History {
	return &History{
		model:  m,
		logger: m.logger.Named("history"),
	}
}

// Model returns the model the history edits.
func (h *History) Model() *Model { return h.model }

// Begin opens a transaction and returns its delta.
func (h *History) Begin() (*Delta, error) {
	if h.current != nil {
		return nil, ErrTransactionOpen
	}
	h.current = new(Delta)
	return h.current, nil
}

// Current returns the open transaction, or nil.
func (h *History) Current() *Delta { return h.current }

// Commit seals the open transaction. A transaction that changed nothing is
// dropped and leaves the redo stack alone.
func (h *History) Commit() error {
	if h.current == nil {
		return ErrNoTransaction
	}
	d := h.current
	h.current = nil
	if !d.HasChanges() {
		return nil
	}
	h.undo = append(h.undo, d)
	h.redo = nil
	return nil
}

// Abort reverts and discards the open transaction.
func (h *History) Abort() error {
	if h.current == nil {
		return ErrNoTransaction
	}
	h.model.Revert(h.current)
	h.current = nil
	h.logger.Debug("transaction aborted")
	return nil
}

// Do runs fn inside a transaction, committing if it succeeds and aborting
// otherwise.
func (h *History) Do(fn func(*Delta) error) error {
	d, err := h.Begin()
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		_ = h.Abort()
		return err
	}
	return h.Commit()
}

// CanUndo reports whether there is a transaction to undo.
func (h *History) CanUndo() bool { return len(h.undo) > 0 && h.current == nil }

// CanRedo reports whether there is a transaction to redo.
func (h *History) CanRedo() bool { return len(h.redo) > 0 && h.current == nil }

// Undo reverts the most recent transaction, reporting whether there was one.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	d := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.model.Revert(d)
	h.redo = append(h.redo, d)
	return true
}

// Redo reapplies the most recently undone transaction.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	d := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.model.Apply(d)
	h.undo = append(h.undo, d)
	return true
}
