package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gantterm/internal/model"
)

// ErrPoolExhausted is returned when the pool cannot satisfy the visible range
// plus the pinned set even after growing. Correctness beats the fixed-capacity
// optimization: Recycle grows the arena instead of dropping rows, so this only
// fires at the hard sanity cap.
var ErrPoolExhausted = errors.New("slot pool exhausted")

// maxPoolSlots is a sanity cap, far above any plausible viewport.
const maxPoolSlots = 1 << 20

// SlotID is a stable arena index. Slot identity is independent of the record
// a slot currently displays.
type SlotID int

// Slot is a reusable render unit. Created at pool initialization and reused
// until shutdown; ownership is exclusive to the pool.
type Slot struct {
	ID SlotID

	// BoundID is the record currently displayed, "" when released.
	BoundID   string
	FlatIndex int
	Visible   bool

	// Pinned marks a slot under active edit: it is never reassigned to a
	// different record and survives recycling outside the visible range.
	Pinned bool

	rowHash    uint64
	hasRowHash bool
	cellHashes map[model.FieldID]uint64
}

func (s *Slot) clearHashes() {
	s.rowHash = 0
	s.hasRowHash = false
	s.cellHashes = nil
}

// Pool owns a bounded arena of slots and maps visible flat indices onto them.
// The arena is sized visible+2*buffer+slack at construction and only grows,
// never shrinks, at runtime (a viewport-extent change rebuilds it).
type Pool struct {
	slots  []*Slot
	byID   map[string]SlotID // bound record id -> slot
	logger *slog.Logger
}

// NewPool creates a pool with the given capacity.
func NewPool(capacity int, logger *slog.Logger) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pool{
		slots:  make([]*Slot, 0, capacity),
		byID:   map[string]SlotID{},
		logger: logger,
	}
	for i := 0; i < capacity; i++ {
		p.slots = append(p.slots, &Slot{ID: SlotID(i)})
	}
	return p
}

// Cap returns the current arena size.
func (p *Pool) Cap() int { return len(p.slots) }

// BoundCount returns the number of slots currently bound to a record.
func (p *Pool) BoundCount() int { return len(p.byID) }

// Slot returns the slot at arena index id.
func (p *Pool) Slot(id SlotID) (*Slot, bool) {
	if p == nil || id < 0 || int(id) >= len(p.slots) {
		return nil, false
	}
	return p.slots[id], true
}

// SlotFor returns the slot bound to recordID, if any.
func (p *Pool) SlotFor(recordID string) (*Slot, bool) {
	id, ok := p.byID[strings.TrimSpace(recordID)]
	if !ok {
		return nil, false
	}
	return p.slots[id], true
}

// Slots returns the arena in index order. Callers must not rebind slots
// directly; binding is the pool's job.
func (p *Pool) Slots() []*Slot { return p.slots }

// Pin marks the slot bound to recordID as under active edit.
func (p *Pool) Pin(recordID string) {
	if s, ok := p.SlotFor(recordID); ok {
		s.Pinned = true
	}
}

// Unpin clears the edit pin for recordID's slot.
func (p *Pool) Unpin(recordID string) {
	if s, ok := p.SlotFor(recordID); ok {
		s.Pinned = false
	}
}

// Release unbinds the slot currently showing recordID, if any.
func (p *Pool) Release(recordID string) {
	recordID = strings.TrimSpace(recordID)
	id, ok := p.byID[recordID]
	if !ok {
		return
	}
	s := p.slots[id]
	delete(p.byID, recordID)
	s.BoundID = ""
	s.Visible = false
	s.Pinned = false
}

// Reset releases every slot and drops all hash caches. Use when the whole
// dataset is replaced.
func (p *Pool) Reset() {
	for _, s := range p.slots {
		s.BoundID = ""
		s.Visible = false
		s.Pinned = false
		s.FlatIndex = 0
		s.clearHashes()
	}
	p.byID = map[string]SlotID{}
}

// Recycle reassigns the arena to the inclusive flat range [first, last] of ix.
//
//   - Slots bound to records outside the range are released unless pinned or
//     listed in editing; an active edit is never silently unmounted.
//   - In-range records reuse the slot already bound to them when one exists,
//     keeping slot identity stable across small scroll deltas; otherwise any
//     free slot is taken.
//   - When the range plus the pinned set exceeds capacity the arena grows.
//
// An empty range (first > last) releases everything releasable.
func (p *Pool) Recycle(first, last int, ix *Index, editing map[string]bool) error {
	if p == nil {
		return nil
	}

	inRange := map[string]int{}
	if ix != nil && first <= last {
		for i := first; i <= last && i < ix.Len(); i++ {
			row, ok := ix.Row(i)
			if !ok || row.Task == nil {
				continue
			}
			inRange[row.Task.ID] = i
		}
	}

	// Release phase.
	for _, s := range p.slots {
		if s.BoundID == "" {
			continue
		}
		if _, keep := inRange[s.BoundID]; keep {
			continue
		}
		if s.Pinned || (editing != nil && editing[s.BoundID]) {
			// Keep rendered even off-range; refresh the flat index when the
			// record is still visible somewhere.
			if ix != nil {
				if fi, ok := ix.FlatIndex(s.BoundID); ok {
					s.FlatIndex = fi
				}
			}
			continue
		}
		delete(p.byID, s.BoundID)
		s.BoundID = ""
		s.Visible = false
	}

	// Bind phase.
	for id, fi := range inRange {
		if s, ok := p.SlotFor(id); ok {
			s.FlatIndex = fi
			s.Visible = true
			continue
		}
		s, err := p.takeFree()
		if err != nil {
			return err
		}
		// A slot reused for a different record must not inherit its
		// predecessor's hashes.
		s.clearHashes()
		s.BoundID = id
		s.FlatIndex = fi
		s.Visible = true
		s.Pinned = false
		p.byID[id] = s.ID
	}
	return nil
}

func (p *Pool) takeFree() (*Slot, error) {
	for _, s := range p.slots {
		if s.BoundID == "" {
			return s, nil
		}
	}
	return p.grow()
}

// grow extends the arena by half its size (at least one slot).
func (p *Pool) grow() (*Slot, error) {
	if len(p.slots) >= maxPoolSlots {
		return nil, fmt.Errorf("%w: %d slots", ErrPoolExhausted, len(p.slots))
	}
	add := len(p.slots) / 2
	if add < 1 {
		add = 1
	}
	if len(p.slots)+add > maxPoolSlots {
		add = maxPoolSlots - len(p.slots)
	}
	p.logger.Debug("growing slot pool", "from", len(p.slots), "to", len(p.slots)+add)
	first := &Slot{ID: SlotID(len(p.slots))}
	p.slots = append(p.slots, first)
	for i := 1; i < add; i++ {
		p.slots = append(p.slots, &Slot{ID: SlotID(len(p.slots))})
	}
	return first, nil
}
