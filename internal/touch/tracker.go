package touch

import "sort"

// Tracker defaults.
const (
	// DefaultCapacity is the number of simultaneous contacts tracked before
	// the least-recently-updated one is dropped.
	DefaultCapacity = 10
	// DefaultStaleTicks is how many ticks a slot may go unreported before
	// its contact is discarded.
	DefaultStaleTicks = 30
)

// slotState is the mutable per-slot record behind the immutable Contact
// snapshots handed to callers.
type slotState struct {
	contact  Contact
	active   bool
	lastTick uint64
}

// Tracker consumes decoded pad reports and maintains the set of currently
// active contacts. It owns the multi-touch protocol B state (current slot,
// tracking IDs) and is the single source of truth for what touches exist.
type Tracker struct {
	cal        Calibration
	capacity   int
	staleTicks int

	tick        uint64
	currentSlot int
	slots       map[int]*slotState
}

// NewTracker creates a Tracker that normalizes positions with the given
// calibration. capacity and staleTicks fall back to defaults when zero or
// negative.
func NewTracker(cal Calibration, capacity, staleTicks int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if staleTicks <= 0 {
		staleTicks = DefaultStaleTicks
	}
	return &Tracker{
		cal:        cal,
		capacity:   capacity,
		staleTicks: staleTicks,
		slots:      make(map[int]*slotState),
	}
}

// Apply processes one report and returns the active contacts at its end,
// ordered by touch-down time (earliest first). The returned slice and its
// contacts are snapshots; the Tracker never mutates them afterwards.
func (t *Tracker) Apply(r Report) []Contact {
	t.tick++
	for _, ev := range r.Events {
		if ev.Type != EvAbs {
			continue
		}
		t.applyAbs(ev, r)
	}
	t.expireStale()
	t.enforceCapacity()
	return t.snapshot()
}

func (t *Tracker) applyAbs(ev Event, r Report) {
	if ev.Code == AbsMTSlot {
		t.currentSlot = int(ev.Value)
		return
	}

	s := t.slot(t.currentSlot)
	switch ev.Code {
	case AbsMTTrackingID:
		if ev.Value < 0 {
			s.active = false
			return
		}
		if !s.active || s.contact.TrackingID != ev.Value {
			// New physical contact, even if the slot number is reused.
			pos := s.contact.Pos
			s.contact = Contact{Slot: t.currentSlot, TrackingID: ev.Value, Pos: pos, Began: r.Time}
			s.active = true
		}
	case AbsMTPositionX:
		p := t.cal.Normalize(float64(ev.Value), 0)
		s.contact.Pos.X = p.X
	case AbsMTPositionY:
		p := t.cal.Normalize(0, float64(ev.Value))
		s.contact.Pos.Y = p.Y
	case AbsMTTouchMajor:
		s.contact.Major = t.cal.ScaleX(float64(ev.Value))
	case AbsMTTouchMinor:
		s.contact.Minor = t.cal.ScaleX(float64(ev.Value))
	case AbsMTPressure:
		s.contact.Pressure = float64(ev.Value)
	default:
		return
	}
	if s.active {
		s.contact.LastSeen = r.Time
		s.lastTick = t.tick
	}
}

func (t *Tracker) slot(id int) *slotState {
	s, ok := t.slots[id]
	if !ok {
		s = &slotState{}
		t.slots[id] = s
	}
	return s
}

// expireStale drops contacts whose slot has not reported for staleTicks
// ticks. Some pads stop reporting a resting finger; treating it as lifted
// keeps the tracker from pinning a ghost contact forever.
func (t *Tracker) expireStale() {
	for id, s := range t.slots {
		if !s.active {
			delete(t.slots, id)
			continue
		}
		if t.tick-s.lastTick > uint64(t.staleTicks) {
			delete(t.slots, id)
		}
	}
}

// enforceCapacity drops the least-recently-updated contacts when more than
// capacity are active. Tracking overflow must never fail the pipeline.
func (t *Tracker) enforceCapacity() {
	if len(t.slots) <= t.capacity {
		return
	}
	type aged struct {
		id       int
		lastTick uint64
	}
	all := make([]aged, 0, len(t.slots))
	for id, s := range t.slots {
		all = append(all, aged{id: id, lastTick: s.lastTick})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastTick < all[j].lastTick })
	for _, a := range all[:len(all)-t.capacity] {
		delete(t.slots, a.id)
	}
}

func (t *Tracker) snapshot() []Contact {
	out := make([]Contact, 0, len(t.slots))
	for _, s := range t.slots {
		if s.active {
			out = append(out, s.contact)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Began.Equal(out[j].Began) {
			return out[i].Slot < out[j].Slot
		}
		return out[i].Began.Before(out[j].Began)
	})
	return out
}

// Reset clears all tracked contacts and protocol state.
func (t *Tracker) Reset() {
	t.slots = make(map[int]*slotState)
	t.currentSlot = 0
}
