// Package touch decodes multi-touch reports from a trackpad into a stable
// set of active contacts.
package touch

import "time"

// Pad coordinates are normalized into a fixed square so that downstream
// geometry is independent of the pad's raw axis ranges.
const (
	// NormMax is the maximum value of a normalized pad coordinate.
	NormMax = 65535
)

// Linux input event types and codes used by the tracker. The values come
// from linux/input-event-codes.h.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03

	SynReport = 0x00

	AbsMTSlot       = 0x2f
	AbsMTTouchMajor = 0x30
	AbsMTTouchMinor = 0x31
	AbsMTPositionX  = 0x35
	AbsMTPositionY  = 0x36
	AbsMTTrackingID = 0x39
	AbsMTPressure   = 0x3a

	BtnTouch = 0x14a
)

// Point is a position in normalized pad units (0..NormMax on both axes).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is a single decoded input event from the pad.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Report is one coalesced batch of events, terminated by a SYN_REPORT
// boundary on the wire. Processing one Report is one tick.
type Report struct {
	Events []Event
	Time   time.Time
}

// Contact is an immutable snapshot of one active touch point.
type Contact struct {
	// Slot is the hardware tracking slot the contact occupies.
	Slot int
	// TrackingID is the kernel-assigned identity. A slot that is freed and
	// immediately reassigned gets a new TrackingID, so the contact is new.
	TrackingID int32
	// Pos is the contact position in normalized pad units.
	Pos Point
	// Major and Minor are the touch ellipse axes in normalized pad units,
	// zero when the pad does not report them.
	Major float64
	Minor float64
	// Pressure is the reported contact pressure, zero when unavailable.
	Pressure float64
	// Began is when the contact first touched down.
	Began time.Time
	// LastSeen is when the contact last appeared in a report.
	LastSeen time.Time
}

// Calibration maps raw pad coordinates into normalized pad units. Bounds are
// configured once at startup; Margin shrinks the usable area by the given
// fraction on every edge before normalizing.
type Calibration struct {
	MinX, MaxX float64
	MinY, MaxY float64
	Margin     float64
}

// Normalize clamps a raw pad position into the calibrated bounds and scales
// it to 0..NormMax.
func (c Calibration) Normalize(rawX, rawY float64) Point {
	loX, hiX := c.span(c.MinX, c.MaxX)
	loY, hiY := c.span(c.MinY, c.MaxY)
	return Point{
		X: scale(rawX, loX, hiX),
		Y: scale(rawY, loY, hiY),
	}
}

// ScaleX converts a raw-unit length on the X axis to normalized units.
func (c Calibration) ScaleX(raw float64) float64 {
	lo, hi := c.span(c.MinX, c.MaxX)
	if hi <= lo {
		return 0
	}
	return raw / (hi - lo) * NormMax
}

func (c Calibration) span(lo, hi float64) (float64, float64) {
	m := c.Margin
	if m < 0 {
		m = 0
	} else if m > 0.45 {
		m = 0.45
	}
	w := hi - lo
	lo2, hi2 := lo+w*m, hi-w*m
	if hi2 <= lo2 {
		return lo, hi
	}
	return lo2, hi2
}

func scale(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return (v - lo) / (hi - lo) * NormMax
}
