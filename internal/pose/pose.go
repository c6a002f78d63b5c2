// Package pose establishes and maintains the three-contact reference pose
// (thumb, middle, pinky) that anchors the pointer prediction frame.
package pose

import (
	"math"
	"time"

	"github.com/ayusman/tripoint/internal/touch"
)

// Handedness selects the axis ordering used to assign finger roles. It is an
// explicit configuration choice; the estimator never infers it.
type Handedness string

const (
	// LeftToRight assigns the thumb to the lowest X coordinate.
	LeftToRight Handedness = "left-to-right"
	// RightToLeft assigns the thumb to the highest X coordinate.
	RightToLeft Handedness = "right-to-left"
)

// DefaultJitter is the movement tolerance, in normalized pad units, under
// which an ambiguous role sort keeps the previous tick's assignment.
const DefaultJitter = 400

// Vec is a 2D vector in normalized pad units.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns v - w.
func (v Vec) Sub(w Vec) Vec { return Vec{v.X - w.X, v.Y - w.Y} }

// Add returns v + w.
func (v Vec) Add(w Vec) Vec { return Vec{v.X + w.X, v.Y + w.Y} }

// Scale returns v scaled by s.
func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }

// Dot returns the dot product of v and w.
func (v Vec) Dot(w Vec) float64 { return v.X*w.X + v.Y*w.Y }

// Norm returns the Euclidean length of v.
func (v Vec) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Unit returns v normalized to length 1, or the zero vector when v is zero.
func (v Vec) Unit() Vec {
	n := v.Norm()
	if n == 0 {
		return Vec{}
	}
	return Vec{v.X / n, v.Y / n}
}

// Rot90 returns v rotated 90 degrees counter-clockwise.
func (v Vec) Rot90() Vec { return Vec{-v.Y, v.X} }

// PointVec converts a pad point to a vector.
func PointVec(p touch.Point) Vec { return Vec{p.X, p.Y} }

// Pose is the reference frame derived from the three reference contacts.
// It is recomputed every tick and only meaningful while Valid is true.
type Pose struct {
	Thumb  touch.Contact
	Middle touch.Contact
	Pinky  touch.Contact

	// Baseline is the vector from the pinky contact to the thumb contact.
	Baseline Vec
	// Centroid is the arithmetic mean of the three reference positions.
	Centroid Vec
	// Perp is the unit vector perpendicular to the baseline, oriented
	// outward from the palm.
	Perp Vec

	EstablishedAt time.Time
	Valid         bool
}

// Config holds the estimator's tunables.
type Config struct {
	// RefCount is the number of reference contacts; the pose is only
	// established while exactly this many contacts are present.
	RefCount int
	// Jitter is the per-contact movement tolerance for the role tie-break.
	Jitter float64
	// Handedness selects the role-assignment axis.
	Handedness Handedness
}

// Estimator tracks pose establishment across ticks. It never repairs a pose
// by substituting contacts: once any reference contact is lost the pose is
// invalid until exactly RefCount contacts are simultaneously present again.
type Estimator struct {
	cfg Config

	established bool
	refIDs      [3]int32 // tracking IDs of thumb, middle, pinky
	since       time.Time

	prevPos  map[int32]Vec // last tick's reference positions, by tracking ID
	prevPerp Vec
}

// NewEstimator creates an Estimator. Zero config fields fall back to three
// reference contacts, DefaultJitter and left-to-right handedness.
func NewEstimator(cfg Config) *Estimator {
	if cfg.RefCount <= 0 {
		cfg.RefCount = 3
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = DefaultJitter
	}
	if cfg.Handedness == "" {
		cfg.Handedness = LeftToRight
	}
	return &Estimator{cfg: cfg, prevPos: make(map[int32]Vec)}
}

// Update re-evaluates the pose against the current contact set and returns
// it together with the pointing contact, when one exists. contacts must be
// ordered by touch-down time, as the tracker produces them.
//
// The pointing contact is the most recently established non-reference
// contact; extras are ignored.
func (e *Estimator) Update(contacts []touch.Contact, now time.Time) (Pose, *touch.Contact) {
	if e.established && !e.refsPresent(contacts) {
		// A reference contact was lost. Invalidate on this exact tick;
		// re-establishment below requires the full set again.
		e.drop()
	}

	if !e.established {
		// Establish only from exactly RefCount contacts, so a pose can
		// never be assembled around a finger that was meant to point.
		if len(contacts) != e.cfg.RefCount {
			return Pose{}, nil
		}
		t, m, p := e.assignRoles(contacts[:3])
		e.established = true
		e.refIDs = [3]int32{t.TrackingID, m.TrackingID, p.TrackingID}
		e.since = now
		return e.compute(t, m, p), nil
	}

	refs, pointer := e.split(contacts)
	t, m, p := e.assignRoles(refs)
	e.refIDs = [3]int32{t.TrackingID, m.TrackingID, p.TrackingID}
	return e.compute(t, m, p), pointer
}

// Invalidate drops the current pose, if any.
func (e *Estimator) Invalidate() {
	e.drop()
}

func (e *Estimator) drop() {
	e.established = false
	e.prevPos = make(map[int32]Vec)
	e.prevPerp = Vec{}
}

func (e *Estimator) refsPresent(contacts []touch.Contact) bool {
	for _, id := range e.refIDs {
		found := false
		for _, c := range contacts {
			if c.TrackingID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// split partitions contacts into the established references and the pointing
// contact. The pointer is the most recently begun non-reference contact.
func (e *Estimator) split(contacts []touch.Contact) ([]touch.Contact, *touch.Contact) {
	refs := make([]touch.Contact, 0, 3)
	var pointer *touch.Contact
	for i := range contacts {
		c := contacts[i]
		if e.isRef(c.TrackingID) {
			refs = append(refs, c)
			continue
		}
		if pointer == nil || c.Began.After(pointer.Began) {
			pointer = &contacts[i]
		}
	}
	return refs, pointer
}

func (e *Estimator) isRef(id int32) bool {
	return id == e.refIDs[0] || id == e.refIDs[1] || id == e.refIDs[2]
}

// assignRoles orders the three reference contacts as thumb, middle, pinky by
// projecting them on the handedness axis. When every contact moved less than
// the jitter tolerance since the previous tick, the previous assignment is
// retained so near-collinear sorts cannot flip roles.
func (e *Estimator) assignRoles(refs []touch.Contact) (thumb, middle, pinky touch.Contact) {
	if e.keepPreviousRoles(refs) {
		byID := make(map[int32]touch.Contact, 3)
		for _, c := range refs {
			byID[c.TrackingID] = c
		}
		thumb, middle, pinky = byID[e.refIDs[0]], byID[e.refIDs[1]], byID[e.refIDs[2]]
		e.remember(refs)
		return thumb, middle, pinky
	}

	sorted := append([]touch.Contact(nil), refs...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if e.axis(sorted[j]) < e.axis(sorted[i]) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	e.remember(refs)
	return sorted[0], sorted[1], sorted[2]
}

// axis is the role-sort key: position along the configured handedness axis.
func (e *Estimator) axis(c touch.Contact) float64 {
	if e.cfg.Handedness == RightToLeft {
		return -c.Pos.X
	}
	return c.Pos.X
}

// keepPreviousRoles reports whether the previous assignment covers the same
// three contacts and none of them moved beyond the jitter tolerance.
func (e *Estimator) keepPreviousRoles(refs []touch.Contact) bool {
	if len(e.prevPos) != 3 {
		return false
	}
	for _, c := range refs {
		prev, ok := e.prevPos[c.TrackingID]
		if !ok {
			return false
		}
		if PointVec(c.Pos).Sub(prev).Norm() >= e.cfg.Jitter {
			return false
		}
	}
	return e.isRef(refs[0].TrackingID) && e.isRef(refs[1].TrackingID) && e.isRef(refs[2].TrackingID)
}

func (e *Estimator) remember(refs []touch.Contact) {
	e.prevPos = make(map[int32]Vec, 3)
	for _, c := range refs {
		e.prevPos[c.TrackingID] = PointVec(c.Pos)
	}
}

// compute derives the frame geometry from the assigned reference contacts.
func (e *Estimator) compute(t, m, p touch.Contact) Pose {
	tv, mv, pv := PointVec(t.Pos), PointVec(m.Pos), PointVec(p.Pos)

	baseline := tv.Sub(pv)
	centroid := tv.Add(mv).Add(pv).Scale(1.0 / 3.0)
	perp := baseline.Unit().Rot90()

	// Orient the perpendicular away from the palm: the middle fingertip
	// sits on the far side of the baseline from the hand center, so point
	// toward its side of the thumb-pinky midpoint.
	mid := tv.Add(pv).Scale(0.5)
	out := mv.Sub(mid)
	if d := perp.Dot(out); d < 0 {
		perp = perp.Scale(-1)
	} else if d == 0 && e.prevPerp.Dot(perp) < 0 {
		// Degenerate collinear pose: keep the previous orientation.
		perp = perp.Scale(-1)
	}
	e.prevPerp = perp

	return Pose{
		Thumb:         t,
		Middle:        m,
		Pinky:         p,
		Baseline:      baseline,
		Centroid:      centroid,
		Perp:          perp,
		EstablishedAt: e.since,
		Valid:         true,
	}
}
