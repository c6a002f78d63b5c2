package pose

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ayusman/tripoint/internal/touch"
)

// contact builds a reference contact at the given position.
func contact(id int32, x, y float64, began time.Time) touch.Contact {
	return touch.Contact{
		Slot:       int(id),
		TrackingID: id,
		Pos:        touch.Point{X: x, Y: y},
		Began:      began,
		LastSeen:   began,
	}
}

// spreadHand is a plausible right-hand rest pose: thumb left, middle up,
// pinky right, in normalized pad units.
func spreadHand(t0 time.Time) []touch.Contact {
	return []touch.Contact{
		contact(1, 10000, 50000, t0),
		contact(2, 25000, 42000, t0.Add(time.Millisecond)),
		contact(3, 40000, 52000, t0.Add(2*time.Millisecond)),
	}
}

func TestEstimator_EstablishesWithExactlyRefCount(t *testing.T) {
	e := NewEstimator(Config{})
	now := time.Now()

	p, pointer := e.Update(spreadHand(now), now)
	if !p.Valid {
		t.Fatal("pose should be valid with exactly 3 contacts")
	}
	if pointer != nil {
		t.Error("no pointing contact should exist at establishment")
	}
	if p.Thumb.TrackingID != 1 || p.Middle.TrackingID != 2 || p.Pinky.TrackingID != 3 {
		t.Errorf("roles = (%d, %d, %d), want (1, 2, 3)",
			p.Thumb.TrackingID, p.Middle.TrackingID, p.Pinky.TrackingID)
	}
}

func TestEstimator_NoPoseFromTooManyContacts(t *testing.T) {
	e := NewEstimator(Config{})
	now := time.Now()

	// Four fingers down with no prior pose: establishment requires exactly
	// ref_count contacts, so nothing may form around the extra finger.
	contacts := append(spreadHand(now), contact(4, 30000, 47000, now.Add(3*time.Millisecond)))
	p, _ := e.Update(contacts, now)
	if p.Valid {
		t.Fatal("pose must not establish while more than ref_count contacts are down")
	}

	// Once established from three, the fourth becomes the pointer.
	p, _ = e.Update(spreadHand(now), now)
	if !p.Valid {
		t.Fatal("pose should establish from exactly 3 contacts")
	}
	p, pointer := e.Update(contacts, now.Add(10*time.Millisecond))
	if !p.Valid {
		t.Fatal("pose should stay valid when the pointing contact arrives")
	}
	if pointer == nil || pointer.TrackingID != 4 {
		t.Fatalf("pointer = %+v, want contact 4", pointer)
	}
}

func TestEstimator_InvalidOnTheTickAContactLifts(t *testing.T) {
	e := NewEstimator(Config{})
	now := time.Now()

	hand := spreadHand(now)
	if p, _ := e.Update(hand, now); !p.Valid {
		t.Fatal("setup: pose should be valid")
	}

	// Pinky lifts. The pose must invalidate on this exact tick and must
	// not be repaired with a substitute contact.
	p, _ := e.Update(hand[:2], now.Add(8*time.Millisecond))
	if p.Valid {
		t.Fatal("pose must invalidate on the tick the contact count deviates")
	}

	// Re-press: pose re-establishes only once all three are down again.
	p, _ = e.Update(hand, now.Add(16*time.Millisecond))
	if !p.Valid {
		t.Fatal("pose should re-establish with 3 contacts present")
	}
	if !p.EstablishedAt.Equal(now.Add(16 * time.Millisecond)) {
		t.Errorf("EstablishedAt = %v, want the re-establishment tick", p.EstablishedAt)
	}
}

func TestEstimator_RoleStabilityUnderJitter(t *testing.T) {
	e := NewEstimator(Config{Jitter: 500})
	now := time.Now()

	// Near-collinear pose where thumb and middle X coordinates are close
	// enough that sub-threshold jitter could flip a fresh sort.
	base := []touch.Contact{
		contact(1, 20000, 50000, now),
		contact(2, 20200, 45000, now.Add(time.Millisecond)),
		contact(3, 40000, 50000, now.Add(2*time.Millisecond)),
	}
	p, _ := e.Update(base, now)
	if p.Thumb.TrackingID != 1 {
		t.Fatalf("setup: thumb = %d, want 1", p.Thumb.TrackingID)
	}

	// Jitter the former thumb past the middle's X by less than the
	// tolerance: roles must not flip.
	jittered := []touch.Contact{
		contact(1, 20300, 50000, now),
		contact(2, 20200, 45000, now.Add(time.Millisecond)),
		contact(3, 40000, 50000, now.Add(2*time.Millisecond)),
	}
	p, _ = e.Update(jittered, now.Add(8*time.Millisecond))
	if p.Thumb.TrackingID != 1 {
		t.Errorf("thumb flipped to %d under sub-threshold jitter", p.Thumb.TrackingID)
	}

	// A real move beyond the tolerance re-sorts fresh.
	moved := []touch.Contact{
		contact(1, 26000, 50000, now),
		contact(2, 20200, 45000, now.Add(time.Millisecond)),
		contact(3, 40000, 50000, now.Add(2*time.Millisecond)),
	}
	p, _ = e.Update(moved, now.Add(16*time.Millisecond))
	if p.Thumb.TrackingID != 2 {
		t.Errorf("thumb = %d after large move, want 2", p.Thumb.TrackingID)
	}
}

func TestEstimator_Handedness(t *testing.T) {
	e := NewEstimator(Config{Handedness: RightToLeft})
	now := time.Now()

	p, _ := e.Update(spreadHand(now), now)
	if !p.Valid {
		t.Fatal("pose should be valid")
	}
	if p.Thumb.TrackingID != 3 || p.Pinky.TrackingID != 1 {
		t.Errorf("right-to-left roles = thumb %d, pinky %d; want thumb 3, pinky 1",
			p.Thumb.TrackingID, p.Pinky.TrackingID)
	}
}

func TestEstimator_FrameGeometry(t *testing.T) {
	e := NewEstimator(Config{})
	now := time.Now()

	contacts := []touch.Contact{
		contact(1, 10000, 50000, t0ms(now, 0)),
		contact(2, 25000, 40000, t0ms(now, 1)),
		contact(3, 40000, 50000, t0ms(now, 2)),
	}
	p, _ := e.Update(contacts, now)

	// Baseline runs pinky -> thumb.
	if !scalar.EqualWithinAbs(p.Baseline.X, -30000, 1e-9) || !scalar.EqualWithinAbs(p.Baseline.Y, 0, 1e-9) {
		t.Errorf("Baseline = %+v, want (-30000, 0)", p.Baseline)
	}

	// Centroid is the mean of the three positions.
	if !scalar.EqualWithinAbs(p.Centroid.X, 25000, 1e-9) || !scalar.EqualWithinAbs(p.Centroid.Y, 140000.0/3.0, 1e-6) {
		t.Errorf("Centroid = %+v", p.Centroid)
	}

	// Perpendicular is unit length and points toward the middle finger's
	// side of the baseline (negative Y here: pad Y grows downward).
	if !scalar.EqualWithinAbs(p.Perp.Norm(), 1, 1e-12) {
		t.Errorf("Perp is not unit length: %v", p.Perp.Norm())
	}
	if p.Perp.Y >= 0 {
		t.Errorf("Perp = %+v, want it oriented toward the middle fingertip", p.Perp)
	}
	if !scalar.EqualWithinAbs(math.Abs(p.Perp.Dot(p.Baseline.Unit())), 0, 1e-12) {
		t.Errorf("Perp not perpendicular to baseline")
	}
}

func t0ms(t time.Time, ms int) time.Time { return t.Add(time.Duration(ms) * time.Millisecond) }
