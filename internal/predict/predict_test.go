package predict

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ayusman/tripoint/internal/pose"
	"github.com/ayusman/tripoint/internal/touch"
)

// unitScreen makes one screen pixel equal one normalized pad unit, so the
// pixel-denominated minimum-ellipse parameters can be hit exactly.
var unitScreen = Screen{Width: touch.NormMax + 1, Height: touch.NormMax + 1}

// testPose builds a valid reference frame: thumb left, middle up, pinky
// right, baseline horizontal.
func testPose() pose.Pose {
	e := pose.NewEstimator(pose.Config{})
	now := time.Now()
	contacts := []touch.Contact{
		refContact(1, 10000, 50000),
		refContact(2, 25000, 42000),
		refContact(3, 40000, 50000),
	}
	contacts[1].Began = contacts[0].Began.Add(time.Millisecond)
	contacts[2].Began = contacts[0].Began.Add(2 * time.Millisecond)
	p, _ := e.Update(contacts, now)
	return p
}

func refContact(id int32, x, y float64) touch.Contact {
	return touch.Contact{Slot: int(id), TrackingID: id, Pos: touch.Point{X: x, Y: y}, Began: time.Unix(0, int64(id))}
}

// pointing builds a pointing contact with the given touch ellipse, in
// normalized units (diameters; the predictor halves them).
func pointing(x, y, major, minor float64) *touch.Contact {
	return &touch.Contact{
		Slot:       9,
		TrackingID: 99,
		Pos:        touch.Point{X: x, Y: y},
		Major:      major,
		Minor:      minor,
		Began:      time.Unix(10, 0),
	}
}

func TestPredictor_Idempotent(t *testing.T) {
	p := New(DefaultParams(), unitScreen)
	ps := testPose()
	ptr := pointing(32000, 46000, 400, 300)

	first := p.Predict(ps, ptr, time.Now())
	if first == nil {
		t.Fatal("expected a prediction")
	}
	if first.Confidence != Normal {
		t.Fatalf("Confidence = %s, want %s", first.Confidence, Normal)
	}

	// The same static input must reproduce the same output on every
	// following tick: the prediction is a pure function of current state.
	for i := 0; i < 5; i++ {
		next := p.Predict(ps, ptr, time.Now())
		if next.Pad != first.Pad {
			t.Fatalf("tick %d: Pad drifted from %+v to %+v", i+2, first.Pad, next.Pad)
		}
		if next.ScreenX != first.ScreenX || next.ScreenY != first.ScreenY {
			t.Fatalf("tick %d: screen position drifted", i+2)
		}
	}
}

func TestPredictor_NoPointerHoldsPrevious(t *testing.T) {
	p := New(DefaultParams(), unitScreen)
	ps := testPose()

	if got := p.Predict(ps, nil, time.Now()); got != nil {
		t.Fatalf("prediction before any pointer = %+v, want nil", got)
	}

	first := p.Predict(ps, pointing(32000, 46000, 400, 300), time.Now())
	if first == nil {
		t.Fatal("expected a prediction")
	}

	// Pointer lifts: the previous output is held, never zeroed.
	held := p.Predict(ps, nil, time.Now())
	if held == nil {
		t.Fatal("output must be held when the pointing contact lifts")
	}
	if held.Pad != first.Pad {
		t.Errorf("held Pad = %+v, want %+v", held.Pad, first.Pad)
	}
}

func TestPredictor_MinEllipseBoundaryInclusive(t *testing.T) {
	params := DefaultParams()
	p := New(params, unitScreen)
	ps := testPose()

	// Contact ellipse semi-axes land exactly on the minimums: Invalid.
	atMin := pointing(32000, 46000, params.MinA*2, params.MinB*2)
	if got := p.Predict(ps, atMin, time.Now()); got != nil {
		t.Fatalf("prediction at the minimum with no previous output = %+v, want nil", got)
	}

	// One unit above the boundary: Normal.
	above := pointing(32000, 46000, params.MinA*2+2, params.MinB*2+2)
	got := p.Predict(ps, above, time.Now())
	if got == nil || got.Confidence != Normal {
		t.Fatalf("prediction just above the minimum = %+v, want Normal", got)
	}

	// Back at the boundary the previous output is held and downgraded.
	heldAt := p.Predict(ps, atMin, time.Now())
	if heldAt == nil {
		t.Fatal("expected held output at the boundary")
	}
	if heldAt.Confidence != Invalid {
		t.Errorf("Confidence = %s, want %s", heldAt.Confidence, Invalid)
	}
	if heldAt.Pad != got.Pad {
		t.Errorf("held Pad = %+v, want previous %+v", heldAt.Pad, got.Pad)
	}
}

func TestPredictor_OcclusionSubstitutesDecayedVelocity(t *testing.T) {
	params := DefaultParams()
	p := New(params, unitScreen)
	ps := testPose()

	// Establish a good position and a velocity with two clean samples far
	// from the occlusion corridor.
	a := p.Predict(ps, pointing(33000, 47000, 400, 300), time.Now())
	b := p.Predict(ps, pointing(33500, 47000, 400, 300), time.Now())
	if a == nil || b == nil {
		t.Fatal("setup: expected clean predictions")
	}
	vel := b.Pad.Sub(a.Pad)

	// Move the sizeless pointing contact to sit between the centroid and
	// the middle finger: the middle now occludes it.
	occluded := pointing(25000, 44500, 0, 0)
	got := p.Predict(ps, occluded, time.Now())
	if got == nil {
		t.Fatal("expected an occluded prediction")
	}
	if got.Confidence != Occluded {
		t.Fatalf("Confidence = %s, want %s", got.Confidence, Occluded)
	}

	// The output is the last good position advanced by the decayed
	// velocity, not a fresh sample.
	want := b.Pad.Add(vel.Scale(params.VelocityDecay))
	if !scalar.EqualWithinAbs(got.Pad.X, want.X, 1e-9) || !scalar.EqualWithinAbs(got.Pad.Y, want.Y, 1e-9) {
		t.Errorf("occluded Pad = %+v, want %+v", got.Pad, want)
	}

	// The velocity keeps decaying on consecutive occluded ticks.
	got2 := p.Predict(ps, occluded, time.Now())
	want2 := want.Add(vel.Scale(params.VelocityDecay * params.VelocityDecay))
	if !scalar.EqualWithinAbs(got2.Pad.X, want2.X, 1e-9) {
		t.Errorf("second occluded Pad.X = %v, want %v", got2.Pad.X, want2.X)
	}
}

func TestPredictor_SectorAngleCorrection(t *testing.T) {
	params := DefaultParams()
	params.MarkDeg = -20
	params.MarkSlope = 1.5
	p := New(params, unitScreen)
	ps := testPose()

	// A pointing contact straight along the perpendicular axis has a raw
	// angle of zero, so the sector reduces to the configured offset.
	// The contact sits inside the occlusion corridor, so give it a touch
	// ellipse large enough to clear the stricter occluded minimums.
	c := ps.Centroid
	ptr := pointing(c.X+ps.Perp.X*5000, c.Y+ps.Perp.Y*5000, 500, 400)
	got := p.Predict(ps, ptr, time.Now())
	if got == nil {
		t.Fatal("expected a prediction")
	}
	want := -20 * math.Pi / 180
	if !scalar.EqualWithinAbs(got.Sector, want, 1e-9) {
		t.Errorf("Sector = %v, want %v", got.Sector, want)
	}
}

func TestPredictor_RadiusClampedToPointerEllipse(t *testing.T) {
	params := DefaultParams()
	params.MarkDeg = 0
	p := New(params, unitScreen)
	ps := testPose()

	// A pointing contact at the rim of the outer envelope along the
	// perpendicular axis: the warped radius clamps to the pointer-ellipse
	// ratio of the outer semi-axis.
	aOut := ps.Baseline.Norm() * params.OuterScale
	c := ps.Centroid
	ptr := pointing(c.X+ps.Perp.X*aOut, c.Y+ps.Perp.Y*aOut, 400, 300)
	got := p.Predict(ps, ptr, time.Now())
	if got == nil {
		t.Fatal("expected a prediction")
	}
	dist := got.Pad.Sub(c).Norm()
	want := params.PointerRatio * aOut
	if !scalar.EqualWithinAbs(dist, want, 1e-6) {
		t.Errorf("radius = %v, want clamp at %v", dist, want)
	}
}
