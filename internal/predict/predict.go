package predict

import (
	"math"
	"time"

	"github.com/ayusman/tripoint/internal/pose"
	"github.com/ayusman/tripoint/internal/touch"
)

// Confidence classifies one tick's prediction quality.
type Confidence string

const (
	// Normal is a fresh, trusted prediction.
	Normal Confidence = "normal"
	// Occluded means the middle finger corrupted the reading; the output
	// is the last good position advanced by a decayed velocity estimate.
	Occluded Confidence = "occluded"
	// Invalid means the contact geometry was degenerate; the previous
	// output is held unchanged.
	Invalid Confidence = "invalid"
)

// occlusionLaneFrac is the lateral half-width of the occlusion corridor,
// as a fraction of the outer ellipse semi-axis.
const occlusionLaneFrac = 0.25

// Screen describes the output display resolution.
type Screen struct {
	Width  int
	Height int
}

// Prediction is the pointer output of one tick. It is a pure function of
// the current pose, the pointing contact and the predictor's hold state;
// it is never persisted across ticks.
type Prediction struct {
	// Pad is the predicted position in normalized pad units.
	Pad pose.Vec `json:"pad"`
	// ScreenX and ScreenY are the predicted absolute screen coordinates.
	ScreenX int `json:"screen_x"`
	ScreenY int `json:"screen_y"`
	// Sector is the corrected angle, in radians, measured from the
	// reference frame's perpendicular axis.
	Sector float64 `json:"sector"`
	// OuterA and PointerA are the outer and pointer ellipse semi-axes in
	// normalized pad units, for overlay rendering.
	OuterA     float64    `json:"outer_a"`
	PointerA   float64    `json:"pointer_a"`
	Confidence Confidence `json:"confidence"`
	Time       time.Time  `json:"-"`
}

// Predictor computes predictions and carries the minimal hold state needed
// to bridge occluded or degenerate ticks without cursor jumps.
type Predictor struct {
	params Params
	screen Screen

	last     *Prediction
	lastGood pose.Vec
	velocity pose.Vec
	haveGood bool
}

// New creates a Predictor for the given model parameters and screen.
func New(params Params, screen Screen) *Predictor {
	if params.VelocityDecay <= 0 || params.VelocityDecay >= 1 {
		params.VelocityDecay = DefaultParams().VelocityDecay
	}
	return &Predictor{params: params, screen: screen}
}

// Predict produces this tick's prediction. A nil pointing contact holds the
// previous output rather than zeroing it, so the cursor never snaps to the
// origin; the return is nil only before any prediction was ever made.
func (p *Predictor) Predict(ps pose.Pose, pointer *touch.Contact, now time.Time) *Prediction {
	if !ps.Valid || pointer == nil {
		return p.last
	}

	aOut := ps.Baseline.Norm() * p.params.OuterScale
	if aOut <= 0 {
		return p.last
	}
	// The reachable envelope is circular in normalized pad space; pad
	// anisotropy makes it an ellipse in physical units.
	bOut := aOut

	u := ps.Baseline.Unit()
	v := ps.Perp

	d := pose.PointVec(pointer.Pos).Sub(ps.Centroid)
	xl := d.Dot(u)
	yl := d.Dot(v)

	// Local polar coordinates: angle from the perpendicular axis and
	// normalized radius within the outer ellipse.
	phi := math.Atan2(xl, yl)
	rho := math.Hypot(xl/aOut, yl/bOut)
	if rho > 1 {
		rho = 1
	}

	// Power-law radius warp, then the angular bias correction.
	rho = math.Pow(rho, p.params.CenterShiftGamma)
	if ratio := clampRatio(p.params.PointerRatio); rho > ratio {
		rho = ratio
	}
	sector := p.params.MarkSlope*phi + p.params.MarkDeg*math.Pi/180

	pad := ps.Centroid.
		Add(u.Scale(rho * aOut * math.Sin(sector))).
		Add(v.Scale(rho * bOut * math.Cos(sector)))

	conf := p.classify(ps, pointer, aOut)
	switch conf {
	case Invalid:
		// Suppress this tick; hold the previous output.
		if p.last == nil {
			return nil
		}
		held := *p.last
		held.Confidence = Invalid
		held.Time = now
		p.last = &held
		return p.last
	case Occluded:
		if !p.haveGood {
			return p.last
		}
		// Advance the last good position by the decayed velocity instead
		// of trusting an occlusion-corrupted sample.
		p.velocity = p.velocity.Scale(p.params.VelocityDecay)
		p.lastGood = p.lastGood.Add(p.velocity)
		pad = p.lastGood
	default:
		if p.haveGood {
			p.velocity = pad.Sub(p.lastGood)
		}
		p.lastGood = pad
		p.haveGood = true
	}

	sx, sy := p.toScreen(pad)
	p.last = &Prediction{
		Pad:        pad,
		ScreenX:    sx,
		ScreenY:    sy,
		Sector:     sector,
		OuterA:     aOut,
		PointerA:   aOut * clampRatio(p.params.PointerRatio),
		Confidence: conf,
		Time:       now,
	}
	return p.last
}

// Reset clears all hold state, as on reference pose loss.
func (p *Predictor) Reset() {
	p.last = nil
	p.haveGood = false
	p.velocity = pose.Vec{}
}

// classify grades the sample from the contact's instantaneous ellipse and
// the occlusion geometry. Boundaries are inclusive: a contact ellipse
// exactly at the minimum is rejected.
func (p *Predictor) classify(ps pose.Pose, pointer *touch.Contact, aOut float64) Confidence {
	eA, eB := p.contactEllipse(pointer)

	if p.occluded(ps, pointer, aOut) {
		if eA <= p.params.MinMA || eB <= p.params.MinMB {
			return Occluded
		}
		return Normal
	}
	if eA <= p.params.MinA || eB <= p.params.MinB {
		return Invalid
	}
	return Normal
}

// contactEllipse derives the pointing contact's instantaneous ellipse
// semi-axes in screen pixels, falling back to defaults when the pad reports
// no touch size.
func (p *Predictor) contactEllipse(pointer *touch.Contact) (float64, float64) {
	if pointer.Major <= 0 {
		return p.params.DefaultContactA, p.params.DefaultContactB
	}
	sx := float64(p.screen.Width-1) / touch.NormMax
	sy := float64(p.screen.Height-1) / touch.NormMax
	eA := pointer.Major / 2 * sx
	eB := pointer.Minor / 2 * sy
	if pointer.Minor <= 0 {
		eB = pointer.Major / 2 * sy
	}
	return eA, eB
}

// occluded reports whether the middle reference finger lies between the
// pointing contact and the outer ellipse arc, within a narrow corridor
// around the centroid-to-pointer ray.
func (p *Predictor) occluded(ps pose.Pose, pointer *touch.Contact, aOut float64) bool {
	if p.params.OcclusionMode != OcclusionGeometric {
		return false
	}
	toPointer := pose.PointVec(pointer.Pos).Sub(ps.Centroid)
	dist := toPointer.Norm()
	if dist == 0 {
		return false
	}
	dir := toPointer.Scale(1 / dist)

	toMiddle := pose.PointVec(ps.Middle.Pos).Sub(ps.Centroid)
	along := toMiddle.Dot(dir)
	if along <= dist || along >= aOut {
		return false
	}
	lateral := toMiddle.Sub(dir.Scale(along)).Norm()
	return lateral < aOut*occlusionLaneFrac
}

// toScreen applies the affine pad-to-screen transform.
func (p *Predictor) toScreen(pad pose.Vec) (int, int) {
	x := int(pad.X / touch.NormMax * float64(p.screen.Width-1))
	y := int(pad.Y / touch.NormMax * float64(p.screen.Height-1))
	return clampInt(x, 0, p.screen.Width-1), clampInt(y, 0, p.screen.Height-1)
}

func clampRatio(r float64) float64 {
	if r < 0.05 {
		return 0.05
	}
	if r > 0.95 {
		return 0.95
	}
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
