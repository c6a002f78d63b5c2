// Package predict maps the pointing contact through the reference frame into
// a predicted screen position, using an empirical elliptical model.
package predict

// Params are the tunable geometry constants of the prediction model. They
// are fixed at startup; nothing here is learned.
type Params struct {
	// OuterScale scales the outer ellipse, the reachable envelope of the
	// pointing finger, relative to the baseline length.
	OuterScale float64
	// PointerRatio sizes the high-confidence pointer ellipse as a fraction
	// of the outer ellipse. Clamped to 0.05..0.95.
	PointerRatio float64
	// CenterShiftGamma is the power-law exponent warping the normalized
	// radius: reach sensitivity is higher near the center of the arc, so
	// the mapping is deliberately nonlinear.
	CenterShiftGamma float64
	// MarkDeg is a fixed angular offset, in degrees, applied to the sector
	// angle before the final mapping.
	MarkDeg float64
	// MarkSlope is the linear gain on the sector angle, compensating for
	// systematic hand-rotation bias.
	MarkSlope float64

	// MinA and MinB are the minimum contact ellipse semi-axes, in screen
	// pixels, below which (inclusive) a sample is Invalid.
	MinA float64
	MinB float64
	// MinMA and MinMB are the stricter minimums applied when the middle
	// reference finger occludes the pointing contact.
	MinMA float64
	MinMB float64

	// DefaultContactA and DefaultContactB stand in for the contact ellipse
	// when the pad reports no touch size.
	DefaultContactA float64
	DefaultContactB float64

	// VelocityDecay damps the held velocity estimate used while occluded.
	VelocityDecay float64

	// OcclusionMode names the occlusion detection strategy. Only
	// "geometric" is implemented: the middle contact lies between the
	// pointing contact and the outer ellipse arc.
	OcclusionMode string
}

// OcclusionGeometric detects occlusion from contact geometry alone.
const OcclusionGeometric = "geometric"

// DefaultParams returns the empirically tuned model constants.
func DefaultParams() Params {
	return Params{
		OuterScale:       1.0,
		PointerRatio:     0.62,
		CenterShiftGamma: 1.0,
		MarkDeg:          -20.0,
		MarkSlope:        1.0,
		MinA:             160,
		MinB:             120,
		MinMA:            200,
		MinMB:            140,
		DefaultContactA:  180,
		DefaultContactB:  130,
		VelocityDecay:    0.8,
		OcclusionMode:    OcclusionGeometric,
	}
}
