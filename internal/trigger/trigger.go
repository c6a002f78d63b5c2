// Package trigger decides when pointer output is armed. Strategies form a
// closed set selected once at startup; every strategy is evaluated once per
// tick against the same snapshot of inputs.
package trigger

import (
	"fmt"
	"time"

	"github.com/ayusman/tripoint/internal/pose"
)

// Phase is the trigger state machine's current state.
type Phase string

const (
	// Idle forwards nothing and records nothing.
	Idle Phase = "idle"
	// Holding is a candidate hold that has not yet reached the threshold.
	Holding Phase = "holding"
	// Armed forwards predictions to the output sink and the recorder.
	Armed Phase = "armed"
)

// Defaults for the gesture-hold strategy.
const (
	// DefaultHold is the press-and-hold time before arming.
	DefaultHold = 350 * time.Millisecond
	// DefaultTolerance is how far, in normalized pad units, the pointing
	// contact may wander during the hold.
	DefaultTolerance = 1500
)

// Mode names a trigger strategy.
type Mode string

const (
	// ModeGesture arms after the pointing contact holds still.
	ModeGesture Mode = "gesture"
	// ModeHotkey arms while a configured key is held down.
	ModeHotkey Mode = "hotkey"
	// ModeBoth arms when either strategy would.
	ModeBoth Mode = "both"
)

// Input is one tick's worth of trigger-relevant observations.
type Input struct {
	Now         time.Time
	PoseValid   bool
	PointerDown bool
	PointerPos  pose.Vec
	HotkeyDown  bool
}

// Strategy evaluates the tick inputs into a phase. Implementations keep
// their own state; callers detect transitions by comparing phases across
// ticks.
type Strategy interface {
	Evaluate(in Input) Phase
	Reset()
}

// Config holds the gesture-hold strategy tunables.
type Config struct {
	Hold      time.Duration
	Tolerance float64
}

// New builds the strategy for the given mode.
func New(mode Mode, cfg Config) (Strategy, error) {
	switch mode {
	case ModeGesture, "":
		return NewHold(cfg), nil
	case ModeHotkey:
		return NewHotkey(), nil
	case ModeBoth:
		return &combined{strategies: []Strategy{NewHold(cfg), NewHotkey()}}, nil
	}
	return nil, fmt.Errorf("unknown trigger mode %q", mode)
}

// Hold is the press-and-hold strategy: the pointing contact must stay
// present, with a valid reference pose, within a small movement tolerance,
// for the hold duration. Breaking the hold before the threshold returns to
// Idle without ever emitting output.
type Hold struct {
	hold      time.Duration
	tolerance float64

	phase   Phase
	anchor  pose.Vec
	started time.Time
}

// NewHold creates the gesture-hold strategy, applying defaults for zero
// config values.
func NewHold(cfg Config) *Hold {
	if cfg.Hold <= 0 {
		cfg.Hold = DefaultHold
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Hold{hold: cfg.Hold, tolerance: cfg.Tolerance, phase: Idle}
}

// Evaluate advances the state machine by one tick.
func (h *Hold) Evaluate(in Input) Phase {
	holdCondition := in.PoseValid && in.PointerDown

	switch h.phase {
	case Idle:
		if holdCondition {
			h.phase = Holding
			h.anchor = in.PointerPos
			h.started = in.Now
		}
	case Holding:
		switch {
		case !holdCondition:
			h.phase = Idle
		case in.PointerPos.Sub(h.anchor).Norm() > h.tolerance:
			// The finger moved before the threshold: not a hold.
			h.phase = Idle
		case in.Now.Sub(h.started) >= h.hold:
			h.phase = Armed
		}
	case Armed:
		if !holdCondition {
			h.phase = Idle
		}
	}
	return h.phase
}

// Reset returns the strategy to Idle.
func (h *Hold) Reset() {
	h.phase = Idle
}

// Hotkey is the keyboard strategy: output is armed exactly while the
// configured key is held.
type Hotkey struct {
	phase Phase
}

// NewHotkey creates the hotkey strategy.
func NewHotkey() *Hotkey {
	return &Hotkey{phase: Idle}
}

// Evaluate arms while the hotkey is down.
func (k *Hotkey) Evaluate(in Input) Phase {
	if in.HotkeyDown {
		k.phase = Armed
	} else {
		k.phase = Idle
	}
	return k.phase
}

// Reset returns the strategy to Idle.
func (k *Hotkey) Reset() {
	k.phase = Idle
}

// combined arms when any member strategy arms; otherwise it reports the
// most advanced member phase.
type combined struct {
	strategies []Strategy
}

func (c *combined) Evaluate(in Input) Phase {
	out := Idle
	for _, s := range c.strategies {
		switch s.Evaluate(in) {
		case Armed:
			out = Armed
		case Holding:
			if out == Idle {
				out = Holding
			}
		}
	}
	return out
}

func (c *combined) Reset() {
	for _, s := range c.strategies {
		s.Reset()
	}
}
