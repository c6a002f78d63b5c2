// Package config loads and validates the tripoint daemon configuration
// from a TOML file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/tripoint/internal/pointer"
	"github.com/ayusman/tripoint/internal/pose"
	"github.com/ayusman/tripoint/internal/predict"
	"github.com/ayusman/tripoint/internal/trigger"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config is the full daemon configuration as read from TOML.
type Config struct {
	// Input devices.
	TouchDevice  string `toml:"touch_device"`
	HotkeyDevice string `toml:"hotkey_device"`
	HotkeyCode   int    `toml:"hotkey_code"`
	Grab         bool   `toml:"grab"`

	// Pad calibration. Zero bounds mean "read from the device".
	PadMinX int32   `toml:"pad_min_x"`
	PadMaxX int32   `toml:"pad_max_x"`
	PadMinY int32   `toml:"pad_min_y"`
	PadMaxY int32   `toml:"pad_max_y"`
	Margin  float64 `toml:"margin"`

	// Contact tracking.
	MaxContacts int `toml:"max_contacts"`
	StaleTicks  int `toml:"stale_ticks"`

	// Reference pose.
	RefCount   int    `toml:"ref_count"`
	JitterPx   int    `toml:"jitter_px"`
	Handedness string `toml:"handedness"`

	// Prediction.
	OuterEllipseScale   float64 `toml:"outer_ellipse_scale"`
	PointerEllipseRatio float64 `toml:"pointer_ellipse_ratio"`
	CenterShiftGamma    float64 `toml:"pointer_center_shift_gamma"`
	PointerMarkDeg      float64 `toml:"pointer_mark_deg"`
	PointerMarkSlope    float64 `toml:"pointer_mark_slope"`
	PredMinEllipseA     float64 `toml:"pred_min_ellipse_a_px"`
	PredMinEllipseB     float64 `toml:"pred_min_ellipse_b_px"`
	PredMinMEllipseA    float64 `toml:"pred_minM_ellipse_a_px"`
	PredMinMEllipseB    float64 `toml:"pred_minM_ellipse_b_px"`
	OcclusionMode       string  `toml:"occlusion_mode"`
	VelocityDecay       float64 `toml:"velocity_decay"`

	// Trigger.
	Trigger       string `toml:"trigger"`
	GestureHoldMs int    `toml:"gesture_hold_ms"`
	HoldTolerance int    `toml:"hold_tolerance"`

	// Output.
	ScreenWidth  int32  `toml:"screen_width"`
	ScreenHeight int32  `toml:"screen_height"`
	UInputPath   string `toml:"uinput_path"`

	// Persistence and observability.
	ShotsDir   string `toml:"shots_dir"`
	DBPath     string `toml:"db_path"`
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	params := predict.DefaultParams()
	return Config{
		TouchDevice: "/dev/input/event0",
		HotkeyCode:  0x38, // KEY_LEFTALT
		Grab:        true,

		Margin:      0.0,
		MaxContacts: 10,
		StaleTicks:  30,

		RefCount:   3,
		JitterPx:   pose.DefaultJitter,
		Handedness: string(pose.LeftToRight),

		OuterEllipseScale:   params.OuterScale,
		PointerEllipseRatio: params.PointerRatio,
		CenterShiftGamma:    params.CenterShiftGamma,
		PointerMarkDeg:      params.MarkDeg,
		PointerMarkSlope:    params.MarkSlope,
		PredMinEllipseA:     params.MinA,
		PredMinEllipseB:     params.MinB,
		PredMinMEllipseA:    params.MinMA,
		PredMinMEllipseB:    params.MinMB,
		OcclusionMode:       predict.OcclusionGeometric,
		VelocityDecay:       params.VelocityDecay,

		Trigger:       string(trigger.ModeGesture),
		GestureHoldMs: int(trigger.DefaultHold / time.Millisecond),
		HoldTolerance: trigger.DefaultTolerance,

		ScreenWidth:  1920,
		ScreenHeight: 1080,
		UInputPath:   pointer.DefaultDevicePath,

		ShotsDir:   filepath.Join(dataDir(), "shots"),
		DBPath:     filepath.Join(dataDir(), "tripoint.db"),
		ListenAddr: "127.0.0.1:8743",
	}
}

// Load reads the config file at path, or Dir()/config.toml when path is
// empty. A missing file is initialized with defaults first.
func Load(path string) (Config, error) {
	if path == "" {
		if err := initializeIfMissing(); err != nil {
			return Config{}, err
		}
		path = filepath.Join(Dir(), FileName)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks numeric ranges and enum values. The daemon refuses to
// start on any violation.
func (c Config) Validate() error {
	if c.TouchDevice == "" {
		return fmt.Errorf("touch_device must be set")
	}
	if c.Margin < 0 || c.Margin > 0.45 {
		return fmt.Errorf("margin %v out of range [0, 0.45]", c.Margin)
	}
	if c.PadMaxX != 0 && c.PadMaxX <= c.PadMinX {
		return fmt.Errorf("pad_max_x must exceed pad_min_x")
	}
	if c.PadMaxY != 0 && c.PadMaxY <= c.PadMinY {
		return fmt.Errorf("pad_max_y must exceed pad_min_y")
	}
	if c.MaxContacts < 4 {
		return fmt.Errorf("max_contacts %d too small, need at least ref_count+1", c.MaxContacts)
	}
	if c.StaleTicks < 1 {
		return fmt.Errorf("stale_ticks must be positive")
	}
	if c.RefCount != 3 {
		return fmt.Errorf("ref_count %d unsupported, only 3 reference contacts are defined", c.RefCount)
	}
	if c.JitterPx < 0 {
		return fmt.Errorf("jitter_px must not be negative")
	}
	switch pose.Handedness(c.Handedness) {
	case pose.LeftToRight, pose.RightToLeft:
	default:
		return fmt.Errorf("handedness %q must be %q or %q", c.Handedness, pose.LeftToRight, pose.RightToLeft)
	}
	if c.OuterEllipseScale <= 0 {
		return fmt.Errorf("outer_ellipse_scale must be positive")
	}
	if c.PointerEllipseRatio <= 0 || c.PointerEllipseRatio > 1 {
		return fmt.Errorf("pointer_ellipse_ratio %v out of range (0, 1]", c.PointerEllipseRatio)
	}
	if c.CenterShiftGamma <= 0 {
		return fmt.Errorf("pointer_center_shift_gamma must be positive")
	}
	if c.PredMinEllipseA <= 0 || c.PredMinEllipseB <= 0 ||
		c.PredMinMEllipseA <= 0 || c.PredMinMEllipseB <= 0 {
		return fmt.Errorf("min ellipse thresholds must be positive")
	}
	if c.OcclusionMode != predict.OcclusionGeometric {
		return fmt.Errorf("occlusion_mode %q unsupported, only %q is defined", c.OcclusionMode, predict.OcclusionGeometric)
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay >= 1 {
		return fmt.Errorf("velocity_decay %v out of range (0, 1)", c.VelocityDecay)
	}
	switch trigger.Mode(c.Trigger) {
	case trigger.ModeGesture, trigger.ModeHotkey, trigger.ModeBoth:
	default:
		return fmt.Errorf("trigger %q must be gesture, hotkey, or both", c.Trigger)
	}
	if trigger.Mode(c.Trigger) != trigger.ModeGesture && c.HotkeyDevice == "" {
		return fmt.Errorf("trigger %q requires hotkey_device", c.Trigger)
	}
	if c.GestureHoldMs < 1 {
		return fmt.Errorf("gesture_hold_ms must be positive")
	}
	if c.HoldTolerance < 0 {
		return fmt.Errorf("hold_tolerance must not be negative")
	}
	if c.ScreenWidth < 1 || c.ScreenHeight < 1 {
		return fmt.Errorf("screen size %dx%d invalid", c.ScreenWidth, c.ScreenHeight)
	}
	if c.ShotsDir == "" || c.DBPath == "" {
		return fmt.Errorf("shots_dir and db_path must be set")
	}
	return nil
}

// Params converts the prediction settings into predictor parameters.
func (c Config) Params() predict.Params {
	p := predict.DefaultParams()
	p.OuterScale = c.OuterEllipseScale
	p.PointerRatio = c.PointerEllipseRatio
	p.CenterShiftGamma = c.CenterShiftGamma
	p.MarkDeg = c.PointerMarkDeg
	p.MarkSlope = c.PointerMarkSlope
	p.MinA = c.PredMinEllipseA
	p.MinB = c.PredMinEllipseB
	p.MinMA = c.PredMinMEllipseA
	p.MinMB = c.PredMinMEllipseB
	p.VelocityDecay = c.VelocityDecay
	return p
}

// HoldDuration returns the gesture hold threshold.
func (c Config) HoldDuration() time.Duration {
	return time.Duration(c.GestureHoldMs) * time.Millisecond
}

// Dir returns the config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	return filepath.Join(xdgOrFallback("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), "tripoint")
}

func dataDir() string {
	return filepath.Join(xdgOrFallback("XDG_DATA_HOME", filepath.Join(os.Getenv("HOME"), ".local", "share")), "tripoint")
}

func initializeIfMissing() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return Write(path, Default())
}

// Write encodes cfg as TOML at path.
func Write(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func xdgOrFallback(xdg, fallback string) string {
	if dir := os.Getenv(xdg); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return fallback
}
