// Package app provides the main application logic for the tripoint pointing daemon.
package app

import (
	"fmt"
	"sync"

	"github.com/ayusman/tripoint/internal/pointer"
	"github.com/ayusman/tripoint/internal/pose"
	"github.com/ayusman/tripoint/internal/predict"
	"github.com/ayusman/tripoint/internal/server"
	"github.com/ayusman/tripoint/internal/store"
	"github.com/ayusman/tripoint/internal/touch"
	"github.com/ayusman/tripoint/internal/trace"
	"github.com/ayusman/tripoint/internal/trigger"
)

// TraceQueueSize is the number of completed recordings that may wait for
// rendering before new ones are dropped.
const TraceQueueSize = 4

// Config holds configuration options for the application.
type Config struct {
	Calibration touch.Calibration
	MaxContacts int
	StaleTicks  int

	Pose   pose.Config
	Params predict.Params
	Screen predict.Screen

	TriggerMode trigger.Mode
	Hold        trigger.Config
	HotkeyCode  uint16

	Sink     pointer.Sink
	Renderer *trace.Renderer
	Store    *store.Store
	State    *server.State

	// OnSession is called from the trace worker after each completed
	// session has been persisted.
	OnSession func(sess *store.Session)
}

// App is the main application that turns touch reports into pointer output.
type App struct {
	config Config

	tracker   *touch.Tracker
	estimator *pose.Estimator
	predictor *predict.Predictor
	strategy  trigger.Strategy
	recorder  *trace.Recorder

	phase      trigger.Phase
	lastScreen [2]int32

	enabled bool
	hotkey  bool
	mu      sync.RWMutex

	stopCh  chan struct{}
	traceCh chan trace.Path
	wg      sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	if config.Sink == nil {
		return nil, fmt.Errorf("app: pointer sink is required")
	}
	strategy, err := trigger.New(config.TriggerMode, config.Hold)
	if err != nil {
		return nil, err
	}

	return &App{
		config:    config,
		tracker:   touch.NewTracker(config.Calibration, config.MaxContacts, config.StaleTicks),
		estimator: pose.NewEstimator(config.Pose),
		predictor: predict.New(config.Params, config.Screen),
		strategy:  strategy,
		recorder:  trace.NewRecorder(),
		phase:     trigger.Idle,
		enabled:   true,
		traceCh:   make(chan trace.Path, TraceQueueSize),
	}, nil
}

// SetEnabled enables or disables pointer output. While disabled the pipeline
// drops its state and any recording in progress.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether the pipeline is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Phase returns the trigger phase after the most recent tick.
func (a *App) Phase() trigger.Phase {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.phase
}

func (a *App) setPhase(p trigger.Phase) {
	a.mu.Lock()
	a.phase = p
	a.mu.Unlock()
}

func (a *App) hotkeyDown() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hotkey
}

func (a *App) setHotkey(down bool) {
	a.mu.Lock()
	a.hotkey = down
	a.mu.Unlock()
}
