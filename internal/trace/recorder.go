// Package trace records the path of predicted positions during one armed
// interval and renders completed paths to image files.
package trace

import (
	"time"

	"github.com/ayusman/tripoint/internal/touch"
)

// Path is the ordered recording of one armed interval: every tick's
// predicted pad point plus the reference contact positions alongside it.
type Path struct {
	StartedAt time.Time
	EndedAt   time.Time
	// Points are the predicted pad positions, in recording order.
	Points []touch.Point
	// Refs are the reference finger paths (thumb, middle, pinky), sampled
	// on the same ticks as Points.
	Refs [3][]touch.Point
}

// Empty reports whether nothing was recorded.
func (p Path) Empty() bool {
	return len(p.Points) == 0
}

// Recorder accumulates a Path while the trigger is armed. It is owned by
// the tick loop and is not safe for concurrent use.
type Recorder struct {
	recording bool
	path      Path
}

// NewRecorder creates an idle Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Recording reports whether an armed interval is being recorded.
func (r *Recorder) Recording() bool {
	return r.recording
}

// Start begins a new recording, discarding any unfinished one.
func (r *Recorder) Start(now time.Time) {
	r.path = Path{StartedAt: now}
	r.recording = true
}

// Append adds one tick's predicted point and reference positions. It is a
// no-op while not recording.
func (r *Recorder) Append(predicted touch.Point, refs [3]touch.Point) {
	if !r.recording {
		return
	}
	r.path.Points = append(r.path.Points, predicted)
	for i := range refs {
		r.path.Refs[i] = append(r.path.Refs[i], refs[i])
	}
}

// Stop ends the recording and returns the completed path. The second return
// is false when nothing was recorded. Internal state is cleared either way.
func (r *Recorder) Stop(now time.Time) (Path, bool) {
	if !r.recording {
		return Path{}, false
	}
	p := r.path
	p.EndedAt = now
	r.path = Path{}
	r.recording = false
	return p, !p.Empty()
}

// Discard drops any recording in progress without handing it off.
func (r *Recorder) Discard() {
	r.path = Path{}
	r.recording = false
}
