package server

import (
	"sync"
	"time"

	"github.com/ayusman/tripoint/internal/predict"
	"github.com/ayusman/tripoint/internal/touch"
)

// Snapshot is one tick's view of the pipeline, published for the overlay.
type Snapshot struct {
	Time      time.Time           `json:"time"`
	Phase     string              `json:"phase"`
	Contacts  int                 `json:"contacts"`
	PoseValid bool                `json:"pose_valid"`
	Refs      [3]touch.Point      `json:"refs"`
	Centroid  touch.Point         `json:"centroid"`
	Pointer   *touch.Point        `json:"pointer,omitempty"`
	Predicted *predict.Prediction `json:"predicted,omitempty"`
}

// State holds the latest snapshot. Publishing never blocks the tick loop;
// readers always see the most recent complete snapshot.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
	ok   bool
}

// NewState creates an empty State.
func NewState() *State {
	return &State{}
}

// Publish replaces the current snapshot.
func (s *State) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.ok = true
	s.mu.Unlock()
}

// Latest returns the current snapshot. The second return is false until the
// first Publish.
func (s *State) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.ok
}
