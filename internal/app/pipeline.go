package app

import (
	"log"
	"time"

	"github.com/ayusman/tripoint/internal/pose"
	"github.com/ayusman/tripoint/internal/predict"
	"github.com/ayusman/tripoint/internal/server"
	"github.com/ayusman/tripoint/internal/store"
	"github.com/ayusman/tripoint/internal/touch"
	"github.com/ayusman/tripoint/internal/trace"
	"github.com/ayusman/tripoint/internal/trigger"
)

// Start begins consuming touch reports. It is a no-op when already running.
func (a *App) Start(reports <-chan touch.Report) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return
	}
	a.stopCh = make(chan struct{})
	// run closes the trace queue on exit, so a restart needs a fresh one.
	a.traceCh = make(chan trace.Path, TraceQueueSize)

	a.wg.Add(2)
	go a.run(reports)
	go a.traceWorker()

	log.Println("Pointing pipeline started")
}

// Stop halts the pipeline, releases the virtual contact and waits for any
// queued trace to finish rendering.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	a.mu.Unlock()

	a.wg.Wait()
	log.Println("Pointing pipeline stopped")
}

// run is the main loop: one iteration per sync report from the touchpad.
//
// Pipeline logic:
// 1. Fold the report into the contact tracker
// 2. Re-evaluate the reference pose
// 3. Predict the pointer position from the pointing contact
// 4. Evaluate the trigger state machine
// 5. While armed, forward positions to the sink and the recorder
// 6. On disarm, flush the recording to the trace worker
func (a *App) run(reports <-chan touch.Report) {
	defer a.wg.Done()
	defer close(a.traceCh)

	stopCh := a.stopCh
	for {
		select {
		case <-stopCh:
			a.deactivate(time.Now())
			return
		case r, ok := <-reports:
			if !ok {
				a.deactivate(time.Now())
				return
			}
			if !a.IsEnabled() {
				a.suspend()
				continue
			}
			a.process(r, time.Now())
		}
	}
}

// process advances the pipeline by one report.
func (a *App) process(r touch.Report, now time.Time) {
	contacts := a.tracker.Apply(r)
	ps, ptr := a.estimator.Update(contacts, now)

	if !ps.Valid {
		a.predictor.Reset()
	}

	var pred *predict.Prediction
	if ps.Valid {
		pred = a.predictor.Predict(ps, ptr, now)
	}

	in := trigger.Input{
		Now:         now,
		PoseValid:   ps.Valid,
		PointerDown: ptr != nil,
		HotkeyDown:  a.hotkeyDown(),
	}
	if ptr != nil {
		in.PointerPos = pose.PointVec(ptr.Pos)
	}

	prev := a.Phase()
	phase := a.strategy.Evaluate(in)
	a.setPhase(phase)

	if prev != trigger.Armed && phase == trigger.Armed {
		a.recorder.Start(now)
		log.Println("Trigger armed")
	}

	if phase == trigger.Armed && pred != nil {
		x, y := int32(pred.ScreenX), int32(pred.ScreenY)
		if err := a.config.Sink.Frame(x, y, true); err != nil {
			log.Printf("Error writing pointer frame: %v", err)
		}
		a.lastScreen = [2]int32{x, y}
		a.recorder.Append(touch.Point{X: pred.Pad.X, Y: pred.Pad.Y}, refPoints(ps))
	}

	if prev == trigger.Armed && phase != trigger.Armed {
		a.release(now)
	}

	a.publish(now, phase, len(contacts), ps, ptr, pred)
}

// release lifts the virtual contact and hands the recording to the worker.
func (a *App) release(now time.Time) {
	if err := a.config.Sink.Frame(a.lastScreen[0], a.lastScreen[1], false); err != nil {
		log.Printf("Error releasing pointer: %v", err)
	}
	path, ok := a.recorder.Stop(now)
	if !ok {
		return
	}
	select {
	case a.traceCh <- path:
	default:
		log.Printf("Trace queue full, dropping recording with %d points", len(path.Points))
	}
}

// suspend drops all pipeline state while output is disabled.
func (a *App) suspend() {
	if a.Phase() == trigger.Armed {
		if err := a.config.Sink.Frame(a.lastScreen[0], a.lastScreen[1], false); err != nil {
			log.Printf("Error releasing pointer: %v", err)
		}
	}
	a.recorder.Discard()
	a.strategy.Reset()
	a.tracker.Reset()
	a.estimator.Invalidate()
	a.predictor.Reset()
	a.setPhase(trigger.Idle)
}

// deactivate flushes any active recording on shutdown.
func (a *App) deactivate(now time.Time) {
	if a.Phase() == trigger.Armed {
		a.release(now)
		a.setPhase(trigger.Idle)
	}
}

// publish updates the overlay snapshot.
func (a *App) publish(now time.Time, phase trigger.Phase, contacts int, ps pose.Pose, ptr *touch.Contact, pred *predict.Prediction) {
	if a.config.State == nil {
		return
	}
	snap := server.Snapshot{
		Time:      now,
		Phase:     string(phase),
		Contacts:  contacts,
		PoseValid: ps.Valid,
	}
	if ps.Valid {
		snap.Refs = refPoints(ps)
		snap.Centroid = touch.Point{X: ps.Centroid.X, Y: ps.Centroid.Y}
	}
	if ptr != nil {
		pos := ptr.Pos
		snap.Pointer = &pos
	}
	if pred != nil {
		p := *pred
		snap.Predicted = &p
	}
	a.config.State.Publish(snap)
}

// traceWorker renders completed recordings and persists their sessions. It
// runs off the tick path so rendering never stalls pointer output.
func (a *App) traceWorker() {
	defer a.wg.Done()

	for path := range a.traceCh {
		if a.config.Renderer == nil {
			continue
		}
		img, err := a.config.Renderer.Render(path)
		if err != nil {
			log.Printf("Error rendering trace: %v", err)
			continue
		}
		log.Printf("Recorded trace with %d points to %s", len(path.Points), img)

		if a.config.Store == nil {
			continue
		}
		sess := &store.Session{
			StartedAt:  path.StartedAt,
			EndedAt:    path.EndedAt,
			PointCount: len(path.Points),
			ImagePath:  img,
		}
		if err := a.config.Store.Sessions().Create(sess); err != nil {
			log.Printf("Error saving session: %v", err)
			continue
		}
		if a.config.OnSession != nil {
			a.config.OnSession(sess)
		}
	}
}

// HotkeyLoop watches a keyboard report stream for the configured key and
// mirrors its state into the trigger input. It returns when the stream closes.
func (a *App) HotkeyLoop(reports <-chan touch.Report) {
	for r := range reports {
		for _, ev := range r.Events {
			if ev.Type != touch.EvKey || ev.Code != a.config.HotkeyCode {
				continue
			}
			// Value 2 is key repeat; the key is still down.
			a.setHotkey(ev.Value != 0)
		}
	}
	a.setHotkey(false)
}

// refPoints extracts the reference pad positions in thumb, middle, pinky order.
func refPoints(ps pose.Pose) [3]touch.Point {
	return [3]touch.Point{ps.Thumb.Pos, ps.Middle.Pos, ps.Pinky.Pos}
}
