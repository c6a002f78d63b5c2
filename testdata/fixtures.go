// Package testdata provides scripted touch report sequences for
// end-to-end tests. Coordinates are in normalized pad units with an
// identity calibration (0..65535 raw maps straight through).
package testdata

import (
	"time"

	"github.com/ayusman/tripoint/internal/touch"
)

// Frame builds a single report from slot updates. Each update is
// (slot, trackingID, x, y); trackingID -1 releases the slot.
func Frame(at time.Time, updates ...[4]int32) touch.Report {
	var events []touch.Event
	for _, u := range updates {
		events = append(events, touch.Event{Type: touch.EvAbs, Code: touch.AbsMTSlot, Value: u[0]})
		events = append(events, touch.Event{Type: touch.EvAbs, Code: touch.AbsMTTrackingID, Value: u[1]})
		if u[1] >= 0 {
			events = append(events, touch.Event{Type: touch.EvAbs, Code: touch.AbsMTPositionX, Value: u[2]})
			events = append(events, touch.Event{Type: touch.EvAbs, Code: touch.AbsMTPositionY, Value: u[3]})
		}
	}
	return touch.Report{Events: events, Time: at}
}

// HoldSession is a complete pointing session: three reference contacts
// touch down with a pointing finger, everything holds still for the
// given number of ticks, then all contacts lift. With a hold threshold
// shorter than ticks*interval the trigger arms and a trace is recorded.
func HoldSession(start time.Time, ticks int, interval time.Duration) []touch.Report {
	reports := []touch.Report{
		Frame(start,
			[4]int32{0, 1, 100, 500},
			[4]int32{1, 2, 150, 480},
			[4]int32{2, 3, 100, 460},
			[4]int32{3, 4, 300, 470},
		),
	}
	at := start
	for i := 0; i < ticks; i++ {
		at = at.Add(interval)
		reports = append(reports, Frame(at, [4]int32{3, 4, 300, 470}))
	}
	reports = append(reports, Frame(at.Add(interval),
		[4]int32{0, -1, 0, 0},
		[4]int32{1, -1, 0, 0},
		[4]int32{2, -1, 0, 0},
		[4]int32{3, -1, 0, 0},
	))
	return reports
}

// BrokenHoldSession starts like HoldSession but lifts one reference
// after breakAfter ticks, before the hold can complete. No pointer
// output and no trace should result.
func BrokenHoldSession(start time.Time, breakAfter, ticks int, interval time.Duration) []touch.Report {
	reports := []touch.Report{
		Frame(start,
			[4]int32{0, 1, 100, 500},
			[4]int32{1, 2, 150, 480},
			[4]int32{2, 3, 100, 460},
			[4]int32{3, 4, 300, 470},
		),
	}
	at := start
	for i := 0; i < ticks; i++ {
		at = at.Add(interval)
		if i == breakAfter {
			reports = append(reports, Frame(at, [4]int32{1, -1, 0, 0}))
			continue
		}
		reports = append(reports, Frame(at, [4]int32{3, 4, 300, 470}))
	}
	reports = append(reports, Frame(at.Add(interval),
		[4]int32{0, -1, 0, 0},
		[4]int32{2, -1, 0, 0},
		[4]int32{3, -1, 0, 0},
	))
	return reports
}
