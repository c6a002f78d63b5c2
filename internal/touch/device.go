package touch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kenshaw/evdev"
)

// Device reads coalesced touch reports from an evdev input node.
type Device struct {
	path string
	file *os.File
	dev  *evdev.Evdev
}

// OpenDevice opens an input event node for reading. When grab is true the
// device is grabbed exclusively so the compositor never sees the raw touches;
// a failed grab only aborts when required is also true.
func OpenDevice(path string, grab, required bool) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d := &Device{path: path, file: f, dev: evdev.Open(f)}
	if grab {
		if err := d.dev.Lock(); err != nil {
			if required {
				d.dev.Close()
				return nil, fmt.Errorf("exclusive grab on %s: %w", path, err)
			}
			fmt.Fprintf(os.Stderr, "warning: grab failed on %s: %v\n", path, err)
		}
	}
	return d, nil
}

// Name returns the kernel-reported device name.
func (d *Device) Name() string {
	return d.dev.Name()
}

// Close releases the grab, if any, and closes the device.
func (d *Device) Close() error {
	d.dev.Unlock()
	return d.dev.Close()
}

// AbsBounds reads the pad's multi-touch axis ranges. The second return is
// false when the device does not report absolute multi-touch positions.
func (d *Device) AbsBounds() (Calibration, bool) {
	abs := d.dev.AbsoluteTypes()
	ax, okX := abs[evdev.AbsoluteMTPositionX]
	ay, okY := abs[evdev.AbsoluteMTPositionY]
	if !okX || !okY {
		return Calibration{}, false
	}
	return Calibration{
		MinX: float64(ax.Min), MaxX: float64(ax.Max),
		MinY: float64(ay.Min), MaxY: float64(ay.Max),
	}, true
}

// Reports polls the device and delivers one Report per SYN_REPORT boundary.
// The channel is closed when ctx is cancelled or the device goes away.
func (d *Device) Reports(ctx context.Context) <-chan Report {
	out := make(chan Report)
	go func() {
		defer close(out)
		ch := d.dev.Poll(ctx)
		events := make([]Event, 0, 16)
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-ch:
				if !ok {
					return
				}
				if env.Type == evdev.SyncReport {
					r := Report{Events: events, Time: time.Now()}
					select {
					case out <- r:
					case <-ctx.Done():
						return
					}
					events = make([]Event, 0, 16)
					continue
				}
				events = append(events, Event{
					Type:  uint16(env.Event.Type),
					Code:  uint16(env.Event.Code),
					Value: env.Event.Value,
				})
			}
		}
	}()
	return out
}
