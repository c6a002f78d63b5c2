package pointer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultDevicePath is where the uinput control node usually lives.
const DefaultDevicePath = "/dev/uinput"

// UInput is a Sink backed by a virtual absolute touchscreen. Frames write
// ABS_X/ABS_Y plus BTN_TOUCH and are flushed with a SYN_REPORT each.
type UInput struct {
	file    *os.File
	touched bool
	lastX   int32
	lastY   int32
}

// OpenUInput creates the virtual device. width and height bound the ABS
// axes and should match the target screen resolution.
func OpenUInput(path, name string, width, height int32) (*UInput, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("uinput: invalid screen size %dx%d", width, height)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0o660)
	if err != nil {
		return nil, fmt.Errorf("uinput: open %s: %w", path, err)
	}

	fd := f.Fd()
	setup := []struct {
		req int
		arg uintptr
	}{
		{uiSetEvBit(), evKey},
		{uiSetKeyBit(), btnTouch},
		{uiSetEvBit(), evAbs},
		{uiSetAbsBit(), absX},
		{uiSetAbsBit(), absY},
		{uiSetPropBit(), inputPropDirect},
	}
	for _, s := range setup {
		if err := ioctl(fd, s.req, s.arg); err != nil {
			f.Close()
			return nil, fmt.Errorf("uinput: setup ioctl: %w", err)
		}
	}

	var absMn, absMx [absCnt]int32
	absMx[absX] = width - 1
	absMx[absY] = height - 1

	dev := uinputUserDev{
		Name:   deviceName(name),
		ID:     inputID{BusType: 0x06, Vendor: 0x1, Product: 0x1, Version: 0x1},
		AbsMax: absMx,
		AbsMin: absMn,
	}
	if _, err := f.Write(userDevBytes(dev)); err != nil {
		f.Close()
		return nil, fmt.Errorf("uinput: write device descriptor: %w", err)
	}
	if err := ioctl(fd, uiDevCreate(), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("uinput: create device: %w", err)
	}
	return &UInput{file: f}, nil
}

// Frame implements Sink.
func (u *UInput) Frame(x, y int32, touch bool) error {
	var out []byte
	if touch {
		if x != u.lastX || !u.touched {
			out = append(out, eventBytes(evAbs, absX, x)...)
		}
		if y != u.lastY || !u.touched {
			out = append(out, eventBytes(evAbs, absY, y)...)
		}
		if !u.touched {
			out = append(out, eventBytes(evKey, btnTouch, 1)...)
		}
	} else if u.touched {
		out = append(out, eventBytes(evKey, btnTouch, 0)...)
	}
	if len(out) == 0 {
		return nil
	}
	out = append(out, eventBytes(evSyn, synReport, 0)...)
	if _, err := u.file.Write(out); err != nil {
		return fmt.Errorf("uinput: write frame: %w", err)
	}
	u.touched = touch
	u.lastX, u.lastY = x, y
	return nil
}

// Close releases any held contact and destroys the virtual device.
func (u *UInput) Close() error {
	if u.touched {
		_ = u.Frame(u.lastX, u.lastY, false)
	}
	err := ioctl(u.file.Fd(), uiDevDestroy(), 0)
	if cerr := u.file.Close(); err == nil {
		err = cerr
	}
	return err
}
