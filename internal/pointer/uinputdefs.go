package pointer

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"golang.org/x/sys/unix"
)

// Constants from input-event-codes.h and uinput.h.
const (
	evSyn     = 0x00
	evKey     = 0x01
	evAbs     = 0x03
	synReport = 0x00
	btnTouch  = 0x14a
	absX      = 0x00
	absY      = 0x01

	absMax = 0x3f
	absCnt = absMax + 1

	inputPropDirect = 0x01

	uinputMaxNameSize = 80
)

// ioctl.h encoding.
const (
	iocNone  = 0x0
	iocWrite = 0x1

	iocNrbits   = 8
	iocTypebits = 8
	iocSizebits = 14
	iocNrshift  = 0

	iocTypeshift = iocNrshift + iocNrbits
	iocSizeshift = iocTypeshift + iocTypebits
	iocDirshift  = iocSizeshift + iocSizebits
)

func _IOC(dir, t, nr, size int) int {
	return (dir << iocDirshift) | (t << iocTypeshift) |
		(nr << iocNrshift) | (size << iocSizeshift)
}

func _IOW(t, nr, size int) int {
	return _IOC(iocWrite, t, nr, size)
}

func uiSetEvBit() int   { return _IOW('U', 100, 4) }
func uiSetKeyBit() int  { return _IOW('U', 101, 4) }
func uiSetAbsBit() int  { return _IOW('U', 103, 4) }
func uiSetPropBit() int { return _IOW('U', 110, 4) }
func uiDevCreate() int  { return _IOC(iocNone, 'U', 1, 0) }
func uiDevDestroy() int { return _IOC(iocNone, 'U', 2, 0) }

func ioctl(fd uintptr, name int, data uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(name), data)
	if errno != 0 {
		return errno
	}
	return nil
}

// inputID mirrors struct input_id from input.h.
type inputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// inputEvent mirrors struct input_event from input.h.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// uinputUserDev mirrors struct uinput_user_dev from uinput.h.
type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         inputID
	EffectsMax uint32
	AbsMax     [absCnt]int32
	AbsMin     [absCnt]int32
	AbsFuzz    [absCnt]int32
	AbsFlat    [absCnt]int32
}

func deviceName(name string) [uinputMaxNameSize]byte {
	var fixed [uinputMaxNameSize]byte
	copy(fixed[:], name)
	return fixed
}

func userDevBytes(dev uinputUserDev) []byte {
	var buf bytes.Buffer
	_ = struc.PackWithOptions(&buf, &dev, &struc.Options{Order: binary.LittleEndian})
	return buf.Bytes()
}

func eventBytes(typ, code uint16, value int32) []byte {
	var buf bytes.Buffer
	_ = struc.PackWithOptions(&buf, &inputEvent{
		Type:  typ,
		Code:  code,
		Value: value,
	}, &struc.Options{Order: binary.LittleEndian})
	return buf.Bytes()
}
