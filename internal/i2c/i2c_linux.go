//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"

	"i2cgps/internal/i2cgps"
)

// Minimal Linux I2C implementation backed by /dev/i2c-*.
//
// Every operation is one I2C_RDWR transfer with a single message, so the GPS
// command, the status byte and the frame are separate bus transactions.

const (
	i2cMrd  = 0x0001
	i2cRdwr = 0x0707
)

type msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an opened I2C bus (e.g., /dev/i2c-1).
//
// Bus itself is not safe for concurrent transfers; coordinate at a higher
// level if you need concurrency.
//
//nolint:revive // simple device abstraction.
type Bus struct {
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Bus{f: f, path: path}, nil
}

func (b *Bus) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

func (b *Bus) Close() error {
	if b == nil || b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

// Open implements i2cgps.Port.
func (b *Bus) Open(addr uint16) (i2cgps.Conn, error) {
	if b == nil || b.f == nil {
		return nil, errors.New("i2c bus is closed")
	}
	if err := checkAddr(addr); err != nil {
		return nil, err
	}
	return &Dev{bus: b, addr: addr}, nil
}

// Dev represents a device at a 7-bit I2C address.
//
//nolint:revive // minimal.
type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) WriteBytes(p []byte) error {
	_, err := d.tx(p, nil)
	return err
}

func (d *Dev) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := d.tx(nil, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) ReadBytes(n int) ([]byte, error) {
	if n <= 0 || n > 0xFFFF {
		return nil, fmt.Errorf("invalid i2c read length %d", n)
	}
	buf := make([]byte, n)
	if _, err := d.tx(nil, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Dev) tx(w, r []byte) (int, error) {
	if d == nil || d.bus == nil || d.bus.f == nil {
		return 0, errors.New("i2c device is nil")
	}
	if err := checkAddr(d.addr); err != nil {
		return 0, err
	}

	msgs := make([]msg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, msg{addr: d.addr, flags: 0, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, msg{addr: d.addr, flags: i2cMrd, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	data := rdwrData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.bus.f.Fd(), uintptr(i2cRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return 0, fmt.Errorf("i2c %s addr=0x%02X: %w", d.bus.path, d.addr, errno)
	}
	if len(r) > 0 {
		return len(r), nil
	}
	return len(w), nil
}

func checkAddr(addr uint16) error {
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("invalid i2c addr 0x%X", addr)
	}
	return nil
}
