package sim

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"i2cgps/internal/i2cgps"
)

var cmdReadFix = []byte{0xAC, 0x33, 0x00}

// Receiver emulates the device side of the GPS protocol. It implements
// i2cgps.Port so the driver can run without hardware.
type Receiver struct {
	Track Track

	// Addr is the only address that answers. Zero accepts any address.
	Addr uint16
	// BusyPolls is how many status reads report busy after each command.
	BusyPolls int
	// NoFixEvery makes every n-th request return a short-length frame.
	NoFixEvery int

	Now func() time.Time

	mu       sync.Mutex
	requests int
}

func (r *Receiver) Open(addr uint16) (i2cgps.Conn, error) {
	if r.Addr != 0 && addr != r.Addr {
		return nil, fmt.Errorf("sim: no device at 0x%02X", addr)
	}
	return &simConn{rx: r}, nil
}

func (r *Receiver) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

func (r *Receiver) nextFrame() []byte {
	r.mu.Lock()
	r.requests++
	n := r.requests
	r.mu.Unlock()

	if r.NoFixEvery > 0 && n%r.NoFixEvery == 0 {
		return make([]byte, i2cgps.FullFrameLen)
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return i2cgps.Encode(0, r.Track.Fix(now()))
}

type simConn struct {
	rx *Receiver

	busyLeft int
	frame    []byte
}

func (c *simConn) WriteBytes(p []byte) error {
	if !bytes.Equal(p, cmdReadFix) {
		return fmt.Errorf("sim: unknown command % X", p)
	}
	c.busyLeft = c.rx.BusyPolls
	c.frame = c.rx.nextFrame()
	return nil
}

func (c *simConn) ReadByte() (byte, error) {
	if c.busyLeft > 0 {
		c.busyLeft--
		return 0x80, nil
	}
	return 0x00, nil
}

func (c *simConn) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sim: invalid read length %d", n)
	}
	out := make([]byte, n)
	copy(out, c.frame)
	c.frame = nil
	return out, nil
}
