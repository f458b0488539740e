package i2cgps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Driver for I2C GPS receivers speaking the 0xAC/0x33 snapshot protocol.
//
// A read cycle is: write the command, poll the status byte until the busy bit
// clears, then read one frame and decode it.

const (
	addrDefault = 0x58

	cmdReadFix0 = 0xAC
	cmdReadFix1 = 0x33
	cmdReadFix2 = 0x00

	statusBusy = 0x80

	defaultPollInterval = 10 * time.Millisecond
	defaultMaxWait      = 1 * time.Second
)

var (
	ErrNotInitialized = errors.New("i2cgps: driver not initialized")
	ErrBusy           = errors.New("i2cgps: read already in progress")
	ErrTimeout        = errors.New("i2cgps: device not responding")
)

// Conn is an opened device on the bus.
type Conn interface {
	WriteBytes(p []byte) error
	ReadByte() (byte, error)
	ReadBytes(n int) ([]byte, error)
}

// Port opens devices by 7-bit address.
type Port interface {
	Open(addr uint16) (Conn, error)
}

// Options tune the driver. Zero values select the defaults.
type Options struct {
	Address uint16

	// PollInterval is the delay between status reads while the device is busy.
	PollInterval time.Duration
	// MaxWait bounds the total busy wait of a single ReadFix.
	MaxWait time.Duration

	// FrameSize is the number of bytes read per fix. 22 matches the vendor
	// sample code; 25 also transfers the upper speed bytes.
	FrameSize int

	Sleep func(ctx context.Context, d time.Duration) error
}

type Driver struct {
	port Port
	addr uint16

	pollInterval time.Duration
	maxPolls     int
	frameSize    int
	sleep        func(ctx context.Context, d time.Duration) error

	dev     Conn
	reading atomic.Bool
}

func DefaultAddress() uint16 { return addrDefault }

// New does not touch the bus; call Initialize once before ReadFix.
func New(port Port, opts Options) *Driver {
	d := &Driver{
		port:         port,
		addr:         opts.Address,
		pollInterval: opts.PollInterval,
		frameSize:    opts.FrameSize,
		sleep:        opts.Sleep,
	}
	if d.addr == 0 {
		d.addr = addrDefault
	}
	if d.pollInterval <= 0 {
		d.pollInterval = defaultPollInterval
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	d.maxPolls = int((maxWait + d.pollInterval - 1) / d.pollInterval)
	if d.frameSize <= 0 {
		d.frameSize = RawFrameLen
	}
	if d.sleep == nil {
		d.sleep = sleepCtx
	}
	return d
}

func (d *Driver) Address() uint16 { return d.addr }

func (d *Driver) FrameSize() int { return d.frameSize }

// Initialize opens the device. It is meant to be called once; a second call
// opens a fresh handle and closes the previous one.
func (d *Driver) Initialize() error {
	if d == nil || d.port == nil {
		return fmt.Errorf("i2cgps: port is nil")
	}
	dev, err := d.port.Open(d.addr)
	if err != nil {
		return fmt.Errorf("i2cgps: open 0x%02X: %w", d.addr, err)
	}
	old := d.dev
	d.dev = dev
	if c, ok := old.(io.Closer); ok {
		_ = c.Close()
	}
	return nil
}

// ReadFix runs one request/poll/read cycle.
//
// A frame with an unexpected length byte is not an error: it yields a
// Reading with Status -1 and no Fix.
func (d *Driver) ReadFix(ctx context.Context) (Reading, error) {
	if d == nil || d.dev == nil {
		return Reading{}, ErrNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !d.reading.CompareAndSwap(false, true) {
		return Reading{}, ErrBusy
	}
	defer d.reading.Store(false)

	if err := d.dev.WriteBytes([]byte{cmdReadFix0, cmdReadFix1, cmdReadFix2}); err != nil {
		return Reading{}, fmt.Errorf("i2cgps: command write failed: %w", err)
	}
	if err := d.waitReady(ctx); err != nil {
		return Reading{}, err
	}
	frame, err := d.dev.ReadBytes(d.frameSize)
	if err != nil {
		return Reading{}, fmt.Errorf("i2cgps: frame read failed: %w", err)
	}
	if len(frame) != d.frameSize {
		return Reading{}, fmt.Errorf("i2cgps: short frame read: got %d bytes want %d", len(frame), d.frameSize)
	}
	return Decode(frame), nil
}

func (d *Driver) waitReady(ctx context.Context) error {
	for polls := 0; ; polls++ {
		st, err := d.dev.ReadByte()
		if err != nil {
			return fmt.Errorf("i2cgps: status read failed: %w", err)
		}
		if st&statusBusy == 0 {
			return nil
		}
		if polls >= d.maxPolls {
			return fmt.Errorf("%w: busy after %d polls (addr=0x%02X)", ErrTimeout, polls+1, d.addr)
		}
		if err := d.sleep(ctx, d.pollInterval); err != nil {
			return err
		}
	}
}

func (d *Driver) Close() error {
	if d == nil || d.dev == nil {
		return nil
	}
	dev := d.dev
	d.dev = nil
	if c, ok := dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
