// Package periphbus adapts periph.io I2C buses to the GPS driver.
package periphbus

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"i2cgps/internal/i2cgps"
)

var (
	hostOnce    sync.Once
	hostInitErr error
)

func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

// Bus wraps an opened periph I2C bus. An empty name selects the first
// registered bus.
type Bus struct {
	name string
	bus  i2c.BusCloser
}

func Open(name string) (*Bus, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periph i2c open %q: %w", name, err)
	}
	return &Bus{name: name, bus: b}, nil
}

func (b *Bus) String() string {
	if b == nil || b.bus == nil {
		return "periph(closed)"
	}
	return b.bus.String()
}

func (b *Bus) Close() error {
	if b == nil || b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	return err
}

// Open implements i2cgps.Port.
func (b *Bus) Open(addr uint16) (i2cgps.Conn, error) {
	if b == nil || b.bus == nil {
		return nil, fmt.Errorf("periph i2c bus is closed")
	}
	return newConn(b.bus, addr)
}

type conn struct {
	dev  i2c.Dev
	addr uint16
}

func newConn(bus i2c.Bus, addr uint16) (*conn, error) {
	if addr == 0 || addr > 0x7F {
		return nil, fmt.Errorf("invalid i2c addr 0x%X", addr)
	}
	return &conn{dev: i2c.Dev{Bus: bus, Addr: addr}, addr: addr}, nil
}

func (c *conn) WriteBytes(p []byte) error {
	return c.dev.Tx(p, nil)
}

func (c *conn) ReadByte() (byte, error) {
	var b [1]byte
	if err := c.dev.Tx(nil, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *conn) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid i2c read length %d", n)
	}
	buf := make([]byte, n)
	if err := c.dev.Tx(nil, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
