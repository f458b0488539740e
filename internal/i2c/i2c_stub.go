//go:build !linux

package i2c

import (
	"fmt"

	"i2cgps/internal/i2cgps"
)

type Bus struct{}

type Dev struct{}

func Open(path string) (*Bus, error) { return nil, fmt.Errorf("i2c: unsupported OS (need linux)") }

func (b *Bus) Path() string { return "" }

func (b *Bus) Close() error { return nil }

func (b *Bus) Open(addr uint16) (i2cgps.Conn, error) {
	return nil, fmt.Errorf("i2c: unsupported OS")
}

func (d *Dev) WriteBytes(p []byte) error       { return fmt.Errorf("i2c: unsupported OS") }
func (d *Dev) ReadByte() (byte, error)         { return 0, fmt.Errorf("i2c: unsupported OS") }
func (d *Dev) ReadBytes(n int) ([]byte, error) { return nil, fmt.Errorf("i2c: unsupported OS") }
