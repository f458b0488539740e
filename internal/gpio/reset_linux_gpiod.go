//go:build linux && (arm || arm64)

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openOutput requests the given BCM GPIO as an output, initially high, via
// the GPIO character device.
func openOutput(pin int) (outputLine, error) {
	// On Pi, line names are commonly "GPIO17", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	// Pi 5 kernels may expose the header on gpiochip4.
	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("i2cgps-reset"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodLine{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("gpio: line %q not found (or busy)", lineName)
}

var openOutputFn = openOutput

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("gpio: line not open")
	}
	return g.line.SetValue(v)
}

func (g *gpiodLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
