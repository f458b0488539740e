// Package gpio drives the receiver's active-low reset pin.
package gpio

import (
	"context"
	"fmt"
	"time"
)

type outputLine interface {
	SetValue(v int) error
	Close() error
}

var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PulseReset holds the BCM pin low for pulse, releases it, then waits settle
// so the receiver can boot before the bus is opened.
func PulseReset(ctx context.Context, pin int, pulse, settle time.Duration) error {
	if pin <= 0 {
		return fmt.Errorf("gpio: invalid pin %d", pin)
	}
	line, err := openOutputFn(pin)
	if err != nil {
		return err
	}
	defer func() { _ = line.Close() }()

	if err := line.SetValue(0); err != nil {
		return fmt.Errorf("gpio: assert reset: %w", err)
	}
	if err := sleep(ctx, pulse); err != nil {
		_ = line.SetValue(1)
		return err
	}
	if err := line.SetValue(1); err != nil {
		return fmt.Errorf("gpio: release reset: %w", err)
	}
	if settle > 0 {
		return sleep(ctx, settle)
	}
	return nil
}
