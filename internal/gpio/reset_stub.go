//go:build !linux || (!arm && !arm64)

package gpio

import "fmt"

func openOutput(pin int) (outputLine, error) {
	return nil, fmt.Errorf("gpio: unsupported on this platform")
}

var openOutputFn = openOutput
