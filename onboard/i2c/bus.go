// Package i2c owns the session to a single device address on an I2C bus.
package i2c

import (
	"errors"
	"fmt"

	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
)

const (
	DriverDev    = "i2c-dev"
	DriverPeriph = "periph"
)

var (
	ErrClosed              = errors.New("i2c session is closed")
	ErrUnsupportedPlatform = errors.New("i2c-dev is only available on linux")
)

// Conn is an exclusive, write-only session to one device address.
// It is held by exactly one owner for the process lifetime.
type Conn interface {
	Write(p []byte) error
	Close() error
}

// Open claims device for addr using the named driver. Any failure is reported
// as a deverrors.BusUnavailableError naming the device.
func Open(driver, device string, addr uint16) (Conn, error) {
	switch driver {
	case "", DriverDev:
		return openDev(device, addr)
	case DriverPeriph:
		return openPeriph(device, addr)
	default:
		return nil, deverrors.BusUnavailableError{
			Device: device,
			Addr:   addr,
			Err:    fmt.Errorf("unknown i2c driver %q", driver),
		}
	}
}
