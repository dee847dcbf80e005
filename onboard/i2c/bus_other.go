//go:build !linux

package i2c

import deverrors "github.com/CodedInternet/goservoctl/onboard/errors"

func openDev(device string, addr uint16) (Conn, error) {
	return nil, deverrors.BusUnavailableError{Device: device, Addr: addr, Err: ErrUnsupportedPlatform}
}
