package errors

import "fmt"

// BusUnavailableError is returned when the I2C session to a device cannot be
// opened, claimed or initialised. Actuator output must not start after it.
type BusUnavailableError struct {
	Device string
	Addr   uint16
	Err    error
}

func (err BusUnavailableError) Error() string {
	if len(err.Device) == 0 {
		err.Device = "UNKNOWN"
	}
	if err.Err == nil {
		return fmt.Sprintf("bus unavailable; %s (addr 0x%02x)", err.Device, err.Addr)
	}
	return fmt.Sprintf("bus unavailable; %s (addr 0x%02x): %v", err.Device, err.Addr, err.Err)
}

func (err BusUnavailableError) Unwrap() error { return err.Err }

// RegisterWriteError reports a register write that did not complete.
// The output loop re-sends every tick, so callers treat it as transient.
type RegisterWriteError struct {
	Register byte
	Err      error
}

func (err RegisterWriteError) Error() string {
	return fmt.Sprintf("register write failed at 0x%02x: %v", err.Register, err.Err)
}

func (err RegisterWriteError) Unwrap() error { return err.Err }

// InvalidServiceRequestError is a malformed control request. State is left unchanged.
type InvalidServiceRequestError struct {
	Service string
	Reason  string
}

func (err InvalidServiceRequestError) Error() string {
	if len(err.Service) == 0 {
		err.Service = "UNKNOWN"
	}
	return fmt.Sprintf("invalid request to %s: %s", err.Service, err.Reason)
}
