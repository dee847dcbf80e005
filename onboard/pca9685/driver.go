// Package pca9685 speaks the register protocol of the PCA9685 16 channel,
// 12-bit PWM controller.
package pca9685

import (
	"errors"

	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
	"github.com/CodedInternet/goservoctl/onboard/i2c"
)

var (
	ErrNotInitialized     = errors.New("pca9685 has not been initialized")
	ErrAlreadyInitialized = errors.New("pca9685 is already initialized")
	ErrInvalidChannel     = errors.New("channel out of range 0-15")
	ErrInvalidTicks       = errors.New("tick out of range 0-4095")
)

type Driver struct {
	conn        i2c.Conn
	device      string
	freq        float64
	initialized bool
}

// New wraps an open session. device is only used to label errors.
func New(conn i2c.Conn, device string) *Driver {
	return &Driver{
		conn:   conn,
		device: device,
		freq:   CarrierHz,
	}
}

// Initialize runs the power-up sequence: reset MODE1, sleep, write PRESCALE,
// restart and enable register auto-increment.
func (d *Driver) Initialize() error {
	if d.initialized {
		return ErrAlreadyInitialized
	}

	seq := [][2]byte{
		{MODE1, ModeReset},
		{MODE1, ModeSleep},
		{PRESCALE, Prescale(d.freq)},
		{MODE1, ModeRestart},
		{MODE1, ModeAutoIncrement},
	}

	for _, w := range seq {
		if err := d.conn.Write([]byte{w[0], w[1]}); err != nil {
			return deverrors.BusUnavailableError{
				Device: d.device,
				Addr:   Address,
				Err:    deverrors.RegisterWriteError{Register: w[0], Err: err},
			}
		}
	}

	d.initialized = true
	return nil
}

// SetChannel writes the on/off pair for channel as one auto-incremented
// five byte transfer, low byte first.
func (d *Driver) SetChannel(channel, onTick, offTick int) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	if channel < 0 || channel >= Channels {
		return ErrInvalidChannel
	}
	if onTick < 0 || onTick > MaxTick || offTick < 0 || offTick > MaxTick {
		return ErrInvalidTicks
	}

	reg := channelBase(channel)
	data := []byte{
		reg,
		byte(onTick & 0xFF),
		byte(onTick >> 8),
		byte(offTick & 0xFF),
		byte(offTick >> 8),
	}

	if err := d.conn.Write(data); err != nil {
		return deverrors.RegisterWriteError{Register: reg, Err: err}
	}
	return nil
}

func (d *Driver) Initialized() bool { return d.initialized }

// Close releases the underlying session.
func (d *Driver) Close() error {
	d.initialized = false
	return d.conn.Close()
}
