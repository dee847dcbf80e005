package pca9685

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rounding selects how a fractional tick count is resolved. The choice moves
// the physical pulse by at most one step (~4.9us at 50Hz).
type Rounding int

const (
	// RoundNearest rounds half away from zero: 2000us -> 409.6 -> 410.
	RoundNearest Rounding = iota
	// RoundTruncate drops the fraction: 2000us -> 409.6 -> 409.
	RoundTruncate
)

func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "", "nearest":
		return RoundNearest, nil
	case "truncate":
		return RoundTruncate, nil
	default:
		return RoundNearest, fmt.Errorf("unknown tick rounding %q", s)
	}
}

func (r Rounding) String() string {
	if r == RoundTruncate {
		return "truncate"
	}
	return "nearest"
}

// Converter maps a pulse width in microseconds onto the 12-bit off tick.
type Converter struct {
	FrequencyHz float64
	Rounding    Rounding
}

func NewConverter(rounding Rounding) Converter {
	return Converter{FrequencyHz: CarrierHz, Rounding: rounding}
}

// StepMicros is the duration of one of the 4096 steps of a carrier period.
func (c Converter) StepMicros() float64 {
	return 1e6 / (c.FrequencyHz * Steps)
}

// Ticks converts pulseWidth (us) to a tick count bounded to [0, MaxTick].
func (c Converter) Ticks(pulseWidth int) int {
	raw := float64(pulseWidth) / c.StepMicros()
	if c.Rounding == RoundTruncate {
		raw = math.Trunc(raw)
	} else {
		raw = math.Round(raw)
	}
	return int(mgl64.Clamp(raw, 0, MaxTick))
}

// PulseWidth is the inverse of Ticks, in microseconds.
func (c Converter) PulseWidth(ticks int) float64 {
	return float64(ticks) * c.StepMicros()
}

// Prescale computes the PRESCALE register for a carrier frequency.
func Prescale(freqHz float64) byte {
	v := math.Round(OscillatorHz/(Steps*freqHz)) - 1
	return byte(mgl64.Clamp(v, prescaleMin, prescaleMax))
}
