package actuator

import (
	"errors"
	"fmt"
	"time"
)

// ClampPolicy picks the range an out-of-range steering command saturates to.
type ClampPolicy int

const (
	// ClampToDriveRange saturates steering to cmd_min/cmd_max. This is the
	// behaviour the vehicle has always shipped with.
	ClampToDriveRange ClampPolicy = iota
	// ClampToSteeringRange saturates steering to its own right/left bounds.
	ClampToSteeringRange
)

func ParseClampPolicy(s string) (ClampPolicy, error) {
	switch s {
	case "", "drive":
		return ClampToDriveRange, nil
	case "steering":
		return ClampToSteeringRange, nil
	default:
		return ClampToDriveRange, fmt.Errorf("unknown steering clamp policy %q", s)
	}
}

func (p ClampPolicy) String() string {
	if p == ClampToSteeringRange {
		return "steering"
	}
	return "drive"
}

// Calibration is loaded once at startup and never mutated afterwards.
// Pulse widths are microseconds.
type Calibration struct {
	CmdMin, CmdMax              int
	SteerRightMax, SteerLeftMax int
	DrivePin, SteerPin          int

	LoopPeriod     time.Duration
	CommandTimeout time.Duration
	// TimeoutFallback reverts both outputs to neutral while either command
	// stream is older than CommandTimeout.
	TimeoutFallback bool
	SteerClamp      ClampPolicy
}

var (
	ErrDriveRange    = errors.New("cmd_min must be below cmd_max")
	ErrSteeringRange = errors.New("steer_right_max must be below steer_left_max")
	ErrPins          = errors.New("drive_pin and steer_pin must be distinct channels 0-15")
	ErrLoopPeriod    = errors.New("loop period must be positive")
)

// PeriodFromRate converts a tick rate in Hz to the scheduler period.
func PeriodFromRate(rateHz float64) time.Duration {
	if rateHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rateHz)
}

// DriveNeutral is the zero throttle pulse width.
func (c Calibration) DriveNeutral() int {
	return (c.CmdMin + c.CmdMax) / 2
}

// SteerCenter is the centred steering pulse width.
func (c Calibration) SteerCenter() int {
	return (c.SteerRightMax + c.SteerLeftMax) / 2
}

func (c Calibration) Validate() error {
	if c.CmdMin >= c.CmdMax {
		return ErrDriveRange
	}
	if c.SteerRightMax >= c.SteerLeftMax {
		return ErrSteeringRange
	}
	if c.DrivePin < 0 || c.DrivePin > 15 || c.SteerPin < 0 || c.SteerPin > 15 || c.DrivePin == c.SteerPin {
		return ErrPins
	}
	if c.LoopPeriod <= 0 {
		return ErrLoopPeriod
	}
	return nil
}
