package actuator

import "time"

// Arbiter gates the drive actuator. It only changes state on an explicit
// request; nothing re-enables it automatically.
type Arbiter struct {
	enabled bool
}

func NewArbiter(enabled bool) Arbiter {
	return Arbiter{enabled: enabled}
}

func (a *Arbiter) Enabled() bool { return a.enabled }

// Set changes the drive state and reports whether it differed.
func (a *Arbiter) Set(enabled bool) bool {
	changed := a.enabled != enabled
	a.enabled = enabled
	return changed
}

// Output is the pair of pulse widths to put on the wire for one tick.
type Output struct {
	Steering int  `json:"steering"`
	Drive    int  `json:"drive"`
	TimedOut bool `json:"timed_out"`
}

// Effective resolves the stored commands into the values for this tick.
// A disabled drive always yields the neutral drive value; steering passes
// through untouched unless the command timeout fallback fires.
func (a *Arbiter) Effective(cal Calibration, cmd CommandState, now time.Time) Output {
	out := Output{Steering: cmd.Steering, Drive: cmd.Drive}

	if cal.TimeoutFallback && stale(cal, cmd, now) {
		out.Steering = cal.SteerCenter()
		out.Drive = cal.DriveNeutral()
		out.TimedOut = true
	}

	if !a.enabled {
		out.Drive = cal.DriveNeutral()
	}
	return out
}

func stale(cal Calibration, cmd CommandState, now time.Time) bool {
	return now.Sub(cmd.LastSteering) > cal.CommandTimeout || now.Sub(cmd.LastDrive) > cal.CommandTimeout
}
