package actuator

import "time"

// ClampSteering applies the steering bounds check. Out-of-range values
// saturate to the range chosen by cal.SteerClamp.
func ClampSteering(cal Calibration, raw int) int {
	lo, hi := cal.CmdMin, cal.CmdMax
	if cal.SteerClamp == ClampToSteeringRange {
		lo, hi = cal.SteerRightMax, cal.SteerLeftMax
	}

	switch {
	case raw > cal.SteerLeftMax:
		return hi
	case raw < cal.SteerRightMax:
		return lo
	default:
		return raw
	}
}

// ClampDrive bounds raw to [CmdMin, CmdMax].
func ClampDrive(cal Calibration, raw int) int {
	if raw > cal.CmdMax {
		return cal.CmdMax
	} else if raw < cal.CmdMin {
		return cal.CmdMin
	}
	return raw
}

// IngestSteering records a steering command received at 'at'. The timestamp
// is refreshed even when the value was clamped.
func (s *CommandState) IngestSteering(cal Calibration, raw int, at time.Time) {
	s.Steering = ClampSteering(cal, raw)
	s.LastSteering = at
}

// IngestDrive records a drive command received at 'at'.
func (s *CommandState) IngestDrive(cal Calibration, raw int, at time.Time) {
	s.Drive = ClampDrive(cal, raw)
	s.LastDrive = at
}
