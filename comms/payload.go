package comms

import (
	"github.com/CodedInternet/goservoctl/onboard/actuator"
	"github.com/CodedInternet/goservoctl/onboard/pca9685"
)

// StatePayload is a controller snapshot plus the pulse widths the written
// ticks actually produce, which differ from the commands by rounding.
type StatePayload struct {
	actuator.Snapshot
	SteeringPulse float64 `json:"steering_pulse"`
	DrivePulse    float64 `json:"drive_pulse"`
}

func NewStatePayload(snap actuator.Snapshot, conv pca9685.Converter) StatePayload {
	return StatePayload{
		Snapshot:      snap,
		SteeringPulse: conv.PulseWidth(snap.Last.SteeringTicks),
		DrivePulse:    conv.PulseWidth(snap.Last.DriveTicks),
	}
}
