package actuator

import "time"

// CommandState holds the last accepted command per actuator. Values are
// clamped on the way in, never downstream.
type CommandState struct {
	Steering     int
	Drive        int
	LastSteering time.Time
	LastDrive    time.Time
}

// NewCommandState starts centred and at neutral, stamped now.
func NewCommandState(cal Calibration, now time.Time) CommandState {
	return CommandState{
		Steering:     cal.SteerCenter(),
		Drive:        cal.DriveNeutral(),
		LastSteering: now,
		LastDrive:    now,
	}
}

// Phase is the lifecycle of the output path.
type Phase int32

const (
	PhaseStartup Phase = iota
	PhaseArmed
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStartup:
		return "startup"
	case PhaseArmed:
		return "armed"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
