// Package comms routes operator commands from any transport to the vehicle
// and fans its state back out.
package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/CodedInternet/goservoctl/onboard/actuator"
	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
	"github.com/CodedInternet/goservoctl/onboard/pca9685"
	"go.uber.org/zap"
)

const (
	CmdSteering    = "steering_cmd"
	CmdDrive       = "drive_cmd"
	CmdEnableDrive = "enable_drive"
	CmdState       = "state"

	DefaultStateInterval = time.Second / 10
)

// Cmd is one operator frame. Value carries the pulse width for the command
// streams; Data carries the flag for enable_drive. A command stream frame
// without a Value is rejected, never read as zero.
type Cmd struct {
	Cmd   string `json:"cmd"`
	Value *int   `json:"value,omitempty"`
	Data  *bool  `json:"data,omitempty"`
}

// Int is a helper for building frames with a Value.
func Int(v int) *int { return &v }

type Reply struct {
	Cmd     string        `json:"cmd"`
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	State   *StatePayload `json:"state,omitempty"`
}

// Device is what the conductor needs from the vehicle.
type Device interface {
	SetSteering(raw int)
	SetDrive(raw int)
	EnableDrive(ctx context.Context, req actuator.EnableRequest) (actuator.EnableResponse, error)
	Snapshot(ctx context.Context) (actuator.Snapshot, error)
}

type Conductor struct {
	Device    Device
	Converter pca9685.Converter
	Interval  time.Duration
	Log       *zap.SugaredLogger

	mu      sync.Mutex
	clients map[chan StatePayload]struct{}
}

func NewConductor(device Device, conv pca9685.Converter, log *zap.SugaredLogger) *Conductor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Conductor{
		Device:    device,
		Converter: conv,
		Interval:  DefaultStateInterval,
		Log:       log,
		clients:   make(map[chan StatePayload]struct{}),
	}
}

// ProcessCommand applies cmd and reports the outcome. Steering and drive are
// fire and forget; enable_drive and state wait for the controller.
func (c *Conductor) ProcessCommand(ctx context.Context, cmd Cmd) Reply {
	reply := Reply{Cmd: cmd.Cmd}

	switch cmd.Cmd {
	case CmdSteering, CmdDrive:
		if cmd.Value == nil {
			err := deverrors.InvalidServiceRequestError{Service: cmd.Cmd, Reason: "missing value"}
			c.Log.Warnw("rejected command", "error", err)
			reply.Message = err.Error()
			break
		}
		if cmd.Cmd == CmdSteering {
			c.Device.SetSteering(*cmd.Value)
		} else {
			c.Device.SetDrive(*cmd.Value)
		}
		reply.Success = true

	case CmdEnableDrive:
		resp, err := c.Device.EnableDrive(ctx, actuator.EnableRequest{Data: cmd.Data})
		if err != nil {
			reply.Message = err.Error()
			break
		}
		reply.Success, reply.Message = resp.Success, resp.Message

	case CmdState:
		state, err := c.State(ctx)
		if err != nil {
			reply.Message = err.Error()
			break
		}
		reply.Success, reply.State = true, &state

	default:
		reply.Message = fmt.Sprintf("unknown command %q", cmd.Cmd)
		c.Log.Debugw("unable to process command", "cmd", cmd.Cmd)
	}
	return reply
}

// ProcessMessage decodes a raw JSON frame and processes it.
func (c *Conductor) ProcessMessage(ctx context.Context, msg []byte) Reply {
	var cmd Cmd
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return Reply{Message: "invalid json"}
	}
	return c.ProcessCommand(ctx, cmd)
}

func (c *Conductor) State(ctx context.Context) (StatePayload, error) {
	snap, err := c.Device.Snapshot(ctx)
	if err != nil {
		return StatePayload{}, err
	}
	return NewStatePayload(snap, c.Converter), nil
}

// Subscribe registers for state updates. Slow subscribers miss updates
// rather than stall the others. The returned func unsubscribes.
func (c *Conductor) Subscribe() (<-chan StatePayload, func()) {
	ch := make(chan StatePayload, 1)

	c.mu.Lock()
	c.clients[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.clients, ch)
			c.mu.Unlock()
		})
	}
}

func (c *Conductor) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *Conductor) broadcast(state StatePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.clients {
		select {
		case ch <- state:
		default:
		}
	}
}

// UpdateClients publishes the vehicle state every Interval until ctx is done
// or the controller stops.
func (c *Conductor) UpdateClients(ctx context.Context) error {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if c.Subscribers() == 0 {
			continue
		}
		state, err := c.State(ctx)
		switch err {
		case nil:
			c.broadcast(state)
		case actuator.ErrStopped, context.Canceled:
			return nil
		default:
			c.Log.Warnw("unable to read vehicle state", "error", err)
		}
	}
}
