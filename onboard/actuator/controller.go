// Package actuator turns steering and drive commands into refreshed PWM
// outputs. All command and safety state is owned by the goroutine running
// Controller.Run; every other entry point is a message to it.
package actuator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
	"github.com/CodedInternet/goservoctl/onboard/pca9685"
	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted = errors.New("controller already started")
	ErrStopped        = errors.New("controller stopped")
)

type Options struct {
	Calibration  Calibration
	DriveEnabled bool
	Converter    pca9685.Converter
	// Arming is the ESC sweep run before the first tick, nil skips it.
	Arming *Sweep

	Logger *zap.SugaredLogger
	Now    func() time.Time
	Sleep  func(time.Duration)
}

type Controller struct {
	cal   Calibration
	conv  pca9685.Converter
	out   ChannelWriter
	arm   *Sequencer
	log   *zap.SugaredLogger
	now   func() time.Time
	sleep func(time.Duration)

	mail    mailbox
	reqs    chan func()
	done    chan struct{}
	started atomic.Bool
	phase   atomic.Int32

	// owned by Run
	cmd           CommandState
	safety        Arbiter
	last          Frame
	ticks         uint64
	writeFailures uint64
	failing       bool
	timedOut      bool
}

func NewController(out ChannelWriter, opts Options) (*Controller, error) {
	if err := opts.Calibration.Validate(); err != nil {
		return nil, err
	}
	if opts.Converter.FrequencyHz == 0 {
		opts.Converter = pca9685.NewConverter(pca9685.RoundNearest)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	c := &Controller{
		cal:    opts.Calibration,
		conv:   opts.Converter,
		out:    out,
		log:    opts.Logger,
		now:    opts.Now,
		sleep:  opts.Sleep,
		reqs:   make(chan func()),
		done:   make(chan struct{}),
		safety: NewArbiter(opts.DriveEnabled),
	}
	if opts.Arming != nil {
		if err := opts.Arming.Validate(); err != nil {
			return nil, err
		}
		c.arm = NewSequencer(*opts.Arming, opts.Sleep)
	}
	c.mail.notify = make(chan struct{}, 1)
	c.cmd = NewCommandState(c.cal, c.now())
	return c, nil
}

func (c *Controller) Calibration() Calibration { return c.cal }

func (c *Controller) Phase() Phase { return Phase(c.phase.Load()) }

func (c *Controller) setPhase(p Phase) {
	c.phase.Store(int32(p))
	c.log.Infow("output phase", "phase", p.String())
}

// Run arms the ESC, writes neutral, then ticks at the calibrated period until
// ctx is cancelled, when it writes neutral once more and returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(c.done)

	if c.arm != nil {
		c.log.Infow("arming esc", "min", c.arm.sweep.Min, "max", c.arm.sweep.Max, "step", c.arm.sweep.Step)
		steps, failures := c.arm.Run(func(us int) error {
			_, err := c.write(us, us)
			return err
		})
		c.log.Infow("esc armed", "steps", steps, "failures", failures)
	}

	c.holdNeutral()
	c.setPhase(PhaseArmed)

	ticker := time.NewTicker(c.cal.LoopPeriod)
	defer ticker.Stop()
	c.setPhase(PhaseRunning)

	for {
		select {
		case <-ctx.Done():
			c.drain()
			c.holdNeutral()
			c.setPhase(PhaseStopped)
			return nil

		case <-c.mail.notify:
			c.drain()

		case fn := <-c.reqs:
			c.drain()
			fn()

		case <-ticker.C:
			c.drain()
			c.tick(c.now())
		}
	}
}

// SetSteering posts a steering command. Only the latest value per stream is
// kept until the owner picks it up.
func (c *Controller) SetSteering(raw int) {
	c.mail.post(&c.mail.steering, raw, c.now())
}

// SetDrive posts a drive command.
func (c *Controller) SetDrive(raw int) {
	c.mail.post(&c.mail.drive, raw, c.now())
}

// EnableRequest mirrors a SetBool service call. A nil Data is malformed.
type EnableRequest struct {
	Data *bool `json:"data"`
}

type EnableResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EnableDrive sets the safety state. It waits for the owner goroutine, so it
// blocks while the ESC is still arming.
func (c *Controller) EnableDrive(ctx context.Context, req EnableRequest) (EnableResponse, error) {
	var resp EnableResponse
	err := c.do(ctx, func() {
		resp = c.enableDrive(req)
	})
	if err != nil {
		return EnableResponse{}, err
	}
	return resp, nil
}

func (c *Controller) enableDrive(req EnableRequest) EnableResponse {
	if req.Data == nil {
		err := deverrors.InvalidServiceRequestError{Service: "enable_drive", Reason: "missing data"}
		c.log.Warnw("rejected enable request", "error", err)
		return EnableResponse{Success: false, Message: err.Error()}
	}

	c.safety.Set(*req.Data)
	if *req.Data {
		c.log.Infow("Enabling drive motor.")
		return EnableResponse{Success: true, Message: "drive enabled"}
	}
	c.log.Infow("Disabling drive motor.")
	return EnableResponse{Success: true, Message: "drive disabled"}
}

// Snapshot ages are seconds since the last accepted command, the unit the
// timeout is configured in.
type Snapshot struct {
	Phase         Phase   `json:"phase"`
	DriveEnabled  bool    `json:"drive_enabled"`
	Steering      int     `json:"steering"`
	Drive         int     `json:"drive"`
	SteeringAge   float64 `json:"steering_age"`
	DriveAge      float64 `json:"drive_age"`
	Last          Frame   `json:"last"`
	Ticks         uint64  `json:"ticks"`
	WriteFailures uint64  `json:"write_failures"`
}

// Snapshot reads the owner's state, including any commands still in the mailbox.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() {
		snap = c.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (c *Controller) snapshot() Snapshot {
	now := c.now()
	return Snapshot{
		Phase:         c.Phase(),
		DriveEnabled:  c.safety.Enabled(),
		Steering:      c.cmd.Steering,
		Drive:         c.cmd.Drive,
		SteeringAge:   now.Sub(c.cmd.LastSteering).Seconds(),
		DriveAge:      now.Sub(c.cmd.LastDrive).Seconds(),
		Last:          c.last,
		Ticks:         c.ticks,
		WriteFailures: c.writeFailures,
	}
}

// do runs fn on the owner goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	req := func() {
		fn()
		close(finished)
	}

	select {
	case c.reqs <- req:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain moves posted commands into the command state.
func (c *Controller) drain() {
	steering, drive := c.mail.take()
	if steering.ok {
		c.cmd.IngestSteering(c.cal, steering.value, steering.at)
	}
	if drive.ok {
		c.cmd.IngestDrive(c.cal, drive.value, drive.at)
	}
}

type pending struct {
	value int
	at    time.Time
	ok    bool
}

// mailbox keeps one slot per command stream, last value wins.
type mailbox struct {
	mu       sync.Mutex
	steering pending
	drive    pending
	notify   chan struct{}
}

func (m *mailbox) post(slot *pending, value int, at time.Time) {
	m.mu.Lock()
	*slot = pending{value: value, at: at, ok: true}
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() (steering, drive pending) {
	m.mu.Lock()
	defer m.mu.Unlock()

	steering, drive = m.steering, m.drive
	m.steering, m.drive = pending{}, pending{}
	return
}
