package actuator

import (
	"errors"
	"time"
)

const (
	DefaultSweepStep   = 5
	DefaultSweepSettle = 50 * time.Millisecond
)

var ErrSweep = errors.New("arming sweep needs min < max and a positive step")

// Sweep is the ESC arming pulse train: climb from Min to Max in Step
// increments, then fall back to Min, settling after every step.
type Sweep struct {
	Min, Max int
	Step     int
	Settle   time.Duration
}

func (s Sweep) Validate() error {
	if s.Min >= s.Max || s.Step <= 0 {
		return ErrSweep
	}
	return nil
}

// Values lists every pulse width the sweep visits, in order. The first value
// is Min+Step and the last is the first value at or below Min on the way down.
func (s Sweep) Values() []int {
	if s.Validate() != nil {
		return nil
	}

	var out []int
	v, step := s.Min, s.Step
	for {
		v += step
		out = append(out, v)
		if v >= s.Max {
			step = -s.Step
		}
		if v <= s.Min {
			return out
		}
	}
}

// Sequencer drives a Sweep synchronously. It is not cancellable; the ESC
// must see the whole train.
type Sequencer struct {
	sweep Sweep
	sleep func(time.Duration)
}

func NewSequencer(sweep Sweep, sleep func(time.Duration)) *Sequencer {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Sequencer{sweep: sweep, sleep: sleep}
}

// Run calls write for each value of the sweep and waits the settle time
// after it. Write failures do not stop the sweep; they are counted.
func (s *Sequencer) Run(write func(pulseWidth int) error) (steps, failures int) {
	for _, v := range s.sweep.Values() {
		if err := write(v); err != nil {
			failures++
		}
		steps++
		s.sleep(s.sweep.Settle)
	}
	return
}
