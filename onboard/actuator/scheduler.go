package actuator

import "time"

// ChannelWriter puts a duty cycle on one PWM output channel.
type ChannelWriter interface {
	SetChannel(channel, onTick, offTick int) error
}

// Frame is what one tick resolved to and wrote.
type Frame struct {
	Output
	SteeringTicks int       `json:"steering_ticks"`
	DriveTicks    int       `json:"drive_ticks"`
	At            time.Time `json:"at"`
}

// tick refreshes both channels from the current state. Output is written on
// every tick whether or not anything changed; the servo and ESC expect a
// continuous signal.
func (c *Controller) tick(now time.Time) Frame {
	out := c.safety.Effective(c.cal, c.cmd, now)
	if out.TimedOut != c.timedOut {
		c.timedOut = out.TimedOut
		if out.TimedOut {
			c.log.Warnw("no command received within timeout, holding neutral", "timeout", c.cal.CommandTimeout)
		} else {
			c.log.Infow("commands resumed")
		}
	}

	frame, _ := c.write(out.Drive, out.Steering)
	frame.Output = out
	frame.At = now

	c.last = frame
	c.ticks++
	return frame
}

// write converts and writes drive then steering. Failures are counted and
// logged once per outage; the next tick re-sends regardless. The first
// failure is returned.
func (c *Controller) write(drive, steering int) (Frame, error) {
	frame := Frame{
		DriveTicks:    c.conv.Ticks(drive),
		SteeringTicks: c.conv.Ticks(steering),
	}

	errD := c.out.SetChannel(c.cal.DrivePin, 0, frame.DriveTicks)
	errS := c.out.SetChannel(c.cal.SteerPin, 0, frame.SteeringTicks)

	var first error
	for _, err := range []error{errD, errS} {
		if err == nil {
			continue
		}
		c.writeFailures++
		if first == nil {
			first = err
		}
	}

	switch {
	case first != nil && !c.failing:
		c.failing = true
		c.log.Warnw("pwm write failed", "error", first)
	case first == nil && c.failing:
		c.failing = false
		c.log.Infow("pwm writes recovered", "failures", c.writeFailures)
	}
	return frame, first
}

// holdNeutral writes neutral drive and centred steering outside the tick path.
func (c *Controller) holdNeutral() {
	out := Output{Steering: c.cal.SteerCenter(), Drive: c.cal.DriveNeutral()}
	frame, _ := c.write(out.Drive, out.Steering)
	frame.Output = out
	frame.At = c.now()
	c.last = frame
}
