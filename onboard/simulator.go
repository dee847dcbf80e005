package onboard

import (
	"sync"

	"github.com/CodedInternet/goservoctl/onboard/i2c"
	"github.com/CodedInternet/goservoctl/onboard/pca9685"
)

// SimulatedBus stands in for a PCA9685 on the bus. It decodes the register
// writes the driver produces so the output can be inspected without hardware.
type SimulatedBus struct {
	mu       sync.Mutex
	mode     byte
	prescale byte
	on, off  [pca9685.Channels]int
	writes   int
	fail     error
	closed   bool
}

// ChannelState is the decoded on/off pair of one output.
type ChannelState struct {
	OnTick     int     `json:"on_tick"`
	OffTick    int     `json:"off_tick"`
	PulseWidth float64 `json:"pulse_width"`
}

func NewSimulatedBus() *SimulatedBus {
	return new(SimulatedBus)
}

func (s *SimulatedBus) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return i2c.ErrClosed
	}
	if s.fail != nil {
		return s.fail
	}
	if len(p) < 2 {
		return nil
	}
	s.writes++

	reg := p[0]
	switch {
	case reg == pca9685.MODE1:
		s.mode = p[1]
	case reg == pca9685.PRESCALE:
		s.prescale = p[1]
	case reg >= pca9685.LED0_ON_L && len(p) == 5:
		ch := int(reg-pca9685.LED0_ON_L) / 4
		if ch < pca9685.Channels {
			s.on[ch] = int(p[1]) | int(p[2])<<8
			s.off[ch] = int(p[3]) | int(p[4])<<8
		}
	}
	return nil
}

func (s *SimulatedBus) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// SetFailure makes every following write return err; nil clears it.
func (s *SimulatedBus) SetFailure(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Frequency is the carrier the current prescale produces, 0 before it is set.
func (s *SimulatedBus) Frequency() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frequency()
}

func (s *SimulatedBus) frequency() float64 {
	if s.prescale == 0 {
		return 0
	}
	return pca9685.OscillatorHz / (pca9685.Steps * (float64(s.prescale) + 1))
}

// Running reports whether the chip has been taken out of sleep with
// auto-increment on.
func (s *SimulatedBus) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode&pca9685.ModeAutoIncrement != 0 && s.mode&pca9685.ModeSleep == 0
}

func (s *SimulatedBus) Channel(ch int) ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := ChannelState{OnTick: s.on[ch], OffTick: s.off[ch]}
	if f := s.frequency(); f > 0 {
		state.PulseWidth = float64(state.OffTick-state.OnTick) * 1e6 / (f * pca9685.Steps)
	}
	return state
}

func (s *SimulatedBus) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
