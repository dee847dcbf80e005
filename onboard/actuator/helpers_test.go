package actuator

import (
	"errors"
	"sync"
	"time"

	"github.com/CodedInternet/goservoctl/onboard/pca9685"
)

var errTestWrite = errors.New("this is a simulated write error")

type testWriter struct {
	mu      sync.Mutex
	history map[int][]int
	fail    bool
}

func newTestWriter() *testWriter {
	return &testWriter{history: make(map[int][]int)}
}

func (w *testWriter) SetChannel(channel, onTick, offTick int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errTestWrite
	}
	w.history[channel] = append(w.history[channel], offTick)
	return nil
}

func (w *testWriter) setFail(fail bool) {
	w.mu.Lock()
	w.fail = fail
	w.mu.Unlock()
}

func (w *testWriter) writes(channel int) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.history[channel]...)
}

func (w *testWriter) last(channel int) int {
	h := w.writes(channel)
	if len(h) == 0 {
		return -1
	}
	return h[len(h)-1]
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testCalibration() Calibration {
	return Calibration{
		CmdMin:         1000,
		CmdMax:         2000,
		SteerRightMax:  1250,
		SteerLeftMax:   1750,
		DrivePin:       0,
		SteerPin:       1,
		LoopPeriod:     5 * time.Millisecond,
		CommandTimeout: time.Second,
	}
}

func newTestController(w ChannelWriter, clock *testClock, cal Calibration, enabled bool) *Controller {
	c, err := NewController(w, Options{
		Calibration:  cal,
		DriveEnabled: enabled,
		Converter:    pca9685.NewConverter(pca9685.RoundNearest),
		Now:          clock.Now,
		Sleep:        func(time.Duration) {},
	})
	if err != nil {
		panic(err)
	}
	return c
}
