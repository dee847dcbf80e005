package actuator

import (
	"context"
	"testing"
	"time"

	"github.com/CodedInternet/goservoctl/onboard/pca9685"
	. "github.com/smartystreets/goconvey/convey"
)

func boolPtr(b bool) *bool { return &b }

func TestControllerTick(t *testing.T) {
	Convey("with an enabled drive", t, func() {
		w := newTestWriter()
		clock := &testClock{t: time.Unix(1000, 0)}
		c := newTestController(w, clock, testCalibration(), true)

		Convey("an out of range drive command is clamped before conversion", func() {
			c.SetDrive(2500)
			c.drain()
			f := c.tick(clock.Now())

			So(f.Drive, ShouldEqual, 2000)
			So(f.DriveTicks, ShouldEqual, 410)
			So(w.last(0), ShouldEqual, 410)
		})

		Convey("the latest posted value wins", func() {
			c.SetSteering(1300)
			c.SetSteering(1600)
			c.drain()
			c.tick(clock.Now())
			So(c.cmd.Steering, ShouldEqual, 1600)
			So(w.last(1), ShouldEqual, pca9685.NewConverter(pca9685.RoundNearest).Ticks(1600))
		})

		Convey("every tick writes both channels even without new commands", func() {
			for i := 0; i < 5; i++ {
				c.tick(clock.Now())
			}
			So(len(w.writes(0)), ShouldEqual, 5)
			So(len(w.writes(1)), ShouldEqual, 5)
			So(w.last(0), ShouldEqual, 307)
		})

		Convey("a disabled drive outputs neutral and keeps the stored command", func() {
			c.SetDrive(1900)
			c.drain()

			resp := c.enableDrive(EnableRequest{Data: boolPtr(false)})
			So(resp.Success, ShouldBeTrue)

			f := c.tick(clock.Now())
			So(f.Drive, ShouldEqual, 1500)
			So(w.last(0), ShouldEqual, 307)
			So(c.cmd.Drive, ShouldEqual, 1900)

			Convey("and re-enabling restores pass-through", func() {
				So(c.enableDrive(EnableRequest{Data: boolPtr(true)}).Success, ShouldBeTrue)
				So(c.tick(clock.Now()).Drive, ShouldEqual, 1900)
			})
		})

		Convey("a malformed enable request is rejected and changes nothing", func() {
			resp := c.enableDrive(EnableRequest{})
			So(resp.Success, ShouldBeFalse)
			So(resp.Message, ShouldContainSubstring, "enable_drive")
			So(c.safety.Enabled(), ShouldBeTrue)
		})

		Convey("write failures are absorbed and counted", func() {
			w.setFail(true)
			c.tick(clock.Now())
			c.tick(clock.Now())
			So(c.writeFailures, ShouldEqual, 4)
			So(c.failing, ShouldBeTrue)

			w.setFail(false)
			c.SetDrive(1600)
			c.drain()
			c.tick(clock.Now())
			So(c.failing, ShouldBeFalse)
			So(w.last(0), ShouldEqual, pca9685.NewConverter(pca9685.RoundNearest).Ticks(1600))
		})

		Convey("the snapshot reports command ages", func() {
			c.SetDrive(1600)
			c.drain()
			clock.Advance(250 * time.Millisecond)
			snap := c.snapshot()
			So(snap.Drive, ShouldEqual, 1600)
			So(snap.DriveAge, ShouldAlmostEqual, 0.25, 1e-9)
			So(snap.SteeringAge, ShouldAlmostEqual, 0.25, 1e-9)
			So(snap.DriveEnabled, ShouldBeTrue)
		})
	})

	Convey("with the timeout fallback enabled", t, func() {
		w := newTestWriter()
		clock := &testClock{t: time.Unix(1000, 0)}
		cal := testCalibration()
		cal.TimeoutFallback = true
		c := newTestController(w, clock, cal, true)

		c.SetDrive(1800)
		c.SetSteering(1700)
		c.drain()
		So(c.tick(clock.Now()).Drive, ShouldEqual, 1800)

		clock.Advance(2 * time.Second)
		f := c.tick(clock.Now())
		So(f.TimedOut, ShouldBeTrue)
		So(f.Drive, ShouldEqual, 1500)
		So(f.Steering, ShouldEqual, 1500)
		So(c.cmd.Drive, ShouldEqual, 1800)

		c.SetDrive(1800)
		c.SetSteering(1700)
		c.drain()
		f = c.tick(clock.Now())
		So(f.TimedOut, ShouldBeFalse)
		So(f.Steering, ShouldEqual, 1700)
	})

	Convey("initial drive state comes from options", t, func() {
		w := newTestWriter()
		clock := &testClock{t: time.Unix(1000, 0)}
		c := newTestController(w, clock, testCalibration(), false)
		c.SetDrive(2000)
		c.drain()
		So(c.tick(clock.Now()).Drive, ShouldEqual, 1500)
	})

	Convey("invalid calibration is refused", t, func() {
		cal := testCalibration()
		cal.CmdMax = cal.CmdMin
		_, err := NewController(newTestWriter(), Options{Calibration: cal})
		So(err, ShouldEqual, ErrDriveRange)

		_, err = NewController(newTestWriter(), Options{Calibration: testCalibration(), Arming: &Sweep{Min: 1500, Max: 1400, Step: 5}})
		So(err, ShouldEqual, ErrSweep)
	})
}

func TestControllerRun(t *testing.T) {
	Convey("run arms the esc, ticks and stops on neutral", t, func() {
		w := newTestWriter()
		cal := testCalibration()
		cal.LoopPeriod = time.Millisecond

		sleeps := 0
		c, err := NewController(w, Options{
			Calibration:  cal,
			DriveEnabled: true,
			Arming:       &Sweep{Min: 1500, Max: 1700, Step: 5, Settle: DefaultSweepSettle},
			Sleep:        func(time.Duration) { sleeps++ },
		})
		So(err, ShouldBeNil)
		So(c.Phase(), ShouldEqual, PhaseStartup)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errc := make(chan error, 1)
		go func() { errc <- c.Run(ctx) }()

		c.SetDrive(2500)

		var snap Snapshot
		for i := 0; i < 500; i++ {
			snap, err = c.Snapshot(ctx)
			if err == nil && snap.Last.DriveTicks == 410 {
				break
			}
			time.Sleep(time.Millisecond)
		}
		So(err, ShouldBeNil)
		So(snap.Phase, ShouldEqual, PhaseRunning)
		So(snap.Drive, ShouldEqual, 2000)
		So(snap.Last.DriveTicks, ShouldEqual, 410)

		resp, err := c.EnableDrive(ctx, EnableRequest{Data: boolPtr(false)})
		So(err, ShouldBeNil)
		So(resp.Success, ShouldBeTrue)

		cancel()
		So(<-errc, ShouldBeNil)
		So(c.Phase(), ShouldEqual, PhaseStopped)
		So(sleeps, ShouldEqual, 80)

		h := w.writes(0)
		So(len(h), ShouldBeGreaterThan, 81)
		So(h[0], ShouldEqual, 308)
		So(h[79], ShouldEqual, 307)
		So(w.last(0), ShouldEqual, 307)
		So(w.last(1), ShouldEqual, 307)

		_, err = c.Snapshot(context.Background())
		So(err, ShouldEqual, ErrStopped)
		So(c.Run(context.Background()), ShouldEqual, ErrAlreadyStarted)
	})

	Convey("requests wait for the owner goroutine", t, func() {
		c, err := NewController(newTestWriter(), Options{Calibration: testCalibration()})
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = c.EnableDrive(ctx, EnableRequest{Data: boolPtr(true)})
		So(err, ShouldEqual, context.DeadlineExceeded)
	})
}
