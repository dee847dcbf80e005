package actuator

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestArbiter(t *testing.T) {
	cal := testCalibration()
	now := time.Unix(1000, 0)

	Convey("an enabled arbiter passes commands through", t, func() {
		a := NewArbiter(true)
		cmd := CommandState{Steering: 1700, Drive: 1800, LastSteering: now, LastDrive: now}

		out := a.Effective(cal, cmd, now)
		So(out, ShouldResemble, Output{Steering: 1700, Drive: 1800})

		Convey("disabling forces neutral drive for any stored value", func() {
			So(a.Set(false), ShouldBeTrue)
			for drive := cal.CmdMin; drive <= cal.CmdMax; drive += 50 {
				cmd.Drive = drive
				out := a.Effective(cal, cmd, now)
				So(out.Drive, ShouldEqual, cal.DriveNeutral())
				So(out.Steering, ShouldEqual, 1700)
			}
		})

		Convey("re-enabling restores pass-through of the stored value", func() {
			a.Set(false)
			a.Set(true)
			So(a.Effective(cal, cmd, now).Drive, ShouldEqual, 1800)
			So(cmd.Drive, ShouldEqual, 1800)
		})

		Convey("setting the same state reports no change", func() {
			So(a.Set(true), ShouldBeFalse)
		})
	})

	Convey("stale commands", t, func() {
		a := NewArbiter(true)
		cmd := CommandState{Steering: 1700, Drive: 1800, LastSteering: now, LastDrive: now}
		later := now.Add(cal.CommandTimeout + time.Millisecond)

		Convey("pass through while the fallback is off", func() {
			out := a.Effective(cal, cmd, later)
			So(out, ShouldResemble, Output{Steering: 1700, Drive: 1800})
		})

		Convey("revert both outputs to neutral when the fallback is on", func() {
			cal := cal
			cal.TimeoutFallback = true

			So(a.Effective(cal, cmd, now.Add(cal.CommandTimeout)).TimedOut, ShouldBeFalse)

			out := a.Effective(cal, cmd, later)
			So(out, ShouldResemble, Output{Steering: cal.SteerCenter(), Drive: cal.DriveNeutral(), TimedOut: true})

			Convey("when only one stream is stale", func() {
				cmd.LastDrive = later
				So(a.Effective(cal, cmd, later).TimedOut, ShouldBeTrue)
			})
		})
	})
}
