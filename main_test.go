package main

import (
	"errors"
	"testing"

	"github.com/CodedInternet/goservoctl/onboard"
	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

func TestStartVehicle(t *testing.T) {
	log := zap.NewNop().Sugar()

	Convey("a missing board fails before anything else is opened", t, func() {
		cfg := onboard.DefaultDriveConfig()
		cfg.Bus.Device = "/dev/i2c-does-not-exist"

		v, err := startVehicle(cfg, false, log)
		So(v, ShouldBeNil)

		var unavailable deverrors.BusUnavailableError
		So(errors.As(err, &unavailable), ShouldBeTrue)
		So(unavailable.Device, ShouldEqual, "/dev/i2c-does-not-exist")
	})

	Convey("the simulated board comes up ready to run", t, func() {
		cfg := onboard.DefaultDriveConfig()
		cfg.Arming.Enabled = false

		v, err := startVehicle(cfg, true, log)
		So(err, ShouldBeNil)
		So(v.Controller, ShouldNotBeNil)
		So(v.Close(), ShouldBeNil)
	})
}
