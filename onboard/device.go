package onboard

import (
	"context"

	"github.com/CodedInternet/goservoctl/onboard/actuator"
	"github.com/CodedInternet/goservoctl/onboard/i2c"
	"github.com/CodedInternet/goservoctl/onboard/pca9685"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Vehicle is the assembled actuator stack for one car: the bus session, the
// PWM chip on it and the controller driving it.
type Vehicle struct {
	Config     *DriveConfig
	Controller *actuator.Controller

	driver *pca9685.Driver
	log    *zap.SugaredLogger
}

// OpenBus claims the configured device. The error is fatal to the caller.
func OpenBus(cfg BusConfig) (i2c.Conn, error) {
	return i2c.Open(cfg.Driver, cfg.Device, cfg.Address)
}

// NewVehicle initializes the chip on conn, writes neutral outputs and builds
// the controller. On failure conn is closed.
func NewVehicle(cfg *DriveConfig, conn i2c.Conn, log *zap.SugaredLogger) (v *Vehicle, err error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, conn.Close())
		}
	}()

	cal, err := cfg.Calibration()
	if err != nil {
		return nil, err
	}
	conv := cfg.Converter()

	driver := pca9685.New(conn, cfg.Bus.Device)
	if err = driver.Initialize(); err != nil {
		return nil, err
	}
	log.Infow("pca9685 initialized", "device", cfg.Bus.Device, "addr", cfg.Bus.Address, "prescale", pca9685.Prescale(pca9685.CarrierHz))

	// neutral on both outputs before the controller exists
	if err = driver.SetChannel(cal.DrivePin, 0, conv.Ticks(cal.DriveNeutral())); err != nil {
		return nil, errors.Wrap(err, "unable to write neutral drive")
	}
	if err = driver.SetChannel(cal.SteerPin, 0, conv.Ticks(cal.SteerCenter())); err != nil {
		return nil, errors.Wrap(err, "unable to write centred steering")
	}

	opts := actuator.Options{
		Calibration:  cal,
		DriveEnabled: cfg.EnableDrive,
		Converter:    conv,
		Logger:       log.Named("actuator"),
	}
	if cfg.Arming.Enabled {
		sweep := cfg.Sweep()
		opts.Arming = &sweep
	}

	ctl, err := actuator.NewController(driver, opts)
	if err != nil {
		return nil, err
	}

	return &Vehicle{
		Config:     cfg,
		Controller: ctl,
		driver:     driver,
		log:        log,
	}, nil
}

// Run blocks until ctx is cancelled, then releases the bus.
func (v *Vehicle) Run(ctx context.Context) error {
	err := v.Controller.Run(ctx)
	return multierr.Append(err, v.Close())
}

func (v *Vehicle) Close() error {
	if !v.driver.Initialized() {
		return nil
	}
	v.log.Infow("releasing bus", "device", v.Config.Bus.Device)
	return errors.Wrap(v.driver.Close(), "unable to close bus")
}
