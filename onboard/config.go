package onboard

import (
	"math"
	"os"
	"time"

	"github.com/CodedInternet/goservoctl/onboard/actuator"
	"github.com/CodedInternet/goservoctl/onboard/i2c"
	"github.com/CodedInternet/goservoctl/onboard/pca9685"
	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// SupportedConfigVersions is the range of config schema versions this build reads.
const SupportedConfigVersions = "~1.0"

// Seconds is a duration written either as a plain number of seconds
// ("timeout: 1.") or as a duration string ("timeout: 500ms").
type Seconds time.Duration

func (s *Seconds) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var secs float64
	if err := unmarshal(&secs); err == nil {
		*s = Seconds(math.Round(secs * float64(time.Second)))
		return nil
	}

	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return errors.Wrapf(err, "bad duration %q", str)
	}
	*s = Seconds(d)
	return nil
}

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

type BusConfig struct {
	Driver  string `yaml:"driver"`
	Device  string `yaml:"device"`
	Address uint16 `yaml:"address"`
}

type ArmingConfig struct {
	Enabled bool    `yaml:"enabled"`
	Min     int     `yaml:"min"`
	Max     int     `yaml:"max"`
	Step    int     `yaml:"step"`
	Settle  Seconds `yaml:"settle"`
}

type DriveConfig struct {
	Version string `yaml:"version"`

	Rate            float64 `yaml:"rate"`
	CmdMin          int     `yaml:"cmd_min"`
	CmdMax          int     `yaml:"cmd_max"`
	Timeout         Seconds `yaml:"timeout"`
	TimeoutFallback bool    `yaml:"timeout_fallback"`
	SteerLeftMax    int     `yaml:"steer_left_max"`
	SteerRightMax   int     `yaml:"steer_right_max"`
	SteerClamp      string  `yaml:"steer_clamp"`
	EnableDrive     bool    `yaml:"enable_drive"`
	DrivePin        int     `yaml:"drive_pin"`
	SteerPin        int     `yaml:"steer_pin"`
	TickRounding    string  `yaml:"tick_rounding"`

	Bus    BusConfig    `yaml:"bus"`
	Arming ArmingConfig `yaml:"arming"`
}

// DefaultDriveConfig is the calibration the car shipped with.
func DefaultDriveConfig() *DriveConfig {
	return &DriveConfig{
		Version:       "1.0.0",
		Rate:          200,
		CmdMin:        1000,
		CmdMax:        2000,
		Timeout:       Seconds(time.Second),
		SteerLeftMax:  1750,
		SteerRightMax: 1250,
		SteerClamp:    actuator.ClampToDriveRange.String(),
		EnableDrive:   true,
		DrivePin:      0,
		SteerPin:      1,
		TickRounding:  pca9685.RoundNearest.String(),
		Bus: BusConfig{
			Driver:  i2c.DriverDev,
			Device:  "/dev/i2c-7",
			Address: pca9685.Address,
		},
		Arming: ArmingConfig{
			Enabled: true,
			Min:     1500,
			Max:     1700,
			Step:    actuator.DefaultSweepStep,
			Settle:  Seconds(actuator.DefaultSweepSettle),
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*DriveConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config %s", path)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*DriveConfig, error) {
	cfg := DefaultDriveConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *DriveConfig) Validate() error {
	if err := checkVersion(c.Version); err != nil {
		return err
	}
	if c.Rate <= 0 {
		return errors.Errorf("rate must be positive, got %v", c.Rate)
	}
	// a timeout under one scheduler period would hold neutral on every tick
	if timeout := c.Timeout.Duration(); timeout < actuator.PeriodFromRate(c.Rate) {
		return errors.Errorf("timeout must be at least one tick (%v), got %v", actuator.PeriodFromRate(c.Rate), timeout)
	}
	if c.Arming.Enabled && c.Arming.Settle < 0 {
		return errors.Errorf("arming settle must not be negative, got %v", c.Arming.Settle.Duration())
	}

	cal, err := c.Calibration()
	if err != nil {
		return err
	}
	if err := cal.Validate(); err != nil {
		return errors.Wrap(err, "invalid calibration")
	}

	if c.Arming.Enabled {
		if err := c.Sweep().Validate(); err != nil {
			return errors.Wrap(err, "invalid arming")
		}
	}
	if _, err := pca9685.ParseRounding(c.TickRounding); err != nil {
		return errors.Wrap(err, "invalid tick_rounding")
	}
	return nil
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "bad config version %q", version)
	}
	constraint, err := semver.NewConstraint(SupportedConfigVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return errors.Errorf("unable to work with config version %s, need %s", v, SupportedConfigVersions)
	}
	return nil
}

func (c *DriveConfig) Calibration() (actuator.Calibration, error) {
	clamp, err := actuator.ParseClampPolicy(c.SteerClamp)
	if err != nil {
		return actuator.Calibration{}, errors.Wrap(err, "invalid steer_clamp")
	}
	return actuator.Calibration{
		CmdMin:          c.CmdMin,
		CmdMax:          c.CmdMax,
		SteerRightMax:   c.SteerRightMax,
		SteerLeftMax:    c.SteerLeftMax,
		DrivePin:        c.DrivePin,
		SteerPin:        c.SteerPin,
		LoopPeriod:      actuator.PeriodFromRate(c.Rate),
		CommandTimeout:  c.Timeout.Duration(),
		TimeoutFallback: c.TimeoutFallback,
		SteerClamp:      clamp,
	}, nil
}

func (c *DriveConfig) Sweep() actuator.Sweep {
	return actuator.Sweep{
		Min:    c.Arming.Min,
		Max:    c.Arming.Max,
		Step:   c.Arming.Step,
		Settle: c.Arming.Settle.Duration(),
	}
}

// Converter is assumed valid; Validate has already checked tick_rounding.
func (c *DriveConfig) Converter() pca9685.Converter {
	r, _ := pca9685.ParseRounding(c.TickRounding)
	return pca9685.NewConverter(r)
}
