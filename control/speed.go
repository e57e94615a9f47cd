package control

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	defaultSpeedGain     = 0.005
	defaultSpeedDeadband = 0.01
)

// SpeedConfig configures a proportional speed controller.
type SpeedConfig struct {
	// Gain is the fraction of the remaining speed error closed on each step.
	Gain float64 `json:"gain"`
	// Deadband is the speed error at or under which the speed is held.
	Deadband float64 `json:"deadband"`
}

// NewDefaultSpeedConfig returns the tuned controller values.
func NewDefaultSpeedConfig() SpeedConfig {
	return SpeedConfig{Gain: defaultSpeedGain, Deadband: defaultSpeedDeadband}
}

// Validate checks that the controller converges without overshoot.
func (cfg SpeedConfig) Validate(path string) error {
	var err error
	if cfg.Gain <= 0 || cfg.Gain > 1 {
		err = multierr.Append(err, errors.Errorf("%s.gain: must be in (0, 1], got %v", path, cfg.Gain))
	}
	if cfg.Deadband < 0 {
		err = multierr.Append(err, errors.Errorf("%s.deadband: must not be negative, got %v", path, cfg.Deadband))
	}
	return err
}

// SpeedController steps a scalar speed toward a target speed.
type SpeedController struct {
	cfg SpeedConfig
}

// NewSpeedController returns a controller for a valid config.
func NewSpeedController(cfg SpeedConfig) (*SpeedController, error) {
	if err := cfg.Validate("speed_controller"); err != nil {
		return nil, err
	}
	return &SpeedController{cfg: cfg}, nil
}

// Config returns the controller config.
func (c *SpeedController) Config() SpeedConfig {
	return c.cfg
}

// Next returns the speed one step closer to target. Inside the deadband the speed is unchanged.
func (c *SpeedController) Next(current, target float64) float64 {
	diff := target - current
	if math.Abs(diff) <= c.cfg.Deadband {
		return current
	}
	return current + diff*c.cfg.Gain
}
