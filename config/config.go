// Package config defines the configuration file of the highway planner program.
package config

import (
	"path/filepath"

	"go.uber.org/multierr"

	"go.viam.com/highway/logging"
	"go.viam.com/highway/motionplan"
	"go.viam.com/highway/road"
)

// roads built without a map are straight and this long, in meters.
const defaultStraightLength = 7000.0

// Config is the whole program configuration.
type Config struct {
	Planner motionplan.Options `json:"planner"`
	Road    road.Config        `json:"road"`
	// MapFile holds the road waypoints. Relative paths are resolved against the config file. Without
	// one the road is straight.
	MapFile  string `json:"map_file,omitempty"`
	LogLevel string `json:"log_level,omitempty"`

	filePath string
}

// NewDefaultConfig returns the configuration used when no file is given.
func NewDefaultConfig() *Config {
	return &Config{
		Planner: *motionplan.NewDefaultOptions(),
		Road:    road.NewDefaultConfig(),
	}
}

// FilePath returns the file the config was read from, if any.
func (c *Config) FilePath() string {
	return c.filePath
}

// Validate checks every section, reporting all problems at once.
func (c *Config) Validate() error {
	err := multierr.Combine(
		c.Planner.Validate("planner"),
		c.Road.Validate("road"),
	)
	if c.LogLevel != "" {
		if _, levelErr := logging.LevelFromString(c.LogLevel); levelErr != nil {
			err = multierr.Append(err, levelErr)
		}
	}
	return err
}

// Level returns the configured log level, INFO when unset.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// MapPath returns the map file to load, empty for a straight road.
func (c *Config) MapPath() string {
	if c.MapFile == "" || filepath.IsAbs(c.MapFile) || c.filePath == "" {
		return c.MapFile
	}
	return filepath.Join(filepath.Dir(c.filePath), c.MapFile)
}

// BuildRoad loads the configured map, or lays out a straight road when there is none.
func (c *Config) BuildRoad() (*road.Road, error) {
	if path := c.MapPath(); path != "" {
		return road.FromFile(path, c.Road)
	}
	return road.Straight(defaultStraightLength, c.Road)
}
