// Package road models a multi-lane highway: lane geometry derived from map waypoints and queries
// for the vehicles nearest the ego in a lane.
package road

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/highway/curve"
	"go.viam.com/highway/vehicle"
)

const (
	defaultLaneCount = 3
	defaultLaneWidth = 4.0
)

// Config describes the lane layout shared by every waypoint of the map.
type Config struct {
	LaneCount int     `json:"lane_count"`
	LaneWidth float64 `json:"lane_width"`
}

// NewDefaultConfig returns a three lane highway with four meter lanes.
func NewDefaultConfig() Config {
	return Config{LaneCount: defaultLaneCount, LaneWidth: defaultLaneWidth}
}

// Validate checks the lane layout.
func (cfg Config) Validate(path string) error {
	var err error
	if cfg.LaneCount < 1 {
		err = multierr.Append(err, errors.Errorf("%s.lane_count: must be at least 1, got %d", path, cfg.LaneCount))
	}
	if cfg.LaneWidth <= 0 {
		err = multierr.Append(err, errors.Errorf("%s.lane_width: must be positive, got %v", path, cfg.LaneWidth))
	}
	return err
}

// Waypoint is a point of the road reference line. (Dx, Dy) is the unit normal pointing towards
// increasing d.
type Waypoint struct {
	X  float64
	Y  float64
	S  float64
	Dx float64
	Dy float64
}

// Road is a highway whose lanes run parallel to a reference line.
type Road struct {
	cfg   Config
	lanes []*curve.Curve
}

// New builds the lane centerlines from map waypoints. Waypoints are sorted by S, which must then be
// strictly increasing.
func New(waypoints []Waypoint, cfg Config) (*Road, error) {
	if err := cfg.Validate("road"); err != nil {
		return nil, err
	}
	if len(waypoints) < curve.MinSamples {
		return nil, errors.Errorf("road needs at least %d waypoints, got %d", curve.MinSamples, len(waypoints))
	}
	sorted := append([]Waypoint(nil), waypoints...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].S < sorted[j].S })

	r := &Road{cfg: cfg}
	for lane := 0; lane < cfg.LaneCount; lane++ {
		offset := r.laneCenter(lane)
		samples := lo.Map(sorted, func(wp Waypoint, _ int) curve.Sample {
			return curve.Sample{
				S:     wp.S,
				Point: r2.Point{X: wp.X + wp.Dx*offset, Y: wp.Y + wp.Dy*offset},
			}
		})
		c, err := curve.Fit(samples)
		if err != nil {
			return nil, errors.Wrapf(err, "fitting centerline of lane %d", lane)
		}
		r.lanes = append(r.lanes, c)
	}
	return r, nil
}

// Straight returns a road running along the x axis from s = 0 to s = length, with d increasing
// towards negative y.
func Straight(length float64, cfg Config) (*Road, error) {
	const spacing = 30.
	var waypoints []Waypoint
	for s := 0.; s <= length; s += spacing {
		waypoints = append(waypoints, Waypoint{X: s, Y: 0, S: s, Dx: 0, Dy: -1})
	}
	return New(waypoints, cfg)
}

// Config returns the lane layout.
func (r *Road) Config() Config {
	return r.cfg
}

// RightmostLane is the index of the last lane.
func (r *Road) RightmostLane() int {
	return r.cfg.LaneCount - 1
}

// FindLane maps a lateral offset to the lane containing it, clamped to the road.
func (r *Road) FindLane(d float64) int {
	lane := int(math.Floor(d / r.cfg.LaneWidth))
	return max(0, min(lane, r.RightmostLane()))
}

// InLane reports whether lateral offset d lies within lane.
func (r *Road) InLane(d float64, lane int) bool {
	left := float64(lane) * r.cfg.LaneWidth
	return d >= left && d < left+r.cfg.LaneWidth
}

// Centerline returns the curve from s to the Cartesian center of lane. It panics if the lane is off
// the road.
func (r *Road) Centerline(lane int) *curve.Curve {
	return r.lanes[lane]
}

// FrontVehicle returns the nearest vehicle in lane at or ahead of the ego, or nil if there is none.
func (r *Road) FrontVehicle(ego vehicle.Ego, others []vehicle.Tracked, lane int) *vehicle.Tracked {
	ahead := lo.Filter(others, func(v vehicle.Tracked, _ int) bool {
		return r.InLane(v.D, lane) && v.S >= ego.S
	})
	if len(ahead) == 0 {
		return nil
	}
	nearest := lo.MinBy(ahead, func(a, b vehicle.Tracked) bool { return a.S < b.S })
	return &nearest
}

// RearVehicle returns the nearest vehicle in lane behind the ego, or nil if there is none.
func (r *Road) RearVehicle(ego vehicle.Ego, others []vehicle.Tracked, lane int) *vehicle.Tracked {
	behind := lo.Filter(others, func(v vehicle.Tracked, _ int) bool {
		return r.InLane(v.D, lane) && v.S < ego.S
	})
	if len(behind) == 0 {
		return nil
	}
	nearest := lo.MinBy(behind, func(a, b vehicle.Tracked) bool { return a.S > b.S })
	return &nearest
}

func (r *Road) laneCenter(lane int) float64 {
	return r.cfg.LaneWidth * (float64(lane) + 0.5)
}
