// Package motionplan is a short horizon highway motion planner. Each planning cycle it turns the
// ego state, the tracked vehicles and the unconsumed tail of the last trajectory into a new
// trajectory of Cartesian waypoints, one per control interval.
package motionplan

import (
	"github.com/golang/geo/r2"

	"go.viam.com/highway/curve"
	"go.viam.com/highway/vehicle"
)

// Road is the road model the planner consults.
type Road interface {
	// FindLane maps a lateral offset to a lane in [0, RightmostLane()].
	FindLane(d float64) int
	RightmostLane() int
	// FrontVehicle and RearVehicle return the nearest vehicle ahead of or behind the ego in lane,
	// nil when there is none.
	FrontVehicle(ego vehicle.Ego, others []vehicle.Tracked, lane int) *vehicle.Tracked
	RearVehicle(ego vehicle.Ego, others []vehicle.Tracked, lane int) *vehicle.Tracked
	// Centerline maps s to the Cartesian center of lane.
	Centerline(lane int) *curve.Curve
}

// Path is a sequence of waypoints, one per control interval, consumed front to back.
type Path []r2.Point

// Maneuver names the branch a planning cycle took.
type Maneuver int

// Planning branches.
const (
	// ManeuverHold returns the previous path while a committed maneuver drains.
	ManeuverHold Maneuver = iota
	ManeuverFastStart
	ManeuverKeepLane
	ManeuverChangeLane
)

func (m Maneuver) String() string {
	switch m {
	case ManeuverHold:
		return "hold"
	case ManeuverFastStart:
		return "fast_start"
	case ManeuverKeepLane:
		return "keep_lane"
	case ManeuverChangeLane:
		return "change_lane"
	default:
		return "unknown"
	}
}

// Plan is the result of one planning cycle.
type Plan struct {
	Path     Path
	Maneuver Maneuver
	// Lane is the lane the path ends up in.
	Lane int
	// TargetSpeed is the speed the longitudinal profile was steered toward. It is zero for holds.
	TargetSpeed float64
}
