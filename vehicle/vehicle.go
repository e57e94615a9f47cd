// Package vehicle defines the states of the ego vehicle and of the vehicles tracked around it.
package vehicle

import "math"

// MilesPerHourToMetersPerSecond converts the ego's reported speed to the unit used by tracked
// vehicles and by every planner speed.
const MilesPerHourToMetersPerSecond = 0.44704

// Ego is the localized state of the vehicle being planned for. S and D are road-aligned
// coordinates, X and Y Cartesian. Speed is reported in miles per hour.
type Ego struct {
	X     float64
	Y     float64
	S     float64
	D     float64
	Yaw   float64
	Speed float64
}

// SpeedMetersPerSecond returns the ego speed converted to meters per second.
func (e Ego) SpeedMetersPerSecond() float64 {
	return e.Speed * MilesPerHourToMetersPerSecond
}

// Tracked is a vehicle reported by perception.
type Tracked struct {
	ID int
	X  float64
	Y  float64
	VX float64
	VY float64
	S  float64
	D  float64
}

// Speed is the Euclidean norm of the velocity components, in meters per second.
func (t Tracked) Speed() float64 {
	return math.Hypot(t.VX, t.VY)
}

// GapAhead returns how far the tracked vehicle is ahead of the ego along the road.
func (t Tracked) GapAhead(ego Ego) float64 {
	return t.S - ego.S
}
