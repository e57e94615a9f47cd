package motionplan

import "go.viam.com/highway/vehicle"

// carryForward returns the start of the next longitudinal profile and the speed reached at its
// end. With a usable previous plan the first few remembered points are reused so the new path
// joins the one being driven; otherwise the profile starts just ahead of the ego.
func (p *Planner) carryForward(previous Path, ego vehicle.Ego) ([]float64, float64) {
	if len(previous) < 2 || len(p.profile) < 2 {
		return []float64{ego.S + p.opts.SeedStep}, max(0, ego.SpeedMetersPerSecond())
	}
	n := min(p.opts.MaxPreviousPathSteps, len(p.profile))
	seed := append(make([]float64, 0, n), p.profile[:n]...)
	lastSpeed := (seed[n-1] - seed[n-2]) / p.opts.TimeInterval
	return seed, max(0, lastSpeed)
}

// extendProfile appends one control interval at a time until the profile holds horizon points,
// stepping the speed toward target.
func (p *Planner) extendProfile(seed []float64, speed, target float64, horizon int) []float64 {
	profile := seed
	for len(profile) < horizon {
		speed = p.speed.Next(speed, target)
		profile = append(profile, profile[len(profile)-1]+speed*p.opts.TimeInterval)
	}
	return profile
}
