package motionplan

import "go.viam.com/highway/vehicle"

// keepLane follows the current lane centerline, adapting speed to the lead vehicle.
func (p *Planner) keepLane(previous Path, ego vehicle.Ego, others []vehicle.Tracked) *Plan {
	lane := p.road.FindLane(ego.D)
	target := p.leadSpeed(ego, others, lane)

	seed, speed := p.carryForward(previous, ego)
	profile := p.extendProfile(seed, speed, target, p.opts.PathLength)
	path := Path(p.road.Centerline(lane).Sample(profile))

	p.commit(profile, false)
	p.logger.Debugw("keep lane", "lane", lane, "target_speed", target, "speed", speed)
	return &Plan{Path: path, Maneuver: ManeuverKeepLane, Lane: lane, TargetSpeed: target}
}
