package motionplan

import (
	"go.viam.com/highway/curve"
	"go.viam.com/highway/vehicle"
)

// changeLane moves offset lanes over. The path follows a curve fit through the current lane behind
// the merge point and through the target lane well past it; the stretch between is left unsampled
// so the fit blends the two. Unsafe merges keep the lane instead.
func (p *Planner) changeLane(previous Path, ego vehicle.Ego, others []vehicle.Tracked, offset int) *Plan {
	lane := p.road.FindLane(ego.D)
	target := lane + offset
	if !p.safety.SafeToMerge(ego, others, target) {
		return p.keepLane(previous, ego, others)
	}
	lc := p.opts.LaneChange

	start := ego.S - lc.Behind
	merge := ego.S + lc.MergeAhead
	if lead := p.road.FrontVehicle(ego, others, target); lead != nil {
		merge = min(merge, lead.S)
	}
	end := merge + lc.MergeSpan

	var samples []curve.Sample
	samples = appendLaneSamples(samples, p.road.Centerline(lane), start, merge)
	samples = appendLaneSamples(samples, p.road.Centerline(target), merge+lc.BlendGap, end)
	blend, err := curve.Fit(samples)
	if err != nil {
		p.logger.Warnw("cannot fit lane change curve, keeping lane", "error", err, "target_lane", target)
		return p.keepLane(previous, ego, others)
	}

	seed, speed := p.carryForward(previous, ego)
	targetSpeed := min(speed*lc.SpeedFactor, p.opts.MaxSpeed-lc.MaxSpeedSlack)
	horizon := lc.HorizonOne
	if offset == 2 || offset == -2 {
		horizon = lc.HorizonTwo
	}
	profile := p.extendProfile(seed, speed, targetSpeed, p.opts.PathLength*horizon)
	path := Path(blend.Sample(profile))

	p.commit(profile, true)
	p.logger.Infow("change lane", "lane", lane, "target_lane", target, "target_speed", targetSpeed, "points", len(profile))
	return &Plan{Path: path, Maneuver: ManeuverChangeLane, Lane: target, TargetSpeed: targetSpeed}
}

// appendLaneSamples samples lane centerline c every meter of s in [from, to].
func appendLaneSamples(samples []curve.Sample, c *curve.Curve, from, to float64) []curve.Sample {
	for s := from; s <= to; s++ {
		samples = append(samples, curve.Sample{S: s, Point: c.At(s)})
	}
	return samples
}
