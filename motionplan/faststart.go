package motionplan

import (
	"github.com/golang/geo/r2"

	"go.viam.com/highway/curve"
	"go.viam.com/highway/vehicle"
)

// fastStart builds the start up trajectory when there is no previous plan to continue. A curve is fit
// from the ego position onto the lane centerline, and the profile ramps from standstill before
// cruising. The whole trajectory is committed as a maneuver.
func (p *Planner) fastStart(ego vehicle.Ego, others []vehicle.Tracked) *Plan {
	fs := p.opts.FastStart
	lane := p.road.FindLane(ego.D)
	center := p.road.Centerline(lane)

	samples := []curve.Sample{{S: ego.S, Point: r2.Point{X: ego.X, Y: ego.Y}}}
	for s := ego.S + fs.WindowStart; s < ego.S+fs.WindowEnd; s += fs.WindowStep {
		samples = append(samples, curve.Sample{S: s, Point: center.At(s)})
	}
	onramp, err := curve.Fit(samples)
	if err != nil {
		p.logger.Warnw("cannot fit start curve, starting on the lane centerline", "error", err)
		onramp = center
	}

	target := p.leadSpeed(ego, others, lane)
	profile := p.rampProfile(ego.S, target)

	local := min(fs.LocalSamples, len(profile))
	path := make(Path, 0, len(profile))
	path = append(path, onramp.Sample(profile[:local])...)
	path = append(path, center.Sample(profile[local:])...)

	p.commit(profile, true)
	p.logger.Infow("fast start", "lane", lane, "target_speed", target, "points", len(profile))
	return &Plan{Path: path, Maneuver: ManeuverFastStart, Lane: lane, TargetSpeed: target}
}

// rampProfile accelerates quadratically from standstill at start until target, then advances a
// fixed step per sample.
func (p *Planner) rampProfile(start, target float64) []float64 {
	fs := p.opts.FastStart
	dt := p.opts.TimeInterval

	var profile []float64
	advance := fs.InitialStep
	for speed := 0.; speed < target; speed += fs.Accel * dt {
		advance += speed * dt
		profile = append(profile, start+advance)
	}
	for i := 1; i <= fs.CruiseSamples; i++ {
		profile = append(profile, start+advance+fs.CruiseStep*float64(i))
	}
	return profile
}
