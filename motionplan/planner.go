package motionplan

import (
	"go.viam.com/highway/control"
	"go.viam.com/highway/logging"
	"go.viam.com/highway/vehicle"
)

// Planner is the maneuver state machine. It remembers the longitudinal profile it committed to and
// whether a maneuver is still being driven. A Planner is not safe for concurrent use; it is meant to
// be called once per planning cycle.
type Planner struct {
	road   Road
	opts   *Options
	speed  *control.SpeedController
	safety *SafetyEvaluator
	logger logging.Logger

	// profile holds the s of every waypoint handed out that the controller has not consumed yet.
	profile []float64
	// inManeuver is set while a start up or lane change path drains.
	inManeuver bool
}

// NewPlanner returns a planner over road. Nil opts selects the defaults.
func NewPlanner(road Road, opts *Options, logger logging.Logger) (*Planner, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate("planner"); err != nil {
		return nil, err
	}
	speed, err := control.NewSpeedController(opts.SpeedController)
	if err != nil {
		return nil, err
	}
	return &Planner{
		road:   road,
		opts:   opts,
		speed:  speed,
		safety: NewSafetyEvaluator(road, opts, logger.Sublogger("safety")),
		logger: logger,
	}, nil
}

// Options returns the planner options.
func (p *Planner) Options() Options {
	return *p.opts
}

// Profile returns a copy of the remembered longitudinal profile.
func (p *Planner) Profile() []float64 {
	return append([]float64(nil), p.profile...)
}

// InManeuver reports whether a committed maneuver is still draining.
func (p *Planner) InManeuver() bool {
	return p.inManeuver
}

// Plan runs one planning cycle. previous is what is left of the last returned path.
func (p *Planner) Plan(previous Path, ego vehicle.Ego, others []vehicle.Tracked) *Plan {
	p.consume(len(previous))

	if p.inManeuver {
		if len(previous) <= p.opts.PathLength {
			p.inManeuver = false
			p.logger.Debugw("maneuver finishing", "remaining", len(previous))
		}
		return &Plan{Path: previous, Maneuver: ManeuverHold, Lane: p.road.FindLane(ego.D)}
	}

	if len(previous) < 2 {
		return p.fastStart(ego, others)
	}

	lane := p.road.FindLane(ego.D)
	leads := p.surveyLeads(ego, others)
	if leads[lane].speed <= p.opts.SlowLeadRatio*p.opts.MaxSpeed && leads[lane].gap <= p.opts.LeadCheckDistance {
		if target, ok := p.chooseLane(lane, leads); ok {
			if p.safety.SafeToMerge(ego, others, target) {
				return p.changeLane(previous, ego, others, target-lane)
			}
			p.logger.Debugw("lane change unsafe, keeping lane", "lane", lane, "target_lane", target)
		}
	}
	return p.keepLane(previous, ego, others)
}

// consume drops the profile points the controller drove since the last cycle.
func (p *Planner) consume(remaining int) {
	consumed := len(p.profile) - remaining
	consumed = max(0, min(consumed, len(p.profile)))
	p.profile = p.profile[consumed:]
}

// leadSpeed decides how fast to drive in lane: at max speed unless the lead vehicle is closer than
// the distance covered in one response time plus the safe distance, then at a share of its speed.
func (p *Planner) leadSpeed(ego vehicle.Ego, others []vehicle.Tracked, lane int) float64 {
	lead := p.road.FrontVehicle(ego, others, lane)
	if lead == nil {
		return p.opts.MaxSpeed
	}
	safeGap := ego.SpeedMetersPerSecond()*p.opts.ResponseTime() + p.opts.SafeCarDistance
	if lead.GapAhead(ego) >= safeGap {
		return p.opts.MaxSpeed
	}
	return lead.Speed() * p.opts.FollowSpeedRatio
}

func (p *Planner) commit(profile []float64, inManeuver bool) {
	p.profile = profile
	p.inManeuver = inManeuver
}
