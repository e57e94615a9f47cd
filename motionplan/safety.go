package motionplan

import (
	"math"

	"go.viam.com/highway/logging"
	"go.viam.com/highway/vehicle"
)

// GapRole names the vehicle a gap check is made against.
type GapRole string

// Gap check roles.
const (
	TargetLead  GapRole = "target_lead"
	TargetTrail GapRole = "target_trail"
	CurrentLead GapRole = "current_lead"
)

// GapCheck is one time gap test of a lane change.
type GapCheck struct {
	Role GapRole
	// Present is false when no vehicle holds the role; the check then passes.
	Present  bool
	Gap      float64
	Required float64
}

// OK reports whether the check passes.
func (c GapCheck) OK() bool {
	return !c.Present || c.Gap >= c.Required
}

// SafetyReport collects the checks of one candidate lane.
type SafetyReport struct {
	Lane     int
	InBounds bool
	Checks   []GapCheck
}

// Safe reports whether the lane exists and every check passes.
func (r SafetyReport) Safe() bool {
	if !r.InBounds {
		return false
	}
	for _, c := range r.Checks {
		if !c.OK() {
			return false
		}
	}
	return true
}

// SafetyEvaluator decides whether merging into a lane keeps a safe time gap to the vehicles around.
type SafetyEvaluator struct {
	road   Road
	opts   *Options
	logger logging.Logger
}

// NewSafetyEvaluator returns an evaluator using the planner options.
func NewSafetyEvaluator(road Road, opts *Options, logger logging.Logger) *SafetyEvaluator {
	return &SafetyEvaluator{road: road, opts: opts, logger: logger}
}

// Assess runs every check for a merge into target.
func (se *SafetyEvaluator) Assess(ego vehicle.Ego, others []vehicle.Tracked, target int) SafetyReport {
	report := SafetyReport{Lane: target, InBounds: target >= 0 && target <= se.road.RightmostLane()}
	if !report.InBounds {
		return report
	}
	egoSpeed := ego.SpeedMetersPerSecond()
	current := se.road.FindLane(ego.D)

	check := func(role GapRole, other *vehicle.Tracked, responseTime float64, ahead bool) GapCheck {
		c := GapCheck{Role: role}
		if other == nil {
			return c
		}
		c.Present = true
		c.Required = math.Abs(egoSpeed-other.Speed())*responseTime + se.opts.SafeCarDistance
		c.Gap = other.GapAhead(ego)
		if !ahead {
			c.Gap = -c.Gap
		}
		return c
	}
	report.Checks = []GapCheck{
		check(TargetLead, se.road.FrontVehicle(ego, others, target), se.opts.TargetResponseTime, true),
		check(TargetTrail, se.road.RearVehicle(ego, others, target), se.opts.TargetResponseTime, false),
		check(CurrentLead, se.road.FrontVehicle(ego, others, current), se.opts.CurrentResponseTime, true),
	}
	return report
}

// SafeToMerge reports whether a merge into target passes every check.
func (se *SafetyEvaluator) SafeToMerge(ego vehicle.Ego, others []vehicle.Tracked, target int) bool {
	report := se.Assess(ego, others, target)
	if !report.InBounds {
		se.logger.Debugw("target lane off road", "target_lane", target)
		return false
	}
	for _, c := range report.Checks {
		if !c.OK() {
			se.logger.Debugw("gap too small", "target_lane", target, "role", string(c.Role), "gap", c.Gap, "required", c.Required)
		}
	}
	return report.Safe()
}
