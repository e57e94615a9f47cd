package motionplan

import (
	"math"
	"testing"

	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"go.viam.com/highway/logging"
	"go.viam.com/highway/road"
	"go.viam.com/highway/vehicle"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	p, _ := newObservedPlanner(t)
	return p
}

func newObservedPlanner(t *testing.T) (*Planner, *observer.ObservedLogs) {
	t.Helper()
	return newPlannerWithOptions(t, nil)
}

func newPlannerWithOptions(t *testing.T, opts *Options) (*Planner, *observer.ObservedLogs) {
	t.Helper()
	r, err := road.Straight(3000, road.NewDefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	logger, logs := logging.NewObservedTestLogger(t)
	p, err := NewPlanner(r, opts, logger)
	test.That(t, err, test.ShouldBeNil)
	return p, logs
}

// fieldsOf returns the fields of every entry logged with msg.
func fieldsOf(logs *observer.ObservedLogs, msg string) []map[string]interface{} {
	var fields []map[string]interface{}
	for _, entry := range logs.FilterMessage(msg).All() {
		fields = append(fields, entry.ContextMap())
	}
	return fields
}

// egoAt places the ego on the center of lane at s.
func egoAt(s float64, lane int, mph float64) vehicle.Ego {
	d := 4*float64(lane) + 2
	return vehicle.Ego{X: s, Y: -d, S: s, D: d, Speed: mph}
}

func twoPointPath(ego vehicle.Ego) Path {
	return Path{{X: ego.X, Y: ego.Y}, {X: ego.X + 0.4, Y: ego.Y}}
}

func assertNonDecreasing(t *testing.T, profile []float64) {
	t.Helper()
	for i := 1; i < len(profile); i++ {
		test.That(t, profile[i], test.ShouldBeGreaterThanOrEqualTo, profile[i-1])
	}
}

func TestNewPlannerRejectsBadOptions(t *testing.T) {
	r, err := road.Straight(500, road.NewDefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	opts := NewDefaultOptions()
	opts.PathLength = 0
	opts.SpeedController.Gain = 2
	_, err = NewPlanner(r, opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "planner.path_length")
	test.That(t, err.Error(), test.ShouldContainSubstring, "planner.speed_controller.gain")
}

func TestFastStartOnColdStart(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(100, 1, 0)

	plan := p.Plan(Path{{X: ego.X, Y: ego.Y}}, ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverFastStart)
	test.That(t, plan.Lane, test.ShouldEqual, 1)
	test.That(t, plan.TargetSpeed, test.ShouldEqual, p.opts.MaxSpeed)
	test.That(t, p.InManeuver(), test.ShouldBeTrue)

	profile := p.Profile()
	test.That(t, profile[0], test.ShouldAlmostEqual, 100.22)
	// 113 ramp samples below 22 m/s at 0.195 m/s per sample, then the cruise run
	test.That(t, profile, test.ShouldHaveLength, 113+240)
	test.That(t, plan.Path, test.ShouldHaveLength, len(profile))
	assertNonDecreasing(t, profile)
	test.That(t, profile[len(profile)-1]-profile[len(profile)-2], test.ShouldAlmostEqual, 0.44)

	test.That(t, plan.Path[0].X, test.ShouldAlmostEqual, 100.22, 1e-6)
	test.That(t, plan.Path[0].Y, test.ShouldAlmostEqual, -6, 1e-6)
	test.That(t, plan.Path[200].Y, test.ShouldAlmostEqual, -6, 1e-6)
}

func TestFastStartFromOffLanePose(t *testing.T) {
	p := newTestPlanner(t)
	ego := vehicle.Ego{X: 50, Y: -7.5, S: 50, D: 7.5}

	plan := p.Plan(nil, ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverFastStart)
	test.That(t, plan.Lane, test.ShouldEqual, 1)
	// the start curve leaves the ego pose and is on the centerline once the lane samples begin
	test.That(t, plan.Path[0].Y, test.ShouldBeLessThan, -6.5)
	for i, s := range p.Profile() {
		if s >= 90 {
			test.That(t, plan.Path[i].Y, test.ShouldAlmostEqual, -6, 0.01)
		}
	}
}

func TestFastStartBehindSlowVehicle(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(100, 1, 0)
	others := []vehicle.Tracked{{ID: 1, S: 110, D: 6, VX: 10}}

	plan := p.Plan(nil, ego, others)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverFastStart)
	test.That(t, plan.TargetSpeed, test.ShouldAlmostEqual, 7)
	// 36 ramp samples below 7 m/s
	test.That(t, p.Profile(), test.ShouldHaveLength, 36+240)
}

func TestHoldWhileManeuverDrains(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(100, 1, 0)
	first := p.Plan(nil, ego, nil)
	test.That(t, p.InManeuver(), test.ShouldBeTrue)

	remaining := first.Path[100:]
	plan := p.Plan(remaining, ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverHold)
	test.That(t, plan.Path, test.ShouldResemble, remaining)
	test.That(t, p.InManeuver(), test.ShouldBeTrue)
	test.That(t, p.Profile(), test.ShouldHaveLength, len(remaining))

	remaining = first.Path[len(first.Path)-50:]
	plan = p.Plan(remaining, ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverHold)
	test.That(t, plan.Path, test.ShouldResemble, remaining)
	test.That(t, p.InManeuver(), test.ShouldBeFalse)
	test.That(t, p.Profile(), test.ShouldHaveLength, 50)

	plan = p.Plan(remaining[3:], ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
}

func TestKeepLaneCarriesProfileForward(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(200, 1, 44.7)
	for i := 0; i < 47; i++ {
		p.profile = append(p.profile, 200+0.4*float64(i))
	}
	previous := make(Path, 47)

	plan := p.Plan(previous, ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	profile := p.Profile()
	test.That(t, profile, test.ShouldHaveLength, p.opts.PathLength)
	for i := 0; i < p.opts.MaxPreviousPathSteps; i++ {
		test.That(t, profile[i], test.ShouldEqual, 200+0.4*float64(i))
	}
	// 20 m/s carried forward, nudged toward 22 m/s
	step := profile[10] - profile[9]
	test.That(t, step, test.ShouldBeGreaterThan, 0.4)
	test.That(t, step, test.ShouldBeLessThan, 0.4005)
	test.That(t, p.InManeuver(), test.ShouldBeFalse)
}

func TestKeepLaneSeedsFromEgo(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(500, 2, 20)

	plan := p.Plan(twoPointPath(ego), ego, nil)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	test.That(t, plan.Lane, test.ShouldEqual, 2)
	profile := p.Profile()
	test.That(t, profile, test.ShouldHaveLength, 50)
	test.That(t, profile[0], test.ShouldAlmostEqual, 500.25)
	test.That(t, plan.Path[0].Y, test.ShouldAlmostEqual, -10, 1e-6)
}

func TestKeepLaneConvergesToMaxSpeed(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(100, 1, 10)
	plan := p.Plan(twoPointPath(ego), ego, nil)

	const consumedPerCycle = 3
	for cycle := 0; cycle < 1000; cycle++ {
		profile := p.Profile()
		ego.S = profile[consumedPerCycle-1]
		ego.X = ego.S
		plan = p.Plan(plan.Path[consumedPerCycle:], ego, nil)
		test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
		assertNonDecreasing(t, p.Profile())
	}

	profile := p.Profile()
	speed := (profile[len(profile)-1] - profile[len(profile)-2]) / p.opts.TimeInterval
	test.That(t, speed, test.ShouldBeLessThanOrEqualTo, p.opts.MaxSpeed+1e-9)
	test.That(t, speed, test.ShouldAlmostEqual, p.opts.MaxSpeed, 0.02)
}

func TestKeepLaneFollowsSlowLead(t *testing.T) {
	p := newTestPlanner(t)
	// 48 mph closes 21.5 m per response time, so 40 m is short of the 41.5 m wanted
	ego := egoAt(1000, 1, 48)
	lead := vehicle.Tracked{ID: 7, S: 1040, D: 6, VX: p.opts.MaxSpeed / 2}

	test.That(t, p.leadSpeed(ego, []vehicle.Tracked{lead}, 1), test.ShouldAlmostEqual, 0.7*lead.Speed())

	plan := p.Plan(twoPointPath(ego), ego, []vehicle.Tracked{lead})
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	test.That(t, plan.Lane, test.ShouldEqual, 1)
	test.That(t, plan.TargetSpeed, test.ShouldAlmostEqual, 7.7)

	// far enough ahead to ignore
	ego.Speed = 30
	test.That(t, p.leadSpeed(ego, []vehicle.Tracked{lead}, 1), test.ShouldEqual, p.opts.MaxSpeed)
}

func TestKeepLaneWhenNoAdjacentLaneIsBetter(t *testing.T) {
	p, logs := newObservedPlanner(t)
	ego := egoAt(1000, 0, 40)
	others := []vehicle.Tracked{
		{ID: 1, S: 1040, D: 2, VX: 11},
		{ID: 2, S: 1020, D: 6, VX: 10},
	}

	plan := p.Plan(twoPointPath(ego), ego, others)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	test.That(t, plan.Lane, test.ShouldEqual, 0)

	evaluated := fieldsOf(logs, "evaluated lane change")
	test.That(t, evaluated, test.ShouldHaveLength, 1)
	test.That(t, evaluated[0]["score_left"], test.ShouldEqual, int64(0))
	test.That(t, evaluated[0]["score_right"], test.ShouldEqual, int64(0))
}

func laneChangeScene() (vehicle.Ego, []vehicle.Tracked) {
	ego := egoAt(300, 1, 40)
	return ego, []vehicle.Tracked{
		{ID: 1, S: 360, D: 6, VX: 15},
		{ID: 2, S: 350, D: 10, VX: 16},
	}
}

func TestChangeLaneToFasterLane(t *testing.T) {
	p := newTestPlanner(t)
	ego, others := laneChangeScene()

	target, ok := p.chooseLane(1, p.surveyLeads(ego, others))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, target, test.ShouldEqual, 0)

	plan := p.Plan(twoPointPath(ego), ego, others)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverChangeLane)
	test.That(t, plan.Lane, test.ShouldEqual, 0)
	test.That(t, p.InManeuver(), test.ShouldBeTrue)
	test.That(t, plan.TargetSpeed, test.ShouldAlmostEqual, 40*vehicle.MilesPerHourToMetersPerSecond*1.02)

	profile := p.Profile()
	test.That(t, profile, test.ShouldHaveLength, 6*p.opts.PathLength)
	test.That(t, plan.Path, test.ShouldHaveLength, len(profile))
	assertNonDecreasing(t, profile)

	test.That(t, plan.Path[0].Y, test.ShouldAlmostEqual, -6, 0.1)
	last := plan.Path[len(plan.Path)-1]
	test.That(t, profile[len(profile)-1], test.ShouldBeBetween, 365., 415.)
	test.That(t, last.Y, test.ShouldAlmostEqual, -2, 0.05)

	// the lane change is held until it drains
	next := p.Plan(plan.Path[5:], ego, others)
	test.That(t, next.Maneuver, test.ShouldEqual, ManeuverHold)
}

func TestChangeLaneRejectedWhenUnsafe(t *testing.T) {
	p, logs := newObservedPlanner(t)
	ego, others := laneChangeScene()
	others = append(others, vehicle.Tracked{ID: 3, S: 295, D: 2, VX: 25})

	plan := p.Plan(twoPointPath(ego), ego, others)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	test.That(t, plan.Lane, test.ShouldEqual, 1)
	test.That(t, p.InManeuver(), test.ShouldBeFalse)
	test.That(t, fieldsOf(logs, "lane change unsafe, keeping lane"), test.ShouldHaveLength, 1)
	gaps := fieldsOf(logs, "gap too small")
	test.That(t, gaps, test.ShouldHaveLength, 1)
	test.That(t, gaps[0]["role"], test.ShouldEqual, string(TargetTrail))
}

func TestChangeLaneRejectedForCloseCurrentLead(t *testing.T) {
	p, logs := newObservedPlanner(t)
	ego := egoAt(300, 1, 40)
	// lane 0 is empty, so only the lead 20 m ahead in the current lane can block the merge
	others := []vehicle.Tracked{
		{ID: 1, S: 320, D: 6, VX: 15},
		{ID: 2, S: 350, D: 10, VX: 16},
	}

	target, ok := p.chooseLane(1, p.surveyLeads(ego, others))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, target, test.ShouldEqual, 0)

	report := p.safety.Assess(ego, others, 0)
	test.That(t, report.Checks, test.ShouldHaveLength, 3)
	test.That(t, report.Checks[0].OK(), test.ShouldBeTrue)
	test.That(t, report.Checks[1].OK(), test.ShouldBeTrue)
	test.That(t, report.Checks[2].OK(), test.ShouldBeFalse)

	plan := p.Plan(twoPointPath(ego), ego, others)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	test.That(t, plan.Lane, test.ShouldEqual, 1)
	test.That(t, p.InManeuver(), test.ShouldBeFalse)
	gaps := fieldsOf(logs, "gap too small")
	test.That(t, gaps, test.ShouldHaveLength, 1)
	test.That(t, gaps[0]["role"], test.ShouldEqual, string(CurrentLead))
	test.That(t, gaps[0]["gap"], test.ShouldAlmostEqual, 20.)
}

func TestChangeLaneTwoLanes(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(300, 0, 40)

	plan := p.changeLane(twoPointPath(ego), ego, nil, 2)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverChangeLane)
	test.That(t, plan.Lane, test.ShouldEqual, 2)
	test.That(t, plan.Path, test.ShouldHaveLength, 8*p.opts.PathLength)
	test.That(t, plan.TargetSpeed, test.ShouldBeLessThanOrEqualTo, p.opts.MaxSpeed-0.5)
	assertNonDecreasing(t, p.Profile())
}

func TestChangeLaneOffRoadKeepsLane(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(300, 0, 40)

	plan := p.changeLane(twoPointPath(ego), ego, nil, -1)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverKeepLane)
	test.That(t, plan.Lane, test.ShouldEqual, 0)
	test.That(t, p.InManeuver(), test.ShouldBeFalse)
}

func TestChangeLaneMergesBeforeTargetLead(t *testing.T) {
	opts := NewDefaultOptions()
	opts.LaneChange.MergeAhead = 40
	p, _ := newPlannerWithOptions(t, opts)
	ego := egoAt(300, 1, 40)
	// matching speeds leave only the safe distance to keep
	others := []vehicle.Tracked{{ID: 4, S: 310, D: 2, VX: ego.SpeedMetersPerSecond()}}
	test.That(t, p.safety.SafeToMerge(ego, others, 0), test.ShouldBeFalse)

	others[0].S = 330
	test.That(t, p.safety.SafeToMerge(ego, others, 0), test.ShouldBeTrue)
	plan := p.changeLane(twoPointPath(ego), ego, others, -1)
	test.That(t, plan.Maneuver, test.ShouldEqual, ManeuverChangeLane)

	// merging at the lead puts the target lane samples from 380 on
	profile := p.Profile()
	checked := 0
	for i, s := range profile {
		if s >= 383 && s <= 389 {
			test.That(t, plan.Path[i].Y, test.ShouldAlmostEqual, -2, 0.01)
			checked++
		}
	}
	test.That(t, checked, test.ShouldBeGreaterThan, 0)
}

func TestLanesStayOnRoad(t *testing.T) {
	for _, d := range []float64{-5, 0, 3.9, 4, 11.9, 12, 40} {
		p := newTestPlanner(t)
		ego := vehicle.Ego{X: 100, Y: -d, S: 100, D: d, Speed: 30}
		plan := p.Plan(nil, ego, nil)
		test.That(t, plan.Lane, test.ShouldBeBetweenOrEqual, 0, 2)

		plan = p.Plan(plan.Path[len(plan.Path)-10:], ego, nil)
		test.That(t, plan.Lane, test.ShouldBeBetweenOrEqual, 0, 2)
		plan = p.Plan(plan.Path[1:], ego, nil)
		test.That(t, plan.Lane, test.ShouldBeBetweenOrEqual, 0, 2)
	}
}

func TestConsume(t *testing.T) {
	p := newTestPlanner(t)
	p.profile = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	p.consume(7)
	test.That(t, p.Profile(), test.ShouldResemble, []float64{4, 5, 6, 7, 8, 9, 10})
	p.consume(20)
	test.That(t, p.Profile(), test.ShouldHaveLength, 7)
	p.consume(0)
	test.That(t, p.Profile(), test.ShouldBeEmpty)
}

func TestProfileIsACopy(t *testing.T) {
	p := newTestPlanner(t)
	ego := egoAt(100, 1, 30)
	p.Plan(twoPointPath(ego), ego, nil)

	profile := p.Profile()
	profile[0] = math.NaN()
	test.That(t, math.IsNaN(p.Profile()[0]), test.ShouldBeFalse)
}

func TestManeuverString(t *testing.T) {
	test.That(t, ManeuverHold.String(), test.ShouldEqual, "hold")
	test.That(t, ManeuverFastStart.String(), test.ShouldEqual, "fast_start")
	test.That(t, ManeuverKeepLane.String(), test.ShouldEqual, "keep_lane")
	test.That(t, ManeuverChangeLane.String(), test.ShouldEqual, "change_lane")
	test.That(t, Maneuver(9).String(), test.ShouldEqual, "unknown")
}

func BenchmarkPlanKeepLane(b *testing.B) {
	r, err := road.Straight(3000, road.NewDefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	p, err := NewPlanner(r, nil, logging.NewBlankLogger("bench"))
	if err != nil {
		b.Fatal(err)
	}
	ego := egoAt(100, 1, 40)
	others := []vehicle.Tracked{{ID: 1, S: 200, D: 2, VX: 15}, {ID: 2, S: 160, D: 10, VX: 18}}
	plan := p.Plan(twoPointPath(ego), ego, others)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(plan.Path) < 10 {
			plan = p.Plan(twoPointPath(ego), ego, others)
			continue
		}
		plan = p.Plan(plan.Path[3:], ego, others)
	}
}
