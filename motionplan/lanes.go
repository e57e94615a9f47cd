package motionplan

import (
	"math"

	"go.viam.com/highway/vehicle"
)

var infinity = math.Inf(1)

// leadOutlook is what the nearest vehicle ahead in a lane allows. Empty lanes are unbounded.
type leadOutlook struct {
	speed float64
	gap   float64
}

func (p *Planner) surveyLeads(ego vehicle.Ego, others []vehicle.Tracked) []leadOutlook {
	leads := make([]leadOutlook, p.road.RightmostLane()+1)
	for lane := range leads {
		leads[lane] = leadOutlook{speed: infinity, gap: infinity}
		if lead := p.road.FrontVehicle(ego, others, lane); lead != nil {
			leads[lane] = leadOutlook{speed: lead.Speed(), gap: lead.GapAhead(ego)}
		}
	}
	return leads
}

// laneScore counts the criteria under which candidate beats staying in the current lane. other is
// the opposite candidate, nil at the road edge.
func (p *Planner) laneScore(current, candidate leadOutlook, other *leadOutlook) int {
	score := 0
	if other != nil && candidate.speed > other.speed {
		score++
	}
	if candidate.speed >= current.speed*p.opts.FasterLaneRatio {
		score++
	}
	if candidate.gap+p.opts.GapMargin >= current.gap {
		score++
	}
	if candidate.gap >= current.gap+p.opts.GapAdvantage {
		score++
	}
	return score
}

// chooseLane picks the adjacent lane with the strictly higher score. Ties, including both scoring
// zero, keep the lane.
func (p *Planner) chooseLane(lane int, leads []leadOutlook) (int, bool) {
	left, right := lane-1, lane+1
	hasLeft, hasRight := left >= 0, right <= p.road.RightmostLane()

	var leftScore, rightScore int
	switch {
	case hasLeft && hasRight:
		leftScore = p.laneScore(leads[lane], leads[left], &leads[right])
		rightScore = p.laneScore(leads[lane], leads[right], &leads[left])
	case hasLeft:
		leftScore = p.laneScore(leads[lane], leads[left], nil)
	case hasRight:
		rightScore = p.laneScore(leads[lane], leads[right], nil)
	}
	p.logger.Debugw("evaluated lane change", "lane", lane, "score_left", leftScore, "score_right", rightScore)

	switch {
	case leftScore > rightScore:
		return left, true
	case rightScore > leftScore:
		return right, true
	default:
		return lane, false
	}
}
