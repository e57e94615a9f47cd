package motionplan

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/highway/control"
)

// default values for planning options.
const (
	// waypoints in a steady keep-lane path.
	defaultPathLength = 50

	// seconds between consecutive waypoints.
	defaultTimeInterval = 0.02

	// meters per second, just under the 50 mph limit.
	defaultMaxSpeed = 22.0

	// meters kept to another vehicle on top of the time gap.
	defaultSafeCarDistance = 20.0

	// profile points reused from the previous cycle.
	defaultMaxPreviousPathSteps = 10

	// a lead vehicle slower than this share of max speed and closer than the check distance makes
	// the planner look at other lanes.
	defaultSlowLeadRatio     = 0.95
	defaultLeadCheckDistance = 100.0

	// lane scoring.
	defaultFasterLaneRatio = 1.1
	defaultGapMargin       = 10.0
	defaultGapAdvantage    = 30.0

	// share of a blocking lead vehicle's speed to follow at.
	defaultFollowSpeedRatio = 0.7

	// seconds of closing speed covered by the lane change gaps.
	defaultTargetResponseTime  = 4.0
	defaultCurrentResponseTime = 3.0

	defaultFastStartWindowStart   = 30.0
	defaultFastStartWindowEnd     = 180.0
	defaultFastStartWindowStep    = 1.0
	defaultFastStartAccel         = 9.75
	defaultFastStartInitialStep   = 0.22
	defaultFastStartCruiseStep    = 0.44
	defaultFastStartCruiseSamples = 240
	defaultFastStartLocalSamples  = 160

	defaultSeedStep = 0.25

	defaultLaneChangeBehind        = 20.0
	defaultLaneChangeMergeAhead    = 15.0
	defaultLaneChangeBlendGap      = 50.0
	defaultLaneChangeMergeSpan     = 100.0
	defaultLaneChangeHorizonOne    = 6
	defaultLaneChangeHorizonTwo    = 8
	defaultLaneChangeSpeedFactor   = 1.02
	defaultLaneChangeMaxSpeedSlack = 0.5
)

// FastStartOptions shape the cold start trajectory.
type FastStartOptions struct {
	// WindowStart and WindowEnd bound, relative to the ego, the lane samples the start curve is fit
	// through. WindowStep is their spacing.
	WindowStart float64 `json:"window_start"`
	WindowEnd   float64 `json:"window_end"`
	WindowStep  float64 `json:"window_step"`

	// Accel is the speed gained per second during the ramp. InitialStep is the first advance.
	Accel       float64 `json:"accel"`
	InitialStep float64 `json:"initial_step"`

	// CruiseStep is the advance per sample of the CruiseSamples that follow the ramp.
	CruiseStep    float64 `json:"cruise_step"`
	CruiseSamples int     `json:"cruise_samples"`

	// LocalSamples is how many leading samples follow the start curve before switching to the lane.
	LocalSamples int `json:"local_samples"`
}

// LaneChangeOptions shape the blended lane change curve.
type LaneChangeOptions struct {
	Behind      float64 `json:"behind"`
	MergeAhead  float64 `json:"merge_ahead"`
	BlendGap    float64 `json:"blend_gap"`
	MergeSpan   float64 `json:"merge_span"`
	HorizonOne  int     `json:"horizon_one_lane"`
	HorizonTwo  int     `json:"horizon_two_lanes"`
	SpeedFactor float64 `json:"speed_factor"`
	// MaxSpeedSlack keeps the lane change target speed this far below max speed.
	MaxSpeedSlack float64 `json:"max_speed_slack"`
}

// Options are the tuned values of the planner. Distances are in meters, speeds in meters per second.
type Options struct {
	PathLength           int     `json:"path_length"`
	TimeInterval         float64 `json:"time_interval"`
	MaxSpeed             float64 `json:"max_speed"`
	SafeCarDistance      float64 `json:"safe_car_distance"`
	MaxPreviousPathSteps int     `json:"max_previous_path_steps"`

	SlowLeadRatio     float64 `json:"slow_lead_ratio"`
	LeadCheckDistance float64 `json:"lead_check_distance"`
	FasterLaneRatio   float64 `json:"faster_lane_ratio"`
	GapMargin         float64 `json:"gap_margin"`
	GapAdvantage      float64 `json:"gap_advantage"`
	FollowSpeedRatio  float64 `json:"follow_speed_ratio"`

	TargetResponseTime  float64 `json:"target_response_time"`
	CurrentResponseTime float64 `json:"current_response_time"`

	SeedStep float64 `json:"seed_step"`

	FastStart       FastStartOptions    `json:"fast_start"`
	LaneChange      LaneChangeOptions   `json:"lane_change"`
	SpeedController control.SpeedConfig `json:"speed_controller"`
}

// NewDefaultOptions returns the tuned options.
func NewDefaultOptions() *Options {
	return &Options{
		PathLength:           defaultPathLength,
		TimeInterval:         defaultTimeInterval,
		MaxSpeed:             defaultMaxSpeed,
		SafeCarDistance:      defaultSafeCarDistance,
		MaxPreviousPathSteps: defaultMaxPreviousPathSteps,
		SlowLeadRatio:        defaultSlowLeadRatio,
		LeadCheckDistance:    defaultLeadCheckDistance,
		FasterLaneRatio:      defaultFasterLaneRatio,
		GapMargin:            defaultGapMargin,
		GapAdvantage:         defaultGapAdvantage,
		FollowSpeedRatio:     defaultFollowSpeedRatio,
		TargetResponseTime:   defaultTargetResponseTime,
		CurrentResponseTime:  defaultCurrentResponseTime,
		SeedStep:             defaultSeedStep,
		FastStart: FastStartOptions{
			WindowStart:   defaultFastStartWindowStart,
			WindowEnd:     defaultFastStartWindowEnd,
			WindowStep:    defaultFastStartWindowStep,
			Accel:         defaultFastStartAccel,
			InitialStep:   defaultFastStartInitialStep,
			CruiseStep:    defaultFastStartCruiseStep,
			CruiseSamples: defaultFastStartCruiseSamples,
			LocalSamples:  defaultFastStartLocalSamples,
		},
		LaneChange: LaneChangeOptions{
			Behind:        defaultLaneChangeBehind,
			MergeAhead:    defaultLaneChangeMergeAhead,
			BlendGap:      defaultLaneChangeBlendGap,
			MergeSpan:     defaultLaneChangeMergeSpan,
			HorizonOne:    defaultLaneChangeHorizonOne,
			HorizonTwo:    defaultLaneChangeHorizonTwo,
			SpeedFactor:   defaultLaneChangeSpeedFactor,
			MaxSpeedSlack: defaultLaneChangeMaxSpeedSlack,
		},
		SpeedController: control.NewDefaultSpeedConfig(),
	}
}

// Validate checks every option, reporting all problems at once.
func (opts *Options) Validate(path string) error {
	var err error
	positive := func(name string, v float64) {
		if v <= 0 {
			err = multierr.Append(err, errors.Errorf("%s.%s: must be positive, got %v", path, name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if v < 0 {
			err = multierr.Append(err, errors.Errorf("%s.%s: must not be negative, got %v", path, name, v))
		}
	}

	if opts.PathLength < 2 {
		err = multierr.Append(err, errors.Errorf("%s.path_length: must be at least 2, got %d", path, opts.PathLength))
	}
	if opts.MaxPreviousPathSteps < 2 {
		err = multierr.Append(err,
			errors.Errorf("%s.max_previous_path_steps: must be at least 2, got %d", path, opts.MaxPreviousPathSteps))
	}
	positive("time_interval", opts.TimeInterval)
	positive("max_speed", opts.MaxSpeed)
	nonNegative("safe_car_distance", opts.SafeCarDistance)
	positive("slow_lead_ratio", opts.SlowLeadRatio)
	nonNegative("lead_check_distance", opts.LeadCheckDistance)
	positive("faster_lane_ratio", opts.FasterLaneRatio)
	nonNegative("gap_margin", opts.GapMargin)
	nonNegative("gap_advantage", opts.GapAdvantage)
	positive("follow_speed_ratio", opts.FollowSpeedRatio)
	positive("target_response_time", opts.TargetResponseTime)
	positive("current_response_time", opts.CurrentResponseTime)
	nonNegative("seed_step", opts.SeedStep)

	fs := opts.FastStart
	positive("fast_start.window_start", fs.WindowStart)
	positive("fast_start.window_step", fs.WindowStep)
	if fs.WindowEnd <= fs.WindowStart {
		err = multierr.Append(err, errors.Errorf("%s.fast_start.window_end: must exceed window_start %v, got %v",
			path, fs.WindowStart, fs.WindowEnd))
	}
	positive("fast_start.accel", fs.Accel)
	nonNegative("fast_start.initial_step", fs.InitialStep)
	positive("fast_start.cruise_step", fs.CruiseStep)
	if fs.CruiseSamples < 0 {
		err = multierr.Append(err, errors.Errorf("%s.fast_start.cruise_samples: must not be negative, got %d",
			path, fs.CruiseSamples))
	}
	if fs.LocalSamples < 0 {
		err = multierr.Append(err, errors.Errorf("%s.fast_start.local_samples: must not be negative, got %d",
			path, fs.LocalSamples))
	}

	lc := opts.LaneChange
	nonNegative("lane_change.behind", lc.Behind)
	nonNegative("lane_change.merge_ahead", lc.MergeAhead)
	nonNegative("lane_change.blend_gap", lc.BlendGap)
	if lc.MergeSpan <= lc.BlendGap {
		err = multierr.Append(err, errors.Errorf("%s.lane_change.merge_span: must exceed blend_gap %v, got %v",
			path, lc.BlendGap, lc.MergeSpan))
	}
	if lc.HorizonOne < 1 || lc.HorizonTwo < 1 {
		err = multierr.Append(err, errors.Errorf("%s.lane_change: horizons must be at least 1, got %d and %d",
			path, lc.HorizonOne, lc.HorizonTwo))
	}
	positive("lane_change.speed_factor", lc.SpeedFactor)
	nonNegative("lane_change.max_speed_slack", lc.MaxSpeedSlack)

	return multierr.Combine(err, opts.SpeedController.Validate(path+".speed_controller"))
}

// ResponseTime is how long a steady path lasts, used to size the gap kept to a lead vehicle.
func (opts *Options) ResponseTime() float64 {
	return opts.TimeInterval * float64(opts.PathLength)
}
