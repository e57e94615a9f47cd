package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/highway/logging"
	"go.viam.com/highway/motionplan"
	"go.viam.com/highway/vehicle"
)

const (
	// telemetry lines carry a few hundred waypoints and vehicles.
	maxLineSize = 1 << 20

	// planning times are summarized over this many recent cycles.
	planTimeWindow = 1000
)

// Planner plans one cycle.
type Planner interface {
	Plan(previous motionplan.Path, ego vehicle.Ego, others []vehicle.Tracked) *motionplan.Plan
}

// Session feeds a telemetry stream through a planner and writes back a trajectory per message.
type Session struct {
	id      string
	planner Planner
	logger  logging.Logger
	clock   clock.Clock

	cycles  int
	skipped int
	// planTimes holds the seconds spent planning the last cycles, oldest overwritten first.
	planTimes stats.Float64Data
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets the clock planning time is measured with.
func WithClock(c clock.Clock) SessionOption {
	return func(s *Session) {
		s.clock = c
	}
}

// NewSession returns a session driving planner.
func NewSession(planner Planner, logger logging.Logger, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		planner: planner,
		logger:  logger,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Summary describes a session so far. Planning times cover the most recent cycles only.
type Summary struct {
	Cycles       int
	Skipped      int
	MeanPlanTime time.Duration
	P95PlanTime  time.Duration
	MaxPlanTime  time.Duration
}

// Summary reports how many messages were planned for and dropped, and how long planning took.
func (s *Session) Summary() Summary {
	summary := Summary{Cycles: s.cycles, Skipped: s.skipped}
	if len(s.planTimes) == 0 {
		return summary
	}
	seconds := func(v float64, err error) time.Duration {
		if err != nil {
			return 0
		}
		return time.Duration(math.Round(v * float64(time.Second)))
	}
	summary.MeanPlanTime = seconds(stats.Mean(s.planTimes))
	summary.P95PlanTime = seconds(stats.Percentile(s.planTimes, 95))
	summary.MaxPlanTime = seconds(stats.Max(s.planTimes))
	return summary
}

func (s *Session) recordPlanTime(elapsed time.Duration) {
	if len(s.planTimes) < planTimeWindow {
		s.planTimes = append(s.planTimes, elapsed.Seconds())
		return
	}
	s.planTimes[(s.cycles-1)%planTimeWindow] = elapsed.Seconds()
}

// Run reads telemetry from r until EOF or until ctx is done, writing one response per message to w.
// Malformed messages are logged and skipped.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	// the reader goroutine is released whichever way Run returns.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				scanErr <- ctx.Err()
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errors.Wrap(<-scanErr, "cannot read telemetry")
			}
			if err := s.handle(ctx, enc, line); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, enc *json.Encoder, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	msg, err := Decode(line)
	if err != nil {
		s.skipped++
		s.logger.Warnw("skipping telemetry", "message", s.cycles+s.skipped, "error", err)
		return nil
	}

	start := s.clock.Now()
	plan := s.planner.Plan(msg.Previous(), msg.Ego(), msg.Tracked())
	elapsed := s.clock.Since(start)
	s.cycles++
	s.recordPlanTime(elapsed)
	s.logger.CDebugw(ctx, "planned",
		"session", s.id,
		"cycle", s.cycles,
		"elapsed", elapsed,
		"maneuver", plan.Maneuver.String(),
		"lane", plan.Lane,
		"points", len(plan.Path),
	)
	return errors.Wrap(enc.Encode(NewResponse(plan.Path)), "cannot write trajectory")
}
