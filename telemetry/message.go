// Package telemetry speaks the simulator protocol: one JSON telemetry message per line in, one JSON
// trajectory per line out.
package telemetry

import (
	"encoding/json"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/highway/motionplan"
	"go.viam.com/highway/vehicle"
)

// sensor fusion rows are [id, x, y, vx, vy, s, d].
const sensorFusionFields = 7

// Message is one telemetry report. Ego speed is in miles per hour, tracked velocities in meters per
// second.
type Message struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	S     float64 `json:"s"`
	D     float64 `json:"d"`
	Yaw   float64 `json:"yaw"`
	Speed float64 `json:"speed"`

	PreviousPathX []float64   `json:"previous_path_x"`
	PreviousPathY []float64   `json:"previous_path_y"`
	SensorFusion  [][]float64 `json:"sensor_fusion"`
}

// Decode parses and checks a telemetry line.
func Decode(line []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, errors.Wrap(err, "cannot decode telemetry")
	}
	if len(msg.PreviousPathX) != len(msg.PreviousPathY) {
		return nil, errors.Errorf("previous path has %d x and %d y values",
			len(msg.PreviousPathX), len(msg.PreviousPathY))
	}
	for i, row := range msg.SensorFusion {
		if len(row) != sensorFusionFields {
			return nil, errors.Errorf("sensor_fusion[%d]: expected %d fields, got %d", i, sensorFusionFields, len(row))
		}
	}
	return &msg, nil
}

// Ego returns the ego state.
func (m *Message) Ego() vehicle.Ego {
	return vehicle.Ego{X: m.X, Y: m.Y, S: m.S, D: m.D, Yaw: m.Yaw, Speed: m.Speed}
}

// Previous returns the unconsumed tail of the last trajectory.
func (m *Message) Previous() motionplan.Path {
	return lo.Map(m.PreviousPathX, func(x float64, i int) r2.Point {
		return r2.Point{X: x, Y: m.PreviousPathY[i]}
	})
}

// Tracked returns the vehicles reported by sensor fusion.
func (m *Message) Tracked() []vehicle.Tracked {
	return lo.Map(m.SensorFusion, func(row []float64, _ int) vehicle.Tracked {
		return vehicle.Tracked{
			ID: int(row[0]),
			X:  row[1],
			Y:  row[2],
			VX: row[3],
			VY: row[4],
			S:  row[5],
			D:  row[6],
		}
	})
}

// Response is the trajectory sent back for the controller.
type Response struct {
	NextX []float64 `json:"next_x"`
	NextY []float64 `json:"next_y"`
}

// NewResponse splits path into its coordinate lists.
func NewResponse(path motionplan.Path) Response {
	return Response{
		NextX: lo.Map(path, func(p r2.Point, _ int) float64 { return p.X }),
		NextY: lo.Map(path, func(p r2.Point, _ int) float64 { return p.Y }),
	}
}
