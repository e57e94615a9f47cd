// Package curve fits smooth planar curves parameterized by the longitudinal road coordinate.
package curve

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// MinSamples is the fewest samples a curve can be fit through.
const MinSamples = 3

// Sample is a Cartesian point observed at longitudinal coordinate S.
type Sample struct {
	S     float64
	Point r2.Point
}

// Spline is a natural cubic spline over a strictly increasing domain. Outside the domain it
// extends linearly along the end tangents so that predictions keep moving instead of clamping
// to the end values.
type Spline struct {
	nc     interp.NaturalCubic
	lo, hi float64
	yLo    float64
	yHi    float64
	dyLo   float64
	dyHi   float64
}

// FitSpline fits a spline through (xs[i], ys[i]).
func FitSpline(xs, ys []float64) (*Spline, error) {
	if len(xs) != len(ys) {
		return nil, errors.Errorf("mismatched sample lengths %d and %d", len(xs), len(ys))
	}
	if len(xs) < MinSamples {
		return nil, errors.Errorf("need at least %d samples to fit, got %d", MinSamples, len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, errors.Errorf("sample %d at %.3f does not increase past %.3f", i, xs[i], xs[i-1])
		}
	}

	sp := &Spline{}
	if err := sp.nc.Fit(xs, ys); err != nil {
		return nil, errors.Wrap(err, "fitting natural cubic spline")
	}
	n := len(xs) - 1
	sp.lo, sp.hi = xs[0], xs[n]
	sp.yLo, sp.yHi = ys[0], ys[n]
	sp.dyLo = sp.nc.PredictDerivative(sp.lo)
	sp.dyHi = sp.nc.PredictDerivative(sp.hi)
	return sp, nil
}

// At evaluates the spline at x.
func (sp *Spline) At(x float64) float64 {
	switch {
	case x < sp.lo:
		return sp.yLo + sp.dyLo*(x-sp.lo)
	case x > sp.hi:
		return sp.yHi + sp.dyHi*(x-sp.hi)
	default:
		return sp.nc.Predict(x)
	}
}

// Domain returns the first and last fitted x.
func (sp *Spline) Domain() (float64, float64) {
	return sp.lo, sp.hi
}

// Curve maps a longitudinal coordinate to a Cartesian point.
type Curve struct {
	x *Spline
	y *Spline
}

// Fit fits a curve through samples ordered by strictly increasing S.
func Fit(samples []Sample) (*Curve, error) {
	ss := make([]float64, 0, len(samples))
	xs := make([]float64, 0, len(samples))
	ys := make([]float64, 0, len(samples))
	for _, smp := range samples {
		ss = append(ss, smp.S)
		xs = append(xs, smp.Point.X)
		ys = append(ys, smp.Point.Y)
	}
	x, err := FitSpline(ss, xs)
	if err != nil {
		return nil, errors.Wrap(err, "x")
	}
	y, err := FitSpline(ss, ys)
	if err != nil {
		return nil, errors.Wrap(err, "y")
	}
	return &Curve{x: x, y: y}, nil
}

// At returns the point at longitudinal coordinate s.
func (c *Curve) At(s float64) r2.Point {
	return r2.Point{X: c.x.At(s), Y: c.y.At(s)}
}

// Sample evaluates the curve at every s, in order.
func (c *Curve) Sample(ss []float64) []r2.Point {
	pts := make([]r2.Point, 0, len(ss))
	for _, s := range ss {
		pts = append(pts, c.At(s))
	}
	return pts
}

// Domain returns the range of s the curve was fit over.
func (c *Curve) Domain() (float64, float64) {
	return c.x.Domain()
}
