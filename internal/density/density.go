// Package density estimates the distribution of positive delta series with
// a Gaussian kernel density estimate evaluated in natural-log space.
//
// Every call recomputes the curve from scratch in O(n*m); nothing is cached
// between calls, so callers that re-render on bandwidth changes just call
// Estimate again.
package density

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/planbiir/gpxaudit/internal/errs"
)

const (
	// DefaultGridSize is the number of curve samples used when none is given.
	DefaultGridSize = 200

	// FallbackBandwidth replaces a rule-of-thumb bandwidth that would be zero
	// or undefined (fewer than two values, or zero variance).
	FallbackBandwidth = 1.0
)

const (
	ErrInvalidBandwidth = errs.Error("bandwidth must be a positive finite number")
	ErrInvalidGridSize  = errs.Error("grid size must not be negative")
)

// CurvePoint is one sample of a density curve. XLinear is exp(XLog).
type CurvePoint struct {
	XLog    float64 `json:"xLog"`
	XLinear float64 `json:"xLinear"`
	Y       float64 `json:"y"`
}

// Peak is a curve sample that is a strict local maximum.
type Peak struct {
	Index int `json:"index"`
	CurvePoint
}

// Result holds a density curve, its peaks and the inputs that produced it.
type Result struct {
	Curve     []CurvePoint `json:"curve"`
	Peaks     []Peak       `json:"peaks"`
	Bandwidth float64      `json:"bandwidth"`

	// N is the number of values that survived filtering.
	N int `json:"n"`
}

// Empty reports whether no value survived filtering.
func (r Result) Empty() bool { return r.N == 0 }

// Estimate evaluates a log-space Gaussian KDE of values on gridSize equally
// spaced points spanning exactly [min(ln v), max(ln v)]. Values that are not
// strictly positive and finite are dropped. A gridSize of zero selects
// DefaultGridSize.
//
// When every surviving value is equal the grid has zero width and all
// samples sit on that one value. When nothing survives the curve and the
// peak list are empty and no error is returned.
func Estimate(values []float64, bandwidth float64, gridSize int) (Result, error) {
	if !(bandwidth > 0) || math.IsInf(bandwidth, 1) {
		return Result{}, errs.Invalid("density.Estimate", fmt.Errorf("%w: %v", ErrInvalidBandwidth, bandwidth))
	}
	if gridSize < 0 {
		return Result{}, errs.Invalid("density.Estimate", fmt.Errorf("%w: %d", ErrInvalidGridSize, gridSize))
	}
	if gridSize == 0 {
		gridSize = DefaultGridSize
	}

	logs := logValues(values)
	res := Result{
		Curve:     []CurvePoint{},
		Peaks:     []Peak{},
		Bandwidth: bandwidth,
		N:         len(logs),
	}
	if len(logs) == 0 {
		return res, nil
	}

	grid := logGrid(logs, gridSize)
	norm := 1 / (float64(len(logs)) * bandwidth)

	res.Curve = make([]CurvePoint, gridSize)
	for i, x := range grid {
		var sum float64
		for _, l := range logs {
			sum += distuv.UnitNormal.Prob((x - l) / bandwidth)
		}
		res.Curve[i] = CurvePoint{XLog: x, XLinear: math.Exp(x), Y: sum * norm}
	}
	res.Peaks = FindPeaks(res.Curve)

	return res, nil
}

// EstimateDefault runs Estimate with the Silverman bandwidth of values.
func EstimateDefault(values []float64, gridSize int) (Result, error) {
	return Estimate(values, SilvermanBandwidth(values), gridSize)
}

// SilvermanBandwidth returns 1.06 * s * n^(-1/5) for the log-transformed
// positive finite values, s being the sample standard deviation. It returns
// FallbackBandwidth when that would be zero or undefined.
func SilvermanBandwidth(values []float64) float64 {
	logs := logValues(values)
	if len(logs) < 2 {
		return FallbackBandwidth
	}
	if floats.Max(logs) == floats.Min(logs) {
		return FallbackBandwidth
	}

	s := stat.StdDev(logs, nil)
	h := 1.06 * s * math.Pow(float64(len(logs)), -0.2)
	if !(h > 0) || math.IsInf(h, 0) {
		return FallbackBandwidth
	}
	return h
}

// logValues returns ln(v) for every strictly positive, finite v.
func logValues(values []float64) []float64 {
	logs := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 && !math.IsInf(v, 1) {
			logs = append(logs, math.Log(v))
		}
	}
	return logs
}

// logGrid spans [min, max] of logs with m samples, no margin.
func logGrid(logs []float64, m int) []float64 {
	lo, hi := floats.Min(logs), floats.Max(logs)
	grid := make([]float64, m)
	if m == 1 {
		grid[0] = lo
		return grid
	}
	return floats.Span(grid, lo, hi)
}
