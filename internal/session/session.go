// Package session keeps the state of one interactive density view: the
// dataset on display, its label and the bandwidth currently chosen.
//
// A Session is not safe for concurrent use. Each view owns its own.
package session

import (
	"fmt"
	"math"
	"slices"

	"github.com/planbiir/gpxaudit/internal/density"
	"github.com/planbiir/gpxaudit/internal/errs"
)

const ErrInvalidScale = errs.Error("bandwidth scale must be a positive finite number")

// Session re-runs the density estimator whenever the bandwidth changes and
// remembers the latest curve.
type Session struct {
	label     string
	values    []float64
	gridSize  int
	silverman float64
	bandwidth float64
	result    density.Result
}

// New copies values, seeds the bandwidth from Silverman's rule and computes
// the initial curve.
func New(label string, values []float64, gridSize int) (*Session, error) {
	s := &Session{
		label:    label,
		values:   slices.Clone(values),
		gridSize: gridSize,
	}
	s.silverman = density.SilvermanBandwidth(s.values)
	if err := s.SetBandwidth(s.silverman); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Label() string { return s.label }

// Values returns a copy of the dataset.
func (s *Session) Values() []float64 { return slices.Clone(s.values) }

func (s *Session) Bandwidth() float64 { return s.bandwidth }

// DefaultBandwidth is the Silverman bandwidth the session started with.
func (s *Session) DefaultBandwidth() float64 { return s.silverman }

// Result returns the curve for the current bandwidth.
func (s *Session) Result() density.Result { return s.result }

// SetBandwidth recomputes the curve with h. On error the previous bandwidth
// and curve are kept.
func (s *Session) SetBandwidth(h float64) error {
	res, err := density.Estimate(s.values, h, s.gridSize)
	if err != nil {
		return err
	}
	s.bandwidth = h
	s.result = res
	return nil
}

// ScaleBandwidth sets the bandwidth to factor times the Silverman bandwidth.
func (s *Session) ScaleBandwidth(factor float64) error {
	if !(factor > 0) || math.IsInf(factor, 1) {
		return errs.Invalid("session.ScaleBandwidth", fmt.Errorf("%w: %v", ErrInvalidScale, factor))
	}
	return s.SetBandwidth(s.silverman * factor)
}

// Sweep returns one curve per scale factor without changing the session's
// bandwidth.
func (s *Session) Sweep(factors []float64) ([]density.Result, error) {
	results := make([]density.Result, 0, len(factors))
	for _, f := range factors {
		if !(f > 0) || math.IsInf(f, 1) {
			return nil, errs.Invalid("session.Sweep", fmt.Errorf("%w: %v", ErrInvalidScale, f))
		}
		res, err := density.Estimate(s.values, s.silverman*f, s.gridSize)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
