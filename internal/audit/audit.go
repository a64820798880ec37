// Package audit derives time and distance delta series from a GPS point
// sequence and reports how usable its timestamps are.
package audit

import (
	"math"
	"slices"
	"time"

	"github.com/planbiir/gpxaudit/internal/geomath"
)

// stamp is the parsed timestamp of one point.
type stamp struct {
	t  time.Time
	ok bool
}

// pass carries the state shared by the audit passes over one sequence.
type pass struct {
	points []Point
	stamps []stamp

	// steps[i-1] is the distance between points[i-1] and points[i]
	steps []float64

	res Result
}

// Audit inspects points in the given order and returns the derived series,
// flags and counters. The input is neither modified nor reordered, and data
// quality problems never fail the audit; they only show up in the counters.
func Audit(points []Point) Result {
	p := &pass{
		points: points,
		res:    emptyResult(),
	}

	// timestamps are parsed once; presence is descriptive only
	p.scanPresence()

	// the mode is fixed only after the primary pass has seen every time step
	p.primaryPass()
	p.res.HasTimeProgression = len(p.res.TimeDeltasMs) > 0
	p.selectDistanceMode()

	if p.res.HasTimeProgression {
		p.jointPass()
	}

	p.res.TimeDeltaStats = Summarize(p.res.TimeDeltasMs)
	return p.res
}

func emptyResult() Result {
	return Result{
		TimeDeltasMs:                        []float64{},
		DistanceDeltasMeters:                []float64{},
		DistanceDeltasGeometryOnlyMeters:    []float64{},
		DistanceDeltasTimeConditionedMeters: []float64{},
		DistanceMode:                        ModeGeometryOnly,
		TimeDistancePairs:                   []TimeDistancePair{},
		NonPositiveTimeDeltas:               []NonPositiveDelta{},
	}
}

func (p *pass) scanPresence() {
	c := &p.res.Counters
	c.TotalPoints = len(p.points)
	p.stamps = make([]stamp, len(p.points))

	for i, pt := range p.points {
		if pt.TimeRaw == "" {
			c.PointsMissingTimestamp++
			continue
		}
		t, ok := ParseTime(pt.TimeRaw)
		if !ok {
			c.PointsUnparseableTimestamp++
			continue
		}
		p.stamps[i] = stamp{t: t, ok: true}
		c.PointsWithTimestamp++
	}
	p.res.HasValidTimestamps = c.PointsWithTimestamp > 0
}

// primaryPass walks the points once, tracking the previous point and the
// previous timestamped point. Geometry-only distances are taken for every
// consecutive pair. A forward time step is paired with the distance from the
// previous point in iteration order, which may itself lack a timestamp.
func (p *pass) primaryPass() {
	c := &p.res.Counters
	if len(p.points) > 1 {
		p.steps = make([]float64, len(p.points)-1)
	}

	anchor := -1
	for i, cur := range p.points {
		if i > 0 {
			prev := p.points[i-1]
			d := geomath.Distance(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
			p.steps[i-1] = d

			c.ConsecutivePointPairsConsidered++
			if positiveFinite(d) {
				p.res.DistanceDeltasGeometryOnlyMeters = append(p.res.DistanceDeltasGeometryOnlyMeters, d)
			} else {
				c.RejectedDistanceInvalidOrZero++
			}
		}

		if !p.stamps[i].ok {
			continue
		}

		if anchor >= 0 {
			c.TimestampPairsConsidered++
			delta := millis(p.stamps[i].t.Sub(p.stamps[anchor].t))
			if delta > 0 {
				p.res.TimeDeltasMs = append(p.res.TimeDeltasMs, delta)

				// anchor >= 0 implies i >= 1, so steps[i-1] exists
				d := p.steps[i-1]
				if positiveFinite(d) {
					p.res.DistanceDeltasTimeConditionedMeters = append(p.res.DistanceDeltasTimeConditionedMeters, d)
				} else {
					c.RejectedTimeConditionedDistanceInvalidOrZero++
				}
			} else {
				c.RejectedTimestampPairsDeltaLeqZero++
				p.res.NonPositiveTimeDeltas = append(p.res.NonPositiveTimeDeltas, NonPositiveDelta{
					Index:     p.points[i].Index,
					PrevIndex: p.points[anchor].Index,
					DeltaMs:   delta,
				})
			}
		}
		anchor = i
	}
}

func (p *pass) selectDistanceMode() {
	if p.res.HasTimeProgression {
		p.res.DistanceMode = ModeTimeConditioned
		p.res.DistanceDeltasMeters = slices.Clone(p.res.DistanceDeltasTimeConditionedMeters)
		return
	}
	p.res.DistanceMode = ModeGeometryOnly
	p.res.DistanceDeltasMeters = slices.Clone(p.res.DistanceDeltasGeometryOnlyMeters)
}

// jointPass pairs consecutive points in iteration order and keeps the pair
// only when both carry a timestamp. A pair failing both the time and the
// distance check is counted under both.
func (p *pass) jointPass() {
	c := &p.res.Counters
	for i := 1; i < len(p.points); i++ {
		c.JointPairsConsidered++
		if !p.stamps[i-1].ok || !p.stamps[i].ok {
			c.JointRejectedMissingTimestamp++
			continue
		}

		dt := p.stamps[i].t.Sub(p.stamps[i-1].t).Seconds()
		dd := p.steps[i-1]

		dtOK := dt > 0
		ddOK := positiveFinite(dd)
		if !dtOK {
			c.JointRejectedDtLeqZero++
		}
		if !ddOK {
			c.JointRejectedDistanceInvalid++
		}
		if dtOK && ddOK {
			p.res.TimeDistancePairs = append(p.res.TimeDistancePairs, TimeDistancePair{DtSec: dt, DdMeters: dd})
		}
	}
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
