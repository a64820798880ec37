package audit

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func ts(offset time.Duration) string {
	return base.Add(offset).Format(time.RFC3339Nano)
}

// track builds points moving north-east by ~14m per step with the given raw timestamps.
func track(times ...string) []Point {
	points := make([]Point, len(times))
	for i, raw := range times {
		points[i] = Point{
			Index:   i,
			Lat:     46.0 + float64(i)*0.0001,
			Lon:     7.0 + float64(i)*0.0001,
			TimeRaw: raw,
		}
	}
	return points
}

func TestAuditEmpty(t *testing.T) {
	res := Audit(nil)

	assert.Equal(t, Counters{}, res.Counters)
	assert.False(t, res.HasValidTimestamps)
	assert.False(t, res.HasTimeProgression)
	assert.Equal(t, ModeGeometryOnly, res.DistanceMode)
	assert.Nil(t, res.TimeDeltaStats)

	assert.NotNil(t, res.TimeDeltasMs)
	assert.Empty(t, res.TimeDeltasMs)
	assert.Empty(t, res.DistanceDeltasMeters)
	assert.Empty(t, res.DistanceDeltasGeometryOnlyMeters)
	assert.Empty(t, res.DistanceDeltasTimeConditionedMeters)
	assert.Empty(t, res.TimeDistancePairs)
	assert.Empty(t, res.NonPositiveTimeDeltas)
}

func TestAuditSinglePoint(t *testing.T) {
	res := Audit(track(ts(0)))

	assert.Equal(t, 1, res.Counters.TotalPoints)
	assert.True(t, res.HasValidTimestamps)
	assert.False(t, res.HasTimeProgression)
	assert.Zero(t, res.Counters.ConsecutivePointPairsConsidered)
	assert.Empty(t, res.TimeDeltasMs)
	assert.Empty(t, res.DistanceDeltasMeters)
	assert.Nil(t, res.TimeDeltaStats)
}

func TestAuditRegularTrack(t *testing.T) {
	res := Audit(track(ts(0), ts(time.Second), ts(2*time.Second), ts(3*time.Second), ts(4*time.Second)))

	require.True(t, res.HasTimeProgression)
	assert.Equal(t, ModeTimeConditioned, res.DistanceMode)
	assert.Equal(t, []float64{1000, 1000, 1000, 1000}, res.TimeDeltasMs)
	assert.Len(t, res.DistanceDeltasGeometryOnlyMeters, 4)
	assert.Equal(t, res.DistanceDeltasTimeConditionedMeters, res.DistanceDeltasMeters)

	require.Len(t, res.TimeDistancePairs, 4)
	for _, pair := range res.TimeDistancePairs {
		assert.InDelta(t, 1.0, pair.DtSec, 1e-9)
		assert.InDelta(t, 13.6, pair.DdMeters, 1.0)
	}

	require.NotNil(t, res.TimeDeltaStats)
	assert.Equal(t, DeltaStats{Count: 4, MinMs: 1000, MaxMs: 1000, MedianMs: 1000}, *res.TimeDeltaStats)

	assert.Equal(t, 4, res.Counters.ConsecutivePointPairsConsidered)
	assert.Equal(t, 4, res.Counters.TimestampPairsConsidered)
	assert.Equal(t, 4, res.Counters.JointPairsConsidered)
	assert.Zero(t, res.Counters.RejectedTimestampPairsDeltaLeqZero)
}

func TestAuditIdenticalTimestamps(t *testing.T) {
	res := Audit(track(ts(0), ts(0), ts(time.Second)))

	assert.Equal(t, 1, res.Counters.RejectedTimestampPairsDeltaLeqZero)
	assert.Equal(t, []float64{1000}, res.TimeDeltasMs)
	assert.Equal(t, []NonPositiveDelta{{Index: 1, PrevIndex: 0, DeltaMs: 0}}, res.NonPositiveTimeDeltas)

	// the zero-dt pair is rejected by the joint pass as well
	assert.Equal(t, 1, res.Counters.JointRejectedDtLeqZero)
	assert.Len(t, res.TimeDistancePairs, 1)
}

func TestAuditBackwardTimestampMovesAnchor(t *testing.T) {
	res := Audit(track(ts(0), ts(2*time.Second), ts(time.Second), ts(3*time.Second)))

	// the backward point still becomes the anchor for the next delta
	assert.Equal(t, []float64{2000, 2000}, res.TimeDeltasMs)
	require.Len(t, res.NonPositiveTimeDeltas, 1)
	assert.Equal(t, NonPositiveDelta{Index: 2, PrevIndex: 1, DeltaMs: -1000}, res.NonPositiveTimeDeltas[0])
	assert.Len(t, res.DistanceDeltasTimeConditionedMeters, 2)
}

func TestAuditWithoutTimestamps(t *testing.T) {
	res := Audit(track("", "", "", ""))

	assert.False(t, res.HasValidTimestamps)
	assert.False(t, res.HasTimeProgression)
	assert.Equal(t, ModeGeometryOnly, res.DistanceMode)
	assert.Equal(t, 4, res.Counters.PointsMissingTimestamp)
	assert.Len(t, res.DistanceDeltasGeometryOnlyMeters, 3)
	assert.Equal(t, res.DistanceDeltasGeometryOnlyMeters, res.DistanceDeltasMeters)
	assert.Empty(t, res.DistanceDeltasTimeConditionedMeters)
	assert.Empty(t, res.TimeDistancePairs)
	assert.Zero(t, res.Counters.JointPairsConsidered)
}

func TestAuditTimestampsWithoutProgression(t *testing.T) {
	res := Audit(track(ts(time.Minute), ts(time.Minute), ts(0)))

	assert.True(t, res.HasValidTimestamps)
	assert.False(t, res.HasTimeProgression)
	assert.Equal(t, 2, res.Counters.RejectedTimestampPairsDeltaLeqZero)
	assert.Equal(t, res.DistanceDeltasGeometryOnlyMeters, res.DistanceDeltasMeters)
	assert.Empty(t, res.TimeDistancePairs)
	assert.Zero(t, res.Counters.JointPairsConsidered)
}

func TestAuditGapInTimestamps(t *testing.T) {
	points := track(ts(0), "", ts(10*time.Second))
	res := Audit(points)

	require.Equal(t, []float64{10000}, res.TimeDeltasMs)

	// time-conditioned distance uses the untimed point 1 as predecessor
	require.Len(t, res.DistanceDeltasTimeConditionedMeters, 1)
	assert.Equal(t, res.DistanceDeltasGeometryOnlyMeters[1], res.DistanceDeltasTimeConditionedMeters[0])

	// the joint pass needs both ends timestamped, so nothing qualifies
	assert.Equal(t, 2, res.Counters.JointRejectedMissingTimestamp)
	assert.Empty(t, res.TimeDistancePairs)
}

func TestAuditDuplicateCoordinates(t *testing.T) {
	points := []Point{
		{Index: 0, Lat: 46.0, Lon: 7.0, TimeRaw: ts(0)},
		{Index: 1, Lat: 46.0, Lon: 7.0, TimeRaw: ts(time.Second)},
		{Index: 2, Lat: 46.001, Lon: 7.0, TimeRaw: ts(2 * time.Second)},
	}
	res := Audit(points)

	assert.Equal(t, 1, res.Counters.RejectedDistanceInvalidOrZero)
	assert.Equal(t, 1, res.Counters.RejectedTimeConditionedDistanceInvalidOrZero)
	assert.Equal(t, 1, res.Counters.JointRejectedDistanceInvalid)
	assert.Equal(t, []float64{1000, 1000}, res.TimeDeltasMs)
	assert.Len(t, res.DistanceDeltasMeters, 1)
	assert.Len(t, res.TimeDistancePairs, 1)
}

func TestAuditJointRejectionsAreIndependent(t *testing.T) {
	points := []Point{
		{Index: 0, Lat: 46.0, Lon: 7.0, TimeRaw: ts(0)},
		{Index: 1, Lat: 46.0, Lon: 7.0, TimeRaw: ts(0)},
		{Index: 2, Lat: 46.001, Lon: 7.0, TimeRaw: ts(time.Second)},
	}
	res := Audit(points)

	assert.Equal(t, 1, res.Counters.JointRejectedDtLeqZero)
	assert.Equal(t, 1, res.Counters.JointRejectedDistanceInvalid)
	assert.Len(t, res.TimeDistancePairs, 1)
}

func TestAuditUnparseableTimestamps(t *testing.T) {
	res := Audit(track("yesterday", "not-a-time", ""))

	assert.Equal(t, 2, res.Counters.PointsUnparseableTimestamp)
	assert.Equal(t, 1, res.Counters.PointsMissingTimestamp)
	assert.Zero(t, res.Counters.PointsWithTimestamp)
	assert.False(t, res.HasValidTimestamps)
}

func TestAuditDoesNotMutateInput(t *testing.T) {
	points := track(ts(2*time.Second), ts(0), "", ts(time.Second))
	before := slices.Clone(points)

	Audit(points)

	if diff := cmp.Diff(before, points); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestAuditRandomTracks(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for run := range 50 {
		n := rng.IntN(40)
		points := make([]Point, n)
		for i := range points {
			points[i] = Point{Index: i, Lat: 46 + rng.Float64()*0.001, Lon: 7 + rng.Float64()*0.001}
			if i > 0 && rng.IntN(4) == 0 {
				points[i].Lat, points[i].Lon = points[i-1].Lat, points[i-1].Lon
			}
			switch rng.IntN(5) {
			case 0:
				// untimed
			case 1:
				points[i].TimeRaw = "garbage"
			default:
				points[i].TimeRaw = ts(time.Duration(rng.IntN(30)) * time.Second)
			}
		}

		res := Audit(points)
		series := [][]float64{
			res.TimeDeltasMs,
			res.DistanceDeltasMeters,
			res.DistanceDeltasGeometryOnlyMeters,
			res.DistanceDeltasTimeConditionedMeters,
		}
		for _, s := range series {
			for _, v := range s {
				assert.True(t, v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v), "run %d: bad delta %v", run, v)
			}
		}
		for _, pair := range res.TimeDistancePairs {
			assert.Positive(t, pair.DtSec)
			assert.Positive(t, pair.DdMeters)
		}

		assert.Equal(t, len(res.TimeDeltasMs) > 0, res.HasTimeProgression, "run %d", run)
		if res.HasTimeProgression {
			assert.Equal(t, res.DistanceDeltasTimeConditionedMeters, res.DistanceDeltasMeters)
		} else {
			assert.Equal(t, res.DistanceDeltasGeometryOnlyMeters, res.DistanceDeltasMeters)
			assert.Empty(t, res.TimeDistancePairs)
		}

		c := res.Counters
		assert.Equal(t, c.TotalPoints, c.PointsWithTimestamp+c.PointsMissingTimestamp+c.PointsUnparseableTimestamp)
		assert.Equal(t, c.ConsecutivePointPairsConsidered,
			len(res.DistanceDeltasGeometryOnlyMeters)+c.RejectedDistanceInvalidOrZero)
		assert.Equal(t, c.TimestampPairsConsidered, len(res.TimeDeltasMs)+c.RejectedTimestampPairsDeltaLeqZero)
		assert.Len(t, res.NonPositiveTimeDeltas, c.RejectedTimestampPairsDeltaLeqZero)
	}
}
