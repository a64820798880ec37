package audit

// Point is a single track point as handed over by the ingestion layer.
// Coordinates are already range-checked. An empty TimeRaw means the point
// carried no timestamp.
type Point struct {
	Index   int     `json:"index"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	TimeRaw string  `json:"timeRaw,omitempty"`
}

// DistanceMode names the derivation behind the primary distance series.
type DistanceMode string

const (
	// ModeTimeConditioned pairs each forward time step with its distance.
	ModeTimeConditioned DistanceMode = "time-conditioned"
	// ModeGeometryOnly uses every consecutive point pair, timestamps ignored.
	ModeGeometryOnly DistanceMode = "geometry-only"
)

// TimeDistancePair is one joint observation between two consecutive
// timestamped points.
type TimeDistancePair struct {
	DtSec    float64 `json:"dtSec"`
	DdMeters float64 `json:"ddMeters"`
}

// NonPositiveDelta records a timestamp pair that did not move forward.
type NonPositiveDelta struct {
	Index     int     `json:"index"`
	PrevIndex int     `json:"prevIndex"`
	DeltaMs   float64 `json:"delta"`
}

// DeltaStats summarizes the time-delta series in milliseconds.
type DeltaStats struct {
	Count    int     `json:"count"`
	MinMs    float64 `json:"min"`
	MaxMs    float64 `json:"max"`
	MedianMs float64 `json:"median"`
}

// Counters are the per-pass tallies of an audit. Counters of different
// passes never count the same event.
type Counters struct {
	// Presence scan
	TotalPoints                int `json:"totalPoints"`
	PointsWithTimestamp        int `json:"pointsWithTimestamp"`
	PointsMissingTimestamp     int `json:"pointsMissingTimestamp"`
	PointsUnparseableTimestamp int `json:"pointsUnparseableTimestamp"`

	// Primary pass
	ConsecutivePointPairsConsidered              int `json:"consecutivePointPairsConsidered"`
	RejectedDistanceInvalidOrZero                int `json:"rejectedDistanceInvalidOrZero"`
	TimestampPairsConsidered                     int `json:"timestampPairsConsidered"`
	RejectedTimestampPairsDeltaLeqZero           int `json:"rejectedTimestampPairsDeltaLeqZero"`
	RejectedTimeConditionedDistanceInvalidOrZero int `json:"rejectedTimeConditionedDistanceInvalidOrZero"`

	// Joint-pair pass
	JointPairsConsidered          int `json:"jointPairsConsidered"`
	JointRejectedMissingTimestamp int `json:"jointRejectedMissingTimestamp"`
	JointRejectedDtLeqZero        int `json:"jointRejectedDtLeqZero"`
	JointRejectedDistanceInvalid  int `json:"jointRejectedDistanceInvalid"`
}

// Result is the outcome of Audit. Every delta series holds only strictly
// positive, finite values in audit order.
type Result struct {
	TimeDeltasMs []float64 `json:"timeDeltasMs"`

	// DistanceDeltasMeters is the primary distance series: a copy of the
	// time-conditioned series when HasTimeProgression is set, otherwise of
	// the geometry-only series.
	DistanceDeltasMeters                []float64    `json:"distanceDeltasMeters"`
	DistanceDeltasGeometryOnlyMeters    []float64    `json:"distanceDeltasGeometryOnlyMeters"`
	DistanceDeltasTimeConditionedMeters []float64    `json:"distanceDeltasTimeConditionedMeters"`
	DistanceMode                        DistanceMode `json:"distanceMode"`

	TimeDistancePairs     []TimeDistancePair `json:"timeDistancePairs"`
	NonPositiveTimeDeltas []NonPositiveDelta `json:"nonPositiveTimeDeltas"`

	HasValidTimestamps bool `json:"hasValidTimestamps"`
	HasTimeProgression bool `json:"hasTimeProgression"`

	// TimeDeltaStats is nil when no time delta could be derived.
	TimeDeltaStats *DeltaStats `json:"timeDeltaStats"`

	Counters Counters `json:"counters"`
}
