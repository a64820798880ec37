package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/planbiir/gpxaudit/internal/audit"
	"github.com/planbiir/gpxaudit/internal/errs"
	"github.com/planbiir/gpxaudit/internal/geomath"
)

const (
	ErrCoordinateRange = errs.Error("coordinate out of range")
	ErrCoordinateValue = errs.Error("coordinate is not a number")
)

// Parse reads and parses a GPX file
func Parse(filename string) (*GPX, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return ParseReader(file)
}

// ParseReader parses GPX from an io.Reader
func ParseReader(r io.Reader) (*GPX, error) {
	decoder := xml.NewDecoder(r)

	var gpxData GPX
	if err := decoder.Decode(&gpxData); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	if gpxData.Version == "" {
		gpxData.Version = "1.1"
	}

	// Add internal indices for multi-segment preservation
	for trackIdx, track := range gpxData.Tracks {
		for segIdx, segment := range track.Segments {
			for ptIdx := range segment.Points {
				pt := &gpxData.Tracks[trackIdx].Segments[segIdx].Points[ptIdx]
				pt.TrackIdx = trackIdx
				pt.SegIdx = segIdx
				pt.PtIdx = ptIdx
			}
		}
	}

	return &gpxData, nil
}

// FlattenPoints returns all points from all tracks and segments in order
func (g *GPX) FlattenPoints() []Point {
	var points []Point

	for trackIdx, track := range g.Tracks {
		for segIdx, segment := range track.Segments {
			for ptIdx, point := range segment.Points {
				point.TrackIdx = trackIdx
				point.SegIdx = segIdx
				point.PtIdx = ptIdx
				points = append(points, point)
			}
		}
	}

	return points
}

// Points flattens the file in document order and converts every point for the
// audit. Coordinates must be numbers within [-90,90] and [-180,180]; the first
// offending point fails the whole conversion. Timestamps are passed on as raw
// text, whitespace trimmed.
func (g *GPX) Points() ([]audit.Point, error) {
	flat := g.FlattenPoints()
	points := make([]audit.Point, len(flat))

	for i, p := range flat {
		lat, err := coordinate(p.Lat, 90)
		if err != nil {
			return nil, pointError(i, p, "lat", err)
		}
		lon, err := coordinate(p.Lon, 180)
		if err != nil {
			return nil, pointError(i, p, "lon", err)
		}
		points[i] = audit.Point{
			Index:   i,
			Lat:     lat,
			Lon:     lon,
			TimeRaw: strings.TrimSpace(p.Time),
		}
	}

	return points, nil
}

// Stats returns basic statistics about the GPX data
func (g *GPX) Stats() Summary {
	points := g.FlattenPoints()
	summary := Summary{
		Points: len(points),
		Tracks: len(g.Tracks),
	}
	for _, track := range g.Tracks {
		summary.Segments += len(track.Segments)
	}

	first, last := -1, -1
	for i, p := range points {
		if _, ok := audit.ParseTime(p.Time); ok {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first >= 0 && last > first {
		start, _ := audit.ParseTime(points[first].Time)
		end, _ := audit.ParseTime(points[last].Time)
		summary.Duration = end.Sub(start)
	}

	for i := 1; i < len(points); i++ {
		d := pointDistance(points[i-1], points[i])
		if !math.IsNaN(d) {
			summary.DistanceMeters += d
		}
	}

	return summary
}

// CheckOrder counts forward, equal and backward steps between successive
// timestamped points. It only describes the order; nothing is reordered.
func CheckOrder(points []audit.Point) OrderStats {
	var stats OrderStats
	var prev time.Time
	havePrev := false

	for _, p := range points {
		t, ok := audit.ParseTime(p.TimeRaw)
		if !ok {
			continue
		}
		stats.Timestamped++
		if havePrev {
			switch {
			case t.After(prev):
				stats.Forward++
			case t.Equal(prev):
				stats.Equal++
			default:
				stats.Backward++
			}
		}
		prev = t
		havePrev = true
	}

	return stats
}

func coordinate(raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrCoordinateValue, raw)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%w: %g", ErrCoordinateRange, v)
	}
	return v, nil
}

func pointError(i int, p Point, field string, err error) error {
	return errs.Invalid("gpx.Points",
		fmt.Errorf("point %d (track %d, segment %d, #%d) %s: %w", i, p.TrackIdx, p.SegIdx, p.PtIdx, field, err))
}

func pointDistance(a, b Point) float64 {
	lat1, err1 := strconv.ParseFloat(strings.TrimSpace(a.Lat), 64)
	lon1, err2 := strconv.ParseFloat(strings.TrimSpace(a.Lon), 64)
	lat2, err3 := strconv.ParseFloat(strings.TrimSpace(b.Lat), 64)
	lon2, err4 := strconv.ParseFloat(strings.TrimSpace(b.Lon), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return math.NaN()
	}
	return geomath.Distance(lat1, lon1, lat2, lon2)
}
