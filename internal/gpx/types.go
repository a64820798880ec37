package gpx

import (
	"encoding/xml"
	"time"
)

// Point is a raw <trkpt>. Coordinates and the timestamp are kept as the text
// found in the file; Points converts and validates them.
type Point struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Time string `xml:"time,omitempty"`

	// Internal tracking for multi-segment preservation
	TrackIdx, SegIdx, PtIdx int `xml:"-"`
}

// Track represents a GPX track with segments
type Track struct {
	Name     string         `xml:"name,omitempty"`
	Type     string         `xml:"type,omitempty"`
	Segments []TrackSegment `xml:"trkseg"`
}

// TrackSegment represents a track segment
type TrackSegment struct {
	Points []Point `xml:"trkpt"`
}

// GPX represents the parts of a GPX file the audit reads
type GPX struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`

	Metadata Metadata `xml:"metadata,omitempty"`
	Tracks   []Track  `xml:"trk"`
}

// Metadata represents GPX metadata
type Metadata struct {
	Name string `xml:"name,omitempty"`
	Time string `xml:"time,omitempty"`
}

// Summary describes a parsed file for reporting.
type Summary struct {
	Points         int
	Tracks         int
	Segments       int
	Duration       time.Duration
	DistanceMeters float64
}

// OrderStats counts how successive timestamped points are ordered in time.
type OrderStats struct {
	Timestamped int `json:"timestamped"`
	Forward     int `json:"forward"`
	Equal       int `json:"equal"`
	Backward    int `json:"backward"`
}

// Chronological reports whether no timestamped point goes back in time.
func (o OrderStats) Chronological() bool { return o.Backward == 0 }
