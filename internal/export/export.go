// Package export writes audit results in the JSON layout consumed by
// external analysis tools and reads single delta series back strictly.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/planbiir/gpxaudit/internal/audit"
	"github.com/planbiir/gpxaudit/internal/density"
	"github.com/planbiir/gpxaudit/internal/errs"
)

const (
	ErrNotArray      = errs.Error(`"deltas" must be an array`)
	ErrNonNumeric    = errs.Error("series element is not a number")
	ErrCountMismatch = errs.Error(`"count" does not match the number of deltas`)
)

// File names used by WriteAll.
const (
	TimeDeltasFile        = "time_deltas_ms.json"
	DistanceDeltasFile    = "distance_deltas_m.json"
	GeometryDeltasFile    = "distance_deltas_geometry_m.json"
	TimeConditionedFile   = "distance_deltas_time_m.json"
	TimeDistancePairsFile = "time_distance_pairs.json"
	AuditFile             = "audit.json"
)

// SeriesDoc is the exported form of a single delta series.
type SeriesDoc struct {
	Deltas []float64 `json:"deltas"`
	Count  int       `json:"count"`
}

// PairsDoc is the exported form of the joint time-distance series.
type PairsDoc struct {
	Pairs []audit.TimeDistancePair `json:"pairs"`
	Count int                      `json:"count"`
}

// NewSeriesDoc wraps values; a nil slice is exported as an empty array.
func NewSeriesDoc(values []float64) SeriesDoc {
	if values == nil {
		values = []float64{}
	}
	return SeriesDoc{Deltas: values, Count: len(values)}
}

// NewPairsDoc wraps pairs; a nil slice is exported as an empty array.
func NewPairsDoc(pairs []audit.TimeDistancePair) PairsDoc {
	if pairs == nil {
		pairs = []audit.TimeDistancePair{}
	}
	return PairsDoc{Pairs: pairs, Count: len(pairs)}
}

// WriteSeries writes values as a SeriesDoc.
func WriteSeries(w io.Writer, values []float64) error {
	return writeJSON(w, NewSeriesDoc(values))
}

// WritePairs writes pairs as a PairsDoc.
func WritePairs(w io.Writer, pairs []audit.TimeDistancePair) error {
	return writeJSON(w, NewPairsDoc(pairs))
}

// WriteResult writes the complete audit result.
func WriteResult(w io.Writer, res audit.Result) error {
	return writeJSON(w, res)
}

// DensityDoc is the exported form of one density estimate.
type DensityDoc struct {
	Label string `json:"label"`
	Unit  string `json:"unit"`
	density.Result
}

// WriteDensity writes res with its label and unit.
func WriteDensity(w io.Writer, label, unit string, res density.Result) error {
	return writeJSON(w, DensityDoc{Label: label, Unit: unit, Result: res})
}

// WriteDensityFile writes res to path with WriteDensity.
func WriteDensityFile(path, label, unit string, res density.Result) error {
	return writeFile(path, func(w io.Writer) error { return WriteDensity(w, label, unit, res) })
}

// WriteAll writes every series of res plus the full result into dir,
// creating it when needed. It returns the paths written.
func WriteAll(dir string, res audit.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TimeDeltasFile, func(w io.Writer) error { return WriteSeries(w, res.TimeDeltasMs) }},
		{DistanceDeltasFile, func(w io.Writer) error { return WriteSeries(w, res.DistanceDeltasMeters) }},
		{GeometryDeltasFile, func(w io.Writer) error { return WriteSeries(w, res.DistanceDeltasGeometryOnlyMeters) }},
		{TimeConditionedFile, func(w io.Writer) error { return WriteSeries(w, res.DistanceDeltasTimeConditionedMeters) }},
		{TimeDistancePairsFile, func(w io.Writer) error { return WritePairs(w, res.TimeDistancePairs) }},
		{AuditFile, func(w io.Writer) error { return WriteResult(w, res) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ReadSeries decodes a SeriesDoc. A "deltas" member that is not an array,
// or any element that is not a JSON number, fails with a validation error
// instead of being skipped. A present "count" must match the element count.
// Values are returned as written; positivity filtering is the consumer's job.
func ReadSeries(r io.Reader) ([]float64, error) {
	var doc struct {
		Deltas json.RawMessage `json:"deltas"`
		Count  *int            `json:"count"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode series: %w", err)
	}

	raw := bytes.TrimSpace(doc.Deltas)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errs.Invalid("export.ReadSeries", ErrNotArray)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, errs.Invalid("export.ReadSeries", fmt.Errorf("%w: %v", ErrNotArray, err))
	}

	values := make([]float64, len(elems))
	for i, elem := range elems {
		v, err := number(elem)
		if err != nil {
			return nil, errs.Invalid("export.ReadSeries", fmt.Errorf("%w: index %d: %s", ErrNonNumeric, i, elem))
		}
		values[i] = v
	}

	if doc.Count != nil && *doc.Count != len(values) {
		return nil, errs.Invalid("export.ReadSeries",
			fmt.Errorf("%w: count %d, %d deltas", ErrCountMismatch, *doc.Count, len(values)))
	}
	return values, nil
}

// ReadSeriesFile opens path and decodes it with ReadSeries.
func ReadSeriesFile(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return ReadSeries(file)
}

// number accepts only JSON numbers; null, strings and booleans are rejected.
func number(elem json.RawMessage) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(elem))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, ErrNonNumeric
	}
	return n.Float64()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return file.Close()
}
