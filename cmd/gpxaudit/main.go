package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/planbiir/gpxaudit/internal/audit"
	"github.com/planbiir/gpxaudit/internal/config"
	"github.com/planbiir/gpxaudit/internal/density"
	"github.com/planbiir/gpxaudit/internal/export"
	"github.com/planbiir/gpxaudit/internal/gpx"
	"github.com/planbiir/gpxaudit/internal/logger"
	"github.com/planbiir/gpxaudit/internal/render"
	"github.com/planbiir/gpxaudit/internal/session"
)

const version = "gpxaudit v0.3.0 - GPS sampling auditor"

// options holds the command line; zero values defer to the config.
type options struct {
	inputFile  string
	seriesFile string
	configFile string
	outputDir  string
	formats    string
	bandwidth  float64
	gridSize   int
	statsJSON  bool
}

// series is one delta series handed to the density estimator.
type series struct {
	name   string
	label  string
	unit   string
	values []float64
}

func main() {
	var opt options
	flag.StringVar(&opt.inputFile, "i", "", "Input GPX file")
	flag.StringVar(&opt.seriesFile, "series", "", "Exported delta series JSON to estimate instead of a GPX file")
	flag.StringVar(&opt.configFile, "config", "", "Config file (yaml, json or toml)")
	flag.StringVar(&opt.outputDir, "o", "", "Output directory (default from config: gpxaudit-out)")
	flag.StringVar(&opt.formats, "format", "", "Comma separated output formats: json,png,html")
	flag.Float64Var(&opt.bandwidth, "bandwidth", 0, "Log-space KDE bandwidth (Silverman's rule if 0)")
	flag.IntVar(&opt.gridSize, "grid", 0, "Number of density curve samples (default from config: 200)")
	flag.BoolVar(&opt.statsJSON, "stats-json", false, "Print the audit result as JSON")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Usage = func() {
		fmt.Printf("gpxaudit - Audit GPS sampling in GPX tracks\n\n")
		fmt.Printf("usage: gpxaudit -i /path/to/file.gpx\n\n")
		fmt.Printf("examples:\n")
		fmt.Printf("  gpxaudit -i track.gpx\n")
		fmt.Printf("  gpxaudit -i \"My Activity.gpx\" -format json,png,html -o report\n")
		fmt.Printf("  gpxaudit -series report/time_deltas_ms.json -bandwidth 0.05\n\n")
		fmt.Printf("options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if opt.inputFile == "" && opt.seriesFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	conf, err := loadConfig(opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(conf.LogLevel)
	if err := run(context.Background(), opt, conf, log, os.Stdout); err != nil {
		log.Error("gpxaudit failed", logger.Err(err))
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the flags on top of it.
func loadConfig(opt options) (*config.Config, error) {
	var (
		conf *config.Config
		err  error
	)
	if opt.configFile != "" {
		conf, err = config.NewFromFile(filepath.Dir(opt.configFile), filepath.Base(opt.configFile))
	} else {
		conf, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	if opt.outputDir != "" {
		conf.Output.Dir = opt.outputDir
	}
	if opt.formats != "" {
		conf.Output.Formats = strings.Split(opt.formats, ",")
		for i, f := range conf.Output.Formats {
			conf.Output.Formats[i] = strings.ToLower(strings.TrimSpace(f))
		}
	}
	if opt.bandwidth != 0 {
		conf.Density.Bandwidth = opt.bandwidth
	}
	if opt.gridSize != 0 {
		conf.Density.GridSize = opt.gridSize
	}

	return conf, conf.Validate()
}

func run(ctx context.Context, opt options, conf *config.Config, log *logger.Logger, out io.Writer) error {
	if opt.seriesFile != "" {
		return runSeries(ctx, opt.seriesFile, conf, log, out)
	}
	return runGPX(ctx, opt, conf, log, out)
}

func runGPX(ctx context.Context, opt options, conf *config.Config, log *logger.Logger, out io.Writer) error {
	fmt.Fprintf(out, "📖 Reading GPX file: %s\n", opt.inputFile)
	gpxData, err := gpx.Parse(opt.inputFile)
	if err != nil {
		return fmt.Errorf("reading GPX file: %w", err)
	}

	points, err := gpxData.Points()
	if err != nil {
		return fmt.Errorf("converting points: %w", err)
	}
	if len(points) == 0 {
		fmt.Fprintf(out, "❌ No GPS points found in file\n")
		return nil
	}

	summary := gpxData.Stats()
	fmt.Fprintf(out, "📊 Track: %d points across %d tracks, %d segments\n",
		summary.Points, summary.Tracks, summary.Segments)
	log.Debug("parsed gpx", "points", summary.Points, "duration", summary.Duration,
		"distance_m", summary.DistanceMeters)

	order := gpx.CheckOrder(points)
	if !order.Chronological() {
		log.Warn("timestamps are not in chronological order",
			"equal", order.Equal, "backward", order.Backward)
	}

	res := audit.Audit(points)
	if !res.HasValidTimestamps {
		log.Warn("no valid timestamps, distance series is geometry-only")
	} else if !res.HasTimeProgression {
		log.Warn("timestamps never advance, no time-conditioned series")
	}

	if opt.statsJSON {
		jsonData, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling audit result: %w", err)
		}
		fmt.Fprintln(out, string(jsonData))
	} else {
		printAudit(out, res)
	}

	all := []series{
		{name: "time_deltas", label: "Time deltas", unit: "ms", values: res.TimeDeltasMs},
		{name: "distance_deltas", label: "Distance deltas (" + string(res.DistanceMode) + ")", unit: "m", values: res.DistanceDeltasMeters},
	}
	return estimateAndWrite(ctx, all, res.TimeDistancePairs, conf, log, out, func() ([]string, error) {
		return export.WriteAll(conf.Output.Dir, res)
	})
}

func runSeries(ctx context.Context, path string, conf *config.Config, log *logger.Logger, out io.Writer) error {
	fmt.Fprintf(out, "📖 Reading series: %s\n", path)
	values, err := export.ReadSeriesFile(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	unit := "m"
	if strings.HasSuffix(name, "_ms") {
		unit = "ms"
	}
	s := series{name: name, label: name, unit: unit, values: values}
	return estimateAndWrite(ctx, []series{s}, nil, conf, log, out, nil)
}

// estimateAndWrite runs the density estimator for every series concurrently,
// prints the peaks and writes the configured output formats.
func estimateAndWrite(ctx context.Context, all []series, pairs []audit.TimeDistancePair, conf *config.Config,
	log *logger.Logger, out io.Writer, writeJSON func() ([]string, error),
) error {
	results, err := estimate(ctx, all, conf)
	if err != nil {
		return err
	}
	for i, s := range all {
		printDensity(out, s, results[i])
	}

	if len(conf.Output.Formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(conf.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	var written []string
	if conf.Wants(config.FormatJSON) {
		if writeJSON != nil {
			paths, err := writeJSON()
			if err != nil {
				return fmt.Errorf("exporting series: %w", err)
			}
			written = append(written, paths...)
		}
		for i, s := range all {
			path := filepath.Join(conf.Output.Dir, "density_"+s.name+".json")
			if err := export.WriteDensityFile(path, s.label, s.unit, results[i]); err != nil {
				return fmt.Errorf("exporting density: %w", err)
			}
			written = append(written, path)
		}
	}

	if conf.Wants(config.FormatPNG) {
		for i, s := range all {
			if results[i].Empty() {
				log.Info("skipping empty chart", "series", s.name)
				continue
			}
			path := filepath.Join(conf.Output.Dir, s.name+".png")
			if err := render.PNG(path, s.label, s.unit, results[i]); err != nil {
				return err
			}
			written = append(written, path)
		}
	}

	if conf.Wants(config.FormatHTML) {
		path, err := writeHTML(all, pairs, conf)
		if err != nil {
			return err
		}
		written = append(written, path)
	}

	for _, p := range written {
		log.Debug("wrote file", "path", p)
	}
	fmt.Fprintf(out, "💾 Wrote %d files to %s\n", len(written), conf.Output.Dir)
	return nil
}

// estimate runs one estimator call per series. A configured bandwidth
// applies to every series, otherwise each gets its Silverman bandwidth.
func estimate(ctx context.Context, all []series, conf *config.Config) ([]density.Result, error) {
	results := make([]density.Result, len(all))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range all {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h := conf.Density.Bandwidth
			if h == 0 {
				h = density.SilvermanBandwidth(s.values)
			}
			res, err := density.Estimate(s.values, h, conf.Density.GridSize)
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeHTML(all []series, pairs []audit.TimeDistancePair, conf *config.Config) (string, error) {
	panels := make([]render.Panel, 0, len(all))
	for _, s := range all {
		sess, err := session.New(s.label, s.values, conf.Density.GridSize)
		if err != nil {
			return "", err
		}
		if sess.Result().Empty() {
			continue
		}
		panels = append(panels, render.Panel{
			Title:   s.label,
			Unit:    s.unit,
			Session: sess,
			Scales:  conf.Density.BandwidthScales,
		})
	}

	path := filepath.Join(conf.Output.Dir, "report.html")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	if err := render.HTML(file, panels, pairs); err != nil {
		_ = file.Close()
		return "", err
	}
	return path, file.Close()
}

func printAudit(out io.Writer, res audit.Result) {
	c := res.Counters
	fmt.Fprintf(out, "\n📊 Sampling Audit:\n")
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(out, "📍 Points: %d (%d timestamped, %d missing, %d unparseable)\n",
		c.TotalPoints, c.PointsWithTimestamp, c.PointsMissingTimestamp, c.PointsUnparseableTimestamp)
	fmt.Fprintf(out, "⏱️  Time deltas: %d kept, %d non-positive rejected\n",
		len(res.TimeDeltasMs), c.RejectedTimestampPairsDeltaLeqZero)
	if st := res.TimeDeltaStats; st != nil {
		fmt.Fprintf(out, "   • min %.0f ms, median %.0f ms, max %.0f ms\n", st.MinMs, st.MedianMs, st.MaxMs)
	}
	fmt.Fprintf(out, "📏 Distance deltas: %d kept (%s), %d invalid or zero rejected\n",
		len(res.DistanceDeltasMeters), res.DistanceMode, c.RejectedDistanceInvalidOrZero)
	fmt.Fprintf(out, "🔗 Time-distance pairs: %d of %d\n", len(res.TimeDistancePairs), c.JointPairsConsidered)
	if c.JointPairsConsidered > 0 {
		fmt.Fprintf(out, "   • missing timestamp: %d\n", c.JointRejectedMissingTimestamp)
		fmt.Fprintf(out, "   • dt <= 0: %d\n", c.JointRejectedDtLeqZero)
		fmt.Fprintf(out, "   • distance invalid: %d\n", c.JointRejectedDistanceInvalid)
	}
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
}

func printDensity(out io.Writer, s series, res density.Result) {
	if res.Empty() {
		fmt.Fprintf(out, "📉 %s: no positive values\n", s.label)
		return
	}
	fmt.Fprintf(out, "📈 %s: n=%d, h=%.4f, %d peaks\n", s.label, res.N, res.Bandwidth, len(res.Peaks))
	for _, p := range res.Peaks {
		fmt.Fprintf(out, "   • %.4g %s (density %.4g)\n", p.XLinear, s.unit, p.Y)
	}
}
