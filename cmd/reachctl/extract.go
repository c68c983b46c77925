package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/config"
	"github.com/homecage/reachscope/internal/db"
	"github.com/homecage/reachscope/internal/monitoring"
	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l1landmarks"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/pipeline"
	"github.com/homecage/reachscope/internal/reach/record"
	"github.com/homecage/reachscope/internal/reach/report"
)

type extractOptions struct {
	CSVPath         string
	CalibrationPath string
	ConfigPath      string
	// Hand overrides the config's reaching_hand when set.
	Hand     string
	OutPath  string
	DBPath   string
	PlotDir  string
	HTMLPath string
}

type extractSummary struct {
	pipeline.Result
	OutPath string
	RunID   string
	Plots   int
}

func handleExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var o extractOptions
	fs.StringVar(&o.CalibrationPath, "calibration", calibration.DefaultPath, "3D reconstruction calibration file")
	fs.StringVar(&o.ConfigPath, "config", "", "Tuning config (.json or .toml); defaults when empty")
	fs.StringVar(&o.Hand, "hand", "", "Reaching hand, LEFT or RIGHT (overrides config)")
	fs.StringVar(&o.OutPath, "o", "", "Reach record output (default <csv>_reaches.txt)")
	fs.StringVar(&o.DBPath, "db", "", "Also store the run in this SQLite event store")
	fs.StringVar(&o.PlotDir, "plots", "", "Write one PNG per event into this directory")
	fs.StringVar(&o.HTMLPath, "html", "", "Write an HTML report to this file")
	quiet := fs.Bool("quiet", false, "Suppress progress logging")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reachctl extract [flags] <dlc.csv>")
		fs.Usage()
		os.Exit(1)
	}
	o.CSVPath = fs.Arg(0)
	if *quiet {
		monitoring.SetLogger(nil)
	}

	sum, err := runExtract(o)
	if err != nil {
		log.Fatalf("extract failed: %v", err)
	}
	log.Printf("wrote %d events to %s", sum.Events, sum.OutPath)
	if sum.RunID != "" {
		log.Printf("stored as run %s in %s", sum.RunID, o.DBPath)
	}
	if sum.Truncated != nil {
		log.Printf("event %v was still open at the end of the file and was dropped", *sum.Truncated)
	}
}

func defaultRecordPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + "_reaches.txt"
}

func loadTuning(path, hand string) (*config.TuningConfig, error) {
	tuning := config.DefaultTuningConfig()
	if path != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(path); err != nil {
			return nil, err
		}
	}
	if hand != "" {
		h, err := l4trajectory.ParseHand(hand)
		if err != nil {
			return nil, err
		}
		tuning = tuning.WithHand(h)
	}
	return tuning, nil
}

func runExtract(o extractOptions) (sum extractSummary, err error) {
	tuning, err := loadTuning(o.ConfigPath, o.Hand)
	if err != nil {
		return sum, err
	}
	cfg := tuning.PipelineConfig()

	table, err := l1landmarks.LoadCSV(o.CSVPath)
	if err != nil {
		return sum, err
	}
	profile, err := calibration.Load(o.CalibrationPath)
	if err != nil {
		return sum, err
	}

	sum.OutPath = o.OutPath
	if sum.OutPath == "" {
		sum.OutPath = defaultRecordPath(o.CSVPath)
	}
	out, err := record.Create(sum.OutPath)
	if err != nil {
		return sum, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	sinks := pipeline.MultiSink{out}

	var store *db.DB
	var run *db.Run
	if o.DBPath != "" {
		if store, err = db.NewDB(o.DBPath); err != nil {
			return sum, fmt.Errorf("open event store: %w", err)
		}
		defer store.Close()

		params, err := json.Marshal(tuning)
		if err != nil {
			return sum, err
		}
		run = &db.Run{Source: filepath.Base(o.CSVPath), Hand: cfg.Hand, ParamsJSON: params}
		if err := store.CreateRun(run); err != nil {
			return sum, fmt.Errorf("create run: %w", err)
		}
		sum.RunID = run.RunID
		sinks = append(sinks, store.EventSink(run.RunID))
	}

	var collected pipeline.Collector
	if o.PlotDir != "" || o.HTMLPath != "" {
		sinks = append(sinks, &collected)
	}

	res, err := pipeline.Run(table, profile, cfg, sinks)
	sum.Result = res
	if err != nil {
		return sum, err
	}
	if store != nil {
		if err := store.CompleteRun(run.RunID, res.Frames, res.Events, res.Truncated); err != nil {
			return sum, err
		}
	}

	if o.PlotDir != "" {
		if sum.Plots, err = report.PlotEvents(o.PlotDir, collected.Events); err != nil {
			return sum, err
		}
	}
	if o.HTMLPath != "" {
		if err := writeHTMLFile(o.HTMLPath, collected.Events, filepath.Base(o.CSVPath)); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func writeHTMLFile(path string, events []*reach.Event, title string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.WriteHTML(f, events, report.PageOptions{Title: title})
}
