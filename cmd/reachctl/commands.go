package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/db"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
	"github.com/homecage/reachscope/internal/reach/record"
)

const defaultDBPath = "reach.db"

func handleCalibrate(args []string) {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	out := fs.String("o", calibration.DefaultPath, "Calibration file to write")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reachctl calibrate [-o file] <markup.json>")
		os.Exit(1)
	}
	p, err := runCalibrate(fs.Arg(0), *out)
	if err != nil {
		log.Fatalf("calibrate failed: %v", err)
	}
	log.Printf("wrote %s (boundaries x=%g, x=%g)", *out, p.LeftBoundaryX, p.RightBoundaryX)
}

func runCalibrate(markupPath, outPath string) (calibration.Profile, error) {
	m, err := calibration.LoadMeasurements(markupPath)
	if err != nil {
		return calibration.Profile{}, err
	}
	p, err := calibration.Build(m)
	if err != nil {
		return calibration.Profile{}, err
	}
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return calibration.Profile{}, err
		}
	}
	return p, calibration.Save(outPath, p)
}

func handleMetrics(args []string) {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	out := fs.String("o", "", "Metrics CSV output (default <record>_analysed.csv)")
	fps := fs.Float64("fps", l6metrics.DefaultFrameRateHz, "Camera frame rate in Hz")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reachctl metrics [-o file] [-fps hz] <reaches.txt>")
		os.Exit(1)
	}
	outPath := *out
	if outPath == "" {
		outPath = defaultMetricsPath(fs.Arg(0))
	}
	s, err := runMetrics(fs.Arg(0), outPath, *fps)
	if err != nil {
		log.Fatalf("metrics failed: %v", err)
	}
	log.Printf("wrote %s: %d measurable events", outPath, s.Events)
	if s.Events > 0 {
		log.Printf("fastest step %.1f mm/s (event %d), slowest %.1f mm/s (event %d)",
			s.MaxSpeed, s.MaxSpeedEvent, s.MinSpeed, s.MinSpeedEvent)
	}
}

// defaultMetricsPath maps session_reaches_scored.txt to session_analysed.csv.
func defaultMetricsPath(recordPath string) string {
	base := strings.TrimSuffix(recordPath, filepath.Ext(recordPath))
	base = strings.TrimSuffix(base, "_reaches_scored")
	base = strings.TrimSuffix(base, "_reaches")
	return base + "_analysed.csv"
}

func runMetrics(recordPath, outPath string, fps float64) (l6metrics.Summary, error) {
	events, err := record.Load(recordPath)
	if err != nil {
		return l6metrics.Summary{}, err
	}
	ms := make([]l6metrics.Metrics, len(events))
	for i, ev := range events {
		ev.Metrics = l6metrics.Compute(ev.Trajectory, fps)
		ms[i] = ev.Metrics
	}

	f, err := os.Create(outPath)
	if err != nil {
		return l6metrics.Summary{}, err
	}
	if err := record.WriteMetrics(f, events); err != nil {
		f.Close()
		return l6metrics.Summary{}, err
	}
	if err := f.Close(); err != nil {
		return l6metrics.Summary{}, err
	}
	return l6metrics.Summarize(ms), nil
}

func handleLabel(args []string) {
	fs := flag.NewFlagSet("label", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite event store")
	fs.Parse(args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: reachctl label [-db file] <event-id> <label>")
		os.Exit(1)
	}
	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.UpdateLabel(fs.Arg(0), fs.Arg(1)); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Fatalf("no event %s in %s", fs.Arg(0), *dbPath)
		}
		log.Fatalf("label failed: %v", err)
	}
	log.Printf("event %s labelled %q", fs.Arg(0), strings.TrimSpace(fs.Arg(1)))
}

func handleRuns(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite event store")
	limit := fs.Int("n", 20, "Number of runs to list (0 for all)")
	fs.Parse(args)

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if fs.NArg() == 1 {
		err = listEvents(os.Stdout, store, fs.Arg(0))
	} else {
		err = listRuns(os.Stdout, store, *limit)
	}
	if err != nil {
		log.Fatalf("runs failed: %v", err)
	}
}

func listRuns(w io.Writer, store *db.DB, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSOURCE\tHAND\tFRAMES\tEVENTS\tTRUNCATED")
	for _, r := range runs {
		truncated := "-"
		if r.Truncated != nil {
			truncated = r.Truncated.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%d\t%s\n", r.RunID, r.Source, r.Hand, r.Frames, r.EventCount, truncated)
	}
	return tw.Flush()
}

func listEvents(w io.Writer, store *db.DB, runID string) error {
	if _, err := store.GetRun(runID); err != nil {
		return err
	}
	events, err := store.Events(runID, false)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tSPAN\tLABEL\tMAX SPEED\tREACH FRAME")
	for _, ev := range events {
		speed, reachFrame := "-", "-"
		if ev.Metrics.Valid {
			speed = fmt.Sprintf("%.1f", ev.Metrics.MaxSpeed)
			reachFrame = fmt.Sprint(ev.Metrics.ReachFrame)
		}
		fmt.Fprintf(tw, "%s\t%v\t%s\t%s\t%s\n", ev.ID, ev.Span, ev.Label, speed, reachFrame)
	}
	return tw.Flush()
}

func handleMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite event store")
	dev := fs.Bool("dev", false, "Read migrations from "+db.DevMigrationsDir)
	fs.Parse(args)

	db.DevMode = *dev
	db.RunMigrateCommand(fs.Args(), *dbPath)
}
