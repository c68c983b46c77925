package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/homecage/reachscope/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "extract":
		handleExtract(args)
	case "calibrate":
		handleCalibrate(args)
	case "metrics":
		handleMetrics(args)
	case "label":
		handleLabel(args)
	case "runs":
		handleRuns(args)
	case "serve":
		handleServe(args)
	case "migrate":
		handleMigrate(args)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`reachctl - reach event extraction for the home-cage pellet rig

Usage: reachctl <command> [options]

Commands:
  extract    Segment a DeepLabCut CSV into reach events and write the record
  calibrate  Build the 3D reconstruction calibration from a markup file
  metrics    Compute per-reach kinematics from a (scored) reach record
  label      Set the human score of a stored event
  runs       List stored extraction runs and their events
  serve      Serve stored runs as HTML reports, with DB debug routes
  migrate    Manage the event store schema
  version    Show reachctl version
  help       Show this help message

Examples:
  reachctl extract -hand RIGHT -db reach.db -plots plots/ session3DLC.csv
  reachctl calibrate -o config/3D_reconstruction_calibration.txt markup.json
  reachctl metrics -fps 40 session3_reaches_scored.txt
  reachctl label -db reach.db 5b0c...e1 2
  reachctl serve -db reach.db -listen :8080

Run 'reachctl <command> -h' for command flags.`)
}
