// cdcconsolidate reads decoded row-based binary log events for one
// target table from standard input, reduces them to a minimal per-day
// effect set, and applies that effect set to a per-day columnar
// dataset on disk.
//
// The reader goroutine scans stdin and emits one Event per completed
// block on a channel. The driver folds every event into a Collapser,
// then — once the stream is exhausted — hands each touched day to a
// bounded pool of dayfile.Writer workers, one task per day, so the
// independent per-day files can be rewritten in parallel.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/cdcconsolidate/config"
	"github.com/rcowham/cdcconsolidate/internal/calendar"
	"github.com/rcowham/cdcconsolidate/internal/collapse"
	"github.com/rcowham/cdcconsolidate/internal/dayfile"
	"github.com/rcowham/cdcconsolidate/internal/reader"
	"github.com/rcowham/cdcconsolidate/internal/report"
)

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"Config file for cdcconsolidate.",
		).Default("cdcconsolidate.yaml").Short('c').String()
		baseDir = kingpin.Flag(
			"base-dir",
			"Base directory holding per-day columnar files (overrides config).",
		).Short('b').String()
		table = kingpin.Flag(
			"table",
			"Qualified database.table to extract events for (overrides config).",
		).Short('t').String()
		ext = kingpin.Flag(
			"ext",
			"File extension for day files (overrides config).",
		).String()
		dryrun = kingpin.Flag(
			"dryrun",
			"Parse and collapse but don't write any day files.",
		).Bool()
		graphFile = kingpin.Flag(
			"graphfile",
			"Graphviz dot file summarizing days touched and their row counts.",
		).String()
		cpuProfile = kingpin.Flag(
			"profile",
			"Enable CPU profiling for the duration of the run.",
		).Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate)
	kingpin.CommandLine.Help = "Consolidates decoded binlog row events for one table into per-day columnar files.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		logger.Errorf("error loading config file: %v", err)
		os.Exit(2)
	}
	if *baseDir != "" {
		cfg.BaseDir = *baseDir
	}
	if *table != "" {
		cfg.Table = *table
	}
	if *ext != "" {
		cfg.Ext = *ext
	}
	if cfg.BaseDir == "" || cfg.Table == "" {
		fmt.Fprintln(os.Stderr, "cdcconsolidate: --base-dir and --table are required")
		os.Exit(2)
	}

	startTime := time.Now()
	logger.Infof("starting cdcconsolidate: table=%s base=%s", cfg.Table, cfg.BaseDir)

	rep := report.New(os.Stdout)
	rep.WriteHeader(cfg.Table, cfg.BaseDir)

	code := run(logger, cfg, rep, os.Stdin, *dryrun, *graphFile, startTime)
	rep.Close()
	os.Exit(code)
}

// run drives the full pipeline for one invocation and returns the
// process exit code: 0 on success, 1 on a fatal parse or write error.
// A bad invocation (exit code 2) is rejected in main before run is
// called.
func run(logger *logrus.Logger, cfg *config.Config, rep *report.Report, in io.Reader, dryrun bool, graphFile string, startTime time.Time) int {
	rd := reader.New(logger, cfg.Qualified())
	events, errc, stats := rd.Run(in)

	c := collapse.New()
	for ev := range events {
		c.Apply(ev)
	}
	if err := <-errc; err != nil {
		fmt.Fprintf(os.Stderr, "cdcconsolidate: %v\n", err)
		return 1
	}
	logger.Infof("reader: blocks seen=%d emitted=%d dropped=%d", stats.BlocksSeen, stats.BlocksEmitted, stats.BlocksDropped)

	days := c.Days()
	if dryrun {
		logger.Infof("dryrun: %d day(s) would be touched", len(days))
		rep.WriteTotal(time.Since(startTime), len(days))
		return 0
	}

	w := dayfile.New(logger, cfg.BaseDir, cfg.Ext)
	pondSize := runtime.NumCPU()
	if pondSize > len(days) && len(days) > 0 {
		pondSize = len(days)
	}
	if pondSize < 1 {
		pondSize = 1
	}
	pool := pond.New(pondSize, 0, pond.MinWorkers(1))

	var (
		mu      sync.Mutex
		failure error
		tree    = calendar.NewTree()
	)
	for _, day := range days {
		day := day
		inserts, updates, deletes := c.Effects(day)
		pool.Submit(func() {
			res, err := w.Apply(day, inserts, updates, deletes)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if failure == nil {
					failure = err
				}
				return
			}
			switch {
			case res.Removed:
				rep.WriteRemoved(res.Path)
			case res.Changed:
				rep.WriteUpdated(res.Path, res.Rows)
				tree.AddDay(day, res.Rows)
			}
		})
	}
	pool.StopAndWait()

	if failure != nil {
		fmt.Fprintf(os.Stderr, "cdcconsolidate: %v\n", failure)
		return 1
	}

	rep.WriteTotal(time.Since(startTime), len(days))

	if graphFile != "" {
		if err := writeGraph(graphFile, tree); err != nil {
			logger.Errorf("failed to write graph file: %v", err)
		}
	}
	return 0
}
