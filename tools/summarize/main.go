// Package main prints summaries of JSON run reports.
//
// Given a second report with -baseline, the wall time of every call present
// in both reports is compared.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/skylenet/tafelrunde/report"
)

var (
	reportFile   = flag.String("report", "", "Report file to summarize")
	reportDir    = flag.String("dir", "", "Directory of report files to summarize")
	baselineFile = flag.String("baseline", "", "Report to compare wall times against")
	failures     = flag.Bool("failures", false, "Print the traceback of failed calls")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	paths, err := reportPaths(*reportFile, *reportDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to find reports")
	}

	var baseline *report.Document
	if *baselineFile != "" {
		baseline, err = report.ReadFile(*baselineFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to load baseline")
		}
	}

	for _, path := range paths {
		doc, err := report.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Warn("Skipping unreadable report")
			continue
		}
		log.WithFields(logrus.Fields{
			"path":  path,
			"runID": doc.RunID,
		}).Debug("Loaded report")

		summarize(os.Stdout, doc, *failures)
		if baseline != nil {
			compare(os.Stdout, baseline, doc)
		}
	}
}

func reportPaths(file, dir string) ([]string, error) {
	switch {
	case file != "":
		return []string{file}, nil
	case dir != "":
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
		return paths, nil
	default:
		return nil, fmt.Errorf("either -report or -dir is required")
	}
}

func summarize(w io.Writer, doc *report.Document, withFailures bool) {
	fmt.Fprintf(w, "Suite %s (version %s), run %s at %s\n", doc.Suite, doc.Version, doc.RunID, doc.Created.Format("2006-01-02 15:04:05"))
	for _, b := range doc.Benchmarks {
		fmt.Fprintf(w, "\n%s\n%s\n", b.Name, strings.Repeat("-", len(b.Name)))
		if b.WarmupExecuted {
			fmt.Fprintf(w, "warmup: %.5f s\n", b.WarmupDuration.Seconds())
		}
		if b.Summary != nil {
			fmt.Fprint(w, b.Summary.ToDetails())
		}
		if !withFailures {
			continue
		}
		for _, call := range b.Calls {
			if f := call.Result.Failure; f != nil {
				fmt.Fprintf(w, "\n%s: %s: %s\n%s\n", call.ID, f.TypeName, f.Message, f.Traceback)
			}
		}
	}
}

func compare(w io.Writer, baseline, doc *report.Document) {
	fmt.Fprintf(w, "\nCompared to run %s\n", baseline.RunID)
	for _, b := range doc.Benchmarks {
		base, ok := baseline.Benchmark(b.Name)
		if !ok {
			continue
		}
		before := make(map[string]*report.CallReport, len(base.Calls))
		for _, call := range base.Calls {
			before[call.ID] = call
		}
		for _, call := range b.Calls {
			prev, ok := before[call.ID]
			if !ok || prev.Result.WallTime == 0 || !call.Result.IsSuccess() || !prev.Result.IsSuccess() {
				continue
			}
			change := 100 * (call.Result.WallTime.Seconds() - prev.Result.WallTime.Seconds()) / prev.Result.WallTime.Seconds()
			fmt.Fprintf(w, "  %-40s %12v -> %12v (%+.1f%%)\n", call.ID, prev.Result.WallTime, call.Result.WallTime, change)
		}
	}
}
