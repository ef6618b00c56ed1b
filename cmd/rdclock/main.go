package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/aknopov/fancylogger"
	"github.com/aknopov/rdclock"
)

var (
	logger = fancylogger.NewLogger(os.Stderr, fancylogger.LiteFg)
	// No data struct
	ND = struct{}{}
)

func main() {
	params, err := ParseParams(os.Args, func() { usage(os.Stderr) })
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
			usage(os.Stderr)
		}
		os.Exit(1)
	}

	cfg := assertNoErr(LoadConfig(params))
	if params.Verbose {
		rdclock.SetLogOutput(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Debug().Msg("Calibrating...")
	facility := rdclock.ProbeAndCalibrateContext(ctx, rdclock.WithConfig(cfg))

	assertNoErr(ND, PrintReport(os.Stdout, facility, params.Format))
	if params.BenchRuns > 0 {
		assertNoErr(ND, PrintBench(os.Stdout, facility, params.BenchRuns))
	}
}

func assertNoErr[T any](val T, err error) T {
	if err != nil {
		logger.Error().Msg(err.Error())
		os.Exit(1)
	}
	return val
}

func usage(sink *os.File) {
	fmt.Fprintln(sink, `Cycle counter calibration
Usage: rdclock -config=... -source=... -format=... -bench=... -v
-config - YAML file with calibration settings
-source - CPU identity source: cpuid (default) or os
-format - output format: text (default), json or yaml
-bench - number of runs comparing counter read cost (default 0 - no comparison)
-v - log probing and calibration details`)
}
