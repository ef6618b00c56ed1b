package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aknopov/rdclock"
	"github.com/aknopov/rdclock/bench"
	"github.com/aknopov/rdclock/tickcount"
	"gopkg.in/yaml.v3"
)

const (
	readsPerRun = 1000
)

// Prints facility diagnostics in the requested format
func PrintReport(sink io.Writer, facility *rdclock.Facility, format OutFormat) error {
	snap := facility.Snapshot()

	switch format {
	case JSON:
		enc := json.NewEncoder(sink)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case YAML:
		enc := yaml.NewEncoder(sink)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(snap)
	}

	_, err := fmt.Fprintf(sink, "%s\nstate: %s\ncpu: %s %s (%s)\nscale: %f ticks/us\noverhead: %d ticks\n",
		facility.Describe(), snap.State, snap.Identity.Vendor, snap.Identity.Model, snap.Identity.Source, snap.Scale, snap.OverheadTicks)
	return err
}

// Compares read cost of the active counter with the reference clock
//
//nolint:errcheck
func PrintBench(sink io.Writer, facility *rdclock.Facility, runs int) error {
	counters := []tickcount.Counter{facility.Counter()}
	names := []string{facility.Entries()[0].Implementation}
	if _, isRef := facility.Counter().(tickcount.MonotonicClock); !isRef {
		counters = append(counters, tickcount.MonotonicClock{})
		names = append(names, rdclock.FallbackDescription)
	}

	stats, err := bench.CounterCost(facility, counters, readsPerRun, runs, 1)
	if err != nil {
		return err
	}

	fmt.Fprintf(sink, "%-28s %10s %10s %10s %10s\n", "Counter", "avg ns", "min ns", "med ns", "stdev ns")
	for i, st := range stats {
		fmt.Fprintf(sink, "%-28s %10.2f %10.2f %10.2f %10.2f\n", names[i],
			perRead(st.Avg), perRead(st.Min), perRead(st.Med), perRead(st.StdDev))
	}

	if len(stats) == 2 {
		pVals, err := bench.CalcPvals(stats[1:], stats[:1])
		if err != nil {
			logger.Info().Str("error", err.Error()).Msg("Can't compare counters")
			return nil
		}
		fmt.Fprintf(sink, "P(%s is not slower) = %.4f\n", rdclock.FallbackDescription, pVals[0])
	}
	return nil
}

// Nanoseconds per counter read from microseconds per run
func perRead(us float64) float64 {
	return us * 1e3 / readsPerRun
}
