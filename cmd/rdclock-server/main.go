package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aknopov/fancylogger"
	"github.com/aknopov/rdclock"
)

const (
	Port = 8080
)

var (
	logger = fancylogger.NewLogger(os.Stderr, fancylogger.LiteFg)
)

func main() {
	port := flag.Int("port", Port, "listening port")
	cfgPath := flag.String("config", "", "YAML file with calibration settings")
	verbose := flag.Bool("v", false, "log probing and calibration details")
	flag.Parse()

	cfg := rdclock.DefaultConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = rdclock.LoadConfig(*cfgPath)
		assertNoErr(err)
	}
	if *verbose {
		rdclock.SetLogOutput(os.Stderr)
	}

	facility := rdclock.ProbeAndCalibrate(rdclock.WithConfig(cfg))
	logger.Info().Str("counter", facility.Entries()[0].Implementation).Float64("ticks/us", facility.Scale()).Msg("Facility armed")

	engine, err := newEngine(facility)
	assertNoErr(err)
	logger.Info().Msgf("-- Starting server on port %d...", *port)
	assertNoErr(engine.Run(fmt.Sprintf(":%d", *port)))
}

func assertNoErr(err error) {
	if err != nil {
		logger.Error().Msg(err.Error())
		os.Exit(1)
	}
}
