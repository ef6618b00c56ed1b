package main

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aknopov/rdclock"
	"github.com/aknopov/rdclock/probe"
)

type OutFormat int

const (
	Text OutFormat = iota
	JSON
	YAML

	formatFirst = Text
	formatLast  = YAML
)

var (
	convertMap = map[string]OutFormat{
		"text": Text,
		"json": JSON,
		"yaml": YAML,
	}

	nameMap = map[OutFormat]string{
		Text: "text",
		JSON: "json",
		YAML: "yaml",
	}
)

// Command line parameters
type Params struct {
	ConfigPath string
	Source     string
	Format     OutFormat
	BenchRuns  int
	Verbose    bool
}

func parseFormat(flagValue string, format *OutFormat) error {
	if f, ok := convertMap[strings.ToLower(strings.TrimSpace(flagValue))]; ok {
		*format = f
		return nil
	}
	return fmt.Errorf("unknown format %q", flagValue)
}

// Parses commandline; returns program parameters
func ParseParams(args []string, usage func()) (*Params, error) {
	progName := filepath.Base(args[0])
	flagSet := flag.NewFlagSet(progName, flag.ContinueOnError)
	flagSet.Usage = usage

	var params Params
	flagSet.StringVar(&params.ConfigPath, "config", "", "")
	flagSet.StringVar(&params.Source, "source", "", "")
	flagSet.Func("format", "", func(f string) error { return parseFormat(f, &params.Format) })
	flagSet.IntVar(&params.BenchRuns, "bench", 0, "")
	flagSet.BoolVar(&params.Verbose, "v", false, "")

	err := flagSet.Parse(args[1:])
	if err != nil {
		return nil, err
	}

	if len(flagSet.Args()) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	if params.BenchRuns < 0 {
		return nil, errors.New("number of benchmark runs can't be negative")
	}

	return &params, nil
}

// Calibration settings from the config file (if any) with the source override applied
func LoadConfig(params *Params) (rdclock.Config, error) {
	cfg := rdclock.DefaultConfig()
	if params.ConfigPath != "" {
		var err error
		if cfg, err = rdclock.LoadConfig(params.ConfigPath); err != nil {
			return cfg, err
		}
	}

	if params.Source != "" {
		if _, err := probe.SourceByName(params.Source); err != nil {
			return cfg, err
		}
		cfg.Source = params.Source
	}
	return cfg, nil
}
