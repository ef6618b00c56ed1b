package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aknopov/rdclock"
	"github.com/aknopov/rdclock/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCoverage(t *testing.T) {
	assertT := assert.New(t)

	allFormats := make([]OutFormat, 0)
	for f := formatLast; f >= formatFirst; f-- {
		allFormats = append(allFormats, f)
	}

	namedFormats := make([]OutFormat, 0)
	for f := range nameMap {
		namedFormats = append(namedFormats, f)
	}
	assertT.ElementsMatch(allFormats, namedFormats)

	convertFormats := make([]OutFormat, 0)
	for _, f := range convertMap {
		convertFormats = append(convertFormats, f)
	}
	assertT.ElementsMatch(allFormats, convertFormats)
}

func TestParseFormat(t *testing.T) {
	assertT := assert.New(t)

	var format OutFormat
	assertT.NoError(parseFormat("json", &format))
	assertT.Equal(JSON, format)
	assertT.NoError(parseFormat(" YAML", &format))
	assertT.Equal(YAML, format)
	assertT.Error(parseFormat("xml", &format))
	assertT.Equal(YAML, format)
}

func TestParseParams(t *testing.T) {
	assertT := assert.New(t)

	testCases := []struct {
		name       string
		args       []string
		expParams  Params
		shouldFail bool
	}{
		{
			name:      "Defaults",
			args:      []string{"test"},
			expParams: Params{},
		},
		{
			name:      "All",
			args:      []string{"test", "-config=cfg.yaml", "-source=os", "-format=yaml", "-bench=10", "-v"},
			expParams: Params{ConfigPath: "cfg.yaml", Source: "os", Format: YAML, BenchRuns: 10, Verbose: true},
		},
		{
			name:       "Wrong format",
			args:       []string{"test", "-format=xml"},
			shouldFail: true,
		},
		{
			name:       "Negative runs",
			args:       []string{"test", "-bench=-1"},
			shouldFail: true,
		},
		{
			name:       "Extra args",
			args:       []string{"test", "foo"},
			shouldFail: true,
		},
		{
			name:       "Wrong args",
			args:       []string{"test", "-foo"},
			shouldFail: true,
		},
	}

	for _, tc := range testCases {
		params, err := ParseParams(tc.args, func() {})

		if tc.shouldFail {
			assertT.Error(err, "In test", tc.name)
			continue
		}

		assertT.NoError(err, "In test", tc.name)
		assertT.Equal(tc.expParams, *params, "In test", tc.name)
	}
}

func TestLoadConfig(t *testing.T) {
	assertT := assert.New(t)

	cfg, err := LoadConfig(&Params{})
	assertT.NoError(err)
	assertT.Equal(rdclock.DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fallback_scale: 999\nsource: os\n"), 0o600))

	cfg, err = LoadConfig(&Params{ConfigPath: path})
	assertT.NoError(err)
	assertT.Equal(999.0, cfg.FallbackScale)
	assertT.Equal(probe.SourceOS, cfg.Source)

	cfg, err = LoadConfig(&Params{ConfigPath: path, Source: "cpuid"})
	assertT.NoError(err)
	assertT.Equal(probe.SourceCPUID, cfg.Source)

	_, err = LoadConfig(&Params{Source: "bios"})
	assertT.ErrorIs(err, probe.ErrUnknownSource)

	_, err = LoadConfig(&Params{ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
	assertT.ErrorIs(err, os.ErrNotExist)
}
