package probe

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aknopov/rdclock/tickcount"
	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/cpu"
)

// Provider of the CPU identity
type Source interface {
	Identify() (Identity, error)
}

const (
	SourceCPUID = "cpuid"
	SourceOS    = "os"
)

var (
	ErrUnknownSource = errors.New("unknown identity source")
	ErrNoCPUInfo     = errors.New("operating system reported no processors")
)

// Function substitutions for unit tests
var (
	cpuFeaturesF = cpuFeatures
	rawCPUIDF    = tickcount.CPUID
	cpuStatsF    = cpu.Info
)

// Returns identity source by its configuration name
func SourceByName(name string) (Source, error) {
	switch name {
	case SourceCPUID, "":
		return CPUIDSource{}, nil
	case SourceOS:
		return OSSource{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}

// Asks the processor directly with CPUID.
type CPUIDSource struct{}

func (CPUIDSource) Identify() (Identity, error) {
	vendor, brand, rdtscp := cpuFeaturesF()

	id := Identity{
		Vendor: vendor,
		Model:  brand,
		RDTSCP: rdtscp,
		Source: SourceCPUID,
	}

	maxLeaf, _, _, _ := rawCPUIDF(0, 0)
	if maxLeaf >= 1 {
		_, _, _, edx := rawCPUIDF(1, 0)
		id.TSC = edx&(1<<4) != 0
	}

	maxExt, _, _, _ := rawCPUIDF(0x80000000, 0)
	if maxExt >= 0x80000007 {
		_, _, _, edx := rawCPUIDF(0x80000007, 0)
		id.InvariantTSC = edx&(1<<8) != 0
	}

	return id, nil
}

func cpuFeatures() (vendor, brand string, rdtscp bool) {
	return cpuid.CPU.VendorString, cpuid.CPU.BrandName, cpuid.CPU.Supports(cpuid.RDTSCP)
}

// Relies on what the operating system reports (/proc/cpuinfo on Linux).
type OSSource struct{}

func (OSSource) Identify() (Identity, error) {
	stats, err := cpuStatsF()
	if err != nil {
		return Identity{}, fmt.Errorf("can't read CPU info: %w", err)
	}
	if len(stats) == 0 {
		return Identity{}, ErrNoCPUInfo
	}

	first := stats[0]
	return Identity{
		Vendor:       first.VendorID,
		Model:        first.ModelName,
		TSC:          slices.Contains(first.Flags, "tsc"),
		RDTSCP:       slices.Contains(first.Flags, "rdtscp"),
		InvariantTSC: slices.Contains(first.Flags, "constant_tsc") && slices.Contains(first.Flags, "nonstop_tsc"),
		Source:       SourceOS,
	}, nil
}

// Fixed identity - simulations and tests
type Static Identity

func (s Static) Identify() (Identity, error) {
	return Identity(s), nil
}
