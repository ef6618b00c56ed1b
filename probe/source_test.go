package probe

import (
	"errors"
	"testing"

	"github.com/aknopov/rdclock/mocker"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTest = errors.New("test error")
)

func mockCPUID(leaf, _ uint32) (eax, ebx, ecx, edx uint32) {
	switch leaf {
	case 0:
		return 0x16, 0, 0, 0
	case 1:
		return 0, 0, 0, 1 << 4
	case 0x80000000:
		return 0x80000008, 0, 0, 0
	case 0x80000007:
		return 0, 0, 0, 1 << 8
	}
	return 0, 0, 0, 0
}

func TestCPUIDSource(t *testing.T) {
	assertT := assert.New(t)

	mocker.Swap(t, &cpuFeaturesF, func() (string, string, bool) { return PreferredVendor, "Xeon", true })
	mocker.Swap(t, &rawCPUIDF, mockCPUID)

	id, err := CPUIDSource{}.Identify()
	require.NoError(t, err)
	assertT.Equal(Identity{
		Vendor:       PreferredVendor,
		Model:        "Xeon",
		TSC:          true,
		RDTSCP:       true,
		InvariantTSC: true,
		Source:       SourceCPUID,
	}, id)
}

func TestCPUIDSourceOldCPU(t *testing.T) {
	assertT := assert.New(t)

	mocker.Swap(t, &cpuFeaturesF, func() (string, string, bool) { return "AuthenticAMD", "", false })
	mocker.Swap(t, &rawCPUIDF, func(leaf, _ uint32) (uint32, uint32, uint32, uint32) { return 0, 0, 0, 0xffffffff })

	id, err := CPUIDSource{}.Identify()
	require.NoError(t, err)
	assertT.Equal("AuthenticAMD", id.Vendor)
	assertT.False(id.TSC)
	assertT.False(id.RDTSCP)
	assertT.False(id.InvariantTSC)
}

func TestCPUIDSourceLive(t *testing.T) {
	assertT := assert.New(t)

	id, err := CPUIDSource{}.Identify()
	require.NoError(t, err)
	assertT.NotEmpty(id.Vendor)
	assertT.True(id.TSC)
}

func TestOSSource(t *testing.T) {
	assertT := assert.New(t)

	stats := []cpu.InfoStat{
		{VendorID: PreferredVendor, ModelName: "Core i7", Flags: []string{"fpu", "tsc", "rdtscp", "constant_tsc", "nonstop_tsc"}},
		{VendorID: "ignored"},
	}
	mocker.Swap(t, &cpuStatsF, func() ([]cpu.InfoStat, error) { return stats, nil })

	id, err := OSSource{}.Identify()
	require.NoError(t, err)
	assertT.Equal(Identity{
		Vendor:       PreferredVendor,
		Model:        "Core i7",
		TSC:          true,
		RDTSCP:       true,
		InvariantTSC: true,
		Source:       SourceOS,
	}, id)

	stats[0].Flags = []string{"tsc", "constant_tsc"}
	id, err = OSSource{}.Identify()
	require.NoError(t, err)
	assertT.True(id.TSC)
	assertT.False(id.RDTSCP)
	assertT.False(id.InvariantTSC)
}

func TestOSSourceErrors(t *testing.T) {
	assertT := assert.New(t)

	mocker.Swap(t, &cpuStatsF, func() ([]cpu.InfoStat, error) { return nil, errTest })
	_, err := OSSource{}.Identify()
	assertT.ErrorIs(err, errTest)

	cpuStatsF = func() ([]cpu.InfoStat, error) { return []cpu.InfoStat{}, nil }
	_, err = OSSource{}.Identify()
	assertT.ErrorIs(err, ErrNoCPUInfo)
}

func TestSourceByName(t *testing.T) {
	assertT := assert.New(t)

	src, err := SourceByName("cpuid")
	assertT.NoError(err)
	assertT.IsType(CPUIDSource{}, src)

	src, err = SourceByName("")
	assertT.NoError(err)
	assertT.IsType(CPUIDSource{}, src)

	src, err = SourceByName("os")
	assertT.NoError(err)
	assertT.IsType(OSSource{}, src)

	_, err = SourceByName("dmi")
	assertT.ErrorIs(err, ErrUnknownSource)
}

func TestStatic(t *testing.T) {
	assertT := assert.New(t)

	src := Static{Vendor: PreferredVendor, TSC: true}
	id, err := src.Identify()
	assertT.NoError(err)
	assertT.Equal(Identity{Vendor: PreferredVendor, TSC: true}, id)
}
