//go:build amd64

// Package tickcount provides the counter readers a calibrated clock can be built on:
// the CPU time-stamp counter read in two serialized flavours and the operating system
// monotonic clock used as the reference and as the fallback.
package tickcount

import "math"

const (
	ovhdCnt = 10000
)

// Counter is a source of 64-bit tick values. Ticks must not decrease under normal
// operation, must be cheap to read and safe for concurrent use without locking.
type Counter interface {
	Ticks() uint64
	Name() string
}

// Adapter for plain functions, mostly simulations in tests
type CounterFunc func() uint64

func (f CounterFunc) Ticks() uint64 {
	return f()
}

func (f CounterFunc) Name() string {
	return "func"
}

// RDTSCP reads the time-stamp counter with the self-serializing RDTSCP instruction.
type RDTSCP struct{}

func (RDTSCP) Ticks() uint64 {
	return readTSCP()
}

func (RDTSCP) Name() string {
	return "rdtscp"
}

// SerializedRDTSC reads the time-stamp counter with RDTSC fenced by CPUID on both sides,
// so that out-of-order execution can't move work into or out of the measured window.
type SerializedRDTSC struct{}

func (SerializedRDTSC) Ticks() uint64 {
	return readTSCSerialized()
}

func (SerializedRDTSC) Name() string {
	return "rdtsc"
}

// Executes CPUID for the given leaf and sub-leaf.
func CPUID(leaf, subLeaf uint32) (eax, ebx, ecx, edx uint32) {
	return cpuid(leaf, subLeaf)
}

//go:noescape
func cpuid(eaxArg, ecxArg uint32) (eax, ebx, ecx, edx uint32)

//go:noinline
func readTSCP() uint64

//go:noinline
func readTSCSerialized() uint64

// Minimal cost of two back-to-back reads of the counter, in the counter's ticks.
// See https://community.intel.com/t5/Intel-ISA-Extensions/Measure-the-execution-time-using-RDTSC/td-p/1365538
func Overhead(c Counter) uint64 {
	ovhd := uint64(math.MaxUint64)

	for i := 0; i < ovhdCnt; i++ {
		cnt0 := c.Ticks()
		cnt1 := c.Ticks()
		if cnt1 < cnt0 {
			continue
		}
		if delta := cnt1 - cnt0; delta < ovhd {
			ovhd = delta
		}
	}

	if ovhd == math.MaxUint64 {
		return 0
	}
	return ovhd
}
