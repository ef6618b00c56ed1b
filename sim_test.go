package rdclock

import (
	"time"

	"github.com/aknopov/rdclock/probe"
	"github.com/aknopov/rdclock/tickcount"
	"github.com/stretchr/testify/mock"
)

// Simulated reference clock and counter sharing one virtual timeline.
// Sleeping advances the time instantly.
type simClock struct {
	now    int64   // ns
	ratio  float64 // ticks per microsecond
	base   uint64
	jitter uint64
	reads  uint64
}

func newSimClock(ratio float64) *simClock {
	return &simClock{ratio: ratio, base: 1 << 40}
}

func (s *simClock) Nanotime() int64 {
	return s.now
}

func (s *simClock) Sleep(d time.Duration) {
	s.now += int64(d)
}

func (s *simClock) Ticks() uint64 {
	s.reads++
	ticks := s.base + uint64(float64(s.now)*s.ratio/1e3)
	if s.jitter > 0 {
		ticks += s.jitter * ((s.reads*s.reads*7919 + s.reads*31) % 101)
	}
	return ticks
}

func (s *simClock) Name() string {
	return "simulated"
}

// Identity source mock
type MockSource struct {
	mock.Mock
}

func NewMockSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSource {
	m := &MockSource{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSource) Identify() (probe.Identity, error) {
	ret := m.Called()
	return ret.Get(0).(probe.Identity), ret.Error(1)
}

func counterOf(f func() uint64) tickcount.CounterFunc {
	return tickcount.CounterFunc(f)
}
