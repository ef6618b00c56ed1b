// Package rdclock measures elapsed time with the cheapest trustworthy CPU cycle counter.
//
// ProbeAndCalibrate picks a time-stamp counter reader, calibrates it statistically against
// the monotonic system clock and returns a Facility that converts ticks to microseconds.
// When no counter qualifies or calibration fails, the facility falls back to the monotonic
// clock itself at a nominal 1000 ticks per microsecond.
//
// Calibration is done once. Frequency scaling, core migration or hardware changes after
// that are neither detected nor corrected.
package rdclock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aknopov/rdclock/probe"
	"github.com/aknopov/rdclock/tickcount"
)

type State int

const (
	Unprobed State = iota
	ProbedCandidate
	Calibrating
	ArmedHardware
	ArmedFallback

	stateFirst = Unprobed
	stateLast  = ArmedFallback
)

var (
	stateNames = map[State]string{
		Unprobed:        "unprobed",
		ProbedCandidate: "probed",
		Calibrating:     "calibrating",
		ArmedHardware:   "armed (hardware)",
		ArmedFallback:   "armed (fallback)",
	}
)

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Armed() bool {
	return s == ArmedHardware || s == ArmedFallback
}

const (
	// Name of the cycle counter facility
	ResourceRDTSC = "rdtsc"
	// Implementation description of the fallback counter
	FallbackDescription = "reference monotonic clock"
)

// Named resource record of the facility table
type Entry struct {
	Resource       string `json:"resource" yaml:"resource"`
	Implementation string `json:"implementation" yaml:"implementation"`
	Notes          string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func (e Entry) String() string {
	if e.Notes == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Implementation)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Resource, e.Implementation, e.Notes)
}

// Facility is a calibrated elapsed-time source. Once armed it is read-only
// and safe for concurrent use.
type Facility struct {
	ScaleStore

	cfg         Config
	source      probe.Source
	clock       tickcount.ReferenceClock
	state       State
	counter     tickcount.Counter
	identity    probe.Identity
	calibration *Calibration
	overhead    uint64
	entries     []Entry
}

type Option func(*Facility)

// Calibration settings; the identity source named in the config is used unless WithSource is given.
func WithConfig(cfg Config) Option {
	return func(f *Facility) {
		f.cfg = cfg
	}
}

func WithSource(src probe.Source) Option {
	return func(f *Facility) {
		f.source = src
	}
}

// Reference clock to calibrate against. If it is also a tickcount.Counter,
// it serves as the fallback counter.
func WithClock(clock tickcount.ReferenceClock) Option {
	return func(f *Facility) {
		f.clock = clock
	}
}

// Function substitutions for unit tests
var (
	probeF    = probe.Probe
	overheadF = tickcount.Overhead
)

// Probes the CPU, calibrates the best counter and arms the facility.
// Never fails - problems end up in the fallback counter and in the diagnostics.
func ProbeAndCalibrate(opts ...Option) *Facility {
	return ProbeAndCalibrateContext(context.Background(), opts...)
}

// Same as ProbeAndCalibrate; a done context cuts calibration short and arms the fallback.
func ProbeAndCalibrateContext(ctx context.Context, opts ...Option) *Facility {
	f := newFacility(opts...)
	f.arm(ctx)
	return f
}

func newFacility(opts ...Option) *Facility {
	f := &Facility{
		cfg:     DefaultConfig(),
		clock:   tickcount.MonotonicClock{},
		state:   Unprobed,
		entries: []Entry{{Resource: ResourceRDTSC}},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facility) arm(ctx context.Context) {
	if err := f.cfg.Validate(); err != nil {
		f.armFallback(err.Error())
		return
	}

	if f.source == nil {
		f.source, _ = probe.SourceByName(f.cfg.Source)
	}

	id, err := f.source.Identify()
	if err != nil {
		f.armFallback(fmt.Sprintf("CPU identity unavailable: %v", err))
		return
	}
	f.identity = id

	cand, ok := probeF(id)
	f.state = ProbedCandidate
	logger.Debug().Str("vendor", id.Vendor).Str("source", id.Source).Str("candidate", cand.Description).Msg("CPU probed")
	if !ok {
		f.armFallback(fmt.Sprintf("no usable cycle counter on %q", id.Vendor))
		return
	}

	f.state = Calibrating
	res, err := f.ScaleStore.Calibrate(ctx, NewCalibrator(f.cfg, f.clock), cand.Description, cand.Counter)
	if err != nil {
		logger.Info().Str("counter", cand.Description).Str("error", err.Error()).Msg("Calibration failed")
		f.armFallback(fmt.Sprintf("%s calibration failed: %v", cand.Description, err))
		return
	}

	f.counter = cand.Counter
	f.calibration = res
	f.overhead = overheadF(f.counter)
	f.state = ArmedHardware
	f.entries[0].Implementation = cand.Description
	f.entries[0].Notes = f.Report().Notes()
	logger.Info().Str("counter", cand.Description).Float64("ticks/us", f.Scale()).Msg("Cycle counter armed")
}

func (f *Facility) armFallback(reason string) {
	if counter, ok := f.clock.(tickcount.Counter); ok {
		f.counter = counter
	} else {
		f.counter = tickcount.MonotonicClock{}
	}

	scale := f.cfg.FallbackScale
	if !(scale > 0) {
		scale = nominalScale
	}
	f.setNominal(scale)
	f.calibration = nil
	f.overhead = overheadF(f.counter)
	f.state = ArmedFallback
	f.entries[0].Implementation = FallbackDescription
	f.entries[0].Notes = fmt.Sprintf("%s; nominal %f ticks/us", reason, scale)
	logger.Info().Str("reason", reason).Msg("Using reference monotonic clock")
}

func (f *Facility) State() State {
	return f.state
}

// Active counter reader; nil until armed
func (f *Facility) Counter() tickcount.Counter {
	return f.counter
}

// Reads the active counter; zero until armed.
func (f *Facility) Ticks() uint64 {
	if f.counter == nil {
		return 0
	}
	return f.counter.Ticks()
}

// Microseconds elapsed since the start tick reading
func (f *Facility) Elapsed(start uint64) (float64, error) {
	now := f.Ticks()
	if now < start {
		now = start
	}
	return f.TicksToMicroseconds(now - start)
}

func (f *Facility) Identity() probe.Identity {
	return f.identity
}

// Hardware calibration result; nil for the fallback
func (f *Facility) Calibration() *Calibration {
	return f.calibration
}

// Minimal cost of two back-to-back counter reads, in ticks
func (f *Facility) Overhead() uint64 {
	return f.overhead
}

func (f *Facility) Entries() []Entry {
	return append([]Entry(nil), f.entries...)
}

// Human readable facility table, one entry per line
func (f *Facility) Describe() string {
	lines := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

// Serializable state of the facility
type Snapshot struct {
	State         string         `json:"state" yaml:"state"`
	Scale         float64        `json:"scale" yaml:"scale"`
	OverheadTicks uint64         `json:"overhead_ticks" yaml:"overhead_ticks"`
	Entries       []Entry        `json:"entries" yaml:"entries"`
	Identity      probe.Identity `json:"identity" yaml:"identity"`
	Calibration   *Calibration   `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

func (f *Facility) Snapshot() Snapshot {
	return Snapshot{
		State:         f.state.String(),
		Scale:         f.Scale(),
		OverheadTicks: f.overhead,
		Entries:       f.Entries(),
		Identity:      f.identity,
		Calibration:   f.calibration,
	}
}
