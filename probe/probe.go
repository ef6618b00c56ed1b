// Package probe inspects the CPU and picks the cheapest trustworthy cycle counter reader.
package probe

import (
	"github.com/aknopov/rdclock/tickcount"
)

// Only Intel keeps time-stamp counters synchronized across cores and sockets.
// Other vendors' counters may drift between cores, which makes them unusable as
// a shared source of elapsed time.
const PreferredVendor = "GenuineIntel"

// CPU identity as far as counter selection is concerned
type Identity struct {
	Vendor       string `json:"vendor" yaml:"vendor"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
	TSC          bool   `json:"tsc" yaml:"tsc"`
	RDTSCP       bool   `json:"rdtscp" yaml:"rdtscp"`
	InvariantTSC bool   `json:"invariant_tsc" yaml:"invariant_tsc"`
	Source       string `json:"source" yaml:"source"`
}

// Selected counter reader and its short description
type Candidate struct {
	Counter     tickcount.Counter
	Description string
}

// Selects a counter reader for the identity; the second value is false when
// nothing suitable is available. RDTSCP is preferred being cheaper and self-serializing.
func Probe(id Identity) (Candidate, bool) {
	if id.Vendor != PreferredVendor {
		return Candidate{}, false
	}

	if id.RDTSCP {
		return Candidate{Counter: tickcount.RDTSCP{}, Description: "rdtscp"}, true
	}

	if id.TSC {
		return Candidate{Counter: tickcount.SerializedRDTSC{}, Description: "rdtsc"}, true
	}

	return Candidate{}, false
}
