package probe

import (
	"testing"

	"github.com/aknopov/rdclock/tickcount"
	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	assertT := assert.New(t)

	testCases := []struct {
		name    string
		id      Identity
		expOk   bool
		expDesc string
		expCntr tickcount.Counter
	}{
		{
			name:    "Both flags",
			id:      Identity{Vendor: PreferredVendor, TSC: true, RDTSCP: true},
			expOk:   true,
			expDesc: "rdtscp",
			expCntr: tickcount.RDTSCP{},
		},
		{
			name:    "RDTSC only",
			id:      Identity{Vendor: PreferredVendor, TSC: true},
			expOk:   true,
			expDesc: "rdtsc",
			expCntr: tickcount.SerializedRDTSC{},
		},
		{
			name:    "RDTSCP only",
			id:      Identity{Vendor: PreferredVendor, RDTSCP: true},
			expOk:   true,
			expDesc: "rdtscp",
			expCntr: tickcount.RDTSCP{},
		},
		{
			name:  "No flags",
			id:    Identity{Vendor: PreferredVendor},
			expOk: false,
		},
		{
			name:  "Other vendor",
			id:    Identity{Vendor: "AuthenticAMD", TSC: true, RDTSCP: true, InvariantTSC: true},
			expOk: false,
		},
		{
			name:  "Empty vendor",
			id:    Identity{TSC: true, RDTSCP: true},
			expOk: false,
		},
	}

	for _, tc := range testCases {
		cand, ok := Probe(tc.id)

		assertT.Equal(tc.expOk, ok, "In test", tc.name)
		if !tc.expOk {
			assertT.Nil(cand.Counter, "In test", tc.name)
			continue
		}
		assertT.Equal(tc.expDesc, cand.Description, "In test", tc.name)
		assertT.IsType(tc.expCntr, cand.Counter, "In test", tc.name)
		assertT.Equal(tc.expDesc, cand.Counter.Name(), "In test", tc.name)
	}
}
