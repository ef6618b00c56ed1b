package rdclock

import (
	"io"

	"github.com/aknopov/fancylogger"
)

var (
	logger = fancylogger.NewLogger(io.Discard, fancylogger.LiteFg)
)

// Redirects diagnostic logging of probing and calibration (discarded by default).
// Not synchronized - call before ProbeAndCalibrate.
func SetLogOutput(sink io.Writer) {
	logger = fancylogger.NewLogger(sink, fancylogger.LiteFg)
}
