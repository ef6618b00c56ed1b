package rdclock

import "errors"

var (
	// Conversion was requested before any scale was armed
	ErrUncalibrated = errors.New("clock is not calibrated")
	// Microseconds value can't be converted to ticks
	ErrInvalidDuration = errors.New("invalid duration")
	// Scale estimate didn't reach the error target within the sample cap
	ErrNotConverged = errors.New("calibration did not converge")
	// Calibration was interrupted before collecting enough samples
	ErrInsufficientData = errors.New("insufficient calibration data")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
