//go:build amd64 && !linux

package tickcount

import "time"

// ReferenceClock is the trusted time source a counter is calibrated against.
type ReferenceClock interface {
	// Nanoseconds from an arbitrary origin
	Nanotime() int64
	Sleep(d time.Duration)
}

// MonotonicClock uses the monotonic reading of the runtime clock. As a Counter its ticks are nanoseconds.
type MonotonicClock struct{}

var epoch = time.Now()

func (MonotonicClock) Nanotime() int64 {
	return int64(time.Since(epoch))
}

func (MonotonicClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (c MonotonicClock) Ticks() uint64 {
	return uint64(c.Nanotime())
}

func (MonotonicClock) Name() string {
	return "runtime monotonic clock"
}
