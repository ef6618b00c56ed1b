//go:build amd64 && linux

package tickcount

import (
	"time"

	"golang.org/x/sys/unix"
)

// ReferenceClock is the trusted time source a counter is calibrated against.
type ReferenceClock interface {
	// Nanoseconds from an arbitrary origin
	Nanotime() int64
	Sleep(d time.Duration)
}

// MonotonicClock reads CLOCK_MONOTONIC. As a Counter its ticks are nanoseconds.
type MonotonicClock struct{}

func (MonotonicClock) Nanotime() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return fallbackNanotime()
	}
	return ts.Nano()
}

// Sleeps the calling thread, resuming after signal interruptions.
func (MonotonicClock) Sleep(d time.Duration) {
	req := unix.NsecToTimespec(d.Nanoseconds())
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&req, &rem)
		if err != unix.EINTR {
			return
		}
		req = rem
	}
}

func (c MonotonicClock) Ticks() uint64 {
	return uint64(c.Nanotime())
}

func (MonotonicClock) Name() string {
	return "clock_gettime(CLOCK_MONOTONIC)"
}

var epoch = time.Now()

func fallbackNanotime() int64 {
	return int64(time.Since(epoch))
}
