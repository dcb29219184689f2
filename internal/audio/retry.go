package audio

import "time"

const (
	readRetryDelay    = 50 * time.Millisecond
	readRetryMaxDelay = time.Second
	maxReadFailures   = 20
)

// readRetry paces retries of a blocking capture read that keeps failing,
// such as a stream whose device was unplugged.
type readRetry struct {
	failures int
}

// fail records a failed read. It returns the delay before the next attempt,
// doubling up to readRetryMaxDelay, and false once maxReadFailures
// consecutive reads have failed.
func (r *readRetry) fail() (time.Duration, bool) {
	r.failures++
	if r.failures >= maxReadFailures {
		return 0, false
	}
	d := readRetryDelay << min(r.failures-1, 5)
	return min(d, readRetryMaxDelay), true
}

// ok resets the failure count after a successful read.
func (r *readRetry) ok() { r.failures = 0 }
