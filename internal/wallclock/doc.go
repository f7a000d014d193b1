// Package wallclock implements the repository's monotonic microsecond
// wall-clock: cache/clock under the repo write lock. Every allocation reads
// the last persisted value, computes max(system_micros, last+1), persists
// the result, and returns it, guaranteeing strictly increasing timestamps
// across processes even when the system clock regresses.
package wallclock
