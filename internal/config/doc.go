// Package config loads and validates the small set of host-visible
// configuration keys the engine consults at runtime (goal
// auto-completion, search similarity thresholds, durable append). The
// schema lives in CUE and is unified against an optional user-supplied
// overlay file the same way internal/compiler unifies a concept value
// against its CUE source, except here the result is decoded straight
// into a plain Go struct rather than an IR spec.
package config
