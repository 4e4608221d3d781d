// Package referrer publishes the effective referrer a redirect experiment
// produced. Consumers that need the pre-redirect referrer read it before
// their own page tracking fires.
package referrer

import (
	"strings"

	"experiment-bridge/internal/cache"
)

// Slot holds the override for one page load. Last non-empty write wins.
type Slot struct {
	v cache.Snapshot[string]
}

// Apply publishes a non-empty referrer. Empty input is ignored.
func (s *Slot) Apply(ref string) {
	if strings.TrimSpace(ref) == "" {
		return
	}
	s.v.Store(ref)
}

// Current returns the last published referrer.
func (s *Slot) Current() (string, bool) {
	return s.v.Load()
}

// Detector applies each distinct referrer once. One detector per adapter
// instance.
type Detector struct {
	last  string
	apply func(string)
}

func NewDetector(apply func(string)) *Detector {
	return &Detector{apply: apply}
}

// Observe applies ref if it is non-empty and differs from the last value
// this detector saw. It reports whether ref was applied.
func (d *Detector) Observe(ref string) bool {
	if ref == "" || ref == d.last {
		return false
	}
	d.last = ref
	d.apply(ref)
	return true
}
