// Package metrics records named, hierarchical timings. Names use ">" as a
// separator ("build>joint>meshes") and the report renders them as a
// tree with per-name statistics.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Separator joins timer name segments.
const Separator = ">"

type store struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	now     func() time.Time
}

// Timer records durations. A nil *Timer discards everything, so callers
// never need to check.
type Timer struct {
	s      *store
	prefix string
}

// NewTimer returns an empty timer.
func NewTimer() *Timer {
	return &Timer{s: &store{samples: make(map[string][]time.Duration), now: time.Now}}
}

// Scope returns a timer that prefixes every name with name.
func (t *Timer) Scope(name string) *Timer {
	if t == nil {
		return nil
	}
	return &Timer{s: t.s, prefix: t.join(name)}
}

func (t *Timer) join(name string) string {
	if t.prefix == "" {
		return name
	}
	return t.prefix + Separator + name
}

// Start begins timing name and returns the function that stops it.
//
//	defer timer.Start("meshes")()
func (t *Timer) Start(name string) func() {
	if t == nil {
		return func() {}
	}
	start := t.s.now()
	return func() { t.Record(name, t.s.now().Sub(start)) }
}

// Time runs fn and records its duration, whether or not it fails.
func (t *Timer) Time(name string, fn func() error) error {
	defer t.Start(name)()
	return fn()
}

// Record adds one sample.
func (t *Timer) Record(name string, d time.Duration) {
	if t == nil {
		return
	}
	full := t.join(name)
	t.s.mu.Lock()
	t.s.samples[full] = append(t.s.samples[full], d)
	t.s.mu.Unlock()
}

// Names returns every recorded name in sorted order.
func (t *Timer) Names() []string {
	if t == nil {
		return nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	names := make([]string, 0, len(t.s.samples))
	for n := range t.s.samples {
		if t.prefix == "" || n == t.prefix || strings.HasPrefix(n, t.prefix+Separator) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Samples returns a copy of the samples recorded under the full name.
func (t *Timer) Samples(name string) []time.Duration {
	if t == nil {
		return nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return append([]time.Duration(nil), t.s.samples[name]...)
}
