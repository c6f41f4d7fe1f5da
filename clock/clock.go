// Package clock supplies the current time in a single configured timezone, and
// a fake time source for tests.
package clock

import (
	"sync"
	"time"
)

// System provides the host's current time.
var System TimeSource = systemTimeSource{}

// TimeSource can provide the current time, or be replaced by a fake in tests.
type TimeSource interface {
	Now() time.Time
}

type systemTimeSource struct{}

func (systemTimeSource) Now() time.Time {
	return time.Now()
}

type zonedTimeSource struct {
	ts  TimeSource
	loc *time.Location
}

// InZone wraps ts so that every returned time is expressed in loc. A nil loc
// means UTC.
func InZone(ts TimeSource, loc *time.Location) TimeSource {
	if loc == nil {
		loc = time.UTC
	}
	return zonedTimeSource{ts: ts, loc: loc}
}

func (z zonedTimeSource) Now() time.Time {
	return z.ts.Now().In(z.loc)
}

// LoadZone resolves an IANA zone name, falling back to UTC for an empty name.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// FakeTimeSource returns a time that can be set arbitrarily. For tests only.
type FakeTimeSource struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFake creates a FakeTimeSource fixed at t.
func NewFake(t time.Time) *FakeTimeSource {
	return &FakeTimeSource{now: t}
}

// Now returns the time value this instance holds.
func (f *FakeTimeSource) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set updates the time that this instance reports.
func (f *FakeTimeSource) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the reported time forward by d.
func (f *FakeTimeSource) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
