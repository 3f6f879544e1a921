// Package clock is the single time source of the application. Components that
// need "now" (the default card year, savedAt stamps, share-token expiry) take a
// Clock instead of calling time.Now, so tests can pin the date.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Year returns the current calendar year according to c.
func Year(c Clock) int {
	return c.Now().Year()
}

type RealClock struct{}

func NewRealClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable clock for tests. It is safe for concurrent use
// because exports and the persistence writer may read it from other goroutines.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

func (c *MockClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}
