package clock

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. Sealing and retention math must go through
// this interface so hashes and retention dates are reproducible in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

// Now implements Clock.
func (c FixedClock) Now() time.Time {
	return c.At
}

// IDProvider issues opaque unique identifiers.
type IDProvider interface {
	NewID() string
}

// UUIDProvider issues random UUIDv4 strings.
type UUIDProvider struct{}

// NewID implements IDProvider.
func (UUIDProvider) NewID() string {
	return uuid.NewString()
}

// SequenceProvider issues deterministic identifiers for tests.
type SequenceProvider struct {
	Prefix  string
	counter uint64
}

// NewID implements IDProvider.
func (p *SequenceProvider) NewID() string {
	n := atomic.AddUint64(&p.counter, 1)
	return fmt.Sprintf("%s-%d", p.Prefix, n)
}
