package amqp

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerProbing
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerProbing:
		return "probing"
	default:
		return "closed"
	}
}

// breaker stops publishing after tripAfter consecutive failures. Once cooldown
// has passed a single publish is let through; its outcome closes the breaker
// or opens it again.
type breaker struct {
	tripAfter int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func newBreaker(tripAfter int, cooldown time.Duration) *breaker {
	return &breaker{tripAfter: tripAfter, cooldown: cooldown, now: time.Now}
}

// allow reports whether a publish may be attempted.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = breakerProbing
		return true
	case breakerProbing:
		// One probe at a time.
		return false
	default:
		return true
	}
}

func (b *breaker) success() {
	b.mu.Lock()
	b.state, b.failures = breakerClosed, 0
	b.mu.Unlock()
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == breakerProbing || b.failures >= b.tripAfter {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
