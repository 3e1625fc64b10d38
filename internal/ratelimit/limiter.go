// Package ratelimit wraps go-catrate's sliding-window Limiter for
// suppressing repetitive structured-log warnings (e.g. a scheduler bug that
// floods "unknown handler" drops every step). Grounded directly on the
// teacher's github.com/joeycumines/go-catrate package.
package ratelimit

import (
	"time"

	catrate "github.com/joeycumines/go-catrate"
)

// Limiter rate-limits named categories against one or more
// (window, limit) rates, via catrate.Limiter.
type Limiter struct {
	inner *catrate.Limiter
}

// NewLimiter constructs a Limiter enforcing every (window, limit) pair in
// rates, per catrate's monotonic-rate requirements.
func NewLimiter(rates map[time.Duration]int) *Limiter {
	if len(rates) == 0 {
		return &Limiter{}
	}
	return &Limiter{inner: catrate.NewLimiter(rates)}
}

// NewDefault returns a Limiter suited to suppressing per-step diagnostic
// warnings: at most 5 in any 1-second window, 50 in any minute.
func NewDefault() *Limiter {
	return NewLimiter(map[time.Duration]int{
		time.Second: 5,
		time.Minute: 50,
	})
}

// Allow reports whether an event in category should be logged right now,
// recording it if so.
func (l *Limiter) Allow(category string) bool {
	if l.inner == nil {
		return true
	}
	_, ok := l.inner.Allow(category)
	return ok
}
