package form

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator produces identifiers for newly added patients.
type IDGenerator interface {
	Next() string
}

// MillisID issues the current Unix time in milliseconds as a decimal string.
// Two calls within the same millisecond still get distinct, increasing ids.
type MillisID struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewMillisID(now func() time.Time) *MillisID {
	if now == nil {
		now = time.Now
	}
	return &MillisID{now: now}
}

func (g *MillisID) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
