/*
clock.go - Monotonic ordering key for history entries

PURPOSE:
  Orders and debt logs carry a created_ts column used as the history
  sort key. Wall-clock display strings only resolve to the minute, so
  rapid entries would sort non-deterministically without it.

KEY LAYOUT:
  created_ts = unix_millis(created_at) * 1000 + seq

  seq is a per-process wrap-around counter, so entries stamped within
  the same millisecond keep insertion order. Backdated entries (manual
  log timestamps, order date edits) take the millisecond part from
  their stated time and therefore sort at that time, not at insertion.
*/
package ledger

import (
	"sync"
	"time"
)

// tieBreakSpan is the number of sequence slots per millisecond.
const tieBreakSpan = 1000

// Clock issues created_ts values. Safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	seq int64
}

// NewClock returns a Clock starting at sequence zero.
func NewClock() *Clock {
	return &Clock{}
}

// Stamp returns the ordering key for an entry dated at t.
func (c *Clock) Stamp(t time.Time) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq = (c.seq + 1) % tieBreakSpan
	return t.UnixMilli()*tieBreakSpan + c.seq
}
