package progress

import (
	"sync"
	"time"
)

const channelBuffer = 16

// sessionChannel is one live subscription stream. A session has at most one;
// a new subscription replaces and closes the previous one.
type sessionChannel struct {
	sessionID string
	events    chan Event
	createdAt time.Time

	closeOnce sync.Once
	expiry    *time.Timer
}

func newSessionChannel(sessionID string, now time.Time) *sessionChannel {
	return &sessionChannel{
		sessionID: sessionID,
		events:    make(chan Event, channelBuffer),
		createdAt: now,
	}
}

// send delivers an event without blocking. A slow subscriber loses
// intermediate events; the durable snapshot still has the latest state.
func (c *sessionChannel) send(event Event) bool {
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

// close shuts the stream exactly once, from whichever of the expiry timer,
// grace delay, replacement, or registry shutdown gets there first.
func (c *sessionChannel) close() {
	c.closeOnce.Do(func() {
		if c.expiry != nil {
			c.expiry.Stop()
		}
		close(c.events)
	})
}
