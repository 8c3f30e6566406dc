package memory

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count    int64
	resetsAt time.Time
}

// WindowCounter is the in-process fixed-window counter. Increment and
// compare happen under one lock, so concurrent requests never lose counts.
type WindowCounter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewWindowCounter() *WindowCounter {
	c := &WindowCounter{windows: make(map[string]*window)}
	go c.cleanup()
	return c
}

// Incr bumps the counter for key, starting a new window when none is active
// or the previous one has ended. Returns the in-window count and the time
// until the window resets.
func (c *WindowCounter) Incr(_ context.Context, key string, windowDur time.Duration) (int64, time.Duration, error) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || now.After(w.resetsAt) {
		w = &window{resetsAt: now.Add(windowDur)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.resetsAt.Sub(now), nil
}

// cleanup removes finished windows every 5 minutes.
func (c *WindowCounter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		now := time.Now()
		c.mu.Lock()
		for key, w := range c.windows {
			if now.After(w.resetsAt) {
				delete(c.windows, key)
			}
		}
		c.mu.Unlock()
	}
}
