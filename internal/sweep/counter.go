package sweep

import "sync"

// Counter counts alerts fired since the last reset. It is owned by the
// Sweeper and reset only through an explicit call, typically by an
// operator's daily cron, never by ambient midnight magic.
type Counter struct {
	mu    sync.Mutex
	count int
}

func (c *Counter) Increment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *Counter) Read() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}
