package venue

import (
	"sync"
	"time"
)

// catalogueTTL bounds how long a venue's symbol catalogue is trusted
// before Health refetches it. Funding-rate and fee responses are
// deliberately NOT cached here; only the symbol catalogue is.
const catalogueTTL = 5 * time.Minute

type catalogueCache struct {
	mu        sync.RWMutex
	symbols   []string
	fetchedAt time.Time
}

func (c *catalogueCache) get() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.symbols == nil || time.Since(c.fetchedAt) > catalogueTTL {
		return nil, false
	}
	return c.symbols, true
}

func (c *catalogueCache) set(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = symbols
	c.fetchedAt = time.Now()
}

// invalidate forces the next read to refetch. Nothing in the module calls
// it; an admin override does not change the cached symbol set.
func (c *catalogueCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = nil
}
