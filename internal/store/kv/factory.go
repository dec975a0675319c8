package kv

// New selects the Redis-backed Store when addr is non-empty, falling back
// to the in-process store otherwise.
func New(addr string) Store {
	if addr == "" {
		return NewMemory()
	}
	return NewRedis(addr)
}
