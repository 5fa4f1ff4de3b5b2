package llm

import "sync"

// SessionCache maps a request-supplied model name to the CLI session id the
// provider returned for it, so a later request naming the same model can
// resume that session. Three of the four adapters (Claude Code, Cursor
// Agent, OpenCode) share this exact in-memory cache shape.
type SessionCache struct {
	mu    sync.Mutex
	byKey map[string]string
}

// NewSessionCache returns an empty cache ready to use.
func NewSessionCache() *SessionCache {
	return &SessionCache{byKey: make(map[string]string)}
}

// Get returns the cached session id for key, if any.
func (c *SessionCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byKey[key]
	return id, ok
}

// Set stores the session id for key.
func (c *SessionCache) Set(key, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = sessionID
}
