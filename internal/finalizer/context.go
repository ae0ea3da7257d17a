package finalizer

import (
	"sync"

	"github.com/dxta-dev/clankers/internal/idgen"
)

// Context bundles the process-wide state one harness adapter needs: the
// finalizer itself, the set of sessions already synced to the daemon, the
// most recently seen session, and an id generator for adapter-created
// records (tool executions, errors). Creating one per adapter instance
// keeps tests hermetic.
type Context struct {
	*Finalizer

	mu              sync.Mutex
	syncedSessions  map[string]struct{}
	latestSessionID string
	ids             *idgen.Generator
}

// NewContext creates adapter state around a finalizer.
func NewContext(sink Sink, opts ...Option) *Context {
	return &Context{
		Finalizer:      New(sink, opts...),
		syncedSessions: make(map[string]struct{}),
		ids:            idgen.New(),
	}
}

// MarkSessionSynced records that a session upsert reached the daemon.
// Returns true the first time, false for an already-synced session.
func (c *Context) MarkSessionSynced(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.syncedSessions[sessionID]; ok {
		c.latestSessionID = sessionID
		return false
	}
	c.syncedSessions[sessionID] = struct{}{}
	c.latestSessionID = sessionID
	return true
}

// LatestSessionID returns the most recently seen session id, or "".
func (c *Context) LatestSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestSessionID
}

// NextID returns a fresh entity id with the given prefix.
func (c *Context) NextID(prefix string) string {
	return c.ids.Next(prefix)
}
