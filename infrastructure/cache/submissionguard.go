package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// SubmissionGuard is an in-process, self-expiring key set used to reject
// near-instant duplicate clock-in requests.
type SubmissionGuard struct {
	c *gocache.Cache
}

func NewSubmissionGuard(defaultTTL, cleanupInterval time.Duration) *SubmissionGuard {
	return &SubmissionGuard{c: gocache.New(defaultTTL, cleanupInterval)}
}

func (g *SubmissionGuard) Get(key string) bool {
	_, found := g.c.Get(key)
	return found
}

func (g *SubmissionGuard) Put(key string, ttl time.Duration) {
	g.c.Set(key, struct{}{}, ttl)
}

// Add inserts key only if it is absent or expired, in one step.
func (g *SubmissionGuard) Add(key string, ttl time.Duration) bool {
	return g.c.Add(key, struct{}{}, ttl) == nil
}

func (g *SubmissionGuard) Delete(key string) {
	g.c.Delete(key)
}
