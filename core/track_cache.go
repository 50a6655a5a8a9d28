package core

import lru "github.com/hashicorp/golang-lru/v2"

// trackReadCache bounds the number of substate-database reads Track keeps
// warm across a single transaction, the way the teacher's libp2p stack uses
// hashicorp/golang-lru for peer-record caching. A transaction that only
// touches a handful of substates never evicts; a pathological one that
// walks millions of keys doesn't grow Track's memory without bound.
type trackReadCache struct {
	cache *lru.Cache[string, []byte]
}

func newTrackReadCache(size int) *trackReadCache {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		// size <= 0 from lru.New's perspective; 1 is always valid.
		c, _ = lru.New[string, []byte](1)
	}
	return &trackReadCache{cache: c}
}

func (c *trackReadCache) get(key string) ([]byte, bool) {
	return c.cache.Get(key)
}

func (c *trackReadCache) put(key string, value []byte) {
	c.cache.Add(key, value)
}

func (c *trackReadCache) invalidate(key string) {
	c.cache.Remove(key)
}
