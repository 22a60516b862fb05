package gxindex

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/samcharles93/geodict/internal/logger"
)

// State is the lifecycle state of a Cache.
type State int

const (
	Uninitialized State = iota
	Built
)

func (s State) String() string {
	if s == Built {
		return "built"
	}
	return "uninitialized"
}

// Cache builds an Index lazily from a Source and keeps it until Release.
// Concurrent first callers share a single build.
type Cache struct {
	src Source
	log logger.Logger

	mu  sync.Mutex
	ix  *Index
	gen uint64

	group singleflight.Group
}

// NewCache returns an empty cache over src. A nil logger discards.
func NewCache(src Source, log logger.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}
	return &Cache{src: src, log: log}
}

// State reports whether an index is currently held.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ix != nil {
		return Built
	}
	return Uninitialized
}

// Index returns the current index, building it first if needed.
func (c *Cache) Index() (*Index, error) {
	c.mu.Lock()
	if ix := c.ix; ix != nil {
		c.mu.Unlock()
		return ix, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("index", func() (any, error) {
		c.mu.Lock()
		if ix := c.ix; ix != nil {
			c.mu.Unlock()
			return ix, nil
		}
		gen := c.gen
		c.mu.Unlock()

		ix, err := Build(c.src)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// A Release during the build makes this snapshot stale; hand it to
		// the callers that asked for it but do not keep it.
		if c.gen == gen {
			c.ix = ix
		}
		c.mu.Unlock()
		c.log.Debug("transformation index built", "entries", ix.Len())
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Release drops the index; the next access rebuilds it.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ix = nil
	c.gen++
	c.group.Forget("index")
}
