// Package plancache keeps recently built plans keyed by query text and the
// catalog they were planned against.
package plancache

import (
	"fedplan/planner"
	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultExpiration = 5 * time.Minute
	DefaultCleanup    = time.Minute
)

// Key identifies a plan. Catalog is any stable description of the
// namespaces the query was planned against.
type Key struct {
	SQL     string
	Catalog string
}

func (k Key) Key() string {
	h := xxhash.New()
	_, _ = h.WriteString(strings.TrimSpace(k.SQL))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(k.Catalog)
	return strconv.FormatUint(h.Sum64(), 16)
}

type Cache struct {
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. A non-positive expiration keeps plans until evicted.
func New(expiration, cleanup time.Duration) *Cache {
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	return &Cache{cache: cache.New(expiration, cleanup)}
}

func (c *Cache) Get(k Key) (*planner.QueryPlan, bool) {
	v, exp, ok := c.cache.GetWithExpiration(k.Key())
	if !ok || (!exp.IsZero() && exp.Before(time.Now())) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return v.(*planner.QueryPlan), true
}

// Set stores plan under k with the default expiration.
func (c *Cache) Set(k Key, plan *planner.QueryPlan) {
	c.cache.SetDefault(k.Key(), plan)
}

func (c *Cache) Flush() {
	c.cache.Flush()
}

func (c *Cache) ItemCount() int {
	return c.cache.ItemCount()
}

type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Items  int   `json:"items"`
}

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Items: c.cache.ItemCount()}
}
