package kitchen

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QueryKey identifies one cached API read.
type QueryKey string

const (
	KeyOrders     QueryKey = "/api/orders"
	KeyUsers      QueryKey = "/api/users"
	KeyProducts   QueryKey = "/api/products"
	KeyCategories QueryKey = "/api/categories"
)

// OrderItemsKey is the key of the order-items read for a batch of orders.
// The batch is part of the identity, so a new set of orders is a new entry.
func OrderItemsKey(orderIDs []uuid.UUID) QueryKey {
	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	return QueryKey("/api/order-items?orderIds=" + strings.Join(ids, ","))
}

type cacheEntry struct {
	value     interface{}
	fetchedAt time.Time
	stale     bool
}

// Cache holds the last result of every read. Invalidation marks an entry
// stale without dropping it, so the view keeps showing the old data until
// the refetch lands. Not safe for concurrent use.
type Cache struct {
	entries map[QueryKey]*cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[QueryKey]*cacheEntry)}
}

// Set stores a fresh value.
func (c *Cache) Set(key QueryKey, value interface{}, now time.Time) {
	c.entries[key] = &cacheEntry{value: value, fetchedAt: now}
}

// Get returns the cached value, stale or not.
func (c *Cache) Get(key QueryKey) (interface{}, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Stale reports whether key needs a fetch: never fetched or invalidated.
func (c *Cache) Stale(key QueryKey) bool {
	e, ok := c.entries[key]
	return !ok || e.stale
}

// FetchedAt returns when key was last stored.
func (c *Cache) FetchedAt(key QueryKey) time.Time {
	if e, ok := c.entries[key]; ok {
		return e.fetchedAt
	}
	return time.Time{}
}

// Invalidate marks the given keys stale.
func (c *Cache) Invalidate(keys ...QueryKey) {
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			e.stale = true
		}
	}
}

// InvalidateAll marks every entry stale.
func (c *Cache) InvalidateAll() {
	for _, e := range c.entries {
		e.stale = true
	}
}

// Prune drops order-items entries other than keep. Each order set gets its
// own key, so without pruning the cache grows with every new order.
func (c *Cache) Prune(keep QueryKey) {
	for k := range c.entries {
		if k != keep && strings.HasPrefix(string(k), "/api/order-items?") {
			delete(c.entries, k)
		}
	}
}

func cached[T any](c *Cache, key QueryKey) T {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}
