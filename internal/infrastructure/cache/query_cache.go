package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swimteam/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// QueryCacheStats reports cache effectiveness
type QueryCacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type queryEntry struct {
	key        string
	collection string
	records    []shared.Record
	expiresAt  time.Time
}

// QueryCache holds filtered query results per (collection, query key).
// Entries expire after ttl and the least recently used entry is evicted
// once maxItems is reached. It subscribes to RecordChanged events and drops
// every entry of the changed collection.
//
// Each collection carries a generation bumped by Invalidate. A reader
// captures it before fetching and stores with PutIfCurrent, so rows read
// before a write are never cached after that write invalidated them.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	gens     map[string]uint64
	purges   uint64
	ttl      time.Duration
	maxItems int
	now      func() time.Time
	logger   *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewQueryCache creates a query cache. maxItems <= 0 means unbounded.
func NewQueryCache(ttl time.Duration, maxItems int, logger *zap.Logger) *QueryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCache{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		gens:     make(map[string]uint64),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
		logger:   logger,
	}
}

func cacheKey(collection string, q shared.Query) string {
	return collection + "\x00" + q.Key()
}

// Get returns a copy of the cached records for the query
func (c *QueryCache) Get(collection string, q shared.Query) ([]shared.Record, bool) {
	key := cacheKey(collection, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := el.Value.(*queryEntry)
	if c.now().After(e.expiresAt) {
		c.removeElement(el)
		c.misses.Add(1)
		return nil, false
	}
	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return cloneRecords(e.records), true
}

// Generation returns the current invalidation generation of a collection
func (c *QueryCache) Generation(collection string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(collection)
}

func (c *QueryCache) generation(collection string) uint64 {
	return c.gens[collection] + c.purges
}

// Put stores a copy of the records for the query
func (c *QueryCache) Put(collection string, q shared.Query, records []shared.Record) {
	c.put(collection, q, records, nil)
}

// PutIfCurrent stores the records only if the collection was not
// invalidated since gen was read. It reports whether they were stored.
func (c *QueryCache) PutIfCurrent(collection string, q shared.Query, records []shared.Record, gen uint64) bool {
	return c.put(collection, q, records, &gen)
}

func (c *QueryCache) put(collection string, q shared.Query, records []shared.Record, gen *uint64) bool {
	if c.ttl <= 0 {
		return false
	}
	key := cacheKey(collection, q)
	e := &queryEntry{
		key:        key,
		collection: collection,
		records:    cloneRecords(records),
		expiresAt:  c.now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != nil && *gen != c.generation(collection) {
		return false
	}
	if el, ok := c.entries[key]; ok {
		el.Value = e
		c.lru.MoveToFront(el)
		return true
	}
	c.entries[key] = c.lru.PushFront(e)
	for c.maxItems > 0 && c.lru.Len() > c.maxItems {
		c.removeElement(c.lru.Back())
	}
	return true
}

// Invalidate drops every entry of a collection
func (c *QueryCache) Invalidate(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[collection]++
	removed := 0
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*queryEntry).collection == collection {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// Purge drops every entry
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.purges++
}

// Stats returns hit/miss counters and the current entry count
func (c *QueryCache) Stats() QueryCacheStats {
	c.mu.Lock()
	n := c.lru.Len()
	c.mu.Unlock()
	return QueryCacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

func (c *QueryCache) removeElement(el *list.Element) {
	e := el.Value.(*queryEntry)
	delete(c.entries, e.key)
	c.lru.Remove(el)
}

// Handle implements shared.EventHandler
func (c *QueryCache) Handle(_ context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*shared.RecordChangedEvent)
	if !ok {
		return nil
	}
	removed := c.Invalidate(changed.Collection)
	c.logger.Debug("query cache invalidated",
		zap.String("collection", changed.Collection),
		zap.String("event_type", changed.EventType()),
		zap.Int("removed", removed),
	)
	return nil
}

// EventTypes implements shared.EventHandler
func (c *QueryCache) EventTypes() []string {
	return []string{
		shared.EventTypeRecordCreated,
		shared.EventTypeRecordUpdated,
		shared.EventTypeRecordDeleted,
	}
}

var _ shared.EventHandler = (*QueryCache)(nil)

func cloneRecords(in []shared.Record) []shared.Record {
	out := make([]shared.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// CachedRecordStore serves FetchByFilter from a QueryCache and invalidates
// the collection on its own writes.
type CachedRecordStore struct {
	next  shared.RecordStore
	cache *QueryCache
}

// NewCachedRecordStore wraps a record store with a query cache
func NewCachedRecordStore(next shared.RecordStore, cache *QueryCache) *CachedRecordStore {
	return &CachedRecordStore{next: next, cache: cache}
}

var _ shared.RecordStore = (*CachedRecordStore)(nil)

// FetchByID is not cached
func (s *CachedRecordStore) FetchByID(ctx context.Context, collection, id string) (shared.Record, error) {
	return s.next.FetchByID(ctx, collection, id)
}

// FetchByFilter returns cached results when present
func (s *CachedRecordStore) FetchByFilter(ctx context.Context, collection string, q shared.Query) ([]shared.Record, error) {
	if recs, ok := s.cache.Get(collection, q); ok {
		return recs, nil
	}
	gen := s.cache.Generation(collection)
	recs, err := s.next.FetchByFilter(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	s.cache.PutIfCurrent(collection, q, recs, gen)
	return recs, nil
}

// Create implements shared.RecordStore
func (s *CachedRecordStore) Create(ctx context.Context, collection string, data shared.Record) (string, error) {
	id, err := s.next.Create(ctx, collection, data)
	if err == nil {
		s.cache.Invalidate(collection)
	}
	return id, err
}

// Update implements shared.RecordStore
func (s *CachedRecordStore) Update(ctx context.Context, collection, id string, data shared.Record) error {
	err := s.next.Update(ctx, collection, id, data)
	if err == nil {
		s.cache.Invalidate(collection)
	}
	return err
}

// Delete implements shared.RecordStore
func (s *CachedRecordStore) Delete(ctx context.Context, collection, id string) error {
	err := s.next.Delete(ctx, collection, id)
	if err == nil {
		s.cache.Invalidate(collection)
	}
	return err
}
