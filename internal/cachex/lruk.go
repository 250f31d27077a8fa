// Package cachex implements the LRU-K cache of spec.md §4.2: a
// key->value cache that, unlike classic LRU, prefers to evict entries
// with a full K-access history (oldest such entry first) over
// newcomers that haven't yet accumulated K accesses; only when no
// entry has a full history does it evict the entry whose most recent
// access is oldest.
//
// Grounded on the teacher's common.BlockCache (doubly-linked list +
// map, memory-bounded Get/Put with head promotion), generalized from
// classic LRU (evict the tail) to LRU-K (evict by K-th-most-recent
// access per spec.md §4.2's two-pass rule). Not internally
// thread-safe, matching spec.md §5 ("callers wrap it if shared").
package cachex

// Config configures a Cache at construction.
type Config struct {
	K         int // access-history depth; default 2
	MaxSize   int // max entry count, 0 = unbounded
	MaxMemory int // max sum(|key|+|value|), 0 = unbounded
}

type entry struct {
	key     string
	value   []byte
	history []int64 // up to K most recent access ticks, oldest first
}

// Cache is an LRU-K cache over byte keys and values.
type Cache struct {
	k         int
	maxSize   int
	maxMemory int

	clock   int64
	entries map[string]*entry

	currentMemory int

	hits, misses, evictions int64
}

// New creates an LRU-K cache per cfg.
func New(cfg Config) *Cache {
	if cfg.K < 1 {
		cfg.K = 2
	}
	return &Cache{
		k:         cfg.K,
		maxSize:   cfg.MaxSize,
		maxMemory: cfg.MaxMemory,
		entries:   make(map[string]*entry),
	}
}

func entryCost(key string, value []byte) int {
	return len(key) + len(value)
}

func (c *Cache) recordAccess(e *entry) {
	c.clock++
	e.history = append(e.history, c.clock)
	if len(e.history) > c.k {
		e.history = e.history[len(e.history)-c.k:]
	}
}

// Get returns the value for key and whether it was found. On hit, the
// access history is updated (the key becomes MRU).
func (c *Cache) Get(key string) ([]byte, bool) {
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.recordAccess(e)
	c.hits++
	return e.value, true
}

// Set upserts key->value. Insertion counts as an access. If evict is
// true and a configured size/memory limit is exceeded, entries are
// evicted until the cache is within its limits, and the first entry
// evicted is returned.
func (c *Cache) Set(key string, value []byte, evict bool) (evictedKey string, evictedValue []byte, evicted bool) {
	if e, ok := c.entries[key]; ok {
		c.currentMemory += len(value) - len(e.value)
		e.value = value
		c.recordAccess(e)
	} else {
		e := &entry{key: key, value: value}
		c.entries[key] = e
		c.currentMemory += entryCost(key, value)
		c.recordAccess(e)
	}

	if !evict {
		return "", nil, false
	}

	for c.overLimit() {
		k, v, ok := c.evictOnce(true)
		if !ok {
			break
		}
		if !evicted {
			evictedKey, evictedValue, evicted = k.(string), v.([]byte), true
		}
	}
	return evictedKey, evictedValue, evicted
}

func (c *Cache) overLimit() bool {
	if c.maxSize > 0 && len(c.entries) > c.maxSize {
		return true
	}
	if c.maxMemory > 0 && c.currentMemory > c.maxMemory {
		return true
	}
	return false
}

// Evict removes one entry per spec.md §4.2's two-pass rule and
// returns it. With details=false only the key is returned (as
// `key`, nil, true); with details=true both key and value are
// returned. Returns (nil, nil, false) if the cache is empty.
func (c *Cache) Evict(details bool) (key any, value any, ok bool) {
	return c.evictOnce(details)
}

func (c *Cache) evictOnce(details bool) (key any, value any, ok bool) {
	victim := c.pickVictim()
	if victim == nil {
		return nil, nil, false
	}

	c.currentMemory -= entryCost(victim.key, victim.value)
	delete(c.entries, victim.key)
	c.evictions++

	if details {
		return victim.key, victim.value, true
	}
	return victim.key, nil, true
}

// pickVictim implements spec.md §4.2's eviction policy: entries with a
// full K-length access history are preferred victims, evicted oldest
// (smallest) first tick first, so that a newcomer with fewer than K
// accesses isn't immediately evicted by a burst of unrelated traffic.
// Only when no entry has a full K-history does eviction fall back to
// comparing across every entry by its most recent access (the oldest
// wins), which is what "treating short history as youngest" means:
// a newcomer's only tick is used as-is rather than its absence being
// read as infinitely old.
func (c *Cache) pickVictim() *entry {
	var best *entry
	var bestFirstTick int64 = -1

	// First pass: full K-history entries only.
	for _, e := range c.entries {
		if len(e.history) < c.k {
			continue
		}
		first := e.history[0]
		if best == nil || first < bestFirstTick {
			best = e
			bestFirstTick = first
		}
	}
	if best != nil {
		return best
	}

	// Second pass: no entry has a full history; evict the one whose
	// most recent access is oldest.
	var bestMostRecent int64 = -1
	for _, e := range c.entries {
		mostRecent := e.history[len(e.history)-1]
		if best == nil || mostRecent < bestMostRecent {
			best = e
			bestMostRecent = mostRecent
		}
	}
	return best
}

// Delete explicitly removes key, with the same bookkeeping as eviction.
func (c *Cache) Delete(key string) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.currentMemory -= entryCost(e.key, e.value)
	delete(c.entries, key)
	c.evictions++
	return true
}

// Clear drops all entries. If resetStats is true, hit/miss/eviction
// counters and the logical clock are also reset.
func (c *Cache) Clear(resetStats bool) {
	c.entries = make(map[string]*entry)
	c.currentMemory = 0
	if resetStats {
		c.hits, c.misses, c.evictions = 0, 0, 0
		c.clock = 0
	}
}

// Size returns the number of entries.
func (c *Cache) Size() int { return len(c.entries) }

// CurrentMemory returns sum(|key|+|value|) over all entries.
func (c *Cache) CurrentMemory() int { return c.currentMemory }

// Stats is the hit/miss/eviction counters.
type Stats struct {
	Hits, Misses, Evictions int64
	Size                    int
	CurrentMemory           int
}

// GetStats returns a snapshot of cache counters.
func (c *Cache) GetStats() Stats {
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Size:          len(c.entries),
		CurrentMemory: c.currentMemory,
	}
}
