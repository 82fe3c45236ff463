package db

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goburrow/cache"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/rcrowley/go-metrics"
)

const (
	DefaultCacheSize = 1024

	MetricsPrefix = "zerotrustdb.db"
)

var (
	cacheHitCounter  = metrics.GetOrRegisterCounter(fmt.Sprintf("%s.cache.hit", MetricsPrefix), nil)
	cacheMissCounter = metrics.GetOrRegisterCounter(fmt.Sprintf("%s.cache.miss", MetricsPrefix), nil)
)

// QueryKey identifies a read query independent of how it was spelled.
type QueryKey struct {
	Kind      string
	Tables    []string
	Columns   []string
	Condition *core.Condition
	Join      string
}

// String encodes the key with every name quoted, so distinct queries never
// share a key whatever characters their table and column names contain.
func (k QueryKey) String() string {
	condition := "-"
	if k.Condition != nil {
		condition = quoteList([]string{
			k.Condition.Column,
			string(k.Condition.Operator),
			core.Key(k.Condition.Value),
		})
	}
	return strings.Join([]string{
		strconv.Quote(k.Kind),
		quoteList(k.Tables),
		quoteList(k.Columns),
		condition,
		strconv.Quote(k.Join),
	}, "|")
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, value := range values {
		quoted[i] = strconv.Quote(value)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// QueryCache memoizes decrypted read results. Every entry remembers the
// version of each table it read; a write bumps the table version so stale
// entries are never served, even before the underlying cache evicts them.
type QueryCache struct {
	cache    cache.Cache
	mu       sync.Mutex
	versions map[string]uint64
	epoch    uint64
}

type cacheEntry struct {
	value    any
	epoch    uint64
	versions []uint64
}

func NewQueryCache(maxEntries int) *QueryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &QueryCache{
		cache:    cache.New(cache.WithMaximumSize(maxEntries)),
		versions: make(map[string]uint64),
	}
}

func (c *QueryCache) Get(key QueryKey) (any, bool) {
	id := key.String()

	value, ok := c.cache.GetIfPresent(id)
	if ok && !c.fresh(key, value.(cacheEntry)) {
		c.cache.Invalidate(id)
		ok = false
	}
	if !ok {
		cacheMissCounter.Inc(1)
		return nil, false
	}

	cacheHitCounter.Inc(1)
	return value.(cacheEntry).value, true
}

func (c *QueryCache) Put(key QueryKey, value any) {
	c.mu.Lock()
	entry := cacheEntry{value: value, epoch: c.epoch, versions: make([]uint64, len(key.Tables))}
	for i, table := range key.Tables {
		entry.versions[i] = c.versions[table]
	}
	c.mu.Unlock()

	c.cache.Put(key.String(), entry)
}

func (c *QueryCache) fresh(key QueryKey, entry cacheEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.epoch != c.epoch || len(entry.versions) != len(key.Tables) {
		return false
	}
	for i, table := range key.Tables {
		if entry.versions[i] != c.versions[table] {
			return false
		}
	}
	return true
}

// Invalidate drops every entry that read table.
func (c *QueryCache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[table]++
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	c.cache.InvalidateAll()
}

func (c *QueryCache) Close() error {
	return c.cache.Close()
}
