package ps

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/pkg/errors"
)

// Index maps the plaintext key of a column value to the position of the most
// recently inserted row holding that value.
type Index struct {
	Table   string         `json:"table"`
	Column  string         `json:"column"`
	Entries map[string]int `json:"entries"`
}

// IndexEntry is a single key and the row position it points at.
type IndexEntry struct {
	Key      string
	Position int
}

// Insert points key at position, replacing any earlier position.
func (idx *Index) Insert(key string, position int) {
	idx.Entries[key] = position
}

// Lookup finds the row position for key.
func (idx *Index) Lookup(key string) (int, bool) {
	position, ok := idx.Entries[key]
	return position, ok
}

// Ordered returns the entries sorted by ascending row position.
func (idx *Index) Ordered() []IndexEntry {
	entries := make([]IndexEntry, 0, len(idx.Entries))
	for key, position := range idx.Entries {
		entries = append(entries, IndexEntry{Key: key, Position: position})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

func (idx *Index) clone() *Index {
	entries := make(map[string]int, len(idx.Entries))
	for key, position := range idx.Entries {
		entries[key] = position
	}
	return &Index{Table: idx.Table, Column: idx.Column, Entries: entries}
}

// IndexManager holds one index per (table, column).
type IndexManager struct {
	indexes map[string]*Index // key: table.column
	mu      sync.RWMutex
}

func NewIndexManager() *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*Index),
	}
}

func indexKey(table, column string) string {
	return fmt.Sprintf("%s.%s", table, column)
}

// CreateIndexes registers an empty index for every column of table.
func (im *IndexManager) CreateIndexes(table string, columns []core.Column) {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, column := range columns {
		im.indexes[indexKey(table, column.Name)] = &Index{
			Table:   table,
			Column:  column.Name,
			Entries: make(map[string]int),
		}
	}
}

// GetIndex retrieves an existing index
func (im *IndexManager) GetIndex(table, column string) (*Index, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	idx, exists := im.indexes[indexKey(table, column)]
	return idx, exists
}

// Insert points key at position in the index of (table, column).
func (im *IndexManager) Insert(table, column, key string, position int) error {
	idx, ok := im.GetIndex(table, column)
	if !ok {
		return errors.Wrapf(core.ErrColumnNotFound, "no index on %s.%s", table, column)
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	idx.Insert(key, position)
	return nil
}

// Lookup finds the row position stored for key in the index of (table, column).
func (im *IndexManager) Lookup(table, column, key string) (int, bool) {
	idx, ok := im.GetIndex(table, column)
	if !ok {
		return 0, false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()
	return idx.Lookup(key)
}

// Rebuild replaces the index of (table, column) with one built from keys,
// where keys[i] is the key of the row at position i.
func (im *IndexManager) Rebuild(table, column string, keys []string) error {
	idx, ok := im.GetIndex(table, column)
	if !ok {
		return errors.Wrapf(core.ErrColumnNotFound, "no index on %s.%s", table, column)
	}

	entries := make(map[string]int, len(keys))
	for position, key := range keys {
		entries[key] = position
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	idx.Entries = entries
	return nil
}

// Clone returns a deep copy of every index.
func (im *IndexManager) Clone() *IndexManager {
	im.mu.RLock()
	defer im.mu.RUnlock()

	clone := NewIndexManager()
	for key, idx := range im.indexes {
		clone.indexes[key] = idx.clone()
	}
	return clone
}
