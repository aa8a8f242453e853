package kvstore

import (
	"context"
	"sync"
)

// MemoryTable is a map-backed Table and Scanner for tests and dry runs.
type MemoryTable struct {
	mu    sync.RWMutex
	rows  map[string]Item
	keys  KeySchema
	order []string // insertion order, keeps Scan deterministic
}

// NewMemoryTable creates an in-memory table identified by the given key
// attributes.
func NewMemoryTable(keys []string) *MemoryTable {
	return &MemoryTable{
		rows: make(map[string]Item),
		keys: KeySchema(keys),
	}
}

// GetItem returns a copy of the item stored under key, or ErrNotFound.
func (t *MemoryTable) GetItem(ctx context.Context, key Item) (Item, error) {
	canonical, err := t.keys.Canonical(key)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[canonical]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(row), nil
}

// PutItem stores a copy of item, replacing any previous row with the same
// key.
func (t *MemoryTable) PutItem(ctx context.Context, item Item) error {
	canonical, err := t.keys.Canonical(item)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[canonical]; !exists {
		t.order = append(t.order, canonical)
	}
	t.rows[canonical] = copyItem(item)
	return nil
}

// Scan returns copies of every stored item in insertion order.
func (t *MemoryTable) Scan(ctx context.Context) ([]Item, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	items := make([]Item, 0, len(t.rows))
	for _, canonical := range t.order {
		items = append(items, copyItem(t.rows[canonical]))
	}
	return items, nil
}

func copyItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
