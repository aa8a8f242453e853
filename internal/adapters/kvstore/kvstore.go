// Package kvstore defines the storage backend contract for claim and flag
// items, plus the implementations that satisfy it.
package kvstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Item is a raw table row. Key attributes identify the item; every other
// attribute is opaque to the store and passed through unchanged.
type Item map[string]any

// Table provides independent get/put access to items under a composite key.
type Table interface {
	// GetItem returns the item stored under the key attributes of key.
	// Returns ErrNotFound when no such item exists.
	GetItem(ctx context.Context, key Item) (Item, error)

	// PutItem stores item under its key attributes, replacing any
	// previous item with the same key.
	PutItem(ctx context.Context, item Item) error
}

// Scanner lists every item in a table. Only the flag definition table needs
// this; claim backends may omit it.
type Scanner interface {
	Scan(ctx context.Context) ([]Item, error)
}

// KeySchema is the ordered set of attribute names that identify an item in
// a table.
type KeySchema []string

// Extract returns exactly the key attributes of item. Any declared key
// attribute missing from item yields a MissingKeysError naming all absent
// attributes; extra attributes are ignored.
func (s KeySchema) Extract(item Item) (Item, error) {
	key := make(Item, len(s))
	var missing []string
	for _, name := range s {
		v, ok := item[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		key[name] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingKeysError{Missing: missing}
	}
	return key, nil
}

// Canonical serializes the key attributes of item into a deterministic
// form: attribute names sorted, numeric values normalized, compact JSON.
// Two items with equal key attributes always canonicalize identically.
func (s KeySchema) Canonical(item Item) (string, error) {
	key, err := s.Extract(item)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf []byte
	buf = append(buf, '{')
	for i, name := range names {
		if i > 0 {
			buf = append(buf, ',')
		}
		n, err := json.Marshal(name)
		if err != nil {
			return "", fmt.Errorf("canonicalize key %q: %w", name, err)
		}
		v, err := json.Marshal(normalize(key[name]))
		if err != nil {
			return "", fmt.Errorf("canonicalize value of %q: %w", name, err)
		}
		buf = append(buf, n...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	buf = append(buf, '}')
	return string(buf), nil
}

// Digest returns the SHA-256 hex digest of the canonical key encoding.
// Content-addressed backends use it as a stable, collision-resistant
// object name.
func (s KeySchema) Digest(item Item) (string, error) {
	canonical, err := s.Canonical(item)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// normalize collapses the integer encodings a key value may arrive in so
// that an item written with int and read back with float64 (after a JSON
// round trip) addresses the same object.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
