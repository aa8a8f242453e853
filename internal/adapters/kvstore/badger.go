package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/scorecard/pkg/logger"
)

// BadgerTable implements Table and Scanner on an embedded badger database.
// Rows are natively keyed, so get/put map directly onto badger item
// operations; Scan iterates the table's key prefix.
type BadgerTable struct {
	db   *badger.DB
	name string
	keys KeySchema
	log  logger.Logger
}

// BadgerOption applies a configuration option to a BadgerTable.
type BadgerOption func(*BadgerTable)

// WithBadgerLogger sets a custom logger for the table.
func WithBadgerLogger(log logger.Logger) BadgerOption {
	return func(t *BadgerTable) {
		if log != nil {
			t.log = log
		}
	}
}

// OpenBadger opens the badger database backing every BadgerTable of one
// process. Callers own closing it.
func OpenBadger(path string, log logger.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogAdapter{log: log}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return db, nil
}

// NewBadgerTable creates a table named name whose items are identified by
// the given key attributes.
func NewBadgerTable(db *badger.DB, name string, keys []string, opts ...BadgerOption) *BadgerTable {
	t := &BadgerTable{
		db:   db,
		name: name,
		keys: KeySchema(keys),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// rowKey builds the badger key for the item's key attributes.
func (t *BadgerTable) rowKey(item Item) ([]byte, error) {
	canonical, err := t.keys.Canonical(item)
	if err != nil {
		return nil, err
	}
	return []byte(t.name + "/" + canonical), nil
}

// GetItem retrieves the item stored under key. Returns ErrNotFound when
// absent.
func (t *BadgerTable) GetItem(ctx context.Context, key Item) (Item, error) {
	rk, err := t.rowKey(key)
	if err != nil {
		return nil, err
	}

	var item Item
	err = t.db.View(func(txn *badger.Txn) error {
		row, err := txn.Get(rk)
		if err != nil {
			return err
		}
		return row.Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", t.name, err)
	}
	return item, nil
}

// PutItem stores item, replacing any previous row with the same key.
func (t *BadgerTable) PutItem(ctx context.Context, item Item) error {
	rk, err := t.rowKey(item)
	if err != nil {
		return err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serialize item for %s: %w", t.name, err)
	}
	if err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rk, data)
	}); err != nil {
		return fmt.Errorf("badger put %s: %w", t.name, err)
	}
	return nil
}

// Scan returns every item in the table.
func (t *BadgerTable) Scan(ctx context.Context) ([]Item, error) {
	prefix := []byte(t.name + "/")
	var items []Item
	err := t.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var item Item
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger scan %s: %w", t.name, err)
	}
	return items, nil
}

// badgerLogAdapter routes badger's internal logging through the service
// logger.
type badgerLogAdapter struct {
	log logger.Logger
}

func (a *badgerLogAdapter) logf(level func(context.Context, string, ...logger.Field), format string, args ...any) {
	level(context.Background(), fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Errorf(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.logf(a.log.Error, format, args...)
}

func (a *badgerLogAdapter) Warningf(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.logf(a.log.Warn, format, args...)
}

// Badger is chatty at info level; keep its internals at debug.
func (a *badgerLogAdapter) Infof(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.logf(a.log.Debug, format, args...)
}

func (a *badgerLogAdapter) Debugf(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.logf(a.log.Debug, format, args...)
}
