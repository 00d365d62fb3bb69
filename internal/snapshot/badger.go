package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

const defaultBadgerKey = "snapshot:reviewgraph"

// BadgerStore keeps a snapshot under one key of a badger database.
type BadgerStore struct {
	db  *badger.DB
	key []byte
	own bool
}

// OpenBadger opens (or creates) a badger database at dir and returns a store
// that closes it on Close. An empty dir opens an in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s := NewBadgerStore(db, "")
	s.own = true
	return s, nil
}

// NewBadgerStore wraps an open database. The caller keeps ownership of db.
// An empty key selects the default.
func NewBadgerStore(db *badger.DB, key string) *BadgerStore {
	if key == "" {
		key = defaultBadgerKey
	}
	return &BadgerStore{db: db, key: []byte(key)}
}

func (s *BadgerStore) Load(ctx context.Context) (*reviewgraph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}

func (s *BadgerStore) Save(ctx context.Context, g *reviewgraph.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(g)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	}); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *BadgerStore) Invalidate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close releases the database when the store opened it.
func (s *BadgerStore) Close() error {
	if !s.own {
		return nil
	}
	return s.db.Close()
}
