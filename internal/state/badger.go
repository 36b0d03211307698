// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "target:"

// badgerStore persists target state in an embedded badger database so change
// detection and incident tracking survive daemon restarts.
type badgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger-backed state store at dir.
func NewBadgerStore(dir string) (Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("state: open badger at %s: %w", dir, err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(_ context.Context, target string) (TargetState, error) {
	key := []byte(badgerKeyPrefix + target)
	var out TargetState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return TargetState{}, ErrNotFound
	}
	if err != nil {
		return TargetState{}, fmt.Errorf("state: badger get: %w", err)
	}
	return out, nil
}

func (s *badgerStore) Put(_ context.Context, st TargetState) error {
	key := []byte(badgerKeyPrefix + st.Target)
	buf, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
	if err != nil {
		return fmt.Errorf("state: badger put: %w", err)
	}
	return nil
}

func (s *badgerStore) All(_ context.Context) ([]TargetState, error) {
	var out []TargetState
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var st TargetState
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &st)
			}); err != nil {
				return err
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("state: badger scan: %w", err)
	}
	return out, nil
}

func (s *badgerStore) Close() error { return s.db.Close() }
