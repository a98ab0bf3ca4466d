// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package iface

import (
	luxdb "github.com/luxfi/database"
)

// luxStore adapts github.com/luxfi/database's Database (the same
// Has/Get/Put/Delete/NewIterator/Close shape the key-derivation and
// registry packages of the domain examples wrap) to this module's Store.
type luxStore struct {
	db luxdb.Database
}

// WrapLuxDatabase adapts a github.com/luxfi/database.Database (memdb.New()
// for both the tests and reectl's serve command) into a Store.
func WrapLuxDatabase(db luxdb.Database) Store {
	return &luxStore{db: db}
}

func (s *luxStore) Has(key []byte) (bool, error) { return s.db.Has(key) }

func (s *luxStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key)
	if err == luxdb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *luxStore) Put(key []byte, value []byte) error { return s.db.Put(key, value) }

func (s *luxStore) Delete(key []byte) error { return s.db.Delete(key) }

func (s *luxStore) NewIterator(prefix []byte) Iterator {
	return &luxIterator{it: s.db.NewIterator(prefix, nil)}
}

func (s *luxStore) Close() error { return s.db.Close() }

type luxIterator struct {
	it luxdb.Iterator
}

func (i *luxIterator) Next() bool       { return i.it.Next() }
func (i *luxIterator) Key() []byte      { return i.it.Key() }
func (i *luxIterator) Value() []byte    { return i.it.Value() }
func (i *luxIterator) Error() error     { return i.it.Error() }
func (i *luxIterator) Release()         { i.it.Release() }
