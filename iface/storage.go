// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package iface collects the interfaces this module consumes from external
// collaborators: persistent key/value storage, the Schnorr key-derivation
// service, the PSBT codec, the remote signer, and the pixel canvas. None of
// these are implemented here beyond thin adapters — they are boundaries.
package iface

import "errors"

// ErrNotFound is returned by Store.Get when the key is absent.
var ErrNotFound = errors.New("not found")

// Store is the persistence primitive every stateful package (registry,
// ledger) is built on. Production wiring backs it with
// github.com/luxfi/database; tests use its in-memory memdb implementation.
type Store interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	Close() error
}

// Iterator walks a Store's keys in ascending lexicographic order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}
