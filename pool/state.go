// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the per-pool reorg-safe state machine: an
// append-only chain of TokenStates plus the immutable TokenMeta that seeds
// it, with validators for buy/sell and operations to commit, roll back, and
// finalize states.
package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/ree/coin"
)

// TokenMeta is immutable once a pool is created.
type TokenMeta struct {
	ID           coin.CoinId
	Symbol       string
	ExchangeRate uint64 // fallback rate, used when no state carries its own
	MinAmount    *uint256.Int
}

// TokenState is one versioned snapshot of a pool, produced by exactly one
// executed transaction (or the zero value, for a pool with no history yet).
type TokenState struct {
	ID           *coin.Txid // nil for the default/empty state
	Nonce        uint64
	BTCBalance   uint64
	ExchangeRate *uint64 // rate in effect for this tx; nil only in the default state
	Timestamp    uint64  // unix nanoseconds
}

// defaultState is the all-zero/None state a pool starts from before its
// first executed transaction.
func defaultState() TokenState {
	return TokenState{}
}

// sameTxid reports whether two states were produced by the same
// transaction, treating "both nil" as not-equal (matching invariant 5: at
// most one state per txid, nil ids don't collide with each other).
func sameTxid(a, b *coin.Txid) bool {
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
