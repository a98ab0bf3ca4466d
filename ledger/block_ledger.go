// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/iface"
)

// BlockInfo is the orchestrator's view of a confirmed block, carrying the
// txids it confirmed.
type BlockInfo struct {
	Height         uint32
	Hash           string
	Timestamp      uint64
	ConfirmedTxids []coin.Txid
}

// BlockLedger maps height -> BlockInfo. Keys are stored big-endian so
// NewIterator's lexicographic order matches ascending height.
type BlockLedger struct {
	store iface.Store
}

// NewBlockLedger wraps store for BlockInfo persistence.
func NewBlockLedger(store iface.Store) *BlockLedger {
	return &BlockLedger{store: store}
}

func heightKey(height uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], height)
	return b[:]
}

// Insert stores block, overwriting any existing entry at the same height.
func (l *BlockLedger) Insert(block BlockInfo) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(block); err != nil {
		return err
	}
	return l.store.Put(heightKey(block.Height), buf.Bytes())
}

// IterAscendingUpTo calls fn for every stored block with height <= maxHeight,
// in ascending height order, stopping early if fn returns an error.
func (l *BlockLedger) IterAscendingUpTo(maxHeight uint32, fn func(BlockInfo) error) error {
	it := l.store.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		if len(it.Key()) != 4 {
			continue
		}
		height := binary.BigEndian.Uint32(it.Key())
		if height > maxHeight {
			break
		}
		var block BlockInfo
		if err := gob.NewDecoder(bytes.NewReader(it.Value())).Decode(&block); err != nil {
			return err
		}
		if err := fn(block); err != nil {
			return err
		}
	}
	return it.Error()
}

// PruneUpTo deletes every stored block with height <= maxHeight.
func (l *BlockLedger) PruneUpTo(maxHeight uint32) error {
	var toDelete [][]byte
	it := l.store.NewIterator(nil)
	for it.Next() {
		if len(it.Key()) != 4 {
			continue
		}
		height := binary.BigEndian.Uint32(it.Key())
		if height > maxHeight {
			break
		}
		toDelete = append(toDelete, append([]byte{}, it.Key()...))
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return err
	}
	for _, k := range toDelete {
		if err := l.store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// QueryAll returns every stored block, in ascending height order.
func (l *BlockLedger) QueryAll() ([]BlockInfo, error) {
	var out []BlockInfo
	err := l.IterAscendingUpTo(^uint32(0), func(b BlockInfo) error {
		out = append(out, b)
		return nil
	})
	return out, err
}

// Count returns the number of stored blocks.
func (l *BlockLedger) Count() (uint64, error) {
	var n uint64
	it := l.store.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// Clear removes every stored block, used by the admin reset_blocks
// operation.
func (l *BlockLedger) Clear() error {
	return l.PruneUpTo(^uint32(0))
}
