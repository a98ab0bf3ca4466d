// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger implements the two persistent indexes ExchangeService
// consults between pools and the orchestrator's view of the chain:
// TxLedger (which pools a txid touched, and at which confirmation tier)
// and BlockLedger (which txids a given height confirmed).
package ledger

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/iface"
)

// TxRecord lists the pool addresses a txid touched, insertion-ordered and
// duplicate-free — the Go analogue of the examples' utils.Set[T], but
// order-preserving since replay of pools touched matters for logging.
type TxRecord struct {
	Pools []string
}

// AddPool appends addr if not already present.
func (r *TxRecord) AddPool(addr string) {
	for _, p := range r.Pools {
		if p == addr {
			return
		}
	}
	r.Pools = append(r.Pools, addr)
}

// TxLedger maps (txid, confirmed) -> TxRecord. Confirmed and unconfirmed
// entries for the same txid are mutually exclusive (invariant 7): promote
// moves an entry instead of duplicating it.
type TxLedger struct {
	store iface.Store
}

// NewTxLedger wraps store for TxRecord persistence.
func NewTxLedger(store iface.Store) *TxLedger {
	return &TxLedger{store: store}
}

func txKey(txid coin.Txid, confirmed bool) []byte {
	tier := byte(0)
	if confirmed {
		tier = 1
	}
	return append([]byte{tier}, txid[:]...)
}

func encodeRecord(r TxRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(b []byte) (TxRecord, error) {
	var r TxRecord
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&r); err != nil {
		return TxRecord{}, err
	}
	return r, nil
}

func (l *TxLedger) get(txid coin.Txid, confirmed bool) (TxRecord, bool, error) {
	raw, err := l.store.Get(txKey(txid, confirmed))
	if err == iface.ErrNotFound {
		return TxRecord{}, false, nil
	}
	if err != nil {
		return TxRecord{}, false, err
	}
	r, err := decodeRecord(raw)
	return r, true, err
}

func (l *TxLedger) put(txid coin.Txid, confirmed bool, r TxRecord) error {
	raw, err := encodeRecord(r)
	if err != nil {
		return err
	}
	return l.store.Put(txKey(txid, confirmed), raw)
}

// RecordUnconfirmed upserts the unconfirmed entry for txid, adding pool if
// it is not already listed.
func (l *TxLedger) RecordUnconfirmed(txid coin.Txid, pool string) error {
	r, _, err := l.get(txid, false)
	if err != nil {
		return err
	}
	r.AddPool(pool)
	return l.put(txid, false, r)
}

// Promote moves the unconfirmed entry for txid to the confirmed tier; a
// no-op if no unconfirmed entry exists.
func (l *TxLedger) Promote(txid coin.Txid) error {
	r, found, err := l.get(txid, false)
	if err != nil || !found {
		return err
	}
	if err := l.put(txid, true, r); err != nil {
		return err
	}
	return l.store.Delete(txKey(txid, false))
}

// GetAny prefers the confirmed entry for txid, falling back to the
// unconfirmed one.
func (l *TxLedger) GetAny(txid coin.Txid) (TxRecord, bool, error) {
	if r, found, err := l.get(txid, true); err != nil {
		return TxRecord{}, false, err
	} else if found {
		return r, true, nil
	}
	return l.get(txid, false)
}

// Drop removes both the confirmed and unconfirmed entries for txid.
func (l *TxLedger) Drop(txid coin.Txid) error {
	if err := l.store.Delete(txKey(txid, false)); err != nil {
		return err
	}
	return l.store.Delete(txKey(txid, true))
}

// TxRecordInfo is the read-model row for query_tx_records.
type TxRecordInfo struct {
	Txid      string
	Confirmed bool
	Pools     []string
}

// QueryAll lists every (txid, confirmed) entry currently tracked, for the
// orchestrator-facing read-model.
func (l *TxLedger) QueryAll() ([]TxRecordInfo, error) {
	var out []TxRecordInfo
	it := l.store.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != 1+len(coin.Txid{}) {
			continue
		}
		var txid coin.Txid
		copy(txid[:], key[1:])
		r, err := decodeRecord(it.Value())
		if err != nil {
			return nil, fmt.Errorf("decode tx record %x: %w", key, err)
		}
		out = append(out, TxRecordInfo{Txid: txid.String(), Confirmed: key[0] == 1, Pools: r.Pools})
	}
	return out, it.Error()
}

// Count returns the number of (txid, confirmed) entries currently stored.
func (l *TxLedger) Count() (uint64, error) {
	var n uint64
	it := l.store.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// Clear removes every entry, used by the admin reset_tx_records operation.
func (l *TxLedger) Clear() error {
	it := l.store.NewIterator(nil)
	defer it.Release()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte{}, it.Key()...))
	}
	if err := it.Error(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := l.store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
