// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package coin defines the value types shared by every pool: the tagged
// CoinId identifier (native BTC or a rune), coin amounts, and the 32-byte
// Bitcoin transaction id.
package coin

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// Kind tags a CoinId as either native BTC or a rune (block:tx) identifier.
type Kind uint8

const (
	KindBtc Kind = iota
	KindRune
)

// CoinId is a structural identifier for the asset side of a coin flow.
// Two CoinIds are equal iff their Kind and (for runes) Block/Tx match.
type CoinId struct {
	Kind  Kind
	Block uint64
	Tx    uint32
}

// Btc returns the CoinId for native Bitcoin.
func Btc() CoinId { return CoinId{Kind: KindBtc} }

// Rune returns the CoinId for a rune minted at the given block/tx, mirroring
// CoinId::rune(block, tx) in the original source.
func Rune(block uint64, tx uint32) CoinId {
	return CoinId{Kind: KindRune, Block: block, Tx: tx}
}

// IsBtc reports whether id identifies native BTC.
func (id CoinId) IsBtc() bool { return id.Kind == KindBtc }

// String renders "btc" for native BTC or "block:tx" for a rune; this is
// also the byte seed used as the Schnorr key derivation path for a pool.
func (id CoinId) String() string {
	if id.IsBtc() {
		return "btc"
	}
	return fmt.Sprintf("%d:%d", id.Block, id.Tx)
}

// Bytes returns the UTF-8 encoding of String(), used as a key-derivation
// path component.
func (id CoinId) Bytes() []byte { return []byte(id.String()) }

// Coin pairs an asset identifier with an amount. Amounts live in the u128
// domain (per spec), represented with a checked 256-bit integer so that
// buy/sell arithmetic can report overflow instead of wrapping.
type Coin struct {
	ID    CoinId
	Value *uint256.Int
}

// NewCoin builds a Coin from a uint64 amount.
func NewCoin(id CoinId, value uint64) Coin {
	return Coin{ID: id, Value: uint256.NewInt(value)}
}

// InputCoin is a coin consumed by an exchange intention.
type InputCoin struct{ Coin Coin }

// OutputCoin is a coin produced by an exchange intention.
type OutputCoin struct{ Coin Coin }

// Txid is a 32-byte Bitcoin transaction identifier.
type Txid [32]byte

// String renders the txid as lowercase hex.
func (t Txid) String() string { return hex.EncodeToString(t[:]) }

// ParseTxid decodes a hex-encoded 32-byte txid.
func ParseTxid(s string) (Txid, error) {
	var t Txid
	b, err := hex.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("invalid txid: %w", err)
	}
	if len(b) != len(t) {
		return t, fmt.Errorf("invalid txid: expected %d bytes, got %d", len(t), len(b))
	}
	copy(t[:], b)
	return t, nil
}
