// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package exchange wires the coin, pool, registry, ledger and exec
// packages into ExchangeService, the orchestrator-facing operation set.
package exchange

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/iface"
	"github.com/luxfi/ree/ledger"
)

// Action identifies which validator an Intention dispatches to.
type Action string

const (
	ActionBuy  Action = "buy_token"
	ActionSell Action = "sell_token"
)

// Intention is one orchestrator-declared operation against a pool, taken
// from intention_set[intention_index] in an execute_tx call. UtxoSpent/
// UtxoReceived are not passed to the pool validators and play no part in
// the nonce/rate/balance checks; on the sell path UtxoReceived is handed to
// the remote signer.
type Intention struct {
	PoolAddress  string
	Nonce        uint64
	Action       Action
	InputCoins   []coin.InputCoin
	OutputCoins  []coin.OutputCoin
	ActionParams []byte
	UtxoSpent    []string
	UtxoReceived []iface.Utxo
}

// IntentionSet is the full list of intentions carried by one PSBT;
// execute_tx acts on intention_set[intention_index].
type IntentionSet []Intention

// BuyOffer is the read-only quote pre_buy returns.
type BuyOffer struct {
	Nonce             uint64
	TokenAmount       *uint256.Int
	CurrentBTCBalance uint64
}

// SellOffer is the read-only quote pre_sell returns.
type SellOffer struct {
	Nonce          uint64
	BTCAmount      uint64
	CurrentBalance uint64
}

// PoolBasic is one row of get_pool_list.
type PoolBasic struct {
	Name    string
	Address string
}

// PoolInfo is the full get_pool_info response.
type PoolInfo struct {
	Key               string
	Name              string
	KeyDerivationPath [][]byte
	Address           string
	Nonce             uint64
	BTCReserved       uint64
	CoinReserved      []coin.Coin
	Utxos             []iface.Utxo
	Attributes        string
}

// NewBlockInfo is the input to new_block; it aliases ledger.BlockInfo since
// the orchestrator's block announcement and the persisted record share the
// same shape.
type NewBlockInfo = ledger.BlockInfo
