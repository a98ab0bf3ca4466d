// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"strconv"

	"github.com/holiman/uint256"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/errs"
	"github.com/luxfi/ree/iface"
)

// Pool (the original CanvasToken) is the per-pool state machine: immutable
// metadata and keys, plus an append-only chain of TokenStates. States[0] is
// the finalization boundary; States[len-1] is the latest provisional tip.
type Pool struct {
	Meta    TokenMeta
	Pubkey  iface.Pubkey
	Tweaked iface.Pubkey
	Addr    string
	States  []TokenState
}

// TokenID returns the pool's own coin identifier.
func (p *Pool) TokenID() coin.CoinId { return p.Meta.ID }

// DerivationPath is the Schnorr key-derivation path seed for this pool,
// one component: the token id's string form as bytes.
func (p *Pool) DerivationPath() [][]byte {
	return [][]byte{p.Meta.ID.Bytes()}
}

// Attrs renders the pool's display attributes for get_pool_info.
func (p *Pool) Attrs() string {
	return "exchange_rate:" + strconv.FormatUint(p.Meta.ExchangeRate, 10)
}

// Clone returns a copy of p whose States slice has its own backing array,
// safe for a caller to mutate via Commit/Rollback/Finalize without that
// mutation becoming visible through any other pointer to p until the
// caller explicitly persists it back (registry.Registry.Put). Meta,
// Pubkey and Tweaked are never mutated after pool creation, so a shallow
// copy of them is sufficient.
func (p *Pool) Clone() *Pool {
	states := make([]TokenState, len(p.States))
	copy(states, p.States)
	return &Pool{
		Meta:    p.Meta,
		Pubkey:  p.Pubkey,
		Tweaked: p.Tweaked,
		Addr:    p.Addr,
		States:  states,
	}
}

// Latest returns the most recent committed state, or the zero/default
// state if the pool has never executed a transaction.
func (p *Pool) Latest() TokenState {
	if len(p.States) == 0 {
		return defaultState()
	}
	return p.States[len(p.States)-1]
}

// CurrentRate is the rate in effect for the next calculation: the latest
// state's rate if set, else the pool's fallback meta rate.
func (p *Pool) CurrentRate() uint64 {
	if len(p.States) > 0 {
		if r := p.States[len(p.States)-1].ExchangeRate; r != nil {
			return *r
		}
	}
	return p.Meta.ExchangeRate
}

// CalcBuy computes the token amount minted for btc satoshis at rate,
// checked against u128 overflow (reported via ok=false).
func CalcBuy(btc uint64, rate uint64) (amount *uint256.Int, ok bool) {
	a := uint256.NewInt(btc)
	b := uint256.NewInt(rate)
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow || !fitsU128(out) {
		return nil, false
	}
	return out, true
}

// CalcSell computes the satoshi amount paid out for tokens sold at rate,
// truncated toward zero; ok=false on overflow converting to u64.
func CalcSell(tokens *uint256.Int, rate uint64) (btc uint64, ok bool) {
	if rate == 0 {
		return 0, false
	}
	q := new(uint256.Int).Div(tokens, uint256.NewInt(rate))
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}

// fitsU128 reports whether v fits in 128 bits, the domain spec.md mandates
// for token amounts even though it is stored in a 256-bit integer here.
func fitsU128(v *uint256.Int) bool {
	var hi uint256.Int
	hi.Rsh(v, 128)
	return hi.IsZero()
}

// ValidateBuy checks a buy_token intention against the pool's current
// state and, if valid, returns the resulting TokenState and minted token
// amount without mutating the pool. Preconditions are checked in the order
// spec.md §4.C lists them; the first failure aborts.
func (p *Pool) ValidateBuy(txid coin.Txid, nonce uint64, inputs []coin.InputCoin, outputs []coin.OutputCoin, rate uint64, now uint64) (TokenState, *uint256.Int, error) {
	if len(inputs) != 1 || len(outputs) != 1 {
		return TokenState{}, nil, errs.Newf(errs.InvalidSignPsbtArgs, "invalid input/output_coins, buy_token requires 1 BTC input and 1 Token output")
	}

	btcInput := inputs[0].Coin
	tokenOutput := outputs[0].Coin

	if !btcInput.ID.IsBtc() {
		return TokenState{}, nil, errs.Newf(errs.InvalidSignPsbtArgs, "invalid input_coin, buy_token requires BTC")
	}
	if tokenOutput.ID != p.TokenID() {
		return TokenState{}, nil, errs.Newf(errs.InvalidSignPsbtArgs, "invalid output_coin, wrong token type")
	}

	base := p.Latest()
	if base.Nonce != nonce {
		return TokenState{}, nil, errs.Expired(base.Nonce)
	}

	if !btcInput.Value.IsUint64() {
		return TokenState{}, nil, errs.New(errs.Overflow)
	}
	btc := btcInput.Value.Uint64()
	if btc < errs.MinBTCValue {
		return TokenState{}, nil, errs.New(errs.TooSmallFunds)
	}

	expected, ok := CalcBuy(btc, rate)
	if !ok {
		return TokenState{}, nil, errs.New(errs.Overflow)
	}
	if tokenOutput.Value.Cmp(expected) != 0 {
		return TokenState{}, nil, errs.Newf(errs.InvalidSignPsbtArgs, "token output amount mismatch with exchange rate")
	}

	newBalance, overflow := addOverflow(base.BTCBalance, btc)
	if overflow {
		return TokenState{}, nil, errs.New(errs.Overflow)
	}

	id := txid
	r := rate
	return TokenState{
		ID:           &id,
		Nonce:        base.Nonce + 1,
		BTCBalance:   newBalance,
		ExchangeRate: &r,
		Timestamp:    now,
	}, expected, nil
}

// ValidateSell mirrors ValidateBuy with directions reversed; the pool must
// already have a non-default state (EmptyToken otherwise).
func (p *Pool) ValidateSell(txid coin.Txid, nonce uint64, inputs []coin.InputCoin, outputs []coin.OutputCoin, rate uint64, now uint64) (TokenState, uint64, error) {
	if len(inputs) != 1 || len(outputs) != 1 {
		return TokenState{}, 0, errs.Newf(errs.InvalidSignPsbtArgs, "invalid input/output_coins, sell_token requires 1 Token input and 1 BTC output")
	}

	tokenInput := inputs[0].Coin
	btcOutput := outputs[0].Coin

	if tokenInput.ID != p.TokenID() {
		return TokenState{}, 0, errs.Newf(errs.InvalidSignPsbtArgs, "invalid input_coin, wrong token type")
	}
	if !btcOutput.ID.IsBtc() {
		return TokenState{}, 0, errs.Newf(errs.InvalidSignPsbtArgs, "invalid output_coin, sell_token requires BTC output")
	}

	if len(p.States) == 0 {
		return TokenState{}, 0, errs.New(errs.EmptyToken)
	}
	base := p.States[len(p.States)-1]

	if base.Nonce != nonce {
		return TokenState{}, 0, errs.Expired(base.Nonce)
	}

	expectedBtc, ok := CalcSell(tokenInput.Value, rate)
	if !ok {
		return TokenState{}, 0, errs.New(errs.Overflow)
	}
	if expectedBtc < errs.MinBTCValue {
		return TokenState{}, 0, errs.New(errs.TooSmallFunds)
	}

	if !btcOutput.Value.IsUint64() {
		return TokenState{}, 0, errs.New(errs.Overflow)
	}
	if btcOutput.Value.Uint64() != expectedBtc {
		return TokenState{}, 0, errs.Newf(errs.InvalidSignPsbtArgs, "BTC output amount mismatch with exchange rate")
	}

	if base.BTCBalance < expectedBtc {
		return TokenState{}, 0, errs.New(errs.InsufficientBtc)
	}
	newBalance := base.BTCBalance - expectedBtc

	id := txid
	r := rate
	return TokenState{
		ID:           &id,
		Nonce:        base.Nonce + 1,
		BTCBalance:   newBalance,
		ExchangeRate: &r,
		Timestamp:    now,
	}, expectedBtc, nil
}

// Commit appends state to the chain. The caller must have already run a
// validator; Commit performs no validation of its own.
func (p *Pool) Commit(state TokenState) {
	p.States = append(p.States, state)
}

// Rollback drops the state produced by txid and every state after it, since
// they all causally depend on it. If txid is the base (index 0), the whole
// provisional chain is dropped.
func (p *Pool) Rollback(txid coin.Txid) error {
	idx, found := p.indexOf(txid)
	if !found {
		return errs.Newf(errs.InvalidState, "txid not found")
	}
	if idx == 0 {
		p.States = nil
		return nil
	}
	p.States = p.States[:idx]
	return nil
}

// Finalize makes the state produced by txid the new base (index 0),
// pruning everything before it since it is no longer reachable by any
// reorg. A no-op if txid is already the base.
func (p *Pool) Finalize(txid coin.Txid) error {
	idx, found := p.indexOf(txid)
	if !found {
		return errs.Newf(errs.InvalidState, "txid not found")
	}
	if idx == 0 {
		return nil
	}
	p.States = append([]TokenState{}, p.States[idx:]...)
	return nil
}

func (p *Pool) indexOf(txid coin.Txid) (int, bool) {
	for i, s := range p.States {
		if sameTxid(s.ID, &txid) {
			return i, true
		}
	}
	return 0, false
}

func addOverflow(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}
