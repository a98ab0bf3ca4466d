// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/errs"
	"github.com/stretchr/testify/require"
)

func testTxid(b byte) coin.Txid {
	var t coin.Txid
	t[0] = b
	return t
}

func newTestPool() *Pool {
	return &Pool{
		Meta: TokenMeta{
			ID:           coin.Rune(840000, 1),
			Symbol:       "PXL",
			ExchangeRate: 100,
			MinAmount:    uint256.NewInt(1),
		},
		Addr: "bc1qtest",
	}
}

func buyIO(btc uint64, tokenID coin.CoinId, tokens *uint256.Int) ([]coin.InputCoin, []coin.OutputCoin) {
	return []coin.InputCoin{{Coin: coin.NewCoin(coin.Btc(), btc)}},
		[]coin.OutputCoin{{Coin: coin.Coin{ID: tokenID, Value: tokens}}}
}

func sellIO(tokens *uint256.Int, tokenID coin.CoinId, btc uint64) ([]coin.InputCoin, []coin.OutputCoin) {
	return []coin.InputCoin{{Coin: coin.Coin{ID: tokenID, Value: tokens}}},
		[]coin.OutputCoin{{Coin: coin.NewCoin(coin.Btc(), btc)}}
}

// Scenario 1: init+first buy.
func TestValidateBuy_FirstBuy(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))

	state, amount, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 42)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1_000_000), amount)
	require.Equal(t, uint64(1), state.Nonce)
	require.Equal(t, uint64(10_000), state.BTCBalance)
	require.Equal(t, uint64(100), *state.ExchangeRate)

	p.Commit(state)
	require.Equal(t, uint64(1), p.Latest().Nonce)
}

// Scenario 2: nonce replay.
func TestValidateBuy_NonceReplay(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	state, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(state)

	_, _, err = p.ValidateBuy(testTxid(2), 0, in, out, 100, 2)
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.TokenStateExpired, exchErr.Kind)
	require.Equal(t, uint64(1), exchErr.Nonce)
}

// Scenario 3: amount mismatch.
func TestValidateBuy_AmountMismatch(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(999_999))
	_, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.InvalidSignPsbtArgs, exchErr.Kind)
}

// Scenario 4: sell drains the reserve exactly.
func TestValidateSell_Drains(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	state, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(state)

	sIn, sOut := sellIO(uint256.NewInt(1_000_000), p.TokenID(), 10_000)
	sellState, btcAmount, err := p.ValidateSell(testTxid(2), 1, sIn, sOut, 100, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), btcAmount)
	require.Equal(t, uint64(0), sellState.BTCBalance)
}

// Scenario 5: reorg then replay.
func TestRollback_ThenReplay(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	state, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(state)

	require.NoError(t, p.Rollback(testTxid(1)))
	require.Empty(t, p.States)

	state2, _, err := p.ValidateBuy(testTxid(3), 0, in, out, 100, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(1), state2.Nonce)
}

func TestRollback_NotFoundIsIdempotentlyAnError(t *testing.T) {
	p := newTestPool()
	err := p.Rollback(testTxid(9))
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.InvalidState, exchErr.Kind)

	// I6: rollback called again for an already-rolled-back/never-existing
	// txid again returns InvalidState.
	err = p.Rollback(testTxid(9))
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.InvalidState, exchErr.Kind)
}

// I7: finalize then rollback of the same txid is disallowed by
// construction: once finalized, txid sits at index 0, and rolling back
// index 0 clears all history rather than erroring for "already finalized".
func TestFinalizeThenRollbackAsymmetry(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	state1, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(state1)

	require.NoError(t, p.Finalize(testTxid(1)))
	require.Equal(t, testTxid(1), *p.States[0].ID)

	require.NoError(t, p.Rollback(testTxid(1)))
	require.Empty(t, p.States)
}

func TestFinalize_TruncatesPrefix(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	s1, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(s1)

	in2, out2 := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	s2, _, err := p.ValidateBuy(testTxid(2), 1, in2, out2, 100, 2)
	require.NoError(t, err)
	p.Commit(s2)

	require.NoError(t, p.Finalize(testTxid(2)))
	require.Len(t, p.States, 1)
	require.Equal(t, testTxid(2), *p.States[0].ID)
	require.Equal(t, uint64(20_000), p.States[0].BTCBalance)
}

// I5: a buy whose BTC input does not fit the u64 satoshi domain returns
// Overflow with no state mutation, rather than wrapping.
func TestValidateBuy_Overflow(t *testing.T) {
	p := newTestPool()
	const maxU64 = ^uint64(0)
	// maxU64 * maxU64 = 2^128 - 2^65 + 1, still under the u128 ceiling
	// CalcBuy enforces, so the largest u64 operands never overflow it.
	expected, ok := CalcBuy(maxU64, maxU64)
	require.True(t, ok)
	require.Equal(t, new(uint256.Int).Mul(uint256.NewInt(maxU64), uint256.NewInt(maxU64)), expected)

	over := new(uint256.Int).AddUint64(uint256.NewInt(maxU64), 1)
	in := []coin.InputCoin{{Coin: coin.Coin{ID: coin.Btc(), Value: over}}}
	_, out := buyIO(maxU64, p.TokenID(), uint256.NewInt(1))
	_, _, err := p.ValidateBuy(testTxid(1), 0, in, out, maxU64, 1)
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.Overflow, exchErr.Kind)
	require.Empty(t, p.States)
}

func TestValidateSell_EmptyToken(t *testing.T) {
	p := newTestPool()
	sIn, sOut := sellIO(uint256.NewInt(100), p.TokenID(), 1)
	_, _, err := p.ValidateSell(testTxid(1), 0, sIn, sOut, 100, 1)
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.EmptyToken, exchErr.Kind)
}

func TestValidateSell_TooSmallFunds(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	state, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(state)

	sIn, sOut := sellIO(uint256.NewInt(100), p.TokenID(), 1)
	_, _, err = p.ValidateSell(testTxid(2), 1, sIn, sOut, 100, 2)
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.TooSmallFunds, exchErr.Kind)
}

func TestValidateSell_InsufficientBtc(t *testing.T) {
	p := newTestPool()
	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(1_000_000))
	state, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 100, 1)
	require.NoError(t, err)
	p.Commit(state)

	sIn, sOut := sellIO(uint256.NewInt(2_000_000), p.TokenID(), 20_000)
	_, _, err = p.ValidateSell(testTxid(2), 1, sIn, sOut, 100, 2)
	var exchErr *errs.Error
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, errs.InsufficientBtc, exchErr.Kind)
}

func TestCurrentRate_FallsBackToMeta(t *testing.T) {
	p := newTestPool()
	require.Equal(t, uint64(100), p.CurrentRate())

	in, out := buyIO(10_000, p.TokenID(), uint256.NewInt(500_000))
	state, _, err := p.ValidateBuy(testTxid(1), 0, in, out, 50, 1)
	require.NoError(t, err)
	p.Commit(state)
	require.Equal(t, uint64(50), p.CurrentRate())
}
