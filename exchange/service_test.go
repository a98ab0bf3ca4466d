// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package exchange

import (
	"context"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/errs"
	"github.com/luxfi/ree/iface"
	"github.com/luxfi/ree/ledger"
	"github.com/luxfi/ree/pool"
	"github.com/luxfi/ree/registry"
	"github.com/stretchr/testify/require"
)

// fakeKeyDeriver hands out deterministic, test-controlled addresses instead
// of calling out to a real Schnorr signer/HSM.
type fakeKeyDeriver struct {
	addr string
}

func (f *fakeKeyDeriver) Derive(ctx context.Context, keyName string, path [][]byte, network string) (iface.Pubkey, iface.Pubkey, string, error) {
	return iface.Pubkey{}, iface.Pubkey{}, f.addr, nil
}

// fakePsbtCodec round-trips a fixed hex string without touching the real
// wire format; ExecuteTx never inspects packet contents itself.
type fakePsbtCodec struct{}

func (fakePsbtCodec) DecodeHex(psbtHex string) (*psbt.Packet, error) {
	return &psbt.Packet{}, nil
}

func (fakePsbtCodec) SerializeHex(p *psbt.Packet) (string, error) {
	return "signed-psbt-hex", nil
}

// fakeSigner counts its calls and records the keyName it was asked to sign
// for.
type fakeSigner struct {
	mu      sync.Mutex
	calls   int
	lastKey string
}

func (f *fakeSigner) Sign(ctx context.Context, p *psbt.Packet, utxos []iface.Utxo, keyName string, path [][]byte) (*psbt.Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastKey = keyName
	return p, nil
}

func newTestStores() (*registry.Registry, *ledger.TxLedger, *ledger.BlockLedger) {
	reg, err := registry.New(iface.WrapLuxDatabase(memdb.New()))
	if err != nil {
		panic(err)
	}
	txs := ledger.NewTxLedger(iface.WrapLuxDatabase(memdb.New()))
	blocks := ledger.NewBlockLedger(iface.WrapLuxDatabase(memdb.New()))
	return reg, txs, blocks
}

func newTestService(t *testing.T, addr string) (*ExchangeService, *registry.Registry) {
	t.Helper()
	reg, txs, blocks := newTestStores()
	svc := New(reg, txs, blocks, &fakeKeyDeriver{addr: addr}, fakePsbtCodec{}, &fakeSigner{}, nil, "testnet", []string{"admin"}, []string{"orchestrator"})
	return svc, reg
}

func seedPool(t *testing.T, reg *registry.Registry, addr string, rate uint64) *pool.Pool {
	t.Helper()
	p := &pool.Pool{
		Meta: pool.TokenMeta{
			ID:           coin.Rune(1, 1),
			Symbol:       "PXL",
			ExchangeRate: rate,
			MinAmount:    uint256.NewInt(1),
		},
		Addr: addr,
	}
	require.NoError(t, reg.Put(p))
	return p
}

func buyIntentions(tokenID coin.CoinId, btc uint64, tokens uint64, poolAddr string, nonce uint64) IntentionSet {
	return IntentionSet{{
		PoolAddress: poolAddr,
		Nonce:       nonce,
		Action:      ActionBuy,
		InputCoins:  []coin.InputCoin{{Coin: coin.NewCoin(coin.Btc(), btc)}},
		OutputCoins: []coin.OutputCoin{{Coin: coin.Coin{ID: tokenID, Value: uint256.NewInt(tokens)}}},
	}}
}

func TestExecuteTx_Buy(t *testing.T) {
	svc, reg := newTestService(t, "bc1qtest")
	p := seedPool(t, reg, "bc1qtest", 100)

	var txid coin.Txid
	txid[0] = 1
	intents := buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0)

	out, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid, intents, 0)
	require.NoError(t, err)
	require.Equal(t, "signed-psbt-hex", out)

	got, ok := reg.Get(p.Addr)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.Latest().Nonce)

	rec, found, err := svc.txs.GetAny(txid)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{p.Addr}, rec.Pools)
}

func TestExecuteTx_SellInvokesSigner(t *testing.T) {
	reg, txs, blocks := newTestStores()
	signer := &fakeSigner{}
	svc := New(reg, txs, blocks, &fakeKeyDeriver{addr: "bc1qtest"}, fakePsbtCodec{}, signer, nil, "testnet", []string{"admin"}, []string{"orchestrator"})
	p := seedPool(t, reg, "bc1qtest", 100)

	var buyTxid coin.Txid
	buyTxid[0] = 1
	_, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", buyTxid,
		buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0), 0)
	require.NoError(t, err)

	var sellTxid coin.Txid
	sellTxid[0] = 2
	sellIntents := IntentionSet{{
		PoolAddress: p.Addr,
		Nonce:       1,
		Action:      ActionSell,
		InputCoins:  []coin.InputCoin{{Coin: coin.Coin{ID: p.TokenID(), Value: uint256.NewInt(1_000_000)}}},
		OutputCoins: []coin.OutputCoin{{Coin: coin.NewCoin(coin.Btc(), 10_000)}},
	}}
	out, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", sellTxid, sellIntents, 0)
	require.NoError(t, err)
	require.Equal(t, "signed-psbt-hex", out)

	signer.mu.Lock()
	defer signer.mu.Unlock()
	require.Equal(t, 1, signer.calls)
	require.Equal(t, p.Addr, signer.lastKey)
}

func TestExecuteTx_UnknownPool(t *testing.T) {
	svc, _ := newTestService(t, "bc1qtest")
	var txid coin.Txid
	intents := buyIntentions(coin.Rune(1, 1), 10_000, 1_000_000, "bc1qmissing", 0)
	_, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid, intents, 0)
	require.ErrorIs(t, err, errs.New(errs.InvalidToken))
}

func TestExecuteTx_RejectsConcurrentSamePool(t *testing.T) {
	svc, reg := newTestService(t, "bc1qtest")
	p := seedPool(t, reg, "bc1qtest", 100)

	guard, ok := svc.serial.Acquire(p.Addr)
	require.True(t, ok)
	defer guard.Release()

	var txid coin.Txid
	intents := buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0)
	_, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid, intents, 0)
	require.ErrorContains(t, err, "Executing")
}

func TestNewBlock_PromotesAndFinalizes(t *testing.T) {
	svc, reg := newTestService(t, "bc1qtest")
	p := seedPool(t, reg, "bc1qtest", 100)

	var txid1, txid2 coin.Txid
	txid1[0] = 1
	txid2[0] = 2

	_, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid1,
		buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0), 0)
	require.NoError(t, err)
	_, err = svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid2,
		buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 1), 0)
	require.NoError(t, err)

	require.NoError(t, svc.NewBlock("orchestrator", NewBlockInfo{Height: 1, ConfirmedTxids: []coin.Txid{txid1, txid2}}))

	// Not yet beyond reorg depth: promoted to confirmed, but still two
	// provisional states since nothing has been swept/finalized.
	got, ok := reg.Get(p.Addr)
	require.True(t, ok)
	require.Len(t, got.States, 2)
	require.Equal(t, txid1, *got.States[0].ID)

	require.NoError(t, svc.NewBlock("orchestrator", NewBlockInfo{Height: 1 + errs.ReorgDepth, ConfirmedTxids: nil}))

	got, ok = reg.Get(p.Addr)
	require.True(t, ok)
	require.Len(t, got.States, 1)
	require.Equal(t, txid2, *got.States[0].ID)

	blocks, txRecords, err := svc.BlocksTxRecordsCount()
	require.NoError(t, err)
	// Block 1 is at the safe height and pruned; block 1+ReorgDepth stays.
	require.Equal(t, uint64(1), blocks)
	require.Equal(t, uint64(0), txRecords)
}

func TestRollbackTx(t *testing.T) {
	svc, reg := newTestService(t, "bc1qtest")
	p := seedPool(t, reg, "bc1qtest", 100)

	var txid coin.Txid
	txid[0] = 1
	intents := buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0)
	_, err := svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid, intents, 0)
	require.NoError(t, err)

	require.NoError(t, svc.RollbackTx("orchestrator", txid))

	got, ok := reg.Get(p.Addr)
	require.True(t, ok)
	require.Empty(t, got.States)

	_, found, err := svc.txs.GetAny(txid)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPreBuyPreSell(t *testing.T) {
	svc, reg := newTestService(t, "bc1qtest")
	p := seedPool(t, reg, "bc1qtest", 100)

	offer, err := svc.PreBuy(p.Addr, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1_000_000), offer.TokenAmount)

	_, err = svc.PreBuy(p.Addr, 1)
	require.ErrorIs(t, err, errs.New(errs.TooSmallFunds))

	_, err = svc.PreSell(p.Addr, uint256.NewInt(1_000_000))
	require.ErrorIs(t, err, errs.New(errs.EmptyToken))

	var txid coin.Txid
	txid[0] = 1
	intents := buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0)
	_, err = svc.ExecuteTx(context.Background(), "orchestrator", "deadbeef", txid, intents, 0)
	require.NoError(t, err)

	sellOffer, err := svc.PreSell(p.Addr, uint256.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), sellOffer.BTCAmount)
}

func TestInitPool_RequiresController(t *testing.T) {
	svc, _ := newTestService(t, "bc1qderived")
	_, err := svc.InitPool(context.Background(), "nobody", 1, 1, "PXL", 100)
	require.ErrorIs(t, err, ErrNotAuthorized)

	info, err := svc.InitPool(context.Background(), "admin", 1, 1, "PXL", 100)
	require.NoError(t, err)
	require.Equal(t, "bc1qderived", info.Address)

	list := svc.GetPoolList()
	require.Len(t, list, 1)
	require.Equal(t, "PXL", list[0].Name)
}

func TestResetBlocksAndTxRecordsRequireController(t *testing.T) {
	svc, _ := newTestService(t, "bc1qtest")
	require.ErrorIs(t, svc.ResetBlocks("nobody"), ErrNotAuthorized)
	require.ErrorIs(t, svc.ResetTxRecords("nobody"), ErrNotAuthorized)
	require.NoError(t, svc.ResetBlocks("admin"))
	require.NoError(t, svc.ResetTxRecords("admin"))
}

func TestExecuteTxNewBlockRollbackTxRequireOrchestrator(t *testing.T) {
	svc, reg := newTestService(t, "bc1qtest")
	p := seedPool(t, reg, "bc1qtest", 100)

	var txid coin.Txid
	txid[0] = 1
	intents := buyIntentions(p.TokenID(), 10_000, 1_000_000, p.Addr, 0)

	_, err := svc.ExecuteTx(context.Background(), "nobody", "deadbeef", txid, intents, 0)
	require.ErrorIs(t, err, ErrNotAuthorized)

	require.ErrorIs(t, svc.NewBlock("nobody", NewBlockInfo{Height: 1}), ErrNotAuthorized)
	require.ErrorIs(t, svc.RollbackTx("nobody", txid), ErrNotAuthorized)

	// A controller principal is not automatically an orchestrator either.
	_, err = svc.ExecuteTx(context.Background(), "admin", "deadbeef", txid, intents, 0)
	require.ErrorIs(t, err, ErrNotAuthorized)
}
