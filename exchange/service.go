// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package exchange

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/errs"
	"github.com/luxfi/ree/exec"
	"github.com/luxfi/ree/iface"
	"github.com/luxfi/ree/ledger"
	logpkg "github.com/luxfi/ree/log"
	"github.com/luxfi/ree/metrics"
	"github.com/luxfi/ree/pool"
	"github.com/luxfi/ree/registry"
)

// ExchangeService orchestrates execute_tx/new_block/rollback_tx/pre_buy/
// pre_sell/init_pool against the pool registry and ledgers, guarded by the
// per-pool execution serializer.
type ExchangeService struct {
	pools   *registry.Registry
	txs     *ledger.TxLedger
	blocks  *ledger.BlockLedger
	serial  *exec.Serializer
	keys    iface.KeyDeriver
	psbts   iface.PsbtCodec
	signer  iface.RemoteSigner
	log     logpkg.Logger
	metrics *metrics.Collector

	// controllers is the allow-list of principals authorized to call
	// init_pool/reset_blocks/reset_tx_records.
	controllers map[string]struct{}
	// orchestrators is the allow-list of principals authorized to call
	// execute_tx/new_block/rollback_tx.
	orchestrators map[string]struct{}
	network       string
}

// New builds an ExchangeService over the given persistence handles and
// external collaborators. controllers lists the principals authorized for
// controller-tier operations; orchestrators lists the principals
// authorized for execute_tx/new_block/rollback_tx.
func New(
	pools *registry.Registry,
	txs *ledger.TxLedger,
	blocks *ledger.BlockLedger,
	keys iface.KeyDeriver,
	psbts iface.PsbtCodec,
	signer iface.RemoteSigner,
	metricsCollector *metrics.Collector,
	network string,
	controllers []string,
	orchestrators []string,
) *ExchangeService {
	allow := make(map[string]struct{}, len(controllers))
	for _, c := range controllers {
		allow[c] = struct{}{}
	}
	allowOrch := make(map[string]struct{}, len(orchestrators))
	for _, o := range orchestrators {
		allowOrch[o] = struct{}{}
	}
	return &ExchangeService{
		pools:         pools,
		txs:           txs,
		blocks:        blocks,
		serial:        exec.NewSerializer(),
		keys:          keys,
		psbts:         psbts,
		signer:        signer,
		log:           logpkg.New("exchange"),
		metrics:       metricsCollector,
		controllers:   allow,
		orchestrators: allowOrch,
		network:       network,
	}
}

// ErrNotAuthorized is returned by controller-tier or orchestrator-tier
// operations when the caller principal is not in the relevant allow-list.
var ErrNotAuthorized = fmt.Errorf("Not authorized")

func (s *ExchangeService) requireController(principal string) error {
	if _, ok := s.controllers[principal]; !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (s *ExchangeService) requireOrchestrator(principal string) error {
	if _, ok := s.orchestrators[principal]; !ok {
		return ErrNotAuthorized
	}
	return nil
}

func currentTimestamp() uint64 {
	return uint64(time.Now().UnixNano())
}

// rateFromParams decodes a big-endian uint64 exchange-rate override from
// actionParams, falling back to errs.DefaultRate when absent or short.
func rateFromParams(actionParams []byte) uint64 {
	if len(actionParams) < 8 {
		return errs.DefaultRate
	}
	return binary.BigEndian.Uint64(actionParams[:8])
}

// ExecuteTx decodes psbtHex, applies intentionSet[intentionIndex] against
// the named pool, and returns the (possibly re-signed) PSBT hex. principal
// must be an orchestrator.
func (s *ExchangeService) ExecuteTx(ctx context.Context, principal string, psbtHex string, txid coin.Txid, intentions IntentionSet, intentionIndex int) (string, error) {
	if err := s.requireOrchestrator(principal); err != nil {
		return "", err
	}
	packet, err := s.psbts.DecodeHex(psbtHex)
	if err != nil {
		return "", fmt.Errorf("invalid psbt: %w", err)
	}
	if intentionIndex < 0 || intentionIndex >= len(intentions) {
		return "", fmt.Errorf("invalid method: intention_index out of range")
	}
	intent := intentions[intentionIndex]

	guard, ok := s.serial.Acquire(intent.PoolAddress)
	if !ok {
		s.metrics.ObserveRejectedExecute()
		return "", fmt.Errorf("Token %s Executing", intent.PoolAddress)
	}
	defer guard.Release()

	p, found := s.pools.Get(intent.PoolAddress)
	if !found {
		return "", errs.New(errs.InvalidToken)
	}

	rate := rateFromParams(intent.ActionParams)
	now := currentTimestamp()

	var newState pool.TokenState
	switch intent.Action {
	case ActionBuy:
		newState, _, err = p.ValidateBuy(txid, intent.Nonce, intent.InputCoins, intent.OutputCoins, rate, now)
		if err != nil {
			return "", err
		}
	case ActionSell:
		newState, _, err = p.ValidateSell(txid, intent.Nonce, intent.InputCoins, intent.OutputCoins, rate, now)
		if err != nil {
			return "", err
		}
		if packet, err = s.signer.Sign(ctx, packet, intent.UtxoReceived, intent.PoolAddress, p.DerivationPath()); err != nil {
			return "", fmt.Errorf("sign psbt: %w", err)
		}
	default:
		return "", fmt.Errorf("invalid method: unknown action %q", intent.Action)
	}

	p.Commit(newState)
	if err := s.pools.Put(p); err != nil {
		return "", fmt.Errorf("persist pool: %w", err)
	}
	if err := s.txs.RecordUnconfirmed(txid, intent.PoolAddress); err != nil {
		return "", fmt.Errorf("record tx: %w", err)
	}

	s.metrics.ObserveExecuted(string(intent.Action))
	s.log.Info("executed intention", "pool", intent.PoolAddress, "action", intent.Action, "nonce", newState.Nonce)

	return s.psbts.SerializeHex(packet)
}

// NewBlock inserts block, promotes the confirmed txids' ledger entries,
// and finalizes every pool touched by a block beyond the reorg depth.
// principal must be an orchestrator.
func (s *ExchangeService) NewBlock(principal string, block NewBlockInfo) error {
	if err := s.requireOrchestrator(principal); err != nil {
		return err
	}
	if err := s.blocks.Insert(block); err != nil {
		return err
	}
	for _, txid := range block.ConfirmedTxids {
		if err := s.txs.Promote(txid); err != nil {
			return fmt.Errorf("promote %s: %w", txid, err)
		}
	}

	safeHeight := uint32(0)
	if block.Height > errs.ReorgDepth {
		safeHeight = block.Height - errs.ReorgDepth
	}

	finalized := 0
	err := s.blocks.IterAscendingUpTo(safeHeight, func(b ledger.BlockInfo) error {
		for _, txid := range b.ConfirmedTxids {
			rec, found, err := s.txs.GetAny(txid)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			for _, addr := range rec.Pools {
				p, ok := s.pools.Get(addr)
				if !ok {
					s.log.Warn("finalize: pool not found", "pool", addr, "txid", txid)
					continue
				}
				if err := p.Finalize(txid); err != nil {
					s.log.Warn("finalize failed", "pool", addr, "txid", txid, "err", err)
					continue
				}
				if err := s.pools.Put(p); err != nil {
					return fmt.Errorf("persist finalized pool %s: %w", addr, err)
				}
				finalized++
			}
			if err := s.txs.Drop(txid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveFinalized(finalized)
	return s.blocks.PruneUpTo(safeHeight)
}

// RollbackTx rolls back every pool touched by txid, logging (but not
// failing on) per-pool errors, then drops the ledger entries. principal
// must be an orchestrator.
func (s *ExchangeService) RollbackTx(principal string, txid coin.Txid) error {
	if err := s.requireOrchestrator(principal); err != nil {
		return err
	}
	rec, found, err := s.txs.GetAny(txid)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("rollback_tx: no record for txid %s", txid)
	}

	for _, addr := range rec.Pools {
		p, ok := s.pools.Get(addr)
		if !ok {
			s.log.Warn("rollback: pool not found", "pool", addr, "txid", txid)
			continue
		}
		if err := p.Rollback(txid); err != nil {
			s.log.Warn("rollback failed", "pool", addr, "txid", txid, "err", err)
			continue
		}
		if err := s.pools.Put(p); err != nil {
			return fmt.Errorf("persist rolled-back pool %s: %w", addr, err)
		}
	}

	s.metrics.ObserveRollback()
	return s.txs.Drop(txid)
}

// PreBuy quotes a buy_token intention without mutating any state.
func (s *ExchangeService) PreBuy(poolAddr string, btcAmount uint64) (BuyOffer, error) {
	if btcAmount < errs.MinBTCValue {
		return BuyOffer{}, errs.New(errs.TooSmallFunds)
	}
	p, found := s.pools.Get(poolAddr)
	if !found {
		return BuyOffer{}, errs.New(errs.InvalidToken)
	}
	tokenAmount, ok := pool.CalcBuy(btcAmount, p.CurrentRate())
	if !ok {
		return BuyOffer{}, errs.New(errs.Overflow)
	}
	latest := p.Latest()
	return BuyOffer{Nonce: latest.Nonce, TokenAmount: tokenAmount, CurrentBTCBalance: latest.BTCBalance}, nil
}

// PreSell quotes a sell_token intention without mutating any state.
func (s *ExchangeService) PreSell(poolAddr string, tokenAmount *uint256.Int) (SellOffer, error) {
	p, found := s.pools.Get(poolAddr)
	if !found {
		return SellOffer{}, errs.New(errs.InvalidToken)
	}
	if len(p.States) == 0 {
		return SellOffer{}, errs.New(errs.EmptyToken)
	}
	latest := p.Latest()
	btcAmount, ok := pool.CalcSell(tokenAmount, p.CurrentRate())
	if !ok {
		return SellOffer{}, errs.New(errs.Overflow)
	}
	if btcAmount < errs.MinBTCValue {
		return SellOffer{}, errs.New(errs.TooSmallFunds)
	}
	if latest.BTCBalance < btcAmount {
		return SellOffer{}, errs.New(errs.InsufficientBtc)
	}
	return SellOffer{Nonce: latest.Nonce, BTCAmount: btcAmount, CurrentBalance: latest.BTCBalance}, nil
}

// InitPool derives a fresh pool address for CoinId.Rune(block, tx) and
// registers an empty-history pool. principal must be a controller.
func (s *ExchangeService) InitPool(ctx context.Context, principal string, block uint64, tx uint32, symbol string, exchangeRate uint64) (PoolInfo, error) {
	if err := s.requireController(principal); err != nil {
		return PoolInfo{}, err
	}
	if exchangeRate == 0 {
		return PoolInfo{}, errs.Newf(errs.InvalidState, "exchange_rate must be > 0")
	}

	id := coin.Rune(block, tx)
	keyName := id.String()
	path := [][]byte{id.Bytes()}

	pubkey, tweaked, addr, err := s.keys.Derive(ctx, keyName, path, s.network)
	if err != nil {
		return PoolInfo{}, fmt.Errorf("derive key: %w", err)
	}

	p := &pool.Pool{
		Meta: pool.TokenMeta{
			ID:           id,
			Symbol:       symbol,
			ExchangeRate: exchangeRate,
		},
		Pubkey:  pubkey,
		Tweaked: tweaked,
		Addr:    addr,
	}
	if err := s.pools.Put(p); err != nil {
		return PoolInfo{}, err
	}
	s.metrics.SetPoolsGauge(s.pools.Len())
	s.log.Info("pool initialized", "pool", addr, "symbol", symbol, "rate", exchangeRate)

	return s.poolInfo(p), nil
}

func (s *ExchangeService) poolInfo(p *pool.Pool) PoolInfo {
	latest := p.Latest()
	return PoolInfo{
		Key:               p.Meta.ID.String(),
		Name:              p.Meta.Symbol,
		KeyDerivationPath: p.DerivationPath(),
		Address:           p.Addr,
		Nonce:             latest.Nonce,
		BTCReserved:       latest.BTCBalance,
		Attributes:        p.Attrs(),
	}
}

// GetPoolList returns every registered pool's name/address.
func (s *ExchangeService) GetPoolList() []PoolBasic {
	list := s.pools.List()
	out := make([]PoolBasic, len(list))
	for i, p := range list {
		out[i] = PoolBasic{Name: p.Meta.Symbol, Address: p.Addr}
	}
	return out
}

// GetPoolInfo returns the full info for poolAddr, or found=false if no such
// pool is registered.
func (s *ExchangeService) GetPoolInfo(poolAddr string) (PoolInfo, bool) {
	p, ok := s.pools.Get(poolAddr)
	if !ok {
		return PoolInfo{}, false
	}
	return s.poolInfo(p), true
}

// GetMinimalTxValue returns the minimum satoshi value accepted on either
// side of a buy or sell.
func (s *ExchangeService) GetMinimalTxValue() uint64 {
	return errs.MinBTCValue
}

// QueryTxRecords lists every tracked (txid, confirmed) ledger entry.
func (s *ExchangeService) QueryTxRecords() ([]ledger.TxRecordInfo, error) {
	return s.txs.QueryAll()
}

// QueryBlocks lists every currently tracked block, ascending by height.
func (s *ExchangeService) QueryBlocks() ([]ledger.BlockInfo, error) {
	return s.blocks.QueryAll()
}

// BlocksTxRecordsCount returns the number of tracked blocks and tx records.
func (s *ExchangeService) BlocksTxRecordsCount() (blocks uint64, txRecords uint64, err error) {
	blocks, err = s.blocks.Count()
	if err != nil {
		return 0, 0, err
	}
	txRecords, err = s.txs.Count()
	return blocks, txRecords, err
}

// ResetBlocks clears the block ledger. principal must be a controller.
func (s *ExchangeService) ResetBlocks(principal string) error {
	if err := s.requireController(principal); err != nil {
		return err
	}
	return s.blocks.Clear()
}

// ResetTxRecords clears the tx ledger. principal must be a controller.
func (s *ExchangeService) ResetTxRecords(principal string) error {
	if err := s.requireController(principal); err != nil {
		return err
	}
	return s.txs.Clear()
}
