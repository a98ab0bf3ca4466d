// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpcapi exposes ExchangeService over JSON-RPC, one gorilla/rpc
// service per auth tier: PublicAPI (quotes and reads), OrchestratorAPI
// (execute_tx/new_block/rollback_tx), ControllerAPI (init_pool and the
// admin reset operations).
package rpcapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json2"
	"github.com/holiman/uint256"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/exchange"
	"github.com/luxfi/ree/ledger"
)

// principalFromRequest extracts the caller principal from the
// X-REE-Principal header. Production deployments front this with a real
// auth proxy; here it is the literal header value, matching the orchestrator/controller allow-list
// comparisons ExchangeService already performs.
func principalFromRequest(r *http.Request) string {
	return r.Header.Get("X-REE-Principal")
}

// NewRouter registers PublicAPI, OrchestratorAPI and ControllerAPI on a
// fresh gorilla/mux router, one gorilla/rpc JSON-RPC endpoint per tier so
// each can sit behind its own reverse-proxy auth policy.
func NewRouter(svc *exchange.ExchangeService) *mux.Router {
	r := mux.NewRouter()

	public := rpc.NewServer()
	public.RegisterCodec(json2.NewCodec(), "application/json")
	public.RegisterService(&PublicAPI{svc: svc}, "")
	r.Handle("/rpc/public", public)

	orchestrator := rpc.NewServer()
	orchestrator.RegisterCodec(json2.NewCodec(), "application/json")
	orchestrator.RegisterService(&OrchestratorAPI{svc: svc}, "")
	r.Handle("/rpc/orchestrator", orchestrator)

	controller := rpc.NewServer()
	controller.RegisterCodec(json2.NewCodec(), "application/json")
	controller.RegisterService(&ControllerAPI{svc: svc}, "")
	r.Handle("/rpc/controller", controller)

	return r
}

// PublicAPI serves the unauthenticated quote/read operations.
type PublicAPI struct {
	svc *exchange.ExchangeService
}

type GetPoolListArgs struct{}

// GetPoolList implements get_pool_list.
func (a *PublicAPI) GetPoolList(r *http.Request, args *GetPoolListArgs, reply *[]exchange.PoolBasic) error {
	*reply = a.svc.GetPoolList()
	return nil
}

type GetPoolInfoArgs struct {
	PoolAddress string `json:"pool_address"`
}

type GetPoolInfoReply struct {
	Pool  *exchange.PoolInfo `json:"pool,omitempty"`
	Found bool               `json:"found"`
}

// GetPoolInfo implements get_pool_info.
func (a *PublicAPI) GetPoolInfo(r *http.Request, args *GetPoolInfoArgs, reply *GetPoolInfoReply) error {
	info, found := a.svc.GetPoolInfo(args.PoolAddress)
	reply.Found = found
	if found {
		reply.Pool = &info
	}
	return nil
}

type GetMinimalTxValueArgs struct{}

// GetMinimalTxValue implements get_minimal_tx_value.
func (a *PublicAPI) GetMinimalTxValue(r *http.Request, args *GetMinimalTxValueArgs, reply *uint64) error {
	*reply = a.svc.GetMinimalTxValue()
	return nil
}

type PreBuyArgs struct {
	PoolAddress string `json:"pool_address"`
	BTCAmount   uint64 `json:"btc_amount"`
}

// PreBuyToken implements pre_buy_token.
func (a *PublicAPI) PreBuyToken(r *http.Request, args *PreBuyArgs, reply *exchange.BuyOffer) error {
	offer, err := a.svc.PreBuy(args.PoolAddress, args.BTCAmount)
	if err != nil {
		return err
	}
	*reply = offer
	return nil
}

type PreSellArgs struct {
	PoolAddress string `json:"pool_address"`
	TokenAmount string `json:"token_amount"` // decimal string; u128 doesn't fit JSON number
}

// PreSellToken implements pre_sell_token.
func (a *PublicAPI) PreSellToken(r *http.Request, args *PreSellArgs, reply *exchange.SellOffer) error {
	amount, err := parseU256(args.TokenAmount)
	if err != nil {
		return err
	}
	offer, err := a.svc.PreSell(args.PoolAddress, amount)
	if err != nil {
		return err
	}
	*reply = offer
	return nil
}

func parseU256(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// OrchestratorAPI serves execute_tx/new_block/rollback_tx. Each handler
// forwards the caller's X-REE-Principal header to ExchangeService, which
// rejects it unless the principal is in its orchestrator allow-list.
type OrchestratorAPI struct {
	svc *exchange.ExchangeService
}

type ExecuteTxArgs struct {
	PSBTHex        string                `json:"psbt_hex"`
	Txid           string                `json:"txid"`
	IntentionSet   exchange.IntentionSet `json:"intention_set"`
	IntentionIndex int                   `json:"intention_index"`
}

type ExecuteTxReply struct {
	PSBTHex string `json:"psbt_hex"`
}

// ExecuteTx implements execute_tx.
func (a *OrchestratorAPI) ExecuteTx(r *http.Request, args *ExecuteTxArgs, reply *ExecuteTxReply) error {
	txid, err := coin.ParseTxid(args.Txid)
	if err != nil {
		return err
	}
	out, err := a.svc.ExecuteTx(r.Context(), principalFromRequest(r), args.PSBTHex, txid, args.IntentionSet, args.IntentionIndex)
	if err != nil {
		return err
	}
	reply.PSBTHex = out
	return nil
}

type NewBlockArgs struct {
	Block ledger.BlockInfo `json:"block"`
}

type OkReply struct {
	Ok bool `json:"ok"`
}

// NewBlock implements new_block.
func (a *OrchestratorAPI) NewBlock(r *http.Request, args *NewBlockArgs, reply *OkReply) error {
	if err := a.svc.NewBlock(principalFromRequest(r), args.Block); err != nil {
		return err
	}
	reply.Ok = true
	return nil
}

type RollbackTxArgs struct {
	Txid string `json:"txid"`
}

// RollbackTx implements rollback_tx.
func (a *OrchestratorAPI) RollbackTx(r *http.Request, args *RollbackTxArgs, reply *OkReply) error {
	txid, err := coin.ParseTxid(args.Txid)
	if err != nil {
		return err
	}
	if err := a.svc.RollbackTx(principalFromRequest(r), txid); err != nil {
		return err
	}
	reply.Ok = true
	return nil
}

// ControllerAPI serves init_pool and the admin reset operations, authorized
// by the X-REE-Principal header matching ExchangeService's controller set,
// plus the query_tx_records/query_blocks/blocks_tx_records_count read
// models, which perform no principal check.
type ControllerAPI struct {
	svc *exchange.ExchangeService
}

type InitPoolArgs struct {
	Block        uint64 `json:"block"`
	Tx           uint32 `json:"tx"`
	Symbol       string `json:"symbol"`
	ExchangeRate uint64 `json:"exchange_rate"`
}

// InitPool implements init_pool.
func (a *ControllerAPI) InitPool(r *http.Request, args *InitPoolArgs, reply *exchange.PoolInfo) error {
	principal := principalFromRequest(r)
	info, err := a.svc.InitPool(r.Context(), principal, args.Block, args.Tx, args.Symbol, args.ExchangeRate)
	if err != nil {
		return err
	}
	*reply = info
	return nil
}

type ResetArgs struct{}

// ResetBlocks implements reset_blocks.
func (a *ControllerAPI) ResetBlocks(r *http.Request, args *ResetArgs, reply *OkReply) error {
	if err := a.svc.ResetBlocks(principalFromRequest(r)); err != nil {
		return err
	}
	reply.Ok = true
	return nil
}

// ResetTxRecords implements reset_tx_records.
func (a *ControllerAPI) ResetTxRecords(r *http.Request, args *ResetArgs, reply *OkReply) error {
	if err := a.svc.ResetTxRecords(principalFromRequest(r)); err != nil {
		return err
	}
	reply.Ok = true
	return nil
}

type QueryTxRecordsArgs struct{}

// QueryTxRecords implements query_tx_records.
func (a *ControllerAPI) QueryTxRecords(r *http.Request, args *QueryTxRecordsArgs, reply *[]ledger.TxRecordInfo) error {
	recs, err := a.svc.QueryTxRecords()
	if err != nil {
		return err
	}
	*reply = recs
	return nil
}

type QueryBlocksArgs struct{}

// QueryBlocks implements query_blocks.
func (a *ControllerAPI) QueryBlocks(r *http.Request, args *QueryBlocksArgs, reply *[]ledger.BlockInfo) error {
	blocks, err := a.svc.QueryBlocks()
	if err != nil {
		return err
	}
	*reply = blocks
	return nil
}

type BlocksTxRecordsCountReply struct {
	Blocks    uint64 `json:"blocks"`
	TxRecords uint64 `json:"tx_records"`
}

// BlocksTxRecordsCount implements blocks_tx_records_count.
func (a *ControllerAPI) BlocksTxRecordsCount(r *http.Request, args *QueryBlocksArgs, reply *BlocksTxRecordsCountReply) error {
	blocks, txRecords, err := a.svc.BlocksTxRecordsCount()
	if err != nil {
		return err
	}
	reply.Blocks = blocks
	reply.TxRecords = txRecords
	return nil
}
