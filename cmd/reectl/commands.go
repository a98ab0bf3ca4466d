// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strconv"

	"github.com/luxfi/ree/rpcapi"
	"github.com/urfave/cli/v2"
)

// InitPoolCommand calls init_pool against a running server.
var InitPoolCommand = &cli.Command{
	Name:      "init-pool",
	Usage:     "register a new pool for a rune",
	ArgsUsage: "<block> <tx> <symbol> <exchange-rate>",
	Flags:     []cli.Flag{rpcAddrFlag, principalFlag},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 4 {
			return fmt.Errorf("usage: init-pool <block> <tx> <symbol> <exchange-rate>")
		}
		block, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid block: %w", err)
		}
		tx, err := strconv.ParseUint(c.Args().Get(1), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid tx: %w", err)
		}
		symbol := c.Args().Get(2)
		rate, err := strconv.ParseUint(c.Args().Get(3), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid exchange-rate: %w", err)
		}

		var out struct {
			Address string `json:"Address"`
			Name    string `json:"Name"`
			Nonce   uint64 `json:"Nonce"`
		}
		args := rpcapi.InitPoolArgs{Block: block, Tx: uint32(tx), Symbol: symbol, ExchangeRate: rate}
		if err := jsonRPCCall(c.String("rpc-addr"), "/rpc/controller", "ControllerAPI.InitPool", args, &out, c.String("principal")); err != nil {
			return err
		}
		fmt.Printf("pool registered: address=%s name=%s\n", out.Address, out.Name)
		return nil
	},
}

// PreBuyCommand calls pre_buy_token.
var PreBuyCommand = &cli.Command{
	Name:      "pre-buy",
	Usage:     "quote a buy_token intention",
	ArgsUsage: "<pool-address> <btc-amount>",
	Flags:     []cli.Flag{rpcAddrFlag},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("usage: pre-buy <pool-address> <btc-amount>")
		}
		btcAmount, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid btc-amount: %w", err)
		}
		args := rpcapi.PreBuyArgs{PoolAddress: c.Args().Get(0), BTCAmount: btcAmount}
		var out struct {
			Nonce             uint64 `json:"Nonce"`
			TokenAmount       string `json:"TokenAmount"`
			CurrentBTCBalance uint64 `json:"CurrentBTCBalance"`
		}
		if err := jsonRPCCall(c.String("rpc-addr"), "/rpc/public", "PublicAPI.PreBuyToken", args, &out, ""); err != nil {
			return err
		}
		fmt.Printf("nonce=%d token_amount=%v btc_balance=%d\n", out.Nonce, out.TokenAmount, out.CurrentBTCBalance)
		return nil
	},
}

// PreSellCommand calls pre_sell_token.
var PreSellCommand = &cli.Command{
	Name:      "pre-sell",
	Usage:     "quote a sell_token intention",
	ArgsUsage: "<pool-address> <token-amount-decimal>",
	Flags:     []cli.Flag{rpcAddrFlag},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("usage: pre-sell <pool-address> <token-amount-decimal>")
		}
		args := rpcapi.PreSellArgs{PoolAddress: c.Args().Get(0), TokenAmount: c.Args().Get(1)}
		var out struct {
			Nonce          uint64 `json:"Nonce"`
			BTCAmount      uint64 `json:"BTCAmount"`
			CurrentBalance uint64 `json:"CurrentBalance"`
		}
		if err := jsonRPCCall(c.String("rpc-addr"), "/rpc/public", "PublicAPI.PreSellToken", args, &out, ""); err != nil {
			return err
		}
		fmt.Printf("nonce=%d btc_amount=%d current_balance=%d\n", out.Nonce, out.BTCAmount, out.CurrentBalance)
		return nil
	},
}

// ResetBlocksCommand calls reset_blocks.
var ResetBlocksCommand = &cli.Command{
	Name:  "reset-blocks",
	Usage: "clear the block ledger (controller only)",
	Flags: []cli.Flag{rpcAddrFlag, principalFlag},
	Action: func(c *cli.Context) error {
		return jsonRPCCall(c.String("rpc-addr"), "/rpc/controller", "ControllerAPI.ResetBlocks", rpcapi.ResetArgs{}, nil, c.String("principal"))
	},
}

// ResetTxRecordsCommand calls reset_tx_records.
var ResetTxRecordsCommand = &cli.Command{
	Name:  "reset-tx-records",
	Usage: "clear the tx ledger (controller only)",
	Flags: []cli.Flag{rpcAddrFlag, principalFlag},
	Action: func(c *cli.Context) error {
		return jsonRPCCall(c.String("rpc-addr"), "/rpc/controller", "ControllerAPI.ResetTxRecords", rpcapi.ResetArgs{}, nil, c.String("principal"))
	},
}
