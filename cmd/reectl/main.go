// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// reectl runs the exchange's JSON-RPC server and issues one-shot
// admin/query commands against a running instance.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const clientIdentifier = "reectl"

// ServeCommand parses its own flags via config.BuildFlagSet/spf13/pflag
// (see serve.go), so the only flags declared here are for the one-shot
// client commands.
var (
	rpcAddrFlag   = &cli.StringFlag{Name: "rpc-addr", Value: "http://127.0.0.1:8787", Usage: "reectl's target server for client commands"}
	principalFlag = &cli.StringFlag{Name: "principal", Usage: "caller principal sent as X-REE-Principal"}

	app = &cli.App{
		Name:    clientIdentifier,
		Usage:   "reorg-safe exchange pool orchestrator",
		Version: "0.1.0",
	}
)

func init() {
	app.Commands = []*cli.Command{
		ServeCommand,
		InitPoolCommand,
		PreBuyCommand,
		PreSellCommand,
		ResetBlocksCommand,
		ResetTxRecordsCommand,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
