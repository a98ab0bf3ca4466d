// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"net/http"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ree/config"
	"github.com/luxfi/ree/exchange"
	"github.com/luxfi/ree/iface"
	"github.com/luxfi/ree/ledger"
	"github.com/luxfi/ree/log"
	"github.com/luxfi/ree/metrics"
	"github.com/luxfi/ree/registry"
	"github.com/luxfi/ree/rpcapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// ServeCommand starts the JSON-RPC server exposing PublicAPI/
// OrchestratorAPI/ControllerAPI over the configured listen address. It
// delegates its own flag parsing to config.BuildFlagSet (spf13/pflag +
// spf13/viper) rather than declaring urfave/cli flags, so SkipFlagParsing
// hands runServe the raw argument tail.
var ServeCommand = &cli.Command{
	Name:            "serve",
	Usage:           "run the JSON-RPC exchange server",
	ArgsUsage:       "[--listen-addr] [--network] [--datadir] [--reorg-depth] [--default-rate] [--controllers] [--orchestrators] [--key-service-url] [--signer-url]",
	SkipFlagParsing: true,
	Action:          runServe,
}

func runServe(c *cli.Context) error {
	logger := log.New("reectl")

	fs := config.BuildFlagSet()
	fs.String("key-service-url", "", "base URL of the external Schnorr key-derivation service")
	fs.String("signer-url", "", "base URL of the external remote-signer service")

	v, err := config.BuildViper(fs, c.Args().Slice())
	if err != nil {
		return err
	}
	cfg, err := config.BuildConfig(v)
	if err != nil {
		return err
	}

	// cfg.DataDir is reserved for a future file-backed iface.Store binding;
	// this pass wires the same in-memory store used by the test suite so
	// serve always has a working, crash-safe-within-process persistence
	// layer without guessing at an unverified constructor (see DESIGN.md).
	poolStore := iface.WrapLuxDatabase(memdb.New())
	txStore := iface.WrapLuxDatabase(memdb.New())
	blockStore := iface.WrapLuxDatabase(memdb.New())

	pools, err := registry.New(poolStore)
	if err != nil {
		return err
	}
	txs := ledger.NewTxLedger(txStore)
	blocks := ledger.NewBlockLedger(blockStore)

	metricsCollector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	var keys iface.KeyDeriver
	if url := v.GetString("key-service-url"); url != "" {
		keys = &iface.HTTPKeyDeriver{BaseURL: url}
	} else {
		logger.Warn("no key-service-url configured; init_pool will fail until one is set")
	}

	codec := iface.DefaultPsbtCodec{}
	var signer iface.RemoteSigner
	if url := v.GetString("signer-url"); url != "" {
		signer = &iface.HTTPRemoteSigner{BaseURL: url, Codec: codec}
	} else {
		logger.Warn("no signer-url configured; sell_token execute_tx will fail until one is set")
	}

	svc := exchange.New(pools, txs, blocks, keys, codec, signer, metricsCollector,
		cfg.Network, cfg.Controllers, cfg.Orchestrators)

	router := rpcapi.NewRouter(svc)
	logger.Info("listening", "addr", cfg.ListenAddr, "network", cfg.Network)
	return http.ListenAndServe(cfg.ListenAddr, router)
}
