// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the process configuration for reectl: orchestrator
// principal, reorg depth, default exchange rate, network, and listen
// address, via spf13/pflag + spf13/viper the way cmd/simulator wires its
// own flags in the teacher repo.
package config

import (
	"fmt"

	"github.com/luxfi/ree/errs"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ListenAddrKey   = "listen-addr"
	NetworkKey      = "network"
	DataDirKey      = "datadir"
	ReorgDepthKey   = "reorg-depth"
	DefaultRateKey  = "default-rate"
	ControllersKey  = "controllers"
	OrchestratorKey = "orchestrators"
)

// Config is the fully resolved process configuration.
type Config struct {
	ListenAddr    string
	Network       string
	DataDir       string
	ReorgDepth    uint32
	DefaultRate   uint64
	Controllers   []string
	Orchestrators []string
}

// BuildFlagSet declares reectl's command-line flags.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("reectl", pflag.ContinueOnError)
	fs.String(ListenAddrKey, ":8787", "address the JSON-RPC server listens on")
	fs.String(NetworkKey, "testnet4", "Bitcoin network the pools derive addresses for")
	fs.String(DataDirKey, "./ree-data", "directory holding the pool/ledger key-value store")
	fs.Uint32(ReorgDepthKey, errs.ReorgDepth, "reorg depth; parsed only, new_block always finalizes against errs.ReorgDepth")
	fs.Uint64(DefaultRateKey, errs.DefaultRate, "default exchange rate; validated to be > 0, but execute_tx falls back to errs.DefaultRate, not this value")
	fs.StringSlice(ControllersKey, nil, "principals authorized for init_pool/reset_blocks/reset_tx_records")
	fs.StringSlice(OrchestratorKey, nil, "principals authorized for execute_tx/new_block/rollback_tx")
	fs.String("config", "", "optional config file (yaml/json/toml) layered under flags and REE_ env vars")
	return fs
}

// BuildViper binds fs, parses args, and layers in REE_-prefixed environment
// variables and an optional config file.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("REE")
	v.AutomaticEnv()

	if cfgFile, _ := fs.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// BuildConfig extracts a Config from a populated viper instance.
func BuildConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListenAddr:    v.GetString(ListenAddrKey),
		Network:       v.GetString(NetworkKey),
		DataDir:       v.GetString(DataDirKey),
		ReorgDepth:    uint32(v.GetUint(ReorgDepthKey)),
		DefaultRate:   v.GetUint64(DefaultRateKey),
		Controllers:   v.GetStringSlice(ControllersKey),
		Orchestrators: v.GetStringSlice(OrchestratorKey),
	}
	if cfg.DefaultRate == 0 {
		return Config{}, fmt.Errorf("default-rate must be > 0")
	}
	return cfg, nil
}
