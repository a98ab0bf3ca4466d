// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package iface

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/holiman/uint256"
	"github.com/luxfi/ree/canvas"
)

// Pubkey is a Schnorr (BIP-340) public key, untweaked or tweaked.
type Pubkey struct {
	Key *btcec.PublicKey
}

// Bytes returns the 32-byte x-only serialization used in addresses.
func (p Pubkey) Bytes() []byte {
	if p.Key == nil {
		return nil
	}
	return p.Key.SerializeCompressed()[1:]
}

// ParsePubkey reconstructs a Pubkey from the 32-byte x-only encoding
// produced by Bytes, for loading persisted pools back into memory. An
// empty input round-trips to the zero Pubkey.
func ParsePubkey(b []byte) (Pubkey, error) {
	if len(b) == 0 {
		return Pubkey{}, nil
	}
	key, err := schnorr.ParsePubKey(b)
	if err != nil {
		return Pubkey{}, err
	}
	return Pubkey{Key: key}, nil
}

// Utxo is an unspent transaction output the orchestrator references when
// constructing or signing a PSBT.
type Utxo struct {
	Txid  string
	Vout  uint32
	Value uint64
}

// KeyDeriver requests a pool address from the Schnorr key-derivation
// service. Implementations are async (network calls to a signer/HSM);
// init_pool is the only caller, and only it awaits a derivation.
type KeyDeriver interface {
	Derive(ctx context.Context, keyName string, path [][]byte, network string) (pubkey, tweaked Pubkey, addr string, err error)
}

// PsbtCodec decodes/serializes partially-signed Bitcoin transactions. This
// module never constructs or mutates a PSBT's script/witness data itself;
// it only decodes incoming hex and re-serializes after an external signer
// has acted on it.
type PsbtCodec interface {
	DecodeHex(psbtHex string) (*psbt.Packet, error)
	SerializeHex(p *psbt.Packet) (string, error)
}

// RemoteSigner signs the pool's UTXOs on the sell path, mediating access to
// the Schnorr private key identified by keyName/path.
type RemoteSigner interface {
	Sign(ctx context.Context, p *psbt.Packet, utxos []Utxo, keyName string, path [][]byte) (*psbt.Packet, error)
}

// Canvas is the pixel-canvas side model. It is defined here as the
// documented boundary of an independent collaborator; the exchange service
// does not call it (see SPEC_FULL.md §4.H).
type Canvas interface {
	SetColor(x, y int, color canvas.Rgb888) error
	BuyPixel(x, y int, buyer canvas.AccountId, amountPaid *uint256.Int, newColor canvas.Rgb888) error
}
