// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package iface

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// HTTPKeyDeriver calls an external Schnorr key-derivation/HSM service over
// HTTP, the boundary collaborator spec.md §6 documents but does not
// specify a wire format for; this is the simplest defensible one (JSON
// POST, hex-encoded keys).
type HTTPKeyDeriver struct {
	BaseURL string
	Client  *http.Client
}

type deriveRequest struct {
	KeyName string   `json:"key_name"`
	Path    []string `json:"path"`
	Network string   `json:"network"`
}

type deriveResponse struct {
	Pubkey  string `json:"pubkey"`
	Tweaked string `json:"tweaked"`
	Address string `json:"address"`
}

// Derive implements KeyDeriver.
func (h *HTTPKeyDeriver) Derive(ctx context.Context, keyName string, path [][]byte, network string) (Pubkey, Pubkey, string, error) {
	pathHex := make([]string, len(path))
	for i, p := range path {
		pathHex[i] = hex.EncodeToString(p)
	}
	reqBody, err := json.Marshal(deriveRequest{KeyName: keyName, Path: pathHex, Network: network})
	if err != nil {
		return Pubkey{}, Pubkey{}, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/derive", bytes.NewReader(reqBody))
	if err != nil {
		return Pubkey{}, Pubkey{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client().Do(req)
	if err != nil {
		return Pubkey{}, Pubkey{}, "", fmt.Errorf("derive request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Pubkey{}, Pubkey{}, "", fmt.Errorf("derive request: status %d", resp.StatusCode)
	}

	var out deriveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Pubkey{}, Pubkey{}, "", fmt.Errorf("decode derive response: %w", err)
	}

	pubBytes, err := hex.DecodeString(out.Pubkey)
	if err != nil {
		return Pubkey{}, Pubkey{}, "", fmt.Errorf("decode pubkey: %w", err)
	}
	pub, err := ParsePubkey(pubBytes)
	if err != nil {
		return Pubkey{}, Pubkey{}, "", err
	}
	tweakedBytes, err := hex.DecodeString(out.Tweaked)
	if err != nil {
		return Pubkey{}, Pubkey{}, "", fmt.Errorf("decode tweaked pubkey: %w", err)
	}
	tweaked, err := ParsePubkey(tweakedBytes)
	if err != nil {
		return Pubkey{}, Pubkey{}, "", err
	}
	return pub, tweaked, out.Address, nil
}

func (h *HTTPKeyDeriver) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

// HTTPRemoteSigner calls an external Schnorr signing service over HTTP; the
// PSBT is transcoded to hex for the wire and parsed back on return.
type HTTPRemoteSigner struct {
	BaseURL string
	Client  *http.Client
	Codec   PsbtCodec
}

type signRequest struct {
	PsbtHex string   `json:"psbt_hex"`
	Utxos   []Utxo   `json:"utxos"`
	KeyName string   `json:"key_name"`
	Path    []string `json:"path"`
}

type signResponse struct {
	PsbtHex string `json:"psbt_hex"`
}

// Sign implements RemoteSigner.
func (h *HTTPRemoteSigner) Sign(ctx context.Context, p *psbt.Packet, utxos []Utxo, keyName string, path [][]byte) (*psbt.Packet, error) {
	codec := h.Codec
	if codec == nil {
		codec = DefaultPsbtCodec{}
	}
	psbtHex, err := codec.SerializeHex(p)
	if err != nil {
		return nil, err
	}

	pathHex := make([]string, len(path))
	for i, seg := range path {
		pathHex[i] = hex.EncodeToString(seg)
	}
	reqBody, err := json.Marshal(signRequest{PsbtHex: psbtHex, Utxos: utxos, KeyName: keyName, Path: pathHex})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/sign", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sign request: status %d", resp.StatusCode)
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sign response: %w", err)
	}
	return codec.DecodeHex(out.PsbtHex)
}

func (h *HTTPRemoteSigner) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}
