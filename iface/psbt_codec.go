// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package iface

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// DefaultPsbtCodec implements PsbtCodec over the real wire format; it is
// the only collaborator of the three (KeyDeriver/PsbtCodec/RemoteSigner)
// this module can implement itself rather than delegate to an external
// signer/HSM, since decoding/serializing a PSBT is pure data transcoding.
type DefaultPsbtCodec struct{}

// DecodeHex hex-decodes psbtHex and parses it as a PSBT packet.
func (DefaultPsbtCodec) DecodeHex(psbtHex string) (*psbt.Packet, error) {
	raw, err := hex.DecodeString(psbtHex)
	if err != nil {
		return nil, fmt.Errorf("invalid psbt hex: %w", err)
	}
	p, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, fmt.Errorf("invalid psbt: %w", err)
	}
	return p, nil
}

// SerializeHex serializes p back to its hex wire form.
func (DefaultPsbtCodec) SerializeHex(p *psbt.Packet) (string, error) {
	var buf bytes.Buffer
	if err := p.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize psbt: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
