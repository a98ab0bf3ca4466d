// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package coin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoinIdEquality(t *testing.T) {
	require.Equal(t, Btc(), Btc())
	require.Equal(t, Rune(840000, 1), Rune(840000, 1))
	require.NotEqual(t, Rune(840000, 1), Rune(840000, 2))
	require.NotEqual(t, Btc(), Rune(840000, 1))
}

func TestCoinIdString(t *testing.T) {
	require.Equal(t, "btc", Btc().String())
	require.Equal(t, "840000:1", Rune(840000, 1).String())
}

func TestTxidRoundTrip(t *testing.T) {
	raw := "1111111111111111111111111111111111111111111111111111111111111111"[:64]
	txid, err := ParseTxid(raw)
	require.NoError(t, err)
	require.Equal(t, raw, txid.String())

	_, err = ParseTxid("not-hex")
	require.Error(t, err)

	_, err = ParseTxid("1234")
	require.Error(t, err)
}
