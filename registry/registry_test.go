// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ree/coin"
	"github.com/luxfi/ree/iface"
	"github.com/luxfi/ree/pool"
	"github.com/stretchr/testify/require"
)

func newStore() iface.Store {
	return iface.WrapLuxDatabase(memdb.New())
}

func testPool(addr string) *pool.Pool {
	return &pool.Pool{
		Meta: pool.TokenMeta{
			ID:           coin.Rune(840000, 1),
			Symbol:       "PXL",
			ExchangeRate: 100,
			MinAmount:    uint256.NewInt(1),
		},
		Addr: addr,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	r, err := New(newStore())
	require.NoError(t, err)

	p := testPool("bc1qtest")
	require.NoError(t, r.Put(p))

	got, ok := r.Get("bc1qtest")
	require.True(t, ok)
	require.Equal(t, p.Meta, got.Meta)
	require.Equal(t, p.Addr, got.Addr)
}

func TestGetMissing(t *testing.T) {
	r, err := New(newStore())
	require.NoError(t, err)
	_, ok := r.Get("nope")
	require.False(t, ok)
}

func TestListSortedByAddr(t *testing.T) {
	r, err := New(newStore())
	require.NoError(t, err)
	require.NoError(t, r.Put(testPool("bc1qzzz")))
	require.NoError(t, r.Put(testPool("bc1qaaa")))
	require.NoError(t, r.Put(testPool("bc1qmmm")))

	list := r.List()
	require.Len(t, list, 3)
	require.Equal(t, []string{"bc1qaaa", "bc1qmmm", "bc1qzzz"}, []string{list[0].Addr, list[1].Addr, list[2].Addr})
	require.Equal(t, 3, r.Len())
}

func TestReloadFromStore(t *testing.T) {
	store := newStore()
	r, err := New(store)
	require.NoError(t, err)
	require.NoError(t, r.Put(testPool("bc1qtest")))

	r2, err := New(store)
	require.NoError(t, err)
	got, ok := r2.Get("bc1qtest")
	require.True(t, ok)
	require.Equal(t, "bc1qtest", got.Addr)
}
