// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry implements PoolRegistry, the keyed store of pools by
// on-chain address.
package registry

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/ree/iface"
	"github.com/luxfi/ree/pool"
)

// gobPool is the on-disk encoding of a pool.Pool: gob cannot encode the
// btcec key types directly, so the registry persists their raw bytes and
// reconstructs the Pool on load.
type gobPool struct {
	Meta         pool.TokenMeta
	PubkeyBytes  []byte
	TweakedBytes []byte
	Addr         string
	States       []pool.TokenState
}

// Registry is the persistent, in-memory-cached keyed store of pools by
// address. Reads are served from the cache; writes go through to store
// first so a crash never loses a commit.
type Registry struct {
	store iface.Store

	mu    sync.RWMutex
	cache map[string]*pool.Pool
}

// New wraps store for Pool persistence, loading any existing pools into
// the in-memory cache.
func New(store iface.Store) (*Registry, error) {
	r := &Registry{store: store, cache: make(map[string]*pool.Pool)}
	it := store.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		gp, err := decodePool(it.Value())
		if err != nil {
			return nil, fmt.Errorf("decode pool %q: %w", it.Key(), err)
		}
		p, err := gp.toPool()
		if err != nil {
			return nil, err
		}
		r.cache[p.Addr] = p
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return r, nil
}

func (gp gobPool) toPool() (*pool.Pool, error) {
	pk, err := iface.ParsePubkey(gp.PubkeyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse pubkey: %w", err)
	}
	tw, err := iface.ParsePubkey(gp.TweakedBytes)
	if err != nil {
		return nil, fmt.Errorf("parse tweaked pubkey: %w", err)
	}
	return &pool.Pool{
		Meta:    gp.Meta,
		Pubkey:  pk,
		Tweaked: tw,
		Addr:    gp.Addr,
		States:  gp.States,
	}, nil
}

func toGobPool(p *pool.Pool) gobPool {
	return gobPool{
		Meta:         p.Meta,
		PubkeyBytes:  p.Pubkey.Bytes(),
		TweakedBytes: p.Tweaked.Bytes(),
		Addr:         p.Addr,
		States:       p.States,
	}
}

func decodePool(raw []byte) (gobPool, error) {
	var gp gobPool
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&gp); err != nil {
		return gobPool{}, err
	}
	return gp, nil
}

func encodePool(p *pool.Pool) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toGobPool(p)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Get returns a private copy of the pool registered at addr, or ok=false if
// none exists. The caller may mutate it in place (e.g. via Commit/Rollback/
// Finalize) without that mutation becoming visible to any other Get caller,
// or surviving a failed Put, since it shares no backing array with the
// cached entry.
func (r *Registry) Get(addr string) (*pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.cache[addr]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Put persists p, then swaps it into the cache only once the write
// succeeds, keyed by p.Addr. The cache stores a clone so later mutation of
// the caller's p (or of a Pool returned by a concurrent Get) never reaches
// committed state out of band.
func (r *Registry) Put(p *pool.Pool) error {
	raw, err := encodePool(p)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Put([]byte(p.Addr), raw); err != nil {
		return err
	}
	r.cache[p.Addr] = p.Clone()
	return nil
}

// List returns every registered pool, sorted by address for deterministic
// output.
func (r *Registry) List() []*pool.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pool.Pool, 0, len(r.cache))
	for _, p := range r.cache {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
