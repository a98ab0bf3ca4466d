// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package exec provides the per-pool execution guard: at most one
// execute_tx in flight per pool address, with different pools proceeding
// concurrently. This is the Go analogue of the original's
// EXECUTING_TOKENS HashSet + ExecuteTxGuard RAII pair, realized as a
// reject-don't-queue semaphore set.
package exec

import "sync"

// Serializer tracks which pool addresses currently have an execute_tx in
// flight.
type Serializer struct {
	mu        sync.Mutex
	executing map[string]struct{}
}

// NewSerializer returns an empty Serializer.
func NewSerializer() *Serializer {
	return &Serializer{executing: make(map[string]struct{})}
}

// Guard represents exclusive access to one pool address; Release must be
// called exactly once, typically via defer, on every exit path.
type Guard struct {
	s    *Serializer
	addr string
}

// Release frees the pool address for a future Acquire.
func (g *Guard) Release() {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	delete(g.s.executing, g.addr)
}

// Acquire returns a Guard for addr, or ok=false if another execute_tx on
// the same pool is already in flight. The caller must retry later rather
// than block.
func (s *Serializer) Acquire(addr string) (*Guard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.executing[addr]; busy {
		return nil, false
	}
	s.executing[addr] = struct{}{}
	return &Guard{s: s, addr: addr}, true
}
