// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log provides a thin compatibility layer over github.com/luxfi/log,
// giving each subsystem that logs (exchange, reectl) its own named context
// logger instead of a single package-global one.
package log

import (
	luxlog "github.com/luxfi/log"
)

// Logger is re-exported from luxfi/log so callers never import it directly.
type Logger = luxlog.Logger

// New returns a logger tagged with the given subsystem name, e.g.
// log.New("exchange") or log.New("registry").
func New(subsystem string) Logger {
	return luxlog.New("subsystem", subsystem)
}

// Root is the process-wide default logger.
func Root() Logger {
	return luxlog.Root()
}
