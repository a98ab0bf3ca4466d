// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs defines the exchange error kinds shared by the pool, ledger
// and exchange packages.
package errs

import "fmt"

const (
	// MinBTCValue is the minimum satoshi amount accepted on either side of
	// a buy or sell.
	MinBTCValue uint64 = 10_000

	// ReorgDepth is the number of confirmations after which a block is
	// considered beyond reorg risk.
	ReorgDepth uint32 = 6

	// DefaultRate is used when an intention's action_params carries no
	// explicit exchange rate override.
	DefaultRate uint64 = 100
)

// Kind identifies a class of exchange error, independent of its message.
type Kind int

const (
	Overflow Kind = iota
	InvalidToken
	TooSmallFunds
	InvalidTxid
	EmptyToken
	InvalidState
	InvalidSignPsbtArgs
	TokenStateExpired
	InsufficientBtc
)

func (k Kind) String() string {
	switch k {
	case Overflow:
		return "overflow"
	case InvalidToken:
		return "invalid token"
	case TooSmallFunds:
		return "too small funds"
	case InvalidTxid:
		return "invalid txid"
	case EmptyToken:
		return "the token has not been initialized or has been removed"
	case InvalidState:
		return "invalid token state"
	case InvalidSignPsbtArgs:
		return "invalid sign_psbt args"
	case TokenStateExpired:
		return "token state expired"
	case InsufficientBtc:
		return "insufficient btc balance for sell"
	default:
		return "unknown exchange error"
	}
}

// Error is the exchange's structured error type. It is comparable by Kind
// via errors.Is, while still carrying a human-readable message.
type Error struct {
	Kind  Kind
	Msg   string
	Nonce uint64 // populated only for TokenStateExpired
}

func (e *Error) Error() string {
	switch e.Kind {
	case TokenStateExpired:
		return fmt.Sprintf("token state expired, current = %d", e.Nonce)
	case InvalidState, InvalidSignPsbtArgs:
		if e.Msg != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
		}
		return e.Kind.String()
	default:
		return e.Kind.String()
	}
}

// Is allows errors.Is(err, errs.New(Kind)) comparisons against sentinel
// kinds without requiring an exact message match.
func (e *Error) Is(target error) bool {
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	return o.Kind == e.Kind
}

// New builds a bare error of the given kind with no message.
func New(kind Kind) *Error { return &Error{Kind: kind} }

// Newf builds an error of the given kind with a formatted message, used for
// InvalidState and InvalidSignPsbtArgs.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Expired builds a TokenStateExpired error reporting the current nonce.
func Expired(nonce uint64) *Error {
	return &Error{Kind: TokenStateExpired, Nonce: nonce}
}
