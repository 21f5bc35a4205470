// Package lenerr centralizes the error kinds shared across the reserve,
// position, rewards, config-proposal, and orchestrator packages. It follows
// the teacher's per-module sentinel-error convention
// (native/loyalty/errors.go, services/lending/engine/errors.go) but
// collapses it into one enum plus a wrapping type, since these kinds cross
// package boundaries rather than staying module-private.
package lenerr

import (
	"errors"
	"fmt"
)

// Kind identifies the semantic category of an engine error.
type Kind int

const (
	_ Kind = iota
	// MathError is arithmetic overflow/underflow/divide-by-zero/domain violation.
	MathError
	// InvalidAmount is a zero amount where forbidden, an amount exceeding
	// available, or an exact amount exceeding a computed cap.
	InvalidAmount
	// InvalidConfig is a config-field invariant violation.
	InvalidConfig
	// StaleReserve means a reserve's freshness precondition failed.
	StaleReserve
	// StalePosition means a position's freshness precondition failed.
	StalePosition
	// OperationCanNotBePerformed is a state-machine precondition failure
	// (wrong mode/type, mismatched pool, non-vacant position cannot close,
	// zero values where positive required, ...).
	OperationCanNotBePerformed
	// ResourceExhausted means all slots are used, or a reserve cap is hit.
	ResourceExhausted
	// BorrowTooLarge means the requested exact borrow value exceeds the limit.
	BorrowTooLarge
	// LiquidationTooSmall means the rounded repay or withdraw amount is zero.
	LiquidationTooSmall
	// AttemptToLiquidateHealthyPosition carries the position's LTV and the
	// partly-unhealthy threshold as diagnostics.
	AttemptToLiquidateHealthyPosition
	// DepositedCollateralNotFound means no collateral record exists for the
	// given reserve.
	DepositedCollateralNotFound
	// BorrowedLiquidityNotFound means no borrow record exists for the given
	// reserve.
	BorrowedLiquidityNotFound
)

func (k Kind) String() string {
	switch k {
	case MathError:
		return "MathError"
	case InvalidAmount:
		return "InvalidAmount"
	case InvalidConfig:
		return "InvalidConfig"
	case StaleReserve:
		return "StaleReserve"
	case StalePosition:
		return "StalePosition"
	case OperationCanNotBePerformed:
		return "OperationCanNotBePerformed"
	case ResourceExhausted:
		return "ResourceExhausted"
	case BorrowTooLarge:
		return "BorrowTooLarge"
	case LiquidationTooSmall:
		return "LiquidationTooSmall"
	case AttemptToLiquidateHealthyPosition:
		return "AttemptToLiquidateHealthyPosition"
	case DepositedCollateralNotFound:
		return "DepositedCollateralNotFound"
	case BorrowedLiquidityNotFound:
		return "BorrowedLiquidityNotFound"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error

	// LTV and PartlyUnhealthyLTV are populated only for
	// AttemptToLiquidateHealthyPosition, as basis-point ratios.
	LTV                uint64
	PartlyUnhealthyLTV uint64
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target shares e's Kind, letting callers write
// errors.Is(err, lenerr.New(lenerr.BorrowTooLarge, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New builds an *Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error carrying cause as its Unwrap target.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Unhealthy builds the diagnostics-carrying
// AttemptToLiquidateHealthyPosition error.
func Unhealthy(ltv, partlyUnhealthyLTV uint64) *Error {
	return &Error{
		Kind:               AttemptToLiquidateHealthyPosition,
		Msg:                "position ltv below partly-unhealthy threshold",
		LTV:                ltv,
		PartlyUnhealthyLTV: partlyUnhealthyLTV,
	}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
