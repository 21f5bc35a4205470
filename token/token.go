// Package token defines the transfer contract consumed by the engine and
// two reference adapters (classic and extension-enabled mints), unified
// behind one interface since the engine's accounting never branches on
// which family it is talking to beyond adapter selection at construction.
package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"texturelend/address"
)

// Transfer moves amount minor units of mint from src to dst. The engine
// calls this under its own program authority for outbound transfers and
// under the user's (already-authenticated) authority for inbound ones.
type Transfer interface {
	Transfer(ctx context.Context, src, dst address.Address, amount *big.Int, decimals uint8, mint address.Address) error
}

// Ledger is a reference in-memory balance ledger shared by the classic and
// extension adapters. Real transport (SPL token program CPI, or the
// extension-enabled variant) is outside core scope; this exists so
// orchestrator tests can assert on balance deltas.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

// NewLedger constructs an empty balance ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]*big.Int)}
}

func key(mint, owner address.Address) string {
	return mint.String() + "/" + owner.String()
}

// Credit adds amount minor units of mint to owner's balance. Used by tests
// to seed starting balances.
func (l *Ledger) Credit(owner, mint address.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(mint, owner)
	bal, ok := l.balances[k]
	if !ok {
		bal = new(big.Int)
		l.balances[k] = bal
	}
	bal.Add(bal, amount)
}

// Balance returns owner's current balance of mint.
func (l *Ledger) Balance(owner, mint address.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[key(mint, owner)]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

func (l *Ledger) transfer(src, dst address.Address, amount *big.Int, mint address.Address) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("token: negative transfer amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	srcKey := key(mint, src)
	bal, ok := l.balances[srcKey]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient balance for transfer")
	}
	bal.Sub(bal, amount)
	dstKey := key(mint, dst)
	dstBal, ok := l.balances[dstKey]
	if !ok {
		dstBal = new(big.Int)
		l.balances[dstKey] = dstBal
	}
	dstBal.Add(dstBal, amount)
	return nil
}

// ClassicTransfer adapts the legacy, non-extension token program's transfer
// instruction.
type ClassicTransfer struct{ ledger *Ledger }

// NewClassicTransfer builds a Transfer backed by the classic token family.
func NewClassicTransfer(ledger *Ledger) *ClassicTransfer { return &ClassicTransfer{ledger: ledger} }

// Transfer implements Transfer.
func (c *ClassicTransfer) Transfer(_ context.Context, src, dst address.Address, amount *big.Int, _ uint8, mint address.Address) error {
	return c.ledger.transfer(src, dst, amount, mint)
}

// ExtensionTransfer adapts the extension-enabled token family (transfer
// fees, transfer hooks, confidential balances, ...). The engine only needs
// the same transfer semantics; extension-specific behavior is opaque to it.
type ExtensionTransfer struct{ ledger *Ledger }

// NewExtensionTransfer builds a Transfer backed by the extension-enabled
// token family.
func NewExtensionTransfer(ledger *Ledger) *ExtensionTransfer {
	return &ExtensionTransfer{ledger: ledger}
}

// Transfer implements Transfer.
func (e *ExtensionTransfer) Transfer(_ context.Context, src, dst address.Address, amount *big.Int, _ uint8, mint address.Address) error {
	return e.ledger.transfer(src, dst, amount, mint)
}
