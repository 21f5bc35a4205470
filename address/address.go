// Package address implements the opaque, bech32-rendered identifier used
// throughout the engine for curators, pools, reserves, mints, feeds, and user
// accounts. It carries no keys and performs no signing: authentication is an
// external, already-authenticated RPC concern and is out of scope here.
package address

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// Prefix is the human-readable part of a bech32-encoded Address.
type Prefix string

const (
	// AccountPrefix identifies user and program-authority accounts.
	AccountPrefix Prefix = "tlacc"
	// MintPrefix identifies a token mint (liquidity, LP, or reward).
	MintPrefix Prefix = "tlmint"
	// FeedPrefix identifies an oracle price feed.
	FeedPrefix Prefix = "tlfeed"
)

// Address is a 20-byte identifier rendered as bech32 (<prefix>1...).
type Address struct {
	prefix Prefix
	bytes  [20]byte
}

// New builds an Address from exactly 20 bytes under the given prefix.
func New(prefix Prefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("address: must be 20 bytes, got %d", len(b))
	}
	var a Address
	a.prefix = prefix
	copy(a.bytes[:], b)
	return a, nil
}

// MustNew constructs an Address and panics if the input is invalid. Reserved
// for compile-time-known test fixtures and CLI literals.
func MustNew(prefix Prefix, b []byte) Address {
	a, err := New(prefix, b)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero reports whether a is the unset address value.
func (a Address) Zero() bool {
	return a.prefix == "" && a.bytes == [20]byte{}
}

// Bytes returns a copy of the address's raw 20 bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, 20)
	copy(out, a.bytes[:])
	return out
}

// Prefix returns the address's human-readable prefix.
func (a Address) Prefix() Prefix { return a.prefix }

// Equal reports whether two addresses share the same prefix and bytes.
func (a Address) Equal(other Address) bool {
	return a.prefix == other.prefix && a.bytes == other.bytes
}

// String renders the address as bech32.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Decode parses a bech32 string back into an Address.
func Decode(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("address: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("address: error converting bits: %w", err)
	}
	return New(Prefix(prefix), conv)
}
