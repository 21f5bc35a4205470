// Package decimal implements the Q18 fixed-point type used throughout the
// lending engine: a signed fixed-point number with 18 fractional digits,
// backed by an arbitrary-precision integer but range-checked as if it were a
// 256-bit two's-complement word, matching spec note 9 ("a thin wrapper over a
// 192-bit or 256-bit signed integer; all operations return Result").
//
// Every arithmetic method returns an explicit error instead of panicking.
// Intermediate products are computed at full big.Int precision (far beyond
// the 2x width spec.md requires) and only range-checked on the way out, so
// Mul/Div results are exact to the 18th fractional digit.
package decimal

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrOverflow is returned when an operation's result would not fit in the
// engine's 256-bit signed range.
var ErrOverflow = errors.New("decimal: overflow")

// ErrDivideByZero is returned by Div/Pow-adjacent paths when the divisor is
// zero.
var ErrDivideByZero = errors.New("decimal: division by zero")

// Scale is 10^18, the number of minor units a Dec uses to represent 1.0.
var Scale = func() *big.Int {
	v, _ := new(big.Int).SetString("1000000000000000000", 10)
	return v
}()

// bound is 2^255, the magnitude ceiling for a signed 256-bit word. A Dec's
// internal integer must satisfy -bound <= v < bound.
var bound = new(big.Int).Lsh(big.NewInt(1), 255)

// Dec is a signed fixed-point number scaled by 1e18.
type Dec struct {
	v *big.Int
}

func fromBig(v *big.Int) (Dec, error) {
	lowerBound := new(big.Int).Neg(bound)
	if v.Cmp(bound) >= 0 || v.Cmp(lowerBound) < 0 {
		return Dec{}, fmt.Errorf("%w: %s exceeds 256-bit signed range", ErrOverflow, v.String())
	}
	return Dec{v: v}, nil
}

// Zero is the additive identity.
func Zero() Dec { return Dec{v: big.NewInt(0)} }

// One is 1.0 in Q18.
func One() Dec { return Dec{v: new(big.Int).Set(Scale)} }

// IsZero reports whether d is exactly zero.
func (d Dec) IsZero() bool { return d.v == nil || d.v.Sign() == 0 }

// Sign returns -1, 0, or 1.
func (d Dec) Sign() int {
	if d.v == nil {
		return 0
	}
	return d.v.Sign()
}

// FromInt64 builds a Dec from a whole number (e.g. FromInt64(5) == 5.0).
func FromInt64(n int64) Dec {
	return Dec{v: new(big.Int).Mul(big.NewInt(n), Scale)}
}

// FromBps converts basis points (parts per 10,000) into a Q18 ratio, e.g.
// FromBps(150) == 0.015.
func FromBps(bps uint64) Dec {
	num := new(big.Int).Mul(new(big.Int).SetUint64(bps), Scale)
	num.Quo(num, big.NewInt(10_000))
	return Dec{v: num}
}

// FromMinorUnits converts an integer amount expressed in a token's minor
// units (its smallest indivisible denomination) into Q18, given the token's
// decimals field: minor_units / 10^decimals.
func FromMinorUnits(minorUnits *big.Int, decimals uint8) Dec {
	if minorUnits == nil {
		return Zero()
	}
	num := new(big.Int).Mul(minorUnits, Scale)
	div := pow10(decimals)
	num.Quo(num, div)
	return Dec{v: num}
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToFloor converts back to integer minor units, truncating toward negative
// infinity.
func (d Dec) ToFloor(decimals uint8) *big.Int {
	scaled := new(big.Int).Mul(d.safe(), pow10(decimals))
	q, r := new(big.Int).QuoRem(scaled, Scale, new(big.Int))
	if r.Sign() != 0 && scaled.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// ToCeil converts back to integer minor units, rounding away from zero on
// the positive side (toward positive infinity).
func (d Dec) ToCeil(decimals uint8) *big.Int {
	scaled := new(big.Int).Mul(d.safe(), pow10(decimals))
	q, r := new(big.Int).QuoRem(scaled, Scale, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// ToRound converts back to integer minor units using round-half-up on the
// magnitude (ties away from zero).
func (d Dec) ToRound(decimals uint8) *big.Int {
	scaled := new(big.Int).Mul(d.safe(), pow10(decimals))
	neg := scaled.Sign() < 0
	abs := new(big.Int).Abs(scaled)
	halfScale := new(big.Int).Abs(Scale)
	half := new(big.Int).Rsh(halfScale, 1)
	abs.Add(abs, half)
	abs.Quo(abs, halfScale)
	if neg {
		abs.Neg(abs)
	}
	return abs
}

func (d Dec) safe() *big.Int {
	if d.v == nil {
		return big.NewInt(0)
	}
	return d.v
}

// Add returns d+other, failing on overflow.
func (d Dec) Add(other Dec) (Dec, error) {
	return fromBig(new(big.Int).Add(d.safe(), other.safe()))
}

// Sub returns d-other, failing on overflow.
func (d Dec) Sub(other Dec) (Dec, error) {
	return fromBig(new(big.Int).Sub(d.safe(), other.safe()))
}

// Mul returns d*other, rounding half-up to the 18th fractional digit and
// failing on overflow. The intermediate product is computed at full
// precision before rescaling, so no precision is lost ahead of the final
// rounding step.
func (d Dec) Mul(other Dec) (Dec, error) {
	product := new(big.Int).Mul(d.safe(), other.safe())
	product = divRoundHalfUp(product, Scale)
	return fromBig(product)
}

// Div returns d/other, rounding half-up to the 18th fractional digit and
// failing on overflow or division by zero.
func (d Dec) Div(other Dec) (Dec, error) {
	if other.IsZero() {
		return Dec{}, ErrDivideByZero
	}
	numerator := new(big.Int).Mul(d.safe(), Scale)
	numerator = divRoundHalfUp(numerator, other.safe())
	return fromBig(numerator)
}

// divRoundHalfUp computes num/den rounded half-away-from-zero.
func divRoundHalfUp(num, den *big.Int) *big.Int {
	neg := (num.Sign() < 0) != (den.Sign() < 0)
	n := new(big.Int).Abs(num)
	dd := new(big.Int).Abs(den)
	q, r := new(big.Int).QuoRem(n, dd, new(big.Int))
	r.Lsh(r, 1)
	if r.CmpAbs(dd) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if neg {
		q.Neg(q)
	}
	return q
}

// Pow raises d to an integer power using repeated squaring, failing on
// overflow of any intermediate result.
func (d Dec) Pow(n uint64) (Dec, error) {
	result := One()
	base := d
	var err error
	for n > 0 {
		if n&1 == 1 {
			result, err = result.Mul(base)
			if err != nil {
				return Dec{}, err
			}
		}
		n >>= 1
		if n == 0 {
			break
		}
		base, err = base.Mul(base)
		if err != nil {
			return Dec{}, err
		}
	}
	return result, nil
}

// Neg returns -d.
func (d Dec) Neg() Dec { return Dec{v: new(big.Int).Neg(d.safe())} }

// Cmp compares d and other: -1, 0, or 1.
func (d Dec) Cmp(other Dec) int { return d.safe().Cmp(other.safe()) }

// Max returns the greater of a and b.
func Max(a, b Dec) Dec {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Min returns the lesser of a and b.
func Min(a, b Dec) Dec {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String renders the value with full 18-digit fractional precision.
func (d Dec) String() string {
	v := d.safe()
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	whole := new(big.Int).Quo(abs, Scale)
	frac := new(big.Int).Mod(abs, Scale)
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%018s", sign, whole.String(), frac.String())
}

// Raw exposes the underlying scaled integer, for codec/serialization layers
// that need the two's-complement 128-bit (or wider) wire representation
// described in spec.md §6. Callers must not mutate the returned value.
func (d Dec) Raw() *big.Int { return new(big.Int).Set(d.safe()) }

// FromRaw reconstructs a Dec from an already-scaled integer (the inverse of
// Raw), validating it against the 256-bit bound.
func FromRaw(raw *big.Int) (Dec, error) {
	if raw == nil {
		return Zero(), nil
	}
	return fromBig(new(big.Int).Set(raw))
}
