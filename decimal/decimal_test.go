package decimal

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBpsAndFromMinorUnits(t *testing.T) {
	r := FromBps(150)
	require.Equal(t, "0.015000000000000000", r.String())

	amt := FromMinorUnits(big.NewInt(1_500_000_000), 9) // 1.5 SOL
	require.Equal(t, "1.500000000000000000", amt.String())
}

func TestAddSubOverflow(t *testing.T) {
	huge, err := FromRaw(new(big.Int).Lsh(big.NewInt(1), 254))
	require.NoError(t, err)
	_, err = huge.Add(huge)
	require.ErrorIs(t, err, ErrOverflow)

	one := One()
	zero := Zero()
	sum, err := one.Add(zero)
	require.NoError(t, err)
	require.Equal(t, 0, sum.Cmp(one))
}

func TestMulDivExact(t *testing.T) {
	half, err := FromInt64(1).Div(FromInt64(2))
	require.NoError(t, err)
	require.Equal(t, "0.500000000000000000", half.String())

	product, err := half.Mul(FromInt64(4))
	require.NoError(t, err)
	require.Equal(t, "2.000000000000000000", product.String())
}

func TestDivByZero(t *testing.T) {
	_, err := FromInt64(1).Div(Zero())
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestPowRepeatedSquaring(t *testing.T) {
	// (1 + 0.1)^10 should match direct multiplication.
	base, err := FromBps(1000).Add(One())
	require.NoError(t, err)
	viaPow, err := base.Pow(10)
	require.NoError(t, err)

	viaLoop := One()
	for i := 0; i < 10; i++ {
		viaLoop, err = viaLoop.Mul(base)
		require.NoError(t, err)
	}
	require.Equal(t, 0, viaPow.Cmp(viaLoop))
}

func TestRoundTripConversions(t *testing.T) {
	d := FromMinorUnits(big.NewInt(1_000_000_001), 9) // slightly above 1.0
	require.Equal(t, big.NewInt(1_000_000_001).String(), d.ToFloor(9).String())
	require.Equal(t, big.NewInt(1_000_000_001).String(), d.ToCeil(9).String())
	require.Equal(t, big.NewInt(1_000_000_001).String(), d.ToRound(9).String())
}

func TestFloorCeilRoundOnFraction(t *testing.T) {
	// 1.25 units at 0 decimals: floor=1, ceil=2, round=1 (half-up magnitude: 1.25 rounds to 1).
	quarter, err := FromInt64(5).Div(FromInt64(4))
	require.NoError(t, err)
	require.Equal(t, "1", quarter.ToFloor(0).String())
	require.Equal(t, "2", quarter.ToCeil(0).String())
	require.Equal(t, "1", quarter.ToRound(0).String())

	half, err := FromInt64(1).Div(FromInt64(2))
	require.NoError(t, err)
	require.Equal(t, "1", half.ToRound(0).String())
}

func TestNegativeFloorCeil(t *testing.T) {
	negHalf := FromInt64(1).Neg()
	half, err := negHalf.Div(FromInt64(2))
	require.NoError(t, err)
	require.Equal(t, "-1", half.ToFloor(0).String())
	require.Equal(t, "0", half.ToCeil(0).String())
}

func TestMaxMin(t *testing.T) {
	a := FromInt64(3)
	b := FromInt64(5)
	require.Equal(t, 0, Max(a, b).Cmp(b))
	require.Equal(t, 0, Min(a, b).Cmp(a))
}
