package irm

import (
	"testing"

	"texturelend/decimal"

	"github.com/stretchr/testify/require"
)

func TestCurveFlatBelowX0(t *testing.T) {
	c, err := New(1, decimal.Zero(), decimal.FromBps(1000), []decimal.Dec{decimal.FromBps(200), decimal.FromBps(1000)})
	require.NoError(t, err)
	r, err := c.BorrowRate(decimal.Zero())
	require.NoError(t, err)
	require.Equal(t, 0, r.Cmp(decimal.FromBps(200)))
}

func TestCurveFlatAboveDomain(t *testing.T) {
	c, err := New(1, decimal.Zero(), decimal.FromBps(5000), []decimal.Dec{decimal.FromBps(200), decimal.FromBps(1000)})
	require.NoError(t, err)
	r, err := c.BorrowRate(decimal.One())
	require.NoError(t, err)
	require.Equal(t, 0, r.Cmp(decimal.FromBps(1000)))
}

func TestCurveInterpolatesMidpoint(t *testing.T) {
	c, err := New(1, decimal.Zero(), decimal.One(), []decimal.Dec{decimal.FromBps(0), decimal.FromBps(10000)})
	require.NoError(t, err)
	half, err := decimal.One().Div(decimal.FromInt64(2))
	require.NoError(t, err)
	r, err := c.BorrowRate(half)
	require.NoError(t, err)
	require.Equal(t, 0, r.Cmp(decimal.FromBps(5000)))
}

func TestCurveRejectsTooManySamples(t *testing.T) {
	samples := make([]decimal.Dec, MaxSamples+1)
	for i := range samples {
		samples[i] = decimal.Zero()
	}
	_, err := New(1, decimal.Zero(), decimal.One(), samples)
	require.Error(t, err)
}
