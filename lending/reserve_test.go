package lending

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"texturelend/decimal"
	"texturelend/irm"
	"texturelend/lenerr"
)

func newTestReserve() *Reserve {
	return &Reserve{
		PoolID: "pool-1",
		Liquidity: Liquidity{
			MintDecimals:         6,
			AvailableAmount:      decimal.FromInt64(1_000_000),
			BorrowedAmount:       decimal.Zero(),
			CumulativeBorrowRate: decimal.One(),
			MarketPrice:          decimal.One(),
		},
		Collateral: Collateral{
			LPTotalSupply: decimal.Zero(),
		},
		Config: ReserveConfig{
			MaxTotalLiquidity:         decimal.FromInt64(10_000_000),
			MaxBorrowUtilizationBps:   8_000,
			MaxWithdrawUtilizationBps: 9_000,
		},
	}
}

func TestLPExchangeRateInitial(t *testing.T) {
	r := newTestReserve()
	rate, err := r.LPExchangeRate()
	require.NoError(t, err)
	require.Equal(t, 0, rate.Cmp(InitialLPRate()))
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	r := newTestReserve()
	r.Collateral.LPTotalSupply = decimal.FromInt64(1_000_000)

	lpOut, err := r.DepositLiquidity(decimal.FromInt64(100))
	require.NoError(t, err)
	require.Equal(t, 0, lpOut.Cmp(decimal.FromInt64(100)))
	require.Equal(t, 0, r.Liquidity.AvailableAmount.Cmp(decimal.FromInt64(1_000_100)))
	require.Equal(t, 0, r.Collateral.LPTotalSupply.Cmp(decimal.FromInt64(1_000_100)))

	liqOut, err := r.WithdrawLiquidity(decimal.FromInt64(100))
	require.NoError(t, err)
	require.Equal(t, 0, liqOut.Cmp(decimal.FromInt64(100)))
	require.Equal(t, 0, r.Collateral.LPTotalSupply.Cmp(decimal.FromInt64(1_000_000)))
}

func TestDepositRejectsNonPositive(t *testing.T) {
	r := newTestReserve()
	_, err := r.DepositLiquidity(decimal.Zero())
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.InvalidAmount, kind)
}

func TestDepositRejectsOverCap(t *testing.T) {
	r := newTestReserve()
	r.Config.MaxTotalLiquidity = decimal.FromInt64(1_000_050)
	_, err := r.DepositLiquidity(decimal.FromInt64(100))
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.ResourceExhausted, kind)
}

func TestWithdrawRejectsExceedingAvailable(t *testing.T) {
	r := newTestReserve()
	_, err := r.DepositLiquidity(decimal.FromInt64(100))
	require.NoError(t, err)
	_, err = r.WithdrawLiquidity(decimal.FromInt64(1_000_200))
	require.Error(t, err)
}

func TestUtilizationZeroWhenNoLiquidity(t *testing.T) {
	r := &Reserve{}
	u, err := r.Utilization()
	require.NoError(t, err)
	require.True(t, u.IsZero())
}

func TestMaxBorrowAmountRespectsUtilizationCap(t *testing.T) {
	r := newTestReserve()
	r.Config.MaxBorrowUtilizationBps = 5_000
	max, err := r.MaxBorrowAmount()
	require.NoError(t, err)
	require.Equal(t, 0, max.Cmp(decimal.FromInt64(500_000)))
}

func TestMaxBorrowAmountZeroCapReturnsZero(t *testing.T) {
	r := newTestReserve()
	r.Config.MaxBorrowUtilizationBps = 0
	max, err := r.MaxBorrowAmount()
	require.NoError(t, err)
	require.True(t, max.IsZero())
}

func TestAccrueInterestCompoundsAndSnapshotsRate(t *testing.T) {
	r := newTestReserve()
	r.Liquidity.BorrowedAmount = decimal.FromInt64(500_000)
	r.LastUpdate.Slot = 0
	r.LastUpdate.Stale = true

	curve, err := irm.New(1, decimal.Zero(), decimal.FromBps(10_000), []decimal.Dec{decimal.FromBps(300)})
	require.NoError(t, err)

	err = r.AccrueInterest(SlotsPerYear, curve)
	require.NoError(t, err)
	require.False(t, r.LastUpdate.Stale)
	require.Equal(t, SlotsPerYear, r.LastUpdate.Slot)
	require.True(t, r.Liquidity.BorrowedAmount.Cmp(decimal.FromInt64(500_000)) > 0)
	require.Equal(t, 0, r.Liquidity.BorrowRateSnapshot.Cmp(curve.Samples[0]))
}

func TestAccrueInterestNoOpWhenNoSlotsElapsed(t *testing.T) {
	r := newTestReserve()
	r.LastUpdate.Slot = 100
	curve, err := irm.New(1, decimal.Zero(), decimal.FromBps(10_000), []decimal.Dec{decimal.FromBps(300)})
	require.NoError(t, err)
	err = r.AccrueInterest(100, curve)
	require.NoError(t, err)
	require.True(t, r.Liquidity.BorrowedAmount.IsZero())
}

func TestBorrowMathExactChargesFeesAndCapsValue(t *testing.T) {
	result, err := BorrowMath(
		ExactAmount(decimal.FromInt64(1_000)),
		decimal.FromInt64(1_000_000),
		decimal.One(),
		decimal.FromInt64(1_000_000),
		100, // 1% curator
		50,  // 0.5% texture
		6,
	)
	require.NoError(t, err)
	require.Equal(t, 0, result.ReceiveAmount.Cmp(decimal.FromInt64(1_000)))
	require.True(t, result.CuratorFee.Sign() > 0)
	require.True(t, result.TextureFee.Sign() > 0)
	expectedBorrow, err := result.ReceiveAmount.Add(result.CuratorFee)
	require.NoError(t, err)
	expectedBorrow, err = expectedBorrow.Add(result.TextureFee)
	require.NoError(t, err)
	require.Equal(t, 0, result.BorrowAmount.Cmp(expectedBorrow))
}

func TestBorrowMathExactRejectsOverVMax(t *testing.T) {
	_, err := BorrowMath(
		ExactAmount(decimal.FromInt64(2_000_000)),
		decimal.FromInt64(1_000_000),
		decimal.One(),
		decimal.FromInt64(5_000_000),
		0, 0, 6,
	)
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.BorrowTooLarge, kind)
}

func TestBorrowMathMaxCapsAtAvailable(t *testing.T) {
	result, err := BorrowMath(
		MaxAmount(),
		decimal.FromInt64(10_000_000),
		decimal.One(),
		decimal.FromInt64(500_000),
		0, 0, 6,
	)
	require.NoError(t, err)
	require.Equal(t, 0, result.BorrowAmount.Cmp(decimal.FromInt64(500_000)))
}

func TestRepayMathExactAndMax(t *testing.T) {
	exact, err := RepayMath(ExactAmount(decimal.FromInt64(100)), decimal.FromInt64(500), 6)
	require.NoError(t, err)
	require.Equal(t, 0, exact.SettleAmount.Cmp(decimal.FromInt64(100)))

	max, err := RepayMath(MaxAmount(), decimal.FromInt64(500), 6)
	require.NoError(t, err)
	require.Equal(t, 0, max.SettleAmount.Cmp(decimal.FromInt64(500)))
}

func TestRepayMathExactClampsToOutstanding(t *testing.T) {
	res, err := RepayMath(ExactAmount(decimal.FromInt64(1_000)), decimal.FromInt64(500), 6)
	require.NoError(t, err)
	require.Equal(t, 0, res.SettleAmount.Cmp(decimal.FromInt64(500)))
}

func TestLiquidationMathRejectsHealthyPosition(t *testing.T) {
	_, err := LiquidationMath(LiquidationInput{
		LTVBps:                7_000,
		PartlyUnhealthyLTVBps: 8_000,
		FullyUnhealthyLTVBps:  9_000,
	})
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.AttemptToLiquidateHealthyPosition, kind)
}

func TestLiquidationMathFullyUnhealthyUsesFullCloseFactor(t *testing.T) {
	result, err := LiquidationMath(LiquidationInput{
		Amount:                    MaxAmount(),
		LTVBps:                    9_500,
		PartlyUnhealthyLTVBps:     8_000,
		FullyUnhealthyLTVBps:      9_000,
		LiquidationBonusBps:       500,
		PartialLiquidationFactor:  5_000,
		BorrowedValue:             decimal.FromInt64(1_000),
		BorrowMarketValue:         decimal.FromInt64(1_000),
		BorrowBorrowedAmount:      decimal.FromInt64(1_000),
		CollateralMarketValue:     decimal.FromInt64(2_000),
		CollateralDepositedAmount: decimal.FromInt64(2_000),
		PrincipalDecimals:         6,
	})
	require.NoError(t, err)
	require.Equal(t, 0, result.RepayAmount.Cmp(big.NewInt(1_000_000_000)))
}

func TestLiquidationMathInsufficientCollateralCapsByCollateralValue(t *testing.T) {
	result, err := LiquidationMath(LiquidationInput{
		Amount:                    MaxAmount(),
		LTVBps:                    9_500,
		PartlyUnhealthyLTVBps:     8_000,
		FullyUnhealthyLTVBps:      9_000,
		LiquidationBonusBps:       500,
		PartialLiquidationFactor:  10_000,
		BorrowedValue:             decimal.FromInt64(1_000),
		BorrowMarketValue:         decimal.FromInt64(1_000),
		BorrowBorrowedAmount:      decimal.FromInt64(1_000),
		CollateralMarketValue:     decimal.FromInt64(100),
		CollateralDepositedAmount: decimal.FromInt64(100),
		PrincipalDecimals:         6,
	})
	require.NoError(t, err)
	require.Equal(t, 0, result.WithdrawAmount.Cmp(big.NewInt(100)))
}

func TestWriteOffBadDebtClampsToOutstanding(t *testing.T) {
	newReserve, newPosition, reduced, err := WriteOffBadDebt(MaxAmount(), decimal.FromInt64(1_000), decimal.FromInt64(400))
	require.NoError(t, err)
	require.Equal(t, 0, reduced.Cmp(decimal.FromInt64(400)))
	require.True(t, newPosition.IsZero())
	require.Equal(t, 0, newReserve.Cmp(decimal.FromInt64(600)))
}
