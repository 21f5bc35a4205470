package lending

import (
	"testing"

	"github.com/stretchr/testify/require"

	"texturelend/address"
	"texturelend/decimal"
	"texturelend/lenerr"
)

func mustMint(b byte) address.Address {
	return address.MustNew(address.MintPrefix, []byte{
		b, b, b, b, b, b, b, b, b, b,
		b, b, b, b, b, b, b, b, b, b,
	})
}

func TestFindOrAddCollateralReusesVacantSlot(t *testing.T) {
	p := &Position{}
	idx, err := p.FindOrAddCollateral("pool-1/mintA")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	p.Collateral[0].DepositReserveKey = "pool-1/mintA"
	p.Collateral[0].DepositedAmount = decimal.FromInt64(10)

	idx, err = p.FindOrAddCollateral("pool-1/mintA")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	idx, err = p.FindOrAddCollateral("pool-1/mintB")
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestFindOrAddCollateralExhausted(t *testing.T) {
	p := &Position{}
	for i := 0; i < MaxCollateralSlots; i++ {
		p.Collateral[i].DepositReserveKey = "x"
		p.Collateral[i].DepositedAmount = decimal.FromInt64(1)
	}
	_, err := p.FindOrAddCollateral("new-key")
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.ResourceExhausted, kind)
}

func TestCollateralDepositAndWithdrawTrackEntryValue(t *testing.T) {
	rec := &CollateralRecord{}
	err := rec.DepositCollateral(decimal.FromInt64(100), decimal.FromInt64(2), 6)
	require.NoError(t, err)
	require.Equal(t, 0, rec.DepositedAmount.Cmp(decimal.FromInt64(100)))
	require.Equal(t, 0, rec.EntryMarketValue.Cmp(decimal.FromInt64(200)))

	err = rec.WithdrawCollateral(decimal.FromInt64(50))
	require.NoError(t, err)
	require.Equal(t, 0, rec.DepositedAmount.Cmp(decimal.FromInt64(50)))
	require.Equal(t, 0, rec.EntryMarketValue.Cmp(decimal.FromInt64(100)))
}

func TestCollateralWithdrawRejectsVacant(t *testing.T) {
	rec := &CollateralRecord{}
	err := rec.WithdrawCollateral(decimal.FromInt64(1))
	require.Error(t, err)
}

func TestBorrowRepayTrackEntryValue(t *testing.T) {
	rec := &BorrowRecord{}
	err := rec.Borrow(decimal.FromInt64(100), decimal.FromInt64(3))
	require.NoError(t, err)
	require.Equal(t, 0, rec.BorrowedAmount.Cmp(decimal.FromInt64(100)))
	require.Equal(t, 0, rec.EntryMarketValue.Cmp(decimal.FromInt64(300)))

	err = rec.Repay(decimal.FromInt64(40))
	require.NoError(t, err)
	require.Equal(t, 0, rec.BorrowedAmount.Cmp(decimal.FromInt64(60)))
	require.Equal(t, 0, rec.EntryMarketValue.Cmp(decimal.FromInt64(180)))
}

func TestRepayRejectsVacantBorrow(t *testing.T) {
	rec := &BorrowRecord{}
	err := rec.Repay(decimal.FromInt64(1))
	require.Error(t, err)
}

func TestRefreshPositionAggregatesAcrossReserves(t *testing.T) {
	mintA := mustMint(0xAA)
	mintB := mustMint(0xBB)

	collateralReserve := newTestReserve()
	collateralReserve.Liquidity.LiquidityMint = mintA
	collateralReserve.Collateral.LPTotalSupply = decimal.FromInt64(1_000_000)
	collateralReserve.Liquidity.MarketPrice = decimal.FromInt64(2)
	collateralReserve.Config.MaxBorrowLTVBps = 7_000
	collateralReserve.Config.PartlyUnhealthyLTVBps = 8_000
	collateralReserve.Config.FullyUnhealthyLTVBps = 9_000

	borrowReserve := newTestReserve()
	borrowReserve.Liquidity.LiquidityMint = mintB
	borrowReserve.Liquidity.MarketPrice = decimal.One()
	borrowReserve.Liquidity.CumulativeBorrowRate = decimal.One()

	p := &Position{}
	p.Collateral[0] = CollateralRecord{
		DepositReserveKey: collateralReserve.Key(),
		DepositedAmount:   decimal.FromInt64(100),
	}
	p.Borrows[0] = BorrowRecord{
		BorrowReserveKey:     borrowReserve.Key(),
		BorrowedAmount:       decimal.FromInt64(50),
		CumulativeBorrowRate: decimal.One(),
	}

	err := p.RefreshPosition(RefreshInputs{
		NowSlot: 10,
		NowUnix: 1000,
		Reserves: map[string]*Reserve{
			collateralReserve.Key(): collateralReserve,
			borrowReserve.Key():     borrowReserve,
		},
	})
	require.NoError(t, err)

	require.Equal(t, 0, p.DepositedValue.Cmp(decimal.FromInt64(200)))
	require.Equal(t, 0, p.BorrowedValue.Cmp(decimal.FromInt64(50)))
	require.Equal(t, 0, p.AllowedBorrowValue.Cmp(decimal.FromInt64(140)))
	require.False(t, p.LastUpdate.Stale)
	require.Equal(t, uint64(10), p.LastUpdate.Slot)
}

func TestRefreshPositionRejectsMissingReserve(t *testing.T) {
	p := &Position{}
	p.Collateral[0] = CollateralRecord{
		DepositReserveKey: "missing",
		DepositedAmount:   decimal.FromInt64(1),
	}
	err := p.RefreshPosition(RefreshInputs{Reserves: map[string]*Reserve{}})
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.DepositedCollateralNotFound, kind)
}

func TestRefreshPositionRejectsStaleReserve(t *testing.T) {
	r := newTestReserve()
	r.LastUpdate.Stale = true
	p := &Position{}
	p.Collateral[0] = CollateralRecord{
		DepositReserveKey: r.Key(),
		DepositedAmount:   decimal.FromInt64(1),
	}
	err := p.RefreshPosition(RefreshInputs{Reserves: map[string]*Reserve{r.Key(): r}})
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.StaleReserve, kind)
}

func TestLTVAndRemainingBorrowValue(t *testing.T) {
	p := &Position{
		DepositedValue:     decimal.FromInt64(1_000),
		BorrowedValue:      decimal.FromInt64(300),
		AllowedBorrowValue: decimal.FromInt64(700),
	}
	ltv, err := p.LTV()
	require.NoError(t, err)
	require.Equal(t, 0, ltv.Cmp(decimal.FromBps(3_000)))

	remaining, err := p.RemainingBorrowValue()
	require.NoError(t, err)
	require.Equal(t, 0, remaining.Cmp(decimal.FromInt64(400)))
}

func TestRemainingBorrowValueFloorsAtZero(t *testing.T) {
	p := &Position{
		AllowedBorrowValue: decimal.FromInt64(100),
		BorrowedValue:      decimal.FromInt64(500),
	}
	remaining, err := p.RemainingBorrowValue()
	require.NoError(t, err)
	require.True(t, remaining.IsZero())
}

func TestClosableRequiresEmptySlots(t *testing.T) {
	p := &Position{}
	require.True(t, p.Closable())

	p.Borrows[0].BorrowedAmount = decimal.FromInt64(1)
	require.False(t, p.Closable())
}
