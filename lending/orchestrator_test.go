package lending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"texturelend/address"
	"texturelend/decimal"
	"texturelend/irm"
	"texturelend/lenerr"
	"texturelend/oracle"
	"texturelend/token"
)

func mustAccount(b byte) address.Address {
	return address.MustNew(address.AccountPrefix, []byte{
		b, b, b, b, b, b, b, b, b, b,
		b, b, b, b, b, b, b, b, b, b,
	})
}

type fakePauseView struct{ paused bool }

func (f fakePauseView) IsPaused(string) bool { return f.paused }

func newTestEngine(ledger *token.Ledger, feed *oracle.Memory) *Engine {
	return NewEngine(token.NewClassicTransfer(ledger), feed, GlobalConfig{})
}

func newLiveReserve(mint, vault address.Address) *Reserve {
	r := newTestReserve()
	r.Liquidity.LiquidityMint = mint
	r.Liquidity.Vault = vault
	r.LastUpdate.Stale = false
	return r
}

func TestEngineDepositLiquidityMovesFundsAndMarksStale(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x10)
	depositor := mustAccount(0x20)
	vault := mustAccount(0x21)
	ledger.Credit(depositor, mint, decimal.FromInt64(1_000).ToFloor(6))

	engine := newTestEngine(ledger, oracle.NewMemory())
	r := newLiveReserve(mint, vault)

	lpOut, err := engine.DepositLiquidity(context.Background(), r, depositor, decimal.FromInt64(100))
	require.NoError(t, err)
	require.Equal(t, 0, lpOut.Cmp(decimal.FromInt64(100)))
	require.True(t, r.LastUpdate.Stale)
	require.Equal(t, decimal.FromInt64(900).ToFloor(6).String(), ledger.Balance(depositor, mint).String())
	require.Equal(t, decimal.FromInt64(100).ToFloor(6).String(), ledger.Balance(vault, mint).String())
}

func TestEngineDepositLiquidityRejectsWhenReserveRetainsLiquidity(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x11)
	depositor := mustAccount(0x22)
	vault := mustAccount(0x23)

	engine := newTestEngine(ledger, oracle.NewMemory())
	r := newLiveReserve(mint, vault)
	r.Mode = ModeRetainLiquidity

	_, err := engine.DepositLiquidity(context.Background(), r, depositor, decimal.FromInt64(10))
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.OperationCanNotBePerformed, kind)
}

func TestEngineDepositLiquidityRejectsWhenReserveStale(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x12)
	depositor := mustAccount(0x24)
	vault := mustAccount(0x25)

	engine := newTestEngine(ledger, oracle.NewMemory())
	r := newLiveReserve(mint, vault)
	r.LastUpdate.Stale = true

	_, err := engine.DepositLiquidity(context.Background(), r, depositor, decimal.FromInt64(10))
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.StaleReserve, kind)
}

func TestEngineRejectsOperationsWhenModulePaused(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x13)
	depositor := mustAccount(0x26)
	vault := mustAccount(0x27)

	engine := newTestEngine(ledger, oracle.NewMemory())
	engine.Pauses = fakePauseView{paused: true}
	r := newLiveReserve(mint, vault)

	_, err := engine.DepositLiquidity(context.Background(), r, depositor, decimal.FromInt64(10))
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.OperationCanNotBePerformed, kind)
}

func TestEngineFlashBorrowRepayRoundTrip(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x14)
	borrower := mustAccount(0x28)
	vault := mustAccount(0x29)
	ledger.Credit(vault, mint, decimal.FromInt64(1_000).ToFloor(6))
	ledger.Credit(borrower, mint, decimal.FromInt64(1_000).ToFloor(6))

	engine := newTestEngine(ledger, oracle.NewMemory())
	r := newLiveReserve(mint, vault)
	r.FlashLoansEnabled = true
	r.Liquidity.AvailableAmount = decimal.FromInt64(1_000)

	err := engine.FlashBorrow(context.Background(), r, borrower, decimal.FromInt64(200))
	require.NoError(t, err)
	require.Equal(t, 0, r.Liquidity.AvailableAmount.Cmp(decimal.FromInt64(800)))

	err = engine.FlashRepay(context.Background(), r, borrower, decimal.FromInt64(200), decimal.FromInt64(205))
	require.NoError(t, err)
	require.Equal(t, 0, r.Liquidity.AvailableAmount.Cmp(decimal.FromInt64(1_005)))
}

func TestEngineFlashRepayRejectsUnderpayment(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x15)
	borrower := mustAccount(0x2A)
	vault := mustAccount(0x2B)

	engine := newTestEngine(ledger, oracle.NewMemory())
	r := newLiveReserve(mint, vault)

	err := engine.FlashRepay(context.Background(), r, borrower, decimal.FromInt64(200), decimal.FromInt64(100))
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.InvalidAmount, kind)
}

func TestEngineFlashBorrowRejectsWhenModulePaused(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x16)
	borrower := mustAccount(0x2C)
	vault := mustAccount(0x2D)

	engine := newTestEngine(ledger, oracle.NewMemory())
	engine.Pauses = fakePauseView{paused: true}
	r := newLiveReserve(mint, vault)
	r.FlashLoansEnabled = true

	err := engine.FlashBorrow(context.Background(), r, borrower, decimal.FromInt64(10))
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.OperationCanNotBePerformed, kind)
}

func TestEngineRefreshReserveAccruesInterestAndClearsStale(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x17)
	vault := mustAccount(0x2E)

	feed := oracle.NewMemory()
	feed.Set("feed-1", decimal.FromInt64(2), time.Unix(1_000, 0))

	engine := newTestEngine(ledger, feed)
	r := newLiveReserve(mint, vault)
	r.Config.OracleFeedID = "feed-1"
	r.Config.PriceStaleThresholdSec = 3_600
	r.Liquidity.BorrowedAmount = decimal.FromInt64(500_000)
	r.LastUpdate.Stale = true
	r.LastUpdate.Slot = 0

	curve, err := irm.New(1, decimal.Zero(), decimal.FromBps(10_000), []decimal.Dec{decimal.FromBps(300)})
	require.NoError(t, err)

	err = engine.RefreshReserve(context.Background(), r, curve, SlotsPerYear, 1_100)
	require.NoError(t, err)
	require.Equal(t, 1, r.Liquidity.BorrowedAmount.Cmp(decimal.FromInt64(500_000)))
	require.False(t, r.LastUpdate.Stale)
	require.Equal(t, 0, r.Liquidity.MarketPrice.Cmp(decimal.FromInt64(2)))
}

func TestEngineRefreshReserveRejectsStalePrice(t *testing.T) {
	ledger := token.NewLedger()
	mint := mustMint(0x18)
	vault := mustAccount(0x2F)

	feed := oracle.NewMemory()
	feed.Set("feed-2", decimal.FromInt64(1), time.Unix(0, 0))

	engine := newTestEngine(ledger, feed)
	r := newLiveReserve(mint, vault)
	r.Config.OracleFeedID = "feed-2"
	r.Config.PriceStaleThresholdSec = 60

	curve, err := irm.New(1, decimal.Zero(), decimal.FromBps(10_000), []decimal.Dec{decimal.FromBps(300)})
	require.NoError(t, err)

	err = engine.RefreshReserve(context.Background(), r, curve, 10, 1_000_000)
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.StaleReserve, kind)
	require.True(t, r.LastUpdate.Stale)
}
