package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"texturelend/address"
	"texturelend/config"
	"texturelend/decimal"
	"texturelend/irm"
	"texturelend/lending"
	"texturelend/native/common"
)

func mustMint(b byte) address.Address {
	bytes := make([]byte, 20)
	for i := range bytes {
		bytes[i] = b
	}
	return address.MustNew(address.MintPrefix, bytes)
}

func mustAccount(b byte) address.Address {
	bytes := make([]byte, 20)
	for i := range bytes {
		bytes[i] = b
	}
	return address.MustNew(address.AccountPrefix, bytes)
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func newTestReserve(mint, vault address.Address) *lending.Reserve {
	return &lending.Reserve{
		PoolID: "pool-1",
		Liquidity: lending.Liquidity{
			LiquidityMint:        mint,
			Vault:                vault,
			MintDecimals:         6,
			AvailableAmount:      decimal.FromInt64(1_000_000),
			BorrowedAmount:       decimal.FromInt64(200_000),
			CumulativeBorrowRate: decimal.One(),
			MarketPrice:          decimal.One(),
		},
		Collateral: lending.Collateral{
			LPTotalSupply: decimal.Zero(),
		},
		Config: lending.ReserveConfig{
			MaxTotalLiquidity:         decimal.FromInt64(10_000_000),
			MaxBorrowUtilizationBps:   8_000,
			MaxWithdrawUtilizationBps: 9_000,
			PriceStaleThresholdSec:    3_600,
		},
	}
}

func TestBuildWiresLoggerEventsAndPauses(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close(context.Background())

	require.NotNil(t, d.Engine.Logger)
	require.NotNil(t, d.Engine.Events)

	pv, ok := d.Engine.Pauses.(*common.StaticPauseView)
	require.True(t, ok)
	require.Same(t, d.Pauses, pv)

	d.Pauses.Pause("lending")
	_, err = d.DepositLiquidity(context.Background(), newTestReserve(mustMint(0x99), mustAccount(0x98)), mustAccount(0x97), decimal.FromInt64(1))
	require.Error(t, err)
}

func TestDepositLiquidityRecordsOperationMetrics(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close(context.Background())

	mint := mustMint(0x01)
	vault := mustAccount(0x02)
	depositor := mustAccount(0x03)
	d.Ledger.Credit(depositor, mint, decimal.FromInt64(500).ToFloor(6))

	r := newTestReserve(mint, vault)

	before := testutil.ToFloat64(d.Metrics.RequestsCounter("DepositLiquidity", "success"))
	_, err = d.DepositLiquidity(context.Background(), r, depositor, decimal.FromInt64(100))
	require.NoError(t, err)
	after := testutil.ToFloat64(d.Metrics.RequestsCounter("DepositLiquidity", "success"))
	require.Equal(t, before+1, after)
}

func TestRefreshReserveUpdatesPriceAndClearsStale(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close(context.Background())

	mint := mustMint(0x04)
	vault := mustAccount(0x05)
	r := newTestReserve(mint, vault)
	r.Config.OracleFeedID = "feed-daemon"
	d.Feed.Set("feed-daemon", decimal.FromInt64(2), time.Unix(1_000, 0))

	curve, err := irm.New(1, decimal.Zero(), decimal.FromBps(10_000), []decimal.Dec{decimal.FromBps(300)})
	require.NoError(t, err)

	err = d.RefreshReserve(context.Background(), r, curve, lending.SlotsPerYear, 1_000)
	require.NoError(t, err)
	require.False(t, r.LastUpdate.Stale)
	require.Equal(t, 0, r.Liquidity.MarketPrice.Cmp(decimal.FromInt64(2)))
}

func TestRefreshPositionClearsStale(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close(context.Background())

	mint := mustMint(0x06)
	vault := mustAccount(0x07)
	collateral := newTestReserve(mint, vault)
	collateral.Collateral.LPTotalSupply = decimal.FromInt64(100)
	collateral.Liquidity.MarketPrice = decimal.FromInt64(2)

	p := &lending.Position{
		Owner:  mustAccount(0x08),
		PoolID: "pool-1",
	}
	idx, err := p.FindOrAddCollateral(collateral.Key())
	require.NoError(t, err)
	lpPrice, err := collateral.LPMarketPrice()
	require.NoError(t, err)
	p.Collateral[idx].DepositReserveKey = collateral.Key()
	require.NoError(t, p.Collateral[idx].DepositCollateral(decimal.FromInt64(100), lpPrice, 0))

	err = d.RefreshPosition(p, lending.RefreshInputs{
		NowSlot:  1,
		NowUnix:  1_000,
		Reserves: map[string]*lending.Reserve{collateral.Key(): collateral},
	})
	require.NoError(t, err)
	require.False(t, p.LastUpdate.Stale)
}

func TestHandlerServesHealthAndMetrics(t *testing.T) {
	cfg := newTestConfig(t)
	d, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close(context.Background())

	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)
}
