// Package daemon wires the lending engine's collaborators (logging, OTLP
// tracing, Prometheus metrics, the in-memory transfer/oracle adapters, and
// the pause gate) into one long-running process. It is the process
// entrypoint the orchestrator's Logger/Events/metrics fields are built for;
// cmd/texturelend-cli exercises the math in isolation, this exercises the
// composed engine.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"texturelend/address"
	"texturelend/config"
	"texturelend/decimal"
	"texturelend/irm"
	"texturelend/lending"
	"texturelend/native/common"
	"texturelend/observability"
	telemetry "texturelend/observability/otel"
	"texturelend/oracle"
	"texturelend/token"
)

// Daemon composes a lending.Engine with the observability stack wired in
// and exposes it over HTTP for health checks and Prometheus scraping.
type Daemon struct {
	Engine  *lending.Engine
	Pauses  *common.StaticPauseView
	Metrics *observability.LendingMetrics
	Ledger  *token.Ledger
	Feed    *oracle.Memory

	listenAddress     string
	shutdownTelemetry func(context.Context) error
}

// Build loads cfg's wiring into a running Engine: structured logging via
// observability/logging, OTLP tracing/metrics via observability/otel (when
// enabled), a Prometheus-backed EventSink and LendingMetrics registry, and
// an in-memory Transfer/Feed pair standing in for the real token program and
// oracle account a production deployment would dial instead.
func Build(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	global, err := cfg.Global.ToRuntime()
	if err != nil {
		return nil, fmt.Errorf("daemon: resolve global config: %w", err)
	}

	var shutdownTelemetry func(context.Context) error
	if cfg.Otel.Enabled {
		shutdownTelemetry, err = telemetry.Init(ctx, telemetry.Config{
			ServiceName: "texturelend-engined",
			Environment: cfg.Env,
			Endpoint:    cfg.Otel.Endpoint,
			Insecure:    cfg.Otel.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Otel.HeaderListCSV),
			Metrics:     true,
			Traces:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("daemon: init telemetry: %w", err)
		}
	}

	ledger := token.NewLedger()
	feed := oracle.NewMemory()
	pauses := common.NewStaticPauseView()

	engine := lending.NewEngine(token.NewClassicTransfer(ledger), feed, global)
	engine.Logger = slog.Default().With("component", "lending-engine")
	engine.Events = observability.NewEventSink(nil)
	engine.Pauses = pauses
	engine.RateLimiter.SetLimit(cfg.RateLimit.EventsPerSecond, clampBurst(cfg.RateLimit.Burst))

	return &Daemon{
		Engine:            engine,
		Pauses:            pauses,
		Metrics:           observability.Lending(),
		Ledger:            ledger,
		Feed:              feed,
		listenAddress:     cfg.ListenAddress,
		shutdownTelemetry: shutdownTelemetry,
	}, nil
}

func clampBurst(burst int) int {
	if burst <= 0 {
		return 1
	}
	return burst
}

// Close shuts down the OTLP exporters, if telemetry was enabled.
func (d *Daemon) Close(ctx context.Context) error {
	if d.shutdownTelemetry == nil {
		return nil
	}
	return d.shutdownTelemetry(ctx)
}

// DepositLiquidity wraps Engine.DepositLiquidity with an operation timer so
// the request/error/latency series in observability/metrics.go reflect real
// calls, not just the event-count series the EventSink records.
func (d *Daemon) DepositLiquidity(ctx context.Context, r *lending.Reserve, depositor address.Address, amount decimal.Dec) (decimal.Dec, error) {
	start := time.Now()
	lpOut, err := d.Engine.DepositLiquidity(ctx, r, depositor, amount)
	d.Metrics.ObserveOperation("DepositLiquidity", err, time.Since(start))
	return lpOut, err
}

// WithdrawLiquidity is the WithdrawLiquidity analogue of DepositLiquidity.
func (d *Daemon) WithdrawLiquidity(ctx context.Context, r *lending.Reserve, withdrawer address.Address, lpIn decimal.Dec) (decimal.Dec, error) {
	start := time.Now()
	out, err := d.Engine.WithdrawLiquidity(ctx, r, withdrawer, lpIn)
	d.Metrics.ObserveOperation("WithdrawLiquidity", err, time.Since(start))
	return out, err
}

// RefreshReserve wraps Engine.RefreshReserve, additionally publishing the
// reserve's post-refresh utilization and staleness onto the gauges
// RecordReserveHealth exposes.
func (d *Daemon) RefreshReserve(ctx context.Context, r *lending.Reserve, curve *irm.Curve, nowSlot uint64, nowUnix int64) error {
	start := time.Now()
	err := d.Engine.RefreshReserve(ctx, r, curve, nowSlot, nowUnix)
	d.Metrics.ObserveOperation("RefreshReserve", err, time.Since(start))

	if utilization, uerr := r.Utilization(); uerr == nil {
		d.Metrics.RecordReserveHealth(r.PoolID, r.Liquidity.LiquidityMint.String(), decToFloat64(utilization), r.LastUpdate.Stale)
	}
	return err
}

// RefreshPosition wraps Position.RefreshPosition, publishing the refreshed
// LTV onto the gauge RecordPositionLTV exposes. Unlike the reserve and
// liquidity operations above, RefreshPosition is not itself an Engine
// method; the engine only consumes its output, so this wrapper times the
// position's own aggregation method directly.
func (d *Daemon) RefreshPosition(p *lending.Position, in lending.RefreshInputs) error {
	start := time.Now()
	err := p.RefreshPosition(in)
	d.Metrics.ObserveOperation("RefreshPosition", err, time.Since(start))
	if err == nil {
		if ltv, lerr := p.LTV(); lerr == nil {
			d.Metrics.RecordPositionLTV(p.PoolID, p.Owner.String(), ratioToBps(ltv))
		}
	}
	return err
}

// decToFloat64 renders a Q18 Dec as a float64 for Prometheus gauges, which
// have no fixed-point type of their own.
func decToFloat64(d decimal.Dec) float64 {
	f := new(big.Float).SetInt(d.Raw())
	scale := new(big.Float).SetInt(decimal.Scale)
	out, _ := new(big.Float).Quo(f, scale).Float64()
	return out
}

// ratioToBps converts a Q18 ratio (e.g. 0.7 LTV) into basis points (7000),
// mirroring the orchestrator's own unexported conversion.
func ratioToBps(ratio decimal.Dec) uint64 {
	scaled, err := ratio.Mul(decimal.FromInt64(10_000))
	if err != nil {
		return 0
	}
	return scaled.ToFloor(0).Uint64()
}

// Handler serves /healthz and the Prometheus /metrics endpoint.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe blocks serving the Daemon's HTTP handler until ctx is
// canceled, then gracefully shuts the server down.
func (d *Daemon) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:         d.listenAddress,
		Handler:      d.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !strings.Contains(err.Error(), "Server closed") {
			return err
		}
		return nil
	}
}
