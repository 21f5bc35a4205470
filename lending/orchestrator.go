package lending

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/time/rate"

	"texturelend/address"
	"texturelend/decimal"
	"texturelend/irm"
	"texturelend/lenerr"
	"texturelend/native/common"
	"texturelend/oracle"
	"texturelend/token"
)

// lendingModule is the name Engine reports to its PauseView, matching the
// module name an admin would pause through the same governance path that
// pauses any other on-chain module.
const lendingModule = "lending"

// OperationEvent is the structured audit-log record emitted after every
// orchestrator operation, successful or not.
type OperationEvent struct {
	Op     string
	PoolID string
	Actor  address.Address
	Slot   uint64
	Err    error
}

// EventSink observes every orchestrator operation without the engine
// depending on metrics or logging concretely.
type EventSink interface {
	Emit(ctx context.Context, evt OperationEvent)
}

// NopEventSink discards every event.
type NopEventSink struct{}

// Emit implements EventSink.
func (NopEventSink) Emit(context.Context, OperationEvent) {}

// RateLimiter bounds operation submission frequency per (pool, account),
// independent of the protocol-level utilization caps. Disabled (unlimited)
// until SetLimit configures it.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter constructs a disabled (unlimited) rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// SetLimit configures the per-account token-bucket rate (events/sec) and
// burst size. A zero limit disables throttling.
func (rl *RateLimiter) SetLimit(eventsPerSecond float64, burst int) {
	rl.limit = rate.Limit(eventsPerSecond)
	rl.burst = burst
}

// Allow reports whether (poolID, account) may proceed right now.
func (rl *RateLimiter) Allow(poolID string, account address.Address) bool {
	if rl == nil || rl.limit == 0 {
		return true
	}
	key := poolID + "/" + account.String()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	return l.Allow()
}

// Engine composes the Reserve, Position, Rewards, and ConfigProposal
// primitives into the top-level operation surface, enforcing the freshness
// preconditions of 4.G. It is not safe for concurrent use against the same
// pool/position pair; the caller's persistence layer must serialize that.
type Engine struct {
	Transfer    token.Transfer
	Oracle      oracle.Feed
	Events      EventSink
	Logger      *slog.Logger
	RateLimiter *RateLimiter
	Pauses      common.PauseView
	Global      GlobalConfig
}

// NewEngine constructs an Engine with safe zero-value collaborators
// (NopEventSink, a disabled RateLimiter, slog.Default(), no PauseView).
func NewEngine(transfer token.Transfer, feed oracle.Feed, global GlobalConfig) *Engine {
	return &Engine{
		Transfer:    transfer,
		Oracle:      feed,
		Events:      NopEventSink{},
		Logger:      slog.Default(),
		RateLimiter: NewRateLimiter(),
		Global:      global,
	}
}

func (e *Engine) emit(ctx context.Context, op, poolID string, actor address.Address, slot uint64, err error) {
	if e.Logger != nil {
		if err != nil {
			e.Logger.Warn("lending operation rejected", "op", op, "pool", poolID, "actor", actor.String(), "error", err)
		} else {
			e.Logger.Info("lending operation applied", "op", op, "pool", poolID, "actor", actor.String())
		}
	}
	if e.Events != nil {
		e.Events.Emit(ctx, OperationEvent{Op: op, PoolID: poolID, Actor: actor, Slot: slot, Err: err})
	}
}

// checkRateLimit enforces the global pause gate and the per-account
// submission rate limit, in that order, ahead of the deposit, withdraw,
// lock, unlock, borrow, repay and liquidate operations.
func (e *Engine) checkRateLimit(poolID string, actor address.Address) error {
	if err := common.Guard(e.Pauses, lendingModule); err != nil {
		return lenerr.Wrap(lenerr.OperationCanNotBePerformed, "lending module paused", err)
	}
	if e.RateLimiter != nil && !e.RateLimiter.Allow(poolID, actor) {
		return lenerr.New(lenerr.ResourceExhausted, "operation rate limit exceeded")
	}
	return nil
}

// RefreshReserve re-derives the reserve's interest accrual and clears its
// stale flag. Must be called before any value-sensitive operation touching
// this reserve in the same batch.
func (e *Engine) RefreshReserve(ctx context.Context, r *Reserve, curve *irm.Curve, nowSlot uint64, nowUnix int64) error {
	priceFeed, publishedAt, err := e.Oracle.GetPrice(ctx, r.Config.OracleFeedID)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "oracle price fetch", err)
	}
	r.Liquidity.MarketPrice = priceFeed
	r.Liquidity.MarketPricePublishUnix = publishedAt.Unix()
	if oracle.IsStale(publishedAt, time.Unix(nowUnix, 0), r.Config.PriceStaleThresholdSec) {
		r.LastUpdate.Stale = true
		return lenerr.New(lenerr.StaleReserve, "oracle price is stale")
	}

	prevBorrowed := r.Liquidity.BorrowedAmount
	if err := r.AccrueInterest(nowSlot, curve); err != nil {
		return err
	}
	interest, err := r.Liquidity.BorrowedAmount.Sub(prevBorrowed)
	if err != nil {
		return err
	}
	if err := r.AccrueTexturePerformanceFee(interest, e.Global.TexturePerformanceFeeRateBps); err != nil {
		return err
	}
	r.LastUpdate.Stale = false
	return nil
}

// DepositLiquidity implements the DepositLiquidity operation.
func (e *Engine) DepositLiquidity(ctx context.Context, r *Reserve, depositor address.Address, amount decimal.Dec) (lpOut decimal.Dec, err error) {
	defer func() { e.emit(ctx, "DepositLiquidity", r.PoolID, depositor, r.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(r.PoolID, depositor); err != nil {
		return decimal.Zero(), err
	}
	if r.LastUpdate.Stale {
		return decimal.Zero(), lenerr.New(lenerr.StaleReserve, "reserve not fresh")
	}
	if r.Mode == ModeRetainLiquidity {
		return decimal.Zero(), lenerr.New(lenerr.OperationCanNotBePerformed, "reserve retains liquidity")
	}
	lpOut, err = r.DepositLiquidity(amount)
	if err != nil {
		return decimal.Zero(), err
	}
	minorUnits := amount.ToFloor(r.Liquidity.MintDecimals)
	if err = e.Transfer.Transfer(ctx, depositor, r.Liquidity.Vault, minorUnits, r.Liquidity.MintDecimals, r.Liquidity.LiquidityMint); err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.OperationCanNotBePerformed, "liquidity transfer failed", err)
	}
	r.LastUpdate.Stale = true
	return lpOut, nil
}

// WithdrawLiquidity implements the WithdrawLiquidity operation.
func (e *Engine) WithdrawLiquidity(ctx context.Context, r *Reserve, withdrawer address.Address, lpIn decimal.Dec) (liqOut decimal.Dec, err error) {
	defer func() { e.emit(ctx, "WithdrawLiquidity", r.PoolID, withdrawer, r.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(r.PoolID, withdrawer); err != nil {
		return decimal.Zero(), err
	}
	if r.LastUpdate.Stale {
		return decimal.Zero(), lenerr.New(lenerr.StaleReserve, "reserve not fresh")
	}
	if r.Mode == ModeRetainLiquidity {
		return decimal.Zero(), lenerr.New(lenerr.OperationCanNotBePerformed, "reserve retains liquidity")
	}
	maxWithdraw, err := r.MaxWithdrawLiquidity()
	if err != nil {
		return decimal.Zero(), err
	}
	liqOut, err = r.WithdrawLiquidity(lpIn)
	if err != nil {
		return decimal.Zero(), err
	}
	if liqOut.Cmp(maxWithdraw) > 0 {
		return decimal.Zero(), lenerr.New(lenerr.ResourceExhausted, "withdrawal would exceed max withdraw utilization")
	}
	minorUnits := liqOut.ToFloor(r.Liquidity.MintDecimals)
	if err = e.Transfer.Transfer(ctx, r.Liquidity.Vault, withdrawer, minorUnits, r.Liquidity.MintDecimals, r.Liquidity.LiquidityMint); err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.OperationCanNotBePerformed, "liquidity transfer failed", err)
	}
	r.LastUpdate.Stale = true
	return liqOut, nil
}

// LockCollateral implements the LockCollateral operation.
func (e *Engine) LockCollateral(ctx context.Context, depositReserve *Reserve, p *Position, owner address.Address, lpAmount decimal.Dec) (err error) {
	defer func() { e.emit(ctx, "LockCollateral", p.PoolID, owner, p.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(p.PoolID, owner); err != nil {
		return err
	}
	if depositReserve.LastUpdate.Stale || p.LastUpdate.Stale {
		return lenerr.New(lenerr.StaleReserve, "reserve or position not fresh")
	}
	if depositReserve.Type == ReserveNotCollateral {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "reserve is not eligible as collateral")
	}
	if depositReserve.PoolID != p.PoolID {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "reserve and position are in different pools")
	}
	idx, err := p.FindOrAddCollateral(depositReserve.Key())
	if err != nil {
		return err
	}
	lpPrice, err := depositReserve.LPMarketPrice()
	if err != nil {
		return err
	}
	rec := &p.Collateral[idx]
	rec.DepositReserveKey = depositReserve.Key()
	if err = rec.DepositCollateral(lpAmount, lpPrice, 0); err != nil {
		return err
	}
	p.LastUpdate.Stale = true
	return nil
}

// UnlockCollateral implements the UnlockCollateral operation.
func (e *Engine) UnlockCollateral(ctx context.Context, depositReserve *Reserve, p *Position, owner address.Address, lpAmount decimal.Dec) (err error) {
	defer func() { e.emit(ctx, "UnlockCollateral", p.PoolID, owner, p.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(p.PoolID, owner); err != nil {
		return err
	}
	if depositReserve.LastUpdate.Stale || p.LastUpdate.Stale {
		return lenerr.New(lenerr.StaleReserve, "reserve or position not fresh")
	}
	if depositReserve.Mode == ModeRetainLiquidity {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "reserve retains liquidity")
	}
	if depositReserve.PoolID != p.PoolID {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "reserve and position are in different pools")
	}
	idx, err := p.FindOrAddCollateral(depositReserve.Key())
	if err != nil {
		return err
	}
	rec := &p.Collateral[idx]
	maxWithdrawValue, err := p.MaxWithdrawValue(depositReserve.Config.MaxBorrowLTVBps)
	if err != nil {
		return err
	}
	lpPrice, err := depositReserve.LPMarketPrice()
	if err != nil {
		return err
	}
	withdrawValue, err := lpAmount.Mul(lpPrice)
	if err != nil {
		return err
	}
	if withdrawValue.Cmp(maxWithdrawValue) > 0 {
		return lenerr.New(lenerr.InvalidAmount, "withdrawal exceeds max withdraw value")
	}
	if err = rec.WithdrawCollateral(lpAmount); err != nil {
		return err
	}
	p.LastUpdate.Stale = true
	return nil
}

// Borrow implements the Borrow operation.
func (e *Engine) Borrow(ctx context.Context, borrowReserve *Reserve, p *Position, borrower address.Address, amount Amount, slippageLimit decimal.Dec) (receive decimal.Dec, err error) {
	defer func() { e.emit(ctx, "Borrow", p.PoolID, borrower, p.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(p.PoolID, borrower); err != nil {
		return decimal.Zero(), err
	}
	if borrowReserve.LastUpdate.Stale || p.LastUpdate.Stale {
		return decimal.Zero(), lenerr.New(lenerr.StaleReserve, "reserve or position not fresh")
	}
	if borrowReserve.Type == ReserveProtectedCollateral || borrowReserve.Mode == ModeBorrowDisabled || borrowReserve.Mode == ModeRetainLiquidity {
		return decimal.Zero(), lenerr.New(lenerr.OperationCanNotBePerformed, "reserve does not permit borrowing")
	}
	if borrowReserve.PoolID != p.PoolID {
		return decimal.Zero(), lenerr.New(lenerr.OperationCanNotBePerformed, "reserve and position are in different pools")
	}
	if p.DepositedValue.IsZero() {
		return decimal.Zero(), lenerr.New(lenerr.OperationCanNotBePerformed, "position has no collateral value")
	}
	remaining, err := p.RemainingBorrowValue()
	if err != nil {
		return decimal.Zero(), err
	}
	if remaining.Sign() <= 0 {
		return decimal.Zero(), lenerr.New(lenerr.InvalidAmount, "position has no remaining borrow value")
	}

	result, err := BorrowMath(amount, remaining, borrowReserve.Liquidity.MarketPrice, borrowReserve.Liquidity.AvailableAmount,
		borrowReserve.Config.Fees.CuratorBorrowFeeRateBps, e.Global.TextureBorrowFeeRateBps, borrowReserve.Liquidity.MintDecimals)
	if err != nil {
		return decimal.Zero(), err
	}
	if amount.Max && result.ReceiveAmount.Cmp(slippageLimit) < 0 {
		return decimal.Zero(), lenerr.New(lenerr.InvalidAmount, "receive amount below slippage limit")
	}

	newAvailable, err := borrowReserve.Liquidity.AvailableAmount.Sub(result.BorrowAmount)
	if err != nil {
		return decimal.Zero(), err
	}
	newBorrowed, err := borrowReserve.Liquidity.BorrowedAmount.Add(result.BorrowAmount)
	if err != nil {
		return decimal.Zero(), err
	}
	newTotal, err := newAvailable.Add(newBorrowed)
	if err != nil {
		return decimal.Zero(), err
	}
	if !newTotal.IsZero() {
		utilization, err := newBorrowed.Div(newTotal)
		if err != nil {
			return decimal.Zero(), err
		}
		if utilization.Cmp(decimal.FromBps(borrowReserve.Config.MaxBorrowUtilizationBps)) > 0 {
			return decimal.Zero(), lenerr.New(lenerr.ResourceExhausted, "borrow would exceed max borrow utilization")
		}
	}

	idx, err := p.FindOrAddBorrow(borrowReserve.Key())
	if err != nil {
		return decimal.Zero(), err
	}
	rec := &p.Borrows[idx]
	rec.BorrowReserveKey = borrowReserve.Key()
	if rec.CumulativeBorrowRate.IsZero() {
		rec.CumulativeBorrowRate = borrowReserve.Liquidity.CumulativeBorrowRate
	}
	if err = rec.Borrow(result.BorrowAmount, borrowReserve.Liquidity.MarketPrice); err != nil {
		return decimal.Zero(), err
	}

	borrowReserve.Liquidity.AvailableAmount = newAvailable
	borrowReserve.Liquidity.BorrowedAmount = newBorrowed
	if !result.CuratorFee.IsZero() {
		fee, err := borrowReserve.Liquidity.CuratorPerformanceFee.Add(result.CuratorFee)
		if err != nil {
			return decimal.Zero(), err
		}
		borrowReserve.Liquidity.CuratorPerformanceFee = fee
	}
	if !result.TextureFee.IsZero() {
		fee, err := borrowReserve.Liquidity.TexturePerformanceFee.Add(result.TextureFee)
		if err != nil {
			return decimal.Zero(), err
		}
		borrowReserve.Liquidity.TexturePerformanceFee = fee
	}

	minorUnits := result.ReceiveAmount.ToFloor(borrowReserve.Liquidity.MintDecimals)
	if err = e.Transfer.Transfer(ctx, borrowReserve.Liquidity.Vault, borrower, minorUnits, borrowReserve.Liquidity.MintDecimals, borrowReserve.Liquidity.LiquidityMint); err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.OperationCanNotBePerformed, "borrow transfer failed", err)
	}

	borrowReserve.LastUpdate.Stale = true
	p.LastUpdate.Stale = true
	return result.ReceiveAmount, nil
}

// Repay implements the Repay operation.
func (e *Engine) Repay(ctx context.Context, borrowReserve *Reserve, p *Position, payer address.Address, amount Amount) (repaid *big.Int, err error) {
	defer func() { e.emit(ctx, "Repay", p.PoolID, payer, p.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(p.PoolID, payer); err != nil {
		return nil, err
	}
	if borrowReserve.LastUpdate.Stale || p.LastUpdate.Stale {
		return nil, lenerr.New(lenerr.StaleReserve, "reserve or position not fresh")
	}
	idx := -1
	for i := 0; i < MaxBorrowSlots; i++ {
		if p.Borrows[i].BorrowReserveKey == borrowReserve.Key() && !p.Borrows[i].BorrowedAmount.IsZero() {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, lenerr.New(lenerr.BorrowedLiquidityNotFound, "position has no matching borrow record")
	}
	rec := &p.Borrows[idx]

	result, err := RepayMath(amount, rec.BorrowedAmount, borrowReserve.Liquidity.MintDecimals)
	if err != nil {
		return nil, err
	}
	if err = rec.Repay(result.SettleAmount); err != nil {
		return nil, err
	}
	newBorrowed, err := borrowReserve.Liquidity.BorrowedAmount.Sub(result.SettleAmount)
	if err != nil {
		return nil, err
	}
	if newBorrowed.Sign() < 0 {
		newBorrowed = decimal.Zero()
	}
	newAvailable, err := borrowReserve.Liquidity.AvailableAmount.Add(result.SettleAmount)
	if err != nil {
		return nil, err
	}
	borrowReserve.Liquidity.BorrowedAmount = newBorrowed
	borrowReserve.Liquidity.AvailableAmount = newAvailable

	if err = e.Transfer.Transfer(ctx, payer, borrowReserve.Liquidity.Vault, result.RepayAmount, borrowReserve.Liquidity.MintDecimals, borrowReserve.Liquidity.LiquidityMint); err != nil {
		return nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "repay transfer failed", err)
	}

	borrowReserve.LastUpdate.Stale = true
	p.LastUpdate.Stale = true
	return result.RepayAmount, nil
}

// Liquidate implements the Liquidate operation.
func (e *Engine) Liquidate(ctx context.Context, principalReserve, collateralReserve *Reserve, p *Position, liquidator address.Address, amount Amount) (repay, withdraw *big.Int, err error) {
	defer func() { e.emit(ctx, "Liquidate", p.PoolID, liquidator, p.LastUpdate.Slot, err) }()
	if err = e.checkRateLimit(p.PoolID, liquidator); err != nil {
		return nil, nil, err
	}
	if principalReserve.LastUpdate.Stale || collateralReserve.LastUpdate.Stale || p.LastUpdate.Stale {
		return nil, nil, lenerr.New(lenerr.StaleReserve, "a reserve or the position is not fresh")
	}
	if principalReserve.PoolID != p.PoolID || collateralReserve.PoolID != p.PoolID {
		return nil, nil, lenerr.New(lenerr.OperationCanNotBePerformed, "reserves and position must share a pool")
	}

	borrowIdx, collateralIdx := -1, -1
	for i := 0; i < MaxBorrowSlots; i++ {
		if p.Borrows[i].BorrowReserveKey == principalReserve.Key() && !p.Borrows[i].BorrowedAmount.IsZero() {
			borrowIdx = i
			break
		}
	}
	for i := 0; i < MaxCollateralSlots; i++ {
		if p.Collateral[i].DepositReserveKey == collateralReserve.Key() && !p.Collateral[i].DepositedAmount.IsZero() {
			collateralIdx = i
			break
		}
	}
	if borrowIdx == -1 {
		return nil, nil, lenerr.New(lenerr.BorrowedLiquidityNotFound, "position has no matching borrow record")
	}
	if collateralIdx == -1 {
		return nil, nil, lenerr.New(lenerr.DepositedCollateralNotFound, "position has no matching collateral record")
	}
	borrowRec := &p.Borrows[borrowIdx]
	collateralRec := &p.Collateral[collateralIdx]

	ltv, err := p.LTV()
	if err != nil {
		return nil, nil, err
	}
	ltvBps := ratioToBps(ltv)

	result, err := LiquidationMath(LiquidationInput{
		Amount:                    amount,
		LTVBps:                    ltvBps,
		PartlyUnhealthyLTVBps:     principalReserve.Config.PartlyUnhealthyLTVBps,
		FullyUnhealthyLTVBps:      principalReserve.Config.FullyUnhealthyLTVBps,
		LiquidationBonusBps:       principalReserve.Config.LiquidationBonusBps,
		PartialLiquidationFactor:  principalReserve.Config.PartialLiquidationFactorBps,
		BorrowedValue:             p.BorrowedValue,
		BorrowMarketValue:         borrowRec.MarketValue,
		BorrowBorrowedAmount:      borrowRec.BorrowedAmount,
		CollateralMarketValue:     collateralRec.MarketValue,
		CollateralDepositedAmount: collateralRec.DepositedAmount,
		PrincipalDecimals:         principalReserve.Liquidity.MintDecimals,
	})
	if err != nil {
		return nil, nil, err
	}

	settleDec := decimal.FromMinorUnits(result.RepayAmount, principalReserve.Liquidity.MintDecimals)
	if err = borrowRec.Repay(settleDec); err != nil {
		return nil, nil, err
	}
	withdrawDec := decimal.FromMinorUnits(result.WithdrawAmount, 0)
	if err = collateralRec.WithdrawCollateral(withdrawDec); err != nil {
		return nil, nil, err
	}

	newBorrowed, err := principalReserve.Liquidity.BorrowedAmount.Sub(settleDec)
	if err != nil {
		return nil, nil, err
	}
	if newBorrowed.Sign() < 0 {
		newBorrowed = decimal.Zero()
	}
	newAvailable, err := principalReserve.Liquidity.AvailableAmount.Add(settleDec)
	if err != nil {
		return nil, nil, err
	}
	principalReserve.Liquidity.BorrowedAmount = newBorrowed
	principalReserve.Liquidity.AvailableAmount = newAvailable
	newLPSupply, err := collateralReserve.Collateral.LPTotalSupply.Sub(withdrawDec)
	if err != nil {
		return nil, nil, err
	}
	collateralReserve.Collateral.LPTotalSupply = newLPSupply

	if err = e.Transfer.Transfer(ctx, liquidator, principalReserve.Liquidity.Vault, result.RepayAmount, principalReserve.Liquidity.MintDecimals, principalReserve.Liquidity.LiquidityMint); err != nil {
		return nil, nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "liquidation repay transfer failed", err)
	}
	if err = e.Transfer.Transfer(ctx, collateralReserve.Collateral.Vault, liquidator, result.WithdrawAmount, 0, collateralReserve.Collateral.LPMint); err != nil {
		return nil, nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "liquidation collateral transfer failed", err)
	}

	principalReserve.LastUpdate.Stale = true
	collateralReserve.LastUpdate.Stale = true
	p.LastUpdate.Stale = true
	return result.RepayAmount, result.WithdrawAmount, nil
}

// ratioToBps converts a Q18 ratio (e.g. 0.7 LTV) into basis points (7000).
func ratioToBps(ratio decimal.Dec) uint64 {
	scaled, err := ratio.Mul(decimal.FromInt64(10_000))
	if err != nil {
		return 0
	}
	return scaled.ToFloor(0).Uint64()
}

// ClaimCuratorPerfFee implements ClaimCuratorPerfFee: floors the accumulator
// to integer minor units, transfers, and leaves sub-unit residue.
func (e *Engine) ClaimCuratorPerfFee(ctx context.Context, r *Reserve, recipient address.Address) (claimed *big.Int, err error) {
	defer func() { e.emit(ctx, "ClaimCuratorPerfFee", r.PoolID, recipient, r.LastUpdate.Slot, err) }()
	if err = common.Guard(e.Pauses, lendingModule); err != nil {
		return nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "lending module paused", err)
	}
	if r.LastUpdate.Stale {
		return nil, lenerr.New(lenerr.StaleReserve, "reserve not fresh")
	}
	claimed = r.Liquidity.CuratorPerformanceFee.ToFloor(r.Liquidity.MintDecimals)
	floored := decimal.FromMinorUnits(claimed, r.Liquidity.MintDecimals)
	residue, err := r.Liquidity.CuratorPerformanceFee.Sub(floored)
	if err != nil {
		return nil, err
	}
	r.Liquidity.CuratorPerformanceFee = residue
	if err = e.Transfer.Transfer(ctx, r.Liquidity.Vault, recipient, claimed, r.Liquidity.MintDecimals, r.Liquidity.LiquidityMint); err != nil {
		return nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "curator fee transfer failed", err)
	}
	return claimed, nil
}

// ClaimTexturePerfFee is the texture-owned analogue of ClaimCuratorPerfFee.
func (e *Engine) ClaimTexturePerfFee(ctx context.Context, r *Reserve, recipient address.Address) (claimed *big.Int, err error) {
	defer func() { e.emit(ctx, "ClaimTexturePerfFee", r.PoolID, recipient, r.LastUpdate.Slot, err) }()
	if err = common.Guard(e.Pauses, lendingModule); err != nil {
		return nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "lending module paused", err)
	}
	if r.LastUpdate.Stale {
		return nil, lenerr.New(lenerr.StaleReserve, "reserve not fresh")
	}
	claimed = r.Liquidity.TexturePerformanceFee.ToFloor(r.Liquidity.MintDecimals)
	floored := decimal.FromMinorUnits(claimed, r.Liquidity.MintDecimals)
	residue, err := r.Liquidity.TexturePerformanceFee.Sub(floored)
	if err != nil {
		return nil, err
	}
	r.Liquidity.TexturePerformanceFee = residue
	if err = e.Transfer.Transfer(ctx, r.Liquidity.Vault, recipient, claimed, r.Liquidity.MintDecimals, r.Liquidity.LiquidityMint); err != nil {
		return nil, lenerr.Wrap(lenerr.OperationCanNotBePerformed, "texture fee transfer failed", err)
	}
	return claimed, nil
}

// WriteOffBadDebt implements WriteOffBadDebt: admin-only, requires
// deposited_value == 0.
func (e *Engine) WriteOffBadDebt(ctx context.Context, r *Reserve, p *Position, borrowIdx int, admin address.Address, amount Amount) (reduced decimal.Dec, err error) {
	defer func() { e.emit(ctx, "WriteOffBadDebt", p.PoolID, admin, p.LastUpdate.Slot, err) }()
	if err = common.Guard(e.Pauses, lendingModule); err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.OperationCanNotBePerformed, "lending module paused", err)
	}
	if r.LastUpdate.Stale || p.LastUpdate.Stale {
		return decimal.Zero(), lenerr.New(lenerr.StaleReserve, "reserve or position not fresh")
	}
	if !p.DepositedValue.IsZero() {
		return decimal.Zero(), lenerr.New(lenerr.OperationCanNotBePerformed, "position still holds collateral value")
	}
	if borrowIdx < 0 || borrowIdx >= MaxBorrowSlots {
		return decimal.Zero(), lenerr.New(lenerr.BorrowedLiquidityNotFound, "borrow slot out of range")
	}
	rec := &p.Borrows[borrowIdx]
	newReserveBorrowed, newPositionBorrowed, reduced, err := WriteOffBadDebt(amount, r.Liquidity.BorrowedAmount, rec.BorrowedAmount)
	if err != nil {
		return decimal.Zero(), err
	}
	r.Liquidity.BorrowedAmount = newReserveBorrowed
	rec.BorrowedAmount = newPositionBorrowed
	r.LastUpdate.Stale = true
	p.LastUpdate.Stale = true
	return reduced, nil
}

// FlashBorrow implements the borrow leg of a flash-loan round trip: it draws
// liquidity from the reserve without any position bookkeeping, trusting the
// caller to pair it with FlashRepay in the same transaction.
func (e *Engine) FlashBorrow(ctx context.Context, r *Reserve, borrower address.Address, amount decimal.Dec) (err error) {
	defer func() { e.emit(ctx, "FlashBorrow", r.PoolID, borrower, r.LastUpdate.Slot, err) }()
	if err = common.Guard(e.Pauses, lendingModule); err != nil {
		return lenerr.Wrap(lenerr.OperationCanNotBePerformed, "lending module paused", err)
	}
	if r.LastUpdate.Stale {
		return lenerr.New(lenerr.StaleReserve, "reserve not fresh")
	}
	if !r.FlashLoansEnabled {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "flash loans disabled on this reserve")
	}
	if amount.Cmp(r.Liquidity.AvailableAmount) > 0 {
		return lenerr.New(lenerr.InvalidAmount, "flash borrow exceeds available liquidity")
	}
	newAvailable, err := r.Liquidity.AvailableAmount.Sub(amount)
	if err != nil {
		return err
	}
	r.Liquidity.AvailableAmount = newAvailable
	minorUnits := amount.ToFloor(r.Liquidity.MintDecimals)
	if err = e.Transfer.Transfer(ctx, r.Liquidity.Vault, borrower, minorUnits, r.Liquidity.MintDecimals, r.Liquidity.LiquidityMint); err != nil {
		return lenerr.Wrap(lenerr.OperationCanNotBePerformed, "flash borrow transfer failed", err)
	}
	return nil
}

// FlashRepay implements the repay leg: rejects if repaid is less than
// borrowed, per 4.G ("repay >= borrow").
func (e *Engine) FlashRepay(ctx context.Context, r *Reserve, borrower address.Address, borrowed, repaid decimal.Dec) (err error) {
	defer func() { e.emit(ctx, "FlashRepay", r.PoolID, borrower, r.LastUpdate.Slot, err) }()
	if err = common.Guard(e.Pauses, lendingModule); err != nil {
		return lenerr.Wrap(lenerr.OperationCanNotBePerformed, "lending module paused", err)
	}
	if repaid.Cmp(borrowed) < 0 {
		return lenerr.New(lenerr.InvalidAmount, "flash repay is less than flash borrow")
	}
	newAvailable, err := r.Liquidity.AvailableAmount.Add(repaid)
	if err != nil {
		return err
	}
	r.Liquidity.AvailableAmount = newAvailable
	minorUnits := repaid.ToFloor(r.Liquidity.MintDecimals)
	if err = e.Transfer.Transfer(ctx, borrower, r.Liquidity.Vault, minorUnits, r.Liquidity.MintDecimals, r.Liquidity.LiquidityMint); err != nil {
		return lenerr.Wrap(lenerr.OperationCanNotBePerformed, "flash repay transfer failed", err)
	}
	return nil
}
