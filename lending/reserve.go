package lending

import (
	"math/big"

	"texturelend/decimal"
	"texturelend/irm"
	"texturelend/lenerr"
)

// SlotsPerYear is ticks-per-second / ticks-per-slot * seconds-per-day * 365,
// the constant interest math is parameterized by. Grounded on the teacher's
// rateFactor/computeInterest pairing in native/lending/math.go, generalized
// from block-height ticks to the domain's slot clock.
const SlotsPerYear uint64 = 78_892_800

// InitialLPRate is the LP-per-liquidity rate used when a reserve has zero
// supply or zero liquidity.
func InitialLPRate() decimal.Dec { return decimal.One() }

// internal price/amount convention: every *Amount* field on Liquidity
// (AvailableAmount, BorrowedAmount, MaxTotalLiquidity, ...) is a Q18 decimal
// holding the whole-token amount, i.e. minor units / 10^MintDecimals (so
// "1 SOL" at 9 decimals is FromInt64(1), and FromMinorUnits(n, decimals)
// builds it from a minor-unit count). ToFloor(MintDecimals) converts back to
// the integer minor units that token transfers carry. MarketPrice is the
// price of one whole token, so amount * price yields a value directly, with
// no decimals division in the hot path.

// TotalLiquidity returns available + borrowed.
func (r *Reserve) TotalLiquidity() (decimal.Dec, error) {
	return r.Liquidity.AvailableAmount.Add(r.Liquidity.BorrowedAmount)
}

// Utilization returns borrowed / total, or zero if total is zero.
func (r *Reserve) Utilization() (decimal.Dec, error) {
	total, err := r.TotalLiquidity()
	if err != nil {
		return decimal.Zero(), err
	}
	if total.IsZero() {
		return decimal.Zero(), nil
	}
	return r.Liquidity.BorrowedAmount.Div(total)
}

// LPExchangeRate returns lp_total_supply / total_liquidity, or
// InitialLPRate() if either operand is zero.
func (r *Reserve) LPExchangeRate() (decimal.Dec, error) {
	total, err := r.TotalLiquidity()
	if err != nil {
		return decimal.Zero(), err
	}
	if total.IsZero() || r.Collateral.LPTotalSupply.IsZero() {
		return InitialLPRate(), nil
	}
	return r.Collateral.LPTotalSupply.Div(total)
}

// LPToLiquidity converts an LP amount to liquidity at the current exchange rate.
func (r *Reserve) LPToLiquidity(lp decimal.Dec) (decimal.Dec, error) {
	rate, err := r.LPExchangeRate()
	if err != nil {
		return decimal.Zero(), err
	}
	return lp.Div(rate)
}

// LiquidityToLP converts a liquidity amount to LP at the current exchange rate.
func (r *Reserve) LiquidityToLP(liquidity decimal.Dec) (decimal.Dec, error) {
	rate, err := r.LPExchangeRate()
	if err != nil {
		return decimal.Zero(), err
	}
	return liquidity.Mul(rate)
}

// LPMarketPrice returns the USD value of one LP token.
func (r *Reserve) LPMarketPrice() (decimal.Dec, error) {
	liquidityPerLP, err := r.LPToLiquidity(decimal.One())
	if err != nil {
		return decimal.Zero(), err
	}
	return liquidityPerLP.Mul(r.Liquidity.MarketPrice)
}

// MaxBorrowAmount returns the largest amount that can be borrowed right now
// without exceeding MaxBorrowUtilizationBps, capped by AvailableAmount.
func (r *Reserve) MaxBorrowAmount() (decimal.Dec, error) {
	uMax := r.Config.MaxBorrowUtilizationBps
	available := r.Liquidity.AvailableAmount
	borrowed := r.Liquidity.BorrowedAmount
	if uMax == 0 {
		return decimal.Zero(), nil
	}
	if uMax >= 10_000 {
		return available, nil
	}
	// delta = u_max*(a+b) - b, clamped non-negative, capped by available.
	uMaxDec := decimal.FromBps(uMax)
	sum, err := available.Add(borrowed)
	if err != nil {
		return decimal.Zero(), err
	}
	scaled, err := uMaxDec.Mul(sum)
	if err != nil {
		return decimal.Zero(), err
	}
	delta, err := scaled.Sub(borrowed)
	if err != nil {
		return decimal.Zero(), err
	}
	if delta.Sign() < 0 {
		delta = decimal.Zero()
	}
	return decimal.Min(delta, available), nil
}

// MaxWithdrawLiquidity returns the largest amount that can be withdrawn
// right now without exceeding MaxWithdrawUtilizationBps.
func (r *Reserve) MaxWithdrawLiquidity() (decimal.Dec, error) {
	uMax := r.Config.MaxWithdrawUtilizationBps
	available := r.Liquidity.AvailableAmount
	borrowed := r.Liquidity.BorrowedAmount
	if uMax == 0 {
		return decimal.Zero(), nil
	}
	uMaxDec := decimal.FromBps(uMax)
	borrowedOverUMax, err := borrowed.Div(uMaxDec)
	if err != nil {
		return decimal.Zero(), err
	}
	cushion, err := borrowedOverUMax.Sub(borrowed)
	if err != nil {
		return decimal.Zero(), err
	}
	maxWithdraw, err := available.Sub(cushion)
	if err != nil {
		return decimal.Zero(), err
	}
	if maxWithdraw.Sign() < 0 {
		return decimal.Zero(), nil
	}
	return decimal.Min(maxWithdraw, available), nil
}

// AccrueInterest compounds interest from r.LastUpdate.Slot through nowSlot,
// updating BorrowedAmount, CumulativeBorrowRate, and the curator
// performance-fee accumulator (the texture performance fee is applied
// separately by AccrueTexturePerformanceFee).
// It is a no-op when no slots have elapsed.
func (r *Reserve) AccrueInterest(nowSlot uint64, curve *irm.Curve) error {
	if nowSlot <= r.LastUpdate.Slot {
		return nil
	}
	slotsElapsed := nowSlot - r.LastUpdate.Slot

	utilization, err := r.Utilization()
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "utilization", err)
	}
	currentBorrowRate, err := curve.BorrowRate(utilization)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "borrow rate lookup", err)
	}

	slotRate, err := currentBorrowRate.Div(decimal.FromInt64(int64(SlotsPerYear)))
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "slot rate", err)
	}
	onePlusSlotRate, err := decimal.One().Add(slotRate)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "one plus slot rate", err)
	}
	growth, err := onePlusSlotRate.Pow(slotsElapsed)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "compound growth", err)
	}

	newBorrowed, err := r.Liquidity.BorrowedAmount.Mul(growth)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "new borrowed", err)
	}
	interest, err := newBorrowed.Sub(r.Liquidity.BorrowedAmount)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "interest delta", err)
	}
	newCumulative, err := r.Liquidity.CumulativeBorrowRate.Mul(growth)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "cumulative borrow rate", err)
	}

	if r.Config.Fees.CuratorPerformanceFeeRateBps > 0 {
		share, err := interest.Mul(decimal.FromBps(r.Config.Fees.CuratorPerformanceFeeRateBps))
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "curator performance fee", err)
		}
		newFee, err := r.Liquidity.CuratorPerformanceFee.Add(share)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "curator performance fee accumulate", err)
		}
		r.Liquidity.CuratorPerformanceFee = newFee
	}
	// texture_performance_fee uses a process-wide rate, supplied by the
	// caller through GlobalConfig; the orchestrator passes it down
	// separately (see AccrueTexturePerformanceFee).

	r.Liquidity.BorrowedAmount = newBorrowed
	r.Liquidity.CumulativeBorrowRate = newCumulative
	r.Liquidity.BorrowRateSnapshot = currentBorrowRate
	r.LastUpdate.Slot = nowSlot
	r.LastUpdate.Stale = false
	return nil
}

// AccrueTexturePerformanceFee applies the process-wide texture performance
// fee rate to the most recently computed interest delta. Split from
// AccrueInterest because GlobalConfig (the source of this rate) is not a
// Reserve field, per spec note "pass it explicitly into operations."
func (r *Reserve) AccrueTexturePerformanceFee(interest decimal.Dec, textureRateBps uint64) error {
	if textureRateBps == 0 || interest.IsZero() {
		return nil
	}
	share, err := interest.Mul(decimal.FromBps(textureRateBps))
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "texture performance fee", err)
	}
	newFee, err := r.Liquidity.TexturePerformanceFee.Add(share)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "texture performance fee accumulate", err)
	}
	r.Liquidity.TexturePerformanceFee = newFee
	return nil
}

// DepositLiquidity implements 4.C Deposit(n).
func (r *Reserve) DepositLiquidity(n decimal.Dec) (lpOut decimal.Dec, err error) {
	if n.Sign() <= 0 {
		return decimal.Zero(), lenerr.New(lenerr.InvalidAmount, "deposit amount must be positive")
	}
	rate, err := r.LPExchangeRate()
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "lp exchange rate", err)
	}
	lpOut, err = n.Mul(rate)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "lp out", err)
	}
	newAvailable, err := r.Liquidity.AvailableAmount.Add(n)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "available", err)
	}
	newTotal, err := newAvailable.Add(r.Liquidity.BorrowedAmount)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "total", err)
	}
	if newTotal.Cmp(r.Config.MaxTotalLiquidity) > 0 {
		return decimal.Zero(), lenerr.New(lenerr.ResourceExhausted, "deposit would exceed max total liquidity")
	}
	newSupply, err := r.Collateral.LPTotalSupply.Add(lpOut)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "lp supply", err)
	}
	r.Liquidity.AvailableAmount = newAvailable
	r.Collateral.LPTotalSupply = newSupply
	return lpOut, nil
}

// WithdrawLiquidity implements 4.C Withdraw(lp_in).
func (r *Reserve) WithdrawLiquidity(lpIn decimal.Dec) (liqOut decimal.Dec, err error) {
	if lpIn.Sign() <= 0 {
		return decimal.Zero(), lenerr.New(lenerr.InvalidAmount, "withdraw amount must be positive")
	}
	rate, err := r.LPExchangeRate()
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "lp exchange rate", err)
	}
	liqOut, err = lpIn.Div(rate)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "liquidity out", err)
	}
	if liqOut.Cmp(r.Liquidity.AvailableAmount) > 0 {
		return decimal.Zero(), lenerr.New(lenerr.InvalidAmount, "withdraw exceeds available liquidity")
	}
	newAvailable, err := r.Liquidity.AvailableAmount.Sub(liqOut)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "available", err)
	}
	newSupply, err := r.Collateral.LPTotalSupply.Sub(lpIn)
	if err != nil {
		return decimal.Zero(), lenerr.Wrap(lenerr.MathError, "lp supply", err)
	}
	r.Liquidity.AvailableAmount = newAvailable
	r.Collateral.LPTotalSupply = newSupply
	return liqOut, nil
}

// BorrowResult is the output of BorrowMath.
type BorrowResult struct {
	BorrowAmount  decimal.Dec
	CuratorFee    decimal.Dec
	TextureFee    decimal.Dec
	ReceiveAmount decimal.Dec
}

// BorrowMath implements 4.C Borrow math. decimals is the liquidity mint's
// decimals, used for the fee-floor (one minor unit) and for flooring a MAX
// borrow amount to whole minor units.
func BorrowMath(amount Amount, vMax, price decimal.Dec, available decimal.Dec, curatorBps, textureBps uint64, decimals uint8) (BorrowResult, error) {
	if amount.Max {
		valueCapped, err := vMax.Div(price)
		if err != nil {
			return BorrowResult{}, lenerr.Wrap(lenerr.MathError, "value/price", err)
		}
		borrowAmount := decimal.Min(valueCapped, available)
		curatorFee, textureFee, err := splitFee(borrowAmount, curatorBps, textureBps, true, decimals)
		if err != nil {
			return BorrowResult{}, err
		}
		floored := decimal.FromMinorUnits(borrowAmount.ToFloor(decimals), decimals)
		feeSum, err := curatorFee.Add(textureFee)
		if err != nil {
			return BorrowResult{}, lenerr.Wrap(lenerr.MathError, "fee sum", err)
		}
		receive, err := floored.Sub(feeSum)
		if err != nil {
			return BorrowResult{}, lenerr.Wrap(lenerr.MathError, "receive amount", err)
		}
		if receive.Sign() < 0 {
			return BorrowResult{}, lenerr.New(lenerr.InvalidAmount, "borrow fees exceed gross amount")
		}
		return BorrowResult{BorrowAmount: floored, CuratorFee: curatorFee, TextureFee: textureFee, ReceiveAmount: receive}, nil
	}

	receive := amount.Exact
	curatorFee, textureFee, err := splitFee(receive, curatorBps, textureBps, false, decimals)
	if err != nil {
		return BorrowResult{}, err
	}
	feeSum, err := curatorFee.Add(textureFee)
	if err != nil {
		return BorrowResult{}, lenerr.Wrap(lenerr.MathError, "fee sum", err)
	}
	borrowAmount, err := receive.Add(feeSum)
	if err != nil {
		return BorrowResult{}, lenerr.Wrap(lenerr.MathError, "borrow amount", err)
	}
	borrowValue, err := borrowAmount.Mul(price)
	if err != nil {
		return BorrowResult{}, lenerr.Wrap(lenerr.MathError, "borrow value", err)
	}
	if borrowValue.Cmp(vMax) > 0 {
		return BorrowResult{}, lenerr.New(lenerr.BorrowTooLarge, "borrow value exceeds remaining borrow value")
	}
	return BorrowResult{BorrowAmount: borrowAmount, CuratorFee: curatorFee, TextureFee: textureFee, ReceiveAmount: receive}, nil
}

// splitFee implements 4.C Fee split. The "minimum total fee" floor (Open
// Question (a)) is resolved as: floor each nonzero party's individual share
// at one minor unit, applied identically whether the base rate was computed
// inclusive or exclusive.
func splitFee(base decimal.Dec, curatorBps, textureBps uint64, inclusive bool, decimals uint8) (curatorFee, textureFee decimal.Dec, err error) {
	if curatorBps == 0 && textureBps == 0 {
		return decimal.Zero(), decimal.Zero(), nil
	}
	combinedBps := curatorBps + textureBps
	rate := decimal.FromBps(combinedBps)

	var total decimal.Dec
	if inclusive {
		onePlusR, err := decimal.One().Add(rate)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "1+r", err)
		}
		num, err := base.Mul(rate)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "base*r", err)
		}
		total, err = num.Div(onePlusR)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "inclusive fee", err)
		}
	} else {
		total, err = base.Mul(rate)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "exclusive fee", err)
		}
	}

	switch {
	case curatorBps == 0:
		textureFee = total
	case textureBps == 0:
		curatorFee = total
	default:
		curatorShare := decimal.FromBps(curatorBps)
		combinedShare := decimal.FromBps(combinedBps)
		ratio, err := curatorShare.Div(combinedShare)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "fee split ratio", err)
		}
		curatorFee, err = total.Mul(ratio)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "curator fee", err)
		}
		textureFee, err = total.Sub(curatorFee)
		if err != nil {
			return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "texture fee", err)
		}
	}

	oneMinor := decimal.FromMinorUnits(big.NewInt(1), decimals)
	if curatorBps > 0 && curatorFee.Cmp(oneMinor) < 0 {
		curatorFee = oneMinor
	}
	if textureBps > 0 && textureFee.Cmp(oneMinor) < 0 {
		textureFee = oneMinor
	}

	sum, err := curatorFee.Add(textureFee)
	if err != nil {
		return decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "fee total", err)
	}
	if sum.Cmp(base) >= 0 {
		return decimal.Zero(), decimal.Zero(), lenerr.New(lenerr.InvalidAmount, "fees meet or exceed gross amount")
	}
	return curatorFee, textureFee, nil
}

// RepayResult is the output of RepayMath.
type RepayResult struct {
	SettleAmount decimal.Dec
	RepayAmount  *big.Int // ceil(settle), in minor units
}

// RepayMath implements 4.C Repay math.
func RepayMath(amount Amount, borrowedAmountPos decimal.Dec, decimals uint8) (RepayResult, error) {
	var settle decimal.Dec
	if amount.Max {
		settle = borrowedAmountPos
	} else {
		settle = decimal.Min(amount.Exact, borrowedAmountPos)
	}
	return RepayResult{SettleAmount: settle, RepayAmount: settle.ToCeil(decimals)}, nil
}

// LiquidationInput bundles the inputs to LiquidationMath.
type LiquidationInput struct {
	Amount                   Amount
	LTVBps                   uint64
	PartlyUnhealthyLTVBps    uint64
	FullyUnhealthyLTVBps     uint64
	LiquidationBonusBps      uint64
	PartialLiquidationFactor uint64 // bps
	BorrowedValue            decimal.Dec
	BorrowMarketValue        decimal.Dec
	BorrowBorrowedAmount     decimal.Dec
	CollateralMarketValue    decimal.Dec
	CollateralDepositedAmount decimal.Dec
	PrincipalDecimals        uint8
}

// LiquidationResult is the output of LiquidationMath.
type LiquidationResult struct {
	RepayAmount    *big.Int
	WithdrawAmount *big.Int
}

// LiquidationMath implements 4.C Liquidation math.
func LiquidationMath(in LiquidationInput) (LiquidationResult, error) {
	if in.LTVBps < in.PartlyUnhealthyLTVBps {
		return LiquidationResult{}, lenerr.Unhealthy(in.LTVBps, in.PartlyUnhealthyLTVBps)
	}
	if in.BorrowMarketValue.IsZero() {
		return LiquidationResult{}, lenerr.New(lenerr.BorrowedLiquidityNotFound, "borrow record has zero market value")
	}
	if in.CollateralMarketValue.IsZero() {
		return LiquidationResult{}, lenerr.New(lenerr.DepositedCollateralNotFound, "collateral record has zero market value")
	}

	bonus, err := decimal.One().Add(decimal.FromBps(in.LiquidationBonusBps))
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "bonus", err)
	}

	closeFactorBps := in.PartialLiquidationFactor
	if in.LTVBps >= in.FullyUnhealthyLTVBps {
		closeFactorBps = 10_000
	}
	closeFactor := decimal.FromBps(closeFactorBps)

	closeCap, err := in.BorrowedValue.Mul(closeFactor)
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "close cap", err)
	}
	cappedValue := decimal.Min(closeCap, in.BorrowMarketValue)
	ratio, err := cappedValue.Div(in.BorrowMarketValue)
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "position cap ratio", err)
	}
	positionCap, err := ratio.Mul(in.BorrowBorrowedAmount)
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "position cap", err)
	}
	maxLiq := decimal.Min(in.BorrowBorrowedAmount, positionCap)

	var liqAmount decimal.Dec
	if in.Amount.Max {
		liqAmount = maxLiq
	} else {
		liqAmount = in.Amount.Exact
		if liqAmount.Cmp(maxLiq) > 0 {
			return LiquidationResult{}, lenerr.New(lenerr.InvalidAmount, "liquidation amount exceeds maximum")
		}
	}

	liqFraction, err := liqAmount.Div(in.BorrowBorrowedAmount)
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "liquidation fraction", err)
	}
	liqValueBase, err := in.BorrowMarketValue.Mul(liqFraction)
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "liq value base", err)
	}
	liqValue, err := liqValueBase.Mul(bonus)
	if err != nil {
		return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "liq value", err)
	}

	var settle decimal.Dec
	var repay *big.Int
	var withdraw *big.Int

	switch liqValue.Cmp(in.CollateralMarketValue) {
	case 1: // insufficient collateral
		repayPct, err := in.CollateralMarketValue.Div(liqValue)
		if err != nil {
			return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "repay pct", err)
		}
		settle, err = liqAmount.Mul(repayPct)
		if err != nil {
			return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "settle", err)
		}
		repay = settle.ToCeil(in.PrincipalDecimals)
		withdraw = in.CollateralDepositedAmount.ToFloor(0)
	case 0:
		settle = liqAmount
		repay = settle.ToCeil(in.PrincipalDecimals)
		withdraw = in.CollateralDepositedAmount.ToFloor(0)
	default: // collateral value exceeds liquidation value
		withdrawPct, err := liqValue.Div(in.CollateralMarketValue)
		if err != nil {
			return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "withdraw pct", err)
		}
		settle = liqAmount
		repay = settle.ToFloor(in.PrincipalDecimals)
		withdrawDec, err := in.CollateralDepositedAmount.Mul(withdrawPct)
		if err != nil {
			return LiquidationResult{}, lenerr.Wrap(lenerr.MathError, "withdraw amount", err)
		}
		withdraw = withdrawDec.ToFloor(0)
	}

	if repay.Sign() == 0 || withdraw.Sign() == 0 {
		return LiquidationResult{}, lenerr.New(lenerr.LiquidationTooSmall, "rounded repay or withdraw amount is zero")
	}
	return LiquidationResult{RepayAmount: repay, WithdrawAmount: withdraw}, nil
}

// WriteOffBadDebt implements 4.C Write-off bad debt: reduces both the
// reserve's and the position's borrowed amount by min(requested, current),
// floored at zero.
func WriteOffBadDebt(amount Amount, reserveBorrowed, positionBorrowed decimal.Dec) (newReserveBorrowed, newPositionBorrowed, reduced decimal.Dec, err error) {
	var request decimal.Dec
	if amount.Max {
		request = positionBorrowed
	} else {
		request = amount.Exact
	}
	reduced = decimal.Min(request, positionBorrowed)

	newPositionBorrowed, err = positionBorrowed.Sub(reduced)
	if err != nil {
		return decimal.Zero(), decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "position borrowed", err)
	}
	if newPositionBorrowed.Sign() < 0 {
		newPositionBorrowed = decimal.Zero()
	}
	newReserveBorrowed, err = reserveBorrowed.Sub(reduced)
	if err != nil {
		return decimal.Zero(), decimal.Zero(), decimal.Zero(), lenerr.Wrap(lenerr.MathError, "reserve borrowed", err)
	}
	if newReserveBorrowed.Sign() < 0 {
		newReserveBorrowed = decimal.Zero()
	}
	return newReserveBorrowed, newPositionBorrowed, reduced, nil
}
