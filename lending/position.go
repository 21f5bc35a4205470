package lending

import (
	"texturelend/decimal"
	"texturelend/lenerr"
)

// FindOrAddCollateral returns the index of the collateral slot matching
// reserveKey, or the first vacant slot (DepositedAmount == 0) to reuse.
// ResourceExhausted is returned when no slot is free.
func (p *Position) FindOrAddCollateral(reserveKey string) (int, error) {
	vacant := -1
	for i := 0; i < MaxCollateralSlots; i++ {
		rec := &p.Collateral[i]
		if rec.DepositReserveKey == reserveKey && !rec.DepositedAmount.IsZero() {
			return i, nil
		}
		if vacant == -1 && rec.DepositedAmount.IsZero() {
			vacant = i
		}
	}
	// A vacant slot still tagged with reserveKey (e.g. just withdrawn to
	// zero) is reused in place rather than losing its identity.
	for i := 0; i < MaxCollateralSlots; i++ {
		rec := &p.Collateral[i]
		if rec.DepositReserveKey == reserveKey && rec.DepositedAmount.IsZero() {
			return i, nil
		}
	}
	if vacant == -1 {
		return -1, lenerr.New(lenerr.ResourceExhausted, "no free collateral slot")
	}
	return vacant, nil
}

// FindOrAddBorrow is the borrow-array analogue of FindOrAddCollateral.
func (p *Position) FindOrAddBorrow(reserveKey string) (int, error) {
	vacant := -1
	for i := 0; i < MaxBorrowSlots; i++ {
		rec := &p.Borrows[i]
		if rec.BorrowReserveKey == reserveKey && !rec.BorrowedAmount.IsZero() {
			return i, nil
		}
		if vacant == -1 && rec.BorrowedAmount.IsZero() {
			vacant = i
		}
	}
	for i := 0; i < MaxBorrowSlots; i++ {
		rec := &p.Borrows[i]
		if rec.BorrowReserveKey == reserveKey && rec.BorrowedAmount.IsZero() {
			return i, nil
		}
	}
	if vacant == -1 {
		return -1, lenerr.New(lenerr.ResourceExhausted, "no free borrow slot")
	}
	return vacant, nil
}

// DepositCollateral implements 4.D Collateral.deposit.
func (c *CollateralRecord) DepositCollateral(lp decimal.Dec, lpMarketPrice decimal.Dec, decimals uint8) error {
	newAmount, err := c.DepositedAmount.Add(lp)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "deposited amount", err)
	}
	value, err := decimal.FromMinorUnits(lp.ToFloor(decimals), decimals).Mul(lpMarketPrice)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "entry market value delta", err)
	}
	newEntry, err := c.EntryMarketValue.Add(value)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "entry market value", err)
	}
	c.DepositedAmount = newAmount
	c.EntryMarketValue = newEntry
	return nil
}

// WithdrawCollateral implements 4.D Collateral.withdraw.
func (c *CollateralRecord) WithdrawCollateral(lp decimal.Dec) error {
	if c.DepositedAmount.IsZero() {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "collateral record is vacant")
	}
	fraction, err := lp.Div(c.DepositedAmount)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "withdraw fraction", err)
	}
	remainingFactor, err := decimal.One().Sub(fraction)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "remaining factor", err)
	}
	newAmount, err := c.DepositedAmount.Sub(lp)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "deposited amount", err)
	}
	newEntry, err := c.EntryMarketValue.Mul(remainingFactor)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "entry market value", err)
	}
	c.DepositedAmount = newAmount
	c.EntryMarketValue = newEntry
	return nil
}

// Borrow implements 4.D Borrow.borrow.
func (b *BorrowRecord) Borrow(amount, price decimal.Dec) error {
	newAmount, err := b.BorrowedAmount.Add(amount)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "borrowed amount", err)
	}
	value, err := amount.Mul(price)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "entry market value delta", err)
	}
	newEntry, err := b.EntryMarketValue.Add(value)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "entry market value", err)
	}
	b.BorrowedAmount = newAmount
	b.EntryMarketValue = newEntry
	return nil
}

// Repay implements 4.D Borrow.repay.
func (b *BorrowRecord) Repay(settle decimal.Dec) error {
	if b.BorrowedAmount.IsZero() {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "borrow record is vacant")
	}
	fraction, err := settle.Div(b.BorrowedAmount)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "repay fraction", err)
	}
	remainingFactor, err := decimal.One().Sub(fraction)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "remaining factor", err)
	}
	newAmount, err := b.BorrowedAmount.Sub(settle)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "borrowed amount", err)
	}
	if newAmount.Sign() < 0 {
		newAmount = decimal.Zero()
	}
	newEntry, err := b.EntryMarketValue.Mul(remainingFactor)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "entry market value", err)
	}
	b.BorrowedAmount = newAmount
	b.EntryMarketValue = newEntry
	return nil
}

// LongPnL and ShortPnL are informational only, per 4.D.
func (c *CollateralRecord) LongPnL() (decimal.Dec, error) { return c.MarketValue.Sub(c.EntryMarketValue) }
func (b *BorrowRecord) ShortPnL() (decimal.Dec, error)    { return b.EntryMarketValue.Sub(b.MarketValue) }

// RefreshInputs bundles, for one RefreshPosition call, the fresh reserves
// the position references plus the current slot/timestamp.
type RefreshInputs struct {
	NowSlot  uint64
	NowUnix  int64
	Reserves map[string]*Reserve // keyed by ReserveKey
}

// RefreshPosition implements 4.D Aggregate refresh.
func (p *Position) RefreshPosition(in RefreshInputs) error {
	deposited := decimal.Zero()
	allowedBorrow := decimal.Zero()
	partlyUnhealthy := decimal.Zero()
	fullyUnhealthy := decimal.Zero()
	borrowedValue := decimal.Zero()
	touched := make(map[int]bool)

	for i := 0; i < MaxCollateralSlots; i++ {
		rec := &p.Collateral[i]
		if rec.DepositedAmount.IsZero() {
			continue
		}
		reserve, ok := in.Reserves[rec.DepositReserveKey]
		if !ok {
			return lenerr.New(lenerr.DepositedCollateralNotFound, "no reserve supplied for collateral record")
		}
		if reserve.LastUpdate.Stale {
			return lenerr.New(lenerr.StaleReserve, "collateral reserve is stale")
		}
		lpRate, err := reserve.LPExchangeRate()
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "lp exchange rate", err)
		}
		wholeAmount := decimal.FromMinorUnits(rec.DepositedAmount.ToFloor(0), 0)
		value, err := lpRate.Mul(wholeAmount)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "collateral value", err)
		}
		value, err = value.Mul(reserve.Liquidity.MarketPrice)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "collateral market value", err)
		}
		rec.MarketValue = value

		deposited, err = deposited.Add(value)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "deposited value", err)
		}
		maxLTV, err := value.Mul(decimal.FromBps(reserve.Config.MaxBorrowLTVBps))
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "allowed borrow value delta", err)
		}
		allowedBorrow, err = allowedBorrow.Add(maxLTV)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "allowed borrow value", err)
		}
		partly, err := value.Mul(decimal.FromBps(reserve.Config.PartlyUnhealthyLTVBps))
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "partly unhealthy delta", err)
		}
		partlyUnhealthy, err = partlyUnhealthy.Add(partly)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "partly unhealthy value", err)
		}
		fully, err := value.Mul(decimal.FromBps(reserve.Config.FullyUnhealthyLTVBps))
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "fully unhealthy delta", err)
		}
		fullyUnhealthy, err = fullyUnhealthy.Add(fully)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "fully unhealthy value", err)
		}

		if err := accrueCollateralRewards(p, reserve, rec, in.NowSlot, touched); err != nil {
			logRewardFailure(err)
		}
	}

	for i := 0; i < MaxBorrowSlots; i++ {
		rec := &p.Borrows[i]
		if rec.BorrowedAmount.IsZero() {
			continue
		}
		reserve, ok := in.Reserves[rec.BorrowReserveKey]
		if !ok {
			return lenerr.New(lenerr.BorrowedLiquidityNotFound, "no reserve supplied for borrow record")
		}
		if reserve.LastUpdate.Stale {
			return lenerr.New(lenerr.StaleReserve, "borrow reserve is stale")
		}
		if reserve.Liquidity.CumulativeBorrowRate.Cmp(rec.CumulativeBorrowRate) > 0 {
			if rec.CumulativeBorrowRate.IsZero() {
				rec.CumulativeBorrowRate = reserve.Liquidity.CumulativeBorrowRate
			} else {
				growth, err := reserve.Liquidity.CumulativeBorrowRate.Div(rec.CumulativeBorrowRate)
				if err != nil {
					return lenerr.Wrap(lenerr.MathError, "per-position growth", err)
				}
				newAmount, err := rec.BorrowedAmount.Mul(growth)
				if err != nil {
					return lenerr.Wrap(lenerr.MathError, "accrued borrowed amount", err)
				}
				rec.BorrowedAmount = newAmount
				rec.CumulativeBorrowRate = reserve.Liquidity.CumulativeBorrowRate
			}
		} else if reserve.Liquidity.CumulativeBorrowRate.Cmp(rec.CumulativeBorrowRate) < 0 {
			return lenerr.New(lenerr.MathError, "reserve cumulative borrow rate decreased")
		}

		value, err := rec.BorrowedAmount.Mul(reserve.Liquidity.MarketPrice)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "borrow market value", err)
		}
		rec.MarketValue = value
		borrowedValue, err = borrowedValue.Add(value)
		if err != nil {
			return lenerr.Wrap(lenerr.MathError, "borrowed value", err)
		}

		if err := accrueBorrowRewards(p, reserve, rec, in.NowSlot, touched); err != nil {
			logRewardFailure(err)
		}
	}

	advanceTouchedRewardSlots(p, in.NowSlot, touched)

	p.DepositedValue = deposited
	p.BorrowedValue = borrowedValue
	p.AllowedBorrowValue = allowedBorrow
	p.PartlyUnhealthyBorrowValue = partlyUnhealthy
	p.FullyUnhealthyBorrowValue = fullyUnhealthy
	p.LastUpdate.Slot = in.NowSlot
	p.LastUpdate.Unix = in.NowUnix
	p.LastUpdate.Stale = false
	return nil
}

// LTV returns borrowed_value / deposited_value.
func (p *Position) LTV() (decimal.Dec, error) {
	if p.DepositedValue.IsZero() {
		return decimal.Zero(), nil
	}
	return p.BorrowedValue.Div(p.DepositedValue)
}

// RemainingBorrowValue returns max(0, allowed - borrowed).
func (p *Position) RemainingBorrowValue() (decimal.Dec, error) {
	remaining, err := p.AllowedBorrowValue.Sub(p.BorrowedValue)
	if err != nil {
		return decimal.Zero(), err
	}
	if remaining.Sign() < 0 {
		return decimal.Zero(), nil
	}
	return remaining, nil
}

// MaxWithdrawValue returns max(0, (allowed-borrowed)/collateralMaxBorrowLTV).
func (p *Position) MaxWithdrawValue(collateralMaxBorrowLTVBps uint64) (decimal.Dec, error) {
	remaining, err := p.RemainingBorrowValue()
	if err != nil {
		return decimal.Zero(), err
	}
	if remaining.IsZero() {
		return decimal.Zero(), nil
	}
	ltv := decimal.FromBps(collateralMaxBorrowLTVBps)
	if ltv.IsZero() {
		return decimal.Zero(), nil
	}
	return remaining.Div(ltv)
}

// MaxLiquidationAmount returns
// borrow.borrowed_amount * min(borrowed_value*close_factor, borrow.market_value) / borrow.market_value.
func (p *Position) MaxLiquidationAmount(borrow *BorrowRecord, closeFactorBps uint64) (decimal.Dec, error) {
	if borrow.MarketValue.IsZero() {
		return decimal.Zero(), lenerr.New(lenerr.BorrowedLiquidityNotFound, "borrow record has zero market value")
	}
	closeCap, err := p.BorrowedValue.Mul(decimal.FromBps(closeFactorBps))
	if err != nil {
		return decimal.Zero(), err
	}
	capped := decimal.Min(closeCap, borrow.MarketValue)
	ratio, err := capped.Div(borrow.MarketValue)
	if err != nil {
		return decimal.Zero(), err
	}
	return borrow.BorrowedAmount.Mul(ratio)
}

// Closable implements 4.D Closable check.
func (p *Position) Closable() bool {
	for i := 0; i < MaxCollateralSlots; i++ {
		if !p.Collateral[i].DepositedAmount.IsZero() {
			return false
		}
	}
	for i := 0; i < MaxBorrowSlots; i++ {
		if !p.Borrows[i].BorrowedAmount.IsZero() {
			return false
		}
	}
	for i := 0; i < MaxRewardSlots; i++ {
		if !p.Rewards[i].AccruedAmount.IsZero() {
			return false
		}
	}
	return true
}
