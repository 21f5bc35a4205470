package lending

import (
	"log/slog"
	"math/big"

	"texturelend/address"
	"texturelend/decimal"
	"texturelend/lenerr"
)

// logRewardFailure implements Design Note "Reward accrual failure policy":
// any failure while crediting rewards is logged and discarded, never
// propagated to abort the containing refresh.
func logRewardFailure(err error) {
	slog.Warn("reward accrual failed", "error", err)
}

// findRewardSlot returns the index of the slot already tracking mint, or -1.
func findRewardSlot(p *Position, mint address.Address) int {
	for i := 0; i < MaxRewardSlots; i++ {
		if !p.Rewards[i].RewardMint.Zero() && p.Rewards[i].RewardMint.Equal(mint) {
			return i
		}
	}
	return -1
}

// findVacantRewardSlot returns the first slot with no mint assigned, or -1.
func findVacantRewardSlot(p *Position) int {
	for i := 0; i < MaxRewardSlots; i++ {
		if p.Rewards[i].RewardMint.Zero() {
			return i
		}
	}
	return -1
}

// accrueRule processes one matching rule against baseAmount, allocating a
// slot if needed (step 1), or accruing into the existing one (step 2).
func accrueRule(p *Position, rule *RewardRule, baseAmount decimal.Dec, nowSlot uint64, touched map[int]bool) error {
	if rule.Reason == RewardReasonNone {
		return nil
	}
	idx := findRewardSlot(p, rule.RewardMint)
	if idx == -1 {
		vacant := findVacantRewardSlot(p)
		if vacant == -1 {
			return lenerr.New(lenerr.ResourceExhausted, "no free reward slot")
		}
		p.Rewards[vacant] = RewardSlot{
			RewardMint:    rule.RewardMint,
			AccruedSlot:   nowSlot,
			AccruedAmount: decimal.Zero(),
		}
		// A newly allocated slot keeps the current slot as its baseline and
		// is not marked touched, so step 3 never advances it a second time.
		return nil
	}

	slot := &p.Rewards[idx]
	delta := nowSlot - slot.AccruedSlot
	if delta == 0 {
		touched[idx] = true
		return nil
	}
	increase, err := baseAmount.Mul(rule.Rate)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "reward rate", err)
	}
	increase, err = increase.Mul(decimal.FromInt64(int64(delta)))
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "reward increase", err)
	}
	newAmount, err := slot.AccruedAmount.Add(increase)
	if err != nil {
		return lenerr.Wrap(lenerr.MathError, "reward accrue", err)
	}
	slot.AccruedAmount = newAmount
	touched[idx] = true
	return nil
}

// accrueCollateralRewards applies every Liquidity-reason rule of reserve
// against collateral record rec.
func accrueCollateralRewards(p *Position, reserve *Reserve, rec *CollateralRecord, nowSlot uint64, touched map[int]bool) error {
	baseAmount := decimal.FromMinorUnits(rec.DepositedAmount.ToFloor(0), 0)
	var firstErr error
	for i := 0; i < reserve.RewardRuleCount; i++ {
		rule := &reserve.RewardRules[i]
		if rule.Reason != RewardReasonLiquidity {
			continue
		}
		if err := accrueRule(p, rule, baseAmount, nowSlot, touched); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// accrueBorrowRewards applies every Borrow-reason rule of reserve against
// borrow record rec.
func accrueBorrowRewards(p *Position, reserve *Reserve, rec *BorrowRecord, nowSlot uint64, touched map[int]bool) error {
	var firstErr error
	for i := 0; i < reserve.RewardRuleCount; i++ {
		rule := &reserve.RewardRules[i]
		if rule.Reason != RewardReasonBorrow {
			continue
		}
		if err := accrueRule(p, rule, rec.BorrowedAmount, nowSlot, touched); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// advanceTouchedRewardSlots implements step 3: only slots that accrued
// during this refresh move their baseline forward.
func advanceTouchedRewardSlots(p *Position, nowSlot uint64, touched map[int]bool) {
	for idx := range touched {
		p.Rewards[idx].AccruedSlot = nowSlot
	}
}

// ClaimReward implements 4.E Claim: returns floor(accrued_amount, decimals)
// minor units and frees the slot. It moves no tokens itself; no Engine
// operation wraps it with a transfer.
func (p *Position) ClaimReward(mint address.Address, decimals uint8) (amount *big.Int, err error) {
	idx := findRewardSlot(p, mint)
	if idx == -1 {
		return nil, lenerr.New(lenerr.OperationCanNotBePerformed, "no reward slot for mint")
	}
	slot := &p.Rewards[idx]
	out := slot.AccruedAmount.ToFloor(decimals)
	slot.AccruedAmount = decimal.Zero()
	slot.RewardMint = address.Address{}
	return out, nil
}

// SetRewardRules implements 4.E SetRewardRules: validates every rule and
// replaces the reserve's rule table as a whole.
func SetRewardRules(reserve *Reserve, rules []RewardRule, mintExists func(address.Address) bool) error {
	if len(rules) > MaxRewardRules {
		return lenerr.New(lenerr.ResourceExhausted, "too many reward rules")
	}
	hundred := decimal.FromInt64(100)
	for i := range rules {
		rule := &rules[i]
		if mintExists != nil && !mintExists(rule.RewardMint) {
			return lenerr.New(lenerr.InvalidConfig, "reward mint does not exist")
		}
		switch rule.Reason {
		case RewardReasonNone, RewardReasonLiquidity, RewardReasonBorrow:
		default:
			return lenerr.New(lenerr.InvalidConfig, "invalid reward reason")
		}
		if rule.Rate.Sign() <= 0 || rule.Rate.Cmp(hundred) >= 0 {
			return lenerr.New(lenerr.InvalidConfig, "reward rate out of range")
		}
	}
	reserve.RewardRuleCount = len(rules)
	for i := 0; i < MaxRewardRules; i++ {
		if i < len(rules) {
			reserve.RewardRules[i] = rules[i]
		} else {
			reserve.RewardRules[i] = RewardRule{}
		}
	}
	return nil
}
