package lending

import (
	"testing"

	"github.com/stretchr/testify/require"

	"texturelend/address"
	"texturelend/decimal"
	"texturelend/lenerr"
)

func TestAccrueRuleAllocatesSlotOnFirstSight(t *testing.T) {
	p := &Position{}
	rule := &RewardRule{RewardMint: mustMint(0x01), Reason: RewardReasonLiquidity, Rate: decimal.FromBps(10)}
	touched := make(map[int]bool)

	err := accrueRule(p, rule, decimal.FromInt64(100), 5, touched)
	require.NoError(t, err)
	require.Equal(t, 0, len(touched))
	require.Equal(t, uint64(5), p.Rewards[0].AccruedSlot)
	require.True(t, p.Rewards[0].AccruedAmount.IsZero())
}

func TestAccrueRuleAccruesOnSubsequentSlots(t *testing.T) {
	p := &Position{}
	mint := mustMint(0x02)
	p.Rewards[0] = RewardSlot{RewardMint: mint, AccruedSlot: 5, AccruedAmount: decimal.Zero()}
	rule := &RewardRule{RewardMint: mint, Reason: RewardReasonLiquidity, Rate: decimal.FromBps(10)}
	touched := make(map[int]bool)

	err := accrueRule(p, rule, decimal.FromInt64(1_000), 10, touched)
	require.NoError(t, err)
	require.True(t, touched[0])
	// rate 0.001 * base 1000 * 5 slots = 5
	require.Equal(t, 0, p.Rewards[0].AccruedAmount.Cmp(decimal.FromInt64(5)))
}

func TestAccrueRuleNoOpOnSameSlot(t *testing.T) {
	p := &Position{}
	mint := mustMint(0x03)
	p.Rewards[0] = RewardSlot{RewardMint: mint, AccruedSlot: 10, AccruedAmount: decimal.FromInt64(3)}
	rule := &RewardRule{RewardMint: mint, Reason: RewardReasonLiquidity, Rate: decimal.FromBps(10)}
	touched := make(map[int]bool)

	err := accrueRule(p, rule, decimal.FromInt64(1_000), 10, touched)
	require.NoError(t, err)
	require.True(t, touched[0])
	require.Equal(t, 0, p.Rewards[0].AccruedAmount.Cmp(decimal.FromInt64(3)))
}

func TestAccrueRuleExhaustedSlots(t *testing.T) {
	p := &Position{}
	for i := 0; i < MaxRewardSlots; i++ {
		p.Rewards[i].RewardMint = mustMint(byte(0x10 + i))
	}
	rule := &RewardRule{RewardMint: mustMint(0xFE), Reason: RewardReasonLiquidity, Rate: decimal.FromBps(10)}
	touched := make(map[int]bool)

	err := accrueRule(p, rule, decimal.FromInt64(100), 1, touched)
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.ResourceExhausted, kind)
}

func TestClaimRewardFreesSlot(t *testing.T) {
	p := &Position{}
	mint := mustMint(0x04)
	p.Rewards[0] = RewardSlot{RewardMint: mint, AccruedAmount: decimal.FromInt64(7)}

	amount, err := p.ClaimReward(mint, 6)
	require.NoError(t, err)
	require.Equal(t, int64(7_000_000), amount.Int64())
	require.True(t, p.Rewards[0].RewardMint.Zero())
	require.True(t, p.Rewards[0].AccruedAmount.IsZero())
}

func TestClaimRewardRejectsUnknownMint(t *testing.T) {
	p := &Position{}
	_, err := p.ClaimReward(mustMint(0x05), 6)
	require.Error(t, err)
}

func TestSetRewardRulesValidatesRateRange(t *testing.T) {
	r := &Reserve{}
	rules := []RewardRule{{RewardMint: mustMint(0x06), Reason: RewardReasonBorrow, Rate: decimal.FromInt64(200)}}
	err := SetRewardRules(r, rules, nil)
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.InvalidConfig, kind)
}

func TestSetRewardRulesReplacesWholeTable(t *testing.T) {
	r := &Reserve{}
	r.RewardRules[0] = RewardRule{RewardMint: mustMint(0x07), Reason: RewardReasonBorrow, Rate: decimal.FromBps(5)}
	r.RewardRuleCount = 1

	rules := []RewardRule{
		{RewardMint: mustMint(0x08), Reason: RewardReasonLiquidity, Rate: decimal.FromBps(20)},
	}
	err := SetRewardRules(r, rules, nil)
	require.NoError(t, err)
	require.Equal(t, 1, r.RewardRuleCount)
	require.Equal(t, RewardReasonLiquidity, r.RewardRules[0].Reason)
	require.Equal(t, RewardRule{}, r.RewardRules[1])
}

func TestSetRewardRulesRejectsUnknownMint(t *testing.T) {
	r := &Reserve{}
	rules := []RewardRule{{RewardMint: mustMint(0x09), Reason: RewardReasonBorrow, Rate: decimal.FromBps(5)}}
	err := SetRewardRules(r, rules, func(address.Address) bool { return false })
	require.Error(t, err)
}

func TestSetRewardRulesRejectsTooManyRules(t *testing.T) {
	r := &Reserve{}
	rules := make([]RewardRule, MaxRewardRules+1)
	for i := range rules {
		rules[i] = RewardRule{RewardMint: mustMint(byte(i)), Reason: RewardReasonBorrow, Rate: decimal.FromBps(5)}
	}
	err := SetRewardRules(r, rules, nil)
	require.Error(t, err)
	kind, ok := lenerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, lenerr.ResourceExhausted, kind)
}
