package lending

import "texturelend/lenerr"

// FieldTimelocks maps each ConfigFieldBit to its timelock duration in
// seconds, per GlobalConfig's "array of per-field timelock durations."
type FieldTimelocks map[ConfigFieldBit]int64

var allConfigFields = []ConfigFieldBit{
	FieldOracleFeedID,
	FieldIRMCurveID,
	FieldLiquidationBonusBps,
	FieldPartlyUnhealthyLTVBps,
	FieldFullyUnhealthyLTVBps,
	FieldPartialLiquidationFactorBps,
	FieldMaxTotalLiquidity,
	FieldMaxBorrowLTVBps,
	FieldMaxBorrowUtilizationBps,
	FieldPriceStaleThresholdSec,
	FieldMaxWithdrawUtilizationBps,
	FieldCuratorBorrowFeeRateBps,
	FieldCuratorPerformanceFeeRateBps,
}

// ProposeConfigChange implements 4.F Propose: selects a free proposal slot,
// computes apply_time as now + max(timelock of each changed field), and
// stores the shadow config.
func ProposeConfigChange(r *Reserve, changeBitmap ConfigFieldBit, shadow ReserveConfig, timelocks FieldTimelocks, nowUnix int64) (int, error) {
	if changeBitmap == 0 {
		return -1, lenerr.New(lenerr.OperationCanNotBePerformed, "empty change bitmap")
	}
	slot := -1
	for i := 0; i < MaxProposedConfigs; i++ {
		if r.ProposedConfigs[i].ChangeBitmap == 0 {
			slot = i
			break
		}
	}
	if slot == -1 {
		return -1, lenerr.New(lenerr.ResourceExhausted, "no free config-proposal slot")
	}

	var maxDelay int64
	for _, field := range allConfigFields {
		if changeBitmap&field == 0 {
			continue
		}
		if delay, ok := timelocks[field]; ok && delay > maxDelay {
			maxDelay = delay
		}
	}

	r.ProposedConfigs[slot] = ProposedConfig{
		ApplyNotBeforeUnix: nowUnix + maxDelay,
		ChangeBitmap:       changeBitmap,
		Shadow:             shadow.Clone(),
	}
	return slot, nil
}

// ClearConfigProposal implements 4.F Clear.
func ClearConfigProposal(r *Reserve, slot int) error {
	if slot < 0 || slot >= MaxProposedConfigs {
		return lenerr.New(lenerr.InvalidConfig, "proposal slot out of range")
	}
	r.ProposedConfigs[slot] = ProposedConfig{}
	return nil
}

// ApplyConfigProposal implements 4.F Apply: rejects if the timelock has not
// elapsed or the bitmap is empty; otherwise copies each set field from the
// shadow config into the reserve's live config, then clears the slot.
func ApplyConfigProposal(r *Reserve, slot int, nowUnix int64) error {
	if slot < 0 || slot >= MaxProposedConfigs {
		return lenerr.New(lenerr.InvalidConfig, "proposal slot out of range")
	}
	proposal := &r.ProposedConfigs[slot]
	if proposal.ChangeBitmap == 0 {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "proposal slot is empty")
	}
	if nowUnix < proposal.ApplyNotBeforeUnix {
		return lenerr.New(lenerr.OperationCanNotBePerformed, "timelock has not elapsed")
	}

	bitmap := proposal.ChangeBitmap
	shadow := proposal.Shadow
	if bitmap&FieldOracleFeedID != 0 {
		r.Config.OracleFeedID = shadow.OracleFeedID
	}
	if bitmap&FieldIRMCurveID != 0 {
		r.Config.IRMCurveID = shadow.IRMCurveID
	}
	if bitmap&FieldLiquidationBonusBps != 0 {
		r.Config.LiquidationBonusBps = shadow.LiquidationBonusBps
	}
	if bitmap&FieldPartlyUnhealthyLTVBps != 0 {
		r.Config.PartlyUnhealthyLTVBps = shadow.PartlyUnhealthyLTVBps
	}
	if bitmap&FieldFullyUnhealthyLTVBps != 0 {
		r.Config.FullyUnhealthyLTVBps = shadow.FullyUnhealthyLTVBps
	}
	if bitmap&FieldPartialLiquidationFactorBps != 0 {
		r.Config.PartialLiquidationFactorBps = clampBps(shadow.PartialLiquidationFactorBps)
	}
	if bitmap&FieldMaxTotalLiquidity != 0 {
		r.Config.MaxTotalLiquidity = shadow.MaxTotalLiquidity
	}
	if bitmap&FieldMaxBorrowLTVBps != 0 {
		r.Config.MaxBorrowLTVBps = shadow.MaxBorrowLTVBps
	}
	if bitmap&FieldMaxBorrowUtilizationBps != 0 {
		r.Config.MaxBorrowUtilizationBps = shadow.MaxBorrowUtilizationBps
	}
	if bitmap&FieldPriceStaleThresholdSec != 0 {
		r.Config.PriceStaleThresholdSec = shadow.PriceStaleThresholdSec
	}
	if bitmap&FieldMaxWithdrawUtilizationBps != 0 {
		r.Config.MaxWithdrawUtilizationBps = shadow.MaxWithdrawUtilizationBps
	}
	if bitmap&FieldCuratorBorrowFeeRateBps != 0 {
		r.Config.Fees.CuratorBorrowFeeRateBps = shadow.Fees.CuratorBorrowFeeRateBps
	}
	if bitmap&FieldCuratorPerformanceFeeRateBps != 0 {
		r.Config.Fees.CuratorPerformanceFeeRateBps = shadow.Fees.CuratorPerformanceFeeRateBps
	}

	r.ProposedConfigs[slot] = ProposedConfig{}
	return nil
}

// clampBps implements Open Question (c): partial_liquidation_factor_bps is
// clamped to [0, 10000] at config-set time.
func clampBps(bps uint64) uint64 {
	if bps > 10_000 {
		return 10_000
	}
	return bps
}

// NewReserveConfig validates and constructs a ReserveConfig, applying the
// same partial-liquidation-factor clamp as ApplyConfigProposal.
func NewReserveConfig(cfg ReserveConfig) (ReserveConfig, error) {
	if cfg.LiquidationBonusBps > 5000 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "liquidation bonus exceeds 5000 bps")
	}
	if cfg.PartlyUnhealthyLTVBps < 1000 || cfg.PartlyUnhealthyLTVBps > 10_000 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "partly-unhealthy ltv out of [1000,10000] bps")
	}
	if cfg.FullyUnhealthyLTVBps <= cfg.PartlyUnhealthyLTVBps || cfg.FullyUnhealthyLTVBps > 10_000 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "fully-unhealthy ltv must exceed partly-unhealthy and be <= 10000 bps")
	}
	if cfg.MaxTotalLiquidity.Sign() <= 0 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "max total liquidity must be positive")
	}
	if cfg.MaxBorrowLTVBps < 500 || cfg.MaxBorrowLTVBps >= cfg.PartlyUnhealthyLTVBps {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "max borrow ltv out of [500, partly-unhealthy) bps")
	}
	if cfg.MaxBorrowUtilizationBps > 10_000 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "max borrow utilization exceeds 10000 bps")
	}
	if cfg.MaxWithdrawUtilizationBps > 10_000 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "max withdraw utilization exceeds 10000 bps")
	}
	if cfg.PriceStaleThresholdSec == 0 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "price stale threshold must be positive")
	}
	if cfg.Fees.CuratorBorrowFeeRateBps >= 200 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "curator borrow fee rate must be < 200 bps")
	}
	if cfg.Fees.CuratorPerformanceFeeRateBps > 3000 {
		return ReserveConfig{}, lenerr.New(lenerr.InvalidConfig, "curator performance fee rate exceeds 3000 bps")
	}
	cfg.PartialLiquidationFactorBps = clampBps(cfg.PartialLiquidationFactorBps)
	return cfg, nil
}
