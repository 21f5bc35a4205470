package config

import (
	"fmt"
	"strings"

	"texturelend/address"
	"texturelend/lending"
)

// Global is the TOML-decodable mirror of lending.GlobalConfig: addresses and
// durations are carried as strings/seconds on disk and parsed into their
// runtime types by ToRuntime.
type Global struct {
	Owner                        string           `toml:"Owner"`
	FeesRecipient                string           `toml:"FeesRecipient"`
	TextureBorrowFeeRateBps      uint64           `toml:"TextureBorrowFeeRateBps"`
	TexturePerformanceFeeRateBps uint64           `toml:"TexturePerformanceFeeRateBps"`
	FieldTimelockSec             map[string]int64 `toml:"FieldTimelockSec"`
}

func defaultGlobal() Global {
	return Global{
		TextureBorrowFeeRateBps:      0,
		TexturePerformanceFeeRateBps: 0,
		FieldTimelockSec: map[string]int64{
			"MaxBorrowLTVBps":       86400,
			"LiquidationBonusBps":   86400,
			"PartlyUnhealthyLTVBps": 86400,
			"FullyUnhealthyLTVBps":  86400,
			"OracleFeedID":          3600,
			"IRMCurveID":            3600,
		},
	}
}

func (g Global) validate() error {
	if g.TextureBorrowFeeRateBps >= 200 {
		return fmt.Errorf("TextureBorrowFeeRateBps must be < 200")
	}
	if g.TexturePerformanceFeeRateBps > 3000 {
		return fmt.Errorf("TexturePerformanceFeeRateBps must be <= 3000")
	}
	for field, delay := range g.FieldTimelockSec {
		if delay < 0 {
			return fmt.Errorf("FieldTimelockSec[%s] must be non-negative", field)
		}
	}
	return nil
}

// FieldBitByName names the config-field bitmask matching each
// FieldTimelockSec key, mirroring the lending.Field* constant names.
var FieldBitByName = map[string]lending.ConfigFieldBit{
	"OracleFeedID":                  lending.FieldOracleFeedID,
	"IRMCurveID":                    lending.FieldIRMCurveID,
	"LiquidationBonusBps":           lending.FieldLiquidationBonusBps,
	"PartlyUnhealthyLTVBps":         lending.FieldPartlyUnhealthyLTVBps,
	"FullyUnhealthyLTVBps":          lending.FieldFullyUnhealthyLTVBps,
	"PartialLiquidationFactorBps":   lending.FieldPartialLiquidationFactorBps,
	"MaxTotalLiquidity":             lending.FieldMaxTotalLiquidity,
	"MaxBorrowLTVBps":               lending.FieldMaxBorrowLTVBps,
	"MaxBorrowUtilizationBps":       lending.FieldMaxBorrowUtilizationBps,
	"PriceStaleThresholdSec":        lending.FieldPriceStaleThresholdSec,
	"MaxWithdrawUtilizationBps":     lending.FieldMaxWithdrawUtilizationBps,
	"CuratorBorrowFeeRateBps":       lending.FieldCuratorBorrowFeeRateBps,
	"CuratorPerformanceFeeRateBps":  lending.FieldCuratorPerformanceFeeRateBps,
}

// ToRuntime parses the TOML-decoded Global into the lending.GlobalConfig the
// orchestrator consumes, decoding bech32 addresses and translating named
// timelock entries into the engine's bitmask-keyed map.
func (g Global) ToRuntime() (lending.GlobalConfig, error) {
	var owner, feesRecipient address.Address
	var err error
	if strings.TrimSpace(g.Owner) != "" {
		owner, err = address.Decode(g.Owner)
		if err != nil {
			return lending.GlobalConfig{}, fmt.Errorf("Owner: %w", err)
		}
	}
	if strings.TrimSpace(g.FeesRecipient) != "" {
		feesRecipient, err = address.Decode(g.FeesRecipient)
		if err != nil {
			return lending.GlobalConfig{}, fmt.Errorf("FeesRecipient: %w", err)
		}
	}

	timelocks := make(lending.FieldTimelocks, len(g.FieldTimelockSec))
	for name, delay := range g.FieldTimelockSec {
		bit, ok := FieldBitByName[name]
		if !ok {
			return lending.GlobalConfig{}, fmt.Errorf("FieldTimelockSec: unknown field %q", name)
		}
		timelocks[bit] = delay
	}

	return lending.GlobalConfig{
		Owner:                        owner,
		FeesRecipient:                feesRecipient,
		TextureBorrowFeeRateBps:      g.TextureBorrowFeeRateBps,
		TexturePerformanceFeeRateBps: g.TexturePerformanceFeeRateBps,
		FieldTimelockSec:             timelocks,
	}, nil
}
