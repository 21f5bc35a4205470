// Package lending implements the collateralized lending engine: the Reserve
// and Position accounting, the rewards and config-proposal engines, and the
// orchestrator that composes them. It follows the teacher's
// native/lending convention of bundling the whole domain into one package
// (types.go / reserve.go / position.go / rewards.go / configproposal.go /
// orchestrator.go) rather than splitting each concern into its own
// importable package, since the concerns share one mutually-recursive data
// model (Reserve.RewardRules feeds Position.Rewards, Position.Borrows
// reference Reserve by identity, ...).
package lending

import (
	"texturelend/address"
	"texturelend/decimal"
)

// GlobalConfig is the single process-wide record, mutated only by its
// owner.
type GlobalConfig struct {
	Owner                    address.Address
	FeesRecipient            address.Address
	TextureBorrowFeeRateBps      uint64
	TexturePerformanceFeeRateBps uint64
	FieldTimelockSec             FieldTimelocks
}

// Curator is an organizational identity holding four authorities and
// human-readable metadata.
type Curator struct {
	OwnerAuthority  address.Address
	FeesAuthority   address.Address
	PoolsAuthority  address.Address
	VaultsAuthority address.Address
	Name            string
}

// Pool groups reserves under one curator in one quote currency.
type Pool struct {
	ID            string
	CuratorID     string
	DisplayName   string
	QuoteCurrency string
	Visible       bool
}

// ReserveType is immutable after creation.
type ReserveType uint8

const (
	ReserveNormal ReserveType = iota
	// ReserveProtectedCollateral may be deposited as collateral but never borrowed.
	ReserveProtectedCollateral
	// ReserveNotCollateral may be borrowed but never deposited as collateral.
	ReserveNotCollateral
)

// ReserveMode is mutable by administrative action.
type ReserveMode uint8

const (
	ModeNormal ReserveMode = iota
	ModeBorrowDisabled
	// ModeRetainLiquidity disables borrow, withdraw, and unlock.
	ModeRetainLiquidity
)

// LastUpdate tracks a record's freshness.
type LastUpdate struct {
	Slot  uint64
	Unix  int64
	Stale bool
}

// FeeConfig holds the curator's borrow and performance fee rates, in basis
// points.
type FeeConfig struct {
	CuratorBorrowFeeRateBps      uint64 // < 200
	CuratorPerformanceFeeRateBps uint64 // <= 3000
}

// ReserveConfig holds the mutable, timelock-gated configuration fields of a
// Reserve.
type ReserveConfig struct {
	OracleFeedID                string
	IRMCurveID                  uint64
	LiquidationBonusBps         uint64 // <= 5000
	PartlyUnhealthyLTVBps       uint64 // 1000-10000
	FullyUnhealthyLTVBps        uint64 // > partly, <= 10000
	PartialLiquidationFactorBps uint64 // clamped [0,10000] at set time
	MaxTotalLiquidity           decimal.Dec
	MaxBorrowLTVBps             uint64 // 500 <= x < PartlyUnhealthyLTVBps
	MaxBorrowUtilizationBps     uint64 // <= 10000
	MaxWithdrawUtilizationBps   uint64 // <= 10000
	PriceStaleThresholdSec      uint32 // > 0
	Fees                        FeeConfig
}

// Clone returns a deep copy (no pointer fields alias the receiver's).
func (c ReserveConfig) Clone() ReserveConfig { return c }

// Liquidity is the reserve's currency ledger.
type Liquidity struct {
	LiquidityMint           address.Address
	Vault                   address.Address // custody account the orchestrator moves liquidity through
	MintDecimals            uint8
	AvailableAmount         decimal.Dec // whole-token amount: minor units / 10^MintDecimals
	BorrowedAmount          decimal.Dec
	CumulativeBorrowRate    decimal.Dec // initialized to 1
	MarketPrice             decimal.Dec
	MarketPricePublishUnix  int64
	CuratorPerformanceFee  decimal.Dec
	TexturePerformanceFee  decimal.Dec
	BorrowRateSnapshot     decimal.Dec
}

// Collateral is the reserve's LP-supply ledger.
type Collateral struct {
	LPMint        address.Address
	Vault         address.Address // custody account holding locked LP during liquidation payout
	LPTotalSupply decimal.Dec // integer
}

// RewardReason selects which kind of position record a RewardRule accrues
// against.
type RewardReason uint8

const (
	RewardReasonNone RewardReason = iota
	RewardReasonLiquidity
	RewardReasonBorrow
)

// MaxRewardRules is the fixed capacity of a Reserve's reward-rule table.
const MaxRewardRules = 8

// RewardRule describes one per-reserve reward-accrual rule.
type RewardRule struct {
	RewardMint address.Address
	Name       [7]byte
	Reason     RewardReason
	StartSlot  uint64
	Rate       decimal.Dec // Q18
}

// MaxProposedConfigs is the fixed capacity of a Reserve's proposal table.
const MaxProposedConfigs = 4

// ConfigFieldBit names one bit of a config-change bitmap.
type ConfigFieldBit uint16

const (
	FieldOracleFeedID ConfigFieldBit = 1 << iota
	FieldIRMCurveID
	FieldLiquidationBonusBps
	FieldPartlyUnhealthyLTVBps
	FieldFullyUnhealthyLTVBps
	FieldPartialLiquidationFactorBps
	FieldMaxTotalLiquidity
	FieldMaxBorrowLTVBps
	FieldMaxBorrowUtilizationBps
	FieldPriceStaleThresholdSec
	FieldMaxWithdrawUtilizationBps
	FieldCuratorBorrowFeeRateBps
	FieldCuratorPerformanceFeeRateBps
)

// ProposedConfig is one slot of a reserve's timelocked config-change table.
type ProposedConfig struct {
	ApplyNotBeforeUnix int64
	ChangeBitmap       ConfigFieldBit
	Shadow             ReserveConfig
}

// Reserve is one per-currency ledger inside a Pool.
type Reserve struct {
	PoolID            string
	Type              ReserveType
	Mode              ReserveMode
	FlashLoansEnabled bool
	LastUpdate        LastUpdate

	Liquidity  Liquidity
	Collateral Collateral
	Config     ReserveConfig

	RewardRules     [MaxRewardRules]RewardRule
	RewardRuleCount int

	ProposedConfigs [MaxProposedConfigs]ProposedConfig
}

// PositionType is interpretive only; it never changes engine behavior.
type PositionType uint8

const (
	PositionClassic PositionType = iota
	PositionLongShort
	PositionLstLeverage
)

// MaxCollateralSlots, MaxBorrowSlots, MaxRewardSlots are the fixed capacities
// of a Position's sub-record arrays.
const (
	MaxCollateralSlots = 10
	MaxBorrowSlots     = 10
	MaxRewardSlots     = 10
)

// CollateralRecord is one locked-LP slot of a Position.
type CollateralRecord struct {
	DepositReserveKey string // (PoolID, LiquidityMint) identity, see ReserveKey
	DepositedAmount   decimal.Dec // integer LP
	EntryMarketValue  decimal.Dec
	MarketValue       decimal.Dec
	Memo              [24]byte
}

// BorrowRecord is one drawn-liquidity slot of a Position.
type BorrowRecord struct {
	BorrowReserveKey     string
	CumulativeBorrowRate decimal.Dec // snapshot at last accrual
	BorrowedAmount       decimal.Dec
	MarketValue          decimal.Dec
	EntryMarketValue     decimal.Dec
	Memo                 [32]byte
}

// RewardSlot is one accrual slot of a Position, keyed by reward mint.
type RewardSlot struct {
	RewardMint    address.Address
	AccruedSlot   uint64
	AccruedAmount decimal.Dec
}

// Position is one per (user, pool) ledger of deposits, borrows, and rewards.
type Position struct {
	Owner      address.Address
	PoolID     string
	Type       PositionType
	LastUpdate LastUpdate

	Collateral      [MaxCollateralSlots]CollateralRecord
	CollateralCount int
	Borrows         [MaxBorrowSlots]BorrowRecord
	BorrowCount     int
	Rewards         [MaxRewardSlots]RewardSlot
	RewardCount     int

	DepositedValue              decimal.Dec
	BorrowedValue                decimal.Dec
	AllowedBorrowValue           decimal.Dec
	PartlyUnhealthyBorrowValue   decimal.Dec
	FullyUnhealthyBorrowValue    decimal.Dec
}

// ReserveKey renders the (PoolID, LiquidityMint) identity used to match a
// Position's sub-records against the Reserve they reference.
func ReserveKey(poolID string, mint address.Address) string {
	return poolID + "/" + mint.String()
}

// Key returns this reserve's identity key.
func (r *Reserve) Key() string { return ReserveKey(r.PoolID, r.Liquidity.LiquidityMint) }

// Amount is a tagged union for operation inputs that may request either an
// exact amount or "whatever the maximum permissible amount is at
// this moment" (spec's MAX sentinel), matching Design Note "Sentinel MAX
// amounts."
type Amount struct {
	Max   bool
	Exact decimal.Dec
}

// ExactAmount wraps an exact quantity (whole-token Q18, like the reserve's
// amount fields).
func ExactAmount(d decimal.Dec) Amount { return Amount{Exact: d} }

// MaxAmount is the "maximum permissible amount" sentinel.
func MaxAmount() Amount { return Amount{Max: true} }
