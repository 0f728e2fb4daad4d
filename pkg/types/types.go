package types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is one externally-directed instruction inside an atomic bundle.
// Immutable once appended to a bundle.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// OpKind tags a bundle call with its semantic shape, which determines how
// its raw return bytes are decoded.
type OpKind int

const (
	OpApproval OpKind = iota
	OpSplit
	OpMerge
	OpSwapExactIn
	OpSwapExactOut
	OpPoolSwap
	OpLiquidationApproval
	OpLiquidationSwap
	OpLiquidationMerge
)

// String returns the kind name used in logs and errors.
func (k OpKind) String() string {
	switch k {
	case OpApproval:
		return "approval"
	case OpSplit:
		return "split"
	case OpMerge:
		return "merge"
	case OpSwapExactIn:
		return "swap_exact_in"
	case OpSwapExactOut:
		return "swap_exact_out"
	case OpPoolSwap:
		return "pool_swap"
	case OpLiquidationApproval:
		return "liquidation_approval"
	case OpLiquidationSwap:
		return "liquidation_swap"
	case OpLiquidationMerge:
		return "liquidation_merge"
	default:
		return "unknown"
	}
}

// Operation attaches a semantic tag and a lookup name to a call by its
// bundle-construction index.
type Operation struct {
	Kind OpKind
	Name string
}

// Outcome is the decoded result of a single bundle call. Only the fields
// relevant to the operation kind are populated; decode failures land in Err
// instead of aborting the rest of the bundle's results.
type Outcome struct {
	Success   bool     // approvals
	Executed  bool     // split / merge
	AmountOut *big.Int // exact-in and pool swaps
	AmountIn  *big.Int // exact-out swaps
	Err       string
}

// Leg identifies one of the two parallel conditional swap paths.
type Leg int

const (
	LegNone Leg = iota
	LegYes
	LegNo
)

// String returns the leg name.
func (l Leg) String() string {
	switch l {
	case LegYes:
		return "YES"
	case LegNo:
		return "NO"
	default:
		return "NONE"
	}
}

// LiquidationPlan describes the leftover conditional balance after the two
// legs have been balanced: which leg holds the excess and how much of it.
type LiquidationPlan struct {
	Amount *big.Int
	Excess Leg
}

// TradeDirection selects which arbitrage flow to run.
type TradeDirection int

const (
	// Buy splits collateral, buys conditional company tokens, merges them
	// and sells the company spot on Balancer.
	Buy TradeDirection = iota
	// Sell buys company spot, splits it, sells the conditional legs and
	// merges conditional collateral back to the settlement asset.
	Sell
)

// String returns the direction name.
func (d TradeDirection) String() string {
	if d == Sell {
		return "sell"
	}
	return "buy"
}

// Opportunity is handed to the optimizer by the price watcher. The engine
// has no opinion on how it was computed.
type Opportunity struct {
	Direction TradeDirection
	Amount    *big.Int // collateral base units
}

// Market is the deployment address set for one futarchy proposal and its
// two venues. Supplied as opaque configuration; the engine never derives
// addresses on its own.
type Market struct {
	FutarchyRouter common.Address
	Proposal       common.Address
	SwaprRouter    common.Address
	BalancerVault  common.Address
	BalancerPoolID common.Hash

	Collateral common.Address // settlement asset (sDAI)
	Company    common.Address

	YesCollateral common.Address // conditional sDAI, YES side
	NoCollateral  common.Address
	YesCompany    common.Address
	NoCompany     common.Address

	// Price pools. PredictionPool quotes the YES probability.
	YesPool        common.Address
	NoPool         common.Address
	PredictionPool common.Address
	BalancerPool   common.Address
}

// ConditionalCollateral returns the conditional settlement token for a leg.
func (m Market) ConditionalCollateral(l Leg) common.Address {
	if l == LegNo {
		return m.NoCollateral
	}
	return m.YesCollateral
}

// ConditionalCompany returns the conditional company token for a leg.
func (m Market) ConditionalCompany(l Leg) common.Address {
	if l == LegNo {
		return m.NoCompany
	}
	return m.YesCompany
}

// Encoding validation errors. Call encoders wrap these with call-site context.
var (
	ErrZeroAddress   = errors.New("zero address")
	ErrInvalidAmount = errors.New("amount must be an unsigned 256-bit integer")
)

// maxUint256 is 2^256 - 1.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ValidateAmount rejects nil, negative and out-of-range amounts before they
// reach the ABI layer.
func ValidateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(maxUint256) > 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateAddress rejects the zero address.
func ValidateAddress(addr common.Address) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	return nil
}

// MaxUint256 returns a fresh copy of 2^256 - 1, the conventional unlimited
// approval amount.
func MaxUint256() *big.Int {
	return new(big.Int).Set(maxUint256)
}
