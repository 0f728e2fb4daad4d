// Package arb plans, optimizes and prices the conditional-token arbitrage
// bundles. It owns the three-phase optimizer, the liquidation planner and the
// price watcher that feeds it opportunities.
package arb

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/internal/dex/erc20"
	"github.com/devlongs/futarchy-arb/internal/dex/futarchy"
	"github.com/devlongs/futarchy-arb/internal/dex/swapr"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Liquidation operation names, stable across flows.
const (
	opLiqApproveYesCollateral = "liq_approve_yes_collateral"
	opLiqSwapYesCollateral    = "liq_swap_yes_collateral"
	opLiqApproveCollateral    = "liq_approve_collateral"
	opLiqBuyYesCollateral     = "liq_buy_yes_collateral"
	opLiqApproveMergeYes      = "liq_approve_merge_yes"
	opLiqApproveMergeNo       = "liq_approve_merge_no"
	opLiqMerge                = "liq_merge"
)

// PlanLiquidation decides which leg holds recoverable excess conditional
// collateral. Both leftovers share a symmetric floor that pairs off during the
// merge, so only the difference is worth recovering.
func PlanLiquidation(leftoverYes, leftoverNo *big.Int) types.LiquidationPlan {
	if leftoverYes == nil {
		leftoverYes = big.NewInt(0)
	}
	if leftoverNo == nil {
		leftoverNo = big.NewInt(0)
	}

	diff := new(big.Int).Sub(leftoverYes, leftoverNo)
	switch diff.Sign() {
	case 1:
		return types.LiquidationPlan{Amount: diff, Excess: types.LegYes}
	case -1:
		return types.LiquidationPlan{Amount: diff.Neg(diff), Excess: types.LegNo}
	default:
		return types.LiquidationPlan{Amount: big.NewInt(0), Excess: types.LegNone}
	}
}

// LiquidationCalls builds the recovery calls for a plan.
//
// YES excess sells the conditional collateral straight into the settlement
// asset: 2 calls. NO excess cannot be sold directly; instead the plan buys the
// matching YES amount and merges the pair back to the settlement asset:
// 5 calls. The buy's input, and the allowance that funds it, are both capped
// at the planned amount plus the slippage headroom, so a pool move between
// simulation and inclusion reverts the bundle instead of draining the sender.
// An empty plan builds nothing.
func LiquidationCalls(m types.Market, sender common.Address, plan types.LiquidationPlan, slippage float64, deadline *big.Int) ([]types.Call, []types.Operation, error) {
	if plan.Excess == types.LegNone || plan.Amount == nil || plan.Amount.Sign() == 0 {
		return nil, nil, nil
	}
	if slippage < 0 {
		return nil, nil, fmt.Errorf("liquidation: negative slippage ceiling %f", slippage)
	}

	switch plan.Excess {
	case types.LegYes:
		approve, err := erc20.EncodeApprove(m.YesCollateral, m.SwaprRouter, plan.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		sell, err := swapr.EncodeExactIn(m.SwaprRouter, swapr.ExactInParams{
			TokenIn:      m.YesCollateral,
			TokenOut:     m.Collateral,
			Recipient:    sender,
			Deadline:     deadline,
			AmountIn:     plan.Amount,
			AmountOutMin: big.NewInt(0),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		return []types.Call{approve, sell}, []types.Operation{
				{Kind: types.OpLiquidationApproval, Name: opLiqApproveYesCollateral},
				{Kind: types.OpLiquidationSwap, Name: opLiqSwapYesCollateral},
			}, nil

	case types.LegNo:
		maxIn := inputCeiling(plan.Amount, slippage)
		approveSpend, err := erc20.EncodeApprove(m.Collateral, m.SwaprRouter, maxIn)
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		buyYes, err := swapr.EncodeExactOut(m.SwaprRouter, swapr.ExactOutParams{
			TokenIn:     m.Collateral,
			TokenOut:    m.YesCollateral,
			Recipient:   sender,
			Deadline:    deadline,
			AmountOut:   plan.Amount,
			AmountInMax: maxIn,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		approveYes, err := erc20.EncodeApprove(m.YesCollateral, m.FutarchyRouter, plan.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		approveNo, err := erc20.EncodeApprove(m.NoCollateral, m.FutarchyRouter, plan.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		merge, err := futarchy.EncodeMerge(m.FutarchyRouter, m.Proposal, m.Collateral, plan.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("liquidation: %w", err)
		}
		return []types.Call{approveSpend, buyYes, approveYes, approveNo, merge}, []types.Operation{
				{Kind: types.OpLiquidationApproval, Name: opLiqApproveCollateral},
				{Kind: types.OpSwapExactOut, Name: opLiqBuyYesCollateral},
				{Kind: types.OpLiquidationApproval, Name: opLiqApproveMergeYes},
				{Kind: types.OpLiquidationApproval, Name: opLiqApproveMergeNo},
				{Kind: types.OpLiquidationMerge, Name: opLiqMerge},
			}, nil

	default:
		return nil, nil, fmt.Errorf("liquidation: unknown excess leg %d", plan.Excess)
	}
}

// inputCeiling scales the target amount by the slippage headroom. The
// headroom is applied in basis points with ceiling division: a zero ceiling
// covers the exact amount, fractional wei round up.
func inputCeiling(amount *big.Int, slippage float64) *big.Int {
	bps := big.NewInt(10_000 + int64(math.Round(slippage*10_000)))
	out := new(big.Int).Mul(amount, bps)
	out.Add(out, big.NewInt(9_999))
	return out.Div(out, big.NewInt(10_000))
}
