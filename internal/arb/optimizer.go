package arb

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Simulator is the dry-run surface the optimizer plans against.
type Simulator interface {
	Simulate(ctx context.Context, b *bundle.Bundle, sender common.Address) (*bundle.SimulationResult, error)
}

// Optimizer converges a raw opportunity into a balanced, liquidation-complete
// bundle through three simulation phases: discover the leg outputs, rebuild
// with both legs pinned to the smaller output, then attach recovery calls and
// verify the whole thing end to end.
type Optimizer struct {
	sim      Simulator
	market   types.Market
	sender   common.Address
	slippage float64
}

// NewOptimizer creates an optimizer for one market and sender. slippage caps
// how far past the simulated amount a liquidation buy may reach on chain.
func NewOptimizer(sim Simulator, market types.Market, sender common.Address, slippage float64) *Optimizer {
	return &Optimizer{sim: sim, market: market, sender: sender, slippage: slippage}
}

// Result is a fully optimized bundle with its expected economics. NetProfit
// is in settlement asset base units and excludes gas.
type Result struct {
	Bundle    *bundle.Bundle
	Direction types.TradeDirection
	Target    *big.Int

	// UsedYes and UsedNo report each leg's simulated conditional-collateral
	// amount: the input consumed in the buy flow, the output received in the
	// sell flow.
	UsedYes *big.Int
	UsedNo  *big.Int

	Plan      types.LiquidationPlan
	NetProfit *big.Int
}

// Optimize plans the bundle for an opportunity. Every phase runs against
// current chain state; a revert in any phase aborts the plan.
func (o *Optimizer) Optimize(ctx context.Context, opp types.Opportunity, deadline *big.Int) (*Result, error) {
	if err := types.ValidateAmount(opp.Amount); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	if opp.Amount.Sign() == 0 {
		return nil, fmt.Errorf("optimize: zero trade amount")
	}

	if opp.Direction == types.Sell {
		return o.optimizeSell(ctx, opp.Amount, deadline)
	}
	return o.optimizeBuy(ctx, opp.Amount, deadline)
}

func (o *Optimizer) optimizeBuy(ctx context.Context, amount, deadline *big.Int) (*Result, error) {
	// Phase 1: probe both legs with the full split amount.
	discovery, err := buyDiscoveryBundle(o.market, o.sender, amount, deadline)
	if err != nil {
		return nil, fmt.Errorf("buy discovery: %w", err)
	}
	res, err := o.sim.Simulate(ctx, discovery, o.sender)
	if err != nil {
		return nil, fmt.Errorf("buy discovery: %w", err)
	}
	outYes, err := amountOut(res, opSwapYes)
	if err != nil {
		return nil, fmt.Errorf("buy discovery: %w", err)
	}
	outNo, err := amountOut(res, opSwapNo)
	if err != nil {
		return nil, fmt.Errorf("buy discovery: %w", err)
	}
	target := minBig(outYes, outNo)
	if target.Sign() == 0 {
		return nil, fmt.Errorf("buy discovery: a leg produced no output")
	}

	log.Debug().
		Str("outYes", outYes.String()).
		Str("outNo", outNo.String()).
		Str("target", target.String()).
		Msg("Buy legs discovered")

	// Phase 2: pin both legs to the target and learn what each consumes.
	balanced, err := buyBalanceBundle(o.market, o.sender, amount, target, deadline)
	if err != nil {
		return nil, fmt.Errorf("buy balance: %w", err)
	}
	res, err = o.sim.Simulate(ctx, balanced, o.sender)
	if err != nil {
		return nil, fmt.Errorf("buy balance: %w", err)
	}
	usedYes, err := amountIn(res, opSwapYes)
	if err != nil {
		return nil, fmt.Errorf("buy balance: %w", err)
	}
	usedNo, err := amountIn(res, opSwapNo)
	if err != nil {
		return nil, fmt.Errorf("buy balance: %w", err)
	}
	if usedYes.Cmp(amount) > 0 || usedNo.Cmp(amount) > 0 {
		return nil, fmt.Errorf("buy balance: leg consumed more than the split amount")
	}

	// Phase 3: recover the leftover conditional collateral and verify.
	leftoverYes := new(big.Int).Sub(amount, usedYes)
	leftoverNo := new(big.Int).Sub(amount, usedNo)
	plan := PlanLiquidation(leftoverYes, leftoverNo)

	liqCalls, liqOps, err := LiquidationCalls(o.market, o.sender, plan, o.slippage, deadline)
	if err != nil {
		return nil, fmt.Errorf("buy finalize: %w", err)
	}
	final, err := balanced.AppendAll(liqCalls, liqOps)
	if err != nil {
		return nil, fmt.Errorf("buy finalize: %w", err)
	}
	res, err = o.sim.Simulate(ctx, final, o.sender)
	if err != nil {
		return nil, fmt.Errorf("buy finalize: %w", err)
	}

	finalOut, err := amountOut(res, opSwapCompanyCollateral)
	if err != nil {
		return nil, fmt.Errorf("buy finalize: %w", err)
	}
	recovered, err := liquidationProceeds(res, plan)
	if err != nil {
		return nil, fmt.Errorf("buy finalize: %w", err)
	}

	net := new(big.Int).Add(finalOut, recovered)
	net.Sub(net, amount)

	return &Result{
		Bundle:    final,
		Direction: types.Buy,
		Target:    target,
		UsedYes:   usedYes,
		UsedNo:    usedNo,
		Plan:      plan,
		NetProfit: net,
	}, nil
}

func (o *Optimizer) optimizeSell(ctx context.Context, amount, deadline *big.Int) (*Result, error) {
	// Phase 1: learn how much company the collateral buys.
	discovery, err := sellDiscoveryBundle(o.market, o.sender, amount, deadline)
	if err != nil {
		return nil, fmt.Errorf("sell discovery: %w", err)
	}
	res, err := o.sim.Simulate(ctx, discovery, o.sender)
	if err != nil {
		return nil, fmt.Errorf("sell discovery: %w", err)
	}
	companyOut, err := amountOut(res, opSwapCollateralCompany)
	if err != nil {
		return nil, fmt.Errorf("sell discovery: %w", err)
	}
	if companyOut.Sign() == 0 {
		return nil, fmt.Errorf("sell discovery: no company output")
	}

	// Phase 2: split the company and sell both legs.
	balanced, err := sellBalanceBundle(o.market, o.sender, amount, companyOut, deadline)
	if err != nil {
		return nil, fmt.Errorf("sell balance: %w", err)
	}
	res, err = o.sim.Simulate(ctx, balanced, o.sender)
	if err != nil {
		return nil, fmt.Errorf("sell balance: %w", err)
	}
	outYes, err := amountOut(res, opSwapYes)
	if err != nil {
		return nil, fmt.Errorf("sell balance: %w", err)
	}
	outNo, err := amountOut(res, opSwapNo)
	if err != nil {
		return nil, fmt.Errorf("sell balance: %w", err)
	}
	target := minBig(outYes, outNo)
	if target.Sign() == 0 {
		return nil, fmt.Errorf("sell balance: a leg produced no output")
	}

	log.Debug().
		Str("companyOut", companyOut.String()).
		Str("outYes", outYes.String()).
		Str("outNo", outNo.String()).
		Str("target", target.String()).
		Msg("Sell legs discovered")

	// Phase 3: merge the paired conditional collateral, recover the rest.
	leftoverYes := new(big.Int).Sub(outYes, target)
	leftoverNo := new(big.Int).Sub(outNo, target)
	plan := PlanLiquidation(leftoverYes, leftoverNo)

	mergeCalls, mergeOps, err := sellMergeCalls(o.market, target)
	if err != nil {
		return nil, fmt.Errorf("sell finalize: %w", err)
	}
	final, err := balanced.AppendAll(mergeCalls, mergeOps)
	if err != nil {
		return nil, fmt.Errorf("sell finalize: %w", err)
	}
	liqCalls, liqOps, err := LiquidationCalls(o.market, o.sender, plan, o.slippage, deadline)
	if err != nil {
		return nil, fmt.Errorf("sell finalize: %w", err)
	}
	final, err = final.AppendAll(liqCalls, liqOps)
	if err != nil {
		return nil, fmt.Errorf("sell finalize: %w", err)
	}
	res, err = o.sim.Simulate(ctx, final, o.sender)
	if err != nil {
		return nil, fmt.Errorf("sell finalize: %w", err)
	}

	recovered, err := liquidationProceeds(res, plan)
	if err != nil {
		return nil, fmt.Errorf("sell finalize: %w", err)
	}

	// The merge releases target settlement asset against amount spent.
	net := new(big.Int).Add(target, recovered)
	net.Sub(net, amount)

	return &Result{
		Bundle:    final,
		Direction: types.Sell,
		Target:    target,
		UsedYes:   outYes,
		UsedNo:    outNo,
		Plan:      plan,
		NetProfit: net,
	}, nil
}

// liquidationProceeds prices the recovery calls in settlement asset units.
// A YES excess is a straight sale. A NO excess merges the full excess back
// but pays the exact-out cost of the matching YES amount, so its net is the
// merge output minus that cost.
func liquidationProceeds(res *bundle.SimulationResult, plan types.LiquidationPlan) (*big.Int, error) {
	switch plan.Excess {
	case types.LegYes:
		return amountOut(res, opLiqSwapYesCollateral)
	case types.LegNo:
		cost, err := amountIn(res, opLiqBuyYesCollateral)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Sub(plan.Amount, cost), nil
	default:
		return big.NewInt(0), nil
	}
}

func amountOut(res *bundle.SimulationResult, name string) (*big.Int, error) {
	oc, ok := res.Outcome(name)
	if !ok {
		return nil, fmt.Errorf("missing result for %s", name)
	}
	if oc.Err != "" {
		return nil, fmt.Errorf("%s: %s", name, oc.Err)
	}
	if oc.AmountOut == nil {
		return nil, fmt.Errorf("%s: no output amount decoded", name)
	}
	return oc.AmountOut, nil
}

func amountIn(res *bundle.SimulationResult, name string) (*big.Int, error) {
	oc, ok := res.Outcome(name)
	if !ok {
		return nil, fmt.Errorf("missing result for %s", name)
	}
	if oc.Err != "" {
		return nil, fmt.Errorf("%s: %s", name, oc.Err)
	}
	if oc.AmountIn == nil {
		return nil, fmt.Errorf("%s: no input amount decoded", name)
	}
	return oc.AmountIn, nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
