package arb

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/internal/dex/balancer"
	"github.com/devlongs/futarchy-arb/internal/dex/erc20"
	"github.com/devlongs/futarchy-arb/internal/dex/futarchy"
	"github.com/devlongs/futarchy-arb/internal/dex/swapr"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Operation names shared by the flow builders and the optimizer.
const (
	opApproveCollateralRouter = "approve_collateral_router"
	opSplitCollateral         = "split_collateral"
	opApproveYesSwap          = "approve_yes_swap"
	opSwapYes                 = "swap_yes"
	opApproveNoSwap           = "approve_no_swap"
	opSwapNo                  = "swap_no"
	opApproveMergeYes         = "approve_merge_yes"
	opApproveMergeNo          = "approve_merge_no"
	opMergeCompany            = "merge_company"
	opApproveCompanyVault     = "approve_company_vault"
	opSwapCompanyCollateral   = "swap_company_collateral"

	opApproveCollateralVault = "approve_collateral_vault"
	opSwapCollateralCompany  = "swap_collateral_company"
	opApproveCompanyRouter   = "approve_company_router"
	opSplitCompany           = "split_company"
	opMergeCollateral        = "merge_collateral"
)

// flowBuilder accumulates calls into a bundle, capturing the first error so
// call sites stay flat.
type flowBuilder struct {
	b   *bundle.Bundle
	err error
}

func newFlowBuilder() *flowBuilder {
	return &flowBuilder{b: bundle.New()}
}

func (f *flowBuilder) add(call types.Call, callErr error, kind types.OpKind, name string) {
	if f.err != nil {
		return
	}
	if callErr != nil {
		f.err = fmt.Errorf("%s: %w", name, callErr)
		return
	}
	f.b, f.err = f.b.Append(call, types.Operation{Kind: kind, Name: name})
}

func (f *flowBuilder) addAll(calls []types.Call, ops []types.Operation, callErr error) {
	if f.err != nil {
		return
	}
	if callErr != nil {
		f.err = callErr
		return
	}
	f.b, f.err = f.b.AppendAll(calls, ops)
}

func (f *flowBuilder) build() (*bundle.Bundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.b, nil
}

// buyDiscoveryBundle probes both conditional legs with the full split amount.
// Exact-in swaps with no output floor: the point is to learn the leg outputs,
// not to trade well.
func buyDiscoveryBundle(m types.Market, sender common.Address, amount, deadline *big.Int) (*bundle.Bundle, error) {
	f := newFlowBuilder()

	call, err := erc20.EncodeApprove(m.Collateral, m.FutarchyRouter, amount)
	f.add(call, err, types.OpApproval, opApproveCollateralRouter)

	call, err = futarchy.EncodeSplit(m.FutarchyRouter, m.Proposal, m.Collateral, amount)
	f.add(call, err, types.OpSplit, opSplitCollateral)

	for _, leg := range []struct {
		leg         types.Leg
		approveName string
		swapName    string
	}{
		{types.LegYes, opApproveYesSwap, opSwapYes},
		{types.LegNo, opApproveNoSwap, opSwapNo},
	} {
		call, err = erc20.EncodeApprove(m.ConditionalCollateral(leg.leg), m.SwaprRouter, amount)
		f.add(call, err, types.OpApproval, leg.approveName)

		call, err = swapr.EncodeExactIn(m.SwaprRouter, swapr.ExactInParams{
			TokenIn:      m.ConditionalCollateral(leg.leg),
			TokenOut:     m.ConditionalCompany(leg.leg),
			Recipient:    sender,
			Deadline:     deadline,
			AmountIn:     amount,
			AmountOutMin: big.NewInt(0),
		})
		f.add(call, err, types.OpSwapExactIn, leg.swapName)
	}

	return f.build()
}

// buyBalanceBundle rebuilds the buy flow with both legs pinned to the same
// conditional company output, then merges and sells the company spot. The
// exact-out swaps report the conditional collateral each leg actually consumed.
func buyBalanceBundle(m types.Market, sender common.Address, amount, target, deadline *big.Int) (*bundle.Bundle, error) {
	f := newFlowBuilder()

	call, err := erc20.EncodeApprove(m.Collateral, m.FutarchyRouter, amount)
	f.add(call, err, types.OpApproval, opApproveCollateralRouter)

	call, err = futarchy.EncodeSplit(m.FutarchyRouter, m.Proposal, m.Collateral, amount)
	f.add(call, err, types.OpSplit, opSplitCollateral)

	for _, leg := range []struct {
		leg         types.Leg
		approveName string
		swapName    string
	}{
		{types.LegYes, opApproveYesSwap, opSwapYes},
		{types.LegNo, opApproveNoSwap, opSwapNo},
	} {
		call, err = erc20.EncodeApprove(m.ConditionalCollateral(leg.leg), m.SwaprRouter, amount)
		f.add(call, err, types.OpApproval, leg.approveName)

		call, err = swapr.EncodeExactOut(m.SwaprRouter, swapr.ExactOutParams{
			TokenIn:     m.ConditionalCollateral(leg.leg),
			TokenOut:    m.ConditionalCompany(leg.leg),
			Recipient:   sender,
			Deadline:    deadline,
			AmountOut:   target,
			AmountInMax: amount,
		})
		f.add(call, err, types.OpSwapExactOut, leg.swapName)
	}

	call, err = erc20.EncodeApprove(m.YesCompany, m.FutarchyRouter, target)
	f.add(call, err, types.OpApproval, opApproveMergeYes)

	call, err = erc20.EncodeApprove(m.NoCompany, m.FutarchyRouter, target)
	f.add(call, err, types.OpApproval, opApproveMergeNo)

	call, err = futarchy.EncodeMerge(m.FutarchyRouter, m.Proposal, m.Company, target)
	f.add(call, err, types.OpMerge, opMergeCompany)

	call, err = erc20.EncodeApprove(m.Company, m.BalancerVault, target)
	f.add(call, err, types.OpApproval, opApproveCompanyVault)

	call, err = balancer.EncodeSwap(m.BalancerVault, balancer.SwapParams{
		PoolID:    m.BalancerPoolID,
		Kind:      balancer.GivenIn,
		AssetIn:   m.Company,
		AssetOut:  m.Collateral,
		Amount:    target,
		Limit:     big.NewInt(0),
		Sender:    sender,
		Recipient: sender,
		Deadline:  deadline,
	})
	f.add(call, err, types.OpPoolSwap, opSwapCompanyCollateral)

	return f.build()
}

// sellDiscoveryBundle buys company spot with the full collateral amount to
// learn how much company the sell flow will split.
func sellDiscoveryBundle(m types.Market, sender common.Address, amount, deadline *big.Int) (*bundle.Bundle, error) {
	f := newFlowBuilder()

	call, err := erc20.EncodeApprove(m.Collateral, m.BalancerVault, amount)
	f.add(call, err, types.OpApproval, opApproveCollateralVault)

	call, err = balancer.EncodeSwap(m.BalancerVault, balancer.SwapParams{
		PoolID:    m.BalancerPoolID,
		Kind:      balancer.GivenIn,
		AssetIn:   m.Collateral,
		AssetOut:  m.Company,
		Amount:    amount,
		Limit:     big.NewInt(0),
		Sender:    sender,
		Recipient: sender,
		Deadline:  deadline,
	})
	f.add(call, err, types.OpPoolSwap, opSwapCollateralCompany)

	return f.build()
}

// sellBalanceBundle runs the sell flow up to the two leg sales: buy company,
// split it, sell both conditional legs exact-in. The merge is deferred to the
// final bundle because its size is the smaller leg output, which this
// simulation discovers.
func sellBalanceBundle(m types.Market, sender common.Address, amount, companyOut, deadline *big.Int) (*bundle.Bundle, error) {
	f := newFlowBuilder()

	call, err := erc20.EncodeApprove(m.Collateral, m.BalancerVault, amount)
	f.add(call, err, types.OpApproval, opApproveCollateralVault)

	call, err = balancer.EncodeSwap(m.BalancerVault, balancer.SwapParams{
		PoolID:    m.BalancerPoolID,
		Kind:      balancer.GivenIn,
		AssetIn:   m.Collateral,
		AssetOut:  m.Company,
		Amount:    amount,
		Limit:     big.NewInt(0),
		Sender:    sender,
		Recipient: sender,
		Deadline:  deadline,
	})
	f.add(call, err, types.OpPoolSwap, opSwapCollateralCompany)

	call, err = erc20.EncodeApprove(m.Company, m.FutarchyRouter, companyOut)
	f.add(call, err, types.OpApproval, opApproveCompanyRouter)

	call, err = futarchy.EncodeSplit(m.FutarchyRouter, m.Proposal, m.Company, companyOut)
	f.add(call, err, types.OpSplit, opSplitCompany)

	for _, leg := range []struct {
		leg         types.Leg
		approveName string
		swapName    string
	}{
		{types.LegYes, opApproveYesSwap, opSwapYes},
		{types.LegNo, opApproveNoSwap, opSwapNo},
	} {
		call, err = erc20.EncodeApprove(m.ConditionalCompany(leg.leg), m.SwaprRouter, companyOut)
		f.add(call, err, types.OpApproval, leg.approveName)

		call, err = swapr.EncodeExactIn(m.SwaprRouter, swapr.ExactInParams{
			TokenIn:      m.ConditionalCompany(leg.leg),
			TokenOut:     m.ConditionalCollateral(leg.leg),
			Recipient:    sender,
			Deadline:     deadline,
			AmountIn:     companyOut,
			AmountOutMin: big.NewInt(0),
		})
		f.add(call, err, types.OpSwapExactIn, leg.swapName)
	}

	return f.build()
}

// sellMergeCalls closes the sell flow: merge the paired conditional collateral
// back to the settlement asset.
func sellMergeCalls(m types.Market, target *big.Int) ([]types.Call, []types.Operation, error) {
	approveYes, err := erc20.EncodeApprove(m.YesCollateral, m.FutarchyRouter, target)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opApproveMergeYes, err)
	}
	approveNo, err := erc20.EncodeApprove(m.NoCollateral, m.FutarchyRouter, target)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opApproveMergeNo, err)
	}
	merge, err := futarchy.EncodeMerge(m.FutarchyRouter, m.Proposal, m.Collateral, target)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opMergeCollateral, err)
	}
	return []types.Call{approveYes, approveNo, merge}, []types.Operation{
		{Kind: types.OpApproval, Name: opApproveMergeYes},
		{Kind: types.OpApproval, Name: opApproveMergeNo},
		{Kind: types.OpMerge, Name: opMergeCollateral},
	}, nil
}
