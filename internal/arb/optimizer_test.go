package arb

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// fakeSim plays back one canned result set per simulation phase, shaping the
// raw bytes the way the executor would for each operation kind.
type fakeSim struct {
	t      *testing.T
	phases []map[string]*big.Int
	err    error

	calls int
	lens  []int
}

func (f *fakeSim) Simulate(ctx context.Context, b *bundle.Bundle, sender common.Address) (*bundle.SimulationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.phases) {
		f.t.Fatalf("unexpected simulation %d", f.calls+1)
	}
	values := f.phases[f.calls]
	f.calls++
	f.lens = append(f.lens, b.Len())

	ops := b.Operations()
	raw := make([][]byte, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case types.OpApproval, types.OpLiquidationApproval,
			types.OpSplit, types.OpMerge, types.OpLiquidationMerge:
			raw[i] = nil
		default:
			v, ok := values[op.Name]
			if !ok {
				f.t.Fatalf("phase %d: no canned value for %s", f.calls, op.Name)
			}
			raw[i] = common.LeftPadBytes(v.Bytes(), 32)
		}
	}
	return bundle.NewSimulationResult(ops, raw), nil
}

func TestOptimizeBuyYesExcess(t *testing.T) {
	amount := big.NewInt(10_000_000_000_000_000)
	sim := &fakeSim{
		t: t,
		phases: []map[string]*big.Int{
			{
				"swap_yes": big.NewInt(9_850_000_000_000_000),
				"swap_no":  big.NewInt(9_700_000_000_000_000),
			},
			{
				"swap_yes":                big.NewInt(9_847_000_000_000_000),
				"swap_no":                 big.NewInt(10_000_000_000_000_000),
				"swap_company_collateral": big.NewInt(9_750_000_000_000_000),
			},
			{
				"swap_yes":                big.NewInt(9_847_000_000_000_000),
				"swap_no":                 big.NewInt(10_000_000_000_000_000),
				"swap_company_collateral": big.NewInt(9_750_000_000_000_000),
				"liq_swap_yes_collateral": big.NewInt(150_000_000_000_000),
			},
		},
	}

	opt := NewOptimizer(sim, testMarket(), addr(0xaa), 0.1)
	result, err := opt.Optimize(context.Background(), types.Opportunity{
		Direction: types.Buy,
		Amount:    amount,
	}, big.NewInt(1_800_000_000))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if got := sim.lens; len(got) != 3 || got[0] != 6 || got[1] != 11 || got[2] != 13 {
		t.Errorf("phase bundle sizes = %v, want [6 11 13]", got)
	}
	if want := big.NewInt(9_700_000_000_000_000); result.Target.Cmp(want) != 0 {
		t.Errorf("target = %s, want %s", result.Target, want)
	}
	if result.Plan.Excess != types.LegYes {
		t.Errorf("excess leg = %s, want YES", result.Plan.Excess)
	}
	if want := big.NewInt(153_000_000_000_000); result.Plan.Amount.Cmp(want) != 0 {
		t.Errorf("liquidation amount = %s, want %s", result.Plan.Amount, want)
	}
	// 9_750e12 sale + 150e12 recovery - 10_000e12 spent
	if want := big.NewInt(-100_000_000_000_000); result.NetProfit.Cmp(want) != 0 {
		t.Errorf("net profit = %s, want %s", result.NetProfit, want)
	}
	if result.Bundle.Len() != 13 {
		t.Errorf("final bundle size = %d, want 13", result.Bundle.Len())
	}
}

func TestOptimizeBuyNoExcess(t *testing.T) {
	amount := big.NewInt(10_000_000_000_000_000)
	sim := &fakeSim{
		t: t,
		phases: []map[string]*big.Int{
			{
				"swap_yes": big.NewInt(9_850_000_000_000_000),
				"swap_no":  big.NewInt(9_700_000_000_000_000),
			},
			{
				"swap_yes":                big.NewInt(10_000_000_000_000_000),
				"swap_no":                 big.NewInt(9_900_000_000_000_000),
				"swap_company_collateral": big.NewInt(9_800_000_000_000_000),
			},
			{
				"swap_yes":                big.NewInt(10_000_000_000_000_000),
				"swap_no":                 big.NewInt(9_900_000_000_000_000),
				"swap_company_collateral": big.NewInt(9_800_000_000_000_000),
				"liq_buy_yes_collateral":  big.NewInt(95_000_000_000_000),
			},
		},
	}

	opt := NewOptimizer(sim, testMarket(), addr(0xaa), 0.1)
	result, err := opt.Optimize(context.Background(), types.Opportunity{
		Direction: types.Buy,
		Amount:    amount,
	}, big.NewInt(1_800_000_000))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if result.Plan.Excess != types.LegNo {
		t.Fatalf("excess leg = %s, want NO", result.Plan.Excess)
	}
	if result.Bundle.Len() != 16 {
		t.Errorf("final bundle size = %d, want 16", result.Bundle.Len())
	}
	// Merge releases 100e12 but the matching YES buy cost 95e12.
	if want := big.NewInt(-195_000_000_000_000); result.NetProfit.Cmp(want) != 0 {
		t.Errorf("net profit = %s, want %s", result.NetProfit, want)
	}
}

func TestOptimizeSell(t *testing.T) {
	amount := big.NewInt(4_900_000_000_000_000)
	sim := &fakeSim{
		t: t,
		phases: []map[string]*big.Int{
			{
				"swap_collateral_company": big.NewInt(5_000_000_000_000_000),
			},
			{
				"swap_collateral_company": big.NewInt(5_000_000_000_000_000),
				"swap_yes":                big.NewInt(5_100_000_000_000_000),
				"swap_no":                 big.NewInt(5_000_000_000_000_000),
			},
			{
				"swap_collateral_company": big.NewInt(5_000_000_000_000_000),
				"swap_yes":                big.NewInt(5_100_000_000_000_000),
				"swap_no":                 big.NewInt(5_000_000_000_000_000),
				"liq_swap_yes_collateral": big.NewInt(95_000_000_000_000),
			},
		},
	}

	opt := NewOptimizer(sim, testMarket(), addr(0xaa), 0.1)
	result, err := opt.Optimize(context.Background(), types.Opportunity{
		Direction: types.Sell,
		Amount:    amount,
	}, big.NewInt(1_800_000_000))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if got := sim.lens; len(got) != 3 || got[0] != 2 || got[1] != 8 || got[2] != 13 {
		t.Errorf("phase bundle sizes = %v, want [2 8 13]", got)
	}
	if want := big.NewInt(5_000_000_000_000_000); result.Target.Cmp(want) != 0 {
		t.Errorf("target = %s, want %s", result.Target, want)
	}
	if result.Plan.Excess != types.LegYes {
		t.Errorf("excess leg = %s, want YES", result.Plan.Excess)
	}
	// In the sell flow the leg fields carry the conditional collateral each
	// sale produced.
	if want := big.NewInt(5_100_000_000_000_000); result.UsedYes.Cmp(want) != 0 {
		t.Errorf("yes leg output = %s, want %s", result.UsedYes, want)
	}
	if want := big.NewInt(5_000_000_000_000_000); result.UsedNo.Cmp(want) != 0 {
		t.Errorf("no leg output = %s, want %s", result.UsedNo, want)
	}
	// 5_000e12 merge + 95e12 recovery - 4_900e12 spent
	if want := big.NewInt(195_000_000_000_000); result.NetProfit.Cmp(want) != 0 {
		t.Errorf("net profit = %s, want %s", result.NetProfit, want)
	}
}

func TestOptimizePropagatesRevert(t *testing.T) {
	revert := &bundle.RevertError{Index: 3, Reason: "STF"}
	opt := NewOptimizer(&fakeSim{t: t, err: revert}, testMarket(), addr(0xaa), 0.1)

	_, err := opt.Optimize(context.Background(), types.Opportunity{
		Direction: types.Buy,
		Amount:    big.NewInt(1000),
	}, big.NewInt(1))

	var got *bundle.RevertError
	if !errors.As(err, &got) {
		t.Fatalf("expected RevertError, got %v", err)
	}
	if got.Index != 3 {
		t.Errorf("revert index = %d, want 3", got.Index)
	}
}

func TestOptimizeRejectsBadAmount(t *testing.T) {
	opt := NewOptimizer(&fakeSim{t: t}, testMarket(), addr(0xaa), 0.1)
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if _, err := opt.Optimize(context.Background(), types.Opportunity{
			Direction: types.Buy,
			Amount:    amount,
		}, big.NewInt(1)); err == nil {
			t.Errorf("amount %v accepted", amount)
		}
	}
}
