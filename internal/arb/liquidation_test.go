package arb

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

func addr(n byte) common.Address {
	return common.BytesToAddress([]byte{n})
}

func testMarket() types.Market {
	return types.Market{
		FutarchyRouter: addr(0x01),
		Proposal:       addr(0x02),
		SwaprRouter:    addr(0x03),
		BalancerVault:  addr(0x04),
		BalancerPoolID: common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		Collateral:     addr(0x05),
		Company:        addr(0x06),
		YesCollateral:  addr(0x07),
		NoCollateral:   addr(0x08),
		YesCompany:     addr(0x09),
		NoCompany:      addr(0x0a),
		YesPool:        addr(0x0b),
		NoPool:         addr(0x0c),
		PredictionPool: addr(0x0d),
		BalancerPool:   addr(0x0e),
	}
}

func TestPlanLiquidation(t *testing.T) {
	tests := []struct {
		name        string
		leftoverYes *big.Int
		leftoverNo  *big.Int
		wantExcess  types.Leg
		wantAmount  *big.Int
	}{
		{
			name:        "yes_excess",
			leftoverYes: big.NewInt(153_000_000_000_000),
			leftoverNo:  big.NewInt(0),
			wantExcess:  types.LegYes,
			wantAmount:  big.NewInt(153_000_000_000_000),
		},
		{
			name:        "no_excess",
			leftoverYes: big.NewInt(0),
			leftoverNo:  big.NewInt(400),
			wantExcess:  types.LegNo,
			wantAmount:  big.NewInt(400),
		},
		{
			name:        "symmetric_floor_cancels",
			leftoverYes: big.NewInt(900),
			leftoverNo:  big.NewInt(250),
			wantExcess:  types.LegYes,
			wantAmount:  big.NewInt(650),
		},
		{
			name:        "balanced",
			leftoverYes: big.NewInt(77),
			leftoverNo:  big.NewInt(77),
			wantExcess:  types.LegNone,
			wantAmount:  big.NewInt(0),
		},
		{
			name:       "nil_leftovers",
			wantExcess: types.LegNone,
			wantAmount: big.NewInt(0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanLiquidation(tt.leftoverYes, tt.leftoverNo)
			if plan.Excess != tt.wantExcess {
				t.Errorf("excess = %s, want %s", plan.Excess, tt.wantExcess)
			}
			if plan.Amount.Cmp(tt.wantAmount) != 0 {
				t.Errorf("amount = %s, want %s", plan.Amount, tt.wantAmount)
			}
		})
	}
}

func TestLiquidationCallsYesExcess(t *testing.T) {
	m := testMarket()
	plan := types.LiquidationPlan{Amount: big.NewInt(1000), Excess: types.LegYes}

	calls, ops, err := LiquidationCalls(m, addr(0xaa), plan, 0.1, big.NewInt(1_700_000_000))
	if err != nil {
		t.Fatalf("liquidation calls: %v", err)
	}
	if len(calls) != 2 || len(ops) != 2 {
		t.Fatalf("got %d calls / %d ops, want 2 / 2", len(calls), len(ops))
	}

	if calls[0].Target != m.YesCollateral {
		t.Errorf("approval target = %s, want YES conditional collateral", calls[0].Target.Hex())
	}
	if calls[1].Target != m.SwaprRouter {
		t.Errorf("swap target = %s, want swapr router", calls[1].Target.Hex())
	}
	if ops[0].Kind != types.OpLiquidationApproval || ops[1].Kind != types.OpLiquidationSwap {
		t.Errorf("op kinds = %s, %s", ops[0].Kind, ops[1].Kind)
	}
}

func TestLiquidationCallsNoExcess(t *testing.T) {
	m := testMarket()
	plan := types.LiquidationPlan{Amount: big.NewInt(1000), Excess: types.LegNo}

	calls, ops, err := LiquidationCalls(m, addr(0xaa), plan, 0.1, big.NewInt(1_700_000_000))
	if err != nil {
		t.Fatalf("liquidation calls: %v", err)
	}
	if len(calls) != 5 || len(ops) != 5 {
		t.Fatalf("got %d calls / %d ops, want 5 / 5", len(calls), len(ops))
	}

	// Buy the matching YES amount, then merge the pair through the router.
	if calls[1].Target != m.SwaprRouter {
		t.Errorf("buy target = %s, want swapr router", calls[1].Target.Hex())
	}
	if ops[1].Kind != types.OpSwapExactOut {
		t.Errorf("buy op kind = %s, want exact-out", ops[1].Kind)
	}
	if calls[4].Target != m.FutarchyRouter {
		t.Errorf("merge target = %s, want futarchy router", calls[4].Target.Hex())
	}
	if ops[4].Kind != types.OpLiquidationMerge {
		t.Errorf("merge op kind = %s", ops[4].Kind)
	}

	// Both the router allowance and the buy's maximum input stop at the
	// planned amount plus the headroom, never the unlimited word.
	wantMax := big.NewInt(1100)
	if got := new(big.Int).SetBytes(calls[0].Data[36:68]); got.Cmp(wantMax) != 0 {
		t.Errorf("router allowance word = %s, want %s", got, wantMax)
	}
	// exactOutputSingle params: amountInMaximum is the sixth tuple word.
	if got := new(big.Int).SetBytes(calls[1].Data[4+5*32 : 4+6*32]); got.Cmp(wantMax) != 0 {
		t.Errorf("amountInMaximum word = %s, want %s", got, wantMax)
	}
}

func TestLiquidationInputCeiling(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		slippage float64
		want     *big.Int
	}{
		{"ten_percent", big.NewInt(1000), 0.1, big.NewInt(1100)},
		{"zero_headroom", big.NewInt(1000), 0, big.NewInt(1000)},
		{"rounds_up", big.NewInt(999), 0.1, big.NewInt(1099)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inputCeiling(tt.amount, tt.slippage); got.Cmp(tt.want) != 0 {
				t.Errorf("ceiling = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLiquidationCallsRejectsNegativeSlippage(t *testing.T) {
	plan := types.LiquidationPlan{Amount: big.NewInt(1000), Excess: types.LegNo}
	if _, _, err := LiquidationCalls(testMarket(), addr(0xaa), plan, -0.1, big.NewInt(1)); err == nil {
		t.Fatal("negative slippage ceiling accepted")
	}
}

func TestLiquidationCallsEmptyPlan(t *testing.T) {
	calls, ops, err := LiquidationCalls(testMarket(), addr(0xaa), types.LiquidationPlan{
		Amount: big.NewInt(0),
		Excess: types.LegNone,
	}, 0.1, big.NewInt(1))
	if err != nil {
		t.Fatalf("empty plan: %v", err)
	}
	if len(calls) != 0 || len(ops) != 0 {
		t.Errorf("empty plan built %d calls", len(calls))
	}
}
