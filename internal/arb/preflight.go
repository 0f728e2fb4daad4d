package arb

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/internal/dex/erc20"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Preflight verifies the sender can fund the trade before any simulation
// round-trips are spent. A short balance at this point means the bundle would
// revert at the very first split or vault pull.
func Preflight(ctx context.Context, client erc20.Caller, m types.Market, sender common.Address, amount *big.Int) error {
	if err := types.ValidateAmount(amount); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	balance, err := erc20.BalanceOf(ctx, client, m.Collateral, sender)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", bundle.ErrInsufficientBalance, balance.String(), amount.String())
	}
	return nil
}
