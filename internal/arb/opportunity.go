package arb

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/internal/dex/balancer"
	"github.com/devlongs/futarchy-arb/internal/dex/erc20"
	"github.com/devlongs/futarchy-arb/internal/dex/swapr"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Prices is one snapshot of the four quotes an opportunity decision uses.
// YesPrice and NoPrice quote the conditional company token in conditional
// collateral; Probability is the YES probability implied by the prediction
// pool; BalancerPrice quotes the company spot in settlement asset.
type Prices struct {
	YesPrice      float64
	NoPrice       float64
	Probability   float64
	BalancerPrice float64
	IdealPrice    float64
}

// Watcher reads market prices and decides whether the spot/conditional gap is
// wide enough to trade.
type Watcher struct {
	client    erc20.Caller
	market    types.Market
	tolerance float64
	amount    *big.Int
}

// NewWatcher creates a price watcher. tolerance is the relative gap the spot
// price must clear before an opportunity fires; amount is the trade size
// handed to the optimizer.
func NewWatcher(client erc20.Caller, market types.Market, tolerance float64, amount *big.Int) *Watcher {
	return &Watcher{client: client, market: market, tolerance: tolerance, amount: amount}
}

// Check reads the four pools and returns an opportunity if the Balancer spot
// price deviates from the probability-weighted conditional price by more than
// the tolerance. A nil opportunity with nil error means the market is inside
// the band.
func (w *Watcher) Check(ctx context.Context) (*types.Opportunity, Prices, error) {
	yesPrice, err := w.swaprPriceOf(ctx, w.market.YesPool, w.market.YesCompany)
	if err != nil {
		return nil, Prices{}, fmt.Errorf("yes pool: %w", err)
	}
	noPrice, err := w.swaprPriceOf(ctx, w.market.NoPool, w.market.NoCompany)
	if err != nil {
		return nil, Prices{}, fmt.Errorf("no pool: %w", err)
	}
	prob, err := w.swaprPriceOf(ctx, w.market.PredictionPool, w.market.YesCollateral)
	if err != nil {
		return nil, Prices{}, fmt.Errorf("prediction pool: %w", err)
	}
	if prob < 0 {
		prob = 0
	} else if prob > 1 {
		prob = 1
	}

	balFloat, _, err := balancer.PoolPrice(ctx, w.client, w.market.BalancerVault, w.market.BalancerPoolID, w.market.Company)
	if err != nil {
		return nil, Prices{}, fmt.Errorf("balancer pool: %w", err)
	}
	balPrice, _ := balFloat.Float64()

	ideal := prob*yesPrice + (1-prob)*noPrice
	prices := Prices{
		YesPrice:      yesPrice,
		NoPrice:       noPrice,
		Probability:   prob,
		BalancerPrice: balPrice,
		IdealPrice:    ideal,
	}
	if ideal <= 0 {
		return nil, prices, fmt.Errorf("degenerate conditional prices: ideal %f", ideal)
	}

	switch {
	case balPrice > ideal*(1+w.tolerance):
		// Spot is rich: acquire company through the conditional legs, sell spot.
		return &types.Opportunity{Direction: types.Buy, Amount: new(big.Int).Set(w.amount)}, prices, nil
	case balPrice < ideal*(1-w.tolerance):
		// Spot is cheap: buy spot, unwind through the conditional legs.
		return &types.Opportunity{Direction: types.Sell, Amount: new(big.Int).Set(w.amount)}, prices, nil
	default:
		return nil, prices, nil
	}
}

// swaprPriceOf returns the price of token in the pool's other token,
// whichever side of the pair token sits on.
func (w *Watcher) swaprPriceOf(ctx context.Context, pool, token common.Address) (float64, error) {
	price, base, quote, err := swapr.PoolPrice(ctx, w.client, pool, 0)
	if err != nil {
		return 0, err
	}
	if base == token {
		f, _ := price.Float64()
		return f, nil
	}
	if quote != token {
		return 0, fmt.Errorf("token %s not in pool %s", token.Hex(), pool.Hex())
	}
	if price.Sign() == 0 {
		return 0, fmt.Errorf("pool %s has zero price", pool.Hex())
	}
	f, _ := new(big.Float).Quo(big.NewFloat(1), price).Float64()
	return f, nil
}
