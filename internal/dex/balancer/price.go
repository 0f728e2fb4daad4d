package balancer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/internal/dex/erc20"
)

// PoolPrice returns the spot price of the pool's base token in quote-token
// units, from the vault's registered two-token balances. Balance-ratio spot
// price assumes a weighted 50/50 pool, which is what the company/collateral
// pair uses.
func PoolPrice(ctx context.Context, client erc20.Caller, vault common.Address, poolID common.Hash, base common.Address) (*big.Float, common.Address, error) {
	data, err := vaultABI.Pack("getPoolTokens", [32]byte(poolID))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to pack getPoolTokens: %w", err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &vault, Data: data}, nil)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("getPoolTokens: %w", err)
	}
	values, err := vaultABI.Unpack("getPoolTokens", out)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to unpack getPoolTokens: %w", err)
	}
	tokens, ok := values[0].([]common.Address)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("unexpected tokens type %T", values[0])
	}
	balances, ok := values[1].([]*big.Int)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("unexpected balances type %T", values[1])
	}
	if len(tokens) != 2 || len(balances) != 2 {
		return nil, common.Address{}, fmt.Errorf("pool %s is not a two-token pool", poolID.Hex())
	}

	bi, qi := 0, 1
	if tokens[1] == base {
		bi, qi = 1, 0
	} else if tokens[0] != base {
		return nil, common.Address{}, fmt.Errorf("token %s not in pool %s", base.Hex(), poolID.Hex())
	}

	decB, err := erc20.Decimals(ctx, client, tokens[bi])
	if err != nil {
		return nil, common.Address{}, err
	}
	decQ, err := erc20.Decimals(ctx, client, tokens[qi])
	if err != nil {
		return nil, common.Address{}, err
	}

	balB := scaled(balances[bi], decB)
	balQ := scaled(balances[qi], decQ)
	if balB.Sign() == 0 {
		return nil, common.Address{}, fmt.Errorf("pool %s has no %s liquidity", poolID.Hex(), base.Hex())
	}

	return new(big.Float).Quo(balQ, balB), tokens[qi], nil
}

func scaled(raw *big.Int, decimals uint8) *big.Float {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Float).Quo(new(big.Float).SetInt(raw), new(big.Float).SetInt(scale))
}
