package swapr

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/devlongs/futarchy-arb/internal/dex/erc20"
)

var (
	globalStateSelector = crypto.Keccak256([]byte("globalState()"))[:4]
	token0Selector      = crypto.Keccak256([]byte("token0()"))[:4]
	token1Selector      = crypto.Keccak256([]byte("token1()"))[:4]
)

// q96 is the Algebra/Uniswap fixed-point denominator, 2^96.
var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// PoolPrice returns the spot price of the pool's base token in quote-token
// units. baseTokenIndex selects which of token0/token1 is the base.
func PoolPrice(ctx context.Context, client erc20.Caller, pool common.Address, baseTokenIndex int) (*big.Float, common.Address, common.Address, error) {
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: globalStateSelector}, nil)
	if err != nil {
		return nil, common.Address{}, common.Address{}, fmt.Errorf("globalState %s: %w", pool.Hex(), err)
	}
	if len(out) < 32 {
		return nil, common.Address{}, common.Address{}, fmt.Errorf("globalState %s: short result", pool.Hex())
	}
	sqrtPriceX96 := new(big.Int).SetBytes(out[:32])

	token0, err := readToken(ctx, client, pool, token0Selector)
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}
	token1, err := readToken(ctx, client, pool, token1Selector)
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}

	dec0, err := erc20.Decimals(ctx, client, token0)
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}
	dec1, err := erc20.Decimals(ctx, client, token1)
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}

	// price of token0 in token1 = (sqrtP / 2^96)^2, rescaled by decimals
	price01 := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceX96), q96)
	price01.Mul(price01, price01)
	if diff := int(dec0) - int(dec1); diff > 0 {
		price01.Mul(price01, new(big.Float).SetInt(pow10(diff)))
	} else if diff < 0 {
		price01.Quo(price01, new(big.Float).SetInt(pow10(-diff)))
	}

	if baseTokenIndex == 0 {
		return price01, token0, token1, nil
	}
	if price01.Sign() == 0 {
		return nil, common.Address{}, common.Address{}, fmt.Errorf("pool %s has zero price", pool.Hex())
	}
	return new(big.Float).Quo(big.NewFloat(1), price01), token1, token0, nil
}

func readToken(ctx context.Context, client erc20.Caller, pool common.Address, selector []byte) (common.Address, error) {
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: selector}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("pool token read %s: %w", pool.Hex(), err)
	}
	if len(out) < 32 {
		return common.Address{}, fmt.Errorf("pool token read %s: short result", pool.Hex())
	}
	return common.BytesToAddress(out[12:32]), nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
