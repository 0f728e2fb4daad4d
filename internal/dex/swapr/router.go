// Package swapr encodes Swapr (Algebra) router swaps and reads pool spot
// prices. Both swap variants take the single 7-field params struct used by
// Algebra's SwapRouter.
package swapr

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

const routerABIJSON = `[
	{"name":"exactInputSingle","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"deadline","type":"uint256"},
		{"name":"amountIn","type":"uint256"},
		{"name":"amountOutMinimum","type":"uint256"},
		{"name":"limitSqrtPrice","type":"uint160"}]}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]},
	{"name":"exactOutputSingle","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"deadline","type":"uint256"},
		{"name":"amountOut","type":"uint256"},
		{"name":"amountInMaximum","type":"uint256"},
		{"name":"limitSqrtPrice","type":"uint160"}]}],
	 "outputs":[{"name":"amountIn","type":"uint256"}]}
]`

var routerABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid swapr router ABI: %v", err))
	}
	routerABI = parsed
}

// ExactInParams describes an exact-input single-pool swap.
type ExactInParams struct {
	TokenIn      common.Address
	TokenOut     common.Address
	Recipient    common.Address
	Deadline     *big.Int
	AmountIn     *big.Int
	AmountOutMin *big.Int
}

// ExactOutParams describes an exact-output single-pool swap, bounded by a
// maximum input.
type ExactOutParams struct {
	TokenIn     common.Address
	TokenOut    common.Address
	Recipient   common.Address
	Deadline    *big.Int
	AmountOut   *big.Int
	AmountInMax *big.Int
}

type exactInStruct struct {
	TokenIn          common.Address
	TokenOut         common.Address
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	LimitSqrtPrice   *big.Int
}

type exactOutStruct struct {
	TokenIn         common.Address
	TokenOut        common.Address
	Recipient       common.Address
	Deadline        *big.Int
	AmountOut       *big.Int
	AmountInMaximum *big.Int
	LimitSqrtPrice  *big.Int
}

// EncodeExactIn builds an exactInputSingle call against the router. The
// return value on execution is the amount of TokenOut received.
func EncodeExactIn(router common.Address, p ExactInParams) (types.Call, error) {
	if err := validateSwap(router, p.TokenIn, p.TokenOut, p.Recipient, p.AmountIn, p.AmountOutMin); err != nil {
		return types.Call{}, fmt.Errorf("exact-in swap: %w", err)
	}
	if err := types.ValidateAmount(p.Deadline); err != nil {
		return types.Call{}, fmt.Errorf("exact-in swap deadline: %w", err)
	}

	data, err := routerABI.Pack("exactInputSingle", exactInStruct{
		TokenIn:          p.TokenIn,
		TokenOut:         p.TokenOut,
		Recipient:        p.Recipient,
		Deadline:         p.Deadline,
		AmountIn:         p.AmountIn,
		AmountOutMinimum: p.AmountOutMin,
		LimitSqrtPrice:   big.NewInt(0), // no price limit
	})
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to pack exactInputSingle: %w", err)
	}
	return types.Call{Target: router, Value: big.NewInt(0), Data: data}, nil
}

// EncodeExactOut builds an exactOutputSingle call against the router. The
// return value on execution is the amount of TokenIn consumed.
func EncodeExactOut(router common.Address, p ExactOutParams) (types.Call, error) {
	if err := validateSwap(router, p.TokenIn, p.TokenOut, p.Recipient, p.AmountOut, p.AmountInMax); err != nil {
		return types.Call{}, fmt.Errorf("exact-out swap: %w", err)
	}
	if err := types.ValidateAmount(p.Deadline); err != nil {
		return types.Call{}, fmt.Errorf("exact-out swap deadline: %w", err)
	}

	data, err := routerABI.Pack("exactOutputSingle", exactOutStruct{
		TokenIn:         p.TokenIn,
		TokenOut:        p.TokenOut,
		Recipient:       p.Recipient,
		Deadline:        p.Deadline,
		AmountOut:       p.AmountOut,
		AmountInMaximum: p.AmountInMax,
		LimitSqrtPrice:  big.NewInt(0),
	})
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to pack exactOutputSingle: %w", err)
	}
	return types.Call{Target: router, Value: big.NewInt(0), Data: data}, nil
}

func validateSwap(router, tokenIn, tokenOut, recipient common.Address, amount, bound *big.Int) error {
	if err := types.ValidateAddress(router); err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if err := types.ValidateAddress(tokenIn); err != nil {
		return fmt.Errorf("tokenIn: %w", err)
	}
	if err := types.ValidateAddress(tokenOut); err != nil {
		return fmt.Errorf("tokenOut: %w", err)
	}
	if err := types.ValidateAddress(recipient); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if err := types.ValidateAmount(amount); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if err := types.ValidateAmount(bound); err != nil {
		return fmt.Errorf("amount bound: %w", err)
	}
	return nil
}
