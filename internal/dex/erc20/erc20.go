// Package erc20 encodes token calls and reads balances/allowances used by
// the pre-flight checks.
package erc20

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

var (
	approveSelector   = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]
	balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	allowanceSelector = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
	decimalsSelector  = crypto.Keccak256([]byte("decimals()"))[:4]
)

// EncodeApprove builds an approve(spender, amount) call against token.
func EncodeApprove(token, spender common.Address, amount *big.Int) (types.Call, error) {
	if err := types.ValidateAddress(token); err != nil {
		return types.Call{}, fmt.Errorf("approve token: %w", err)
	}
	if err := types.ValidateAddress(spender); err != nil {
		return types.Call{}, fmt.Errorf("approve spender: %w", err)
	}
	if err := types.ValidateAmount(amount); err != nil {
		return types.Call{}, fmt.Errorf("approve amount: %w", err)
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, approveSelector...)
	data = append(data, common.LeftPadBytes(spender.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

	return types.Call{Target: token, Value: big.NewInt(0), Data: data}, nil
}

// Caller is the minimal read surface needed for token views.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceOf reads the token balance of owner.
func BalanceOf(ctx context.Context, client Caller, token, owner common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("balanceOf %s: short result (%d bytes)", token.Hex(), len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

// Allowance reads how much spender may move on behalf of owner.
func Allowance(ctx context.Context, client Caller, token, owner, spender common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+32+32)
	data = append(data, allowanceSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(spender.Bytes(), 32)...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("allowance %s: short result (%d bytes)", token.Hex(), len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

// Decimals reads the token's decimal count.
func Decimals(ctx context.Context, client Caller, token common.Address) (uint8, error) {
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: decimalsSelector}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", token.Hex(), err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("decimals %s: short result (%d bytes)", token.Hex(), len(out))
	}
	return uint8(out[31]), nil
}
