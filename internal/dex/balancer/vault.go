// Package balancer encodes Balancer V2 vault swaps and reads pool spot
// prices from vault-held balances.
package balancer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Swap kinds per the vault ABI.
const (
	GivenIn  uint8 = 0
	GivenOut uint8 = 1
)

const vaultABIJSON = `[
	{"name":"swap","type":"function","stateMutability":"payable",
	 "inputs":[
		{"name":"singleSwap","type":"tuple","components":[
			{"name":"poolId","type":"bytes32"},
			{"name":"kind","type":"uint8"},
			{"name":"assetIn","type":"address"},
			{"name":"assetOut","type":"address"},
			{"name":"amount","type":"uint256"},
			{"name":"userData","type":"bytes"}]},
		{"name":"funds","type":"tuple","components":[
			{"name":"sender","type":"address"},
			{"name":"fromInternalBalance","type":"bool"},
			{"name":"recipient","type":"address"},
			{"name":"toInternalBalance","type":"bool"}]},
		{"name":"limit","type":"uint256"},
		{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amountCalculated","type":"uint256"}]},
	{"name":"getPoolTokens","type":"function","stateMutability":"view",
	 "inputs":[{"name":"poolId","type":"bytes32"}],
	 "outputs":[
		{"name":"tokens","type":"address[]"},
		{"name":"balances","type":"uint256[]"},
		{"name":"lastChangeBlock","type":"uint256"}]}
]`

var vaultABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid balancer vault ABI: %v", err))
	}
	vaultABI = parsed
}

// SwapParams describes a single-pool vault swap. For GivenIn, Amount is the
// input and Limit the minimum output; for GivenOut the roles invert.
type SwapParams struct {
	PoolID    common.Hash
	Kind      uint8
	AssetIn   common.Address
	AssetOut  common.Address
	Amount    *big.Int
	Limit     *big.Int
	Sender    common.Address
	Recipient common.Address
	Deadline  *big.Int
}

type singleSwap struct {
	PoolId   [32]byte
	Kind     uint8
	AssetIn  common.Address
	AssetOut common.Address
	Amount   *big.Int
	UserData []byte
}

type fundManagement struct {
	Sender              common.Address
	FromInternalBalance bool
	Recipient           common.Address
	ToInternalBalance   bool
}

// EncodeSwap builds a vault swap call. The return value on execution is
// amountCalculated: the output for GivenIn, the input for GivenOut.
func EncodeSwap(vault common.Address, p SwapParams) (types.Call, error) {
	if err := types.ValidateAddress(vault); err != nil {
		return types.Call{}, fmt.Errorf("pool swap vault: %w", err)
	}
	if err := types.ValidateAddress(p.AssetIn); err != nil {
		return types.Call{}, fmt.Errorf("pool swap assetIn: %w", err)
	}
	if err := types.ValidateAddress(p.AssetOut); err != nil {
		return types.Call{}, fmt.Errorf("pool swap assetOut: %w", err)
	}
	if err := types.ValidateAddress(p.Sender); err != nil {
		return types.Call{}, fmt.Errorf("pool swap sender: %w", err)
	}
	if err := types.ValidateAddress(p.Recipient); err != nil {
		return types.Call{}, fmt.Errorf("pool swap recipient: %w", err)
	}
	if err := types.ValidateAmount(p.Amount); err != nil {
		return types.Call{}, fmt.Errorf("pool swap amount: %w", err)
	}
	if err := types.ValidateAmount(p.Limit); err != nil {
		return types.Call{}, fmt.Errorf("pool swap limit: %w", err)
	}
	if err := types.ValidateAmount(p.Deadline); err != nil {
		return types.Call{}, fmt.Errorf("pool swap deadline: %w", err)
	}
	if p.PoolID == (common.Hash{}) {
		return types.Call{}, fmt.Errorf("pool swap: empty pool id")
	}
	if p.Kind != GivenIn && p.Kind != GivenOut {
		return types.Call{}, fmt.Errorf("pool swap: unknown kind %d", p.Kind)
	}

	data, err := vaultABI.Pack("swap",
		singleSwap{
			PoolId:   [32]byte(p.PoolID),
			Kind:     p.Kind,
			AssetIn:  p.AssetIn,
			AssetOut: p.AssetOut,
			Amount:   p.Amount,
			UserData: []byte{},
		},
		fundManagement{
			Sender:    p.Sender,
			Recipient: p.Recipient,
		},
		p.Limit,
		p.Deadline,
	)
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to pack vault swap: %w", err)
	}
	return types.Call{Target: vault, Value: big.NewInt(0), Data: data}, nil
}
