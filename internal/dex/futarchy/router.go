// Package futarchy encodes FutarchyRouter calls. Splitting locks collateral
// and mints equal YES/NO conditional tokens; merging burns an equal pair and
// releases the collateral.
package futarchy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

var (
	splitSelector = crypto.Keccak256([]byte("splitPosition(address,address,uint256)"))[:4]
	mergeSelector = crypto.Keccak256([]byte("mergePositions(address,address,uint256)"))[:4]
)

// EncodeSplit builds a splitPosition(proposal, collateral, amount) call.
func EncodeSplit(router, proposal, collateral common.Address, amount *big.Int) (types.Call, error) {
	return encodePosition(splitSelector, "splitPosition", router, proposal, collateral, amount)
}

// EncodeMerge builds a mergePositions(proposal, collateral, amount) call.
// Merge requires the sender to hold amount of both conditional tokens.
func EncodeMerge(router, proposal, collateral common.Address, amount *big.Int) (types.Call, error) {
	return encodePosition(mergeSelector, "mergePositions", router, proposal, collateral, amount)
}

func encodePosition(selector []byte, name string, router, proposal, collateral common.Address, amount *big.Int) (types.Call, error) {
	if err := types.ValidateAddress(router); err != nil {
		return types.Call{}, fmt.Errorf("%s router: %w", name, err)
	}
	if err := types.ValidateAddress(proposal); err != nil {
		return types.Call{}, fmt.Errorf("%s proposal: %w", name, err)
	}
	if err := types.ValidateAddress(collateral); err != nil {
		return types.Call{}, fmt.Errorf("%s collateral: %w", name, err)
	}
	if err := types.ValidateAmount(amount); err != nil {
		return types.Call{}, fmt.Errorf("%s amount: %w", name, err)
	}

	data := make([]byte, 0, 4+3*32)
	data = append(data, selector...)
	data = append(data, common.LeftPadBytes(proposal.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(collateral.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

	return types.Call{Target: router, Value: big.NewInt(0), Data: data}, nil
}
