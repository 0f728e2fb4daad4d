package bundle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Decode extracts a typed outcome from the raw bytes one call returned.
// Failures surface inside the outcome rather than as errors, so one
// undecodable result does not abort processing of the rest of the bundle.
func Decode(kind types.OpKind, raw []byte) types.Outcome {
	switch kind {
	case types.OpApproval, types.OpLiquidationApproval:
		// Most tokens return bool, some return nothing; no data means
		// the call did not revert, which is all approval success means.
		if len(raw) == 0 {
			return types.Outcome{Success: true}
		}
		if len(raw) != 32 {
			return types.Outcome{Err: fmt.Sprintf("approval result length %d, want 0 or 32", len(raw))}
		}
		return types.Outcome{Success: raw[31] == 1}

	case types.OpSplit, types.OpMerge, types.OpLiquidationMerge:
		// The futarchy router returns nothing for either operation.
		return types.Outcome{Executed: true}

	case types.OpSwapExactIn, types.OpLiquidationSwap:
		amount, err := decodeUint256(raw)
		if err != nil {
			return types.Outcome{Err: err.Error()}
		}
		return types.Outcome{AmountOut: amount}

	case types.OpSwapExactOut:
		amount, err := decodeUint256(raw)
		if err != nil {
			return types.Outcome{Err: err.Error()}
		}
		return types.Outcome{AmountIn: amount}

	case types.OpPoolSwap:
		// Balancer's swap returns amountCalculated: the output for a
		// GIVEN_IN swap, the input for GIVEN_OUT. The flows only use
		// GIVEN_IN pool swaps, so this is an output amount.
		amount, err := decodeUint256(raw)
		if err != nil {
			return types.Outcome{Err: err.Error()}
		}
		return types.Outcome{AmountOut: amount}

	default:
		return types.Outcome{Err: fmt.Sprintf("unknown operation kind %d", int(kind))}
	}
}

func decodeUint256(raw []byte) (*big.Int, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("result length %d, want 32", len(raw))
	}
	return new(big.Int).SetBytes(raw), nil
}

// Revert decoding. The executor wraps per-call failures in CallFailed(uint256)
// carrying the failing index; anything else is the standard Error(string) or
// Panic(uint256) encoding, or an unknown custom selector.
var (
	errorStringSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	panicSelector       = crypto.Keccak256([]byte("Panic(uint256)"))[:4]
	callFailedSelector  = crypto.Keccak256([]byte("CallFailed(uint256)"))[:4]
)

// DecodeRevert turns raw revert data into a call index (-1 when the data
// does not identify one) and a human-readable reason.
func DecodeRevert(data []byte) (int, string) {
	if len(data) < 4 {
		return -1, "execution reverted (no data)"
	}
	selector := data[:4]
	payload := data[4:]

	switch {
	case bytes.Equal(selector, callFailedSelector):
		if len(payload) >= 32 {
			idx := new(big.Int).SetBytes(payload[:32])
			if idx.IsInt64() {
				return int(idx.Int64()), "call failed"
			}
		}
		return -1, "call failed"

	case bytes.Equal(selector, errorStringSelector):
		if reason, ok := decodeABIString(payload); ok {
			return -1, reason
		}
		return -1, "execution reverted (malformed Error(string))"

	case bytes.Equal(selector, panicSelector):
		if len(payload) >= 32 {
			code := new(big.Int).SetBytes(payload[:32])
			return -1, fmt.Sprintf("panic code 0x%x", code)
		}
		return -1, "panic (malformed data)"

	default:
		return -1, fmt.Sprintf("custom error 0x%s", hex.EncodeToString(selector))
	}
}

// decodeABIString unpacks a single ABI-encoded string argument.
func decodeABIString(payload []byte) (string, bool) {
	if len(payload) < 64 {
		return "", false
	}
	offset := new(big.Int).SetBytes(payload[:32])
	if !offset.IsInt64() || offset.Int64() != 32 {
		return "", false
	}
	length := new(big.Int).SetBytes(payload[32:64])
	if !length.IsInt64() {
		return "", false
	}
	n := length.Int64()
	if int64(len(payload)) < 64+n {
		return "", false
	}
	return string(payload[64 : 64+n]), true
}
