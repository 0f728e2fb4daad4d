package bundle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

// MaxCalls is the batch executor's static call-count ceiling. The base buy
// flow is 11 calls and NO-side liquidation appends 5 more.
const MaxCalls = 16

// Minimal ABI of the FutarchyBatchExecutor entry point. The executor runs
// every call in order and returns the raw result of each; any failure
// reverts the whole batch.
const executorABIJSON = `[
	{"name":"executeWithResults","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"}]}],
	 "outputs":[{"name":"results","type":"bytes[]"}]}
]`

var executorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(executorABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid executor ABI: %v", err))
	}
	executorABI = parsed
}

// Bundle is an ordered, append-only sequence of calls with an
// index-to-semantics map. Extending a bundle produces a new value so that a
// bundle handed to the simulator can never pick up stale instruction offsets.
type Bundle struct {
	calls []types.Call
	ops   []types.Operation
}

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{}
}

// Append returns a new bundle with the call added. The receiver is left
// untouched. Exceeding MaxCalls is a construction-time error, never a
// runtime one.
func (b *Bundle) Append(call types.Call, op types.Operation) (*Bundle, error) {
	if len(b.calls)+1 > MaxCalls {
		return nil, fmt.Errorf("%w: %d calls, ceiling %d", ErrBundleSizeExceeded, len(b.calls)+1, MaxCalls)
	}
	next := &Bundle{
		calls: make([]types.Call, len(b.calls), len(b.calls)+1),
		ops:   make([]types.Operation, len(b.ops), len(b.ops)+1),
	}
	copy(next.calls, b.calls)
	copy(next.ops, b.ops)
	next.calls = append(next.calls, call)
	next.ops = append(next.ops, op)
	return next, nil
}

// AppendAll returns a new bundle with every call added, in order.
func (b *Bundle) AppendAll(calls []types.Call, ops []types.Operation) (*Bundle, error) {
	if len(calls) != len(ops) {
		return nil, fmt.Errorf("call/operation length mismatch: %d vs %d", len(calls), len(ops))
	}
	next := b
	var err error
	for i := range calls {
		next, err = next.Append(calls[i], ops[i])
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Len returns the number of calls in the bundle.
func (b *Bundle) Len() int {
	return len(b.calls)
}

// Operation returns the semantic tag at index i.
func (b *Bundle) Operation(i int) (types.Operation, bool) {
	if i < 0 || i >= len(b.ops) {
		return types.Operation{}, false
	}
	return b.ops[i], true
}

// Operations returns a copy of the index-to-semantics map.
func (b *Bundle) Operations() []types.Operation {
	out := make([]types.Operation, len(b.ops))
	copy(out, b.ops)
	return out
}

// executorCall mirrors the executor ABI tuple layout for go-ethereum's
// argument packing.
type executorCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// CallData encodes the whole bundle into one aggregator call:
// executeWithResults((address,uint256,bytes)[]). This is the dynamic-size
// wire format; the engine never mixes it with the fixed-size variant.
func (b *Bundle) CallData() ([]byte, error) {
	packed := make([]executorCall, len(b.calls))
	for i, c := range b.calls {
		value := c.Value
		if value == nil {
			value = big.NewInt(0)
		}
		packed[i] = executorCall{Target: c.Target, Value: value, Data: c.Data}
	}
	data, err := executorABI.Pack("executeWithResults", packed)
	if err != nil {
		return nil, fmt.Errorf("failed to pack bundle calldata: %w", err)
	}
	return data, nil
}

// unpackResults decodes the executor's bytes[] return into per-call raw
// result bytes.
func unpackResults(raw []byte) ([][]byte, error) {
	values, err := executorABI.Unpack("executeWithResults", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack executor results: %w", err)
	}
	results, ok := values[0].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected executor result type %T", values[0])
	}
	return results, nil
}
