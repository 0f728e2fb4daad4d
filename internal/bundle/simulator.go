package bundle

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

// simGasLimit is the gas ceiling for dry runs. Generous on purpose: a
// simulation that runs out of gas looks like a revert and triggers a
// pointless re-plan.
const simGasLimit = 10_000_000

// ChainState is the read-only slice of the chain client the simulator needs.
type ChainState interface {
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	CallWithOverride(ctx context.Context, msg ethereum.CallMsg, overrides map[common.Address]gethclient.OverrideAccount) ([]byte, error)
}

// Simulator dry-runs bundles against current chain state. It temporarily
// associates the batch executor's code with the sender's account for the
// duration of one read-only call, mirroring what the EIP-7702 authorization
// does in the real transaction, and never mutates persistent state.
type Simulator struct {
	chain          ChainState
	implementation common.Address
	code           []byte // cached executor code
}

// NewSimulator creates a simulator that delegates to the executor deployed
// at implementation.
func NewSimulator(chain ChainState, implementation common.Address) *Simulator {
	return &Simulator{
		chain:          chain,
		implementation: implementation,
	}
}

// Simulate executes the bundle in order against a read-only chain view and
// returns per-call raw results. If any call reverts, the whole run surfaces
// a single RevertError; there are no partial results.
func (s *Simulator) Simulate(ctx context.Context, b *Bundle, sender common.Address) (*SimulationResult, error) {
	data, err := b.CallData()
	if err != nil {
		return nil, err
	}

	code, err := s.executorCode(ctx)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		From: sender,
		To:   &sender, // self-call with delegated code
		Gas:  simGasLimit,
		Data: data,
	}
	overrides := map[common.Address]gethclient.OverrideAccount{
		sender: {Code: code},
	}

	raw, err := s.chain.CallWithOverride(ctx, msg, overrides)
	if err != nil {
		if revertData, ok := extractRevertData(err); ok {
			index, reason := DecodeRevert(revertData)
			return nil, &RevertError{Index: index, Reason: reason}
		}
		return nil, fmt.Errorf("simulation call failed: %w", err)
	}

	results, err := unpackResults(raw)
	if err != nil {
		return nil, err
	}
	if len(results) != b.Len() {
		return nil, fmt.Errorf("executor returned %d results for %d calls", len(results), b.Len())
	}

	log.Debug().
		Int("calls", b.Len()).
		Str("sender", sender.Hex()).
		Msg("Bundle simulated")

	return &SimulationResult{ops: b.Operations(), raw: results}, nil
}

// executorCode fetches and caches the batch executor's deployed bytecode.
func (s *Simulator) executorCode(ctx context.Context) ([]byte, error) {
	if s.code != nil {
		return s.code, nil
	}
	code, err := s.chain.CodeAt(ctx, s.implementation)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch executor code: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("no code at executor address %s", s.implementation.Hex())
	}
	s.code = code
	return code, nil
}

// SimulationResult maps bundle indices to raw returned bytes, decoded lazily
// by operation name.
type SimulationResult struct {
	ops []types.Operation
	raw [][]byte
}

// NewSimulationResult wraps already-fetched raw results. Used by offline
// replay and by fakes in tests; the live path goes through Simulate.
func NewSimulationResult(ops []types.Operation, raw [][]byte) *SimulationResult {
	return &SimulationResult{ops: ops, raw: raw}
}

// Raw returns the raw bytes for a call index.
func (r *SimulationResult) Raw(i int) ([]byte, bool) {
	if i < 0 || i >= len(r.raw) {
		return nil, false
	}
	return r.raw[i], true
}

// Outcome decodes and returns the typed result for the named operation.
func (r *SimulationResult) Outcome(name string) (types.Outcome, bool) {
	for i, op := range r.ops {
		if op.Name == name {
			return Decode(op.Kind, r.raw[i]), true
		}
	}
	return types.Outcome{}, false
}

// Outcomes decodes every call result, keyed by operation name.
func (r *SimulationResult) Outcomes() map[string]types.Outcome {
	out := make(map[string]types.Outcome, len(r.ops))
	for i, op := range r.ops {
		out[op.Name] = Decode(op.Kind, r.raw[i])
	}
	return out
}

// extractRevertData pulls ABI-encoded revert data out of an RPC error.
// go-ethereum surfaces it through the rpc.DataError interface as a hex string.
func extractRevertData(err error) ([]byte, bool) {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return nil, false
	}
	hexStr, ok := de.ErrorData().(string)
	if !ok {
		return nil, false
	}
	data, decErr := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if decErr != nil {
		return nil, false
	}
	return data, true
}
