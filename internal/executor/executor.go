// Package executor turns optimized bundles into signed type-4 transactions
// and shepherds them to a receipt. The transaction is self-sponsored: the
// sender delegates its own account to the batch executor for exactly one
// transaction via an EIP-7702 authorization.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/internal/config"
)

// ErrReceiptTimeout is returned when a broadcast transaction is not mined
// within the configured window. The transaction may still land later.
var ErrReceiptTimeout = errors.New("timed out waiting for receipt")

// BroadcastError wraps a node rejection at submission time. The nonce must be
// re-read before any retry.
type BroadcastError struct {
	TxHash common.Hash
	Err    error
}

// Error implements the error interface.
func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast of %s failed: %v", e.TxHash.Hex(), e.Err)
}

// Unwrap returns the underlying node error.
func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// Chain is the write surface of the chain client the executor needs.
type Chain interface {
	NonceAt(ctx context.Context, account common.Address) (uint64, error)
	LatestHeader(ctx context.Context) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer produces the two signatures a self-sponsored bundle needs.
type Signer interface {
	Address() common.Address
	SignAuthorization(chainID *big.Int, implementation common.Address, nonce uint64) (types.SetCodeAuthorization, error)
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Executor builds, signs and broadcasts bundle transactions.
type Executor struct {
	chain          Chain
	signer         Signer
	chainID        *big.Int
	implementation common.Address
	fees           config.FeeConfig
	minTip         *big.Int

	receiptTimeout  time.Duration
	receiptInterval time.Duration
}

// New creates an executor for one chain and signer.
func New(chain Chain, signer Signer, chainID *big.Int, implementation common.Address, fees config.FeeConfig, receiptTimeout, receiptInterval time.Duration) (*Executor, error) {
	minTip, ok := new(big.Int).SetString(fees.MinTipWei, 10)
	if !ok {
		return nil, fmt.Errorf("invalid min tip %q", fees.MinTipWei)
	}
	if fees.BaseFeeMultiplier < 1 {
		return nil, fmt.Errorf("base fee multiplier %f below 1", fees.BaseFeeMultiplier)
	}
	return &Executor{
		chain:           chain,
		signer:          signer,
		chainID:         chainID,
		implementation:  implementation,
		fees:            fees,
		minTip:          minTip,
		receiptTimeout:  receiptTimeout,
		receiptInterval: receiptInterval,
	}, nil
}

// Execute signs and broadcasts the bundle as one atomic transaction. The
// transaction sends the bundle calldata to the sender's own address, which
// the attached authorization points at the batch executor for the duration
// of the transaction.
func (e *Executor) Execute(ctx context.Context, b *bundle.Bundle) (*types.Transaction, error) {
	tx, err := e.BuildTx(ctx, b)
	if err != nil {
		return nil, err
	}

	if err := e.chain.SendTransaction(ctx, tx); err != nil {
		return nil, &BroadcastError{TxHash: tx.Hash(), Err: err}
	}

	log.Info().
		Str("txHash", tx.Hash().Hex()).
		Uint64("nonce", tx.Nonce()).
		Int("calls", b.Len()).
		Msg("Bundle transaction broadcast")

	return tx, nil
}

// BuildTx assembles and signs the type-4 transaction without broadcasting it.
func (e *Executor) BuildTx(ctx context.Context, b *bundle.Bundle) (*types.Transaction, error) {
	data, err := b.CallData()
	if err != nil {
		return nil, err
	}

	sender := e.signer.Address()
	nonce, err := e.chain.NonceAt(ctx, sender)
	if err != nil {
		return nil, err
	}

	// Self-sponsored: the protocol increments the account nonce for the
	// transaction itself before validating the authorization, so the
	// authorization signs nonce+1.
	auth, err := e.signer.SignAuthorization(e.chainID, e.implementation, nonce+1)
	if err != nil {
		return nil, err
	}

	tipCap, feeCap, err := e.feeCaps(ctx)
	if err != nil {
		return nil, err
	}

	chainID, overflow := uint256.FromBig(e.chainID)
	if overflow {
		return nil, fmt.Errorf("chain id %s overflows uint256", e.chainID.String())
	}
	tip, overflow := uint256.FromBig(tipCap)
	if overflow {
		return nil, fmt.Errorf("tip cap %s overflows uint256", tipCap.String())
	}
	fee, overflow := uint256.FromBig(feeCap)
	if overflow {
		return nil, fmt.Errorf("fee cap %s overflows uint256", feeCap.String())
	}

	tx := types.NewTx(&types.SetCodeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: fee,
		Gas:       e.fees.GasLimit,
		To:        sender,
		Value:     uint256.NewInt(0),
		Data:      data,
		AuthList:  []types.SetCodeAuthorization{auth},
	})

	return e.signer.SignTx(tx, e.chainID)
}

// feeCaps derives the tip and fee caps from the latest header. On chains
// without a base fee both caps fall back to the node's legacy price
// suggestion, which a type-4 transaction still accepts as flat caps.
func (e *Executor) feeCaps(ctx context.Context) (tipCap, feeCap *big.Int, err error) {
	header, err := e.chain.LatestHeader(ctx)
	if err != nil {
		return nil, nil, err
	}

	if header.BaseFee == nil {
		price, err := e.chain.SuggestGasPrice(ctx)
		if err != nil {
			return nil, nil, err
		}
		return price, price, nil
	}

	tipCap, err = e.chain.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, err
	}
	if tipCap.Cmp(e.minTip) < 0 {
		tipCap = new(big.Int).Set(e.minTip)
	}

	feeCap = ScaledBaseFee(header.BaseFee, e.fees.BaseFeeMultiplier)
	feeCap.Add(feeCap, tipCap)
	return tipCap, feeCap, nil
}

// WaitMined polls for the receipt until the configured timeout.
func (e *Executor) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(e.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.chain.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash.Hex())
		case <-ticker.C:
		}
	}
}

// ScaledBaseFee multiplies a base fee by a headroom factor, rounding down.
func ScaledBaseFee(baseFee *big.Int, multiplier float64) *big.Int {
	scaled := new(big.Float).SetInt(baseFee)
	scaled.Mul(scaled, big.NewFloat(multiplier))
	out, _ := scaled.Int(nil)
	return out
}
