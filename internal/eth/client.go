package eth

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/futarchy-arb/internal/config"
)

// Client wraps the Ethereum client with retry logic and convenience methods
type Client struct {
	client  *ethclient.Client
	geth    *gethclient.Client
	cfg     config.RPCConfig
	chainID *big.Int
}

// NewClient creates a new Ethereum client
func NewClient(cfg config.RPCConfig) (*Client, error) {
	rpcClient, err := rpc.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}
	client := ethclient.NewClient(rpcClient)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	log.Info().
		Str("url", cfg.URL).
		Str("chainID", chainID.String()).
		Msg("Connected to Ethereum node")

	return &Client{
		client:  client,
		geth:    gethclient.New(rpcClient),
		cfg:     cfg,
		chainID: chainID,
	}, nil
}

// Close closes the client connection
func (c *Client) Close() {
	c.client.Close()
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// BlockNumber returns the latest block number with retry
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var blockNum uint64
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		blockNum, err = c.client.BlockNumber(ctx)
		if err == nil {
			return blockNum, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get block number, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return 0, fmt.Errorf("failed to get block number after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// LatestHeader returns the latest block header with retry. The header carries
// the base fee and the timestamp swap deadlines are anchored to.
func (c *Client) LatestHeader(ctx context.Context) (*types.Header, error) {
	var header *types.Header
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		header, err = c.client.HeaderByNumber(ctx, nil)
		if err == nil {
			return header, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get header, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get header after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// NonceAt returns the confirmed account nonce with retry
func (c *Client) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		nonce, err = c.client.NonceAt(ctx, account, nil)
		if err == nil {
			return nonce, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get nonce, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return 0, fmt.Errorf("failed to get nonce after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// CodeAt returns the deployed bytecode at an account with retry
func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	var code []byte
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		code, err = c.client.CodeAt(ctx, account, nil)
		if err == nil {
			return code, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get code, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get code after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// CallContract executes a contract call with retry
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result []byte
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		result, err = c.client.CallContract(ctx, msg, blockNumber)
		if err == nil {
			return result, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to call contract, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to call contract after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// CallWithOverride executes an eth_call with ephemeral account state overrides
// against the latest block. No retry: a revert is a planning signal, not a
// transport failure, and the revert payload must reach the caller intact.
func (c *Client) CallWithOverride(ctx context.Context, msg ethereum.CallMsg, overrides map[common.Address]gethclient.OverrideAccount) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.geth.CallContract(ctx, msg, nil, &overrides)
}

// SuggestGasTipCap returns the node's priority fee suggestion with retry
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	var tip *big.Int
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		tip, err = c.client.SuggestGasTipCap(ctx)
		if err == nil {
			return tip, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get gas tip, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get gas tip after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// SuggestGasPrice returns the node's legacy gas price suggestion with retry
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		price, err = c.client.SuggestGasPrice(ctx)
		if err == nil {
			return price, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get gas price, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get gas price after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// SendTransaction broadcasts a signed transaction. No retry: resubmitting
// after an ambiguous failure risks a double spend on a fresh nonce.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.client.SendTransaction(ctx, tx)
}

// TransactionReceipt returns the receipt of a transaction. Not-found is the
// normal state while the transaction is pending; the receipt poller owns the
// waiting, so there is no retry here.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.client.TransactionReceipt(ctx, txHash)
}
