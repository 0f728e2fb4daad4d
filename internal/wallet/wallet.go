// Package wallet loads the signing key and produces every signature the
// engine needs. The private key never leaves this package.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
)

// ErrNoPrivateKey is returned when the environment carries no key.
var ErrNoPrivateKey = errors.New("PRIVATE_KEY not set")

// Wallet holds the engine's signing key.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// FromEnv loads PRIVATE_KEY from the environment. A .env file in the working
// directory is read first if present, matching how the key is provisioned in
// development.
func FromEnv() (*Wallet, error) {
	_ = godotenv.Load()

	raw := strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x")
	if raw == "" {
		return nil, ErrNoPrivateKey
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// New wraps an already-parsed key.
func New(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the signer address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignAuthorization signs a set-code delegation to implementation. nonce must
// be the authorization nonce, which for a self-sponsored transaction is the
// transaction nonce plus one.
func (w *Wallet) SignAuthorization(chainID *big.Int, implementation common.Address, nonce uint64) (types.SetCodeAuthorization, error) {
	id, overflow := uint256.FromBig(chainID)
	if overflow {
		return types.SetCodeAuthorization{}, fmt.Errorf("chain id %s overflows uint256", chainID.String())
	}
	auth := types.SetCodeAuthorization{
		ChainID: *id,
		Address: implementation,
		Nonce:   nonce,
	}
	signed, err := types.SignSetCode(w.key, auth)
	if err != nil {
		return types.SetCodeAuthorization{}, fmt.Errorf("failed to sign authorization: %w", err)
	}
	return signed, nil
}

// SignTx signs a transaction for chainID.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}
