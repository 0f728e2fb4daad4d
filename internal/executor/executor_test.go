package executor

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/internal/config"
	"github.com/devlongs/futarchy-arb/internal/wallet"
	arbtypes "github.com/devlongs/futarchy-arb/pkg/types"
)

type fakeChain struct {
	nonce      uint64
	baseFee    *big.Int
	tip        *big.Int
	gasPrice   *big.Int
	sent       []*types.Transaction
	sendErr    error
	receipt    *types.Receipt
	receiptErr error
}

func (f *fakeChain) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) LatestHeader(ctx context.Context) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee, Time: 1_700_000_000, Number: big.NewInt(1)}, nil
}

func (f *fakeChain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.tip), nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return f.receipt, nil
}

func testBundle(t *testing.T) *bundle.Bundle {
	t.Helper()
	b, err := bundle.New().Append(arbtypes.Call{
		Target: common.HexToAddress("0x0000000000000000000000000000000000000005"),
		Value:  big.NewInt(0),
		Data:   []byte{0x01, 0x02},
	}, arbtypes.Operation{Kind: arbtypes.OpApproval, Name: "approve"})
	if err != nil {
		t.Fatalf("build bundle: %v", err)
	}
	return b
}

func testExecutor(t *testing.T, chain *fakeChain) (*Executor, *wallet.Wallet) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	w := wallet.New(key)

	exec, err := New(chain, w, big.NewInt(100),
		common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		config.FeeConfig{GasLimit: 2_000_000, BaseFeeMultiplier: 1.25, MinTipWei: "1000000000"},
		100*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	return exec, w
}

func TestBuildTxSelfSponsored(t *testing.T) {
	chain := &fakeChain{
		nonce:    7,
		baseFee:  big.NewInt(100_000_000_000),
		tip:      big.NewInt(2_000_000_000),
		gasPrice: big.NewInt(0),
	}
	exec, w := testExecutor(t, chain)

	tx, err := exec.BuildTx(context.Background(), testBundle(t))
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}

	if tx.Type() != types.SetCodeTxType {
		t.Fatalf("tx type = %d, want set-code", tx.Type())
	}
	if tx.Nonce() != 7 {
		t.Errorf("tx nonce = %d, want 7", tx.Nonce())
	}
	if tx.To() == nil || *tx.To() != w.Address() {
		t.Errorf("tx to = %v, want sender", tx.To())
	}

	auths := tx.SetCodeAuthorizations()
	if len(auths) != 1 {
		t.Fatalf("auth list length = %d, want 1", len(auths))
	}
	// Authorization validates after the protocol bumps the account nonce.
	if auths[0].Nonce != 8 {
		t.Errorf("auth nonce = %d, want tx nonce + 1", auths[0].Nonce)
	}

	signer, err := types.Sender(types.LatestSignerForChainID(big.NewInt(100)), tx)
	if err != nil {
		t.Fatalf("recover signer: %v", err)
	}
	if signer != w.Address() {
		t.Errorf("recovered signer = %s, want %s", signer.Hex(), w.Address().Hex())
	}
	authority, err := auths[0].Authority()
	if err != nil {
		t.Fatalf("recover authority: %v", err)
	}
	if authority != w.Address() {
		t.Errorf("authorization authority = %s, want %s", authority.Hex(), w.Address().Hex())
	}
}

func TestBuildTxFeeCaps(t *testing.T) {
	chain := &fakeChain{
		nonce:    0,
		baseFee:  big.NewInt(100_000_000_000), // 100 gwei
		tip:      big.NewInt(500_000_000),     // below the 1 gwei floor
		gasPrice: big.NewInt(0),
	}
	exec, _ := testExecutor(t, chain)

	tx, err := exec.BuildTx(context.Background(), testBundle(t))
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}

	wantTip := big.NewInt(1_000_000_000)
	if tx.GasTipCap().Cmp(wantTip) != 0 {
		t.Errorf("tip cap = %s, want floor %s", tx.GasTipCap(), wantTip)
	}
	// 100 gwei * 1.25 + 1 gwei tip
	wantFee := big.NewInt(126_000_000_000)
	if tx.GasFeeCap().Cmp(wantFee) != 0 {
		t.Errorf("fee cap = %s, want %s", tx.GasFeeCap(), wantFee)
	}
}

func TestBuildTxLegacyChain(t *testing.T) {
	chain := &fakeChain{
		nonce:    0,
		baseFee:  nil, // pre-1559 chain
		tip:      big.NewInt(0),
		gasPrice: big.NewInt(5_000_000_000),
	}
	exec, _ := testExecutor(t, chain)

	tx, err := exec.BuildTx(context.Background(), testBundle(t))
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	if tx.GasFeeCap().Cmp(chain.gasPrice) != 0 || tx.GasTipCap().Cmp(chain.gasPrice) != 0 {
		t.Errorf("caps = %s/%s, want flat %s", tx.GasTipCap(), tx.GasFeeCap(), chain.gasPrice)
	}
}

func TestExecuteBroadcastFailure(t *testing.T) {
	chain := &fakeChain{
		nonce:    0,
		baseFee:  big.NewInt(1_000_000_000),
		tip:      big.NewInt(1_000_000_000),
		gasPrice: big.NewInt(0),
		sendErr:  errors.New("nonce too low"),
	}
	exec, _ := testExecutor(t, chain)

	_, err := exec.Execute(context.Background(), testBundle(t))
	var broadcast *BroadcastError
	if !errors.As(err, &broadcast) {
		t.Fatalf("expected BroadcastError, got %v", err)
	}
}

func TestWaitMinedTimeout(t *testing.T) {
	chain := &fakeChain{receiptErr: errors.New("not found")}
	exec, _ := testExecutor(t, chain)

	_, err := exec.WaitMined(context.Background(), common.Hash{0x01})
	if !errors.Is(err, ErrReceiptTimeout) {
		t.Fatalf("expected receipt timeout, got %v", err)
	}
}

func TestWaitMinedReturnsReceipt(t *testing.T) {
	receipt := &types.Receipt{Status: 1, BlockNumber: big.NewInt(42)}
	chain := &fakeChain{receipt: receipt}
	exec, _ := testExecutor(t, chain)

	got, err := exec.WaitMined(context.Background(), common.Hash{0x01})
	if err != nil {
		t.Fatalf("wait mined: %v", err)
	}
	if got.BlockNumber.Uint64() != 42 {
		t.Errorf("block = %s, want 42", got.BlockNumber)
	}
}

func TestScaledBaseFee(t *testing.T) {
	got := ScaledBaseFee(big.NewInt(100), 1.25)
	if got.Cmp(big.NewInt(125)) != 0 {
		t.Errorf("scaled = %s, want 125", got)
	}
}
