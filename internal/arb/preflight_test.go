package arb

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"

	"github.com/devlongs/futarchy-arb/internal/bundle"
)

// fakeCaller answers every balance read with a fixed value.
type fakeCaller struct {
	balance *big.Int
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	out := make([]byte, 32)
	f.balance.FillBytes(out)
	return out, nil
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name    string
		balance *big.Int
		amount  *big.Int
		wantErr error
	}{
		{"funded", big.NewInt(1000), big.NewInt(1000), nil},
		{"surplus", big.NewInt(2000), big.NewInt(1000), nil},
		{"short", big.NewInt(999), big.NewInt(1000), bundle.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Preflight(context.Background(), &fakeCaller{balance: tt.balance}, testMarket(), addr(0xaa), tt.amount)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("preflight: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPreflightRejectsBadAmount(t *testing.T) {
	err := Preflight(context.Background(), &fakeCaller{balance: big.NewInt(1)}, testMarket(), addr(0xaa), nil)
	if err == nil {
		t.Fatal("nil amount accepted")
	}
}
