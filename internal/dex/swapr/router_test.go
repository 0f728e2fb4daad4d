package swapr

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

var (
	router    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenIn   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenOut  = common.HexToAddress("0x0000000000000000000000000000000000000003")
	recipient = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

func TestEncodeExactIn(t *testing.T) {
	call, err := EncodeExactIn(router, ExactInParams{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Recipient:    recipient,
		Deadline:     big.NewInt(1_800_000_000),
		AmountIn:     big.NewInt(1000),
		AmountOutMin: big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if call.Target != router {
		t.Errorf("target = %s, want router", call.Target.Hex())
	}
	if !bytes.Equal(call.Data[:4], routerABI.Methods["exactInputSingle"].ID) {
		t.Errorf("selector = %x", call.Data[:4])
	}
	// selector + 7 static tuple fields
	if len(call.Data) != 4+7*32 {
		t.Errorf("data length = %d, want %d", len(call.Data), 4+7*32)
	}
}

func TestEncodeExactOut(t *testing.T) {
	call, err := EncodeExactOut(router, ExactOutParams{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		Recipient:   recipient,
		Deadline:    big.NewInt(1_800_000_000),
		AmountOut:   big.NewInt(950),
		AmountInMax: big.NewInt(1000),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(call.Data[:4], routerABI.Methods["exactOutputSingle"].ID) {
		t.Errorf("selector = %x", call.Data[:4])
	}
}

func TestEncodeValidation(t *testing.T) {
	valid := ExactInParams{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Recipient:    recipient,
		Deadline:     big.NewInt(1),
		AmountIn:     big.NewInt(1),
		AmountOutMin: big.NewInt(0),
	}

	tests := []struct {
		name    string
		mutate  func(*ExactInParams)
		wantErr error
	}{
		{"zero_token_in", func(p *ExactInParams) { p.TokenIn = common.Address{} }, types.ErrZeroAddress},
		{"zero_recipient", func(p *ExactInParams) { p.Recipient = common.Address{} }, types.ErrZeroAddress},
		{"nil_amount", func(p *ExactInParams) { p.AmountIn = nil }, types.ErrInvalidAmount},
		{"nil_bound", func(p *ExactInParams) { p.AmountOutMin = nil }, types.ErrInvalidAmount},
		{"nil_deadline", func(p *ExactInParams) { p.Deadline = nil }, types.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if _, err := EncodeExactIn(router, p); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := EncodeExactIn(common.Address{}, valid); !errors.Is(err, types.ErrZeroAddress) {
		t.Errorf("zero router: %v", err)
	}
}
