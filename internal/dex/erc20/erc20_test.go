package erc20

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

// fakeTokenCaller records the last view call and replays a canned result.
type fakeTokenCaller struct {
	lastMsg ethereum.CallMsg
	out     []byte
}

func (f *fakeTokenCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.lastMsg = msg
	return f.out, nil
}

func TestEncodeApprove(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender := common.HexToAddress("0x0000000000000000000000000000000000000002")

	call, err := EncodeApprove(token, spender, big.NewInt(500))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if call.Target != token {
		t.Errorf("target = %s, want token", call.Target.Hex())
	}
	if len(call.Data) != 4+32+32 {
		t.Fatalf("data length = %d, want 68", len(call.Data))
	}
	// approve(address,uint256)
	if !bytes.Equal(call.Data[:4], []byte{0x09, 0x5e, 0xa7, 0xb3}) {
		t.Errorf("selector = %x", call.Data[:4])
	}
	if got := new(big.Int).SetBytes(call.Data[36:68]); got.Cmp(big.NewInt(500)) != 0 {
		t.Errorf("amount word = %s, want 500", got)
	}
}

func TestEncodeApproveValidation(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender := common.HexToAddress("0x0000000000000000000000000000000000000002")

	tests := []struct {
		name    string
		token   common.Address
		spender common.Address
		amount  *big.Int
		wantErr error
	}{
		{"zero_token", common.Address{}, spender, big.NewInt(1), types.ErrZeroAddress},
		{"zero_spender", token, common.Address{}, big.NewInt(1), types.ErrZeroAddress},
		{"nil_amount", token, spender, nil, types.ErrInvalidAmount},
		{"negative_amount", token, spender, big.NewInt(-1), types.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeApprove(tt.token, tt.spender, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeApproveMaxUint(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender := common.HexToAddress("0x0000000000000000000000000000000000000002")

	call, err := EncodeApprove(token, spender, types.MaxUint256())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, b := range call.Data[36:68] {
		if b != 0xff {
			t.Fatal("max approval word is not all ones")
		}
	}
}

func TestAllowance(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	owner := common.HexToAddress("0x0000000000000000000000000000000000000002")
	spender := common.HexToAddress("0x0000000000000000000000000000000000000003")

	client := &fakeTokenCaller{out: common.LeftPadBytes(big.NewInt(777).Bytes(), 32)}
	got, err := Allowance(context.Background(), client, token, owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if got.Cmp(big.NewInt(777)) != 0 {
		t.Errorf("allowance = %s, want 777", got)
	}

	if client.lastMsg.To == nil || *client.lastMsg.To != token {
		t.Errorf("call target = %v, want token", client.lastMsg.To)
	}
	// allowance(address,address): selector + owner word + spender word
	if !bytes.Equal(client.lastMsg.Data[:4], allowanceSelector) {
		t.Errorf("selector = %x", client.lastMsg.Data[:4])
	}
	if got := common.BytesToAddress(client.lastMsg.Data[16:36]); got != owner {
		t.Errorf("owner word = %s", got.Hex())
	}
	if got := common.BytesToAddress(client.lastMsg.Data[48:68]); got != spender {
		t.Errorf("spender word = %s", got.Hex())
	}
}

func TestAllowanceShortResult(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	owner := common.HexToAddress("0x0000000000000000000000000000000000000002")

	client := &fakeTokenCaller{out: []byte{0x01}}
	if _, err := Allowance(context.Background(), client, token, owner, owner); err == nil {
		t.Fatal("short allowance result accepted")
	}
}
