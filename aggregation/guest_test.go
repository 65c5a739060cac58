package aggregation

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGuestInputRoundTrip(t *testing.T) {
	inputs := []GuestInput{
		SingletonInput(common.HexToHash("0x01"), common.HexToHash("0x02")),
		JoinInput(common.HexToHash("0x01"), common.HexToHash("0x03"), common.HexToHash("0x04")),
	}
	for _, in := range inputs {
		decoded, err := DecodeGuestInput(in.Encode())
		if err != nil {
			t.Fatalf("DecodeGuestInput: %v", err)
		}
		if decoded != in {
			t.Errorf("round trip: got %+v, want %+v", decoded, in)
		}
	}
}

func TestGuestInputDecodeRejects(t *testing.T) {
	valid := SingletonInput(common.HexToHash("0x01"), common.HexToHash("0x02")).Encode()

	if _, err := DecodeGuestInput(valid[:len(valid)-1]); !errors.Is(err, ErrTruncatedGuest) {
		t.Errorf("truncated: got %v", err)
	}

	unknown := append([]byte(nil), valid...)
	unknown[0] = 9
	if _, err := DecodeGuestInput(unknown); !errors.Is(err, ErrInvalidGuestKind) {
		t.Errorf("unknown kind: got %v", err)
	}
}

func TestGuestOutputRoundTrip(t *testing.T) {
	out := GuestOutput{SetBuilderID: common.HexToHash("0x0a"), Root: common.HexToHash("0x0b")}
	decoded, err := DecodeGuestOutput(out.Encode())
	if err != nil {
		t.Fatalf("DecodeGuestOutput: %v", err)
	}
	if decoded != out {
		t.Errorf("round trip: got %+v, want %+v", decoded, out)
	}

	if _, err := DecodeGuestOutput([]byte{1, 2, 3}); err == nil {
		t.Error("expected rejection of a short journal")
	}
}

func TestGuestBodySingleton(t *testing.T) {
	self := common.HexToHash("0x01")
	claim := common.HexToHash("0x02")
	journal, err := GuestBody(SingletonInput(self, claim).Encode())
	if err != nil {
		t.Fatalf("GuestBody: %v", err)
	}
	out, err := DecodeGuestOutput(journal)
	if err != nil {
		t.Fatalf("DecodeGuestOutput: %v", err)
	}
	if out.SetBuilderID != self {
		t.Error("output must echo the set builder ID")
	}
	if out.Root != claim {
		t.Error("a singleton set's root must equal the leaf claim digest")
	}
}

func TestGuestBodyJoin(t *testing.T) {
	self := common.HexToHash("0x01")
	left := common.HexToHash("0x02")
	right := common.HexToHash("0x03")
	journal, err := GuestBody(JoinInput(self, left, right).Encode())
	if err != nil {
		t.Fatalf("GuestBody: %v", err)
	}
	out, err := DecodeGuestOutput(journal)
	if err != nil {
		t.Fatalf("DecodeGuestOutput: %v", err)
	}
	if out.Root != CombineNodes(left, right) {
		t.Error("join root must be the combination of both child roots")
	}
}

func TestGuestBodyRejectsGarbage(t *testing.T) {
	if _, err := GuestBody(bytes.Repeat([]byte{0xff}, 97)); err == nil {
		t.Error("expected a decode error for an invalid kind")
	}
}
