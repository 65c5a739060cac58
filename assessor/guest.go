package assessor

import "github.com/zkmarket/zkmarket/zkvm"

var _ zkvm.GuestFunc = GuestBody

// GuestBody is the assessor guest: it decodes the batch, assesses it and
// commits the resulting journal. It satisfies zkvm.GuestFunc so the dev
// executor can run it directly.
func GuestBody(input []byte) ([]byte, error) {
	in, err := DecodeInput(input)
	if err != nil {
		return nil, err
	}
	journal, err := Assess(in)
	if err != nil {
		return nil, err
	}
	return journal.Encode(), nil
}
