// Codecs for the assessor guest boundary. The input crossing into the
// guest is JSON: it is an implementation detail of this prover and never
// leaves the process. The journal is a fixed binary layout: it is what
// the receipt commits to and what a settlement verifier re-derives.
//
// Journal layout: prover address (20) || domain separator (32) ||
// root (32) || digest count (4, big-endian) || request digests (32 each).
package assessor

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTruncatedJournal is returned when a journal buffer is shorter than
// its declared layout.
var ErrTruncatedJournal = errors.New("assessor: truncated journal")

const journalHeaderSize = 20 + 32 + 32 + 4

// Encode serializes the journal into its committed binary layout.
func (j Journal) Encode() []byte {
	out := make([]byte, journalHeaderSize+32*len(j.RequestDigests))
	copy(out[0:20], j.ProverAddress.Bytes())
	copy(out[20:52], j.DomainSeparator.Bytes())
	copy(out[52:84], j.Root.Bytes())
	binary.BigEndian.PutUint32(out[84:88], uint32(len(j.RequestDigests)))
	for i, d := range j.RequestDigests {
		copy(out[journalHeaderSize+32*i:], d.Bytes())
	}
	return out
}

// DecodeJournal parses a committed assessor journal.
func DecodeJournal(b []byte) (Journal, error) {
	if len(b) < journalHeaderSize {
		return Journal{}, ErrTruncatedJournal
	}
	count := binary.BigEndian.Uint32(b[84:88])
	if int64(len(b)-journalHeaderSize) != int64(count)*32 {
		return Journal{}, ErrTruncatedJournal
	}
	j := Journal{
		ProverAddress:   common.BytesToAddress(b[0:20]),
		DomainSeparator: common.BytesToHash(b[20:52]),
		Root:            common.BytesToHash(b[52:84]),
		RequestDigests:  make([]common.Hash, count),
	}
	for i := range j.RequestDigests {
		j.RequestDigests[i] = common.BytesToHash(b[journalHeaderSize+32*i : journalHeaderSize+32*(i+1)])
	}
	return j, nil
}

// EncodeInput serializes the guest input.
func EncodeInput(in Input) ([]byte, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("assessor: encode input: %w", err)
	}
	return b, nil
}

// DecodeInput parses a guest input.
func DecodeInput(b []byte) (Input, error) {
	var in Input
	if err := json.Unmarshal(b, &in); err != nil {
		return Input{}, fmt.Errorf("assessor: decode input: %w", err)
	}
	return in, nil
}
