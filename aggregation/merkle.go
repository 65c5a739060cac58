// Package aggregation combines independent receipts into a single
// Merkle-committed root receipt, the set builder of the market. Each
// aggregated receipt's claim digest becomes a tree leaf; the root receipt
// proves the whole set at once, and per-leaf inclusion proofs let a
// verifier check membership in O(log n) hashes without re-verifying the
// aggregation itself.
//
// Tree shape: leaves are paired left to right. A tree over n leaves splits
// at the largest power of two strictly below n; the left subtree takes
// that many leaves, the right subtree the remainder. No padding digest is
// ever introduced -- a lone leaf is its own subtree root. The shape is a
// pure function of n, so a verifier needs only (index, count) beside the
// sibling path. Swapping two leaves always changes the root: combination
// is order-sensitive.
package aggregation

import (
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Merkle errors.
var (
	ErrNoLeaves     = errors.New("aggregation: no leaves")
	ErrLeafIndex    = errors.New("aggregation: leaf index out of range")
	ErrPathLength   = errors.New("aggregation: sibling path length does not match tree shape")
	ErrRootMismatch = errors.New("aggregation: recomputed root does not match commitment")
)

// nodeTag domain-separates internal tree nodes from leaf claim digests, so
// an internal node can never be presented as a leaf or vice versa.
var nodeTag = sha256.Sum256([]byte("zkmarket.SetNode"))

// CombineNodes hashes two child set roots into their parent:
// SHA256(tag || left || right). The combination is order-sensitive.
func CombineNodes(left, right common.Hash) common.Hash {
	h := sha256.New()
	h.Write(nodeTag[:])
	h.Write(left.Bytes())
	h.Write(right.Bytes())
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// splitPoint returns the size of the left subtree for n > 1 leaves: the
// largest power of two strictly less than n.
func splitPoint(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}

// MerkleRoot computes the set root over the given leaf digests.
func MerkleRoot(leaves []common.Hash) (common.Hash, error) {
	if len(leaves) == 0 {
		return common.Hash{}, ErrNoLeaves
	}
	return merkleRoot(leaves), nil
}

func merkleRoot(leaves []common.Hash) common.Hash {
	if len(leaves) == 1 {
		return leaves[0]
	}
	k := splitPoint(len(leaves))
	return CombineNodes(merkleRoot(leaves[:k]), merkleRoot(leaves[k:]))
}

// MerklePath returns the sibling digests from leaf index up to the root,
// innermost sibling first.
func MerklePath(leaves []common.Hash, index int) ([]common.Hash, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}
	if index < 0 || index >= len(leaves) {
		return nil, ErrLeafIndex
	}
	return merklePath(leaves, index), nil
}

func merklePath(leaves []common.Hash, index int) []common.Hash {
	if len(leaves) == 1 {
		return nil
	}
	k := splitPoint(len(leaves))
	if index < k {
		return append(merklePath(leaves[:k], index), merkleRoot(leaves[k:]))
	}
	return append(merklePath(leaves[k:], index-k), merkleRoot(leaves[:k]))
}

// pathLen returns the expected sibling-path length for a leaf at index in
// a tree over count leaves.
func pathLen(index, count int) int {
	if count == 1 {
		return 0
	}
	k := splitPoint(count)
	if index < k {
		return 1 + pathLen(index, k)
	}
	return 1 + pathLen(index-k, count-k)
}

// ProcessInclusionProof recomputes the set root from a leaf digest, its
// sibling path, and its position. The left/right orientation at each level
// is derived from (index, count), so a transposed path cannot reproduce
// the root.
func ProcessInclusionProof(leaf common.Hash, path []common.Hash, index, count int) (common.Hash, error) {
	if count <= 0 {
		return common.Hash{}, ErrNoLeaves
	}
	if index < 0 || index >= count {
		return common.Hash{}, ErrLeafIndex
	}
	if len(path) != pathLen(index, count) {
		return common.Hash{}, ErrPathLength
	}
	return processProof(leaf, path, index, count), nil
}

func processProof(leaf common.Hash, path []common.Hash, index, count int) common.Hash {
	if count == 1 {
		return leaf
	}
	k := splitPoint(count)
	sibling := path[len(path)-1]
	inner := path[:len(path)-1]
	if index < k {
		return CombineNodes(processProof(leaf, inner, index, k), sibling)
	}
	return CombineNodes(sibling, processProof(leaf, inner, index-k, count-k))
}
