// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"sync"

	"golang.org/x/crypto/sha3"
)

var (
	// EmptyCodeHash is the hash of an empty code, used by accounts without code.
	EmptyCodeHash = Keccak256(nil)
	// EmptyTrieRoot is the root hash of a trie without any entries, the hash
	// of the RLP encoding of an empty string.
	EmptyTrieRoot = Keccak256([]byte{0x80})
)

// Keccak256 computes the Keccak256 hash of the given data.
func Keccak256(data []byte) Hash {
	hasher := keccakHasherPool.Get().(keccakHasher)
	hasher.Reset()
	hasher.Write(data)
	var res Hash
	hasher.Read(res[:])
	keccakHasherPool.Put(hasher)
	return res
}

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

type keccakHasher interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}
