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
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the number of bytes of a Hash.
const HashSize = 32

// Hash is a 32-byte Keccak256 digest. It is used as the key of accounts and
// storage slots in tries, as the content address of chunks and codes, and as
// the commitment of a trie's content.
type Hash [HashSize]byte

// Compare returns -1, 0, or 1 depending on the lexicographic order of h and other.
func (h *Hash) Compare(other *Hash) int {
	return bytes.Compare(h[:], other[:])
}

// IsZero is true for the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// BytesToHash converts a byte slice of exactly HashSize bytes into a hash.
func BytesToHash(data []byte) (Hash, error) {
	var res Hash
	if len(data) != HashSize {
		return res, fmt.Errorf("invalid hash length, wanted %d, got %d", HashSize, len(data))
	}
	copy(res[:], data)
	return res, nil
}

// HexToHash parses a hex encoded hash, with or without 0x prefix.
func HexToHash(str string) (Hash, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(data)
}
