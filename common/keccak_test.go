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
	"encoding/hex"
	"fmt"
	"testing"
)

func TestKeccak256_KnownHashes(t *testing.T) {
	tests := []struct {
		data []byte
		hash string
	}{
		{nil, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{[]byte{}, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{[]byte{0x80}, "56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421"},
	}
	for _, test := range tests {
		got := Keccak256(test.data)
		if want := test.hash; want != hex.EncodeToString(got[:]) {
			t.Errorf("unexpected hash for %x, wanted %v, got %x", test.data, want, got)
		}
	}
}

func TestKeccak256_EmptyConstants(t *testing.T) {
	if want, got := "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", EmptyCodeHash.String(); want != got {
		t.Errorf("unexpected empty code hash, wanted %v, got %v", want, got)
	}
	if want, got := "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421", EmptyTrieRoot.String(); want != got {
		t.Errorf("unexpected empty trie root, wanted %v, got %v", want, got)
	}
}

func TestKeccak256_IsSafeForConcurrentUse(t *testing.T) {
	want := Keccak256([]byte{1, 2, 3})
	done := make(chan Hash, 16)
	for i := 0; i < cap(done); i++ {
		go func() {
			done <- Keccak256([]byte{1, 2, 3})
		}()
	}
	for i := 0; i < cap(done); i++ {
		if got := <-done; want != got {
			t.Errorf("unexpected hash, wanted %v, got %v", want, got)
		}
	}
}

func BenchmarkKeccak256(b *testing.B) {
	for i := 1; i < 1<<22; i <<= 3 {
		b.Run(fmt.Sprintf("size=%d", i), func(b *testing.B) {
			data := make([]byte, i)
			for i := 0; i < b.N; i++ {
				Keccak256(data)
			}
		})
	}
}
