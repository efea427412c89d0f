// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package database

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/Fantom-foundation/Warp/backend"
	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/rlp"
)

func newTestTrie(t *testing.T) *KVTrie {
	t.Helper()
	db := backend.NewMemoryLevelDB()
	t.Cleanup(func() { db.Close() })
	return NewKVTrie(backend.NewTable(db, backend.AccountTableKey))
}

func TestKVTrie_EmptyTrieHasEmptyRoot(t *testing.T) {
	trie := newTestTrie(t)
	hash, err := trie.Hash()
	if err != nil {
		t.Fatalf("failed to hash trie: %v", err)
	}
	if want, got := common.EmptyTrieRoot, hash; want != got {
		t.Errorf("unexpected root, wanted %v, got %v", want, got)
	}
}

func TestKVTrie_SingleLeafRoot(t *testing.T) {
	trie := newTestTrie(t)
	key := common.Keccak256([]byte("key"))
	value := []byte("some value")
	if err := trie.Update(key, value); err != nil {
		t.Fatalf("failed to update trie: %v", err)
	}

	path := append([]byte{0x20}, key[:]...)
	want := common.Keccak256(rlp.Encode(rlp.List{Items: []rlp.Item{
		rlp.String{Str: path},
		rlp.String{Str: value},
	}}))
	got, err := trie.Hash()
	if err != nil {
		t.Fatalf("failed to hash trie: %v", err)
	}
	if want != got {
		t.Errorf("unexpected root, wanted %v, got %v", want, got)
	}
}

func TestKVTrie_RootIsIndependentOfInsertionOrder(t *testing.T) {
	keys := make([]common.Hash, 100)
	for i := range keys {
		keys[i] = common.Keccak256([]byte{byte(i)})
	}

	a := newTestTrie(t)
	for _, key := range keys {
		if err := a.Update(key, key[:8]); err != nil {
			t.Fatalf("failed to update trie: %v", err)
		}
	}

	b := newTestTrie(t)
	for _, i := range rand.Perm(len(keys)) {
		if err := b.Update(keys[i], keys[i][:8]); err != nil {
			t.Fatalf("failed to update trie: %v", err)
		}
	}

	hashA, err := a.Hash()
	if err != nil {
		t.Fatalf("failed to hash trie: %v", err)
	}
	hashB, err := b.Hash()
	if err != nil {
		t.Fatalf("failed to hash trie: %v", err)
	}
	if hashA != hashB {
		t.Errorf("roots differ: %v vs %v", hashA, hashB)
	}
}

func TestKVTrie_EmptyValueDeletesKey(t *testing.T) {
	trie := newTestTrie(t)
	a := common.Keccak256([]byte("a"))
	b := common.Keccak256([]byte("b"))
	if err := trie.Update(a, []byte{1}); err != nil {
		t.Fatalf("failed to update trie: %v", err)
	}
	before, err := trie.Hash()
	if err != nil {
		t.Fatalf("failed to hash trie: %v", err)
	}
	if err := trie.Update(b, []byte{2}); err != nil {
		t.Fatalf("failed to update trie: %v", err)
	}
	if err := trie.Update(b, nil); err != nil {
		t.Fatalf("failed to delete key: %v", err)
	}
	if value, err := trie.Get(b); err != nil || value != nil {
		t.Errorf("deleted key should be absent, got %v, err %v", value, err)
	}
	after, err := trie.Hash()
	if err != nil {
		t.Fatalf("failed to hash trie: %v", err)
	}
	if before != after {
		t.Errorf("root should be restored after deletion, wanted %v, got %v", before, after)
	}
}

func TestKVTrie_IteratesInKeyOrder(t *testing.T) {
	trie := newTestTrie(t)
	for i := 0; i < 50; i++ {
		key := common.Keccak256([]byte{byte(i)})
		if err := trie.Update(key, []byte{byte(i)}); err != nil {
			t.Fatalf("failed to update trie: %v", err)
		}
	}
	iter := trie.NewIterator(nil)
	defer iter.Release()
	var last []byte
	count := 0
	for iter.Next() {
		if last != nil && bytes.Compare(last, iter.Key()) >= 0 {
			t.Errorf("keys not in ascending order: %x >= %x", last, iter.Key())
		}
		last = append(last[:0], iter.Key()...)
		count++
	}
	if want, got := 50, count; want != got {
		t.Errorf("unexpected number of entries, wanted %d, got %d", want, got)
	}
}
