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
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Warp/backend"
	"github.com/Fantom-foundation/Warp/common"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Trie is an authenticated key-value map with 32-byte keys. Its content is
// committed to by a Merkle-Patricia-Trie root hash.
type Trie interface {
	// Get returns the value stored for the given key or nil if there is none.
	Get(key common.Hash) ([]byte, error)

	// Update sets the value of the given key. An empty value removes the key.
	Update(key common.Hash, value []byte) error

	// NewIterator iterates over the entries of the trie in ascending key
	// order. A nil slice covers the full key range.
	NewIterator(slice *util.Range) iterator.Iterator

	// Hash returns the root hash of the trie's current content.
	Hash() (common.Hash, error)
}

// KVTrie is a Trie keeping its leaves in a flat key-value table. The root hash
// is derived on demand by streaming the ordered leaves through a stack trie and
// is cached until the next modification.
type KVTrie struct {
	table *backend.Table
	mutex sync.Mutex
	hash  *common.Hash
}

// NewKVTrie creates a trie keeping its leaves in the given table.
func NewKVTrie(table *backend.Table) *KVTrie {
	return &KVTrie{table: table}
}

func (t *KVTrie) Get(key common.Hash) ([]byte, error) {
	value, err := t.table.Get(key[:])
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (t *KVTrie) Update(key common.Hash, value []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.hash = nil
	if len(value) == 0 {
		return t.table.Delete(key[:])
	}
	return t.table.Put(key[:], value)
}

func (t *KVTrie) NewIterator(slice *util.Range) iterator.Iterator {
	return t.table.NewIterator(slice)
}

func (t *KVTrie) Hash() (common.Hash, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.hash != nil {
		return *t.hash, nil
	}

	stack := trie.NewStackTrie(nil)
	iter := t.table.NewIterator(nil)
	defer iter.Release()
	for iter.Next() {
		if len(iter.Key()) != common.HashSize {
			return common.Hash{}, fmt.Errorf("invalid trie key %x", iter.Key())
		}
		// the iterator reuses its buffers while the stack trie retains values
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if err := stack.Update(key, value); err != nil {
			return common.Hash{}, err
		}
	}
	if err := iter.Error(); err != nil {
		return common.Hash{}, err
	}
	hash := common.Hash(stack.Hash())
	t.hash = &hash
	return hash, nil
}

// clear removes all entries of the trie.
func (t *KVTrie) clear() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.hash = nil
	return t.table.Clear()
}
