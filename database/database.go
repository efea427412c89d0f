// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package database provides the world state snapshots are taken from and
// restored into: an account trie, one storage trie per account, a content
// addressed code store and a bit of metadata.
package database

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Warp/backend"
	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrCodeNotFound is returned when looking up a code that is not stored.
const ErrCodeNotFound = common.ConstError("code not found")

const storageTrieCacheSize = 1024

var earliestEraKey = []byte("earliest-era")

// Era identifies the block a restored state belongs to. Nothing older than
// the earliest era is available in a database restored from a snapshot.
type Era struct {
	Block     uint64
	BlockHash common.Hash
	StateRoot common.Hash
}

// State is a world state kept in a backend database.
type State struct {
	db       backend.Database
	accounts *KVTrie
	codes    *backend.Table
	meta     *backend.Table
	storage  *lru.Cache[common.Hash, *KVTrie]
}

// OpenState opens a state kept in the given database. The state takes
// ownership of the database and closes it when being closed.
func OpenState(db backend.Database) (*State, error) {
	storage, err := lru.New[common.Hash, *KVTrie](storageTrieCacheSize)
	if err != nil {
		return nil, err
	}
	return &State{
		db:       db,
		accounts: NewKVTrie(backend.NewTable(db, backend.AccountTableKey)),
		codes:    backend.NewTable(db, backend.CodeTableKey),
		meta:     backend.NewTable(db, backend.MetadataTableKey),
		storage:  storage,
	}, nil
}

// OpenLevelDbState opens a state kept in a LevelDB instance in the given
// directory.
func OpenLevelDbState(path string) (*State, error) {
	db, err := backend.OpenLevelDB(path, nil)
	if err != nil {
		return nil, err
	}
	state, err := OpenState(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return state, nil
}

// NewMemoryState creates an empty state kept in memory.
func NewMemoryState() *State {
	state, err := OpenState(backend.NewMemoryLevelDB())
	if err != nil {
		panic(err)
	}
	return state
}

// AccountTrie provides the trie mapping account hashes to RLP encoded accounts.
func (s *State) AccountTrie() Trie {
	return s.accounts
}

// StorageTrie provides the storage trie of the account with the given hash.
func (s *State) StorageTrie(account common.Hash) Trie {
	if trie, found := s.storage.Get(account); found {
		return trie
	}
	trie := NewKVTrie(backend.NewTable(s.db, backend.StorageTableKey, account[:]...))
	s.storage.Add(account, trie)
	return trie
}

// ClearStorage removes all storage slots of the given account.
func (s *State) ClearStorage(account common.Hash) error {
	return s.StorageTrie(account).(*KVTrie).clear()
}

// Code returns the code with the given hash, ErrCodeNotFound if it is unknown.
func (s *State) Code(hash common.Hash) ([]byte, error) {
	if hash == common.EmptyCodeHash {
		return []byte{}, nil
	}
	code, err := s.codes.Get(hash[:])
	if errors.Is(err, backend.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrCodeNotFound, hash)
	}
	return code, err
}

// InsertCode stores the given code and returns its hash.
func (s *State) InsertCode(code []byte) (common.Hash, error) {
	hash := common.Keccak256(code)
	if hash == common.EmptyCodeHash {
		return hash, nil
	}
	return hash, s.codes.Put(hash[:], code)
}

// HasCode checks whether a code with the given hash is present.
func (s *State) HasCode(hash common.Hash) (bool, error) {
	if hash == common.EmptyCodeHash {
		return true, nil
	}
	return s.codes.Has(hash[:])
}

// StateRoot computes the root hash of the account trie.
func (s *State) StateRoot() (common.Hash, error) {
	return s.accounts.Hash()
}

// MarkEarliestEra records the block the content of this state belongs to.
func (s *State) MarkEarliestEra(era Era) error {
	data := rlp.Encode(rlp.List{Items: []rlp.Item{
		rlp.Uint64{Value: era.Block},
		rlp.Hash{Hash: &era.BlockHash},
		rlp.Hash{Hash: &era.StateRoot},
	}})
	return s.meta.Put(earliestEraKey, data)
}

// EarliestEra returns the era recorded by MarkEarliestEra. The flag is false
// if none was recorded.
func (s *State) EarliestEra() (Era, bool, error) {
	data, err := s.meta.Get(earliestEraKey)
	if errors.Is(err, backend.ErrNotFound) {
		return Era{}, false, nil
	}
	if err != nil {
		return Era{}, false, err
	}
	list, err := rlp.DecodeList(data)
	if err != nil {
		return Era{}, false, err
	}
	if len(list.Items) != 3 {
		return Era{}, false, fmt.Errorf("invalid era record with %d fields", len(list.Items))
	}
	var era Era
	block, err := list.StringAt(0)
	if err != nil {
		return Era{}, false, err
	}
	if era.Block, err = block.Uint64(); err != nil {
		return Era{}, false, err
	}
	blockHash, err := list.StringAt(1)
	if err != nil {
		return Era{}, false, err
	}
	if era.BlockHash, err = blockHash.Hash(); err != nil {
		return Era{}, false, err
	}
	root, err := list.StringAt(2)
	if err != nil {
		return Era{}, false, err
	}
	if era.StateRoot, err = root.Hash(); err != nil {
		return Era{}, false, err
	}
	return era, true, nil
}

// Close closes the underlying database.
func (s *State) Close() error {
	return s.db.Close()
}
