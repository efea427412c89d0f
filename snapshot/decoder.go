// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

import (
	"fmt"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/database"
	"github.com/Fantom-foundation/Warp/rlp"
	"github.com/holiman/uint256"
)

// StateWriter provides the operations needed to rebuild a state from a
// snapshot.
type StateWriter interface {
	AccountTrie() database.Trie
	StorageTrie(account common.Hash) database.Trie
	// ClearStorage drops all storage slots of the given account.
	ClearStorage(account common.Hash) error
	InsertCode(code []byte) (common.Hash, error)
	HasCode(hash common.Hash) (bool, error)
	MarkEarliestEra(era database.Era) error
}

type storagePair struct {
	key   common.Hash
	value []byte
}

// fatAccount is the parsed content of an entry, not yet applied to a state.
type fatAccount struct {
	empty       bool
	nonce       uint256.Int
	balance     uint256.Int
	codeVersion uint256.Int
	codeState   CodeState
	code        []byte
	codeHash    common.Hash
	storage     []storagePair
}

// parseFatRLP parses the account part of an entry. An empty string or list
// denotes the EmptyAccount.
func parseFatRLP(item rlp.Item) (*fatAccount, error) {
	switch fat := item.(type) {
	case rlp.String:
		if len(fat.Str) == 0 {
			return &fatAccount{empty: true}, nil
		}
		return nil, fmt.Errorf("%w: account entry is a non-empty string", rlp.ErrUnexpectedType)
	case rlp.List:
		if len(fat.Items) == 0 {
			return &fatAccount{empty: true}, nil
		}
		return parseFatList(fat)
	}
	return nil, fmt.Errorf("%w: unsupported item %T", rlp.ErrUnexpectedType, item)
}

func parseFatList(list rlp.List) (*fatAccount, error) {
	storagePos := 4
	switch len(list.Items) {
	case 5:
	case 6:
		storagePos = 5
	default:
		return nil, fmt.Errorf("%w: account entry with %d fields", ErrIncorrectListLen, len(list.Items))
	}

	res := &fatAccount{}
	if err := decodeUint256(list, 0, &res.nonce); err != nil {
		return nil, err
	}
	if err := decodeUint256(list, 1, &res.balance); err != nil {
		return nil, err
	}
	tag, err := list.StringAt(2)
	if err != nil {
		return nil, err
	}
	state, err := tag.Uint64()
	if err != nil {
		return nil, err
	}
	payload, err := list.StringAt(3)
	if err != nil {
		return nil, err
	}
	if state > uint64(CodeHash) {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedCodeState, state)
	}
	res.codeState = CodeState(state)
	switch res.codeState {
	case CodeEmpty:
		res.codeHash = common.EmptyCodeHash
	case CodeInline:
		res.code = payload.Str
		res.codeHash = common.Keccak256(res.code)
	case CodeHash:
		if res.codeHash, err = payload.Hash(); err != nil {
			return nil, err
		}
	}
	if storagePos == 5 {
		if err := decodeUint256(list, 4, &res.codeVersion); err != nil {
			return nil, err
		}
	}

	pairs, err := list.ListAt(storagePos)
	if err != nil {
		return nil, err
	}
	res.storage = make([]storagePair, 0, len(pairs.Items))
	for i := range pairs.Items {
		pair, err := pairs.ListAt(i)
		if err != nil {
			return nil, err
		}
		if len(pair.Items) != 2 {
			return nil, fmt.Errorf("%w: storage pair with %d fields", ErrIncorrectListLen, len(pair.Items))
		}
		key, err := decodeHash(pair, 0)
		if err != nil {
			return nil, err
		}
		value, err := pair.StringAt(1)
		if err != nil {
			return nil, err
		}
		res.storage = append(res.storage, storagePair{key: key, value: value.Str})
	}
	return res, nil
}

// apply writes code and storage of the parsed entry into the given state and
// returns the resulting account together with the inlined code, if any. A
// zero carried storage root starts the account's storage from scratch, any
// other value continues the storage built by previous entries.
func (f *fatAccount) apply(state StateWriter, accountHash common.Hash, carriedRoot common.Hash) (BasicAccount, []byte, error) {
	if f.empty {
		return EmptyAccount(), nil, nil
	}

	if f.codeState == CodeInline {
		if _, err := state.InsertCode(f.code); err != nil {
			return BasicAccount{}, nil, err
		}
	}

	if carriedRoot.IsZero() {
		if err := state.ClearStorage(accountHash); err != nil {
			return BasicAccount{}, nil, err
		}
	}
	storage := state.StorageTrie(accountHash)
	for _, pair := range f.storage {
		if err := storage.Update(pair.key, pair.value); err != nil {
			return BasicAccount{}, nil, err
		}
	}
	root, err := storage.Hash()
	if err != nil {
		return BasicAccount{}, nil, err
	}

	return BasicAccount{
		Nonce:       f.nonce,
		Balance:     f.balance,
		StorageRoot: root,
		CodeHash:    f.codeHash,
		CodeVersion: f.codeVersion,
	}, f.code, nil
}

// FromFatRLP decodes the account part of an entry produced by ToFatRLPs and
// applies it to the given state. It returns the rebuilt account and the code
// if the entry carried it inline. The carried storage root is the root
// produced by a previous entry of the same account or zero for the first.
func FromFatRLP(state StateWriter, accountHash common.Hash, fat []byte, carriedRoot common.Hash) (BasicAccount, []byte, error) {
	item, err := rlp.Decode(fat)
	if err != nil {
		return BasicAccount{}, nil, err
	}
	parsed, err := parseFatRLP(item)
	if err != nil {
		return BasicAccount{}, nil, err
	}
	return parsed.apply(state, accountHash, carriedRoot)
}
