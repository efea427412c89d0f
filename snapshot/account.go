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
	"github.com/Fantom-foundation/Warp/rlp"
	"github.com/holiman/uint256"
)

// BasicAccount is the value stored for an account in the account trie.
type BasicAccount struct {
	Nonce       uint256.Int
	Balance     uint256.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
	CodeVersion uint256.Int
}

// EmptyAccount returns the account without balance, nonce, code and storage.
func EmptyAccount() BasicAccount {
	return BasicAccount{
		StorageRoot: common.EmptyTrieRoot,
		CodeHash:    common.EmptyCodeHash,
	}
}

// IsEmpty is true if this account equals the EmptyAccount.
func (a *BasicAccount) IsEmpty() bool {
	return *a == EmptyAccount()
}

// Encode produces the RLP encoding of the account as stored in the account
// trie. The code version is only included if it is not zero.
func (a *BasicAccount) Encode() []byte {
	items := make([]rlp.Item, 0, 5)
	items = append(items,
		rlp.Uint256{Value: &a.Nonce},
		rlp.Uint256{Value: &a.Balance},
		rlp.Hash{Hash: &a.StorageRoot},
		rlp.Hash{Hash: &a.CodeHash},
	)
	if !a.CodeVersion.IsZero() {
		items = append(items, rlp.Uint256{Value: &a.CodeVersion})
	}
	return rlp.Encode(rlp.List{Items: items})
}

// DecodeAccount parses an account as produced by Encode.
func DecodeAccount(data []byte) (BasicAccount, error) {
	var res BasicAccount
	list, err := rlp.DecodeList(data)
	if err != nil {
		return res, err
	}
	if len(list.Items) != 4 && len(list.Items) != 5 {
		return res, fmt.Errorf("%w: account with %d fields", ErrIncorrectListLen, len(list.Items))
	}
	if err := decodeUint256(list, 0, &res.Nonce); err != nil {
		return res, err
	}
	if err := decodeUint256(list, 1, &res.Balance); err != nil {
		return res, err
	}
	if res.StorageRoot, err = decodeHash(list, 2); err != nil {
		return res, err
	}
	if res.CodeHash, err = decodeHash(list, 3); err != nil {
		return res, err
	}
	if len(list.Items) == 5 {
		if err := decodeUint256(list, 4, &res.CodeVersion); err != nil {
			return res, err
		}
	}
	return res, nil
}

func decodeUint256(list rlp.List, pos int, res *uint256.Int) error {
	str, err := list.StringAt(pos)
	if err != nil {
		return err
	}
	value, err := str.Uint256()
	if err != nil {
		return err
	}
	res.Set(value)
	return nil
}

func decodeHash(list rlp.List, pos int) (common.Hash, error) {
	str, err := list.StringAt(pos)
	if err != nil {
		return common.Hash{}, err
	}
	return str.Hash()
}
