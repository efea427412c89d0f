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
	"context"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/common/interrupt"
	"github.com/Fantom-foundation/Warp/database"
	"github.com/Fantom-foundation/Warp/logging"
	"github.com/Fantom-foundation/Warp/rlp"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

// CodeState tags how the code of an account is represented in an entry.
type CodeState byte

const (
	// CodeEmpty marks an account without code.
	CodeEmpty CodeState = 0
	// CodeInline marks an entry carrying the code itself.
	CodeInline CodeState = 1
	// CodeHash marks an entry referring to a code inlined by another entry.
	CodeHash CodeState = 2
)

func (s CodeState) String() string {
	switch s {
	case CodeEmpty:
		return "empty"
	case CodeInline:
		return "inline"
	case CodeHash:
		return "hash"
	}
	return fmt.Sprintf("CodeState(%d)", byte(s))
}

// StateReader provides read access to the state a snapshot is taken of.
type StateReader interface {
	AccountTrie() database.Trie
	StorageTrie(account common.Hash) database.Trie
	// Code returns the code with the given hash or an error matching
	// database.ErrCodeNotFound.
	Code(hash common.Hash) ([]byte, error)
}

// entryHeader holds the fields of an entry preceding the storage list.
type entryHeader struct {
	accountHash common.Hash
	items       []rlp.Item
	size        int
}

func newEntryHeader(accountHash common.Hash, account *BasicAccount, tag CodeState, payload rlp.Item) *entryHeader {
	items := make([]rlp.Item, 0, 5)
	items = append(items,
		rlp.Uint256{Value: &account.Nonce},
		rlp.Uint256{Value: &account.Balance},
		rlp.Uint64{Value: uint64(tag)},
		payload,
	)
	if !account.CodeVersion.IsZero() {
		items = append(items, rlp.Uint256{Value: &account.CodeVersion})
	}
	size := 0
	for _, item := range items {
		size += rlp.EncodedLength(item)
	}
	return &entryHeader{accountHash: accountHash, items: items, size: size}
}

// entrySize computes the encoded size of an entry with the given amount of
// encoded storage pairs.
func (h *entryHeader) entrySize(pairsPayload int) int {
	fat := rlp.ListLength(h.size + rlp.ListLength(pairsPayload))
	return rlp.ListLength(common.HashSize + 1 + fat)
}

func (h *entryHeader) encode(pairs []rlp.Item) []byte {
	fat := make([]rlp.Item, 0, len(h.items)+1)
	fat = append(fat, h.items...)
	fat = append(fat, rlp.List{Items: pairs})
	return rlp.Encode(rlp.List{Items: []rlp.Item{
		rlp.Hash{Hash: &h.accountHash},
		rlp.List{Items: fat},
	}})
}

// encodeEmptyEntry produces the entry of an account equal to EmptyAccount.
func encodeEmptyEntry(accountHash common.Hash) []byte {
	return rlp.Encode(rlp.List{Items: []rlp.Item{
		rlp.Hash{Hash: &accountHash},
		rlp.String{},
	}})
}

// ToFatRLPs encodes the given account including its code and storage into a
// list of entries. An entry holds as many storage slots as fit into the
// current target size, starting with firstBudget. Whenever the storage needs
// to be split, the target becomes continuationBudget. A zero-length entry in
// the result marks a chunk boundary required before the next entry.
//
// Codes are inlined only for the first account referencing them; the hashes
// of inlined codes are recorded in usedCode. Codes missing in the state are
// logged and encoded as absent. Cancellation of the context is checked once
// per storage slot and fails the encoding with ErrSnapshotAborted.
func ToFatRLPs(
	ctx context.Context,
	accountHash common.Hash,
	account *BasicAccount,
	state StateReader,
	usedCode mapset.Set[common.Hash],
	firstBudget, continuationBudget int,
	log *logging.Logger,
) ([][]byte, error) {
	if account.IsEmpty() {
		return [][]byte{encodeEmptyEntry(accountHash)}, nil
	}

	header, err := codeHeader(accountHash, account, state, usedCode, log)
	if err != nil {
		return nil, err
	}

	iter := state.StorageTrie(accountHash).NewIterator(nil)
	defer iter.Release()

	target := firstBudget
	entries := [][]byte{}
	var leftover []byte
	for {
		if header.entrySize(0) > target {
			// not even the account fits, the entry has to start a new chunk
			target = continuationBudget
			entries = append(entries, []byte{})
		}

		pairs := []rlp.Item{}
		payload := 0
		if leftover != nil {
			if header.entrySize(len(leftover)) > target {
				return nil, ErrChunkTooSmall
			}
			pairs = append(pairs, rlp.Encoded{Data: leftover})
			payload += len(leftover)
			leftover = nil
		}

		for leftover == nil {
			if interrupt.IsCancelled(ctx) {
				return nil, ErrSnapshotAborted
			}
			if !iter.Next() {
				if err := iter.Error(); err != nil {
					return nil, err
				}
				return append(entries, header.encode(pairs)), nil
			}
			if len(iter.Key()) != common.HashSize {
				return nil, fmt.Errorf("invalid storage key %x of account %v", iter.Key(), accountHash)
			}
			pair := rlp.Encode(rlp.List{Items: []rlp.Item{
				rlp.String{Str: iter.Key()},
				rlp.String{Str: iter.Value()},
			}})
			if header.entrySize(payload+len(pair)) > target {
				entries = append(entries, header.encode(pairs))
				target = continuationBudget
				leftover = pair
				header = header.continuation(account)
				continue
			}
			pairs = append(pairs, rlp.Encoded{Data: pair})
			payload += len(pair)
		}
	}
}

// continuation derives the header of follow-up entries. Codes inlined in the
// first entry are referenced by hash afterwards.
func (h *entryHeader) continuation(account *BasicAccount) *entryHeader {
	if tag, ok := h.items[2].(rlp.Uint64); !ok || CodeState(tag.Value) != CodeInline {
		return h
	}
	return newEntryHeader(h.accountHash, account, CodeHash, rlp.Hash{Hash: &account.CodeHash})
}

func codeHeader(
	accountHash common.Hash,
	account *BasicAccount,
	state StateReader,
	usedCode mapset.Set[common.Hash],
	log *logging.Logger,
) (*entryHeader, error) {
	if account.CodeHash == common.EmptyCodeHash {
		return newEntryHeader(accountHash, account, CodeEmpty, rlp.String{}), nil
	}
	if usedCode.Contains(account.CodeHash) {
		return newEntryHeader(accountHash, account, CodeHash, rlp.Hash{Hash: &account.CodeHash}), nil
	}
	code, err := state.Code(account.CodeHash)
	if errors.Is(err, database.ErrCodeNotFound) {
		log.Warn("code lookup failed during snapshot",
			zap.Stringer("account", accountHash),
			zap.Stringer("code", account.CodeHash),
		)
		return newEntryHeader(accountHash, account, CodeEmpty, rlp.String{}), nil
	}
	if err != nil {
		return nil, err
	}
	usedCode.Add(account.CodeHash)
	return newEntryHeader(accountHash, account, CodeInline, rlp.String{Str: code}), nil
}
