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
	"fmt"
	"sort"
	"time"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/common/interrupt"
	"github.com/Fantom-foundation/Warp/database"
	"github.com/Fantom-foundation/Warp/logging"
	"github.com/Fantom-foundation/Warp/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
)

// StateRebuilder rebuilds a state from the decompressed content of state
// chunks fed in any order. Feed calls must not be issued concurrently.
type StateRebuilder struct {
	state StateWriter
	log   *logging.Logger

	// storageRoots holds the storage roots of accounts at chunk boundaries,
	// which may be continued by entries of other chunks.
	storageRoots map[common.Hash]common.Hash
	// missingCode maps codes referenced by hash but not yet seen to the
	// accounts referencing them.
	missingCode map[common.Hash][]common.Hash
	knownCode   *lru.Cache[common.Hash, struct{}]
}

// NewStateRebuilder creates a rebuilder writing into the given state.
func NewStateRebuilder(state StateWriter, config Config, log *logging.Logger) (*StateRebuilder, error) {
	knownCode, err := lru.New[common.Hash, struct{}](config.CodeCacheSize)
	if err != nil {
		return nil, err
	}
	return &StateRebuilder{
		state:        state,
		log:          log.Named("rebuilder"),
		storageRoots: map[common.Hash]common.Hash{},
		missingCode:  map[common.Hash][]common.Hash{},
		knownCode:    knownCode,
	}, nil
}

type parsedEntry struct {
	accountHash common.Hash
	account     *fatAccount
}

// Feed rebuilds the accounts of the given decompressed state chunk. The chunk
// is parsed completely before the state is modified, so malformed chunks and
// cancellation leave the state untouched.
func (r *StateRebuilder) Feed(ctx context.Context, chunk []byte) error {
	if interrupt.IsCancelled(ctx) {
		return ErrRestorationAborted
	}
	start := time.Now()
	entries, err := r.parse(ctx, chunk)
	if err != nil {
		return err
	}

	accounts := r.state.AccountTrie()
	newCode := []common.Hash{}
	roots := make([]common.Hash, len(entries))
	for i, entry := range entries {
		carried := r.storageRoots[entry.accountHash]
		account, code, err := entry.account.apply(r.state, entry.accountHash, carried)
		if err != nil {
			return fmt.Errorf("failed to rebuild account %v: %w", entry.accountHash, err)
		}
		roots[i] = account.StorageRoot

		switch {
		case code != nil:
			newCode = append(newCode, account.CodeHash)
			r.knownCode.Add(account.CodeHash, struct{}{})
		case account.CodeHash != common.EmptyCodeHash:
			known, err := r.hasCode(account.CodeHash)
			if err != nil {
				return err
			}
			if !known {
				r.missingCode[account.CodeHash] = append(r.missingCode[account.CodeHash], entry.accountHash)
			}
		}

		if err := accounts.Update(entry.accountHash, account.Encode()); err != nil {
			return err
		}
	}

	// codes may be referenced before being inlined within the same chunk
	for _, hash := range newCode {
		delete(r.missingCode, hash)
	}

	if len(entries) > 0 {
		r.storageRoots[entries[0].accountHash] = roots[0]
		r.storageRoots[entries[len(entries)-1].accountHash] = roots[len(roots)-1]
	}

	feedDuration.Observe(time.Since(start).Seconds())
	r.log.Debug("fed state chunk",
		zap.Int("accounts", len(entries)),
		zap.Int("new_codes", len(newCode)),
		zap.Int("missing_codes", len(r.missingCode)),
	)
	return nil
}

// parse decodes all entries of a chunk without touching the state.
func (r *StateRebuilder) parse(ctx context.Context, chunk []byte) ([]parsedEntry, error) {
	list, err := rlp.DecodeList(chunk)
	if err != nil {
		return nil, err
	}
	res := make([]parsedEntry, 0, len(list.Items))
	for i := range list.Items {
		if interrupt.IsCancelled(ctx) {
			return nil, ErrRestorationAborted
		}
		entry, err := list.ListAt(i)
		if err != nil {
			return nil, err
		}
		if len(entry.Items) != 2 {
			return nil, fmt.Errorf("%w: entry with %d fields", ErrIncorrectListLen, len(entry.Items))
		}
		accountHash, err := decodeHash(entry, 0)
		if err != nil {
			return nil, err
		}
		account, err := parseFatRLP(entry.Items[1])
		if err != nil {
			return nil, fmt.Errorf("invalid entry of account %v: %w", accountHash, err)
		}
		res = append(res, parsedEntry{accountHash: accountHash, account: account})
	}
	return res, nil
}

func (r *StateRebuilder) hasCode(hash common.Hash) (bool, error) {
	if r.knownCode.Contains(hash) {
		return true, nil
	}
	has, err := r.state.HasCode(hash)
	if err != nil {
		return false, err
	}
	if has {
		r.knownCode.Add(hash, struct{}{})
	}
	return has, nil
}

// StateRoot is the root hash of the account trie rebuilt so far.
func (r *StateRebuilder) StateRoot() (common.Hash, error) {
	return r.state.AccountTrie().Hash()
}

// Finalize marks the rebuilt state as the earliest era of the given block.
// It fails if codes referenced by accounts were never received. The state
// root is not checked, callers need to compare StateRoot with the expected
// root beforehand.
func (r *StateRebuilder) Finalize(blockNumber uint64, blockHash common.Hash) error {
	if len(r.missingCode) > 0 {
		codes := maps.Keys(r.missingCode)
		sort.Slice(codes, func(i, j int) bool { return codes[i].Compare(&codes[j]) < 0 })
		accounts := []common.Hash{}
		for _, code := range codes {
			accounts = append(accounts, r.missingCode[code]...)
		}
		return &MissingCodeError{Codes: codes, Accounts: accounts}
	}
	root, err := r.StateRoot()
	if err != nil {
		return err
	}
	if err := r.state.MarkEarliestEra(database.Era{
		Block:     blockNumber,
		BlockHash: blockHash,
		StateRoot: root,
	}); err != nil {
		return err
	}
	r.storageRoots = map[common.Hash]common.Hash{}
	r.log.Info("state rebuilt", zap.Uint64("block", blockNumber), zap.Stringer("root", root))
	return nil
}
