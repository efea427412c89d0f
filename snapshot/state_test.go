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
	"bytes"
	"math/rand"
	"testing"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/database"
	"github.com/Fantom-foundation/Warp/rlp"
)

type testAccount struct {
	hash    common.Hash
	nonce   uint64
	balance uint64
	version uint64
	code    []byte
	storage map[common.Hash][]byte
}

func newTestState(t *testing.T) *database.State {
	t.Helper()
	state := database.NewMemoryState()
	t.Cleanup(func() { state.Close() })
	return state
}

// writeTestAccounts adds the given accounts to the state, returning the
// accounts as stored in the account trie.
func writeTestAccounts(t *testing.T, state *database.State, accounts ...testAccount) []BasicAccount {
	t.Helper()
	res := make([]BasicAccount, 0, len(accounts))
	for _, cur := range accounts {
		account := EmptyAccount()
		account.Nonce.SetUint64(cur.nonce)
		account.Balance.SetUint64(cur.balance)
		account.CodeVersion.SetUint64(cur.version)
		if cur.code != nil {
			hash, err := state.InsertCode(cur.code)
			if err != nil {
				t.Fatalf("failed to insert code: %v", err)
			}
			account.CodeHash = hash
		}
		storage := state.StorageTrie(cur.hash)
		for key, value := range cur.storage {
			if err := storage.Update(key, value); err != nil {
				t.Fatalf("failed to update storage: %v", err)
			}
		}
		root, err := storage.Hash()
		if err != nil {
			t.Fatalf("failed to hash storage: %v", err)
		}
		account.StorageRoot = root
		if err := state.AccountTrie().Update(cur.hash, account.Encode()); err != nil {
			t.Fatalf("failed to update account: %v", err)
		}
		res = append(res, account)
	}
	return res
}

func newStorage(rng *rand.Rand, slots int) map[common.Hash][]byte {
	res := make(map[common.Hash][]byte, slots)
	for i := 0; i < slots; i++ {
		key := common.Keccak256([]byte{byte(i >> 16), byte(i >> 8), byte(i)})
		res[key] = rlp.Encode(rlp.Uint64{Value: uint64(rng.Intn(1<<20) + 1)})
	}
	return res
}

func newCode(rng *rand.Rand, size int) []byte {
	res := make([]byte, size)
	rng.Read(res)
	return res
}

// newRandomAccounts creates a mix of empty accounts, plain accounts, and
// contracts sharing the given codes.
func newRandomAccounts(rng *rand.Rand, count, maxSlots int, codes [][]byte) []testAccount {
	res := make([]testAccount, 0, count)
	for i := 0; i < count; i++ {
		account := testAccount{hash: common.Keccak256([]byte{byte(i >> 8), byte(i), 0xaa})}
		switch i % 4 {
		case 0:
			// an empty account
		case 1:
			account.nonce = uint64(rng.Intn(100))
			account.balance = uint64(rng.Int63())
		default:
			account.nonce = 1
			account.balance = uint64(rng.Intn(1000))
			account.code = codes[rng.Intn(len(codes))]
			account.storage = newStorage(rng, rng.Intn(maxSlots+1))
		}
		res = append(res, account)
	}
	return res
}

func checkStatesEqual(t *testing.T, want, got *database.State) {
	t.Helper()
	wantRoot, err := want.StateRoot()
	if err != nil {
		t.Fatalf("failed to get root: %v", err)
	}
	gotRoot, err := got.StateRoot()
	if err != nil {
		t.Fatalf("failed to get root: %v", err)
	}
	if wantRoot != gotRoot {
		t.Errorf("unexpected state root, wanted %v, got %v", wantRoot, gotRoot)
	}

	iter := want.AccountTrie().NewIterator(nil)
	defer iter.Release()
	for iter.Next() {
		hash, err := common.BytesToHash(iter.Key())
		if err != nil {
			t.Fatalf("invalid key: %v", err)
		}
		value, err := got.AccountTrie().Get(hash)
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if !bytes.Equal(iter.Value(), value) {
			t.Errorf("unexpected account %v, wanted %x, got %x", hash, iter.Value(), value)
			continue
		}
		account, err := DecodeAccount(value)
		if err != nil {
			t.Fatalf("failed to decode account: %v", err)
		}
		wantCode, err := want.Code(account.CodeHash)
		if err != nil {
			t.Fatalf("failed to get code: %v", err)
		}
		gotCode, err := got.Code(account.CodeHash)
		if err != nil {
			t.Errorf("code of account %v not restored: %v", hash, err)
		} else if !bytes.Equal(wantCode, gotCode) {
			t.Errorf("unexpected code for account %v", hash)
		}
	}
}

// splitEntry returns the account hash and the encoded account part of an entry.
func splitEntry(t *testing.T, entry []byte) (common.Hash, []byte) {
	t.Helper()
	list, err := rlp.DecodeList(entry)
	if err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("invalid number of entry fields: %d", len(list.Items))
	}
	hash, err := decodeHash(list, 0)
	if err != nil {
		t.Fatalf("invalid account hash: %v", err)
	}
	return hash, rlp.Encode(list.Items[1])
}

func codeStateOf(t *testing.T, entry []byte) CodeState {
	t.Helper()
	_, fat := splitEntry(t, entry)
	item, err := rlp.Decode(fat)
	if err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}
	account, err := parseFatRLP(item)
	if err != nil {
		t.Fatalf("failed to parse entry: %v", err)
	}
	return account.codeState
}

func testConfig() Config {
	config := DefaultConfig()
	config.PreferredChunkSize = 2048
	config.MaxChunkSize = config.PreferredChunkSize / 4 * 5
	config.Subparts = 4
	config.Parallelism = 2
	config.CodeCacheSize = 16
	return config
}
