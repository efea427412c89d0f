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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Warp/common"
)

func TestState_CodesAreContentAddressed(t *testing.T) {
	state := NewMemoryState()
	defer state.Close()

	code := []byte{0x60, 0x00, 0x60, 0x00}
	hash, err := state.InsertCode(code)
	if err != nil {
		t.Fatalf("failed to insert code: %v", err)
	}
	if want, got := common.Keccak256(code), hash; want != got {
		t.Errorf("unexpected code hash, wanted %v, got %v", want, got)
	}
	if has, err := state.HasCode(hash); err != nil || !has {
		t.Errorf("code should be present, got %t, err %v", has, err)
	}
	if got, err := state.Code(hash); err != nil || !bytes.Equal(code, got) {
		t.Errorf("unexpected code, wanted %x, got %x, err %v", code, got, err)
	}
}

func TestState_MissingCodeIsReported(t *testing.T) {
	state := NewMemoryState()
	defer state.Close()
	if _, err := state.Code(common.Hash{1}); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("expected missing code error, got %v", err)
	}
	if code, err := state.Code(common.EmptyCodeHash); err != nil || len(code) != 0 {
		t.Errorf("empty code should always be available, got %x, err %v", code, err)
	}
}

func TestState_StorageTriesAreSeparatedByAccount(t *testing.T) {
	state := NewMemoryState()
	defer state.Close()
	a, b := common.Hash{1}, common.Hash{2}
	slot := common.Keccak256([]byte("slot"))

	if err := state.StorageTrie(a).Update(slot, []byte{1}); err != nil {
		t.Fatalf("failed to update storage: %v", err)
	}
	if err := state.StorageTrie(b).Update(slot, []byte{2}); err != nil {
		t.Fatalf("failed to update storage: %v", err)
	}
	if err := state.ClearStorage(a); err != nil {
		t.Fatalf("failed to clear storage: %v", err)
	}
	if value, err := state.StorageTrie(a).Get(slot); err != nil || value != nil {
		t.Errorf("storage of a should be cleared, got %v, err %v", value, err)
	}
	if value, err := state.StorageTrie(b).Get(slot); err != nil || !bytes.Equal(value, []byte{2}) {
		t.Errorf("storage of b should be retained, got %v, err %v", value, err)
	}
	root, err := state.StorageTrie(a).Hash()
	if err != nil {
		t.Fatalf("failed to hash storage: %v", err)
	}
	if want, got := common.EmptyTrieRoot, root; want != got {
		t.Errorf("cleared storage should have empty root, wanted %v, got %v", want, got)
	}
}

func TestState_EarliestEraIsPersisted(t *testing.T) {
	dir := t.TempDir()
	state, err := OpenLevelDbState(dir)
	if err != nil {
		t.Fatalf("failed to open state: %v", err)
	}
	if _, found, err := state.EarliestEra(); err != nil || found {
		t.Errorf("fresh state should have no era, got %t, err %v", found, err)
	}
	era := Era{Block: 12, BlockHash: common.Hash{1, 2}, StateRoot: common.Hash{3, 4}}
	if err := state.MarkEarliestEra(era); err != nil {
		t.Fatalf("failed to mark era: %v", err)
	}
	if err := state.Close(); err != nil {
		t.Fatalf("failed to close state: %v", err)
	}

	state, err = OpenLevelDbState(dir)
	if err != nil {
		t.Fatalf("failed to reopen state: %v", err)
	}
	defer state.Close()
	got, found, err := state.EarliestEra()
	if err != nil || !found {
		t.Fatalf("era should be present, got %t, err %v", found, err)
	}
	if era != got {
		t.Errorf("unexpected era, wanted %v, got %v", era, got)
	}
}
