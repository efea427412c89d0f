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
	"math/rand"
	"reflect"
	"testing"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/database"
	"github.com/Fantom-foundation/Warp/logging"
	"github.com/Fantom-foundation/Warp/rlp"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/snappy"
	"go.uber.org/mock/gomock"
)

// newSourceState creates a state with a mix of accounts, including one with
// a storage too large for a single chunk of the test config.
func newSourceState(t *testing.T, seed int64) *database.State {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	codes := [][]byte{newCode(rng, 50), newCode(rng, 150), newCode(rng, 300)}
	state := newTestState(t)
	writeTestAccounts(t, state, newRandomAccounts(rng, 300, 120, codes)...)
	writeTestAccounts(t, state, testAccount{
		hash:    common.Hash{0x42},
		nonce:   1,
		balance: 1,
		code:    codes[0],
		storage: newStorage(rng, 500),
	})
	return state
}

func TestSubpart_RangesCoverAllAccounts(t *testing.T) {
	if got := (Subpart{Index: 0, Count: 1}).Range(); got != nil {
		t.Errorf("single part should cover everything, got %v", got)
	}
	for _, count := range []int{2, 3, 4, 16, 256} {
		next := byte(0)
		for i := 0; i < count; i++ {
			got := Subpart{Index: i, Count: count}.Range()
			if want := []byte{next}; !reflect.DeepEqual(want, got.Start) {
				t.Errorf("unexpected start of part %d/%d, wanted %x, got %x", i, count, want, got.Start)
			}
			if i == count-1 {
				if got.Limit != nil {
					t.Errorf("last part should not be limited, got %x", got.Limit)
				}
				continue
			}
			if len(got.Limit) != 1 || got.Limit[0] <= next {
				t.Errorf("invalid limit of part %d/%d: %x", i, count, got.Limit)
				continue
			}
			next = got.Limit[0]
		}
	}
}

func TestStateChunker_ChunksRespectSizeLimit(t *testing.T) {
	source := newSourceState(t, 1)
	config := testConfig()
	writer := NewMemoryWriter()
	chunker := NewStateChunker(source, writer, Subpart{Index: 0, Count: 1}, config, nil, logging.NewTestLogger())
	defer chunker.Close()

	hashes, err := chunker.ChunkState(context.Background())
	if err != nil {
		t.Fatalf("failed to chunk state: %v", err)
	}
	if len(hashes) < 10 {
		t.Errorf("expected the state to be split into many chunks, got %d", len(hashes))
	}
	for _, hash := range hashes {
		chunk, err := writer.Chunk(hash)
		if err != nil {
			t.Fatalf("chunk %v not written: %v", hash, err)
		}
		raw, err := snappy.Decode(nil, chunk)
		if err != nil {
			t.Fatalf("failed to decompress chunk: %v", err)
		}
		if len(raw) > config.MaxChunkSize {
			t.Errorf("chunk of size %d exceeds limit of %d", len(raw), config.MaxChunkSize)
		}
	}
}

func TestStateChunker_NextChunkProducesSameChunksAsChunkState(t *testing.T) {
	source := newSourceState(t, 2)
	config := testConfig()
	part := Subpart{Index: 1, Count: 2}

	all := NewStateChunker(source, NewMemoryWriter(), part, config, nil, logging.NewTestLogger())
	defer all.Close()
	want, err := all.ChunkState(context.Background())
	if err != nil {
		t.Fatalf("failed to chunk state: %v", err)
	}

	single := NewStateChunker(source, NewMemoryWriter(), part, config, nil, logging.NewTestLogger())
	defer single.Close()
	got := []common.Hash{}
	for {
		hash, more, err := single.NextChunk(context.Background())
		if err != nil {
			t.Fatalf("failed to produce chunk: %v", err)
		}
		if !more {
			break
		}
		got = append(got, hash)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("chunk sequences differ, wanted %v, got %v", want, got)
	}
}

func TestStateChunker_EachCodeIsInlinedOncePerPart(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	codes := [][]byte{newCode(rng, 100), newCode(rng, 200)}
	accounts := newRandomAccounts(rng, 300, 40, codes)
	source := newTestState(t)
	writeTestAccounts(t, source, accounts...)
	contracts := mapset.NewThreadUnsafeSet[common.Hash]()
	for _, account := range accounts {
		if account.code != nil {
			contracts.Add(account.hash)
		}
	}

	writer := NewMemoryWriter()
	chunker := NewStateChunker(source, writer, Subpart{Index: 0, Count: 1}, testConfig(), nil, logging.NewTestLogger())
	defer chunker.Close()
	hashes, err := chunker.ChunkState(context.Background())
	if err != nil {
		t.Fatalf("failed to chunk state: %v", err)
	}
	if len(hashes) < 10 {
		t.Fatalf("expected the state to be split into many chunks, got %d", len(hashes))
	}

	inlined := map[common.Hash]int{}
	referenced := map[common.Hash]int{}
	seen := mapset.NewThreadUnsafeSet[common.Hash]()
	for _, hash := range hashes {
		chunk, err := writer.Chunk(hash)
		if err != nil {
			t.Fatalf("chunk %v not written: %v", hash, err)
		}
		raw, err := snappy.Decode(nil, chunk)
		if err != nil {
			t.Fatalf("failed to decompress chunk: %v", err)
		}
		entries, err := rlp.DecodeList(raw)
		if err != nil {
			t.Fatalf("failed to decode chunk: %v", err)
		}
		for _, entry := range entries.Items {
			accountHash, fat := splitEntry(t, rlp.Encode(entry))
			item, err := rlp.Decode(fat)
			if err != nil {
				t.Fatalf("failed to decode entry: %v", err)
			}
			account, err := parseFatRLP(item)
			if err != nil {
				t.Fatalf("failed to parse entry: %v", err)
			}
			switch account.codeState {
			case CodeInline:
				inlined[common.Keccak256(account.code)]++
				seen.Add(accountHash)
			case CodeHash:
				referenced[account.codeHash]++
				seen.Add(accountHash)
			}
		}
	}

	if want, got := len(codes), len(inlined); want != got {
		t.Errorf("unexpected number of inlined codes, wanted %d, got %d", want, got)
	}
	for i, code := range codes {
		hash := common.Keccak256(code)
		if want, got := 1, inlined[hash]; want != got {
			t.Errorf("code %d should be inlined exactly once, got %d", i, got)
		}
		if referenced[hash] == 0 {
			t.Errorf("code %d should be referenced by hash", i)
		}
	}
	if !contracts.Equal(seen) {
		t.Errorf("unexpected accounts with code, wanted %d, got %d", contracts.Cardinality(), seen.Cardinality())
	}
}

func TestTakeSnapshot_RestoredStateMatchesSource(t *testing.T) {
	source := newSourceState(t, 3)
	wantRoot, err := source.StateRoot()
	if err != nil {
		t.Fatalf("failed to get state root: %v", err)
	}

	for _, parts := range []int{1, 4, 16} {
		config := testConfig()
		config.Subparts = parts
		writer := NewMemoryWriter()
		progress := &Progress{}
		block := BlockInfo{Number: 10, Hash: common.Hash{0xbb}}

		manifest, err := TakeSnapshot(context.Background(), source, block, nil, writer, config, progress, logging.NewTestLogger())
		if err != nil {
			t.Fatalf("failed to take snapshot: %v", err)
		}
		if manifest.StateRoot != wantRoot {
			t.Errorf("unexpected state root in manifest, wanted %v, got %v", wantRoot, manifest.StateRoot)
		}
		if manifest.Version != ManifestVersion || manifest.BlockNumber != block.Number || manifest.BlockHash != block.Hash {
			t.Errorf("unexpected manifest %v", manifest)
		}
		if len(manifest.BlockHashes) != 0 {
			t.Errorf("unexpected block chunks %v", manifest.BlockHashes)
		}
		if want, got := uint64(301), progress.Accounts(); want != got {
			t.Errorf("unexpected number of accounts, wanted %d, got %d", want, got)
		}
		if !progress.Done() || progress.Err() != nil || progress.Size() == 0 {
			t.Errorf("unexpected progress %v", progress)
		}
		if !writer.Finished() {
			t.Errorf("snapshot should be finished")
		}

		restored := newTestState(t)
		if err := RestoreFromReader(context.Background(), writer, restored, RestorationOptions{Config: config}); err != nil {
			t.Fatalf("failed to restore snapshot with %d parts: %v", parts, err)
		}
		checkStatesEqual(t, source, restored)

		era, found, err := restored.EarliestEra()
		if err != nil || !found {
			t.Fatalf("earliest era not recorded, err %v", err)
		}
		if want := (database.Era{Block: block.Number, BlockHash: block.Hash, StateRoot: wantRoot}); want != era {
			t.Errorf("unexpected era, wanted %v, got %v", want, era)
		}
	}
}

func TestTakeSnapshot_LooseSnapshotCanBeRestored(t *testing.T) {
	source := newSourceState(t, 4)
	config := testConfig()
	dir := t.TempDir()
	writer, err := NewLooseWriter(dir)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if _, err := TakeSnapshot(context.Background(), source, BlockInfo{Number: 1}, nil, writer, config, nil, logging.NewTestLogger()); err != nil {
		t.Fatalf("failed to take snapshot: %v", err)
	}

	reader, err := OpenLooseReader(dir)
	if err != nil {
		t.Fatalf("failed to open snapshot: %v", err)
	}
	restored := newTestState(t)
	if err := RestoreFromReader(context.Background(), reader, restored, RestorationOptions{Config: config}); err != nil {
		t.Fatalf("failed to restore snapshot: %v", err)
	}
	checkStatesEqual(t, source, restored)
}

func TestTakeSnapshot_EmptyStateProducesNoChunks(t *testing.T) {
	source := newTestState(t)
	writer := NewMemoryWriter()
	manifest, err := TakeSnapshot(context.Background(), source, BlockInfo{}, nil, writer, testConfig(), nil, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("failed to take snapshot: %v", err)
	}
	if len(manifest.StateHashes) != 0 {
		t.Errorf("unexpected state chunks %v", manifest.StateHashes)
	}
	if manifest.StateRoot != common.EmptyTrieRoot {
		t.Errorf("unexpected root %v", manifest.StateRoot)
	}

	restored := newTestState(t)
	if err := RestoreFromReader(context.Background(), writer, restored, RestorationOptions{Config: testConfig()}); err != nil {
		t.Fatalf("failed to restore empty snapshot: %v", err)
	}
}

func TestTakeSnapshot_CancellationAbortsSnapshot(t *testing.T) {
	source := newSourceState(t, 5)
	writer := NewMemoryWriter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	progress := &Progress{}
	_, err := TakeSnapshot(ctx, source, BlockInfo{}, nil, writer, testConfig(), progress, logging.NewTestLogger())
	if !errors.Is(err, ErrSnapshotAborted) {
		t.Errorf("expected %v, got %v", ErrSnapshotAborted, err)
	}
	if writer.Finished() {
		t.Errorf("aborted snapshot should not be finished")
	}
	if !progress.Done() {
		t.Errorf("aborted snapshot should be done")
	}
	if err := progress.Err(); !errors.Is(err, ErrSnapshotAborted) {
		t.Errorf("progress should report %v, got %v", ErrSnapshotAborted, err)
	}
}

func TestProgress_RunningSnapshotIsNotDone(t *testing.T) {
	progress := &Progress{}
	if progress.Done() || progress.Err() != nil {
		t.Errorf("new progress should be neither done nor failed: %v", progress)
	}
	progress.fail(ErrSnapshotAborted)
	progress.fail(ErrChunkTooLarge)
	if err := progress.Err(); !errors.Is(err, ErrSnapshotAborted) {
		t.Errorf("first failure should be kept, got %v", err)
	}
	if want, got := "accounts: 0, blocks: 0, bytes: 0, failed: "+ErrSnapshotAborted.Error(), progress.String(); want != got {
		t.Errorf("unexpected progress, wanted %q, got %q", want, got)
	}
}

func TestTakeSnapshot_WriterErrorsArePropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	writer := NewMockWriter(ctrl)
	injected := errors.New("injected")
	writer.EXPECT().Write(gomock.Any()).Return(common.Hash{}, injected).MinTimes(1)

	source := newSourceState(t, 6)
	progress := &Progress{}
	_, err := TakeSnapshot(context.Background(), source, BlockInfo{}, nil, writer, testConfig(), progress, logging.NewTestLogger())
	if !errors.Is(err, injected) {
		t.Errorf("expected %v, got %v", injected, err)
	}
	if !progress.Done() || !errors.Is(progress.Err(), injected) {
		t.Errorf("progress should report the failure, got %v", progress)
	}
}

func TestTakeSnapshot_BlockChunksAreListedInManifest(t *testing.T) {
	ctrl := gomock.NewController(t)
	blocks := NewMockBlockChunker(ctrl)
	blockChunk := snappy.Encode(nil, []byte("block data"))
	blocks.EXPECT().ChunkBlocks(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, writer Writer, progress *Progress) ([]common.Hash, error) {
			progress.AddBlocks(5)
			hash, err := writer.Write(blockChunk)
			return []common.Hash{hash}, err
		})

	source := newSourceState(t, 7)
	writer := NewMemoryWriter()
	progress := &Progress{}
	manifest, err := TakeSnapshot(context.Background(), source, BlockInfo{Number: 3}, blocks, writer, testConfig(), progress, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("failed to take snapshot: %v", err)
	}
	if want, got := []common.Hash{common.Keccak256(blockChunk)}, manifest.BlockHashes; !reflect.DeepEqual(want, got) {
		t.Errorf("unexpected block hashes, wanted %v, got %v", want, got)
	}
	if want, got := uint64(5), progress.Blocks(); want != got {
		t.Errorf("unexpected number of blocks, wanted %d, got %d", want, got)
	}

	rebuilder := NewMockBlockRebuilder(ctrl)
	gomock.InOrder(
		rebuilder.EXPECT().Feed(gomock.Any(), []byte("block data")),
		rebuilder.EXPECT().Finalize(),
	)
	restored := newTestState(t)
	options := RestorationOptions{Blocks: rebuilder, Config: testConfig()}
	if err := RestoreFromReader(context.Background(), writer, restored, options); err != nil {
		t.Fatalf("failed to restore snapshot: %v", err)
	}
	checkStatesEqual(t, source, restored)
}
