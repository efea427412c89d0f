// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package warpsync drives the download of a snapshot from peers. The
// ChunkTracker decides which chunk to request next, the Downloader fetches
// chunks concurrently and feeds them into a restoration.
package warpsync

import (
	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/snapshot"
	mapset "github.com/deckarep/golang-set/v2"
)

// ChunkTracker keeps track of the chunks of the snapshot being downloaded.
// Every chunk listed by the active manifest is in exactly one of the sets
// pending, downloading, and completed. The tracker also remembers manifests
// known to be bad across resets.
//
// A ChunkTracker is not safe for concurrent use.
type ChunkTracker struct {
	manifest     *snapshot.ManifestData
	manifestHash common.Hash

	stateHashes mapset.Set[common.Hash]
	blockHashes mapset.Set[common.Hash]

	// order lists block chunks followed by state chunks, each in manifest
	// order; index maps a hash to its position in order.
	order []common.Hash
	index map[common.Hash]int
	// cursor is a lower bound of the positions of pending chunks.
	cursor int

	pending     mapset.Set[common.Hash]
	downloading mapset.Set[common.Hash]
	completed   mapset.Set[common.Hash]
	bad         mapset.Set[common.Hash]
}

// NewChunkTracker creates a tracker without an active manifest.
func NewChunkTracker() *ChunkTracker {
	res := &ChunkTracker{bad: mapset.NewThreadUnsafeSet[common.Hash]()}
	res.Clear()
	return res
}

// Clear drops the active manifest. Known bad manifests are retained.
func (t *ChunkTracker) Clear() {
	t.manifest = nil
	t.manifestHash = common.Hash{}
	t.stateHashes = mapset.NewThreadUnsafeSet[common.Hash]()
	t.blockHashes = mapset.NewThreadUnsafeSet[common.Hash]()
	t.order = nil
	t.index = map[common.Hash]int{}
	t.cursor = 0
	t.pending = mapset.NewThreadUnsafeSet[common.Hash]()
	t.downloading = mapset.NewThreadUnsafeSet[common.Hash]()
	t.completed = mapset.NewThreadUnsafeSet[common.Hash]()
}

// ResetTo makes the given manifest the active one, with all of its chunks
// pending.
func (t *ChunkTracker) ResetTo(manifest snapshot.ManifestData, manifestHash common.Hash) {
	t.Clear()
	t.manifest = &manifest
	t.manifestHash = manifestHash
	t.stateHashes.Append(manifest.StateHashes...)
	t.blockHashes.Append(manifest.BlockHashes...)

	t.order = make([]common.Hash, 0, manifest.TotalChunks())
	for _, hashes := range [][]common.Hash{manifest.BlockHashes, manifest.StateHashes} {
		for _, hash := range hashes {
			if _, found := t.index[hash]; found {
				continue
			}
			t.index[hash] = len(t.order)
			t.order = append(t.order, hash)
			t.pending.Add(hash)
		}
	}
}

// Initialize marks the given chunks of the active manifest as completed,
// for instance when resuming a restoration. Other hashes are ignored.
func (t *ChunkTracker) Initialize(completed []common.Hash) {
	for _, hash := range completed {
		if _, found := t.index[hash]; !found {
			continue
		}
		t.pending.Remove(hash)
		t.downloading.Remove(hash)
		t.completed.Add(hash)
	}
}

// HaveManifest is true if a manifest is active.
func (t *ChunkTracker) HaveManifest() bool {
	return t.manifest != nil
}

// Manifest returns the active manifest, if any.
func (t *ChunkTracker) Manifest() (snapshot.ManifestData, bool) {
	if t.manifest == nil {
		return snapshot.ManifestData{}, false
	}
	return *t.manifest, true
}

// SnapshotHash is the hash of the active manifest, if any.
func (t *ChunkTracker) SnapshotHash() (common.Hash, bool) {
	return t.manifestHash, t.manifest != nil
}

// TotalChunks is the number of distinct chunks of the active manifest.
func (t *ChunkTracker) TotalChunks() int {
	return len(t.order)
}

// DoneChunks is the number of chunks completed so far.
func (t *ChunkTracker) DoneChunks() int {
	return t.completed.Cardinality()
}

// NeededChunk selects the next chunk to download and marks it as
// downloading. Block chunks are selected before state chunks, each in
// manifest order. The flag is false if no chunk is pending.
func (t *ChunkTracker) NeededChunk() (common.Hash, bool) {
	for ; t.cursor < len(t.order); t.cursor++ {
		hash := t.order[t.cursor]
		if t.pending.Contains(hash) {
			t.pending.Remove(hash)
			t.downloading.Add(hash)
			t.cursor++
			return hash, true
		}
	}
	return common.Hash{}, false
}

// ValidateChunk accepts a downloaded chunk if it belongs to the active
// manifest and was not completed before. It returns the kind and hash of
// the accepted chunk. Rejected chunks leave the tracker unchanged.
func (t *ChunkTracker) ValidateChunk(chunk []byte) (snapshot.ChunkKind, common.Hash, bool) {
	hash := common.Keccak256(chunk)
	if t.completed.Contains(hash) {
		trackerValidations.WithLabelValues("duplicate").Inc()
		return 0, hash, false
	}
	var kind snapshot.ChunkKind
	switch {
	case t.blockHashes.Contains(hash):
		kind = snapshot.BlockChunk
	case t.stateHashes.Contains(hash):
		kind = snapshot.StateChunk
	default:
		trackerValidations.WithLabelValues("unknown").Inc()
		return 0, hash, false
	}
	t.pending.Remove(hash)
	t.downloading.Remove(hash)
	t.completed.Add(hash)
	trackerValidations.WithLabelValues(kind.String()).Inc()
	return kind, hash, true
}

// ClearChunkDownload returns a chunk being downloaded to the pending chunks.
func (t *ChunkTracker) ClearChunkDownload(hash common.Hash) {
	if !t.downloading.Contains(hash) {
		return
	}
	t.downloading.Remove(hash)
	t.pending.Add(hash)
	if pos := t.index[hash]; pos < t.cursor {
		t.cursor = pos
	}
}

// NoteBad records a manifest whose restoration failed.
func (t *ChunkTracker) NoteBad(manifestHash common.Hash) {
	t.bad.Add(manifestHash)
}

// IsKnownBad is true for manifests recorded by NoteBad.
func (t *ChunkTracker) IsKnownBad(manifestHash common.Hash) bool {
	return t.bad.Contains(manifestHash)
}

// IsComplete is true if all chunks of the active manifest are completed. A
// tracker without an active manifest is never complete, not even trivially.
func (t *ChunkTracker) IsComplete() bool {
	return t.manifest != nil && t.completed.Cardinality() == len(t.order)
}
