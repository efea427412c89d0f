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
	"github.com/Fantom-foundation/Warp/logging"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/snappy"
	"go.uber.org/zap"
)

// ChunkKind distinguishes the two kinds of chunks listed in a manifest.
type ChunkKind byte

const (
	StateChunk ChunkKind = iota
	BlockChunk
)

func (k ChunkKind) String() string {
	switch k {
	case StateChunk:
		return "state"
	case BlockChunk:
		return "block"
	}
	return fmt.Sprintf("ChunkKind(%d)", byte(k))
}

// RestorationOptions holds the optional collaborators of a Restoration.
type RestorationOptions struct {
	// Writer, if set, receives every chunk fed into the restoration together
	// with the manifest once restoration is complete.
	Writer Writer
	// Blocks, if set, receives all block chunks. Otherwise block chunks are
	// only accounted for.
	Blocks BlockRebuilder
	// Previous, if set, holds chunks persisted by an earlier attempt to
	// restore the same manifest. They are imported before downloading.
	Previous ChunkSource
	Config   Config
	Log      *logging.Logger
}

// Restoration restores the state described by a manifest from chunks fed in
// any order. It is not safe for concurrent use.
type Restoration struct {
	manifest   ManifestData
	stateLeft  mapset.Set[common.Hash]
	blocksLeft mapset.Set[common.Hash]
	state      *StateRebuilder
	blocks     BlockRebuilder
	writer     Writer
	config     Config
	log        *logging.Logger
}

// NewRestoration starts the restoration of the given manifest into the given
// state, which should be empty.
func NewRestoration(manifest ManifestData, state StateWriter, options RestorationOptions) (*Restoration, error) {
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}
	log := options.Log
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("restoration")
	rebuilder, err := NewStateRebuilder(state, options.Config, log)
	if err != nil {
		return nil, err
	}
	return &Restoration{
		manifest:   manifest,
		stateLeft:  mapset.NewThreadUnsafeSet(manifest.StateHashes...),
		blocksLeft: mapset.NewThreadUnsafeSet(manifest.BlockHashes...),
		state:      rebuilder,
		blocks:     options.Blocks,
		writer:     options.Writer,
		config:     options.Config,
		log:        log,
	}, nil
}

// Manifest returns the manifest being restored.
func (r *Restoration) Manifest() ManifestData {
	return r.manifest
}

// Feed dispatches a chunk to FeedState or FeedBlocks depending on its kind.
func (r *Restoration) Feed(ctx context.Context, kind ChunkKind, hash common.Hash, chunk []byte) error {
	if kind == BlockChunk {
		return r.FeedBlocks(ctx, hash, chunk)
	}
	return r.FeedState(ctx, hash, chunk)
}

// FeedState restores the given compressed state chunk. Chunks not listed in
// the manifest or already restored are ignored.
func (r *Restoration) FeedState(ctx context.Context, hash common.Hash, chunk []byte) error {
	if !r.stateLeft.Contains(hash) {
		return nil
	}
	raw, err := r.decompress(hash, chunk)
	if err != nil {
		return err
	}
	if err := r.state.Feed(ctx, raw); err != nil {
		return err
	}
	if err := r.persist(hash, chunk); err != nil {
		return err
	}
	r.stateLeft.Remove(hash)
	chunksFed.WithLabelValues(StateChunk.String()).Inc()
	return nil
}

// FeedBlocks restores the given compressed block chunk. Chunks not listed in
// the manifest or already restored are ignored.
func (r *Restoration) FeedBlocks(ctx context.Context, hash common.Hash, chunk []byte) error {
	if !r.blocksLeft.Contains(hash) {
		return nil
	}
	raw, err := r.decompress(hash, chunk)
	if err != nil {
		return err
	}
	if r.blocks != nil {
		if err := r.blocks.Feed(ctx, raw); err != nil {
			return err
		}
	}
	if err := r.persist(hash, chunk); err != nil {
		return err
	}
	r.blocksLeft.Remove(hash)
	chunksFed.WithLabelValues(BlockChunk.String()).Inc()
	return nil
}

// decompress checks a chunk against its hash and size limit before
// decompressing it.
func (r *Restoration) decompress(hash common.Hash, chunk []byte) ([]byte, error) {
	if got := common.Keccak256(chunk); got != hash {
		return nil, fmt.Errorf("%w: expected %v, got %v", ErrChunkHashMismatch, hash, got)
	}
	size, err := snappy.DecodedLen(chunk)
	if err != nil {
		return nil, err
	}
	if size > r.config.MaxChunkSize {
		r.log.Debug("discarding large chunk", zap.Stringer("hash", hash), zap.Int("size", size))
		return nil, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, size, r.config.MaxChunkSize)
	}
	return snappy.Decode(nil, chunk)
}

func (r *Restoration) persist(hash common.Hash, chunk []byte) error {
	if r.writer == nil {
		return nil
	}
	written, err := r.writer.Write(chunk)
	if err != nil {
		return err
	}
	if written != hash {
		return fmt.Errorf("%w: writer reported %v for %v", ErrChunkHashMismatch, written, hash)
	}
	return nil
}

// IsDone is true once all chunks of the manifest have been restored.
func (r *Restoration) IsDone() bool {
	return r.stateLeft.Cardinality() == 0 && r.blocksLeft.Cardinality() == 0
}

// ChunksLeft is the number of state and block chunks still to be restored.
func (r *Restoration) ChunksLeft() (state, blocks int) {
	return r.stateLeft.Cardinality(), r.blocksLeft.Cardinality()
}

// CompletedChunks lists the hashes of all chunks restored so far, state
// chunks first, both in manifest order.
func (r *Restoration) CompletedChunks() []common.Hash {
	res := make([]common.Hash, 0, r.manifest.TotalChunks())
	for _, hash := range r.manifest.StateHashes {
		if !r.stateLeft.Contains(hash) {
			res = append(res, hash)
		}
	}
	for _, hash := range r.manifest.BlockHashes {
		if !r.blocksLeft.Contains(hash) {
			res = append(res, hash)
		}
	}
	return res
}

// ImportChunks feeds all chunks of the manifest still left that the given
// source has available. Missing chunks and chunks failing to restore are
// skipped. Only cancellation stops the import. The number of imported chunks
// is returned.
func (r *Restoration) ImportChunks(ctx context.Context, source ChunkSource) (int, error) {
	imported := 0
	importAll := func(kind ChunkKind, hashes []common.Hash, left mapset.Set[common.Hash]) error {
		for _, hash := range hashes {
			if interrupt.IsCancelled(ctx) {
				return ErrRestorationAborted
			}
			if !left.Contains(hash) {
				continue
			}
			chunk, err := source.Chunk(hash)
			if errors.Is(err, ErrChunkNotFound) {
				continue
			}
			if err == nil {
				err = r.Feed(ctx, kind, hash, chunk)
			}
			if errors.Is(err, ErrRestorationAborted) {
				return err
			}
			if err != nil {
				r.log.Debug("skipping previous chunk", zap.Stringer("kind", kind), zap.Stringer("hash", hash), zap.Error(err))
				continue
			}
			imported++
		}
		return nil
	}
	if err := importAll(StateChunk, r.manifest.StateHashes, r.stateLeft); err != nil {
		return imported, err
	}
	if err := importAll(BlockChunk, r.manifest.BlockHashes, r.blocksLeft); err != nil {
		return imported, err
	}
	if imported > 0 {
		r.log.Info("imported previous chunks", zap.Int("chunks", imported))
	}
	return imported, nil
}

// StateRoot is the root of the state restored so far.
func (r *Restoration) StateRoot() (common.Hash, error) {
	return r.state.StateRoot()
}

// Finalize completes a restoration after all chunks have been fed. The
// restored state root is checked against the manifest before the state is
// finalized.
func (r *Restoration) Finalize() error {
	if !r.IsDone() {
		state, blocks := r.ChunksLeft()
		return fmt.Errorf("%w: %d state and %d block chunks left", ErrRestorationIncomplete, state, blocks)
	}
	root, err := r.state.StateRoot()
	if err != nil {
		return err
	}
	if root != r.manifest.StateRoot {
		r.log.Warn("restored state has wrong state root",
			zap.Stringer("expected", r.manifest.StateRoot),
			zap.Stringer("actual", root),
		)
		return &StateRootError{Expected: r.manifest.StateRoot, Actual: root}
	}
	if err := r.state.Finalize(r.manifest.BlockNumber, r.manifest.BlockHash); err != nil {
		return err
	}
	if r.blocks != nil {
		if err := r.blocks.Finalize(); err != nil {
			return err
		}
	}
	if r.writer != nil {
		if err := r.writer.Finish(r.manifest); err != nil {
			return err
		}
	}
	return nil
}

// RestoreFromReader restores the complete snapshot provided by the given
// reader into the given state.
func RestoreFromReader(ctx context.Context, reader Reader, state StateWriter, options RestorationOptions) error {
	manifest := reader.Manifest()
	restoration, err := NewRestoration(manifest, state, options)
	if err != nil {
		return err
	}
	progress := restoration.log.NewProgressLogger("chunks restored", 10)
	feed := func(kind ChunkKind, hashes []common.Hash) error {
		for _, hash := range hashes {
			chunk, err := reader.Chunk(hash)
			if err != nil {
				return err
			}
			if err := restoration.Feed(ctx, kind, hash, chunk); err != nil {
				return fmt.Errorf("failed to restore %v chunk %v: %w", kind, hash, err)
			}
			progress.Step(1)
		}
		return nil
	}
	if err := feed(StateChunk, manifest.StateHashes); err != nil {
		return err
	}
	if err := feed(BlockChunk, manifest.BlockHashes); err != nil {
		return err
	}
	return restoration.Finalize()
}
